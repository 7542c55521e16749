package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "pool",
		Short:        "Stable pool accounting CLI",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("rpc", "", "RPC URL")
	root.PersistentFlags().String("pool", "", "pool contract address")
	root.PersistentFlags().String("share-token", "", "share token address")
	root.PersistentFlags().String("admin", "", "pool admin address")
	root.PersistentFlags().StringSlice("token", nil, "pool tokens, addr or addr=codehash (comma-separated)")
	root.PersistentFlags().String("viewing-key", "", "initial viewing key for pool tokens")
	root.PersistentFlags().String("share-code-hash", "", "share token code hash")
	root.PersistentFlags().String("share-label", "STABLE-LP", "share token label")
	root.PersistentFlags().Uint64("fee-num", 997, "swap fee retention numerator")
	root.PersistentFlags().Uint64("fee-denom", 1000, "swap fee retention denominator")
	root.PersistentFlags().Bool("halted", false, "start halted")
	root.PersistentFlags().Bool("round-down", true, "round pool answers down")
	root.PersistentFlags().String("journal", "./data/events.jsonl", "event journal JSONL path")
	root.PersistentFlags().String("pg-dsn", "", "optional Postgres DSN for the event journal")
	root.PersistentFlags().Int("max-retries", 5, "maximum RPC retry attempts")
	root.PersistentFlags().Duration("retry-backoff", 500*time.Millisecond, "initial RPC retry backoff")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Compute pool accounting answers",
	}

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Quote a cross-asset swap",
		RunE:  runSwap,
	}
	swapCmd.Flags().String("src", "", "source token address")
	swapCmd.Flags().String("dst", "", "destination token address")
	swapCmd.Flags().String("amount", "", "source amount in native decimals")
	swapCmd.Flags().String("recipient", "", "recipient address (default: sender)")
	swapCmd.Flags().String("sender", "", "swap sender address")
	quoteCmd.AddCommand(swapCmd)

	provideCmd := &cobra.Command{
		Use:   "provide",
		Short: "Quote the share mint for a liquidity deposit",
		RunE:  runProvide,
	}
	provideCmd.Flags().StringSlice("deposit", nil, "deposits, addr=amount (repeatable)")
	provideCmd.Flags().String("sender", "", "depositor address")
	quoteCmd.AddCommand(provideCmd)

	withdrawCmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Quote the refunds for burning share tokens",
		RunE:  runWithdraw,
	}
	withdrawCmd.Flags().String("amount", "", "share amount to burn")
	withdrawCmd.Flags().String("sender", "", "withdrawer address")
	quoteCmd.AddCommand(withdrawCmd)

	root.AddCommand(quoteCmd)

	root.AddCommand(&cobra.Command{
		Use:   "pools",
		Short: "Show externally-reported pool balances and share supply",
		RunE:  runPools,
	})
	root.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Show the pool configuration",
		RunE:  runConfig,
	})
	root.AddCommand(&cobra.Command{
		Use:   "tokens",
		Short: "Show the registered token set",
		RunE:  runTokens,
	})
	root.AddCommand(&cobra.Command{
		Use:   "needed",
		Short: "Show the token with the lowest canonical balance",
		RunE:  runNeeded,
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
