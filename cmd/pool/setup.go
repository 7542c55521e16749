package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stablepool/internal/chain"
	"stablepool/internal/config"
	"stablepool/internal/dispatch"
	"stablepool/internal/journal"
	"stablepool/internal/journal/postgres"
	"stablepool/internal/model"
	"stablepool/internal/registry"
	"stablepool/internal/token"
)

// app wires the chain-backed collaborators and an initialized dispatcher for
// one CLI invocation.
type app struct {
	cfg        config.Config
	logger     *zap.Logger
	dispatcher *dispatch.Dispatcher
	sinks      []journal.Sink
	cleanup    []func()
}

func setup(cmd *cobra.Command) (*app, context.Context, func(), error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, err
	}

	if cfg.RPCURL == "" {
		return nil, nil, nil, fmt.Errorf("rpc url is required")
	}
	poolAddr, err := parseAddress(cfg.PoolAddress, "pool")
	if err != nil {
		return nil, nil, nil, err
	}
	shareAddr, err := parseAddress(cfg.ShareToken, "share-token")
	if err != nil {
		return nil, nil, nil, err
	}
	tokens, err := parseTokens(cfg.Tokens)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(tokens) == 0 {
		return nil, nil, nil, fmt.Errorf("token list is required")
	}

	var admin common.Address
	if cfg.Admin != "" {
		if admin, err = parseAddress(cfg.Admin, "admin"); err != nil {
			return nil, nil, nil, err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a := &app{cfg: cfg, logger: logger}
	a.cleanup = append(a.cleanup, stop, func() { _ = logger.Sync() })
	teardown := func() {
		for i := len(a.cleanup) - 1; i >= 0; i-- {
			a.cleanup[i]()
		}
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		teardown()
		return nil, nil, nil, fmt.Errorf("connect rpc: %w", err)
	}
	a.cleanup = append(a.cleanup, chainClient.Close)

	querier := token.NewQuerier(chainClient, logger, cfg.MaxRetries, cfg.RetryBackoff)

	dispatcher := dispatch.New(poolAddr, querier, logger)
	if _, err := dispatcher.Initialize(ctx, dispatch.InitMsg{
		Tokens:             tokens,
		InitialViewingKey:  cfg.ViewingKey,
		ShareTokenCodeHash: cfg.ShareCodeHash,
		ShareTokenLabel:    cfg.ShareLabel,
		Admin:              admin,
		FeeNumerator:       cfg.FeeNumerator,
		FeeDenominator:     cfg.FeeDenominator,
		Halted:             cfg.Halted,
		RoundDown:          cfg.RoundDown,
	}, registry.DecimalsFunc(querier.Decimals)); err != nil {
		teardown()
		return nil, nil, nil, fmt.Errorf("initialize pool: %w", err)
	}
	if _, err := dispatcher.PostInitialize(shareAddr); err != nil {
		teardown()
		return nil, nil, nil, fmt.Errorf("bind share token: %w", err)
	}
	a.dispatcher = dispatcher

	if cfg.Journal != "" {
		a.sinks = append(a.sinks, journal.NewJsonlSink(cfg.Journal))
	}
	if cfg.PgDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PgDSN)
		if err != nil {
			teardown()
			return nil, nil, nil, fmt.Errorf("connect journal db: %w", err)
		}
		a.cleanup = append(a.cleanup, store.Close)
		a.sinks = append(a.sinks, store)
	}

	return a, ctx, teardown, nil
}

func (a *app) record(ctx context.Context, event model.EventRecord) {
	for _, sink := range a.sinks {
		if err := sink.Append(ctx, []model.EventRecord{event}); err != nil {
			a.logger.Warn("journal append failed", zap.String("op", event.Op), zap.Error(err))
		}
	}
}

func parseAddress(s, name string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%s address %q is not a hex address", name, s)
	}
	return common.HexToAddress(s), nil
}

// parseTokens accepts "addr" or "addr=codehash" entries.
func parseTokens(entries []string) ([]model.Token, error) {
	tokens := make([]model.Token, 0, len(entries))
	for _, entry := range entries {
		addr, codeHash, _ := strings.Cut(entry, "=")
		parsed, err := parseAddress(addr, "token")
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, model.Token{Address: parsed, CodeHash: codeHash})
	}
	return tokens, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
