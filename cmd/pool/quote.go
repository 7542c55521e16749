package main

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"stablepool/internal/dispatch"
	"stablepool/internal/model"
	"stablepool/internal/numeric"
)

func runSwap(cmd *cobra.Command, _ []string) error {
	a, ctx, teardown, err := setup(cmd)
	if err != nil {
		return err
	}
	defer teardown()

	src, err := flagAddress(cmd, "src")
	if err != nil {
		return err
	}
	dst, err := flagAddress(cmd, "dst")
	if err != nil {
		return err
	}
	sender, err := flagAddress(cmd, "sender")
	if err != nil {
		return err
	}
	amountStr, _ := cmd.Flags().GetString("amount")
	amount, err := numeric.ParseAmount(amountStr)
	if err != nil {
		return err
	}

	payload := dispatch.SwapPayload{ToToken: dst}
	if recipientStr, _ := cmd.Flags().GetString("recipient"); recipientStr != "" {
		if payload.Recipient, err = parseAddress(recipientStr, "recipient"); err != nil {
			return err
		}
	}

	resp, err := a.dispatcher.Receive(ctx, src, sender, amount, payload)
	if err != nil {
		return err
	}

	a.record(ctx, resp.Event)
	return printJSON(resp)
}

func runProvide(cmd *cobra.Command, _ []string) error {
	a, ctx, teardown, err := setup(cmd)
	if err != nil {
		return err
	}
	defer teardown()

	sender, err := flagAddress(cmd, "sender")
	if err != nil {
		return err
	}
	entries, _ := cmd.Flags().GetStringSlice("deposit")
	deposits, err := parseDeposits(entries, a)
	if err != nil {
		return err
	}

	resp, err := a.dispatcher.ProvideLiquidity(ctx, sender, deposits)
	if err != nil {
		return err
	}

	a.record(ctx, resp.Event)
	return printJSON(resp)
}

func runWithdraw(cmd *cobra.Command, _ []string) error {
	a, ctx, teardown, err := setup(cmd)
	if err != nil {
		return err
	}
	defer teardown()

	sender, err := flagAddress(cmd, "sender")
	if err != nil {
		return err
	}
	amountStr, _ := cmd.Flags().GetString("amount")
	amount, err := numeric.ParseAmount(amountStr)
	if err != nil {
		return err
	}

	share := a.dispatcher.Config().ShareToken()
	resp, err := a.dispatcher.Receive(ctx, share.Address, sender, amount, dispatch.WithdrawPayload{})
	if err != nil {
		return err
	}

	a.record(ctx, resp.Event)
	return printJSON(resp)
}

func flagAddress(cmd *cobra.Command, name string) (common.Address, error) {
	value, _ := cmd.Flags().GetString(name)
	return parseAddress(value, name)
}

// parseDeposits accepts "addr=amount" entries, resolving each address against
// the registry so deposits carry the registered code hash.
func parseDeposits(entries []string, a *app) ([]model.TokenAmount, error) {
	deposits := make([]model.TokenAmount, 0, len(entries))
	for _, entry := range entries {
		addrStr, amountStr, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("deposit %q: want addr=amount", entry)
		}
		addr, err := parseAddress(addrStr, "deposit")
		if err != nil {
			return nil, err
		}
		amount, err := numeric.ParseAmount(amountStr)
		if err != nil {
			return nil, err
		}

		tok := model.Token{Address: addr}
		if info, ok := a.dispatcher.Registry().Lookup(addr); ok {
			tok = info.Token
		}
		deposits = append(deposits, model.TokenAmount{Token: tok, Amount: amount})
	}
	return deposits, nil
}
