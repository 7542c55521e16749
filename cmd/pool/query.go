package main

import (
	"github.com/spf13/cobra"
)

func runPools(cmd *cobra.Command, _ []string) error {
	a, ctx, teardown, err := setup(cmd)
	if err != nil {
		return err
	}
	defer teardown()

	resp, err := a.dispatcher.GetPools(ctx)
	if err != nil {
		return err
	}

	type asset struct {
		Address string `json:"address"`
		Amount  string `json:"amount"`
	}
	out := struct {
		Assets      []asset `json:"assets"`
		TotalShares string  `json:"total_shares"`
	}{TotalShares: resp.TotalShares.Dec()}
	for _, entry := range resp.Assets {
		out.Assets = append(out.Assets, asset{Address: entry.Token.Address.Hex(), Amount: entry.Amount.Dec()})
	}
	return printJSON(out)
}

func runConfig(cmd *cobra.Command, _ []string) error {
	a, _, teardown, err := setup(cmd)
	if err != nil {
		return err
	}
	defer teardown()

	resp, err := a.dispatcher.GetConfig()
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func runTokens(cmd *cobra.Command, _ []string) error {
	a, _, teardown, err := setup(cmd)
	if err != nil {
		return err
	}
	defer teardown()

	infos, err := a.dispatcher.GetTokens()
	if err != nil {
		return err
	}
	return printJSON(infos)
}

func runNeeded(cmd *cobra.Command, _ []string) error {
	a, ctx, teardown, err := setup(cmd)
	if err != nil {
		return err
	}
	defer teardown()

	info, err := a.dispatcher.GetMostNeededToken(ctx)
	if err != nil {
		return err
	}
	return printJSON(info)
}
