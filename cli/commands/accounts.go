package commands

import (
	"fmt"

	"github.com/catalogfi/swapdeploy/pkg/artifact"
	"github.com/catalogfi/swapdeploy/pkg/util"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func Accounts(load Loader) *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "accounts",
		Short: "List the configured accounts and their native balances",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			env, err := load()
			if err != nil {
				return err
			}
			defer env.Logger.Sync()

			ledger, client, err := env.Ledger(c.Context(), artifact.NewRegistry())
			if err != nil {
				return fmt.Errorf("failed to connect to %v: %w", env.NetworkName, err)
			}
			defer client.Close()

			t := table.NewWriter()
			t.SetOutputMirror(c.OutOrStdout())
			t.AppendHeader(table.Row{"#", "Address", "Balance"})
			for i, account := range ledger.Accounts() {
				balance, err := ledger.NativeBalance(c.Context(), account)
				if err != nil {
					return fmt.Errorf("failed to fetch balance of %v: %w", account.Hex(), err)
				}
				t.AppendRow(table.Row{i, account.Hex(), util.FormatUnits(balance, 18)})
			}
			t.Render()
			return nil
		},
	}
	return cmd
}
