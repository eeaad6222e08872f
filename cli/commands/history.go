package commands

import (
	"time"

	"github.com/catalogfi/swapdeploy/pkg/store"
	"github.com/catalogfi/swapdeploy/pkg/util"
	"github.com/catalogfi/swapdeploy/utils"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func History(load Loader) *cobra.Command {
	var (
		run    uint
		limit  int
		signer string
	)

	var cmd = &cobra.Command{
		Use:   "history",
		Short: "List past deployment runs, or the steps of one run",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			env, err := load()
			if err != nil {
				return err
			}
			defer env.Logger.Sync()

			str, err := utils.LoadDB(env.Config.DB)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(c.OutOrStdout())
			if run != 0 {
				steps, err := str.Steps(run)
				if err != nil {
					return err
				}
				t.AppendHeader(table.Row{"#", "Step", "Contract", "Address", "Tx Hash"})
				for i, step := range steps {
					t.AppendRow(table.Row{i + 1, step.Name, step.Contract, step.Address, step.TxHash})
				}
				t.Render()
				return nil
			}

			var runs []store.Run
			if signer != "" {
				addr, err := util.ParseAddress(signer)
				if err != nil {
					return err
				}
				runs, err = str.RunsOf(addr, limit)
				if err != nil {
					return err
				}
			} else {
				runs, err = str.Runs(limit)
				if err != nil {
					return err
				}
			}
			t.AppendHeader(table.Row{"Run", "Network", "Signer", "Status", "Started", "Error"})
			for _, r := range runs {
				t.AppendRow(table.Row{r.ID, r.Network, r.Signer, r.Status.String(), r.CreatedAt.Format(time.RFC3339), r.Error})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().UintVar(&run, "run", 0, "show the steps of this run")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	cmd.Flags().StringVar(&signer, "signer", "", "only list the runs of this signer")
	return cmd
}
