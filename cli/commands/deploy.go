package commands

import (
	"fmt"

	"github.com/catalogfi/swapdeploy/pkg/artifact"
	"github.com/catalogfi/swapdeploy/pkg/deploy"
	"github.com/catalogfi/swapdeploy/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func Deploy(load Loader) *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "deploy",
		Short: "Deploy both tokens and the swap, then seed the swap with liquidity",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			env, err := load()
			if err != nil {
				return err
			}
			defer env.Logger.Sync()

			registry, err := artifact.LoadDir(env.Config.Artifacts)
			if err != nil {
				return fmt.Errorf("failed to load artifacts: %w", err)
			}
			env.Logger.Debug("artifacts loaded", zap.Strings("contracts", registry.Names()))
			ledger, client, err := env.Ledger(c.Context(), registry)
			if err != nil {
				return fmt.Errorf("failed to connect to %v: %w", env.NetworkName, err)
			}
			defer client.Close()

			var journal deploy.Journal
			str, err := utils.LoadDB(env.Config.DB)
			if err != nil {
				env.Logger.Warn("deployment journal disabled", zap.Error(err))
			} else {
				journal = str
			}

			options := deploy.DefaultOptions().
				WithNetwork(env.NetworkName).
				WithContracts(env.Config.Contracts.TokenA, env.Config.Contracts.TokenB, env.Config.Contracts.Swap).
				WithAmounts(env.Config.Amounts.TokenA, env.Config.Amounts.TokenB).
				WithConfirmTimeout(env.ConfirmTimeout())
			result, err := deploy.NewDeployer(options, ledger, journal, c.OutOrStdout(), env.Logger).Run(c.Context())
			if err != nil {
				return err
			}
			env.Logger.Info("deployment complete",
				zap.Uint("run", result.RunID),
				zap.String("tokenA", result.TokenA.Address.Hex()),
				zap.String("tokenB", result.TokenB.Address.Hex()),
				zap.String("swap", result.Swap.Address.Hex()),
				zap.Stringer("liquidity", result.Liquidity))
			return nil
		},
	}
	return cmd
}
