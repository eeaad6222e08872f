package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/catalogfi/swapdeploy/cli/commands"
	"github.com/catalogfi/swapdeploy/utils"
	"github.com/spf13/cobra"
)

func Run(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewCommand(version).ExecuteContext(ctx)
}

// NewCommand builds the swapdeploy command tree. Without a subcommand it runs the deployment.
func NewCommand(version string) *cobra.Command {
	var (
		configPath string
		network    string
		verbose    bool
	)

	load := func() (commands.Env, error) {
		config, err := utils.LoadConfig(configPath)
		if err != nil {
			return commands.Env{}, err
		}
		if network == "" {
			network = config.DefaultNetwork
		}
		chain, err := config.Network(network)
		if err != nil {
			return commands.Env{}, err
		}
		logger, err := utils.LoadLogger(verbose, config.LogFile, config.Sentry)
		if err != nil {
			return commands.Env{}, err
		}
		return commands.Env{
			NetworkName: network,
			Network:     chain,
			Config:      config,
			Logger:      logger,
		}, nil
	}

	deploy := commands.Deploy(load)
	var cmd = &cobra.Command{
		Use:               "swapdeploy",
		Short:             "Deploy a token pair and its swap contract",
		Args:              cobra.NoArgs,
		RunE:              deploy.RunE,
		Version:           version,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", utils.DefaultConfigPath(), "path to the config file")
	cmd.PersistentFlags().StringVar(&network, "network", "", "network to deploy to (default: the config's default_network)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logs")

	cmd.AddCommand(deploy)
	cmd.AddCommand(commands.Accounts(load))
	cmd.AddCommand(commands.History(load))
	return cmd
}
