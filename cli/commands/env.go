package commands

import (
	"context"
	"math/big"
	"time"

	"github.com/catalogfi/swapdeploy/pkg/artifact"
	"github.com/catalogfi/swapdeploy/pkg/chain"
	"github.com/catalogfi/swapdeploy/utils"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Env is what every command needs, resolved from the config file and the persistent flags.
type Env struct {
	NetworkName string
	Network     utils.Network
	Config      utils.Config
	Logger      *zap.Logger
}

type Loader func() (Env, error)

func (env Env) ConfirmTimeout() time.Duration {
	return time.Duration(env.Network.ConfirmTimeoutSeconds) * time.Second
}

func (env Env) ChainOptions() chain.Options {
	options := chain.Options{}.WithGasLimit(env.Network.GasLimit)
	if env.Network.ChainID != 0 {
		options = options.WithChainID(new(big.Int).SetUint64(env.Network.ChainID))
	}
	return options
}

// Ledger dials the network and returns a ledger signing with the configured keys. The caller
// closes the client.
func (env Env) Ledger(ctx context.Context, artifacts artifact.Registry) (*chain.Ledger, *ethclient.Client, error) {
	keys, err := env.Network.Keys()
	if err != nil {
		return nil, nil, err
	}
	client, err := ethclient.DialContext(ctx, env.Network.URL)
	if err != nil {
		return nil, nil, err
	}
	ledger, err := chain.NewLedger(ctx, env.ChainOptions(), keys, client, artifacts)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return ledger, client, nil
}
