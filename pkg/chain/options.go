package chain

import (
	"math/big"
)

type Options struct {
	ChainID *big.Int

	// GasLimit of every transaction, zero lets the node estimate it.
	GasLimit uint64
}

// OptionsLocalnet returns the options of a local hardhat or anvil node.
func OptionsLocalnet() Options {
	return Options{
		ChainID: big.NewInt(31337),
	}
}

func (opts Options) WithChainID(id *big.Int) Options {
	opts.ChainID = id
	return opts
}

func (opts Options) WithGasLimit(limit uint64) Options {
	opts.GasLimit = limit
	return opts
}
