package deploy

import "time"

type Options struct {
	Network string

	// Artifact names of the contracts
	TokenA string
	TokenB string
	Swap   string

	// Initial supply in whole token units, scaled by the token decimals before minting.
	AmountA string
	AmountB string

	// ConfirmTimeout bounds the wait of a single step, zero waits for as long as the network
	// takes.
	ConfirmTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		Network: "localhost",
		TokenA:  "TokenA",
		TokenB:  "TokenB",
		Swap:    "TokenSwap",
		AmountA: "1000",
		AmountB: "2000",
	}
}

func (opts Options) WithNetwork(network string) Options {
	opts.Network = network
	return opts
}

func (opts Options) WithContracts(tokenA, tokenB, swap string) Options {
	opts.TokenA = tokenA
	opts.TokenB = tokenB
	opts.Swap = swap
	return opts
}

func (opts Options) WithAmounts(amountA, amountB string) Options {
	opts.AmountA = amountA
	opts.AmountB = amountB
	return opts
}

func (opts Options) WithConfirmTimeout(timeout time.Duration) Options {
	opts.ConfirmTimeout = timeout
	return opts
}
