package deploy

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Contract is a handle to a deployed contract. Name selects the ABI binding used to talk to it.
type Contract struct {
	Name    string
	Address common.Address
	TxHash  common.Hash
}

// Ledger is the blockchain service the deployment runs against. Every state-changing method
// blocks until the transaction is confirmed.
type Ledger interface {

	// Signer returns the first available account.
	Signer(ctx context.Context) (common.Address, error)

	// NativeBalance returns the native currency balance of the address.
	NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error)

	// Deploy creates a contract from the named artifact with the given constructor arguments.
	Deploy(ctx context.Context, name string, args ...interface{}) (Contract, error)

	// Transact invokes a state-changing method of the contract.
	Transact(ctx context.Context, contract Contract, method string, args ...interface{}) (*types.Receipt, error)

	// Call invokes a read-only method of the contract and returns the unpacked outputs.
	Call(ctx context.Context, contract Contract, method string, args ...interface{}) ([]interface{}, error)
}

// Journal keeps a record of deployment runs.
type Journal interface {
	Begin(network string, signer common.Address) (uint, error)

	Record(runID uint, step string, contract string, addr common.Address, txHash common.Hash) error

	Finish(runID uint, err error) error
}
