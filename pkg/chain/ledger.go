// Package chain implements the deployment ledger on top of an EVM node.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/catalogfi/swapdeploy/pkg/artifact"
	"github.com/catalogfi/swapdeploy/pkg/deploy"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrTxReverted = errors.New("tx reverted")
	ErrWrongChain = errors.New("wrong chain ID")
)

// Backend is the part of an EVM client the ledger needs. Both *ethclient.Client and the
// simulated backend client satisfy it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend

	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)

	ChainID(ctx context.Context) (*big.Int, error)
}

type Ledger struct {
	options   Options
	keys      []*ecdsa.PrivateKey
	accounts  []common.Address
	backend   Backend
	artifacts artifact.Registry

	mu    *sync.Mutex
	nonce uint64
}

// NewLedger makes sure the backend is on the expected chain and loads the pending nonce of the
// signer, which is the first of the keys.
func NewLedger(ctx context.Context, options Options, keys []*ecdsa.PrivateKey, backend Backend, artifacts artifact.Registry) (*Ledger, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// Make sure the chain ID matches our expectation, so we know we are on the right chain.
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	if options.ChainID == nil {
		options.ChainID = chainID
	}
	if options.ChainID.Cmp(chainID) != 0 {
		return nil, fmt.Errorf("%w, expect %v, got %v", ErrWrongChain, options.ChainID, chainID)
	}

	accounts := make([]common.Address, len(keys))
	for i, key := range keys {
		accounts[i] = crypto.PubkeyToAddress(key.PublicKey)
	}
	ledger := &Ledger{
		options:   options,
		keys:      keys,
		accounts:  accounts,
		backend:   backend,
		artifacts: artifacts,
		mu:        new(sync.Mutex),
	}

	// Get the pending nonce, and we'll manually manage the nonce with the ledger.
	if len(accounts) > 0 {
		ledger.nonce, err = backend.PendingNonceAt(ctx, accounts[0])
		if err != nil {
			return nil, err
		}
	}
	return ledger, nil
}

// Accounts returns the addresses of all configured keys.
func (ledger *Ledger) Accounts() []common.Address {
	return ledger.accounts
}

func (ledger *Ledger) Signer(ctx context.Context) (common.Address, error) {
	if len(ledger.accounts) == 0 {
		return common.Address{}, deploy.ErrNoAccounts
	}
	return ledger.accounts[0], nil
}

func (ledger *Ledger) NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	return ledger.backend.BalanceAt(ctx, addr, nil)
}

func (ledger *Ledger) Deploy(ctx context.Context, name string, args ...interface{}) (deploy.Contract, error) {
	contract, err := ledger.artifacts.Lookup(name)
	if err != nil {
		return deploy.Contract{}, err
	}

	tx, err := ledger.send(ctx, func(transactor *bind.TransactOpts) (*types.Transaction, error) {
		_, tx, _, err := bind.DeployContract(transactor, contract.ABI, contract.Bytecode, ledger.backend, args...)
		return tx, err
	})
	if err != nil {
		return deploy.Contract{}, err
	}
	receipt, err := ledger.wait(ctx, tx)
	if err != nil {
		return deploy.Contract{}, err
	}

	code, err := ledger.backend.CodeAt(ctx, receipt.ContractAddress, nil)
	if err != nil {
		return deploy.Contract{}, err
	}
	if len(code) == 0 {
		return deploy.Contract{}, bind.ErrNoCodeAfterDeploy
	}
	return deploy.Contract{
		Name:    name,
		Address: receipt.ContractAddress,
		TxHash:  receipt.TxHash,
	}, nil
}

func (ledger *Ledger) Transact(ctx context.Context, contract deploy.Contract, method string, args ...interface{}) (*types.Receipt, error) {
	bound, err := ledger.bind(contract)
	if err != nil {
		return nil, err
	}
	tx, err := ledger.send(ctx, func(transactor *bind.TransactOpts) (*types.Transaction, error) {
		return bound.Transact(transactor, method, args...)
	})
	if err != nil {
		return nil, err
	}
	return ledger.wait(ctx, tx)
}

func (ledger *Ledger) Call(ctx context.Context, contract deploy.Contract, method string, args ...interface{}) ([]interface{}, error) {
	bound, err := ledger.bind(contract)
	if err != nil {
		return nil, err
	}
	out := []interface{}{}
	if err := bound.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (ledger *Ledger) bind(contract deploy.Contract) (*bind.BoundContract, error) {
	art, err := ledger.artifacts.Lookup(contract.Name)
	if err != nil {
		return nil, err
	}
	return bind.NewBoundContract(contract.Address, art.ABI, ledger.backend, ledger.backend, ledger.backend), nil
}

// send signs and submits a transaction with the locally tracked nonce.
func (ledger *Ledger) send(ctx context.Context, submit func(*bind.TransactOpts) (*types.Transaction, error)) (*types.Transaction, error) {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()

	if len(ledger.keys) == 0 {
		return nil, deploy.ErrNoAccounts
	}
	transactor, err := ledger.transactor(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := submit(transactor)
	if err != nil {
		if strings.Contains(err.Error(), "nonce too low") {
			if inErr := ledger.calibrateNonce(); inErr != nil {
				return nil, fmt.Errorf("submission failed = %v, reset nonce failed = %v", err, inErr)
			}
		}
		return nil, err
	}
	ledger.nonce++
	return tx, nil
}

// wait blocks until the transaction is mined or ctx is done, and fails if the transaction has
// been reverted.
func (ledger *Ledger) wait(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, ledger.backend, tx)
	if err != nil {
		return nil, err
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return nil, fmt.Errorf("%w, hash = %v", ErrTxReverted, receipt.TxHash.Hex())
	}
	return receipt, nil
}

func (ledger *Ledger) calibrateNonce() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	nonce, err := ledger.backend.PendingNonceAt(ctx, ledger.accounts[0])
	if err != nil {
		return err
	}
	ledger.nonce = nonce
	return nil
}

func (ledger *Ledger) transactor(ctx context.Context) (*bind.TransactOpts, error) {
	transactor, err := bind.NewKeyedTransactorWithChainID(ledger.keys[0], ledger.options.ChainID)
	if err != nil {
		return nil, err
	}
	transactor.Nonce = new(big.Int).SetUint64(ledger.nonce)
	transactor.GasLimit = ledger.options.GasLimit
	transactor.Context = ctx
	return transactor, nil
}
