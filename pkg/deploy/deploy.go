// Package deploy bootstraps a two-token swap: it deploys both tokens and the swap contract,
// mints the initial supply to the deployer, approves the swap and seeds its liquidity.
package deploy

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/big"

	"github.com/catalogfi/swapdeploy/pkg/util"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"go.uber.org/zap"
)

type Result struct {
	RunID         uint
	Signer        common.Address
	NativeBalance *big.Int

	TokenA Contract
	TokenB Contract
	Swap   Contract

	// Minted amounts in the smallest token unit
	AmountA *big.Int
	AmountB *big.Int

	// Liquidity token balance of the signer after seeding
	Liquidity *big.Int
}

type Deployer struct {
	options Options
	ledger  Ledger
	journal Journal
	out     io.Writer
	logger  *zap.Logger
}

// NewDeployer returns a Deployer running against the ledger. journal can be nil when runs should
// not be recorded.
func NewDeployer(options Options, ledger Ledger, journal Journal, out io.Writer, logger *zap.Logger) *Deployer {
	if out == nil {
		out = io.Discard
	}
	return &Deployer{
		options: options,
		ledger:  ledger,
		journal: journal,
		out:     out,
		logger:  logger.With(zap.String("network", options.Network)),
	}
}

// Run executes the deployment. Steps run one at a time and each waits for the confirmation of
// its transaction. The first failure stops the run and is returned as a *StepError, steps
// confirmed before it stay on the ledger.
func (deployer *Deployer) Run(ctx context.Context) (Result, error) {
	result := Result{}

	signer, err := deployer.ledger.Signer(ctx)
	if err != nil {
		return result, &StepError{Step: StepResolveSigner, Err: err}
	}
	result.Signer = signer
	deployer.print("Deploying contracts with the account:", signer.Hex())

	result.RunID = deployer.begin(signer)
	err = deployer.run(ctx, &result)
	deployer.finish(result.RunID, err)
	if err != nil {
		deployer.logger.Error("deployment failed", zap.Error(err))
		return result, err
	}
	deployer.logger.Info("deployment finished", zap.String("swap", result.Swap.Address.Hex()))
	return result, nil
}

func (deployer *Deployer) run(ctx context.Context, result *Result) error {
	var err error

	result.NativeBalance, err = deployer.ledger.NativeBalance(ctx, result.Signer)
	if err != nil {
		return &StepError{Step: StepQueryBalance, Err: err}
	}
	deployer.print("Deploying contracts with the account balance:", result.NativeBalance.String())

	// Deploy the tokens and the swap contract
	result.TokenA, err = deployer.deploy(ctx, result.RunID, StepDeployTokenA, deployer.options.TokenA)
	if err != nil {
		return err
	}
	result.TokenB, err = deployer.deploy(ctx, result.RunID, StepDeployTokenB, deployer.options.TokenB)
	if err != nil {
		return err
	}
	deployer.print("Token A address:", result.TokenA.Address.Hex())
	deployer.print("Token B address:", result.TokenB.Address.Hex())

	if err := validateTokens(result.TokenA.Address, result.TokenB.Address); err != nil {
		return &StepError{Step: StepDeploySwap, Err: err}
	}
	result.Swap, err = deployer.deploy(ctx, result.RunID, StepDeploySwap, deployer.options.Swap, result.TokenA.Address, result.TokenB.Address)
	if err != nil {
		return err
	}
	deployer.print("Token Swap address:", result.Swap.Address.Hex())

	// Mint the initial supply to the deployer
	result.AmountA, err = deployer.mint(ctx, result.RunID, StepMintTokenA, result.TokenA, result.Signer, deployer.options.AmountA)
	if err != nil {
		return err
	}
	result.AmountB, err = deployer.mint(ctx, result.RunID, StepMintTokenB, result.TokenB, result.Signer, deployer.options.AmountB)
	if err != nil {
		return err
	}

	// Let the swap contract pull both tokens from the deployer
	allowance := util.MaxAllowance()
	if err := deployer.transact(ctx, result.RunID, StepApproveTokenA, result.TokenA, "approve", result.Swap.Address, allowance); err != nil {
		return err
	}
	if err := deployer.transact(ctx, result.RunID, StepApproveTokenB, result.TokenB, "approve", result.Swap.Address, allowance); err != nil {
		return err
	}

	if err := deployer.transact(ctx, result.RunID, StepSeedLiquidity, result.Swap, "mint", result.AmountA, result.AmountB); err != nil {
		return err
	}

	result.Liquidity, err = deployer.balanceOf(ctx, result.Swap, result.Signer)
	if err != nil {
		return &StepError{Step: StepReport, Err: err}
	}
	deployer.print("Deployer's balance of liquidity tokens:", result.Liquidity.String())
	return nil
}

func (deployer *Deployer) deploy(ctx context.Context, runID uint, step Step, name string, args ...interface{}) (Contract, error) {
	ctx, cancel := deployer.stepContext(ctx)
	defer cancel()

	contract, err := deployer.ledger.Deploy(ctx, name, args...)
	if err != nil {
		return Contract{}, &StepError{Step: step, Err: fmt.Errorf("deploy %v: %w", name, err)}
	}
	deployer.logger.Info("contract deployed",
		zap.String("step", step.String()),
		zap.String("contract", name),
		zap.String("address", contract.Address.Hex()),
		zap.String("tx", contract.TxHash.Hex()))
	deployer.record(runID, step, contract.Name, contract.Address, contract.TxHash)
	return contract, nil
}

func (deployer *Deployer) mint(ctx context.Context, runID uint, step Step, token Contract, to common.Address, units string) (*big.Int, error) {
	decimals, err := deployer.decimals(ctx, token)
	if err != nil {
		return nil, &StepError{Step: step, Err: err}
	}
	amount, err := util.ParseUnits(units, decimals)
	if err != nil {
		return nil, &StepError{Step: step, Err: err}
	}
	if err := deployer.transact(ctx, runID, step, token, "mint", to, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

func (deployer *Deployer) transact(ctx context.Context, runID uint, step Step, contract Contract, method string, args ...interface{}) error {
	ctx, cancel := deployer.stepContext(ctx)
	defer cancel()

	receipt, err := deployer.ledger.Transact(ctx, contract, method, args...)
	if err != nil {
		return &StepError{Step: step, Err: fmt.Errorf("%v.%v: %w", contract.Name, method, err)}
	}
	deployer.logger.Info("transaction confirmed",
		zap.String("step", step.String()),
		zap.String("contract", contract.Name),
		zap.String("method", method),
		zap.String("tx", receipt.TxHash.Hex()))
	deployer.record(runID, step, contract.Name, contract.Address, receipt.TxHash)
	return nil
}

func (deployer *Deployer) decimals(ctx context.Context, token Contract) (uint8, error) {
	out, err := deployer.ledger.Call(ctx, token, "decimals")
	if err != nil {
		return 0, fmt.Errorf("%v.decimals: %w", token.Name, err)
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("%v.decimals: unexpected outputs %v", token.Name, out)
	}
	// Tokens declaring decimals() as uint256 unpack to a big integer.
	switch decimals := out[0].(type) {
	case uint8:
		return decimals, nil
	case *big.Int:
		if decimals.Sign() < 0 || decimals.Cmp(big.NewInt(math.MaxUint8)) > 0 {
			return 0, fmt.Errorf("%v.decimals: %v out of range", token.Name, decimals)
		}
		return uint8(decimals.Uint64()), nil
	default:
		return 0, fmt.Errorf("%v.decimals: unexpected output type %T", token.Name, out[0])
	}
}

func (deployer *Deployer) balanceOf(ctx context.Context, contract Contract, owner common.Address) (*big.Int, error) {
	out, err := deployer.ledger.Call(ctx, contract, "balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("%v.balanceOf: %w", contract.Name, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%v.balanceOf: unexpected outputs %v", contract.Name, out)
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%v.balanceOf: unexpected output type %T", contract.Name, out[0])
	}
	return balance, nil
}

func (deployer *Deployer) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if deployer.options.ConfirmTimeout > 0 {
		return context.WithTimeout(ctx, deployer.options.ConfirmTimeout)
	}
	return context.WithCancel(ctx)
}

func (deployer *Deployer) print(label, value string) {
	fmt.Fprintln(deployer.out, label, color.GreenString(value))
}

// Journal failures never abort a deployment, the ledger is the source of truth.
func (deployer *Deployer) begin(signer common.Address) uint {
	if deployer.journal == nil {
		return 0
	}
	id, err := deployer.journal.Begin(deployer.options.Network, signer)
	if err != nil {
		deployer.logger.Warn("failed to open journal run", zap.Error(err))
		return 0
	}
	return id
}

func (deployer *Deployer) record(runID uint, step Step, name string, addr common.Address, txHash common.Hash) {
	if deployer.journal == nil || runID == 0 {
		return
	}
	if err := deployer.journal.Record(runID, step.String(), name, addr, txHash); err != nil {
		deployer.logger.Warn("failed to record step", zap.String("step", step.String()), zap.Error(err))
	}
}

func (deployer *Deployer) finish(runID uint, err error) {
	if deployer.journal == nil || runID == 0 {
		return
	}
	if jErr := deployer.journal.Finish(runID, err); jErr != nil {
		deployer.logger.Warn("failed to close journal run", zap.Error(jErr))
	}
}

func validateTokens(tokenA, tokenB common.Address) error {
	if tokenA == (common.Address{}) || tokenB == (common.Address{}) || tokenA == tokenB {
		return fmt.Errorf("%w: %v, %v", ErrInvalidTokenAddresses, tokenA.Hex(), tokenB.Hex())
	}
	return nil
}
