package deploy

import (
	"errors"
	"fmt"
)

var (
	ErrNoAccounts            = errors.New("no account configured")
	ErrInvalidTokenAddresses = errors.New("token addresses must be non-zero and distinct")
)

type Step string

// Steps of a deployment, in execution order.
const (
	StepResolveSigner Step = "resolve-signer"
	StepQueryBalance  Step = "query-balance"
	StepDeployTokenA  Step = "deploy-token-a"
	StepDeployTokenB  Step = "deploy-token-b"
	StepDeploySwap    Step = "deploy-swap"
	StepMintTokenA    Step = "mint-token-a"
	StepMintTokenB    Step = "mint-token-b"
	StepApproveTokenA Step = "approve-token-a"
	StepApproveTokenB Step = "approve-token-b"
	StepSeedLiquidity Step = "seed-liquidity"
	StepReport        Step = "report"
)

func (step Step) String() string {
	return string(step)
}

// StepError is returned by Run and tells which step of the deployment failed.
type StepError struct {
	Step Step
	Err  error
}

func (err *StepError) Error() string {
	return fmt.Sprintf("step %v failed: %v", err.Step, err.Err)
}

func (err *StepError) Unwrap() error {
	return err.Err
}

// FailedStep extracts the failing step from an error returned by Run.
func FailedStep(err error) (Step, bool) {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step, true
	}
	return "", false
}
