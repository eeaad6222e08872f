package deploy_test

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/catalogfi/swapdeploy/pkg/deploy"
	"github.com/catalogfi/swapdeploy/pkg/util"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func units(value string, decimals uint8) *big.Int {
	amount, err := util.ParseUnits(value, decimals)
	Expect(err).To(BeNil())
	return amount
}

var _ = Describe("Deployer", func() {
	var (
		options deploy.Options
		ledger  *mockLedger
		journal *mockJournal
		out     *bytes.Buffer
	)

	BeforeEach(func() {
		options = deploy.DefaultOptions()
		ledger = newMockLedger(options.Swap)
		journal = newMockJournal()
		out = new(bytes.Buffer)
	})

	Context("when the network is responsive", func() {
		It("should deploy, wire and seed the swap", func(ctx context.Context) {
			deployer := deploy.NewDeployer(options, ledger, journal, out, zap.NewNop())
			result, err := deployer.Run(ctx)
			Expect(err).To(BeNil())

			By("Three distinct confirmed contracts")
			deployments := ledger.Calls("deploy")
			Expect(deployments).Should(HaveLen(3))
			Expect(deployments[0].Contract).Should(Equal("TokenA"))
			Expect(deployments[1].Contract).Should(Equal("TokenB"))
			Expect(deployments[2].Contract).Should(Equal("TokenSwap"))
			Expect(result.TokenA.Address).ShouldNot(Equal(common.Address{}))
			Expect(result.TokenB.Address).ShouldNot(Equal(common.Address{}))
			Expect(result.TokenA.Address).ShouldNot(Equal(result.TokenB.Address))
			Expect(result.Swap.Address).ShouldNot(Equal(result.TokenA.Address))
			Expect(result.Swap.Address).ShouldNot(Equal(result.TokenB.Address))

			By("Swap constructed with the token addresses in order")
			Expect(deployments[0].Args).Should(BeEmpty())
			Expect(deployments[1].Args).Should(BeEmpty())
			Expect(deployments[2].Args).Should(Equal([]interface{}{result.TokenA.Address, result.TokenB.Address}))

			By("Initial supply minted to the signer")
			Expect(ledger.Balance(result.TokenA.Address, result.Signer).Cmp(units("1000", 18))).Should(Equal(0))
			Expect(ledger.Balance(result.TokenB.Address, result.Signer).Cmp(units("2000", 18))).Should(Equal(0))
			Expect(result.AmountA.Cmp(units("1000", 18))).Should(Equal(0))
			Expect(result.AmountB.Cmp(units("2000", 18))).Should(Equal(0))

			By("Unlimited approvals for the swap contract")
			txs := ledger.Calls("transact")
			Expect(txs).Should(HaveLen(5))
			for i, token := range []common.Address{result.TokenA.Address, result.TokenB.Address} {
				approval := txs[2+i]
				Expect(approval.Method).Should(Equal("approve"))
				Expect(approval.Address).Should(Equal(token))
				Expect(approval.Args[0]).Should(Equal(result.Swap.Address))
				Expect(approval.Args[1].(*big.Int).Cmp(util.MaxAllowance())).Should(Equal(0))
			}

			By("Liquidity seeded with the minted amounts")
			seed := txs[4]
			Expect(seed.Contract).Should(Equal("TokenSwap"))
			Expect(seed.Method).Should(Equal("mint"))
			Expect(seed.Args).Should(Equal([]interface{}{result.AmountA, result.AmountB}))
			Expect(result.Liquidity.Sign()).Should(Equal(1))

			By("Progress reported on the output")
			Expect(out.String()).Should(ContainSubstring("Deploying contracts with the account: " + result.Signer.Hex()))
			Expect(out.String()).Should(ContainSubstring("Token A address: " + result.TokenA.Address.Hex()))
			Expect(out.String()).Should(ContainSubstring("Token B address: " + result.TokenB.Address.Hex()))
			Expect(out.String()).Should(ContainSubstring("Token Swap address: " + result.Swap.Address.Hex()))
			Expect(out.String()).Should(ContainSubstring("Deployer's balance of liquidity tokens: " + result.Liquidity.String()))
		})

		It("should scale the amounts by each token's decimals", func(ctx context.Context) {
			ledger.decimals["TokenB"] = 6
			options = options.WithAmounts("1.5", "2000")
			deployer := deploy.NewDeployer(options, ledger, nil, nil, zap.NewNop())
			result, err := deployer.Run(ctx)
			Expect(err).To(BeNil())
			Expect(result.AmountA.Cmp(units("1.5", 18))).Should(Equal(0))
			Expect(result.AmountB.Cmp(big.NewInt(2_000_000_000))).Should(Equal(0))
			Expect(ledger.Balance(result.TokenB.Address, result.Signer).Cmp(big.NewInt(2_000_000_000))).Should(Equal(0))
		})

		It("should accept decimals declared as uint256", func(ctx context.Context) {
			ledger.wide["TokenA"] = big.NewInt(6)
			deployer := deploy.NewDeployer(options, ledger, nil, nil, zap.NewNop())
			result, err := deployer.Run(ctx)
			Expect(err).To(BeNil())
			Expect(result.AmountA.Cmp(big.NewInt(1_000_000_000))).Should(Equal(0))
			Expect(result.AmountB.Cmp(units("2000", 18))).Should(Equal(0))
		})

		It("should reject decimals which do not fit a uint8", func(ctx context.Context) {
			ledger.wide["TokenB"] = big.NewInt(256)
			deployer := deploy.NewDeployer(options, ledger, nil, nil, zap.NewNop())
			_, err := deployer.Run(ctx)
			Expect(err).Should(MatchError(ContainSubstring("out of range")))
			step, _ := deploy.FailedStep(err)
			Expect(step).Should(Equal(deploy.StepMintTokenB))
		})

		It("should use the configured contract names", func(ctx context.Context) {
			options = options.WithContracts("Foo", "Bar", "FooBarPool")
			ledger = newMockLedger("FooBarPool")
			deployer := deploy.NewDeployer(options, ledger, nil, nil, zap.NewNop())
			result, err := deployer.Run(ctx)
			Expect(err).To(BeNil())
			Expect(result.TokenA.Name).Should(Equal("Foo"))
			Expect(result.TokenB.Name).Should(Equal("Bar"))
			Expect(result.Swap.Name).Should(Equal("FooBarPool"))
		})

		It("should record every confirmed transaction in the journal", func(ctx context.Context) {
			deployer := deploy.NewDeployer(options, ledger, journal, nil, zap.NewNop())
			result, err := deployer.Run(ctx)
			Expect(err).To(BeNil())
			Expect(result.RunID).Should(Equal(uint(1)))
			Expect(journal.runs).Should(Equal([]common.Address{result.Signer}))

			steps := make([]string, len(journal.entries))
			for i, entry := range journal.entries {
				steps[i] = entry.Step
			}
			Expect(steps).Should(Equal([]string{
				"deploy-token-a", "deploy-token-b", "deploy-swap",
				"mint-token-a", "mint-token-b",
				"approve-token-a", "approve-token-b",
				"seed-liquidity",
			}))
			Expect(journal.entries[2].Address).Should(Equal(result.Swap.Address))
			Expect(journal.finished).Should(HaveKeyWithValue(uint(1), BeNil()))
		})

		It("should not abort when the journal is unavailable", func(ctx context.Context) {
			journal.fail = true
			deployer := deploy.NewDeployer(options, ledger, journal, nil, zap.NewNop())
			result, err := deployer.Run(ctx)
			Expect(err).To(BeNil())
			Expect(result.RunID).Should(Equal(uint(0)))
			Expect(result.Liquidity.Sign()).Should(Equal(1))
		})
	})

	Context("when a step fails", func() {
		DescribeTable("should stop at the failing step",
			func(failOn string, step deploy.Step, executed int) {
				ledger.failOn = failOn
				deployer := deploy.NewDeployer(options, ledger, journal, out, zap.NewNop())
				_, err := deployer.Run(context.Background())
				Expect(err).ShouldNot(BeNil())
				Expect(errors.Is(err, errMock)).Should(BeTrue())

				failed, ok := deploy.FailedStep(err)
				Expect(ok).Should(BeTrue())
				Expect(failed).Should(Equal(step))

				By("No later step has been executed")
				Expect(ledger.Calls("deploy")).Should(HaveLen(min(executed, 3)))
				Expect(len(ledger.Calls("transact"))).Should(Equal(max(executed-3, 0)))
				Expect(out.String()).ShouldNot(ContainSubstring("liquidity tokens"))
			},
			Entry("signer", "signer", deploy.StepResolveSigner, 0),
			Entry("native balance", "balance", deploy.StepQueryBalance, 0),
			Entry("token a deployment", "deploy:TokenA", deploy.StepDeployTokenA, 0),
			Entry("token b deployment", "deploy:TokenB", deploy.StepDeployTokenB, 1),
			Entry("swap deployment", "deploy:TokenSwap", deploy.StepDeploySwap, 2),
			Entry("token a decimals", "TokenA.decimals", deploy.StepMintTokenA, 3),
			Entry("token a mint", "TokenA.mint", deploy.StepMintTokenA, 3),
			Entry("token b mint", "TokenB.mint", deploy.StepMintTokenB, 4),
			Entry("token a approval", "TokenA.approve", deploy.StepApproveTokenA, 5),
			Entry("token b approval", "TokenB.approve", deploy.StepApproveTokenB, 6),
			Entry("liquidity seeding", "TokenSwap.mint", deploy.StepSeedLiquidity, 7),
			Entry("liquidity report", "TokenSwap.balanceOf", deploy.StepReport, 8),
		)

		It("should close the journal run with the error", func(ctx context.Context) {
			ledger.failOn = "TokenB.mint"
			deployer := deploy.NewDeployer(options, ledger, journal, nil, zap.NewNop())
			_, err := deployer.Run(ctx)
			Expect(err).ShouldNot(BeNil())
			Expect(journal.entries).Should(HaveLen(4))
			Expect(journal.finished[1]).Should(MatchError(err))
		})

		It("should fail when no account is configured", func(ctx context.Context) {
			ledger.signer = nil
			deployer := deploy.NewDeployer(options, ledger, journal, nil, zap.NewNop())
			_, err := deployer.Run(ctx)
			Expect(errors.Is(err, deploy.ErrNoAccounts)).Should(BeTrue())
			Expect(ledger.Calls("")).Should(BeEmpty())
			Expect(journal.runs).Should(BeEmpty())
		})

		It("should not construct the swap with duplicated token addresses", func(ctx context.Context) {
			ledger.sameAddr = true
			deployer := deploy.NewDeployer(options, ledger, nil, nil, zap.NewNop())
			_, err := deployer.Run(ctx)
			Expect(errors.Is(err, deploy.ErrInvalidTokenAddresses)).Should(BeTrue())
			step, _ := deploy.FailedStep(err)
			Expect(step).Should(Equal(deploy.StepDeploySwap))
			Expect(ledger.Calls("deploy")).Should(HaveLen(2))
		})

		It("should reject amounts the token cannot represent", func(ctx context.Context) {
			ledger.decimals["TokenA"] = 0
			options = options.WithAmounts("0.5", "2000")
			deployer := deploy.NewDeployer(options, ledger, nil, nil, zap.NewNop())
			_, err := deployer.Run(ctx)
			step, ok := deploy.FailedStep(err)
			Expect(ok).Should(BeTrue())
			Expect(step).Should(Equal(deploy.StepMintTokenA))
			Expect(ledger.Calls("transact")).Should(BeEmpty())
		})

		It("should give up on a step once the confirmation timeout passes", func(ctx context.Context) {
			ledger.block = "deploy:TokenB"
			options = options.WithConfirmTimeout(50 * time.Millisecond)
			deployer := deploy.NewDeployer(options, ledger, nil, nil, zap.NewNop())
			_, err := deployer.Run(ctx)
			Expect(errors.Is(err, context.DeadlineExceeded)).Should(BeTrue())
			step, _ := deploy.FailedStep(err)
			Expect(step).Should(Equal(deploy.StepDeployTokenB))
		})
	})
})

var _ = Describe("Steps", func() {
	It("should describe the failing step", func() {
		err := &deploy.StepError{Step: deploy.StepSeedLiquidity, Err: errMock}
		Expect(err.Error()).Should(Equal("step seed-liquidity failed: mock ledger failure"))
		_, ok := deploy.FailedStep(errMock)
		Expect(ok).Should(BeFalse())
	})
})
