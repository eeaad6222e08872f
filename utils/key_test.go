package utils_test

import (
	"github.com/catalogfi/swapdeploy/utils"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Keys", func() {
	It("should derive the well-known development accounts", func() {
		keys, err := utils.DeriveKeys(utils.DevMnemonic, utils.DefaultHDPath, 2)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(keys).Should(HaveLen(2))
		Expect(crypto.PubkeyToAddress(keys[0].PublicKey)).Should(Equal(common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")))
		Expect(crypto.PubkeyToAddress(keys[1].PublicKey)).Should(Equal(common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")))
		Expect(crypto.FromECDSA(keys[0])).Should(Equal(common.FromHex("0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")))
	})

	It("should match the derivation of a single path", func() {
		path, err := accounts.ParseDerivationPath("m/44'/60'/0'/0/1")
		Expect(err).ShouldNot(HaveOccurred())
		key, err := utils.DeriveKey(utils.DevMnemonic, path)
		Expect(err).ShouldNot(HaveOccurred())

		keys, err := utils.DeriveKeys(utils.DevMnemonic, utils.DefaultHDPath, 2)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(key.D).Should(Equal(keys[1].D))
	})

	It("should reject invalid mnemonics and paths", func() {
		_, err := utils.DeriveKeys("test test test", utils.DefaultHDPath, 1)
		Expect(err).Should(MatchError(utils.ErrInvalidMnemonic))

		_, err = utils.DeriveKeys(utils.DevMnemonic, "m/not/a/path", 1)
		Expect(err).Should(HaveOccurred())
	})

	It("should put raw keys before the mnemonic accounts", func() {
		network := utils.Network{
			Accounts: []string{"5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a"},
			Mnemonic: utils.DevMnemonic,
			HDCount:  2,
		}
		keys, err := network.Keys()
		Expect(err).ShouldNot(HaveOccurred())
		Expect(keys).Should(HaveLen(3))
		Expect(crypto.PubkeyToAddress(keys[0].PublicKey)).Should(Equal(common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")))
		Expect(crypto.PubkeyToAddress(keys[1].PublicKey)).Should(Equal(common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")))
	})

	It("should return no keys for an empty network", func() {
		keys, err := utils.Network{}.Keys()
		Expect(err).ShouldNot(HaveOccurred())
		Expect(keys).Should(BeEmpty())

		_, err = utils.Network{Accounts: []string{"0xzz"}}.Keys()
		Expect(err).Should(HaveOccurred())
	})
})
