package utils

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/catalogfi/swapdeploy/pkg/util"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
)

// DefaultHDPath is the BIP-44 ethereum path, account i lives at DefaultHDPath/i.
const DefaultHDPath = "m/44'/60'/0'/0"

var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// Keys returns the signing keys of the network: the raw private keys first, followed by the
// accounts derived from the mnemonic.
func (network Network) Keys() ([]*ecdsa.PrivateKey, error) {
	keys := make([]*ecdsa.PrivateKey, 0, len(network.Accounts))
	for i, account := range network.Accounts {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(account), "0x"))
		if err != nil {
			return nil, fmt.Errorf("account[%d]: %w", i, err)
		}
		keys = append(keys, key)
	}

	if network.Mnemonic != "" {
		path := network.HDPath
		if path == "" {
			path = DefaultHDPath
		}
		count := network.HDCount
		if count == 0 {
			count = 1
		}
		derived, err := DeriveKeys(network.Mnemonic, path, count)
		if err != nil {
			return nil, err
		}
		keys = append(keys, derived...)
	}
	return keys, nil
}

// DeriveKeys derives count keys from the mnemonic, the i-th at basePath/i.
func DeriveKeys(mnemonic, basePath string, count int) ([]*ecdsa.PrivateKey, error) {
	base, err := accounts.ParseDerivationPath(basePath)
	if err != nil {
		return nil, err
	}
	keys := make([]*ecdsa.PrivateKey, count)
	for i := 0; i < count; i++ {
		path := make(accounts.DerivationPath, len(base), len(base)+1)
		copy(path, base)
		keys[i], err = DeriveKey(mnemonic, append(path, uint32(i)))
		if err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func DeriveKey(mnemonic string, path accounts.DerivationPath) (*ecdsa.PrivateKey, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed := bip39.NewSeed(mnemonic, "")
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, err
	}

	for _, idx := range path {
		key, err = key.Derive(idx)
		if err != nil {
			return nil, fmt.Errorf("failed to create child key: %v", err)
		}
	}
	btcKey, err := key.ECPrivKey()
	if err != nil {
		return nil, err
	}
	return util.BtcecToECDSA(btcKey)
}
