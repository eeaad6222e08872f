package util

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func ValidateAddress(address string) error {
	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid evm address: %v", address)
	}
	return nil
}

func ParseAddress(address string) (common.Address, error) {
	if err := ValidateAddress(address); err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(address), nil
}

func BtcecToECDSA(key *btcec.PrivateKey) (*ecdsa.PrivateKey, error) {
	return crypto.ToECDSA(key.Serialize())
}
