package util

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// MaxAllowance returns 2^256 - 1, the largest allowance an ERC-20 token accepts.
func MaxAllowance() *big.Int {
	data := make([]byte, 32)
	for i := 0; i < 32; i++ {
		data[i] = 0xff
	}
	return big.NewInt(0).SetBytes(data)
}

// ParseUnits converts a decimal string of whole token units into the token's smallest unit.
// "1.5" with 18 decimals gives 1500000000000000000.
func ParseUnits(value string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %q", value)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("amount %q has more than %d decimals", value, decimals)
	}
	return scaled.BigInt(), nil
}

// FormatUnits renders an amount in the smallest unit as a decimal string of whole units.
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}
