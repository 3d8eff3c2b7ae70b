// Package amm holds the value types and error taxonomy shared by the
// constant-product pool components.
package amm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// AssetID identifies a fungible asset held in custody. The zero value is the base asset.
type AssetID = common.Hash

// Identity identifies an account that can hold assets and liquidity shares.
type Identity = common.Address

// BaseAsset is the chain's native asset.
var BaseAsset = AssetID{}

// PoolInfo is a point-in-time view of the pool reserves and share supply.
type PoolInfo struct {
	Reserve0 uint64 `json:"reserve_0"`
	Reserve1 uint64 `json:"reserve_1"`
	LPSupply uint64 `json:"lp_supply"`
}

// Empty reports whether the pool holds nothing.
func (p PoolInfo) Empty() bool {
	return p.Reserve0 == 0 && p.Reserve1 == 0 && p.LPSupply == 0
}

// Funded reports whether every field of the pool is non-zero.
func (p PoolInfo) Funded() bool {
	return p.Reserve0 != 0 && p.Reserve1 != 0 && p.LPSupply != 0
}

// Fee is the swap fee expressed as the fraction of input kept for the trade,
// e.g. 997/1000 for a 0.3% fee.
type Fee struct {
	Numerator   uint64 `json:"numerator"`
	Denominator uint64 `json:"denominator"`
}

// DefaultFee charges 0.3%.
var DefaultFee = Fee{Numerator: 997, Denominator: 1000}

// Validate checks that the fee is a proper non-zero fraction.
func (f Fee) Validate() error {
	if f.Denominator == 0 {
		return fmt.Errorf("fee denominator must be greater than zero")
	}
	if f.Numerator == 0 {
		return fmt.Errorf("fee numerator must be greater than zero")
	}
	if f.Numerator > f.Denominator {
		return fmt.Errorf("fee numerator %d exceeds denominator %d", f.Numerator, f.Denominator)
	}
	return nil
}

func (f Fee) String() string {
	return fmt.Sprintf("%d/%d", f.Numerator, f.Denominator)
}

// Payout is one asset movement out of the pool.
type Payout struct {
	Asset     AssetID  `json:"asset"`
	Amount    uint64   `json:"amount"`
	Recipient Identity `json:"recipient"`
}
