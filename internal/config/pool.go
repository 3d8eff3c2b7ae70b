package config

import (
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"pairExchange/internal/amm"
	"pairExchange/internal/model"
)

// PoolConfig is the deployment-time description of one pair pool.
type PoolConfig struct {
	PoolID     amm.Identity
	Asset0     amm.AssetID
	Asset1     amm.AssetID
	ShareAsset amm.AssetID
	Fee        amm.Fee
	Decimals0  uint8
	Decimals1  uint8
}

func setPoolDefaults(v *viper.Viper) {
	v.SetDefault("pool-id", "0x00000000000000000000000000000000000000aa")
	v.SetDefault("asset0", "0x01")
	v.SetDefault("asset1", "0x02")
	v.SetDefault("fee-numerator", amm.DefaultFee.Numerator)
	v.SetDefault("fee-denominator", amm.DefaultFee.Denominator)
	v.SetDefault("decimals0", 9)
	v.SetDefault("decimals1", 9)
}

// PoolFlags registers the pool flags on fs.
func PoolFlags(fs *pflag.FlagSet) {
	fs.String("pool-id", "", "pool identity (20-byte hex)")
	fs.String("asset0", "", "asset id of the first pool asset (hex)")
	fs.String("asset1", "", "asset id of the second pool asset (hex)")
	fs.String("share-asset", "", "asset id of liquidity shares (hex, default derived from pool-id)")
	fs.Uint64("fee-numerator", amm.DefaultFee.Numerator, "fraction of input kept after the fee, numerator")
	fs.Uint64("fee-denominator", amm.DefaultFee.Denominator, "fraction of input kept after the fee, denominator")
	fs.Uint8("decimals0", 9, "display decimals of asset0")
	fs.Uint8("decimals1", 9, "display decimals of asset1")
}

// LoadPool merges config file, environment variables, and flags into PoolConfig.
func LoadPool(cfgFile string, flags *pflag.FlagSet) (PoolConfig, error) {
	v, err := newViper(cfgFile, flags, nil)
	if err != nil {
		return PoolConfig{}, err
	}
	return poolFromViper(v)
}

func poolFromViper(v *viper.Viper) (PoolConfig, error) {
	poolID, err := ParseIdentity(v.GetString("pool-id"))
	if err != nil {
		return PoolConfig{}, fmt.Errorf("pool-id: %w", err)
	}
	asset0, err := ParseAssetID(v.GetString("asset0"))
	if err != nil {
		return PoolConfig{}, fmt.Errorf("asset0: %w", err)
	}
	asset1, err := ParseAssetID(v.GetString("asset1"))
	if err != nil {
		return PoolConfig{}, fmt.Errorf("asset1: %w", err)
	}
	shareAsset := DefaultShareAsset(poolID)
	if raw := v.GetString("share-asset"); raw != "" {
		if shareAsset, err = ParseAssetID(raw); err != nil {
			return PoolConfig{}, fmt.Errorf("share-asset: %w", err)
		}
	}

	decimals0, err := decimals(v, "decimals0")
	if err != nil {
		return PoolConfig{}, err
	}
	decimals1, err := decimals(v, "decimals1")
	if err != nil {
		return PoolConfig{}, err
	}

	cfg := PoolConfig{
		PoolID:     poolID,
		Asset0:     asset0,
		Asset1:     asset1,
		ShareAsset: shareAsset,
		Fee: amm.Fee{
			Numerator:   v.GetUint64("fee-numerator"),
			Denominator: v.GetUint64("fee-denominator"),
		},
		Decimals0: decimals0,
		Decimals1: decimals1,
	}
	if err := cfg.Validate(); err != nil {
		return PoolConfig{}, err
	}
	return cfg, nil
}

func decimals(v *viper.Viper, key string) (uint8, error) {
	n := v.GetInt64(key)
	if n < 0 || n > math.MaxUint8 {
		return 0, fmt.Errorf("%s must be between 0 and %d, got %s", key, math.MaxUint8, v.GetString(key))
	}
	return uint8(n), nil
}

// Validate checks that the three assets are distinct and the fee is well formed.
func (c PoolConfig) Validate() error {
	if c.Asset0 == c.Asset1 {
		return fmt.Errorf("asset0 and asset1 must differ")
	}
	if c.ShareAsset == c.Asset0 || c.ShareAsset == c.Asset1 {
		return fmt.Errorf("share-asset must differ from the pool assets")
	}
	if err := c.Fee.Validate(); err != nil {
		return fmt.Errorf("fee: %w", err)
	}
	return nil
}

// Model returns the storage description of the pool.
func (c PoolConfig) Model() model.Pool {
	return model.Pool{
		PoolID:         c.PoolID.Hex(),
		Asset0:         c.Asset0.Hex(),
		Asset1:         c.Asset1.Hex(),
		ShareAsset:     c.ShareAsset.Hex(),
		FeeNumerator:   c.Fee.Numerator,
		FeeDenominator: c.Fee.Denominator,
	}
}

// DefaultShareAsset derives the share asset id from the pool identity.
func DefaultShareAsset(poolID common.Address) amm.AssetID {
	return crypto.Keccak256Hash(poolID.Bytes(), []byte("lp-share"))
}
