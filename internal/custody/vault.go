// Package custody simulates the asset ledger that holds pool funds and
// liquidity shares on behalf of identities.
package custody

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"pairExchange/internal/amm"
	"pairExchange/internal/amm/fixedpoint"
)

// ErrInsufficientBalance is returned when an identity cannot cover a debit.
var ErrInsufficientBalance = errors.New("insufficient balance")

type callerKey struct{}

// WithCaller returns a context carrying the calling identity.
func WithCaller(ctx context.Context, id amm.Identity) context.Context {
	return context.WithValue(ctx, callerKey{}, id)
}

// Holding is one non-zero balance, used to persist and restore the vault.
type Holding struct {
	Identity amm.Identity `json:"identity"`
	Asset    amm.AssetID  `json:"asset"`
	Amount   uint64       `json:"amount"`
}

// Vault is an in-memory multi-asset ledger. The pool's own funds are held
// under the pool identity, and liquidity shares are balances of the share asset.
type Vault struct {
	mu         sync.Mutex
	pool       amm.Identity
	shareAsset amm.AssetID
	caller     amm.Identity
	balances   map[amm.Identity]map[amm.AssetID]uint64
	rejected   map[amm.Identity]bool
	logger     *zap.Logger
}

func NewVault(pool amm.Identity, shareAsset amm.AssetID, logger *zap.Logger) *Vault {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Vault{
		pool:       pool,
		shareAsset: shareAsset,
		balances:   make(map[amm.Identity]map[amm.AssetID]uint64),
		rejected:   make(map[amm.Identity]bool),
		logger:     logger,
	}
}

// PoolIdentity returns the identity that holds pool funds.
func (v *Vault) PoolIdentity() amm.Identity { return v.pool }

// ShareAsset returns the asset id of liquidity shares.
func (v *Vault) ShareAsset() amm.AssetID { return v.shareAsset }

// SetCaller sets the identity Caller reports when the context carries none.
func (v *Vault) SetCaller(id amm.Identity) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.caller = id
}

// Caller returns the identity attached with WithCaller, or the default caller.
func (v *Vault) Caller(ctx context.Context) amm.Identity {
	if id, ok := ctx.Value(callerKey{}).(amm.Identity); ok {
		return id
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.caller
}

// Reject makes transfers to id fail until called again with false.
func (v *Vault) Reject(id amm.Identity, reject bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if reject {
		v.rejected[id] = true
		return
	}
	delete(v.rejected, id)
}

// Fund mints amount of asset to id out of thin air.
func (v *Vault) Fund(id amm.Identity, asset amm.AssetID, amount uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.credit(id, asset, amount)
}

// ForceTransferToContract moves amount of asset from id into the pool
// without notifying it.
func (v *Vault) ForceTransferToContract(from amm.Identity, asset amm.AssetID, amount uint64) error {
	return v.ForceDeposit(from, Deposit{Asset: asset, Amount: amount})
}

// Deposit is one asset amount moved into the pool.
type Deposit struct {
	Asset  amm.AssetID
	Amount uint64
}

// ForceDeposit moves every deposit from id into the pool without notifying
// it, or moves nothing.
func (v *Vault) ForceDeposit(from amm.Identity, deposits ...Deposit) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	total := make(map[amm.AssetID]uint64)
	for _, d := range deposits {
		sum, err := fixedpoint.Add(total[d.Asset], d.Amount)
		if err != nil {
			return fmt.Errorf("deposit %s: %w", d.Asset.Hex(), err)
		}
		total[d.Asset] = sum
	}
	for asset, amount := range total {
		if err := v.checkDebit(from, asset, amount); err != nil {
			return err
		}
		if _, err := fixedpoint.Add(v.get(v.pool, asset), amount); err != nil {
			return fmt.Errorf("credit pool: %w", err)
		}
	}

	for _, d := range deposits {
		v.set(from, d.Asset, v.get(from, d.Asset)-d.Amount)
		v.set(v.pool, d.Asset, v.get(v.pool, d.Asset)+d.Amount)
		v.logger.Debug("deposit to pool",
			zap.String("from", from.Hex()),
			zap.String("asset", d.Asset.Hex()),
			zap.Uint64("amount", d.Amount),
		)
	}
	return nil
}

// BalanceOf returns the balance of asset held by id.
func (v *Vault) BalanceOf(id amm.Identity, asset amm.AssetID) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.get(id, asset)
}

// Balance returns the pool's balance of asset.
func (v *Vault) Balance(ctx context.Context, asset amm.AssetID) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return v.BalanceOf(v.pool, asset), nil
}

// Transfer pays every payout out of the pool, or none of them.
func (v *Vault) Transfer(ctx context.Context, payouts ...amm.Payout) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	owed := make(map[amm.AssetID]uint64)
	for _, p := range payouts {
		if v.rejected[p.Recipient] {
			return fmt.Errorf("%w: recipient %s rejects asset %s", amm.ErrTransferFailed, p.Recipient.Hex(), p.Asset.Hex())
		}
		total, err := fixedpoint.Add(owed[p.Asset], p.Amount)
		if err != nil {
			return fmt.Errorf("%w: %v", amm.ErrTransferFailed, err)
		}
		owed[p.Asset] = total
	}
	for asset, total := range owed {
		if have := v.get(v.pool, asset); have < total {
			return fmt.Errorf("%w: pool holds %d of %s, owes %d", amm.ErrTransferFailed, have, asset.Hex(), total)
		}
	}

	// Apply against a scratch copy so a recipient overflow leaves nothing half paid.
	scratch := make(map[amm.Identity]map[amm.AssetID]uint64)
	read := func(id amm.Identity, asset amm.AssetID) uint64 {
		if m, ok := scratch[id]; ok {
			if bal, ok := m[asset]; ok {
				return bal
			}
		}
		return v.get(id, asset)
	}
	write := func(id amm.Identity, asset amm.AssetID, amount uint64) {
		if scratch[id] == nil {
			scratch[id] = make(map[amm.AssetID]uint64)
		}
		scratch[id][asset] = amount
	}
	for _, p := range payouts {
		write(v.pool, p.Asset, read(v.pool, p.Asset)-p.Amount)
		next, err := fixedpoint.Add(read(p.Recipient, p.Asset), p.Amount)
		if err != nil {
			return fmt.Errorf("%w: %v", amm.ErrTransferFailed, err)
		}
		write(p.Recipient, p.Asset, next)
	}
	for id, assets := range scratch {
		for asset, amount := range assets {
			v.set(id, asset, amount)
		}
	}

	for _, p := range payouts {
		v.logger.Debug("pool payout",
			zap.String("recipient", p.Recipient.Hex()),
			zap.String("asset", p.Asset.Hex()),
			zap.Uint64("amount", p.Amount),
		)
	}
	return nil
}

// MintShares credits n liquidity shares to to.
func (v *Vault) MintShares(ctx context.Context, to amm.Identity, n uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.rejected[to] {
		return fmt.Errorf("%w: recipient %s rejects shares", amm.ErrTransferFailed, to.Hex())
	}
	if err := v.credit(to, v.shareAsset, n); err != nil {
		return fmt.Errorf("%w: %v", amm.ErrTransferFailed, err)
	}
	return nil
}

// RestoreShares re-credits n shares burned from id by an operation that
// failed afterwards. It ignores Reject, which only gates new payouts.
func (v *Vault) RestoreShares(ctx context.Context, id amm.Identity, n uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.credit(id, v.shareAsset, n); err != nil {
		return fmt.Errorf("%w: %v", amm.ErrArithmeticOverflow, err)
	}
	return nil
}

// BurnShares debits n liquidity shares from from.
func (v *Vault) BurnShares(ctx context.Context, from amm.Identity, n uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkDebit(from, v.shareAsset, n); err != nil {
		return fmt.Errorf("%w: %v", amm.ErrInsufficientShares, err)
	}
	v.set(from, v.shareAsset, v.get(from, v.shareAsset)-n)
	return nil
}

// Holdings returns every non-zero balance in a stable order.
func (v *Vault) Holdings() []Holding {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]Holding, 0, len(v.balances))
	for id, assets := range v.balances {
		for asset, amount := range assets {
			out = append(out, Holding{Identity: id, Asset: asset, Amount: amount})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Identity != out[j].Identity {
			return out[i].Identity.Hex() < out[j].Identity.Hex()
		}
		return out[i].Asset.Hex() < out[j].Asset.Hex()
	})
	return out
}

// Load replaces every balance with holdings.
func (v *Vault) Load(holdings []Holding) error {
	balances := make(map[amm.Identity]map[amm.AssetID]uint64)
	for _, h := range holdings {
		if balances[h.Identity] == nil {
			balances[h.Identity] = make(map[amm.AssetID]uint64)
		}
		total, err := fixedpoint.Add(balances[h.Identity][h.Asset], h.Amount)
		if err != nil {
			return fmt.Errorf("load holding %s/%s: %w", h.Identity.Hex(), h.Asset.Hex(), err)
		}
		if total != 0 {
			balances[h.Identity][h.Asset] = total
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.balances = balances
	return nil
}

func (v *Vault) checkDebit(id amm.Identity, asset amm.AssetID, amount uint64) error {
	if have := v.get(id, asset); have < amount {
		return fmt.Errorf("%w: %s holds %d of %s, needs %d", ErrInsufficientBalance, id.Hex(), have, asset.Hex(), amount)
	}
	return nil
}

func (v *Vault) credit(id amm.Identity, asset amm.AssetID, amount uint64) error {
	next, err := fixedpoint.Add(v.get(id, asset), amount)
	if err != nil {
		return err
	}
	v.set(id, asset, next)
	return nil
}

func (v *Vault) get(id amm.Identity, asset amm.AssetID) uint64 {
	return v.balances[id][asset]
}

func (v *Vault) set(id amm.Identity, asset amm.AssetID, amount uint64) {
	assets := v.balances[id]
	if assets == nil {
		if amount == 0 {
			return
		}
		assets = make(map[amm.AssetID]uint64)
		v.balances[id] = assets
	}
	if amount == 0 {
		delete(assets, asset)
		return
	}
	assets[asset] = amount
}
