// Package ledger holds the pool reserves and share supply and enforces the
// pool invariants on every update.
package ledger

import (
	"fmt"

	"pairExchange/internal/amm"
	"pairExchange/internal/amm/fixedpoint"
)

// Delta is a signed adjustment to one ledger field.
type Delta struct {
	Magnitude uint64
	Negative  bool
}

// Credit increases a field by amount.
func Credit(amount uint64) Delta { return Delta{Magnitude: amount} }

// Debit decreases a field by amount.
func Debit(amount uint64) Delta { return Delta{Magnitude: amount, Negative: true} }

// IsZero reports whether the delta leaves its field unchanged.
func (d Delta) IsZero() bool { return d.Magnitude == 0 }

func (d Delta) apply(field string, value uint64) (uint64, error) {
	if d.Negative {
		if d.Magnitude > value {
			return 0, fmt.Errorf("%w: %s %d would drop below zero by %d", amm.ErrInvariantViolation, field, value, d.Magnitude-value)
		}
		return value - d.Magnitude, nil
	}
	next, err := fixedpoint.Add(value, d.Magnitude)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return next, nil
}

// Update moves all three ledger fields at once.
type Update struct {
	Reserve0 Delta
	Reserve1 Delta
	Supply   Delta
}

// Ledger is the pool's reserve and share-supply state. It is not safe for
// concurrent use; the owner serializes access.
type Ledger struct {
	state amm.PoolInfo
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// Snapshot returns the current state.
func (l *Ledger) Snapshot() amm.PoolInfo {
	return l.state
}

// Preview returns the state Apply would produce without changing anything.
func (l *Ledger) Preview(u Update) (amm.PoolInfo, error) {
	return next(l.state, u)
}

// Apply commits u in full or returns an error and leaves the ledger untouched.
func (l *Ledger) Apply(u Update) (amm.PoolInfo, error) {
	state, err := next(l.state, u)
	if err != nil {
		return l.state, err
	}
	l.state = state
	return state, nil
}

// Restore replaces the state with a previously persisted one after validating it.
func (l *Ledger) Restore(state amm.PoolInfo) error {
	if err := checkShape(state); err != nil {
		return err
	}
	l.state = state
	return nil
}

func next(cur amm.PoolInfo, u Update) (amm.PoolInfo, error) {
	var (
		out amm.PoolInfo
		err error
	)
	if out.Reserve0, err = u.Reserve0.apply("reserve_0", cur.Reserve0); err != nil {
		return cur, err
	}
	if out.Reserve1, err = u.Reserve1.apply("reserve_1", cur.Reserve1); err != nil {
		return cur, err
	}
	if out.LPSupply, err = u.Supply.apply("lp_supply", cur.LPSupply); err != nil {
		return cur, err
	}
	if err := checkShape(out); err != nil {
		return cur, err
	}

	// Without a supply change the update is a trade and must not shrink k.
	if u.Supply.IsZero() && (!u.Reserve0.IsZero() || !u.Reserve1.IsZero()) {
		before := fixedpoint.Mul(cur.Reserve0, cur.Reserve1)
		after := fixedpoint.Mul(out.Reserve0, out.Reserve1)
		if after.Lt(before) {
			return cur, fmt.Errorf("%w: reserve product decreased from %s to %s", amm.ErrInvariantViolation, before.ToBig(), after.ToBig())
		}
	}
	return out, nil
}

func checkShape(state amm.PoolInfo) error {
	if state.Empty() || state.Funded() {
		return nil
	}
	return fmt.Errorf("%w: pool must be fully empty or fully funded (reserve_0=%d reserve_1=%d lp_supply=%d)",
		amm.ErrInvariantViolation, state.Reserve0, state.Reserve1, state.LPSupply)
}
