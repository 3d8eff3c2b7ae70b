// Package state persists pool and custody state between simulation runs.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pairExchange/internal/amm"
	"pairExchange/internal/custody"
	"pairExchange/internal/exchange"
	"pairExchange/internal/jsonfile"
	"pairExchange/internal/storage/postgres"
)

// Snapshot is the persisted state of one pool and its custody.
type Snapshot struct {
	PoolID    string            `json:"pool_id"`
	Pool      amm.PoolInfo      `json:"pool"`
	Sequence  uint64            `json:"sequence"`
	Holdings  []custody.Holding `json:"holdings"`
	UpdatedAt string            `json:"updated_at"`
}

// Store loads and saves snapshots.
type Store interface {
	Load(ctx context.Context) (Snapshot, bool, error)
	Save(ctx context.Context, snap Snapshot) error
}

// Capture reads the current state of ctrl and vault.
func Capture(ctrl *exchange.Controller, vault *custody.Vault) Snapshot {
	return Snapshot{
		PoolID:    ctrl.Config().PoolID,
		Pool:      ctrl.PoolInfo(),
		Sequence:  ctrl.Sequence(),
		Holdings:  vault.Holdings(),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// Apply loads snap into vault and then into ctrl.
func Apply(ctx context.Context, snap Snapshot, ctrl *exchange.Controller, vault *custody.Vault) error {
	if snap.PoolID != "" && snap.PoolID != ctrl.Config().PoolID {
		return fmt.Errorf("snapshot is for pool %s, not %s", snap.PoolID, ctrl.Config().PoolID)
	}
	if err := vault.Load(snap.Holdings); err != nil {
		return fmt.Errorf("load holdings: %w", err)
	}
	if err := ctrl.Restore(ctx, snap.Pool, snap.Sequence); err != nil {
		return fmt.Errorf("restore pool: %w", err)
	}
	return nil
}

// FileStore keeps the snapshot in a local JSON file.
type FileStore struct {
	Path string
}

func (s *FileStore) Load(ctx context.Context) (Snapshot, bool, error) {
	if s == nil || s.Path == "" {
		return Snapshot{}, false, nil
	}
	var snap Snapshot
	ok, err := jsonfile.Read(s.Path, &snap)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, ok, nil
}

func (s *FileStore) Save(ctx context.Context, snap Snapshot) error {
	if s == nil || s.Path == "" {
		return nil
	}
	if err := jsonfile.Write(s.Path, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// DBStore keeps the snapshot in the pool_snapshots table.
type DBStore struct {
	Store  *postgres.Store
	PoolID string
}

func (s *DBStore) Load(ctx context.Context) (Snapshot, bool, error) {
	if s == nil || s.Store == nil {
		return Snapshot{}, false, nil
	}
	payload, ok, err := s.Store.LoadSnapshot(ctx, s.PoolID)
	if err != nil || !ok {
		return Snapshot{}, ok, err
	}
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("parse snapshot: %w", err)
	}
	return snap, true, nil
}

func (s *DBStore) Save(ctx context.Context, snap Snapshot) error {
	if s == nil || s.Store == nil {
		return nil
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.Store.SaveSnapshot(ctx, s.PoolID, snap.Sequence, payload)
}
