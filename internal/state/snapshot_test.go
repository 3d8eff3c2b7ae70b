package state

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"pairExchange/internal/amm"
	"pairExchange/internal/custody"
	"pairExchange/internal/exchange"
)

var (
	poolAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	alice    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	asset0   = common.HexToHash("0x01")
	asset1   = common.HexToHash("0x02")
	shareID  = common.HexToHash("0xff")
)

func newPool(t *testing.T) (*exchange.Controller, *custody.Vault) {
	t.Helper()
	vault := custody.NewVault(poolAddr, shareID, zap.NewNop())
	vault.SetCaller(alice)
	ctrl, err := exchange.New(exchange.Config{PoolID: poolAddr.Hex(), Asset0: asset0, Asset1: asset1, Fee: amm.DefaultFee}, vault, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return ctrl, vault
}

func TestFileStoreMissing(t *testing.T) {
	store := &FileStore{Path: filepath.Join(t.TempDir(), "missing.json")}
	_, ok, err := store.Load(context.Background())
	if err != nil || ok {
		t.Fatalf("expected no snapshot, got ok=%v err=%v", ok, err)
	}

	var disabled *FileStore
	if err := disabled.Save(context.Background(), Snapshot{}); err != nil {
		t.Fatalf("nil store save: %v", err)
	}
}

func TestFileStoreRejectsDirectory(t *testing.T) {
	store := &FileStore{Path: t.TempDir()}
	if _, _, err := store.Load(context.Background()); err == nil {
		t.Fatalf("expected error for directory path")
	}
}

func TestCaptureSaveLoadApply(t *testing.T) {
	ctx := context.Background()
	ctrl, vault := newPool(t)
	for _, asset := range []amm.AssetID{asset0, asset1} {
		if err := vault.Fund(alice, asset, 10_000); err != nil {
			t.Fatalf("fund: %v", err)
		}
	}
	if err := vault.ForceTransferToContract(alice, asset0, 400); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := vault.ForceTransferToContract(alice, asset1, 900); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := ctrl.AddLiquidity(ctx, alice); err != nil {
		t.Fatalf("add liquidity: %v", err)
	}

	path := filepath.Join(t.TempDir(), "state", "pool.json")
	store := &FileStore{Path: path}
	snap := Capture(ctrl, vault)
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("tmp file left behind: %v", err)
	}

	loaded, ok, err := store.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(loaded, snap) {
		t.Fatalf("snapshot mismatch: %+v != %+v", loaded, snap)
	}

	ctrl2, vault2 := newPool(t)
	if err := Apply(ctx, loaded, ctrl2, vault2); err != nil {
		t.Fatalf("apply: %v", err)
	}
	want := amm.PoolInfo{Reserve0: 400, Reserve1: 900, LPSupply: 600}
	if ctrl2.PoolInfo() != want || ctrl2.Sequence() != 1 {
		t.Fatalf("restored pool mismatch: %+v seq=%d", ctrl2.PoolInfo(), ctrl2.Sequence())
	}
	if vault2.BalanceOf(alice, shareID) != 600 {
		t.Fatalf("restored shares mismatch: %d", vault2.BalanceOf(alice, shareID))
	}
}

func TestApplyRejectsOtherPool(t *testing.T) {
	ctrl, vault := newPool(t)
	err := Apply(context.Background(), Snapshot{PoolID: "0xother"}, ctrl, vault)
	if err == nil {
		t.Fatalf("expected pool id mismatch error")
	}
}
