package scenario

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"pairExchange/internal/amm"
	"pairExchange/internal/custody"
	"pairExchange/internal/exchange"
	"pairExchange/internal/model"
)

const (
	poolHex  = "0x00000000000000000000000000000000000000aa"
	aliceHex = "0x0000000000000000000000000000000000000001"
	bobHex   = "0x0000000000000000000000000000000000000002"
)

func newRunner(t *testing.T, opts Options) (*Runner, *exchange.Controller, *custody.Vault) {
	t.Helper()
	vault := custody.NewVault(common.HexToAddress(poolHex), common.HexToHash("0xff"), zap.NewNop())
	ctrl, err := exchange.New(exchange.Config{
		PoolID: poolHex,
		Asset0: common.HexToHash("0x01"),
		Asset1: common.HexToHash("0x02"),
		Fee:    amm.DefaultFee,
	}, vault, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return NewRunner(ctrl, vault, opts, zap.NewNop()), ctrl, vault
}

const referenceScript = `
{"op":"fund","identity":"` + aliceHex + `","asset":"asset0","amount":6000000000}
{"op":"fund","identity":"` + aliceHex + `","asset":"asset1","amount":10000000000}
{"op":"add_liquidity","identity":"` + aliceHex + `","amount0":5000000000,"amount1":10000000000}
# swap with a minimum one above the quote fails and leaves the deposit pending
{"op":"swap","identity":"` + aliceHex + `","asset":"asset0","amount":1000000000,"min_out":1662497916,"expect_error":"slippage exceeded"}
{"op":"swap","identity":"` + aliceHex + `","asset":"asset0","min_out":1662497915,"timestamp":1700000000}
{"op":"balance","identity":"` + aliceHex + `","asset":"asset1"}
{"op":"info"}
`

func TestRunReferenceScript(t *testing.T) {
	runner, ctrl, vault := newRunner(t, Options{HaltOnError: true})

	var results []model.OpResult
	summary, err := runner.Run(context.Background(), strings.NewReader(referenceScript), func(r model.OpResult) error {
		results = append(results, r)
		return nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary != (Summary{Total: 7, OK: 7}) {
		t.Fatalf("summary mismatch: %+v", summary)
	}

	var swapOut map[string]uint64
	if err := json.Unmarshal(results[4].Result, &swapOut); err != nil {
		t.Fatalf("decode swap result: %v", err)
	}
	if swapOut["amount_out"] != 1_662_497_915 {
		t.Fatalf("swap result mismatch: %v", swapOut)
	}

	var bal map[string]uint64
	if err := json.Unmarshal(results[5].Result, &bal); err != nil {
		t.Fatalf("decode balance result: %v", err)
	}
	if bal["balance"] != 1_662_497_915 {
		t.Fatalf("wallet balance mismatch: %v", bal)
	}

	want := amm.PoolInfo{Reserve0: 6_000_000_000, Reserve1: 8_337_502_085, LPSupply: 7_071_067_811}
	if ctrl.PoolInfo() != want {
		t.Fatalf("pool mismatch: %+v", ctrl.PoolInfo())
	}
	last := results[len(results)-1]
	if last.Reserve0 != want.Reserve0 || last.Reserve1 != want.Reserve1 || last.LPSupply != want.LPSupply {
		t.Fatalf("result state mismatch: %+v", last)
	}
	if vault.BalanceOf(common.HexToAddress(aliceHex), vault.ShareAsset()) != want.LPSupply {
		t.Fatalf("share balance mismatch")
	}
}

func TestRunHaltsOnError(t *testing.T) {
	runner, _, _ := newRunner(t, Options{HaltOnError: true})
	script := `{"op":"swap","identity":"` + aliceHex + `","asset":"asset0"}
{"op":"info"}`
	summary, err := runner.Run(context.Background(), strings.NewReader(script), nil)
	if err == nil {
		t.Fatalf("expected halt error")
	}
	if summary != (Summary{Total: 1, Failed: 1}) {
		t.Fatalf("summary mismatch: %+v", summary)
	}
}

func TestRunContinuesWithoutHalt(t *testing.T) {
	runner, _, _ := newRunner(t, Options{})
	script := `not json
{"op":"teleport"}
{"op":"info","expect_error":"insufficient liquidity"}
{"op":"reject","identity":"` + bobHex + `"}
{"op":"info"}`
	var results []model.OpResult
	summary, err := runner.Run(context.Background(), strings.NewReader(script), func(r model.OpResult) error {
		results = append(results, r)
		return nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary != (Summary{Total: 5, OK: 2, Failed: 3}) {
		t.Fatalf("summary mismatch: %+v", summary)
	}
	if !strings.Contains(results[1].Error, "unknown op") {
		t.Fatalf("unexpected error: %s", results[1].Error)
	}
	if !strings.Contains(results[2].Error, "expected error") {
		t.Fatalf("unexpected error: %s", results[2].Error)
	}
}

func TestRemoveLiquidityToRejectedRecipient(t *testing.T) {
	runner, ctrl, _ := newRunner(t, Options{HaltOnError: true})
	script := `{"op":"fund","identity":"` + aliceHex + `","asset":"asset0","amount":1000}
{"op":"fund","identity":"` + aliceHex + `","asset":"asset1","amount":1000}
{"op":"add_liquidity","identity":"` + aliceHex + `","amount0":400,"amount1":900}
{"op":"reject","identity":"` + bobHex + `"}
{"op":"remove_liquidity","identity":"` + aliceHex + `","recipient":"` + bobHex + `","shares":300,"expect_error":"transfer failed"}
{"op":"remove_liquidity","identity":"` + aliceHex + `","shares":300}`
	var results []model.OpResult
	if _, err := runner.Run(context.Background(), strings.NewReader(script), func(r model.OpResult) error {
		results = append(results, r)
		return nil
	}); err != nil {
		t.Fatalf("run: %v", err)
	}

	var out map[string]uint64
	if err := json.Unmarshal(results[5].Result, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["amount0"] != 200 || out["amount1"] != 450 {
		t.Fatalf("withdrawal mismatch: %v", out)
	}
	if ctrl.PoolInfo() != (amm.PoolInfo{Reserve0: 200, Reserve1: 450, LPSupply: 300}) {
		t.Fatalf("pool mismatch: %+v", ctrl.PoolInfo())
	}
}

func TestAddLiquidityFailedLegLeavesCustodyUnchanged(t *testing.T) {
	runner, ctrl, vault := newRunner(t, Options{HaltOnError: true})
	script := `{"op":"fund","identity":"` + aliceHex + `","asset":"asset0","amount":1000}
{"op":"reject","identity":"` + aliceHex + `"}
{"op":"add_liquidity","identity":"` + aliceHex + `","amount0":400,"amount1":900,"expect_error":"insufficient balance"}`
	if _, err := runner.Run(context.Background(), strings.NewReader(script), nil); err != nil {
		t.Fatalf("run: %v", err)
	}

	alice := common.HexToAddress(aliceHex)
	cfg := ctrl.Config()
	if got := vault.BalanceOf(alice, cfg.Asset0); got != 1000 {
		t.Fatalf("alice asset0 = %d, want 1000", got)
	}
	if got := vault.BalanceOf(vault.PoolIdentity(), cfg.Asset0); got != 0 {
		t.Fatalf("pool asset0 = %d, want 0", got)
	}
	pending, err := ctrl.DepositReceived(context.Background(), cfg.Asset0)
	if err != nil {
		t.Fatalf("deposit received: %v", err)
	}
	if pending != 0 {
		t.Fatalf("pending deposit %d after failed line", pending)
	}
}

func TestTimestampAppliesToOneOp(t *testing.T) {
	runner, ctrl, _ := newRunner(t, Options{})
	base := time.Unix(1_600_000_000, 0)
	ctrl.SetClock(func() time.Time { return base })

	if _, err := runner.Apply(context.Background(), model.ScriptOp{Op: "info", Timestamp: 1_700_000_000}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := ctrl.SetClock(time.Now)(); !got.Equal(base) {
		t.Fatalf("clock after op = %s, want %s", got, base)
	}
}
