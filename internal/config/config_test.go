package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"

	"pairExchange/internal/amm"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadPoolDefaults(t *testing.T) {
	chdirTemp(t)
	cfg, err := LoadPool("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Fee != amm.DefaultFee {
		t.Fatalf("fee mismatch: %s", cfg.Fee)
	}
	if cfg.Asset0 != common.HexToHash("0x01") || cfg.Asset1 != common.HexToHash("0x02") {
		t.Fatalf("assets mismatch: %s %s", cfg.Asset0.Hex(), cfg.Asset1.Hex())
	}
	if cfg.ShareAsset != DefaultShareAsset(cfg.PoolID) {
		t.Fatalf("share asset not derived from pool id")
	}
	if cfg.Decimals0 != 9 || cfg.Decimals1 != 9 {
		t.Fatalf("decimals mismatch: %d %d", cfg.Decimals0, cfg.Decimals1)
	}
}

func TestLoadPoolPrecedence(t *testing.T) {
	chdirTemp(t)
	file := filepath.Join(t.TempDir(), "pool.yaml")
	if err := os.WriteFile(file, []byte("fee-numerator: 990\nasset0: \"0x0a\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("EXCHANGE_FEE_DENOMINATOR", "995")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	PoolFlags(fs)
	if err := fs.Parse([]string{"--fee-denominator=1000"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadPool(file, fs)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Fee != (amm.Fee{Numerator: 990, Denominator: 1000}) {
		t.Fatalf("fee mismatch: %s", cfg.Fee)
	}
	if cfg.Asset0 != common.HexToHash("0x0a") {
		t.Fatalf("asset0 mismatch: %s", cfg.Asset0.Hex())
	}
}

func TestLoadPoolRejectsInvalid(t *testing.T) {
	chdirTemp(t)
	t.Setenv("EXCHANGE_ASSET1", "0x01")
	if _, err := LoadPool("", nil); err == nil {
		t.Fatalf("expected error for identical assets")
	}
}

func TestLoadPoolRejectsOutOfRangeDecimals(t *testing.T) {
	for _, raw := range []string{"256", "-1"} {
		t.Run(raw, func(t *testing.T) {
			chdirTemp(t)
			t.Setenv("EXCHANGE_DECIMALS0", raw)
			if _, err := LoadPool("", nil); err == nil {
				t.Fatalf("expected error for decimals0=%s", raw)
			}
		})
	}

	chdirTemp(t)
	t.Setenv("EXCHANGE_DECIMALS1", "255")
	cfg, err := LoadPool("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Decimals1 != 255 {
		t.Fatalf("decimals1 mismatch: %d", cfg.Decimals1)
	}
}

func TestLoadQuoteRequiresOneAmount(t *testing.T) {
	chdirTemp(t)
	if _, err := LoadQuote("", nil); err == nil {
		t.Fatalf("expected error without amounts")
	}
	t.Setenv("EXCHANGE_AMOUNT_IN", "1000")
	cfg, err := LoadQuote("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AmountIn != 1000 || cfg.AssetIn != 0 {
		t.Fatalf("quote config mismatch: %+v", cfg)
	}
}

func TestParseAssetID(t *testing.T) {
	cases := []struct {
		in      string
		want    amm.AssetID
		wantErr bool
	}{
		{"0x01", common.HexToHash("0x01"), false},
		{"0x1", common.HexToHash("0x01"), false},
		{"ff", common.HexToHash("0xff"), false},
		{"0x" + "11" + common.HexToHash("0x01").Hex()[2:], amm.AssetID{}, true},
		{"0xzz", amm.AssetID{}, true},
	}
	for _, tc := range cases {
		got, err := ParseAssetID(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseAssetID(%q) err=%v", tc.in, err)
		}
		if !tc.wantErr && got != tc.want {
			t.Fatalf("ParseAssetID(%q) = %s", tc.in, got.Hex())
		}
	}
}

func TestParseIdentity(t *testing.T) {
	if _, err := ParseIdentity("0x1234"); err == nil {
		t.Fatalf("expected error for short identity")
	}
	id, err := ParseIdentity("0x00000000000000000000000000000000000000aa")
	if err != nil || id != common.HexToAddress("0xaa") {
		t.Fatalf("identity mismatch: %s err=%v", id.Hex(), err)
	}
}

func TestParseTimestampAndWindow(t *testing.T) {
	ts, err := ParseTimestamp("2024-01-01T00:00:00Z")
	if err != nil || ts != 1_704_067_200 {
		t.Fatalf("timestamp mismatch: %d err=%v", ts, err)
	}
	if ts, err := ParseTimestamp("1700000000"); err != nil || ts != 1_700_000_000 {
		t.Fatalf("unix timestamp mismatch: %d err=%v", ts, err)
	}
	if w, err := ParseWindow("5m"); err != nil || w != 300 {
		t.Fatalf("window mismatch: %d err=%v", w, err)
	}
	for _, bad := range []string{"0s", "1500ms", "soon"} {
		if _, err := ParseWindow(bad); err == nil {
			t.Fatalf("expected error for window %q", bad)
		}
	}
}
