package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"escrowmarket/crypto"
	"escrowmarket/native/market"
)

func testAddress(fill byte) string {
	var raw [20]byte
	for i := range raw {
		raw[i] = fill
	}
	return crypto.FormatAddress(raw)
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesSections(t *testing.T) {
	admin := testAddress(0xAD)
	alice := testAddress(0x01)
	path := writeConfig(t, `ListenAddress = "127.0.0.1:9000"
DataDir = "./data"
Env = "test"

[market]
Name = "gallery"
Admin = "`+admin+`"
PlatformFeeBps = 250

[rpc]
RequestsPerMinute = 60
Burst = 5

[indexer]
Enabled = true
DSN = "file::memory:"

[[Genesis]]
Address = "`+alice+`"
Balance = 1000
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != "127.0.0.1:9000" || cfg.Env != "test" {
		t.Fatalf("unexpected node section %+v", cfg)
	}
	if cfg.RPC.RequestsPerMinute != 60 || cfg.RPC.Burst != 5 {
		t.Fatalf("unexpected rpc section %+v", cfg.RPC)
	}
	if len(cfg.Genesis) != 1 || cfg.Genesis[0].Balance != 1000 {
		t.Fatalf("unexpected genesis %+v", cfg.Genesis)
	}
	mcfg, err := cfg.MarketConfig()
	if err != nil {
		t.Fatalf("market config: %v", err)
	}
	if mcfg.PlatformFeeBps != 250 || mcfg.Program != market.ProgramAddress("gallery") {
		t.Fatalf("unexpected market config %+v", mcfg)
	}
	if mcfg.Rent != market.DefaultRentSchedule() {
		t.Fatalf("rent defaults not applied: %+v", mcfg.Rent)
	}
}

func TestLoadDefaultsPlatformFee(t *testing.T) {
	path := writeConfig(t, `ListenAddress = ":8080"
DataDir = "./data"

[market]
Admin = "`+testAddress(0xAD)+`"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Market.PlatformFeeBps != market.DefaultPlatformFeeBps {
		t.Fatalf("expected default fee, got %d", cfg.Market.PlatformFeeBps)
	}
}

func TestLoadKeepsExplicitZeroRent(t *testing.T) {
	path := writeConfig(t, `ListenAddress = ":8080"
DataDir = "./data"

[market]
Admin = "`+testAddress(0xAD)+`"
PlatformFeeBps = 0
RentBaseFee = 0
CustodyCost = 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	mcfg, err := cfg.MarketConfig()
	if err != nil {
		t.Fatalf("market config: %v", err)
	}
	if mcfg.PlatformFeeBps != 0 || mcfg.Rent.BaseFee != 0 || mcfg.Rent.CustodyCost != 0 {
		t.Fatalf("explicit zeros overridden: %+v", mcfg)
	}
	if mcfg.Rent.ByteFee != market.DefaultRentByteFee {
		t.Fatalf("absent byte fee should default, got %d", mcfg.Rent.ByteFee)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"fee out of range": `ListenAddress = ":8080"
DataDir = "./data"
[market]
Admin = "` + testAddress(0xAD) + `"
PlatformFeeBps = 10001
`,
		"bad admin": `ListenAddress = ":8080"
DataDir = "./data"
[market]
Admin = "nope"
`,
		"unknown key": `ListenAddress = ":8080"
DataDir = "./data"
Bootnodes = ["x"]
[market]
Admin = "` + testAddress(0xAD) + `"
`,
	}
	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, contents)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load default: %v", err)
	}
	if !strings.HasPrefix(cfg.Market.Admin, string(crypto.MarketPrefix)+"1") {
		t.Fatalf("unexpected admin %q", cfg.Market.Admin)
	}
	if _, err := os.Stat(filepath.Join(dir, "keys", AdminKeyName+".json")); err != nil {
		t.Fatalf("admin key not written: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Market.Admin != cfg.Market.Admin || len(reloaded.Genesis) != 1 {
		t.Fatalf("persisted config mismatch: %+v", reloaded)
	}
}
