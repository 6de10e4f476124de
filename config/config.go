package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"escrowmarket/crypto"
	"escrowmarket/native/market"

	"github.com/BurntSushi/toml"
)

// AdminKeyName is the keystore entry generated for a default configuration.
const AdminKeyName = "admin"

type Config struct {
	ListenAddress string    `toml:"ListenAddress"`
	DataDir       string    `toml:"DataDir"`
	KeystoreDir   string    `toml:"KeystoreDir"`
	LogFile       string    `toml:"LogFile"`
	Env           string    `toml:"Env"`
	Market        Market    `toml:"market"`
	RPC           RPC       `toml:"rpc"`
	Indexer       Indexer   `toml:"indexer"`
	Genesis       []Genesis `toml:"Genesis"`
}

// Load loads the configuration from the given path, writing a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s: unknown key %q", path, undecoded[0].String())
	}
	cfg.applyMarketDefaults(func(key string) bool { return meta.IsDefined("market", key) })
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Env) == "" {
		c.Env = "dev"
	}
	if strings.TrimSpace(c.Market.Name) == "" {
		c.Market.Name = "market"
	}
	if c.RPC.RequestsPerMinute == 0 {
		c.RPC.RequestsPerMinute = 600
	}
	if c.RPC.Burst == 0 {
		c.RPC.Burst = 20
	}
	if c.RPC.ReadHeaderTimeout == 0 {
		c.RPC.ReadHeaderTimeout = 5
	}
	if c.Indexer.Enabled && strings.TrimSpace(c.Indexer.DSN) == "" {
		c.Indexer.DSN = filepath.Join(c.DataDir, "indexer.db")
	}
}

// applyMarketDefaults fills the program parameters the file leaves out. Zero
// is a legitimate fee, so only absent keys take the default.
func (c *Config) applyMarketDefaults(defined func(key string) bool) {
	rent := market.DefaultRentSchedule()
	if !defined("PlatformFeeBps") {
		c.Market.PlatformFeeBps = market.DefaultPlatformFeeBps
	}
	if !defined("RentBaseFee") {
		c.Market.RentBaseFee = rent.BaseFee
	}
	if !defined("RentByteFee") {
		c.Market.RentByteFee = rent.ByteFee
	}
	if !defined("CustodyCost") {
		c.Market.CustodyCost = rent.CustodyCost
	}
}

// createDefault creates and saves a default configuration file together with
// a freshly generated admin key.
func createDefault(path string) (*Config, error) {
	dir := filepath.Dir(path)
	keystoreDir := filepath.Join(dir, "keys")
	ks, err := crypto.NewKeystore(keystoreDir)
	if err != nil {
		return nil, err
	}
	ks.UseLightScrypt()
	key, err := ks.Create(AdminKeyName, "")
	if err != nil {
		return nil, err
	}
	admin := key.PubKey().Address().String()

	cfg := &Config{
		ListenAddress: ":8080",
		DataDir:       filepath.Join(dir, "market-data"),
		KeystoreDir:   keystoreDir,
		Env:           "dev",
		Market: Market{
			Name:  "market",
			Admin: admin,
		},
		Indexer: Indexer{Enabled: true},
		Genesis: []Genesis{{Address: admin, Balance: 10_000_000}},
	}
	cfg.applyMarketDefaults(func(string) bool { return false })
	cfg.applyDefaults()

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
