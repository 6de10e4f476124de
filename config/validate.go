package config

import (
	"fmt"
	"strings"

	"escrowmarket/core/genesis"
	"escrowmarket/crypto"
	"escrowmarket/native/market"
)

// Validate checks the configuration before the node starts.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("config: ListenAddress must be set")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir must be set")
	}
	if c.RPC.Burst <= 0 {
		return fmt.Errorf("config: rpc.Burst must be positive")
	}
	if _, err := c.MarketConfig(); err != nil {
		return err
	}
	if _, err := c.GenesisSpec().Resolve(); err != nil {
		return fmt.Errorf("config: genesis: %w", err)
	}
	return nil
}

// MarketConfig resolves the marketplace program configuration.
func (c *Config) MarketConfig() (market.Config, error) {
	admin, err := crypto.ParseAddress(strings.TrimSpace(c.Market.Admin))
	if err != nil {
		return market.Config{}, fmt.Errorf("config: market.Admin: %w", err)
	}
	cfg := market.Config{
		Admin:          admin,
		Program:        market.ProgramAddress(c.Market.Name),
		PlatformFeeBps: c.Market.PlatformFeeBps,
		Rent: market.RentSchedule{
			BaseFee:     c.Market.RentBaseFee,
			ByteFee:     c.Market.RentByteFee,
			CustodyCost: c.Market.CustodyCost,
		},
	}
	if err := cfg.Validate(); err != nil {
		return market.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// GenesisSpec returns the configured dev allocations.
func (c *Config) GenesisSpec() *genesis.Spec {
	return &genesis.Spec{Alloc: append([]genesis.Alloc(nil), c.Genesis...)}
}
