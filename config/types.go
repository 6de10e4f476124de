package config

import "escrowmarket/core/genesis"

// Market configures the marketplace program deployed at startup.
type Market struct {
	// Name seeds the program's custody address.
	Name           string `toml:"Name"`
	Admin          string `toml:"Admin"`
	PlatformFeeBps uint64 `toml:"PlatformFeeBps"`
	RentBaseFee    uint64 `toml:"RentBaseFee"`
	RentByteFee    uint64 `toml:"RentByteFee"`
	CustodyCost    uint64 `toml:"CustodyCost"`
}

// RPC controls the JSON-RPC listener.
type RPC struct {
	RequestsPerMinute uint32 `toml:"RequestsPerMinute"`
	Burst             int    `toml:"Burst"`
	// ReadHeaderTimeout is in seconds.
	ReadHeaderTimeout int `toml:"ReadHeaderTimeout"`
}

// Indexer configures the sales history database.
type Indexer struct {
	Enabled bool   `toml:"Enabled"`
	DSN     string `toml:"DSN"`
}

// Genesis is one dev allocation credited to an empty ledger.
type Genesis = genesis.Alloc
