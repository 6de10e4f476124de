package market

import (
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// BpsDenominator is the number of basis points in 100%.
const BpsDenominator = 10_000

// DefaultPlatformFeeBps is the fee taken from every sale (1%).
const DefaultPlatformFeeBps = 100

// Listing is one active offer to sell a specific asset. Price and RoyaltyBps
// never change after creation.
type Listing struct {
	Asset      uint64   `json:"asset"`
	Seller     [20]byte `json:"seller"`
	Price      uint64   `json:"price"`
	Creator    [20]byte `json:"creator"`
	RoyaltyBps uint64   `json:"royaltyBps"`
}

// Clone returns a copy of the listing.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	clone := *l
	return &clone
}

// Config is the immutable program state fixed when the marketplace is
// deployed.
type Config struct {
	// Admin may withdraw accumulated platform fees.
	Admin [20]byte
	// Program is the account holding custody of listed assets and all funds
	// flowing through the marketplace.
	Program        [20]byte
	PlatformFeeBps uint64
	Rent           RentSchedule
}

// ProgramAddress derives the custody account of the program deployed under
// name. No key controls it; only the engine moves its funds.
func ProgramAddress(name string) [20]byte {
	var out [20]byte
	copy(out[:], ethcrypto.Keccak256([]byte("escrowmarket/program/" + name))[12:])
	return out
}

// DefaultConfig returns a configuration with the default fee and rent schedule.
func DefaultConfig(admin, program [20]byte) Config {
	return Config{
		Admin:          admin,
		Program:        program,
		PlatformFeeBps: DefaultPlatformFeeBps,
		Rent:           DefaultRentSchedule(),
	}
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	var zero [20]byte
	if c.Admin == zero {
		return fmt.Errorf("%w: admin address required", ErrInvalidConfig)
	}
	if c.Program == zero {
		return fmt.Errorf("%w: program address required", ErrInvalidConfig)
	}
	if c.Program == c.Admin {
		return fmt.Errorf("%w: program and admin must differ", ErrInvalidConfig)
	}
	if c.PlatformFeeBps > BpsDenominator {
		return fmt.Errorf("%w: platform fee bps out of range: %d", ErrInvalidConfig, c.PlatformFeeBps)
	}
	return c.Rent.Validate()
}

// CallContext carries the authenticated identity invoking a transition.
type CallContext struct {
	Caller [20]byte
}

// Payment is a co-submitted native currency transfer.
type Payment struct {
	Sender   [20]byte
	Receiver [20]byte
	Amount   uint64
}

// AssetTransfer is a co-submitted asset transfer.
type AssetTransfer struct {
	Sender   [20]byte
	Receiver [20]byte
	Asset    uint64
	Amount   uint64
}

// Split is the three-way division of a sale price.
type Split struct {
	Platform uint64 `json:"platform"`
	Royalty  uint64 `json:"royalty"`
	Seller   uint64 `json:"seller"`
}

// Total returns the sum of all shares.
func (s Split) Total() uint64 { return s.Platform + s.Royalty + s.Seller }
