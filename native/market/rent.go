package market

import (
	"fmt"
	"math"
)

// Default storage rent parameters, in base currency units.
const (
	DefaultRentBaseFee = 2_500
	DefaultRentByteFee = 400
	DefaultCustodyCost = 100_000
	maxRecordFootprint = ListingKeySize + ListingValueSize
)

// RentSchedule prices persisted records and custody registration.
type RentSchedule struct {
	// BaseFee is charged once per stored record.
	BaseFee uint64
	// ByteFee is charged per byte of key plus value.
	ByteFee uint64
	// CustodyCost is charged the first time the program registers to hold an
	// asset type.
	CustodyCost uint64
}

// DefaultRentSchedule returns the standard rent parameters.
func DefaultRentSchedule() RentSchedule {
	return RentSchedule{
		BaseFee:     DefaultRentBaseFee,
		ByteFee:     DefaultRentByteFee,
		CustodyCost: DefaultCustodyCost,
	}
}

// Validate rejects schedules whose first listing funding, custody cost plus
// listing rent, would overflow.
func (r RentSchedule) Validate() error {
	if r.ByteFee > (math.MaxUint64-r.BaseFee)/maxRecordFootprint {
		return fmt.Errorf("%w: rent schedule overflows", ErrInvalidConfig)
	}
	if r.CustodyCost > math.MaxUint64-r.ListingCost() {
		return fmt.Errorf("%w: custody cost plus listing rent overflows", ErrInvalidConfig)
	}
	return nil
}

// Cost returns the rent for a record with the given key and value widths.
func (r RentSchedule) Cost(keyBytes, valueBytes uint64) uint64 {
	return r.BaseFee + r.ByteFee*(keyBytes+valueBytes)
}

// ListingCost returns the rent for one listing record. The record layout is
// fixed-width so the cost is the same for every listing.
func (r RentSchedule) ListingCost() uint64 {
	return r.Cost(ListingKeySize, ListingValueSize)
}
