package indexer

import (
	"time"

	"gorm.io/gorm"
)

// Listing history kinds.
const (
	KindListed    = "listed"
	KindSold      = "sold"
	KindCancelled = "cancelled"
)

// Sale is a settled purchase. Seq is the sequence number of the sold event
// that produced it.
type Sale struct {
	ID            string `gorm:"primaryKey;size:36"`
	Seq           uint64 `gorm:"uniqueIndex"`
	Asset         uint64 `gorm:"index"`
	Seller        string `gorm:"size:64;index"`
	Buyer         string `gorm:"size:64;index"`
	Creator       string `gorm:"size:64"`
	Price         uint64
	RoyaltyBps    uint64
	PlatformShare uint64
	RoyaltyShare  uint64
	SellerShare   uint64
	RentRefund    uint64
	CreatedAt     time.Time `gorm:"index"`
}

// ListingEvent records one step of a listing's lifecycle. Seq increases by
// one per recorded event in commit order.
type ListingEvent struct {
	ID         string `gorm:"primaryKey;size:36"`
	Seq        uint64 `gorm:"uniqueIndex"`
	Asset      uint64 `gorm:"index"`
	Kind       string `gorm:"size:16;index"`
	Seller     string `gorm:"size:64"`
	Price      uint64
	RoyaltyBps uint64
	CreatedAt  time.Time `gorm:"index"`
}

// AutoMigrate performs all schema migrations for the indexer.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Sale{},
		&ListingEvent{},
	)
}
