package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"escrowmarket/core/events"
	"escrowmarket/native/market"
)

// DefaultLimit caps query results when the caller does not ask for fewer.
const DefaultLimit = 100

var ErrInvalidQuery = errors.New("indexer: invalid query")

// Open connects to the history database. DSNs starting with postgres:// or
// postgresql:// use PostgreSQL; anything else is treated as a SQLite path.
func Open(dsn string) (*gorm.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("indexer: empty dsn")
	}
	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open indexer database: %w", err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate indexer database: %w", err)
	}
	return db, nil
}

// Indexer persists committed marketplace events for history queries.
type Indexer struct {
	mu     sync.Mutex
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

// New returns an indexer writing to db, which must already be migrated.
func New(db *gorm.DB, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{db: db, logger: logger, now: time.Now}
}

func attrUint(attrs map[string]string, key string) uint64 {
	v, _ := strconv.ParseUint(attrs[key], 10, 64)
	return v
}

// Emit implements events.Emitter. Failures are logged and never reach the
// ledger; history is best effort.
func (ix *Indexer) Emit(evt events.Event) {
	if ix == nil || evt == nil || evt.Event() == nil {
		return
	}
	payload := evt.Event()
	if err := ix.record(payload.Type, payload.Attributes); err != nil {
		ix.logger.Error("indexer write failed", "event", payload.Type, "error", err)
	}
}

func (ix *Indexer) record(eventType string, attrs map[string]string) error {
	var kind string
	switch eventType {
	case market.EventTypeListed:
		kind = KindListed
	case market.EventTypeSold:
		kind = KindSold
	case market.EventTypeCancelled:
		kind = KindCancelled
	default:
		return nil
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	now := ix.now().UTC()
	entry := &ListingEvent{
		ID:         uuid.NewString(),
		Asset:      attrUint(attrs, "asset"),
		Kind:       kind,
		Seller:     attrs["seller"],
		Price:      attrUint(attrs, "price"),
		RoyaltyBps: attrUint(attrs, "royaltyBps"),
		CreatedAt:  now,
	}
	return ix.db.Transaction(func(tx *gorm.DB) error {
		var last uint64
		if err := tx.Model(&ListingEvent{}).Select("COALESCE(MAX(seq), 0)").Scan(&last).Error; err != nil {
			return err
		}
		entry.Seq = last + 1
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		if kind != KindSold {
			return nil
		}
		sale := &Sale{
			ID:            uuid.NewString(),
			Seq:           entry.Seq,
			Asset:         entry.Asset,
			Seller:        entry.Seller,
			Buyer:         attrs["buyer"],
			Creator:       attrs["creator"],
			Price:         entry.Price,
			RoyaltyBps:    entry.RoyaltyBps,
			PlatformShare: attrUint(attrs, "platformShare"),
			RoyaltyShare:  attrUint(attrs, "royaltyShare"),
			SellerShare:   attrUint(attrs, "sellerShare"),
			RentRefund:    attrUint(attrs, "rentRefund"),
			CreatedAt:     now,
		}
		return tx.Create(sale).Error
	})
}

// SalesQuery filters Sales. Zero values match everything.
type SalesQuery struct {
	Asset  *uint64
	Seller string
	Buyer  string
	Limit  int
}

func normalizeLimit(limit int) (int, error) {
	switch {
	case limit < 0:
		return 0, fmt.Errorf("%w: negative limit", ErrInvalidQuery)
	case limit == 0 || limit > DefaultLimit:
		return DefaultLimit, nil
	default:
		return limit, nil
	}
}

// Sales returns settled purchases, newest first.
func (ix *Indexer) Sales(ctx context.Context, q SalesQuery) ([]Sale, error) {
	limit, err := normalizeLimit(q.Limit)
	if err != nil {
		return nil, err
	}
	tx := ix.db.WithContext(ctx).Model(&Sale{})
	if q.Asset != nil {
		tx = tx.Where("asset = ?", *q.Asset)
	}
	if seller := strings.TrimSpace(q.Seller); seller != "" {
		tx = tx.Where("seller = ?", seller)
	}
	if buyer := strings.TrimSpace(q.Buyer); buyer != "" {
		tx = tx.Where("buyer = ?", buyer)
	}
	var sales []Sale
	if err := tx.Order("seq DESC").Limit(limit).Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

// History returns the most recent limit lifecycle events of asset, oldest
// first.
func (ix *Indexer) History(ctx context.Context, asset uint64, limit int) ([]ListingEvent, error) {
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	var out []ListingEvent
	err = ix.db.WithContext(ctx).
		Where("asset = ?", asset).
		Order("seq DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
