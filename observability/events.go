package observability

import (
	"strconv"
	"strings"
	"sync"

	"escrowmarket/core/events"
	"escrowmarket/native/market"
)

// EventRecorder feeds committed marketplace events into the metrics
// registry. It tracks the active listing count itself so the gauge does not
// need a state query.
type EventRecorder struct {
	metrics *MarketMetrics
	mu      sync.Mutex
	active  int
}

// NewEventRecorder returns a recorder seeded with the current number of
// active listings.
func NewEventRecorder(metrics *MarketMetrics, active int) *EventRecorder {
	metrics.SetActiveListings(active)
	return &EventRecorder{metrics: metrics, active: active}
}

func attrUint(attrs map[string]string, key string) uint64 {
	v, err := strconv.ParseUint(attrs[key], 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// Emit implements events.Emitter.
func (r *EventRecorder) Emit(evt events.Event) {
	if r == nil || evt == nil || evt.Event() == nil {
		return
	}
	payload := evt.Event()
	if !strings.HasPrefix(payload.Type, "market.") {
		return
	}
	r.metrics.RecordTransition(strings.TrimPrefix(payload.Type, "market."))

	r.mu.Lock()
	defer r.mu.Unlock()
	switch payload.Type {
	case market.EventTypeListed:
		r.active++
	case market.EventTypeSold:
		r.active--
		attrs := payload.Attributes
		r.metrics.RecordSale(attrUint(attrs, "price"), attrUint(attrs, "platformShare"), attrUint(attrs, "royaltyShare"), attrUint(attrs, "sellerShare"))
	case market.EventTypeCancelled:
		r.active--
	default:
		return
	}
	if r.active < 0 {
		r.active = 0
	}
	r.metrics.SetActiveListings(r.active)
}
