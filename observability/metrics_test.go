package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"escrowmarket/core/types"
	"escrowmarket/native/market"
)

type testEvent struct{ evt *types.Event }

func (e testEvent) EventType() string   { return e.evt.Type }
func (e testEvent) Event() *types.Event { return e.evt }

func TestEventRecorderTracksMarketActivity(t *testing.T) {
	metrics := Market()
	recorder := NewEventRecorder(metrics, 2)
	if got := testutil.ToFloat64(metrics.active); got != 2 {
		t.Fatalf("seeded gauge %v", got)
	}

	soldBefore := testutil.ToFloat64(metrics.transitions.WithLabelValues("sold"))
	volumeBefore := testutil.ToFloat64(metrics.volume)

	recorder.Emit(testEvent{evt: &types.Event{Type: market.EventTypeListed, Attributes: map[string]string{}}})
	recorder.Emit(testEvent{evt: &types.Event{Type: market.EventTypeSold, Attributes: map[string]string{
		"price":         "1000000",
		"platformShare": "10000",
		"royaltyShare":  "50000",
		"sellerShare":   "940000",
	}}})
	recorder.Emit(testEvent{evt: &types.Event{Type: "asset.created", Attributes: map[string]string{}}})

	if got := testutil.ToFloat64(metrics.active); got != 2 {
		t.Fatalf("active listings %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.transitions.WithLabelValues("sold")) - soldBefore; got != 1 {
		t.Fatalf("sold transitions delta %v", got)
	}
	if got := testutil.ToFloat64(metrics.volume) - volumeBefore; got != 1_000_000 {
		t.Fatalf("volume delta %v", got)
	}
}

func TestRecordRejectionDefaultsReason(t *testing.T) {
	metrics := Market()
	before := testutil.ToFloat64(metrics.rejections.WithLabelValues("other"))
	metrics.RecordRejection("")
	if got := testutil.ToFloat64(metrics.rejections.WithLabelValues("other")) - before; got != 1 {
		t.Fatalf("rejection delta %v", got)
	}
}
