package market

import (
	"strconv"

	"escrowmarket/core/types"
	"escrowmarket/crypto"
)

const (
	EventTypeListed            = "market.listed"
	EventTypeSold              = "market.sold"
	EventTypeCancelled         = "market.cancelled"
	EventTypeWithdrawn         = "market.withdrawn"
	EventTypeCustodyRegistered = "market.custody_registered"
)

type marketEvent struct {
	evt *types.Event
}

func (e marketEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e marketEvent) Event() *types.Event { return e.evt }

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

func listingAttributes(l *Listing) map[string]string {
	attrs := make(map[string]string)
	if l == nil {
		return attrs
	}
	attrs["asset"] = u64(l.Asset)
	attrs["seller"] = crypto.FormatAddress(l.Seller)
	attrs["price"] = u64(l.Price)
	attrs["creator"] = crypto.FormatAddress(l.Creator)
	attrs["royaltyBps"] = u64(l.RoyaltyBps)
	return attrs
}

// NewListedEvent returns the payload emitted when an asset is placed in
// custody and listed. rent is the amount reserved for the record.
func NewListedEvent(l *Listing, rent uint64) *types.Event {
	attrs := listingAttributes(l)
	attrs["rent"] = u64(rent)
	return &types.Event{Type: EventTypeListed, Attributes: attrs}
}

// NewSoldEvent returns the payload emitted when a listing settles.
func NewSoldEvent(l *Listing, buyer [20]byte, split Split, rent uint64) *types.Event {
	attrs := listingAttributes(l)
	attrs["buyer"] = crypto.FormatAddress(buyer)
	attrs["platformShare"] = u64(split.Platform)
	attrs["royaltyShare"] = u64(split.Royalty)
	attrs["sellerShare"] = u64(split.Seller)
	attrs["rentRefund"] = u64(rent)
	return &types.Event{Type: EventTypeSold, Attributes: attrs}
}

// NewCancelledEvent returns the payload emitted when a seller withdraws a
// listing.
func NewCancelledEvent(l *Listing, rent uint64) *types.Event {
	attrs := listingAttributes(l)
	attrs["rentRefund"] = u64(rent)
	return &types.Event{Type: EventTypeCancelled, Attributes: attrs}
}

func NewWithdrawnEvent(admin [20]byte, amount uint64) *types.Event {
	return &types.Event{Type: EventTypeWithdrawn, Attributes: map[string]string{
		"admin":  crypto.FormatAddress(admin),
		"amount": u64(amount),
	}}
}

func NewCustodyRegisteredEvent(asset, cost uint64) *types.Event {
	return &types.Event{Type: EventTypeCustodyRegistered, Attributes: map[string]string{
		"asset": u64(asset),
		"cost":  u64(cost),
	}}
}
