package rpc

import (
	"time"

	"escrowmarket/core"
	"escrowmarket/core/types"
	"escrowmarket/crypto"
	"escrowmarket/indexer"
	"escrowmarket/native/market"
)

// SubmitGroupParams carries the signed transactions of one atomic group.
type SubmitGroupParams struct {
	Transactions []*types.Transaction `json:"transactions"`
}

// SubmitGroupResult reports a committed group.
type SubmitGroupResult struct {
	Hash   string         `json:"hash"`
	Assets []uint64       `json:"assets,omitempty"`
	Events []*types.Event `json:"events"`
}

type AssetParams struct {
	Asset uint64 `json:"asset"`
}

type AccountParams struct {
	Address string  `json:"address"`
	Asset   *uint64 `json:"asset,omitempty"`
}

type SalesParams struct {
	Asset  *uint64 `json:"asset,omitempty"`
	Seller string  `json:"seller,omitempty"`
	Buyer  string  `json:"buyer,omitempty"`
	Limit  int     `json:"limit,omitempty"`
}

type HistoryParams struct {
	Asset uint64 `json:"asset"`
	Limit int    `json:"limit,omitempty"`
}

// ListingResult is a listing with bech32 addresses.
type ListingResult struct {
	Asset      uint64 `json:"asset"`
	Seller     string `json:"seller"`
	Price      uint64 `json:"price"`
	Creator    string `json:"creator"`
	RoyaltyBps uint64 `json:"royaltyBps"`
}

func newListingResult(l *market.Listing) ListingResult {
	return ListingResult{
		Asset:      l.Asset,
		Seller:     crypto.FormatAddress(l.Seller),
		Price:      l.Price,
		Creator:    crypto.FormatAddress(l.Creator),
		RoyaltyBps: l.RoyaltyBps,
	}
}

type AssetHolding struct {
	Asset    uint64 `json:"asset"`
	OptedIn  bool   `json:"optedIn"`
	Quantity uint64 `json:"quantity"`
}

type AccountResult struct {
	Address   string        `json:"address"`
	Nonce     uint64        `json:"nonce"`
	Balance   uint64        `json:"balance"`
	Reserved  uint64        `json:"reserved"`
	Available uint64        `json:"available"`
	Holding   *AssetHolding `json:"holding,omitempty"`
}

type AssetResult struct {
	ID                uint64 `json:"id"`
	Creator           string `json:"creator"`
	Total             uint64 `json:"total"`
	Name              string `json:"name,omitempty"`
	UnitName          string `json:"unitName,omitempty"`
	URL               string `json:"url,omitempty"`
	Note              string `json:"note,omitempty"`
	CustodyRegistered bool   `json:"custodyRegistered"`
}

// MarketConfigResult exposes the deployed program parameters.
type MarketConfigResult struct {
	Admin          string `json:"admin"`
	Program        string `json:"program"`
	PlatformFeeBps uint64 `json:"platformFeeBps"`
	ListingRent    uint64 `json:"listingRent"`
	CustodyCost    uint64 `json:"custodyCost"`
}

type StatsResult struct {
	*core.MarketStats
	Config MarketConfigResult `json:"config"`
}

type SaleResult struct {
	Asset         uint64    `json:"asset"`
	Seller        string    `json:"seller"`
	Buyer         string    `json:"buyer"`
	Creator       string    `json:"creator"`
	Price         uint64    `json:"price"`
	RoyaltyBps    uint64    `json:"royaltyBps"`
	PlatformShare uint64    `json:"platformShare"`
	RoyaltyShare  uint64    `json:"royaltyShare"`
	SellerShare   uint64    `json:"sellerShare"`
	RentRefund    uint64    `json:"rentRefund"`
	Timestamp     time.Time `json:"timestamp"`
}

func newSaleResult(s indexer.Sale) SaleResult {
	return SaleResult{
		Asset:         s.Asset,
		Seller:        s.Seller,
		Buyer:         s.Buyer,
		Creator:       s.Creator,
		Price:         s.Price,
		RoyaltyBps:    s.RoyaltyBps,
		PlatformShare: s.PlatformShare,
		RoyaltyShare:  s.RoyaltyShare,
		SellerShare:   s.SellerShare,
		RentRefund:    s.RentRefund,
		Timestamp:     s.CreatedAt,
	}
}

type HistoryEntry struct {
	Kind       string    `json:"kind"`
	Seller     string    `json:"seller"`
	Price      uint64    `json:"price"`
	RoyaltyBps uint64    `json:"royaltyBps"`
	Timestamp  time.Time `json:"timestamp"`
}
