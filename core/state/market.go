package state

import (
	"fmt"
	"sort"

	"escrowmarket/native/market"
)

var (
	listingPrefix   = []byte("market/listing:")
	listingIndexKey = hashKey([]byte("market/listing-index"))
	marketStatsKey  = hashKey([]byte("market/stats"))
)

// MarketStats accumulates lifetime marketplace counters.
type MarketStats struct {
	Listed        uint64 `json:"listed"`
	Sold          uint64 `json:"sold"`
	Cancelled     uint64 `json:"cancelled"`
	Volume        uint64 `json:"volume"`
	PlatformFees  uint64 `json:"platformFees"`
	RoyaltiesPaid uint64 `json:"royaltiesPaid"`
	Withdrawn     uint64 `json:"withdrawn"`
}

func listingStorageKey(asset uint64) []byte {
	return hashKey(listingPrefix, market.ListingKey(asset))
}

func (m *Manager) loadListingIndex() ([]uint64, error) {
	var index []uint64
	if _, err := m.getRLP(listingIndexKey, &index); err != nil {
		return nil, err
	}
	return index, nil
}

func (m *Manager) writeListingIndex(index []uint64) error {
	if len(index) == 0 {
		m.delete(listingIndexKey)
		return nil
	}
	return m.putRLP(listingIndexKey, index)
}

// MarketListingGet loads the listing for asset.
func (m *Manager) MarketListingGet(asset uint64) (*market.Listing, bool, error) {
	data, ok, err := m.get(listingStorageKey(asset))
	if err != nil || !ok {
		return nil, false, err
	}
	listing, err := market.DecodeListing(asset, data)
	if err != nil {
		return nil, false, err
	}
	return listing, true, nil
}

// MarketListingPut stores a listing and records it in the listing index.
func (m *Manager) MarketListingPut(listing *market.Listing) error {
	if listing == nil {
		return fmt.Errorf("state: nil listing")
	}
	key := listingStorageKey(listing.Asset)
	_, exists, err := m.get(key)
	if err != nil {
		return err
	}
	m.put(key, market.EncodeListing(listing))
	if exists {
		return nil
	}
	index, err := m.loadListingIndex()
	if err != nil {
		return err
	}
	pos := sort.Search(len(index), func(i int) bool { return index[i] >= listing.Asset })
	index = append(index, 0)
	copy(index[pos+1:], index[pos:])
	index[pos] = listing.Asset
	return m.writeListingIndex(index)
}

// MarketListingDelete removes the listing for asset.
func (m *Manager) MarketListingDelete(asset uint64) error {
	key := listingStorageKey(asset)
	_, exists, err := m.get(key)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: asset %d", market.ErrNotListed, asset)
	}
	m.delete(key)
	index, err := m.loadListingIndex()
	if err != nil {
		return err
	}
	pos := sort.Search(len(index), func(i int) bool { return index[i] >= asset })
	if pos < len(index) && index[pos] == asset {
		index = append(index[:pos], index[pos+1:]...)
	}
	return m.writeListingIndex(index)
}

// MarketListings returns every active listing ordered by asset id.
func (m *Manager) MarketListings() ([]*market.Listing, error) {
	index, err := m.loadListingIndex()
	if err != nil {
		return nil, err
	}
	out := make([]*market.Listing, 0, len(index))
	for _, asset := range index {
		listing, ok, err := m.MarketListingGet(asset)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("state: listing index references missing asset %d", asset)
		}
		out = append(out, listing)
	}
	return out, nil
}

// MarketStats returns the lifetime marketplace counters.
func (m *Manager) MarketStats() (*MarketStats, error) {
	stats := new(MarketStats)
	if _, err := m.getRLP(marketStatsKey, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// UpdateMarketStats applies fn to the stored counters.
func (m *Manager) UpdateMarketStats(fn func(*MarketStats)) error {
	stats, err := m.MarketStats()
	if err != nil {
		return err
	}
	fn(stats)
	return m.putRLP(marketStatsKey, stats)
}
