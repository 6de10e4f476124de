package core

import (
	ledger "escrowmarket/core/state"
	"escrowmarket/core/types"
	"escrowmarket/native/market"
)

// MarketStats is the marketplace summary served to clients.
type MarketStats struct {
	ledger.MarketStats
	ActiveListings uint64 `json:"activeListings"`
	ProgramBalance uint64 `json:"programBalance"`
	Reserved       uint64 `json:"reserved"`
	Withdrawable   uint64 `json:"withdrawable"`
}

// AccountView is an account with its spendable balance.
type AccountView struct {
	types.Account
	Available uint64 `json:"available"`
}

// Listing returns the active listing for asset.
func (n *Node) Listing(asset uint64) (*market.Listing, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.state.Market().Listing(asset)
}

// Listings returns every active listing ordered by asset id.
func (n *Node) Listings() ([]*market.Listing, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.state.Market().Listings()
}

// Account returns the ledger record for addr.
func (n *Node) Account(addr [20]byte) (*AccountView, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	account, err := n.state.State().Account(addr)
	if err != nil {
		return nil, err
	}
	return &AccountView{Account: *account, Available: account.Available()}, nil
}

// AssetBalance returns the units of asset held by addr and whether addr is
// opted in.
func (n *Node) AssetBalance(addr [20]byte, asset uint64) (uint64, bool, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	manager := n.state.State()
	optedIn, err := manager.IsOptedIn(addr, asset)
	if err != nil {
		return 0, false, err
	}
	balance, err := manager.AssetBalance(addr, asset)
	if err != nil {
		return 0, false, err
	}
	return balance, optedIn, nil
}

// Asset returns the metadata of a minted asset.
func (n *Node) Asset(id uint64) (*types.AssetInfo, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.state.State().Asset(id)
}

// MarketStats summarises marketplace activity and the program's funds.
func (n *Node) MarketStats() (*MarketStats, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	manager := n.state.State()
	counters, err := manager.MarketStats()
	if err != nil {
		return nil, err
	}
	listings, err := manager.MarketListings()
	if err != nil {
		return nil, err
	}
	program, err := manager.Account(n.state.Market().Config().Program)
	if err != nil {
		return nil, err
	}
	return &MarketStats{
		MarketStats:    *counters,
		ActiveListings: uint64(len(listings)),
		ProgramBalance: program.Balance,
		Reserved:       program.Reserved,
		Withdrawable:   program.Available(),
	}, nil
}

// CustodyRegistered reports whether the program already holds custody of
// asset, in which case listing it again costs only the listing rent.
func (n *Node) CustodyRegistered(asset uint64) (bool, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.state.Market().CustodyRegistered(asset)
}
