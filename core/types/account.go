package types

// Account is the native ledger record of a single identity.
type Account struct {
	Nonce   uint64 `json:"nonce"`
	Balance uint64 `json:"balance"`
	// Reserved is the part of Balance locked against storage the account has
	// paid for. It cannot leave the account until the storage is released.
	Reserved uint64 `json:"reserved"`
}

// Available returns the spendable part of the balance.
func (a *Account) Available() uint64 {
	if a == nil || a.Reserved >= a.Balance {
		return 0
	}
	return a.Balance - a.Reserved
}

// Clone returns a copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return &Account{}
	}
	clone := *a
	return &clone
}

// AssetInfo describes a minted asset.
type AssetInfo struct {
	ID       uint64   `json:"id"`
	Creator  [20]byte `json:"creator"`
	Total    uint64   `json:"total"`
	Name     string   `json:"name"`
	UnitName string   `json:"unitName"`
	URL      string   `json:"url"`
	Note     string   `json:"note"`
}
