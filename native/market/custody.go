package market

// EnsureCustody makes sure the program can receive asset. The first call for
// an asset type opts the program in through a zero-quantity self transfer and
// reports the one-time registration cost; later calls report zero. The flag
// lives apart from listing records, so it survives listing deletion.
func (e *Engine) EnsureCustody(asset uint64) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	registered, err := e.state.IsOptedIn(e.cfg.Program, asset)
	if err != nil {
		return 0, err
	}
	if registered {
		return 0, nil
	}
	if err := e.state.TransferAsset(asset, e.cfg.Program, e.cfg.Program, 0); err != nil {
		return 0, err
	}
	cost := e.cfg.Rent.CustodyCost
	e.emit(NewCustodyRegisteredEvent(asset, cost))
	return cost, nil
}

// CustodyRegistered reports whether the program has ever registered to hold
// asset.
func (e *Engine) CustodyRegistered(asset uint64) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	return e.state.IsOptedIn(e.cfg.Program, asset)
}

// requiredFunding returns the custody and storage cost a new listing of asset
// must cover, without mutating state.
func (e *Engine) requiredFunding(asset uint64) (custody uint64, storage uint64, err error) {
	registered, err := e.state.IsOptedIn(e.cfg.Program, asset)
	if err != nil {
		return 0, 0, err
	}
	if !registered {
		custody = e.cfg.Rent.CustodyCost
	}
	return custody, e.cfg.Rent.ListingCost(), nil
}
