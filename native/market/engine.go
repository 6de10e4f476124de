package market

import (
	"fmt"

	"escrowmarket/core/events"
	"escrowmarket/core/types"
)

// engineState is the ledger surface the marketplace program runs against. The
// ledger executes each transition atomically: if any call below fails, the
// caller discards every mutation made during the transition.
type engineState interface {
	MarketListingGet(asset uint64) (*Listing, bool, error)
	MarketListingPut(listing *Listing) error
	MarketListingDelete(asset uint64) error
	MarketListings() ([]*Listing, error)
	IsOptedIn(account [20]byte, asset uint64) (bool, error)
	Transfer(from, to [20]byte, amount uint64) error
	TransferAsset(asset uint64, from, to [20]byte, amount uint64) error
	Reserve(account [20]byte, amount uint64) error
	Release(account [20]byte, amount uint64) error
}

// Engine implements the marketplace transitions: listing, purchase settlement,
// cancellation and fee withdrawal.
type Engine struct {
	cfg     Config
	state   engineState
	emitter events.Emitter
}

// NewEngine validates cfg and returns an engine with a no-op emitter.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, emitter: events.NoopEmitter{}}, nil
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Config returns the immutable program configuration.
func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(marketEvent{evt: event})
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return nil
}

// Listing returns the active listing for asset.
func (e *Engine) Listing(asset uint64) (*Listing, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	listing, ok, err := e.state.MarketListingGet(asset)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: asset %d", ErrNotListed, asset)
	}
	return listing, nil
}

// Listings returns every active listing ordered by asset id.
func (e *Engine) Listings() ([]*Listing, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.state.MarketListings()
}

func (e *Engine) checkAssetTransfer(call CallContext, asset uint64, axfer *AssetTransfer) error {
	switch {
	case axfer == nil:
		return fmt.Errorf("%w: missing asset transfer", ErrInvalidAssetTransfer)
	case axfer.Receiver != e.cfg.Program:
		return fmt.Errorf("%w: receiver is not the program", ErrInvalidAssetTransfer)
	case axfer.Asset != asset:
		return fmt.Errorf("%w: transfer moves asset %d, listing asset %d", ErrInvalidAssetTransfer, axfer.Asset, asset)
	case axfer.Amount == 0:
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidAssetTransfer)
	case axfer.Amount != 1:
		return fmt.Errorf("%w: a listing escrows exactly one unit, got %d", ErrInvalidAssetTransfer, axfer.Amount)
	case axfer.Sender != call.Caller:
		return fmt.Errorf("%w: sender is not the caller", ErrInvalidAssetTransfer)
	}
	return nil
}

func (e *Engine) checkFunding(call CallContext, required uint64, funding *Payment) error {
	if required == 0 {
		return nil
	}
	switch {
	case funding == nil:
		return fmt.Errorf("%w: missing funding payment for %d", ErrInsufficientFunding, required)
	case funding.Receiver != e.cfg.Program:
		return fmt.Errorf("%w: funding receiver is not the program", ErrInsufficientFunding)
	case funding.Sender != call.Caller:
		return fmt.Errorf("%w: funding sender is not the caller", ErrInsufficientFunding)
	case funding.Amount < required:
		return fmt.Errorf("%w: funded %d, required %d", ErrInsufficientFunding, funding.Amount, required)
	}
	return nil
}

// ListAsset places one unit of asset in custody and records a listing owned by
// the caller. The co-submitted asset transfer must move exactly one unit from
// the caller to the program, and the funding payment must cover the custody
// registration (first listing of the asset type only) plus the listing rent.
func (e *Engine) ListAsset(call CallContext, asset, price uint64, creator [20]byte, royaltyBps uint64, axfer *AssetTransfer, funding *Payment) (*Listing, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if price == 0 {
		return nil, ErrInvalidPrice
	}
	if _, exists, err := e.state.MarketListingGet(asset); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("%w: asset %d", ErrDuplicateListing, asset)
	}
	if err := e.checkAssetTransfer(call, asset, axfer); err != nil {
		return nil, err
	}
	custodyCost, rent, err := e.requiredFunding(asset)
	if err != nil {
		return nil, err
	}
	required := custodyCost + rent
	if err := e.checkFunding(call, required, funding); err != nil {
		return nil, err
	}

	if _, err := e.EnsureCustody(asset); err != nil {
		return nil, err
	}
	if funding != nil && funding.Amount > 0 {
		if err := e.state.Transfer(call.Caller, e.cfg.Program, funding.Amount); err != nil {
			return nil, err
		}
	}
	if err := e.state.Reserve(e.cfg.Program, required); err != nil {
		return nil, err
	}
	if err := e.state.TransferAsset(asset, call.Caller, e.cfg.Program, axfer.Amount); err != nil {
		return nil, err
	}
	listing := &Listing{
		Asset:      asset,
		Seller:     call.Caller,
		Price:      price,
		Creator:    creator,
		RoyaltyBps: royaltyBps,
	}
	if err := e.state.MarketListingPut(listing); err != nil {
		return nil, err
	}
	e.emit(NewListedEvent(listing, rent))
	return listing.Clone(), nil
}

// BuyAsset settles a purchase. The payment must move exactly the listing price
// from the caller to the program. The seller is paid first, then the creator
// royalty (when non-zero); the asset goes to the buyer, the listing is removed
// and its rent is refunded to the seller. The platform share stays with the
// program.
func (e *Engine) BuyAsset(call CallContext, asset uint64, payment *Payment) (*Split, error) {
	listing, err := e.Listing(asset)
	if err != nil {
		return nil, err
	}
	switch {
	case payment == nil:
		return nil, fmt.Errorf("%w: missing payment", ErrPaymentMismatch)
	case payment.Receiver != e.cfg.Program:
		return nil, fmt.Errorf("%w: payment receiver is not the program", ErrPaymentMismatch)
	case payment.Sender != call.Caller:
		return nil, fmt.Errorf("%w: payment sender is not the caller", ErrPaymentMismatch)
	case payment.Amount != listing.Price:
		return nil, fmt.Errorf("%w: paid %d, price %d", ErrPaymentMismatch, payment.Amount, listing.Price)
	}
	split, err := ComputeSplit(listing.Price, e.cfg.PlatformFeeBps, listing.RoyaltyBps)
	if err != nil {
		return nil, err
	}

	program := e.cfg.Program
	if err := e.state.Transfer(call.Caller, program, payment.Amount); err != nil {
		return nil, err
	}
	if err := e.state.Transfer(program, listing.Seller, split.Seller); err != nil {
		return nil, err
	}
	if split.Royalty > 0 {
		if err := e.state.Transfer(program, listing.Creator, split.Royalty); err != nil {
			return nil, err
		}
	}
	if err := e.state.TransferAsset(asset, program, call.Caller, 1); err != nil {
		return nil, err
	}
	rent, err := e.removeListing(listing, listing.Seller)
	if err != nil {
		return nil, err
	}
	e.emit(NewSoldEvent(listing, call.Caller, split, rent))
	return &split, nil
}

// CancelListing returns the escrowed unit and the listing rent to the seller.
func (e *Engine) CancelListing(call CallContext, asset uint64) error {
	listing, err := e.Listing(asset)
	if err != nil {
		return err
	}
	if listing.Seller != call.Caller {
		return fmt.Errorf("%w: only the seller may cancel", ErrUnauthorized)
	}
	if err := e.state.TransferAsset(asset, e.cfg.Program, call.Caller, 1); err != nil {
		return err
	}
	rent, err := e.removeListing(listing, call.Caller)
	if err != nil {
		return err
	}
	e.emit(NewCancelledEvent(listing, rent))
	return nil
}

// removeListing deletes the record, releases its rent reservation and pays
// the rent to recipient.
func (e *Engine) removeListing(listing *Listing, recipient [20]byte) (uint64, error) {
	if err := e.state.MarketListingDelete(listing.Asset); err != nil {
		return 0, err
	}
	rent := e.cfg.Rent.ListingCost()
	if err := e.state.Release(e.cfg.Program, rent); err != nil {
		return 0, err
	}
	if err := e.state.Transfer(e.cfg.Program, recipient, rent); err != nil {
		return 0, err
	}
	return rent, nil
}

// AdminWithdraw pays amount from the program balance to the admin. Only
// unreserved funds can leave; the ledger rejects anything beyond that.
func (e *Engine) AdminWithdraw(call CallContext, amount uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if call.Caller != e.cfg.Admin {
		return fmt.Errorf("%w: only the admin may withdraw", ErrUnauthorized)
	}
	if err := e.state.Transfer(e.cfg.Program, e.cfg.Admin, amount); err != nil {
		return err
	}
	e.emit(NewWithdrawnEvent(e.cfg.Admin, amount))
	return nil
}
