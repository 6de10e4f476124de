package core

import (
	"fmt"
	"strconv"

	coreerrors "escrowmarket/core/errors"
	"escrowmarket/core/events"
	ledger "escrowmarket/core/state"
	"escrowmarket/core/types"
	"escrowmarket/crypto"
	"escrowmarket/native/market"
)

const (
	EventTypeAssetCreated = "asset.created"
	EventTypeOptIn        = "asset.opt_in"
)

// ledgerEvent wraps ledger-level payloads that do not belong to a native
// program.
type ledgerEvent struct {
	evt *types.Event
}

func (e ledgerEvent) EventType() string { return e.evt.Type }

func (e ledgerEvent) Event() *types.Event { return e.evt }

// GroupResult describes a committed group.
type GroupResult struct {
	Hash   []byte         `json:"hash"`
	Assets []uint64       `json:"assets,omitempty"`
	Events []*types.Event `json:"events"`
}

// StateProcessor executes transaction groups against the state manager. A
// group either commits in full or leaves no trace.
type StateProcessor struct {
	state   *ledger.Manager
	market  *market.Engine
	buffer  *events.Buffer
	emitter events.Emitter
}

// NewStateProcessor wires the marketplace engine to the manager.
func NewStateProcessor(manager *ledger.Manager, cfg market.Config) (*StateProcessor, error) {
	engine, err := market.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	buffer := &events.Buffer{}
	engine.SetState(manager)
	engine.SetEmitter(buffer)
	return &StateProcessor{
		state:   manager,
		market:  engine,
		buffer:  buffer,
		emitter: events.NoopEmitter{},
	}, nil
}

// SetEmitter configures where committed events are delivered.
func (sp *StateProcessor) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		sp.emitter = events.NoopEmitter{}
		return
	}
	sp.emitter = emitter
}

// Market exposes the marketplace engine for read-only queries.
func (sp *StateProcessor) Market() *market.Engine { return sp.market }

// State exposes the state manager for read-only queries.
func (sp *StateProcessor) State() *ledger.Manager { return sp.state }

type groupTx struct {
	tx       *types.Transaction
	sender   [20]byte
	consumed bool
}

// ApplyGroup executes every transaction of group in order. On failure all
// writes and events of the group are discarded.
func (sp *StateProcessor) ApplyGroup(group types.Group) (*GroupResult, error) {
	result, err := sp.applyGroup(group)
	if err != nil {
		sp.state.Discard()
		sp.buffer.Reset()
		return nil, err
	}
	if err := sp.state.Commit(); err != nil {
		sp.state.Discard()
		sp.buffer.Reset()
		return nil, err
	}
	for _, evt := range sp.buffer.Flush(sp.emitter) {
		result.Events = append(result.Events, evt.Event())
	}
	return result, nil
}

func (sp *StateProcessor) applyGroup(group types.Group) (*GroupResult, error) {
	if err := group.Validate(); err != nil {
		return nil, err
	}
	hash, err := group.Hash()
	if err != nil {
		return nil, err
	}
	txs := make([]*groupTx, len(group))
	for i, tx := range group {
		sender, err := tx.Sender()
		if err != nil {
			return nil, fmt.Errorf("tx %d: %w: %w", i, coreerrors.ErrInvalidSender, err)
		}
		txs[i] = &groupTx{tx: tx, sender: sender}
	}
	markConsumed(txs)

	result := &GroupResult{Hash: hash, Events: []*types.Event{}}
	for i, gtx := range txs {
		if err := sp.state.IncrementNonce(gtx.sender, gtx.tx.Nonce); err != nil {
			return nil, fmt.Errorf("tx %d: %w", i, err)
		}
		if gtx.consumed {
			continue
		}
		if err := sp.applyTx(txs, i, result); err != nil {
			return nil, fmt.Errorf("tx %d (%s): %w", i, gtx.tx.Type, err)
		}
	}
	return result, nil
}

// argPositions returns the group offsets, relative to the call, of the
// transfers an app call consumes.
func argPositions(method string) (assetPos, paymentPos int) {
	switch method {
	case types.MethodListAsset:
		return -2, -1
	case types.MethodBuyAsset:
		return 0, -1
	default:
		return 0, 0
	}
}

func markConsumed(txs []*groupTx) {
	for i, gtx := range txs {
		if gtx.tx.Type != types.TxTypeAppCall {
			continue
		}
		assetPos, paymentPos := argPositions(gtx.tx.Method)
		if arg := positional(txs, i, assetPos, types.TxTypeAssetTransfer); arg != nil {
			arg.consumed = true
		}
		if arg := positional(txs, i, paymentPos, types.TxTypePayment); arg != nil {
			arg.consumed = true
		}
	}
}

// positional returns the transaction at offset from index i when it has the
// wanted type.
func positional(txs []*groupTx, i, offset int, want types.TxType) *groupTx {
	if offset == 0 {
		return nil
	}
	j := i + offset
	if j < 0 || j >= len(txs) || txs[j].tx.Type != want {
		return nil
	}
	return txs[j]
}

func (sp *StateProcessor) applyTx(txs []*groupTx, i int, result *GroupResult) error {
	gtx := txs[i]
	tx := gtx.tx
	switch tx.Type {
	case types.TxTypePayment:
		to, err := tx.ReceiverAddress()
		if err != nil {
			return fmt.Errorf("%w: %v", coreerrors.ErrInvalidReceiver, err)
		}
		return sp.state.Transfer(gtx.sender, to, tx.Amount)
	case types.TxTypeAssetTransfer:
		to, err := tx.ReceiverAddress()
		if err != nil {
			return fmt.Errorf("%w: %v", coreerrors.ErrInvalidReceiver, err)
		}
		optIn := tx.Amount == 0 && to == gtx.sender
		if err := sp.state.TransferAsset(tx.Asset, gtx.sender, to, tx.Amount); err != nil {
			return err
		}
		if optIn {
			sp.buffer.Emit(ledgerEvent{evt: &types.Event{Type: EventTypeOptIn, Attributes: map[string]string{
				"account": crypto.FormatAddress(to),
				"asset":   strconv.FormatUint(tx.Asset, 10),
			}}})
		}
		return nil
	case types.TxTypeAssetCreate:
		meta, err := types.DecodeAssetMetadata(tx.Args)
		if err != nil {
			return err
		}
		info, err := sp.state.CreateAsset(gtx.sender, tx.Amount, meta)
		if err != nil {
			return err
		}
		result.Assets = append(result.Assets, info.ID)
		sp.buffer.Emit(ledgerEvent{evt: &types.Event{Type: EventTypeAssetCreated, Attributes: map[string]string{
			"asset":   strconv.FormatUint(info.ID, 10),
			"creator": crypto.FormatAddress(info.Creator),
			"total":   strconv.FormatUint(info.Total, 10),
			"name":    info.Name,
		}}})
		return nil
	case types.TxTypeAppCall:
		return sp.applyMarketCall(txs, i)
	default:
		return fmt.Errorf("%w: %d", coreerrors.ErrUnknownTxType, tx.Type)
	}
}

func paymentArg(gtx *groupTx) *market.Payment {
	if gtx == nil {
		return nil
	}
	to, err := gtx.tx.ReceiverAddress()
	if err != nil {
		return nil
	}
	return &market.Payment{Sender: gtx.sender, Receiver: to, Amount: gtx.tx.Amount}
}

func assetTransferArg(gtx *groupTx) *market.AssetTransfer {
	if gtx == nil {
		return nil
	}
	to, err := gtx.tx.ReceiverAddress()
	if err != nil {
		return nil
	}
	return &market.AssetTransfer{Sender: gtx.sender, Receiver: to, Asset: gtx.tx.Asset, Amount: gtx.tx.Amount}
}

func (sp *StateProcessor) applyMarketCall(txs []*groupTx, i int) error {
	gtx := txs[i]
	call, err := types.DecodeMarketCall(gtx.tx.Args)
	if err != nil {
		return fmt.Errorf("%w: %v", coreerrors.ErrMalformedCall, err)
	}
	ctx := market.CallContext{Caller: gtx.sender}
	assetPos, paymentPos := argPositions(gtx.tx.Method)
	payment := paymentArg(positional(txs, i, paymentPos, types.TxTypePayment))

	switch gtx.tx.Method {
	case types.MethodListAsset:
		axfer := assetTransferArg(positional(txs, i, assetPos, types.TxTypeAssetTransfer))
		if _, err := sp.market.ListAsset(ctx, call.Asset, call.Price, call.Creator, call.RoyaltyBps, axfer, payment); err != nil {
			return err
		}
		return sp.state.UpdateMarketStats(func(s *ledger.MarketStats) { s.Listed++ })
	case types.MethodBuyAsset:
		listing, err := sp.market.Listing(call.Asset)
		if err != nil {
			return err
		}
		split, err := sp.market.BuyAsset(ctx, call.Asset, payment)
		if err != nil {
			return err
		}
		return sp.state.UpdateMarketStats(func(s *ledger.MarketStats) {
			s.Sold++
			s.Volume += listing.Price
			s.PlatformFees += split.Platform
			s.RoyaltiesPaid += split.Royalty
		})
	case types.MethodCancelListing:
		if err := sp.market.CancelListing(ctx, call.Asset); err != nil {
			return err
		}
		return sp.state.UpdateMarketStats(func(s *ledger.MarketStats) { s.Cancelled++ })
	case types.MethodAdminWithdraw:
		if err := sp.market.AdminWithdraw(ctx, call.Amount); err != nil {
			return err
		}
		return sp.state.UpdateMarketStats(func(s *ledger.MarketStats) { s.Withdrawn += call.Amount })
	default:
		return fmt.Errorf("%w: %q", coreerrors.ErrUnknownMethod, gtx.tx.Method)
	}
}
