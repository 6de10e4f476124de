package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// Marketplace program method names.
const (
	MethodListAsset     = "list_asset"
	MethodBuyAsset      = "buy_asset"
	MethodCancelListing = "cancel_listing"
	MethodAdminWithdraw = "admin_withdraw"
)

// MarketCall holds the scalar arguments of a marketplace invocation. Value
// transfers are never part of the call; they travel as sibling transactions in
// the same group.
type MarketCall struct {
	Asset      uint64
	Price      uint64
	Creator    [20]byte
	RoyaltyBps uint64
	Amount     uint64
}

// EncodeMarketCall serialises the arguments for Transaction.Args.
func EncodeMarketCall(call MarketCall) ([]byte, error) {
	return rlp.EncodeToBytes(&call)
}

// DecodeMarketCall parses Transaction.Args.
func DecodeMarketCall(data []byte) (MarketCall, error) {
	var call MarketCall
	if len(data) == 0 {
		return call, fmt.Errorf("types: empty call arguments")
	}
	if err := rlp.DecodeBytes(data, &call); err != nil {
		return call, fmt.Errorf("types: decode call arguments: %w", err)
	}
	return call, nil
}

// NewAppCall builds an unsigned marketplace invocation.
func NewAppCall(nonce uint64, method string, call MarketCall) (*Transaction, error) {
	args, err := EncodeMarketCall(call)
	if err != nil {
		return nil, err
	}
	return &Transaction{Type: TxTypeAppCall, Nonce: nonce, Method: method, Args: args}, nil
}

// NewPayment builds an unsigned native currency transfer.
func NewPayment(nonce uint64, to [20]byte, amount uint64) *Transaction {
	return &Transaction{Type: TxTypePayment, Nonce: nonce, Receiver: append([]byte(nil), to[:]...), Amount: amount}
}

// NewAssetTransfer builds an unsigned asset transfer.
func NewAssetTransfer(nonce uint64, to [20]byte, asset, amount uint64) *Transaction {
	return &Transaction{Type: TxTypeAssetTransfer, Nonce: nonce, Receiver: append([]byte(nil), to[:]...), Asset: asset, Amount: amount}
}

// NewOptIn builds the zero-quantity self transfer that enables receiving an asset.
func NewOptIn(nonce uint64, self [20]byte, asset uint64) *Transaction {
	return NewAssetTransfer(nonce, self, asset, 0)
}

// NewAssetCreate builds an unsigned asset mint with the given total supply.
func NewAssetCreate(nonce uint64, total uint64) *Transaction {
	return &Transaction{Type: TxTypeAssetCreate, Nonce: nonce, Amount: total}
}

// NewAssetMint builds an unsigned asset mint carrying descriptive metadata.
func NewAssetMint(nonce, total uint64, meta AssetMetadata) (*Transaction, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	args, err := EncodeAssetMetadata(meta)
	if err != nil {
		return nil, err
	}
	tx := NewAssetCreate(nonce, total)
	tx.Args = args
	return tx, nil
}
