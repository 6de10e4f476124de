package types

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// TxType defines the purpose of a transaction.
type TxType byte

const (
	TxTypePayment       TxType = 0x01 // Native currency transfer
	TxTypeAssetTransfer TxType = 0x02 // Asset transfer; zero amount to self is an opt-in
	TxTypeAssetCreate   TxType = 0x03 // Mint a new asset with a fixed supply
	TxTypeAppCall       TxType = 0x04 // Marketplace program invocation
)

// String implements fmt.Stringer.
func (t TxType) String() string {
	switch t {
	case TxTypePayment:
		return "payment"
	case TxTypeAssetTransfer:
		return "asset_transfer"
	case TxTypeAssetCreate:
		return "asset_create"
	case TxTypeAppCall:
		return "app_call"
	default:
		return fmt.Sprintf("unknown(%d)", byte(t))
	}
}

var (
	ErrMissingSignature = errors.New("types: transaction is not signed")
	ErrEmptyGroup       = errors.New("types: empty transaction group")
	ErrGroupTooLarge    = errors.New("types: transaction group too large")
	ErrGroupMismatch    = errors.New("types: transaction not signed for this group")
)

// MaxGroupSize bounds the number of transactions executed as one atomic unit.
const MaxGroupSize = 16

// Transaction is a single signed instruction. Payments and asset transfers use
// Receiver/Asset/Amount; asset creation uses Amount as the total supply; app
// calls carry the method name and RLP-encoded arguments. Members of a
// multi-transaction group carry the group id so a signature is only valid
// alongside its siblings.
type Transaction struct {
	Type     TxType   `json:"type"`
	Nonce    uint64   `json:"nonce"`
	Receiver []byte   `json:"receiver,omitempty"`
	Asset    uint64   `json:"asset,omitempty"`
	Amount   uint64   `json:"amount,omitempty"`
	Method   string   `json:"method,omitempty"`
	Args     []byte   `json:"args,omitempty"`
	Group    [32]byte `json:"group"`

	// Signatures
	R *big.Int `json:"r"`
	S *big.Int `json:"s"`
	V *big.Int `json:"v"`

	from []byte
}

type unsignedTx struct {
	Type     uint8
	Nonce    uint64
	Receiver []byte
	Asset    uint64
	Amount   uint64
	Method   string
	Args     []byte
	Group    [32]byte
}

// Hash returns the keccak256 digest of the RLP encoding of the unsigned fields.
func (tx *Transaction) Hash() ([]byte, error) {
	return tx.hashWithGroup(tx.Group)
}

func (tx *Transaction) hashWithGroup(group [32]byte) ([]byte, error) {
	encoded, err := rlp.EncodeToBytes(unsignedTx{
		Type:     uint8(tx.Type),
		Nonce:    tx.Nonce,
		Receiver: tx.Receiver,
		Asset:    tx.Asset,
		Amount:   tx.Amount,
		Method:   tx.Method,
		Args:     tx.Args,
		Group:    group,
	})
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256(encoded), nil
}

func (tx *Transaction) Sign(privKey *ecdsa.PrivateKey) error {
	hash, err := tx.Hash()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(hash, privKey)
	if err != nil {
		return err
	}
	tx.R = new(big.Int).SetBytes(sig[:32])
	tx.S = new(big.Int).SetBytes(sig[32:64])
	tx.V = new(big.Int).SetBytes([]byte{sig[64] + 27})
	tx.from = nil
	return nil
}

// From recovers the sender address from the signature.
func (tx *Transaction) From() ([]byte, error) {
	if tx.from != nil {
		return tx.from, nil
	}
	if tx.R == nil || tx.S == nil || tx.V == nil {
		return nil, ErrMissingSignature
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}
	rBytes, sBytes := tx.R.Bytes(), tx.S.Bytes()
	if len(rBytes) > 32 || len(sBytes) > 32 || tx.V.Uint64() < 27 {
		return nil, fmt.Errorf("types: malformed signature")
	}
	sig := make([]byte, 65)
	copy(sig[32-len(rBytes):32], rBytes)
	copy(sig[64-len(sBytes):64], sBytes)
	sig[64] = byte(tx.V.Uint64() - 27)
	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return nil, err
	}
	tx.from = crypto.PubkeyToAddress(*pubKey).Bytes()
	return tx.from, nil
}

// Sender returns the recovered sender as a fixed-width address.
func (tx *Transaction) Sender() ([20]byte, error) {
	var out [20]byte
	from, err := tx.From()
	if err != nil {
		return out, err
	}
	copy(out[:], from)
	return out, nil
}

// ReceiverAddress returns the receiver as a fixed-width address.
func (tx *Transaction) ReceiverAddress() ([20]byte, error) {
	var out [20]byte
	if len(tx.Receiver) != len(out) {
		return out, fmt.Errorf("types: receiver must be %d bytes", len(out))
	}
	copy(out[:], tx.Receiver)
	return out, nil
}

// Group is an ordered list of transactions executed as one atomic unit.
type Group []*Transaction

// Validate performs stateless checks on the group shape and verifies that
// every member was signed for exactly this group. A lone transaction may leave
// its group id zero.
func (g Group) Validate() error {
	if len(g) == 0 {
		return ErrEmptyGroup
	}
	if len(g) > MaxGroupSize {
		return ErrGroupTooLarge
	}
	for i, tx := range g {
		if tx == nil {
			return fmt.Errorf("types: nil transaction at index %d", i)
		}
	}
	if len(g) == 1 && g[0].Group == ([32]byte{}) {
		return nil
	}
	id, err := g.ID()
	if err != nil {
		return err
	}
	for i, tx := range g {
		if tx.Group != id {
			return fmt.Errorf("%w: index %d", ErrGroupMismatch, i)
		}
	}
	return nil
}

// ID derives the group id from the member hashes computed with a zero group
// field, so stamping the id does not change it.
func (g Group) ID() ([32]byte, error) {
	var id [32]byte
	hashes := make([][]byte, 0, len(g))
	for _, tx := range g {
		h, err := tx.hashWithGroup([32]byte{})
		if err != nil {
			return id, err
		}
		hashes = append(hashes, h)
	}
	copy(id[:], crypto.Keccak256(hashes...))
	return id, nil
}

// Seal stamps the group id into every member of a multi-transaction group.
// Members must be signed after sealing. Single transactions are left as is.
func (g Group) Seal() error {
	if len(g) < 2 {
		return nil
	}
	id, err := g.ID()
	if err != nil {
		return err
	}
	for _, tx := range g {
		tx.Group = id
		tx.from = nil
	}
	return nil
}

// Hash commits to every member transaction in order.
func (g Group) Hash() ([]byte, error) {
	hashes := make([][]byte, 0, len(g))
	for _, tx := range g {
		h, err := tx.Hash()
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return crypto.Keccak256(hashes...), nil
}
