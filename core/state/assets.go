package state

import (
	"encoding/binary"
	"fmt"

	"escrowmarket/core/types"
)

var (
	assetPrefix   = []byte("asset:")
	holdingPrefix = []byte("holding:")
	assetNextKey  = hashKey([]byte("asset-next-id"))
)

// FirstAssetID is the identifier assigned to the first minted asset.
const FirstAssetID = uint64(1)

type holding struct {
	Amount uint64
}

func u64Bytes(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func assetKey(id uint64) []byte {
	return hashKey(assetPrefix, u64Bytes(id))
}

func holdingKey(addr [20]byte, asset uint64) []byte {
	return hashKey(holdingPrefix, addr[:], u64Bytes(asset))
}

// CreateAsset mints a new asset with the given total supply and metadata. The
// creator is opted in and receives the whole supply. Identifiers are
// sequential.
func (m *Manager) CreateAsset(creator [20]byte, total uint64, meta types.AssetMetadata) (*types.AssetInfo, error) {
	if total == 0 {
		return nil, fmt.Errorf("%w: total supply must be positive", ErrInvalidAsset)
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAsset, err)
	}
	next := FirstAssetID
	if _, err := m.getRLP(assetNextKey, &next); err != nil {
		return nil, err
	}
	info := &types.AssetInfo{
		ID:       next,
		Creator:  creator,
		Total:    total,
		Name:     meta.Name,
		UnitName: meta.UnitName,
		URL:      meta.URL,
		Note:     meta.Note,
	}
	if err := m.putRLP(assetKey(next), info); err != nil {
		return nil, err
	}
	if err := m.putRLP(assetNextKey, next+1); err != nil {
		return nil, err
	}
	if err := m.putRLP(holdingKey(creator, next), &holding{Amount: total}); err != nil {
		return nil, err
	}
	return info, nil
}

// Asset returns the metadata of a minted asset.
func (m *Manager) Asset(id uint64) (*types.AssetInfo, error) {
	info := new(types.AssetInfo)
	ok, err := m.getRLP(assetKey(id), info)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAsset, id)
	}
	return info, nil
}

func (m *Manager) loadHolding(addr [20]byte, asset uint64) (*holding, bool, error) {
	h := new(holding)
	ok, err := m.getRLP(holdingKey(addr, asset), h)
	if err != nil {
		return nil, false, err
	}
	return h, ok, nil
}

// IsOptedIn reports whether account may receive asset.
func (m *Manager) IsOptedIn(account [20]byte, asset uint64) (bool, error) {
	_, ok, err := m.loadHolding(account, asset)
	return ok, err
}

// AssetBalance returns the units of asset held by account.
func (m *Manager) AssetBalance(account [20]byte, asset uint64) (uint64, error) {
	h, _, err := m.loadHolding(account, asset)
	if err != nil {
		return 0, err
	}
	return h.Amount, nil
}

// TransferAsset moves amount units of asset between accounts. A zero-amount
// transfer from an account to itself opts that account in. Receivers must be
// opted in.
func (m *Manager) TransferAsset(asset uint64, from, to [20]byte, amount uint64) error {
	if _, err := m.Asset(asset); err != nil {
		return err
	}
	if amount == 0 && from == to {
		_, ok, err := m.loadHolding(from, asset)
		if err != nil || ok {
			return err
		}
		return m.putRLP(holdingKey(from, asset), &holding{})
	}
	src, srcOK, err := m.loadHolding(from, asset)
	if err != nil {
		return err
	}
	if !srcOK {
		return fmt.Errorf("%w: sender not opted in to %d", ErrNotOptedIn, asset)
	}
	dst, dstOK, err := m.loadHolding(to, asset)
	if err != nil {
		return err
	}
	if !dstOK {
		return fmt.Errorf("%w: receiver not opted in to %d", ErrNotOptedIn, asset)
	}
	if src.Amount < amount {
		return fmt.Errorf("%w: holds %d of %d, need %d", ErrInsufficientAsset, src.Amount, asset, amount)
	}
	if from == to || amount == 0 {
		return nil
	}
	src.Amount -= amount
	dst.Amount += amount
	if err := m.putRLP(holdingKey(from, asset), src); err != nil {
		return err
	}
	return m.putRLP(holdingKey(to, asset), dst)
}
