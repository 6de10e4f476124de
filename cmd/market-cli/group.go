package main

import (
	"fmt"

	"escrowmarket/core/types"
	"escrowmarket/crypto"
)

// groupSigner assigns consecutive nonces to the transactions of one group.
type groupSigner struct {
	key   *crypto.PrivateKey
	addr  [20]byte
	nonce uint64
}

func newGroupSigner(key *crypto.PrivateKey, nonce uint64) *groupSigner {
	return &groupSigner{key: key, addr: key.PubKey().Address().Raw(), nonce: nonce}
}

// group numbers the transactions, stamps the group id into each and signs
// them. Nonces are only consumed once every member is signed.
func (s *groupSigner) group(txs ...*types.Transaction) (types.Group, error) {
	out := types.Group(txs)
	for i, tx := range out {
		tx.Nonce = s.nonce + uint64(i)
	}
	if err := out.Seal(); err != nil {
		return nil, fmt.Errorf("seal group: %w", err)
	}
	for i, tx := range out {
		if err := tx.Sign(s.key.PrivateKey); err != nil {
			return nil, fmt.Errorf("sign transaction %d: %w", i, err)
		}
	}
	s.nonce += uint64(len(out))
	return out, nil
}

func (s *groupSigner) appCall(method string, call types.MarketCall) (*types.Transaction, error) {
	return types.NewAppCall(0, method, call)
}

// listingFunding returns the payment a listing must carry.
func listingFunding(rent, custody uint64, custodyRegistered bool) uint64 {
	if custodyRegistered {
		return rent
	}
	return rent + custody
}

// buildListGroup returns the asset transfer, funding payment and list call
// in the order the program consumes them.
func (s *groupSigner) buildListGroup(program [20]byte, asset, price uint64, creator [20]byte, royaltyBps, funding uint64) (types.Group, error) {
	call, err := s.appCall(types.MethodListAsset, types.MarketCall{
		Asset:      asset,
		Price:      price,
		Creator:    creator,
		RoyaltyBps: royaltyBps,
	})
	if err != nil {
		return nil, err
	}
	return s.group(
		types.NewAssetTransfer(0, program, asset, 1),
		types.NewPayment(0, program, funding),
		call,
	)
}

// buildBuyGroup returns the payment and buy call. When optIn is set the
// buyer's opt-in is prepended.
func (s *groupSigner) buildBuyGroup(program [20]byte, asset, price uint64, optIn bool) (types.Group, error) {
	call, err := s.appCall(types.MethodBuyAsset, types.MarketCall{Asset: asset})
	if err != nil {
		return nil, err
	}
	txs := []*types.Transaction{types.NewPayment(0, program, price), call}
	if optIn {
		txs = append([]*types.Transaction{types.NewOptIn(0, s.addr, asset)}, txs...)
	}
	return s.group(txs...)
}
