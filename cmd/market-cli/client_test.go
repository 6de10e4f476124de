package main

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"escrowmarket/core"
	"escrowmarket/core/genesis"
	"escrowmarket/core/types"
	"escrowmarket/crypto"
	"escrowmarket/native/market"
	"escrowmarket/rpc"
	"escrowmarket/storage"
)

type cliFixture struct {
	client                  *rpcClient
	program                 [20]byte
	seller, buyer, admin    *crypto.PrivateKey
	sellerAddr, creatorAddr [20]byte
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	newKey := func() *crypto.PrivateKey {
		key, err := crypto.GeneratePrivateKey()
		require.NoError(t, err)
		return key
	}
	seller, buyer, admin, creator := newKey(), newKey(), newKey(), newKey()
	spec := &genesis.Spec{Alloc: []genesis.Alloc{
		{Address: seller.PubKey().Address().String(), Balance: 1_000_000},
		{Address: buyer.PubKey().Address().String(), Balance: 1_000_000},
	}}
	cfg := market.DefaultConfig(admin.PubKey().Address().Raw(), market.ProgramAddress("cli-test"))
	node, err := core.NewNode(storage.NewMemDB(), cfg, spec)
	require.NoError(t, err)
	t.Cleanup(node.Close)

	srv := httptest.NewServer(rpc.NewServer(node, nil, rpc.ServerConfig{}, nil).Handler())
	t.Cleanup(srv.Close)

	return &cliFixture{
		client:      newRPCClient(srv.URL + "/rpc"),
		program:     cfg.Program,
		seller:      seller,
		buyer:       buyer,
		admin:       admin,
		sellerAddr:  seller.PubKey().Address().Raw(),
		creatorAddr: creator.PubKey().Address().Raw(),
	}
}

func (f *cliFixture) signer(t *testing.T, key *crypto.PrivateKey) *groupSigner {
	t.Helper()
	account, err := f.client.account(key.PubKey().Address().String(), nil)
	require.NoError(t, err)
	return newGroupSigner(key, account.Nonce)
}

func TestListingFunding(t *testing.T) {
	require.EqualValues(t, 128_100, listingFunding(28_100, 100_000, false))
	require.EqualValues(t, 28_100, listingFunding(28_100, 100_000, true))
}

func TestGroupSignerAssignsConsecutiveNonces(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	signer := newGroupSigner(key, 7)
	group, err := signer.buildBuyGroup([20]byte{1}, 3, 500, true)
	require.NoError(t, err)
	require.Len(t, group, 3)
	for i, tx := range group {
		require.EqualValues(t, 7+i, tx.Nonce)
		sender, err := tx.Sender()
		require.NoError(t, err)
		require.Equal(t, signer.addr, sender)
	}
	require.NoError(t, group.Validate())
	require.NotEqual(t, [32]byte{}, group[0].Group)
	require.Equal(t, group[0].Group, group[2].Group)
	require.Equal(t, types.TxTypeAssetTransfer, group[0].Type)
	require.Equal(t, types.TxTypePayment, group[1].Type)
	require.Equal(t, types.MethodBuyAsset, group[2].Method)
}

func TestClientListAndBuyFlow(t *testing.T) {
	f := newCLIFixture(t)

	cfg, err := f.client.marketConfig()
	require.NoError(t, err)
	require.Equal(t, crypto.FormatAddress(f.program), cfg.Program)

	seller := f.signer(t, f.seller)
	mintTx, err := types.NewAssetMint(0, 1, types.AssetMetadata{Name: "Dune Study", UnitName: "DUNE", URL: "ipfs://bafybeigdyrzt"})
	require.NoError(t, err)
	mint, err := seller.group(mintTx)
	require.NoError(t, err)
	minted, err := f.client.submit(mint)
	require.NoError(t, err)
	require.Len(t, minted.Assets, 1)
	asset := minted.Assets[0]

	info, err := f.client.asset(asset)
	require.NoError(t, err)
	require.False(t, info.CustodyRegistered)
	require.Equal(t, "Dune Study", info.Name)
	require.Equal(t, "DUNE", info.UnitName)
	require.Equal(t, "ipfs://bafybeigdyrzt", info.URL)

	funding := listingFunding(cfg.ListingRent, cfg.CustodyCost, info.CustodyRegistered)
	list, err := seller.buildListGroup(f.program, asset, 400_000, f.creatorAddr, 250, funding)
	require.NoError(t, err)
	_, err = f.client.submit(list)
	require.NoError(t, err)

	var listing rpc.ListingResult
	require.NoError(t, f.client.call("market_getListing", rpc.AssetParams{Asset: asset}, &listing))
	require.EqualValues(t, 400_000, listing.Price)

	buyer := f.signer(t, f.buyer)
	buy, err := buyer.buildBuyGroup(f.program, asset, listing.Price, true)
	require.NoError(t, err)
	result, err := f.client.submit(buy)
	require.NoError(t, err)
	require.NotEmpty(t, result.Events)
	require.Equal(t, market.EventTypeSold, result.Events[len(result.Events)-1].Type)

	var callErr *callError
	err = f.client.call("market_getListing", rpc.AssetParams{Asset: asset}, nil)
	require.True(t, errors.As(err, &callErr))
	require.Equal(t, "NotListed", callErr.Reason)
}

func TestClientSurfacesRejectionReason(t *testing.T) {
	f := newCLIFixture(t)
	admin := f.signer(t, f.admin)
	tx, err := admin.appCall(types.MethodAdminWithdraw, types.MarketCall{Amount: 1})
	require.NoError(t, err)
	group, err := admin.group(tx)
	require.NoError(t, err)

	_, err = f.client.submit(group)
	var callErr *callError
	require.True(t, errors.As(err, &callErr))
	require.Equal(t, "InsufficientBalance", callErr.Reason)
}
