package core

import (
	"errors"
	"testing"

	"escrowmarket/core/events"
	"escrowmarket/core/genesis"
	ledger "escrowmarket/core/state"
	"escrowmarket/core/types"
	"escrowmarket/crypto"
	"escrowmarket/native/market"
	"escrowmarket/storage"
)

type actor struct {
	t     *testing.T
	key   *crypto.PrivateKey
	addr  [20]byte
	nonce uint64
}

func newActor(t *testing.T) *actor {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return &actor{t: t, key: key, addr: key.PubKey().Address().Raw()}
}

// sign assigns the next nonce to tx and signs it.
func (a *actor) sign(tx *types.Transaction) *types.Transaction {
	a.t.Helper()
	tx.Nonce = a.nonce
	a.nonce++
	if err := tx.Sign(a.key.PrivateKey); err != nil {
		a.t.Fatalf("sign: %v", err)
	}
	return tx
}

func (a *actor) call(method string, call types.MarketCall) *types.Transaction {
	a.t.Helper()
	tx, err := types.NewAppCall(0, method, call)
	if err != nil {
		a.t.Fatalf("build call: %v", err)
	}
	return a.sign(tx)
}

type recordingEmitter struct {
	events []events.Event
}

func (r *recordingEmitter) Emit(evt events.Event) { r.events = append(r.events, evt) }

type marketFixture struct {
	node                          *Node
	cfg                           market.Config
	admin, seller, buyer, creator *actor
	emitted                       *recordingEmitter
}

func newMarketFixture(t *testing.T) *marketFixture {
	t.Helper()
	admin, seller, buyer, creator := newActor(t), newActor(t), newActor(t), newActor(t)
	spec := &genesis.Spec{Alloc: []genesis.Alloc{
		{Address: crypto.FormatAddress(admin.addr), Balance: 1_000_000},
		{Address: crypto.FormatAddress(seller.addr), Balance: 1_000_000},
		{Address: crypto.FormatAddress(buyer.addr), Balance: 5_000_000},
	}}
	cfg := market.DefaultConfig(admin.addr, market.ProgramAddress("test"))
	db := storage.NewMemDB()
	node, err := NewNode(db, cfg, spec)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	t.Cleanup(node.Close)
	emitted := &recordingEmitter{}
	node.Subscribe(emitted)
	return &marketFixture{node: node, cfg: cfg, admin: admin, seller: seller, buyer: buyer, creator: creator, emitted: emitted}
}

// bind stamps the group id into every member and re-signs each with the key
// of its sender. Unsigned members are left untouched.
func (f *marketFixture) bind(t *testing.T, txs ...*types.Transaction) types.Group {
	t.Helper()
	group := types.Group(txs)
	signers := make([]*actor, len(group))
	for i, tx := range group {
		sender, err := tx.Sender()
		if err != nil {
			return group
		}
		for _, a := range []*actor{f.admin, f.seller, f.buyer, f.creator} {
			if a.addr == sender {
				signers[i] = a
			}
		}
		if signers[i] == nil {
			t.Fatalf("tx %d signed by unknown key", i)
		}
	}
	if err := group.Seal(); err != nil {
		t.Fatalf("seal: %v", err)
	}
	for i, tx := range group {
		if err := tx.Sign(signers[i].key.PrivateKey); err != nil {
			t.Fatalf("sign: %v", err)
		}
	}
	return group
}

func (f *marketFixture) submit(t *testing.T, group ...*types.Transaction) *GroupResult {
	t.Helper()
	result, err := f.node.SubmitGroup(f.bind(t, group...))
	if err != nil {
		t.Fatalf("submit group: %v", err)
	}
	return result
}

func (f *marketFixture) mint(t *testing.T, owner *actor) uint64 {
	t.Helper()
	result := f.submit(t, owner.sign(types.NewAssetCreate(0, 1)))
	if len(result.Assets) != 1 {
		t.Fatalf("expected one created asset, got %v", result.Assets)
	}
	return result.Assets[0]
}

func (f *marketFixture) listGroup(seller *actor, asset, price, royaltyBps, funding uint64) types.Group {
	program := f.cfg.Program
	return types.Group{
		seller.sign(types.NewAssetTransfer(0, program, asset, 1)),
		seller.sign(types.NewPayment(0, program, funding)),
		seller.call(types.MethodListAsset, types.MarketCall{Asset: asset, Price: price, Creator: f.creator.addr, RoyaltyBps: royaltyBps}),
	}
}

func firstFunding(cfg market.Config) uint64 {
	return cfg.Rent.CustodyCost + cfg.Rent.ListingCost()
}

func TestMarketplaceEndToEnd(t *testing.T) {
	f := newMarketFixture(t)
	asset := f.mint(t, f.seller)
	f.submit(t, f.buyer.sign(types.NewOptIn(0, f.buyer.addr, asset)))

	const price = 1_000_000
	rent := f.cfg.Rent.ListingCost()
	f.submit(t, f.listGroup(f.seller, asset, price, 500, firstFunding(f.cfg))...)

	listing, err := f.node.Listing(asset)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if listing.Seller != f.seller.addr || listing.Price != price || listing.RoyaltyBps != 500 {
		t.Fatalf("unexpected listing %+v", listing)
	}
	if held, _, _ := f.node.AssetBalance(f.cfg.Program, asset); held != 1 {
		t.Fatalf("program should hold the unit, holds %d", held)
	}

	result := f.submit(t,
		f.buyer.sign(types.NewPayment(0, f.cfg.Program, price)),
		f.buyer.call(types.MethodBuyAsset, types.MarketCall{Asset: asset}),
	)
	if len(result.Events) != 1 || result.Events[0].Type != market.EventTypeSold {
		t.Fatalf("unexpected events %+v", result.Events)
	}

	seller, _ := f.node.Account(f.seller.addr)
	if seller.Balance != 1_000_000-firstFunding(f.cfg)+940_000+rent {
		t.Fatalf("seller balance %d", seller.Balance)
	}
	creator, _ := f.node.Account(f.creator.addr)
	if creator.Balance != 50_000 {
		t.Fatalf("creator balance %d", creator.Balance)
	}
	buyer, _ := f.node.Account(f.buyer.addr)
	if buyer.Balance != 5_000_000-price || buyer.Nonce != 3 {
		t.Fatalf("buyer %+v", buyer)
	}
	if held, _, _ := f.node.AssetBalance(f.buyer.addr, asset); held != 1 {
		t.Fatalf("buyer should hold the unit")
	}
	if _, err := f.node.Listing(asset); !errors.Is(err, market.ErrNotListed) {
		t.Fatalf("listing must be gone, got %v", err)
	}

	stats, err := f.node.MarketStats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Sold != 1 || stats.Volume != price || stats.PlatformFees != 10_000 || stats.RoyaltiesPaid != 50_000 {
		t.Fatalf("unexpected counters %+v", stats)
	}
	if stats.Withdrawable != 10_000 || stats.Reserved != f.cfg.Rent.CustodyCost || stats.ActiveListings != 0 {
		t.Fatalf("unexpected program funds %+v", stats)
	}

	// The admin can take the platform fee but nothing reserved.
	_, err = f.node.SubmitGroup(f.bind(t, f.admin.call(types.MethodAdminWithdraw, types.MarketCall{Amount: 10_001})))
	if err == nil {
		t.Fatalf("withdrawal into reserved funds must fail")
	}
	f.admin.nonce--
	f.submit(t, f.admin.call(types.MethodAdminWithdraw, types.MarketCall{Amount: 10_000}))
	admin, _ := f.node.Account(f.admin.addr)
	if admin.Balance != 1_010_000 {
		t.Fatalf("admin balance %d", admin.Balance)
	}
}

func TestRejectedGroupLeavesNoTrace(t *testing.T) {
	f := newMarketFixture(t)
	asset := f.mint(t, f.seller)
	f.submit(t, f.buyer.sign(types.NewOptIn(0, f.buyer.addr, asset)))
	f.submit(t, f.listGroup(f.seller, asset, 1_000, 500, firstFunding(f.cfg))...)

	before, _ := f.node.Account(f.buyer.addr)
	eventsBefore := len(f.emitted.events)

	_, err := f.node.SubmitGroup(f.bind(t,
		f.buyer.sign(types.NewPayment(0, f.cfg.Program, 999)),
		f.buyer.call(types.MethodBuyAsset, types.MarketCall{Asset: asset}),
	))
	if !errors.Is(err, market.ErrPaymentMismatch) {
		t.Fatalf("expected ErrPaymentMismatch, got %v", err)
	}
	f.buyer.nonce -= 2

	after, _ := f.node.Account(f.buyer.addr)
	if *after != *before {
		t.Fatalf("rejected group changed buyer: %+v -> %+v", before, after)
	}
	if len(f.emitted.events) != eventsBefore {
		t.Fatalf("rejected group delivered events")
	}
	if _, err := f.node.Listing(asset); err != nil {
		t.Fatalf("listing must survive: %v", err)
	}

	// The same buyer can still complete the purchase with the right amount.
	f.submit(t,
		f.buyer.sign(types.NewPayment(0, f.cfg.Program, 1_000)),
		f.buyer.call(types.MethodBuyAsset, types.MarketCall{Asset: asset}),
	)
}

func TestBuyerMustOptIn(t *testing.T) {
	f := newMarketFixture(t)
	asset := f.mint(t, f.seller)
	f.submit(t, f.listGroup(f.seller, asset, 1_000, 0, firstFunding(f.cfg))...)

	_, err := f.node.SubmitGroup(f.bind(t,
		f.buyer.sign(types.NewPayment(0, f.cfg.Program, 1_000)),
		f.buyer.call(types.MethodBuyAsset, types.MarketCall{Asset: asset}),
	))
	if !errors.Is(err, ledger.ErrNotOptedIn) {
		t.Fatalf("expected ErrNotOptedIn, got %v", err)
	}
	f.buyer.nonce -= 2

	// Opting in within the same group is enough.
	f.submit(t,
		f.buyer.sign(types.NewOptIn(0, f.buyer.addr, asset)),
		f.buyer.sign(types.NewPayment(0, f.cfg.Program, 1_000)),
		f.buyer.call(types.MethodBuyAsset, types.MarketCall{Asset: asset}),
	)
}

func TestWrongArgumentTypeIsRejected(t *testing.T) {
	f := newMarketFixture(t)
	asset := f.mint(t, f.seller)
	program := f.cfg.Program

	_, err := f.node.SubmitGroup(f.bind(t,
		f.seller.sign(types.NewPayment(0, program, 1)),
		f.seller.sign(types.NewPayment(0, program, firstFunding(f.cfg))),
		f.seller.call(types.MethodListAsset, types.MarketCall{Asset: asset, Price: 10}),
	))
	if !errors.Is(err, market.ErrInvalidAssetTransfer) {
		t.Fatalf("expected ErrInvalidAssetTransfer, got %v", err)
	}
	f.seller.nonce -= 3

	_, err = f.node.SubmitGroup(f.bind(t,
		f.seller.sign(types.NewPayment(0, program, firstFunding(f.cfg))),
		f.seller.call(types.MethodListAsset, types.MarketCall{Asset: asset, Price: 10}),
	))
	if !errors.Is(err, market.ErrInvalidAssetTransfer) {
		t.Fatalf("expected ErrInvalidAssetTransfer for a missing transfer, got %v", err)
	}
}

func TestCancelRestoresSeller(t *testing.T) {
	f := newMarketFixture(t)
	asset := f.mint(t, f.seller)
	f.submit(t, f.listGroup(f.seller, asset, 1_000, 0, firstFunding(f.cfg))...)

	if _, err := f.node.SubmitGroup(f.bind(t, f.buyer.call(types.MethodCancelListing, types.MarketCall{Asset: asset}))); !errors.Is(err, market.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	f.buyer.nonce--

	f.submit(t, f.seller.call(types.MethodCancelListing, types.MarketCall{Asset: asset}))
	seller, _ := f.node.Account(f.seller.addr)
	if seller.Balance != 1_000_000-f.cfg.Rent.CustodyCost {
		t.Fatalf("seller should only be out the custody cost, balance %d", seller.Balance)
	}
	if held, _, _ := f.node.AssetBalance(f.seller.addr, asset); held != 1 {
		t.Fatalf("asset not returned")
	}

	// Relisting only needs the rent now that custody exists.
	f.submit(t, f.listGroup(f.seller, asset, 2_000, 0, f.cfg.Rent.ListingCost())...)
}

func TestNonceReplayRejected(t *testing.T) {
	f := newMarketFixture(t)
	tx := f.seller.sign(types.NewPayment(0, f.buyer.addr, 10))
	f.submit(t, tx)
	if _, err := f.node.SubmitGroup(types.Group{tx}); !errors.Is(err, ledger.ErrNonceMismatch) {
		t.Fatalf("expected ErrNonceMismatch, got %v", err)
	}
}

func TestUnsignedGroupRejected(t *testing.T) {
	f := newMarketFixture(t)
	if _, err := f.node.SubmitGroup(types.Group{types.NewPayment(0, f.buyer.addr, 1)}); !errors.Is(err, types.ErrMissingSignature) {
		t.Fatalf("expected ErrMissingSignature, got %v", err)
	}
	if _, err := f.node.SubmitGroup(nil); !errors.Is(err, types.ErrEmptyGroup) {
		t.Fatalf("expected ErrEmptyGroup, got %v", err)
	}
}

func TestGroupMemberCannotBeSubmittedAlone(t *testing.T) {
	f := newMarketFixture(t)
	asset := f.mint(t, f.seller)
	f.submit(t, f.buyer.sign(types.NewOptIn(0, f.buyer.addr, asset)))
	f.submit(t, f.listGroup(f.seller, asset, 1_000, 0, firstFunding(f.cfg))...)

	purchase := f.bind(t,
		f.buyer.sign(types.NewPayment(0, f.cfg.Program, 1_000)),
		f.buyer.call(types.MethodBuyAsset, types.MarketCall{Asset: asset}),
	)
	before, _ := f.node.Account(f.buyer.addr)
	statsBefore, _ := f.node.MarketStats()

	if _, err := f.node.SubmitGroup(types.Group{purchase[0]}); !errors.Is(err, types.ErrGroupMismatch) {
		t.Fatalf("expected ErrGroupMismatch for a lone payment, got %v", err)
	}
	if _, err := f.node.SubmitGroup(types.Group{purchase[1], purchase[0]}); !errors.Is(err, types.ErrGroupMismatch) {
		t.Fatalf("expected ErrGroupMismatch for reordered members, got %v", err)
	}

	after, _ := f.node.Account(f.buyer.addr)
	if *after != *before {
		t.Fatalf("split group changed buyer: %+v -> %+v", before, after)
	}
	statsAfter, _ := f.node.MarketStats()
	if statsAfter.Withdrawable != statsBefore.Withdrawable {
		t.Fatalf("program funds moved: %d -> %d", statsBefore.Withdrawable, statsAfter.Withdrawable)
	}
	if _, err := f.node.Listing(asset); err != nil {
		t.Fatalf("listing must stay active: %v", err)
	}

	// The intact group still executes with the nonces it was signed with.
	if _, err := f.node.SubmitGroup(purchase); err != nil {
		t.Fatalf("intact purchase: %v", err)
	}
	if held, _, _ := f.node.AssetBalance(f.buyer.addr, asset); held != 1 {
		t.Fatalf("buyer should hold the unit")
	}
}

func TestMintStoresMetadata(t *testing.T) {
	f := newMarketFixture(t)
	tx, err := types.NewAssetMint(0, 1, types.AssetMetadata{
		Name:     "Harbor at Dusk",
		UnitName: "HARBOR",
		URL:      "ipfs://bafkreihdwdcefgh4dqkjv67uzcmw7o",
		Note:     `{"standard":"arc69","mime_type":"image/png"}`,
	})
	if err != nil {
		t.Fatalf("build mint: %v", err)
	}
	result := f.submit(t, f.seller.sign(tx))
	info, err := f.node.Asset(result.Assets[0])
	if err != nil {
		t.Fatalf("asset: %v", err)
	}
	if info.Name != "Harbor at Dusk" || info.UnitName != "HARBOR" || info.URL != "ipfs://bafkreihdwdcefgh4dqkjv67uzcmw7o" {
		t.Fatalf("unexpected metadata %+v", info)
	}
	if info.Note != `{"standard":"arc69","mime_type":"image/png"}` {
		t.Fatalf("note %q", info.Note)
	}

	bad := types.NewAssetCreate(0, 1)
	bad.Args = []byte{0xff}
	if _, err := f.node.SubmitGroup(types.Group{f.seller.sign(bad)}); !errors.Is(err, types.ErrInvalidAssetMetadata) {
		t.Fatalf("expected ErrInvalidAssetMetadata, got %v", err)
	}
}
