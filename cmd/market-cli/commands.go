package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"escrowmarket/cmd/internal/passphrase"
	"escrowmarket/core/types"
	"escrowmarket/crypto"
	"escrowmarket/rpc"
)

var keysCommand = cli.Command{
	Name:  "keys",
	Usage: "Manage signing keys",
	Subcommands: []*cli.Command{
		{
			Name:   "new",
			Usage:  "Generate a new key",
			Flags:  []cli.Flag{nameFlag, lightScryptFlag},
			Action: keysNewAction,
		},
		{
			Name:   "import",
			Usage:  "Import a hex encoded private key",
			Flags:  []cli.Flag{nameFlag, hexFlag, lightScryptFlag},
			Action: keysImportAction,
		},
		{
			Name:   "list",
			Usage:  "List stored keys and their addresses",
			Action: keysListAction,
		},
	},
}

var mintCommand = cli.Command{
	Name:   "mint",
	Usage:  "Create a new asset owned by the key",
	Flags:  []cli.Flag{keyFlag, totalFlag, assetNameFlag, unitNameFlag, urlFlag, noteFlag},
	Action: mintAction,
}

var optInCommand = cli.Command{
	Name:   "optin",
	Usage:  "Opt the key in to receiving an asset",
	Flags:  []cli.Flag{keyFlag, assetFlag},
	Action: optInAction,
}

var listCommand = cli.Command{
	Name:   "list",
	Usage:  "Escrow one unit of an asset and list it for sale",
	Flags:  []cli.Flag{keyFlag, assetFlag, priceFlag, creatorFlag, royaltyFlag, fundingFlag},
	Action: listAction,
}

var buyCommand = cli.Command{
	Name:   "buy",
	Usage:  "Buy a listed asset at its listing price",
	Flags:  []cli.Flag{keyFlag, assetFlag, optInFlag},
	Action: buyAction,
}

var cancelCommand = cli.Command{
	Name:   "cancel",
	Usage:  "Cancel a listing and reclaim the asset and rent",
	Flags:  []cli.Flag{keyFlag, assetFlag},
	Action: cancelAction,
}

var withdrawCommand = cli.Command{
	Name:   "withdraw",
	Usage:  "Withdraw accumulated platform fees (admin only)",
	Flags:  []cli.Flag{keyFlag, amountFlag},
	Action: withdrawAction,
}

var listingCommand = cli.Command{
	Name:   "listing",
	Usage:  "Show the active listing of an asset",
	Flags:  []cli.Flag{assetFlag},
	Action: listingAction,
}

var listingsCommand = cli.Command{
	Name:   "listings",
	Usage:  "Show every active listing",
	Action: listingsAction,
}

var statsCommand = cli.Command{
	Name:   "stats",
	Usage:  "Show marketplace counters and program funds",
	Action: statsAction,
}

var accountCommand = cli.Command{
	Name:   "account",
	Usage:  "Show an account balance and optionally an asset holding",
	Flags:  []cli.Flag{addressFlag, &cli.StringFlag{Name: keyFlag.Name, Usage: keyFlag.Usage}, optionalAssetFlag},
	Action: accountAction,
}

var salesCommand = cli.Command{
	Name:   "sales",
	Usage:  "Show settled sales",
	Flags:  []cli.Flag{optionalAssetFlag, sellerFlag, buyerFlag, limitFlag},
	Action: salesAction,
}

var historyCommand = cli.Command{
	Name:   "history",
	Usage:  "Show the listing history of an asset",
	Flags:  []cli.Flag{assetFlag, limitFlag},
	Action: historyAction,
}

func keysNewAction(ctx *cli.Context) error {
	ks, err := keystoreFrom(ctx)
	if err != nil {
		return err
	}
	if ctx.Bool(lightScryptFlag.Name) {
		ks.UseLightScrypt()
	}
	pass, err := passphrase.NewSource(passEnvVar, "Enter passphrase for the new key: ").Get()
	if err != nil {
		return err
	}
	key, err := ks.Create(ctx.String(nameFlag.Name), pass)
	if err != nil {
		return err
	}
	fmt.Println(key.PubKey().Address().String())
	return nil
}

func keysImportAction(ctx *cli.Context) error {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(ctx.String(hexFlag.Name)), "0x"))
	if err != nil {
		return fmt.Errorf("invalid hex key: %w", err)
	}
	key, err := crypto.PrivateKeyFromBytes(raw)
	if err != nil {
		return err
	}
	ks, err := keystoreFrom(ctx)
	if err != nil {
		return err
	}
	if ctx.Bool(lightScryptFlag.Name) {
		ks.UseLightScrypt()
	}
	pass, err := passphrase.NewSource(passEnvVar, "Enter passphrase for the imported key: ").Get()
	if err != nil {
		return err
	}
	if err := ks.Import(ctx.String(nameFlag.Name), key, pass); err != nil {
		return err
	}
	fmt.Println(key.PubKey().Address().String())
	return nil
}

func keysListAction(ctx *cli.Context) error {
	ks, err := keystoreFrom(ctx)
	if err != nil {
		return err
	}
	names, err := ks.Names()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

// signerFor loads the key and fetches its next nonce.
func signerFor(ctx *cli.Context, client *rpcClient) (*groupSigner, error) {
	key, err := loadKey(ctx)
	if err != nil {
		return nil, err
	}
	account, err := client.account(key.PubKey().Address().String(), nil)
	if err != nil {
		return nil, err
	}
	return newGroupSigner(key, account.Nonce), nil
}

func submitAndPrint(client *rpcClient, group types.Group) error {
	result, err := client.submit(group)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func programAddress(client *rpcClient) (*rpc.MarketConfigResult, [20]byte, error) {
	cfg, err := client.marketConfig()
	if err != nil {
		return nil, [20]byte{}, err
	}
	program, err := crypto.ParseAddress(cfg.Program)
	if err != nil {
		return nil, [20]byte{}, fmt.Errorf("node reported invalid program address: %w", err)
	}
	return cfg, program, nil
}

func mintAction(ctx *cli.Context) error {
	client := clientFrom(ctx)
	signer, err := signerFor(ctx, client)
	if err != nil {
		return err
	}
	tx, err := types.NewAssetMint(0, ctx.Uint64(totalFlag.Name), types.AssetMetadata{
		Name:     ctx.String(assetNameFlag.Name),
		UnitName: ctx.String(unitNameFlag.Name),
		URL:      ctx.String(urlFlag.Name),
		Note:     ctx.String(noteFlag.Name),
	})
	if err != nil {
		return err
	}
	group, err := signer.group(tx)
	if err != nil {
		return err
	}
	return submitAndPrint(client, group)
}

func optInAction(ctx *cli.Context) error {
	client := clientFrom(ctx)
	signer, err := signerFor(ctx, client)
	if err != nil {
		return err
	}
	group, err := signer.group(types.NewOptIn(0, signer.addr, ctx.Uint64(assetFlag.Name)))
	if err != nil {
		return err
	}
	return submitAndPrint(client, group)
}

func listAction(ctx *cli.Context) error {
	client := clientFrom(ctx)
	cfg, program, err := programAddress(client)
	if err != nil {
		return err
	}
	creator, err := crypto.ParseAddress(ctx.String(creatorFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid creator: %w", err)
	}
	asset := ctx.Uint64(assetFlag.Name)
	funding := ctx.Uint64(fundingFlag.Name)
	if !ctx.IsSet(fundingFlag.Name) {
		info, err := client.asset(asset)
		if err != nil {
			return err
		}
		funding = listingFunding(cfg.ListingRent, cfg.CustodyCost, info.CustodyRegistered)
	}
	signer, err := signerFor(ctx, client)
	if err != nil {
		return err
	}
	group, err := signer.buildListGroup(program, asset, ctx.Uint64(priceFlag.Name), creator, ctx.Uint64(royaltyFlag.Name), funding)
	if err != nil {
		return err
	}
	return submitAndPrint(client, group)
}

func buyAction(ctx *cli.Context) error {
	client := clientFrom(ctx)
	_, program, err := programAddress(client)
	if err != nil {
		return err
	}
	asset := ctx.Uint64(assetFlag.Name)
	var listing rpc.ListingResult
	if err := client.call("market_getListing", rpc.AssetParams{Asset: asset}, &listing); err != nil {
		return err
	}
	signer, err := signerFor(ctx, client)
	if err != nil {
		return err
	}
	group, err := signer.buildBuyGroup(program, asset, listing.Price, ctx.Bool(optInFlag.Name))
	if err != nil {
		return err
	}
	return submitAndPrint(client, group)
}

func cancelAction(ctx *cli.Context) error {
	return singleCall(ctx, types.MethodCancelListing, types.MarketCall{Asset: ctx.Uint64(assetFlag.Name)})
}

func withdrawAction(ctx *cli.Context) error {
	return singleCall(ctx, types.MethodAdminWithdraw, types.MarketCall{Amount: ctx.Uint64(amountFlag.Name)})
}

func singleCall(ctx *cli.Context, method string, call types.MarketCall) error {
	client := clientFrom(ctx)
	signer, err := signerFor(ctx, client)
	if err != nil {
		return err
	}
	tx, err := signer.appCall(method, call)
	if err != nil {
		return err
	}
	group, err := signer.group(tx)
	if err != nil {
		return err
	}
	return submitAndPrint(client, group)
}

func listingAction(ctx *cli.Context) error {
	var out rpc.ListingResult
	if err := clientFrom(ctx).call("market_getListing", rpc.AssetParams{Asset: ctx.Uint64(assetFlag.Name)}, &out); err != nil {
		return err
	}
	return printJSON(out)
}

func listingsAction(ctx *cli.Context) error {
	var out []rpc.ListingResult
	if err := clientFrom(ctx).call("market_listings", nil, &out); err != nil {
		return err
	}
	return printJSON(out)
}

func statsAction(ctx *cli.Context) error {
	var out map[string]interface{}
	if err := clientFrom(ctx).call("market_stats", nil, &out); err != nil {
		return err
	}
	return printJSON(out)
}

func accountAction(ctx *cli.Context) error {
	address := strings.TrimSpace(ctx.String(addressFlag.Name))
	if address == "" {
		if ctx.String(keyFlag.Name) == "" {
			return fmt.Errorf("either --address or --key is required")
		}
		key, err := loadKey(ctx)
		if err != nil {
			return err
		}
		address = key.PubKey().Address().String()
	}
	var asset *uint64
	if ctx.IsSet(optionalAssetFlag.Name) {
		id := ctx.Uint64(optionalAssetFlag.Name)
		asset = &id
	}
	out, err := clientFrom(ctx).account(address, asset)
	if err != nil {
		return err
	}
	return printJSON(out)
}

func salesAction(ctx *cli.Context) error {
	params := rpc.SalesParams{
		Seller: ctx.String(sellerFlag.Name),
		Buyer:  ctx.String(buyerFlag.Name),
		Limit:  ctx.Int(limitFlag.Name),
	}
	if ctx.IsSet(optionalAssetFlag.Name) {
		id := ctx.Uint64(optionalAssetFlag.Name)
		params.Asset = &id
	}
	var out []rpc.SaleResult
	if err := clientFrom(ctx).call("market_sales", params, &out); err != nil {
		return err
	}
	return printJSON(out)
}

func historyAction(ctx *cli.Context) error {
	params := rpc.HistoryParams{Asset: ctx.Uint64(assetFlag.Name), Limit: ctx.Int(limitFlag.Name)}
	var out []rpc.HistoryEntry
	if err := clientFrom(ctx).call("market_history", params, &out); err != nil {
		return err
	}
	return printJSON(out)
}
