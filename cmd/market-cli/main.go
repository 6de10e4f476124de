package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"escrowmarket/cmd/internal/passphrase"
	"escrowmarket/crypto"
)

const (
	rpcURLEnvVar   = "MARKET_RPC_URL"
	keystoreEnvVar = "MARKET_KEYSTORE"
	passEnvVar     = "MARKET_KEY_PASS"
)

var Version = "dev"

func main() {
	app := cli.NewApp()
	app.Version = Version
	app.Name = "market-cli"
	app.Usage = "escrow marketplace command line interface"
	app.Flags = []cli.Flag{rpcFlag, keystoreFlag}
	app.Commands = append(
		app.Commands,
		&keysCommand,
		&mintCommand,
		&optInCommand,
		&listCommand,
		&buyCommand,
		&cancelCommand,
		&withdrawCommand,
		&listingCommand,
		&listingsCommand,
		&statsCommand,
		&accountCommand,
		&salesCommand,
		&historyCommand,
	)

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("error: %v", err))
		os.Exit(1)
	}
}

var (
	rpcFlag = &cli.StringFlag{
		Name:    "rpc",
		Usage:   "JSON-RPC endpoint of the marketplace node",
		Value:   "http://127.0.0.1:8080/rpc",
		EnvVars: []string{rpcURLEnvVar},
	}
	keystoreFlag = &cli.StringFlag{
		Name:    "keystore",
		Usage:   "directory holding named keys",
		Value:   "./keys",
		EnvVars: []string{keystoreEnvVar},
	}
	keyFlag = &cli.StringFlag{
		Name:     "key",
		Usage:    "name of the signing key in the keystore",
		Required: true,
	}
	nameFlag = &cli.StringFlag{
		Name:     "name",
		Usage:    "name of the key",
		Required: true,
	}
	hexFlag = &cli.StringFlag{
		Name:     "hex",
		Usage:    "hex encoded secp256k1 private key",
		Required: true,
	}
	lightScryptFlag = &cli.BoolFlag{
		Name:  "light",
		Usage: "use a fast key derivation (development keys only)",
	}
	assetFlag = &cli.Uint64Flag{
		Name:     "asset",
		Usage:    "asset id",
		Required: true,
	}
	optionalAssetFlag = &cli.Uint64Flag{
		Name:  "asset",
		Usage: "restrict to this asset id",
	}
	priceFlag = &cli.Uint64Flag{
		Name:     "price",
		Usage:    "sale price in base units",
		Required: true,
	}
	creatorFlag = &cli.StringFlag{
		Name:     "creator",
		Usage:    "address receiving royalties",
		Required: true,
	}
	royaltyFlag = &cli.Uint64Flag{
		Name:  "royalty-bps",
		Usage: "creator royalty in basis points",
	}
	fundingFlag = &cli.Uint64Flag{
		Name:  "funding",
		Usage: "override the rent and custody funding sent with the listing",
	}
	totalFlag = &cli.Uint64Flag{
		Name:  "total",
		Usage: "total supply of the minted asset",
		Value: 1,
	}
	assetNameFlag = &cli.StringFlag{
		Name:  "asset-name",
		Usage: "display name of the minted asset",
	}
	unitNameFlag = &cli.StringFlag{
		Name:  "unit-name",
		Usage: "short unit name of the minted asset",
	}
	urlFlag = &cli.StringFlag{
		Name:  "url",
		Usage: "content location, e.g. ipfs://<cid>",
	}
	noteFlag = &cli.StringFlag{
		Name:  "note",
		Usage: "JSON metadata note stored with the asset",
	}
	amountFlag = &cli.Uint64Flag{
		Name:     "amount",
		Usage:    "amount in base units",
		Required: true,
	}
	optInFlag = &cli.BoolFlag{
		Name:  "opt-in",
		Usage: "opt in to the asset in the same group",
	}
	addressFlag = &cli.StringFlag{
		Name:  "address",
		Usage: "account address (defaults to the --key account)",
	}
	sellerFlag = &cli.StringFlag{
		Name:  "seller",
		Usage: "filter by seller address",
	}
	buyerFlag = &cli.StringFlag{
		Name:  "buyer",
		Usage: "filter by buyer address",
	}
	limitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: "maximum number of entries",
	}
)

func clientFrom(ctx *cli.Context) *rpcClient {
	return newRPCClient(ctx.String(rpcFlag.Name))
}

func keystoreFrom(ctx *cli.Context) (*crypto.Keystore, error) {
	return crypto.NewKeystore(ctx.String(keystoreFlag.Name))
}

func loadKey(ctx *cli.Context) (*crypto.PrivateKey, error) {
	ks, err := keystoreFrom(ctx)
	if err != nil {
		return nil, err
	}
	pass, err := passphrase.NewSource(passEnvVar, "Enter keystore passphrase: ").Get()
	if err != nil {
		return nil, err
	}
	return ks.Load(ctx.String(keyFlag.Name), pass)
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
