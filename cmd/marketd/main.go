package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"escrowmarket/config"
	"escrowmarket/core"
	"escrowmarket/crypto"
	"escrowmarket/indexer"
	"escrowmarket/observability"
	"escrowmarket/observability/logging"
	"escrowmarket/rpc"
	"escrowmarket/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var logOpts []logging.Option
	if cfg.LogFile != "" {
		logOpts = append(logOpts, logging.WithFile(cfg.LogFile, 100, 5))
	}
	logger := logging.Setup("marketd", cfg.Env, logOpts...)

	if err := run(cfg, logger); err != nil {
		logger.Error("marketd stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	marketCfg, err := cfg.MarketConfig()
	if err != nil {
		return err
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	node, err := core.NewNode(db, marketCfg, cfg.GenesisSpec())
	if err != nil {
		db.Close()
		return fmt.Errorf("create node: %w", err)
	}
	defer node.Close()

	listings, err := node.Listings()
	if err != nil {
		return fmt.Errorf("load listings: %w", err)
	}
	node.Subscribe(observability.NewEventRecorder(observability.Market(), len(listings)))

	var history rpc.HistorySource
	if cfg.Indexer.Enabled {
		historyDB, err := indexer.Open(cfg.Indexer.DSN)
		if err != nil {
			return err
		}
		ix := indexer.New(historyDB, logger.With("component", "indexer"))
		node.Subscribe(ix)
		history = ix
	}

	logger.Info("marketplace program deployed",
		"program", crypto.FormatAddress(marketCfg.Program),
		"admin", crypto.FormatAddress(marketCfg.Admin),
		"platformFeeBps", marketCfg.PlatformFeeBps,
		"listingRent", marketCfg.Rent.ListingCost(),
		"custodyCost", marketCfg.Rent.CustodyCost,
		"activeListings", len(listings))

	server := rpc.NewServer(node, history, rpc.ServerConfig{
		RequestsPerMinute: float64(cfg.RPC.RequestsPerMinute),
		Burst:             cfg.RPC.Burst,
		ReadHeaderTimeout: time.Duration(cfg.RPC.ReadHeaderTimeout) * time.Second,
	}, logger.With("component", "rpc"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Serve(ctx, cfg.ListenAddress); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("marketd shut down")
	return nil
}
