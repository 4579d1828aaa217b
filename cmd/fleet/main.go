package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Projectsniper82/sniperlab-sub000/internal/amm"
	"github.com/Projectsniper82/sniperlab-sub000/internal/bot"
	"github.com/Projectsniper82/sniperlab-sub000/internal/config"
	"github.com/Projectsniper82/sniperlab-sub000/internal/constants"
	"github.com/Projectsniper82/sniperlab-sub000/internal/funding"
	"github.com/Projectsniper82/sniperlab-sub000/internal/history"
	"github.com/Projectsniper82/sniperlab-sub000/internal/ledger"
	"github.com/Projectsniper82/sniperlab-sub000/internal/server"
	"github.com/Projectsniper82/sniperlab-sub000/internal/wallet"
	"github.com/Projectsniper82/sniperlab-sub000/internal/walletstore"
)

func loadEnv(logger *logrus.Logger) {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Redis backs the encrypted wallet store.
	rclient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   0,
	})
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	walletStore, err := walletstore.NewStore(rclient)
	if err != nil {
		logger.WithError(err).Fatal("failed to create wallet store")
	}

	// ClickHouse trade history is optional; the simulator runs without it.
	var hist *history.Store
	if cfg.ClickHouseAddr != "" {
		h, err := history.NewStore(ctx, history.Config{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			logger.WithError(err).Warn("clickhouse unavailable, trade history disabled")
		} else {
			hist = h
			defer func() {
				_ = hist.Close()
			}()
		}
	}

	pool := amm.New(logger)
	trades := bot.NewTradeContext(pool, hist, cfg.PoolFeeBps, decimal.NewFromFloat(cfg.SlippagePct), 0)

	defaultStrategy, err := bot.ForKind(bot.KindRandomSwap, trades)
	if err != nil {
		logger.WithError(err).Fatal("failed to build default strategy")
	}

	registry := bot.NewRegistry(bot.RegistryConfig{
		DefaultInterval: cfg.BotInterval,
		DefaultStrategy: defaultStrategy,
		Logger:          logger,
	})
	defer registry.Close()

	worker, err := funding.NewWorker(funding.WorkerConfig{
		LedgerFactory: ledgerFactory(cfg, logger),
		WalletCount:   cfg.FundingWalletCount,
		Logger:        logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create funding worker")
	}
	go func() {
		_ = worker.Run(ctx)
	}()

	feed := server.NewFundingFeed()
	go pumpFundingEvents(ctx, cfg, logger, worker, feed, registry, walletStore)

	h := &server.Handlers{
		Bots:        registry,
		Pool:        pool,
		Trades:      trades,
		Funding:     worker,
		Feed:        feed,
		Wallets:     walletStore,
		History:     hist,
		Network:     cfg.Network,
		SlippagePct: decimal.NewFromFloat(cfg.SlippagePct),
		DevMode:     cfg.DevMode,
		Logger:      logger,
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.APIAddr,
			DevMode: cfg.DevMode,
			APIKey:  cfg.APIKey,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
		_ = srv.Shutdown(context.Background())
	}()

	logger.WithField("addr", cfg.APIAddr).Info("fleet server starting")
	if err := srv.Start(); err != nil {
		if err.Error() == "http: Server closed" {
			return
		}
		logger.WithError(err).Fatal("fleet server failed")
	}

	if err := srv.WaitClosed(context.Background()); err != nil {
		fmt.Println(err)
	}
}

// ledgerFactory resolves a funding command's target network to an RPC-backed
// ledger client. An explicit endpoint in the command wins; otherwise the
// network's well-known endpoint is used, falling back to the configured URL.
func ledgerFactory(cfg *config.Config, logger *logrus.Logger) funding.LedgerFactory {
	return func(network, rpcEndpoint string) (ledger.Client, error) {
		if network == "" {
			network = cfg.Network
		}
		url := rpcEndpoint
		if url == "" {
			url = constants.RPCEndpoints[network]
		}
		if url == "" {
			url = cfg.RPCUrl
		}

		return ledger.NewRPCClient(ledger.RPCConfig{
			RPCURL:       url,
			Network:      network,
			Timeout:      cfg.HTTPTimeout,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
			Logger:       logger,
		})
	}
}

// pumpFundingEvents bridges the worker's event stream to the operator feed,
// registers freshly funded wallets as stopped bots, and persists the set when
// a wallet passphrase is configured.
func pumpFundingEvents(
	ctx context.Context,
	cfg *config.Config,
	logger *logrus.Logger,
	worker *funding.Worker,
	feed *server.FundingFeed,
	registry *bot.Registry,
	store *walletstore.Store,
) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-worker.Events():
			switch {
			case ev.Err != "":
				feed.Append(ev.Err, true)
				logger.WithField("err", ev.Err).Warn("funding run rejected")

			case ev.Wallets != nil:
				wallets := make([]*wallet.Wallet, 0, len(ev.Wallets))
				for i, secret := range ev.Wallets {
					w, err := wallet.FromBytes(secret)
					if err != nil {
						logger.WithError(err).WithField("index", i).Error("funded wallet unreadable")
						continue
					}
					if err := registry.AddBot(w, nil, cfg.BotInterval); err != nil {
						logger.WithError(err).Error("failed to register funded wallet")
						continue
					}
					wallets = append(wallets, w)
				}
				feed.Append(fmt.Sprintf("registered %d funded wallets as bots", len(wallets)), false)

				if cfg.WalletPassphrase != "" && len(wallets) > 0 {
					if err := store.Save(ctx, cfg.Network, wallets, cfg.WalletPassphrase); err != nil {
						logger.WithError(err).Error("failed to persist funded wallets")
						feed.Append("wallet persistence failed", true)
					} else {
						feed.Append(fmt.Sprintf("saved %d wallets for %s", len(wallets), cfg.Network), false)
					}
				}

			case ev.Log != "":
				feed.Append(ev.Log, false)
			}
		}
	}
}
