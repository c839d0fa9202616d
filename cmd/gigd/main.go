package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"gigescrow/config"
	"gigescrow/core"
	"gigescrow/core/clock"
	"gigescrow/core/events"
	"gigescrow/observability"
	"gigescrow/observability/logging"
	telemetry "gigescrow/observability/otel"
	"gigescrow/rpc"
	"gigescrow/storage"
	"gigescrow/storage/eventlog"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	trustProxy := flag.Bool("trust-proxy", false, "Use X-Forwarded-For as the rate-limit identity")
	flag.Parse()

	if err := run(*configFile, *trustProxy); err != nil {
		fmt.Fprintf(os.Stderr, "gigd: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string, trustProxy bool) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	env := strings.TrimSpace(os.Getenv("GIG_ENV"))
	logger := logging.SetupWithOptions("gigd", env, logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "gigd",
		Environment: env,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		return fmt.Errorf("initialise telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	db, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	hub := events.NewHub()
	emitters := []events.Emitter{hub, observability.NewEventRecorder()}
	var journal rpc.EventLister
	if path := cfg.EventLogFile(); path != "" {
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("prepare event log directory: %w", err)
			}
		}
		store, err := eventlog.Open(path, logger)
		if err != nil {
			return fmt.Errorf("open event log: %w", err)
		}
		defer store.Close()
		emitters = append(emitters, store)
		journal = store
	}

	host, err := core.NewHost(core.HostConfig{
		DB:      db,
		Clock:   clock.System{},
		Tokens:  cfg.Tokens,
		Emitter: events.Multi(emitters...),
		Logger:  logger,
		Metrics: observability.Contract(),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := seedGenesis(ctx, host, cfg, logger); err != nil {
		return err
	}

	serverCfg, err := serverConfig(cfg, trustProxy, logger)
	if err != nil {
		return err
	}
	server, err := rpc.NewServer(host, hub, journal, serverCfg)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	logger.Info("gigd starting",
		"listen", listener.Addr().String(),
		"backend", cfg.DBBackend,
		"tokens", cfg.Tokens,
		"auth", !cfg.Auth.Disabled)
	return server.Serve(ctx, listener)
}

// openDatabase opens the configured backend under DataDir.
func openDatabase(cfg *config.Config) (storage.Database, error) {
	switch cfg.DBBackend {
	case config.BackendMemory:
		return storage.NewMemDB(), nil
	case config.BackendBolt:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		db, err := storage.NewBoltDB(filepath.Join(cfg.DataDir, "gig.bolt"))
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.BackendLevelDB, "":
		db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "leveldb"))
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database backend %q", cfg.DBBackend)
	}
}

func seedGenesis(ctx context.Context, host *core.Host, cfg *config.Config, logger *slog.Logger) error {
	parsed, err := cfg.GenesisBalances()
	if err != nil {
		return err
	}
	if len(parsed) == 0 {
		return nil
	}
	balances := make([]core.GenesisBalance, 0, len(parsed))
	for _, bal := range parsed {
		balances = append(balances, core.GenesisBalance{Token: bal.Token, Account: bal.Account, Amount: bal.Amount})
	}
	applied, err := host.SeedGenesis(ctx, balances)
	if err != nil {
		return fmt.Errorf("seed genesis: %w", err)
	}
	if applied {
		logger.Info("genesis balances minted", "entries", len(balances))
	}
	return nil
}

func serverConfig(cfg *config.Config, trustProxy bool, logger *slog.Logger) (rpc.ServerConfig, error) {
	out := rpc.ServerConfig{
		RateLimit: rpc.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		},
		TrustProxyHeaders: trustProxy,
		Logger:            logger,
	}
	if cfg.Auth.Disabled {
		logger.Warn("RPC authentication disabled; mutating methods are open")
		out.Auth = rpc.AuthConfig{Disabled: true}
		return out, nil
	}
	secret, err := cfg.Auth.Secret()
	if err != nil {
		return rpc.ServerConfig{}, err
	}
	out.Auth = rpc.AuthConfig{
		Secret:   secret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
	}
	return out, nil
}
