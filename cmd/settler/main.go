package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/dlc-settler/internal/config"
	"github.com/rickgao/dlc-settler/internal/contract"
	"github.com/rickgao/dlc-settler/internal/database"
	"github.com/rickgao/dlc-settler/internal/driver"
	"github.com/rickgao/dlc-settler/internal/feed"
	"github.com/rickgao/dlc-settler/internal/gate"
	"github.com/rickgao/dlc-settler/internal/ledger"
	"github.com/rickgao/dlc-settler/internal/notify"
	"github.com/rickgao/dlc-settler/internal/oracle"
	"github.com/rickgao/dlc-settler/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/settler.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting settler",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"oracle_url", cfg.Oracle.RestURL,
		"feed_url", cfg.Feed.WSURL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Lifecycle events flow through this queue to the ledger writer.
	events := notify.NewQueue(cfg.Notify.BufferSize)

	// Pick the price oracle: streaming feed when configured, REST otherwise.
	var priceOracle oracle.PriceOracle
	var priceFeed *feed.Feed

	if cfg.Feed.WSURL != "" {
		priceFeed = feed.New(feed.Config{
			URL:                cfg.Feed.WSURL,
			Sources:            cfg.Feed.Sources,
			MaxQuoteAge:        cfg.Feed.MaxQuoteAge,
			ReconnectBaseDelay: cfg.Feed.ReconnectBaseDelay,
			ReconnectMaxDelay:  cfg.Feed.ReconnectMaxDelay,
			WriteTimeout:       cfg.Feed.WriteTimeout,
			PingTimeout:        cfg.Feed.PingTimeout,
		}, logger)

		if err := priceFeed.Start(ctx); err != nil {
			logger.Error("failed to start price feed", "error", err)
			os.Exit(1)
		}
		defer stopComponent("price feed", priceFeed.Stop, logger)

		priceOracle = priceFeed
	} else {
		priceOracle = oracle.NewClient(
			cfg.Oracle.RestURL,
			cfg.Oracle.APIKey,
			oracle.WithLogger(logger),
			oracle.WithTimeout(cfg.Oracle.Timeout),
			oracle.WithRetries(cfg.Oracle.MaxRetries, time.Second),
		)
	}

	// Create the contract registry
	registry := contract.NewRegistry(contract.DefaultConfig(), priceOracle, events, logger)

	// Wrap contract creation behind the admin capability gate.
	var gated *gate.Registry
	if cfg.Admin.KeyID != "" {
		publicKey, err := gate.LoadPublicKey(cfg.Admin.PublicKeyPath)
		if err != nil {
			logger.Error("failed to load admin public key", "error", err)
			os.Exit(1)
		}
		gated = gate.NewRegistry(registry, gate.NewVerifier(cfg.Admin.KeyID, publicKey), logger)
		logger.Info("contract creation gated", "key_id", cfg.Admin.KeyID)
	} else {
		logger.Warn("no admin key configured, contract creation is ungated")
	}

	// Connect the settlement ledger when configured.
	var pool *pgxpool.Pool
	var writer *ledger.Writer

	if cfg.Database.Ledger.Host != "" {
		logger.Info("connecting to ledger database",
			"host", cfg.Database.Ledger.Host,
			"port", cfg.Database.Ledger.Port,
			"database", cfg.Database.Ledger.Name,
		)

		pool, err = database.Connect(ctx, cfg.Database.Ledger)
		if err != nil {
			logger.Error("failed to connect to ledger database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		writer = ledger.NewWriter(ledger.WriterConfig{
			BatchSize:     cfg.Writer.BatchSize,
			FlushInterval: cfg.Writer.FlushInterval,
		}, events, pool, logger)

		if err := writer.Start(ctx); err != nil {
			logger.Error("failed to start ledger writer", "error", err)
			os.Exit(1)
		}
		defer stopComponent("ledger writer", writer.Stop, logger)

		logger.Info("ledger connected")
	} else {
		logger.Warn("no ledger configured, lifecycle events are not persisted")
	}

	// Start the upkeep driver
	upkeep := driver.New(driver.Config{
		Interval: cfg.Driver.Interval,
		Agents:   cfg.Driver.Agents,
		Timeout:  cfg.Driver.Timeout,
	}, registry, registry, logger)

	if err := upkeep.Start(ctx); err != nil {
		logger.Error("failed to start upkeep driver", "error", err)
		os.Exit(1)
	}
	defer stopComponent("upkeep driver", upkeep.Stop, logger)

	// Health server
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: createHandler(registry, gated, pool, priceFeed, writer, logger),
	}

	go func() {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	logger.Info("settler running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Health.Port),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	healthServer.Shutdown(shutdownCtx)

	logger.Info("settler stopped")
}

// stopComponent shuts a component down with a bounded timeout.
func stopComponent(name string, stop func(context.Context) error, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := stop(ctx); err != nil {
		logger.Warn("component stop failed", "component", name, "error", err)
	}
}

// createHandler builds the health and admin HTTP handler.
func createHandler(
	registry contract.Registry,
	gated *gate.Registry,
	pool *pgxpool.Pool,
	priceFeed *feed.Feed,
	writer *ledger.Writer,
	logger *slog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string                 `json:"status"`
			Components map[string]interface{} `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]interface{}),
		}

		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["ledger"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["ledger"] = "connected"
			}
		}

		if priceFeed != nil {
			if priceFeed.IsConnected() {
				health.Components["feed"] = "connected"
			} else {
				health.Status = "degraded"
				health.Components["feed"] = "disconnected"
			}
		}

		if writer != nil {
			health.Components["writer"] = writer.Stats()
		}

		stats := registry.Stats()
		health.Components["registry"] = map[string]int{
			"open":    stats.Open,
			"settled": stats.Settled,
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/open", func(w http.ResponseWriter, r *http.Request) {
		open := registry.ListOpen()

		// Limit to first 100 for debugging
		limit := 100
		shown := open
		if len(shown) > limit {
			shown = shown[:limit]
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"count":   len(open),
			"showing": len(shown),
			"open":    shown,
		})
	})

	mux.HandleFunc("/admin/contracts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			ID          string `json:"id"`
			SourceRef   string `json:"source_ref"`
			ClosingTS   int64  `json:"closing_ts"`
			KeyID       string `json:"key_id"`
			TimestampMs int64  `json:"timestamp_ms"`
			Signature   string `json:"signature"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		var err error
		if gated != nil {
			grant := gate.Grant{
				KeyID:       req.KeyID,
				TimestampMs: req.TimestampMs,
				Signature:   req.Signature,
			}
			err = gated.Add(grant, req.ID, req.SourceRef, req.ClosingTS)
		} else {
			err = registry.Add(req.ID, req.SourceRef, req.ClosingTS)
		}

		switch {
		case err == nil:
			w.WriteHeader(http.StatusCreated)
		case errors.Is(err, gate.ErrDenied):
			http.Error(w, err.Error(), http.StatusForbidden)
		case errors.Is(err, contract.ErrAlreadyExists):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			logger.Error("contract creation failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	})

	return mux
}
