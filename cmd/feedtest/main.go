// feedtest connects to a streaming price feed and prints cached quotes.
// Usage: go run ./cmd/feedtest -url wss://feed.example.com -sources btc-usd,eth-usd
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rickgao/dlc-settler/internal/feed"
)

func main() {
	url := flag.String("url", "", "feed WebSocket URL")
	sources := flag.String("sources", "btc-usd", "comma-separated source references")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	if *url == "" {
		logger.Error("-url is required")
		os.Exit(1)
	}

	refs := strings.Split(*sources, ",")

	cfg := feed.DefaultConfig()
	cfg.URL = *url
	cfg.Sources = refs

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	f := feed.New(cfg, logger)
	if err := f.Start(ctx); err != nil {
		logger.Error("failed to start feed", "error", err)
		os.Exit(1)
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			f.Stop(stopCtx)
			return
		case <-ticker.C:
			for _, ref := range refs {
				quote, err := f.Latest(ctx, ref)
				if err != nil {
					fmt.Printf("%-12s unavailable: %v\n", ref, err)
					continue
				}
				fmt.Printf("%-12s price=%d observed=%s\n",
					quote.Source,
					quote.Price,
					time.UnixMicro(quote.ObservedTS).UTC().Format(time.RFC3339),
				)
			}
		}
	}
}
