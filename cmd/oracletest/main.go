// oracletest fetches a quote from a REST price feed and prints it.
// Usage: go run ./cmd/oracletest -url https://quotes.example.com -source btc-usd
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/rickgao/dlc-settler/internal/oracle"
)

func main() {
	url := flag.String("url", "", "price feed base URL")
	apiKey := flag.String("key", "", "API key (optional)")
	source := flag.String("source", "btc-usd", "source reference to query")
	flag.Parse()

	if *url == "" {
		log.Fatal("-url is required")
	}

	client := oracle.NewClient(
		*url,
		*apiKey,
		oracle.WithTimeout(10*time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	quote, err := client.Latest(ctx, *source)
	if err != nil {
		log.Fatalf("Latest failed: %v", err)
	}

	fmt.Printf("Source:   %s\n", quote.Source)
	fmt.Printf("Price:    %d\n", quote.Price)
	fmt.Printf("Observed: %s (%d)\n", time.UnixMicro(quote.ObservedTS).UTC().Format(time.RFC3339Nano), quote.ObservedTS)
}
