package feed

import (
	"errors"
	"time"
)

// ErrStaleConnection indicates no traffic was seen within PingTimeout.
var ErrStaleConnection = errors.New("feed connection stale")

// Config holds feed connection settings.
type Config struct {
	URL                string        // WebSocket endpoint
	Sources            []string      // Sources to subscribe to
	MaxQuoteAge        time.Duration // Reject cached quotes older than this
	ReconnectBaseDelay time.Duration // First reconnect delay
	ReconnectMaxDelay  time.Duration // Reconnect delay cap
	WriteTimeout       time.Duration // Per-write deadline
	PingTimeout        time.Duration // Declare the connection stale after this
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxQuoteAge:        30 * time.Second,
		ReconnectBaseDelay: time.Second,
		ReconnectMaxDelay:  60 * time.Second,
		WriteTimeout:       5 * time.Second,
		PingTimeout:        90 * time.Second,
	}
}

// subscribeCmd is the subscription request wire format.
type subscribeCmd struct {
	Cmd     string   `json:"cmd"`
	Sources []string `json:"sources"`
}

// quoteMessage is the wire format of a feed update.
type quoteMessage struct {
	Type       string `json:"type"`
	Source     string `json:"source"`
	Price      int64  `json:"price"`
	ObservedTS int64  `json:"observed_ts"` // µs since epoch
}
