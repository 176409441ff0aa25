package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/dlc-settler/internal/model"
	"github.com/rickgao/dlc-settler/internal/oracle"
)

// Feed maintains a WebSocket subscription to a price feed and answers
// oracle lookups from its quote cache.
type Feed struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	// Quote cache
	mu        sync.RWMutex
	quotes    map[string]model.Quote
	connected bool
	lastMsgAt time.Time

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Feed. Call Start to connect.
func New(cfg Config, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		quotes: make(map[string]model.Quote),
	}
}

// Start connects in the background and keeps the subscription alive.
func (f *Feed) Start(ctx context.Context) error {
	f.ctx, f.cancel = context.WithCancel(ctx)

	f.wg.Add(1)
	go f.run()

	f.logger.Info("price feed started",
		"url", f.cfg.URL,
		"sources", len(f.cfg.Sources),
	)

	return nil
}

// Stop gracefully shuts down the feed.
func (f *Feed) Stop(ctx context.Context) error {
	if f.cancel != nil {
		f.cancel()
	}

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		f.logger.Info("price feed stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Latest returns the cached quote for a source. Missing or stale entries
// report ErrUnavailable so the closer backs off without committing.
func (f *Feed) Latest(_ context.Context, sourceRef string) (model.Quote, error) {
	f.mu.RLock()
	quote, ok := f.quotes[sourceRef]
	f.mu.RUnlock()

	if !ok {
		return model.Quote{}, fmt.Errorf("%w: no quote for %q", oracle.ErrUnavailable, sourceRef)
	}

	age := f.now().Sub(time.UnixMicro(quote.ObservedTS))
	if age > f.cfg.MaxQuoteAge {
		return model.Quote{}, fmt.Errorf("%w: quote for %q is %s old", oracle.ErrUnavailable, sourceRef, age.Round(time.Millisecond))
	}

	return quote, nil
}

// IsConnected returns the current connection state.
func (f *Feed) IsConnected() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.connected
}

// run dials and re-dials the feed until the context is cancelled.
func (f *Feed) run() {
	defer f.wg.Done()

	delay := f.cfg.ReconnectBaseDelay

	for {
		err := f.session()

		select {
		case <-f.ctx.Done():
			return
		default:
		}

		if err != nil {
			f.logger.Warn("feed session ended",
				"err", err,
				"reconnect_in", delay,
			)
		}

		select {
		case <-f.ctx.Done():
			return
		case <-time.After(delay):
		}

		delay *= 2
		if delay > f.cfg.ReconnectMaxDelay {
			delay = f.cfg.ReconnectMaxDelay
		}
	}
}

// session runs a single connection: dial, subscribe, read until failure.
func (f *Feed) session() error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(f.ctx, f.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	f.setConnected(true)
	defer f.setConnected(false)

	// Server pings keep the staleness watchdog fed.
	conn.SetPingHandler(func(data string) error {
		f.touch()
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})
	conn.SetPongHandler(func(string) error {
		f.touch()
		return nil
	})

	sub, err := json.Marshal(subscribeCmd{Cmd: "subscribe", Sources: f.cfg.Sources})
	if err != nil {
		return fmt.Errorf("marshal subscribe: %w", err)
	}
	conn.SetWriteDeadline(time.Now().Add(f.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	f.logger.Debug("feed connected", "url", f.cfg.URL)

	// The watchdog closes the connection on cancellation or staleness,
	// which unblocks the read loop below.
	done := make(chan struct{})
	defer close(done)
	go f.watchdog(conn, done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		f.touch()
		f.handleMessage(data)
	}
}

// watchdog pings periodically and closes the connection when the context
// is cancelled or no traffic arrives within PingTimeout.
func (f *Feed) watchdog(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-f.ctx.Done():
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			conn.Close()
			return
		case <-ticker.C:
			deadline := time.Now().Add(f.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				f.logger.Debug("failed to send ping", "error", err)
			}

			f.mu.RLock()
			lastMsg := f.lastMsgAt
			f.mu.RUnlock()

			if time.Since(lastMsg) > f.cfg.PingTimeout {
				f.logger.Warn("no feed traffic, reconnecting",
					"last_message", lastMsg,
					"timeout", f.cfg.PingTimeout,
				)
				conn.Close()
				return
			}
		}
	}
}

// handleMessage parses a feed update and refreshes the cache.
func (f *Feed) handleMessage(data []byte) {
	var msg quoteMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		f.logger.Warn("malformed feed message", "err", err)
		return
	}
	if msg.Type != "quote" || msg.Source == "" {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Out-of-order updates must not regress the cache.
	if cached, ok := f.quotes[msg.Source]; ok && cached.ObservedTS >= msg.ObservedTS {
		return
	}

	f.quotes[msg.Source] = model.Quote{
		Source:     msg.Source,
		Price:      msg.Price,
		ObservedTS: msg.ObservedTS,
	}
}

func (f *Feed) setConnected(v bool) {
	f.mu.Lock()
	f.connected = v
	if v {
		f.lastMsgAt = time.Now()
	}
	f.mu.Unlock()
}

func (f *Feed) touch() {
	f.mu.Lock()
	f.lastMsgAt = time.Now()
	f.mu.Unlock()
}
