package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClient_Latest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/quotes/latest" {
			t.Errorf("path = %q, want /v1/quotes/latest", r.URL.Path)
		}
		if got := r.URL.Query().Get("source"); got != "btc-usd" {
			t.Errorf("source = %q, want %q", got, "btc-usd")
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		json.NewEncoder(w).Encode(quoteResponse{
			Source:     "btc-usd",
			Price:      6412300,
			ObservedTS: 1724630400000000,
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "test-key")

	q, err := c.Latest(context.Background(), "btc-usd")
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if q.Price != 6412300 {
		t.Errorf("Price = %d, want 6412300", q.Price)
	}
	if q.ObservedTS != 1724630400000000 {
		t.Errorf("ObservedTS = %d, want 1724630400000000", q.ObservedTS)
	}
}

func TestClient_Latest_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient(server.URL, "")

	_, err := c.Latest(context.Background(), "unknown-source")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestClient_Latest_MissingObservedTS(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(quoteResponse{Source: "btc-usd", Price: 100})
	}))
	defer server.Close()

	c := NewClient(server.URL, "")

	_, err := c.Latest(context.Background(), "btc-usd")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestClient_RetryOn500(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(quoteResponse{Source: "s", Price: 42, ObservedTS: 1})
	}))
	defer server.Close()

	c := NewClient(server.URL, "", WithRetries(3, time.Millisecond))

	q, err := c.Latest(context.Background(), "s")
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if q.Price != 42 {
		t.Errorf("Price = %d, want 42", q.Price)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestClient_NoRetryOn400(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	c := NewClient(server.URL, "", WithRetries(3, time.Millisecond))

	_, err := c.Latest(context.Background(), "s")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "server error", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(server.URL, "", WithRetries(5, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Latest(ctx, "s")
	if err == nil {
		t.Fatal("expected error")
	}
}
