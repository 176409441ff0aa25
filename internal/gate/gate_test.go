package gate

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rickgao/dlc-settler/internal/contract"
	"github.com/rickgao/dlc-settler/internal/model"
	"github.com/rickgao/dlc-settler/internal/oracle"
)

func testKeyPair(t *testing.T) (*Credentials, *Verifier) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	creds := &Credentials{KeyID: "admin-1", PrivateKey: key}
	return creds, NewVerifier("admin-1", &key.PublicKey)
}

func TestSignAndVerify(t *testing.T) {
	creds, verifier := testKeyPair(t)

	grant, err := creds.Sign(ActionAdd, "DLC-1")
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	if err := verifier.Verify(grant, ActionAdd, "DLC-1"); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}

func TestVerify_WrongSubject(t *testing.T) {
	creds, verifier := testKeyPair(t)

	grant, _ := creds.Sign(ActionAdd, "DLC-1")

	err := verifier.Verify(grant, ActionAdd, "DLC-2")
	if !errors.Is(err, ErrDenied) {
		t.Errorf("Verify() error = %v, want ErrDenied", err)
	}
}

func TestVerify_WrongKey(t *testing.T) {
	creds, _ := testKeyPair(t)
	_, otherVerifier := testKeyPair(t)

	grant, _ := creds.Sign(ActionAdd, "DLC-1")

	err := otherVerifier.Verify(grant, ActionAdd, "DLC-1")
	if !errors.Is(err, ErrDenied) {
		t.Errorf("Verify() error = %v, want ErrDenied", err)
	}
}

func TestVerify_UnknownKeyID(t *testing.T) {
	creds, verifier := testKeyPair(t)

	grant, _ := creds.Sign(ActionAdd, "DLC-1")
	grant.KeyID = "intruder"

	err := verifier.Verify(grant, ActionAdd, "DLC-1")
	if !errors.Is(err, ErrDenied) {
		t.Errorf("Verify() error = %v, want ErrDenied", err)
	}
}

func TestVerify_ExpiredGrant(t *testing.T) {
	creds, verifier := testKeyPair(t)
	verifier.now = func() time.Time { return time.Now().Add(time.Minute) }

	grant, _ := creds.Sign(ActionAdd, "DLC-1")

	err := verifier.Verify(grant, ActionAdd, "DLC-1")
	if !errors.Is(err, ErrDenied) {
		t.Errorf("Verify() error = %v, want ErrDenied", err)
	}
}

func TestLoadPrivateKey_PKCS8(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}

	path := filepath.Join(t.TempDir(), "key.pem")
	data := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}

	loaded, err := LoadPrivateKey(path)
	if err != nil {
		t.Fatalf("LoadPrivateKey() error = %v", err)
	}
	if !loaded.Equal(key) {
		t.Error("loaded key differs from original")
	}
}

func TestLoadPrivateKey_PKCS1(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	path := filepath.Join(t.TempDir(), "key.pem")
	data := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}

	if _, err := LoadPrivateKey(path); err != nil {
		t.Fatalf("LoadPrivateKey() error = %v", err)
	}
}

func TestLoadPublicKey_PKIX(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}

	path := filepath.Join(t.TempDir(), "key.pub")
	data := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write key: %v", err)
	}

	loaded, err := LoadPublicKey(path)
	if err != nil {
		t.Fatalf("LoadPublicKey() error = %v", err)
	}
	if !loaded.Equal(&key.PublicKey) {
		t.Error("loaded key differs from original")
	}
}

func TestGatedRegistry(t *testing.T) {
	creds, verifier := testKeyPair(t)

	po := oracle.Func(func(_ context.Context, src string) (model.Quote, error) {
		return model.Quote{Source: src, Price: 1, ObservedTS: 1}, nil
	})
	inner := contract.NewRegistry(contract.DefaultConfig(), po, nil, nil)
	gated := NewRegistry(inner, verifier, nil)

	grant, _ := creds.Sign(ActionAdd, "DLC-1")
	if err := gated.Add(grant, "DLC-1", "btc-usd", 100); err != nil {
		t.Fatalf("gated Add() error = %v", err)
	}

	// Reusing the grant for another id is denied, and nothing is created.
	err := gated.Add(grant, "DLC-2", "btc-usd", 100)
	if !errors.Is(err, ErrDenied) {
		t.Fatalf("Add() error = %v, want ErrDenied", err)
	}
	if _, err := gated.Get("DLC-2"); !errors.Is(err, contract.ErrNotFound) {
		t.Errorf("denied add must not create the contract, Get() error = %v", err)
	}

	// Ungated reads pass through.
	if open := gated.ListOpen(); len(open) != 1 || open[0] != "DLC-1" {
		t.Errorf("ListOpen() = %v, want [DLC-1]", open)
	}
}
