// Package gate provides the administrative capability check guarding
// contract creation, using RSA-PSS signatures.
package gate

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrDenied is returned for any capability that fails verification.
var ErrDenied = errors.New("capability denied")

// ActionAdd is the capability action for contract creation.
const ActionAdd = "add"

// MaxGrantAge bounds how old a grant's timestamp may be.
const MaxGrantAge = 30 * time.Second

// Grant is a signed administrative capability presented by a caller.
type Grant struct {
	KeyID       string // Identifies the signing key
	TimestampMs int64  // Signing time (ms since epoch)
	Signature   string // Base64 RSA-PSS signature over timestamp+action+subject
}

// Credentials holds the key pair used to issue grants.
type Credentials struct {
	KeyID      string
	PrivateKey *rsa.PrivateKey
}

// LoadCredentials loads credentials from a key ID and private key PEM file.
func LoadCredentials(keyID, privateKeyPath string) (*Credentials, error) {
	if keyID == "" {
		return nil, fmt.Errorf("key ID is required")
	}
	if privateKeyPath == "" {
		return nil, fmt.Errorf("private key path is required")
	}

	privateKey, err := LoadPrivateKey(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load private key: %w", err)
	}

	return &Credentials{
		KeyID:      keyID,
		PrivateKey: privateKey,
	}, nil
}

// LoadPrivateKey loads an RSA private key from a PEM file.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	// Try PKCS#8 first (newer format)
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("key is not an RSA private key")
		}
		return rsaKey, nil
	}

	// Fall back to PKCS#1 (older format)
	rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	return rsaKey, nil
}

// LoadPublicKey loads an RSA public key from a PEM file.
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	// Try PKIX first (newer format)
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err == nil {
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("key is not an RSA public key")
		}
		return rsaKey, nil
	}

	// Fall back to PKCS#1 (older format)
	rsaKey, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return rsaKey, nil
}

// Sign issues a grant for the given action and subject.
func (c *Credentials) Sign(action, subject string) (Grant, error) {
	timestampMs := time.Now().UnixMilli()

	hashed := digest(timestampMs, action, subject)

	signature, err := rsa.SignPSS(
		rand.Reader,
		c.PrivateKey,
		crypto.SHA256,
		hashed,
		&rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash},
	)
	if err != nil {
		return Grant{}, fmt.Errorf("sign grant: %w", err)
	}

	return Grant{
		KeyID:       c.KeyID,
		TimestampMs: timestampMs,
		Signature:   base64.StdEncoding.EncodeToString(signature),
	}, nil
}

// Verifier checks grants against a trusted public key.
type Verifier struct {
	keyID     string
	publicKey *rsa.PublicKey
	maxAge    time.Duration
	now       func() time.Time
}

// NewVerifier creates a Verifier trusting the given key.
func NewVerifier(keyID string, publicKey *rsa.PublicKey) *Verifier {
	return &Verifier{
		keyID:     keyID,
		publicKey: publicKey,
		maxAge:    MaxGrantAge,
		now:       time.Now,
	}
}

// Verify checks that the grant authorizes the action on the subject.
func (v *Verifier) Verify(grant Grant, action, subject string) error {
	if grant.KeyID != v.keyID {
		return fmt.Errorf("%w: unknown key %q", ErrDenied, grant.KeyID)
	}

	age := v.now().Sub(time.UnixMilli(grant.TimestampMs))
	if age > v.maxAge || age < -v.maxAge {
		return fmt.Errorf("%w: grant timestamp outside window", ErrDenied)
	}

	signature, err := base64.StdEncoding.DecodeString(grant.Signature)
	if err != nil {
		return fmt.Errorf("%w: malformed signature", ErrDenied)
	}

	hashed := digest(grant.TimestampMs, action, subject)

	err = rsa.VerifyPSS(
		v.publicKey,
		crypto.SHA256,
		hashed,
		signature,
		&rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash},
	)
	if err != nil {
		return fmt.Errorf("%w: bad signature", ErrDenied)
	}

	return nil
}

// digest hashes the signed message. Format: timestamp_ms + action + subject.
func digest(timestampMs int64, action, subject string) []byte {
	message := fmt.Sprintf("%d%s%s", timestampMs, action, subject)
	hashed := sha256.Sum256([]byte(message))
	return hashed[:]
}
