// Package keypair provides JWT bearer authentication from an RSA keypair
// for the trino-go client library. It mints short-lived RS256 tokens
// locally, for coordinators configured to accept self-signed JWTs whose
// public key is registered out of band.
package keypair

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"sync"
	"time"

	trino "github.com/openlakehouse/trino-go"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultLifetime is the token lifetime used when Config.Lifetime is zero.
const DefaultLifetime = 5 * time.Minute

// Config holds the parameters for minting tokens.
type Config struct {
	// Subject is the principal the token asserts, typically the Trino user.
	Subject string

	// Issuer is the iss claim; coordinators commonly match it against the
	// configured key id. Defaults to Subject.
	Issuer string

	// Audience is the aud claim, if the coordinator requires one.
	Audience string

	// PrivateKey is the PEM-encoded PKCS#8 RSA private key.
	PrivateKey []byte

	// Lifetime bounds each minted token; tokens are re-minted once half of
	// it has elapsed.
	Lifetime time.Duration
}

func (c *Config) validate() error {
	if c.Subject == "" {
		return fmt.Errorf("keypair: Subject is required")
	}
	if len(c.PrivateKey) == 0 {
		return fmt.Errorf("keypair: PrivateKey is required")
	}
	return nil
}

// tokenMinter signs tokens and caches the current one until it is due for
// renewal.
type tokenMinter struct {
	cfg Config
	key *rsa.PrivateKey

	mu      sync.Mutex
	token   string
	renewAt time.Time
}

func (m *tokenMinter) current() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && time.Now().Before(m.renewAt) {
		return m.token, nil
	}

	lifetime := m.cfg.Lifetime
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}

	issuer := m.cfg.Issuer
	if issuer == "" {
		issuer = m.cfg.Subject
	}

	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   m.cfg.Subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
	}
	if m.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.cfg.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("keypair: JWT signing failed: %w", err)
	}

	m.token = signed
	m.renewAt = now.Add(lifetime / 2)
	return signed, nil
}

// NewRequestOption creates a trino.RequestOption that sets a freshly minted
// Bearer token on every request, re-signing when the cached token nears
// expiry. The returned option is safe for concurrent use.
func NewRequestOption(cfg Config) (trino.RequestOption, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	key, err := parsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	minter := &tokenMinter{cfg: cfg, key: key}

	opt := func(req *http.Request) {
		token, err := minter.current()
		if err != nil {
			// A RequestOption cannot return an error. The server answers
			// 401 when the header is missing, surfacing as an HTTPError.
			return
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return opt, nil
}

// parsePrivateKey parses a PEM-encoded PKCS#8 RSA key.
func parsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("keypair: invalid PEM format for private key")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("keypair: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("keypair: not an RSA private key")
	}
	return rsaKey, nil
}
