// Package google verifies Google Sign-In ID tokens against Google's JWKS.
package google

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultIssuer = "https://accounts.google.com"

// keyTTL bounds how long a fetched key set is trusted before refetching.
const keyTTL = time.Hour

var ErrInvalidToken = errors.New("invalid google id token")

type jwks struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// Claims are the ID token fields sign-in relies on.
type Claims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Locale        string `json:"locale"`
	jwt.RegisteredClaims
}

// Identity is a verified Google account.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
	Locale        string
}

type Verifier struct {
	issuer     string
	clientID   string
	mu         sync.RWMutex
	cache      map[string]*rsa.PublicKey
	fetched    time.Time
	static     bool
	now        func() time.Time
	httpClient *http.Client
}

func NewVerifier(issuer, clientID string) *Verifier {
	if strings.TrimSpace(issuer) == "" {
		issuer = DefaultIssuer
	}
	return &Verifier{
		issuer:     strings.TrimRight(issuer, "/"),
		clientID:   clientID,
		cache:      make(map[string]*rsa.PublicKey),
		now:        time.Now,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewStaticVerifier trusts a fixed key set and never fetches.
func NewStaticVerifier(issuer, clientID string, keys map[string]*rsa.PublicKey, now func() time.Time) *Verifier {
	v := NewVerifier(issuer, clientID)
	v.cache = keys
	v.static = true
	if now != nil {
		v.now = now
	}
	return v
}

// Configured reports whether a client id was provided.
func (v *Verifier) Configured() bool {
	return v != nil && v.clientID != ""
}

// Verify checks signature, issuer, audience and expiry of an ID token.
func (v *Verifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if !v.Configured() {
		return nil, fmt.Errorf("%w: google sign-in is not configured", ErrInvalidToken)
	}
	if err := v.ensureKeys(ctx); err != nil {
		return nil, err
	}
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return v.keyFunc(ctx, t)
	},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !v.issuerMatches(claims.Issuer) {
		return nil, fmt.Errorf("%w: issuer %q", ErrInvalidToken, claims.Issuer)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: missing subject or email", ErrInvalidToken)
	}
	return &Identity{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Picture:       claims.Picture,
		Locale:        claims.Locale,
	}, nil
}

// Google issues tokens with and without the scheme.
func (v *Verifier) issuerMatches(iss string) bool {
	if iss == v.issuer {
		return true
	}
	return v.issuer == DefaultIssuer && iss == strings.TrimPrefix(DefaultIssuer, "https://")
}

func (v *Verifier) keyFunc(ctx context.Context, t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if key, ok := v.keyFor(kid); ok {
		return key, nil
	}
	if v.static {
		return nil, errors.New("unknown kid")
	}
	if err := v.refresh(ctx); err != nil {
		return nil, err
	}
	if key, ok := v.keyFor(kid); ok {
		return key, nil
	}
	return nil, errors.New("unknown kid")
}

func (v *Verifier) ensureKeys(ctx context.Context) error {
	if v.static {
		return nil
	}
	v.mu.RLock()
	fresh := time.Since(v.fetched) < keyTTL && len(v.cache) > 0
	v.mu.RUnlock()
	if fresh {
		return nil
	}
	return v.refresh(ctx)
}

func (v *Verifier) refresh(ctx context.Context) error {
	uri, err := v.jwksURI(ctx)
	if err != nil {
		return err
	}
	var set jwks
	if err := v.getJSON(ctx, uri, &set); err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey)
	for _, key := range set.Keys {
		if key.Kty != "RSA" {
			continue
		}
		pub, err := rsaKeyFromJWK(key)
		if err != nil {
			continue
		}
		keys[key.Kid] = pub
	}
	if len(keys) == 0 {
		return errors.New("no keys fetched")
	}
	v.mu.Lock()
	v.cache = keys
	v.fetched = time.Now()
	v.mu.Unlock()
	return nil
}

func (v *Verifier) jwksURI(ctx context.Context) (string, error) {
	var cfg struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := v.getJSON(ctx, v.issuer+"/.well-known/openid-configuration", &cfg); err != nil {
		return "", fmt.Errorf("fetch openid configuration: %w", err)
	}
	if cfg.JWKSURI == "" {
		return "", errors.New("openid configuration has no jwks_uri")
	}
	return cfg.JWKSURI, nil
}

func (v *Verifier) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (v *Verifier) keyFor(kid string) (*rsa.PublicKey, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	pk, ok := v.cache[kid]
	return pk, ok
}

func rsaKeyFromJWK(j jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(j.N)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(j.E)
	if err != nil {
		return nil, err
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 + int(b)
	}
	if e == 0 {
		return nil, errors.New("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}
