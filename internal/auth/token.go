package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"justbecause/internal/domain"
)

const (
	Issuer   = "justbecause"
	Audience = "justbecause-clients"
)

// Claims are carried by session tokens.
type Claims struct {
	Role   domain.Role `json:"role"`
	Plan   domain.Plan `json:"plan"`
	Locale string      `json:"locale,omitempty"`
	jwt.RegisteredClaims
}

// Signer issues and checks HS256 session tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	clock  clockwork.Clock
}

func NewSigner(secret string, ttl time.Duration, clock clockwork.Clock) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl, clock: clock}
}

// Sign returns a token for user and its expiry.
func (s *Signer) Sign(user *domain.User) (string, time.Time, error) {
	now := s.clock.Now().UTC()
	exp := now.Add(s.ttl)
	claims := Claims{
		Role:   user.Role,
		Plan:   user.Plan,
		Locale: user.Locale,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, exp, nil
}

// Parse validates token and returns its claims. Any failure maps to
// domain.ErrUnauthorized.
func (s *Signer) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", domain.ErrUnauthorized)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", domain.ErrUnauthorized)
	}
	return claims, nil
}
