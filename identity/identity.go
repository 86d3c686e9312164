// Package identity issues ephemeral anonymous identities so writes can be
// attributed without any login flow.
package identity

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is a credential-free ephemeral identity.
type Identity struct {
	UID       string
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Provider signs in callers anonymously. Failures are non-fatal to read and
// subscribe paths; callers downgrade to proceeding without attribution.
type Provider interface {
	SignInAnonymously(ctx context.Context) (*Identity, error)
}

const defaultTTL = time.Hour

// AnonymousProvider mints HS256-signed tokens with a random UID subject.
type AnonymousProvider struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewAnonymousProvider creates a provider signing with key. An empty key is
// replaced with a random per-process one, which is enough for ephemeral
// anonymous identities.
func NewAnonymousProvider(key []byte) *AnonymousProvider {
	if len(key) == 0 {
		key = make([]byte, 32)
		rand.Read(key)
	}
	return &AnonymousProvider{key: key, ttl: defaultTTL, now: time.Now}
}

func (p *AnonymousProvider) SignInAnonymously(_ context.Context) (*Identity, error) {
	now := p.now()
	expires := now.Add(p.ttl)
	uid := uuid.NewString()

	claims := jwt.RegisteredClaims{
		Subject:   uid,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.key)
	if err != nil {
		return nil, fmt.Errorf("sign anonymous token: %w", err)
	}
	return &Identity{
		UID:       uid,
		Token:     token,
		IssuedAt:  now,
		ExpiresAt: expires,
	}, nil
}

// Verify checks a token issued by this provider and returns its UID.
func (p *AnonymousProvider) Verify(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.key, nil
	})
	if err != nil {
		return "", fmt.Errorf("verify anonymous token: %w", err)
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("anonymous token missing subject")
	}
	return claims.Subject, nil
}
