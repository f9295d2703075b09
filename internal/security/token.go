// Package security issues and validates the single-use admission tokens
// that gate the certificate endpoints. A token only proves that the client
// recently started the sanctioned flow; it is not bound to an identity
// claim.
package security

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

const (
	// DefaultMaxAge is how long an unconsumed token stays valid.
	DefaultMaxAge = time.Hour

	tokenBytes = 32
)

type tokenState struct {
	issuedAt time.Time
	consumed bool
}

// TokenIssuer mints unguessable single-use tokens and consumes them
// atomically. Safe for concurrent use.
type TokenIssuer struct {
	mu     sync.Mutex
	tokens map[string]*tokenState
	maxAge time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer with the given token lifetime.
// A non-positive maxAge falls back to DefaultMaxAge.
func NewTokenIssuer(maxAge time.Duration) *TokenIssuer {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &TokenIssuer{
		tokens: make(map[string]*tokenState),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Issue generates a fresh 256-bit token, records its issue time and
// returns the opaque value.
func (t *TokenIssuer) Issue() string {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process cannot safely serve
		// anything security-sensitive.
		panic("security: crypto/rand unavailable: " + err.Error())
	}
	value := base64.RawURLEncoding.EncodeToString(buf)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.sweepLocked()
	t.tokens[value] = &tokenState{issuedAt: t.now()}
	return value
}

// ValidateAndConsume reports whether the token is known, unexpired and not
// yet consumed, marking it consumed in the same critical section. Of any
// number of concurrent calls with the same value, exactly one succeeds.
func (t *TokenIssuer) ValidateAndConsume(value string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.tokens[value]
	if !ok || state.consumed {
		return false
	}
	if t.now().Sub(state.issuedAt) > t.maxAge {
		delete(t.tokens, value)
		return false
	}
	state.consumed = true
	return true
}

// sweepLocked drops expired and consumed tokens. Purging only bounds
// memory; validation rejects stale entries regardless.
func (t *TokenIssuer) sweepLocked() {
	now := t.now()
	for value, state := range t.tokens {
		if state.consumed || now.Sub(state.issuedAt) > t.maxAge {
			delete(t.tokens, value)
		}
	}
}
