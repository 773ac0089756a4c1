package admin

import (
	"errors"
	"sync"
	"time"

	"lms-companion-api/internal/auth"
)

var (
	// ErrEmptyToken rejects elevation with no token.
	ErrEmptyToken = errors.New("admin: empty elevation token")

	// ErrBadExpiry rejects elevation with a non-positive TTL.
	ErrBadExpiry = errors.New("admin: expiresIn must be positive")
)

// now is a small indirection to allow test stubbing.
var now = time.Now

// TokenService holds the short-lived elevated-privilege token. The token
// lives only in process memory and is never written to the database or any
// other durable medium. Only Elevate and Drop mutate it; expiry clears it
// from a timer and is double-checked on every read.
type TokenService struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	timer     *time.Timer
}

// NewTokenService constructs an empty (de-escalated) service.
func NewTokenService() *TokenService {
	return &TokenService{}
}

// Elevate stores the upstream-issued token for expiresIn seconds. An empty
// token or non-positive TTL is rejected synchronously. When the token is a
// JWT whose exp claim is sooner than the requested TTL, the sooner expiry
// wins.
func (s *TokenService) Elevate(token string, expiresIn int) error {
	if token == "" {
		return ErrEmptyToken
	}
	if expiresIn <= 0 {
		return ErrBadExpiry
	}

	expiresAt := now().Add(time.Duration(expiresIn) * time.Second)
	if claimExp, ok := auth.TokenExpiry(token); ok && claimExp.Before(expiresAt) {
		expiresAt = claimExp
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.token = token
	s.expiresAt = expiresAt
	s.timer = time.AfterFunc(expiresAt.Sub(now()), s.expire)
	return nil
}

// expire fires from the timer. It re-checks the clock so a timer from a
// superseded elevation cannot clear a newer token.
func (s *TokenService) expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" || now().Before(s.expiresAt) {
		return
	}
	s.token = ""
	s.expiresAt = time.Time{}
	s.timer = nil
}

// Token returns the live token. The expiry check is independent of the
// timer: a token past its expiry is never returned even if the timer has
// not fired yet.
func (s *TokenService) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" || !now().Before(s.expiresAt) {
		return "", false
	}
	return s.token, true
}

// ExpiresAt returns the current expiry, zero when de-escalated.
func (s *TokenService) ExpiresAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" || !now().Before(s.expiresAt) {
		return time.Time{}, false
	}
	return s.expiresAt, true
}

// Drop de-escalates explicitly, cancelling the expiry timer.
func (s *TokenService) Drop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.token = ""
	s.expiresAt = time.Time{}
}
