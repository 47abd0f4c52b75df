// Package share issues and resolves expiring share tokens for floor plans.
// A token grants read-only access to one plan without authentication.
package share

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

// Default lifetime for a share token.
const DefaultTokenTTL = 7 * 24 * time.Hour

// tokenBytes is the entropy of a token before encoding.
const tokenBytes = 32

// ErrTokenNotFound is returned when a token is unknown or has expired.
// Callers cannot distinguish the two cases.
var ErrTokenNotFound = errors.New("share token not found or expired")

// Token is one issued share grant.
type Token struct {
	Token       string    `json:"token" cbor:"token"`
	FloorPlanID string    `json:"floorPlanId" cbor:"floor_plan_id"`
	CreatedBy   string    `json:"createdBy" cbor:"created_by"`
	CreatedAt   time.Time `json:"createdAt" cbor:"created_at"`
	ExpiresAt   time.Time `json:"expiresAt" cbor:"expires_at"`
}

// Expired reports whether the token is past its expiry at the given instant.
func (t Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Store persists issued tokens. Implementations must treat expired tokens
// as absent on read.
type Store interface {
	Put(ctx context.Context, token Token) error
	Get(ctx context.Context, value string) (Token, error)
	Delete(ctx context.Context, value string) error
}

// Service issues tokens and resolves them back to plan IDs.
type Service struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewService creates a share service backed by the given store.
// A non-positive ttl falls back to DefaultTokenTTL.
func NewService(store Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Service{store: store, ttl: ttl, now: time.Now}
}

// Generate issues a new token for the plan and persists it.
func (s *Service) Generate(ctx context.Context, floorPlanID, createdBy string) (Token, error) {
	value, err := newTokenValue()
	if err != nil {
		return Token{}, fmt.Errorf("generate share token: %w", err)
	}

	now := s.now().UTC()
	token := Token{
		Token:       value,
		FloorPlanID: floorPlanID,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	if err := s.store.Put(ctx, token); err != nil {
		return Token{}, fmt.Errorf("store share token: %w", err)
	}
	return token, nil
}

// Resolve returns the token record for a presented value.
// Unknown and expired tokens both yield ErrTokenNotFound.
func (s *Service) Resolve(ctx context.Context, value string) (Token, error) {
	token, err := s.store.Get(ctx, value)
	if err != nil {
		return Token{}, err
	}
	if token.Expired(s.now()) {
		return Token{}, ErrTokenNotFound
	}
	return token, nil
}

func newTokenValue() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
