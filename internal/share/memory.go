package share

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore keeps tokens in a map. Expired tokens are dropped lazily
// on read. Suitable for tests and single-instance deployments.
type InMemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]Token
	now    func() time.Time
}

// NewInMemoryStore creates an empty in-memory token store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		tokens: make(map[string]Token),
		now:    time.Now,
	}
}

// Put stores the token, replacing any record with the same value.
func (s *InMemoryStore) Put(_ context.Context, token Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.Token] = token
	return nil
}

// Get returns the token record, or ErrTokenNotFound when absent or expired.
func (s *InMemoryStore) Get(_ context.Context, value string) (Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[value]
	if !ok {
		return Token{}, ErrTokenNotFound
	}
	if token.Expired(s.now()) {
		delete(s.tokens, value)
		return Token{}, ErrTokenNotFound
	}
	return token, nil
}

// Delete removes the token. Deleting an absent token is not an error.
func (s *InMemoryStore) Delete(_ context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, value)
	return nil
}
