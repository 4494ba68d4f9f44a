package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kodprodobro/auth-service/internal/models"
	"github.com/kodprodobro/auth-service/internal/service"
)

// In-memory store implementations with the same semantics as the durable
// backends. Used by the test suite and for running the service without
// external infrastructure.

type MemoryUserStore struct {
	mu      sync.Mutex
	users   map[string]*models.User // keyed by username
	byEmail map[string]string       // email -> username
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users:   make(map[string]*models.User),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryUserStore) GetByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (s *MemoryUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username, ok := s.byEmail[email]
	if !ok {
		return nil, nil
	}
	copied := *s.users[username]
	return &copied, nil
}

func (s *MemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Username]; ok {
		return service.ErrUsernameTaken
	}
	if _, ok := s.byEmail[user.Email]; ok {
		return service.ErrEmailTaken
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	copied := *user
	s.users[user.Username] = &copied
	s.byEmail[user.Email] = user.Username
	return nil
}

func (s *MemoryUserStore) UpdatePassword(_ context.Context, username, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return fmt.Errorf("user %s not found", username)
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now()
	return nil
}

type MemoryRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time // token -> expiry
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{revoked: make(map[string]time.Time)}
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[token] = expiresAt
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[token]
	return ok, nil
}

type MemoryResetTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*models.PasswordResetToken
}

func NewMemoryResetTokenStore() *MemoryResetTokenStore {
	return &MemoryResetTokenStore{tokens: make(map[string]*models.PasswordResetToken)}
}

func (s *MemoryResetTokenStore) Create(_ context.Context, token *models.PasswordResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *token
	s.tokens[token.Token] = &copied
	return nil
}

// Claim removes and returns the entry under one lock acquisition, so two
// concurrent claims on the same token cannot both succeed.
func (s *MemoryResetTokenStore) Claim(_ context.Context, token string) (*models.PasswordResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tokens[token]
	if !ok {
		return nil, nil
	}
	delete(s.tokens, token)
	return entry, nil
}

func (s *MemoryResetTokenStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for token, entry := range s.tokens {
		if entry.IsExpired(now) {
			delete(s.tokens, token)
			deleted++
		}
	}
	return deleted, nil
}

// Len reports the number of outstanding reset tokens.
func (s *MemoryResetTokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
