package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/kodprodobro/auth-service/internal/models"
)

// UserStore is the authoritative account store. Lookups return (nil, nil)
// when no account matches.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, username, passwordHash string) error
}

// RevocationStore is the denylist consulted on every validation. Revoke
// is idempotent; entries past their expiry are disposable.
type RevocationStore interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// AuthService drives the credential state machine: issued -> valid while
// unexpired and not revoked -> expired or revoked, both terminal.
type AuthService struct {
	users   UserStore
	tokens  *JWTService
	revoked RevocationStore
	email   EmailSender
	logger  *logrus.Logger
}

func NewAuthService(
	users UserStore,
	tokens *JWTService,
	revoked RevocationStore,
	email EmailSender,
	logger *logrus.Logger,
) *AuthService {
	return &AuthService{
		users:   users,
		tokens:  tokens,
		revoked: revoked,
		email:   email,
		logger:  logger,
	}
}

func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Roles:        []string{models.RoleUser},
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	go func() {
		subject := "Welcome"
		body := fmt.Sprintf("Hi %s,\r\n\r\nyour account has been created.\r\n", username)
		if err := s.email.Send(email, subject, body); err != nil {
			s.logger.WithError(err).WithField("username", username).Warn("Failed to send welcome email")
		}
	}()

	return user, nil
}

// Login verifies the password and issues a fresh token pair with the
// account's current role set. Unknown username and wrong password are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.TokenPair, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if user == nil {
		return nil, ErrBadCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}

	pair, err := s.tokens.IssuePair(user.Username, user.Roles)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	return pair, nil
}

// Validate checks, in order: structure and signature, expiry, revocation.
// A structurally invalid token never reaches the revocation store. When
// the revocation check cannot be completed the token is treated as
// invalid rather than trusted.
func (s *AuthService) Validate(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := s.tokens.Decode(tokenString)
	if err != nil {
		return nil, err
	}

	if s.tokens.IsExpired(claims) {
		return nil, ErrTokenExpired
	}

	revoked, err := s.revoked.IsRevoked(ctx, tokenString)
	if err != nil {
		s.logger.WithError(err).Error("Revocation check failed, failing closed")
		return nil, fmt.Errorf("%w: revocation check unavailable", ErrTokenInvalid)
	}

	if revoked {
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

// Logout adds the token to the denylist until its own expiry. A token
// that does not decode has nothing to revoke, so logout is a no-op.
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.tokens.Decode(tokenString)
	if err != nil {
		s.logger.WithError(err).Debug("Logout with undecodable token, nothing to revoke")
		return nil
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	if err := s.revoked.Revoke(ctx, tokenString, expiresAt); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	return nil
}
