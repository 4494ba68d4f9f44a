package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/kodprodobro/auth-service/internal/config"
	"github.com/kodprodobro/auth-service/internal/models"
)

// ResetTokenStore persists single-use reset tokens. Claim atomically
// removes and returns the entry for a token; with two concurrent claims
// on the same token exactly one caller gets the entry, the other gets
// (nil, nil).
type ResetTokenStore interface {
	Create(ctx context.Context, token *models.PasswordResetToken) error
	Claim(ctx context.Context, token string) (*models.PasswordResetToken, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// PasswordResetService manages one-shot, short-lived proofs of email
// ownership: requested -> consumed, or expired (discovered lazily or by
// the periodic sweep).
type PasswordResetService struct {
	users  UserStore
	ledger ResetTokenStore
	email  EmailSender
	cfg    *config.ResetConfig
	logger *logrus.Logger
}

func NewPasswordResetService(
	users UserStore,
	ledger ResetTokenStore,
	email EmailSender,
	cfg *config.ResetConfig,
	logger *logrus.Logger,
) *PasswordResetService {
	return &PasswordResetService{
		users:  users,
		ledger: ledger,
		email:  email,
		cfg:    cfg,
		logger: logger,
	}
}

// Initiate creates a reset token and dispatches the reset email in the
// background. An unregistered email returns success with no side effects;
// the caller-visible contract is "if this email is registered,
// instructions were sent". A new request does not invalidate earlier
// tokens for the same account.
func (s *PasswordResetService) Initiate(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to look up user by email: %w", err)
	}

	if user == nil {
		s.logger.WithField("email", email).Warn("Password reset requested for unknown email")
		return nil
	}

	now := time.Now()
	entry := &models.PasswordResetToken{
		Token:     uuid.New().String(),
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.TokenExpiry),
	}

	if err := s.ledger.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	// The HTTP response must not wait on email transport; failures are
	// logged and never surfaced to the caller.
	go func() {
		subject := "Password reset"
		body := fmt.Sprintf(
			"Hi %s,\r\n\r\nto reset your password, open the link below within %s:\r\n\r\n%s?token=%s\r\n\r\nIf you did not request this, ignore this email.\r\n",
			user.Username, s.cfg.TokenExpiry, s.cfg.LinkBase, entry.Token,
		)
		if err := s.email.Send(user.Email, subject, body); err != nil {
			s.logger.WithError(err).WithField("username", user.Username).Warn("Failed to send password reset email")
		}
	}()

	return nil
}

// Consume redeems a reset token exactly once and replaces the account's
// password hash. The claim removes the ledger entry up front, so a
// concurrent second consumer observes ErrResetTokenInvalid.
func (s *PasswordResetService) Consume(ctx context.Context, token, newPassword string) error {
	entry, err := s.ledger.Claim(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to claim reset token: %w", err)
	}

	if entry == nil {
		return ErrResetTokenInvalid
	}

	if entry.IsExpired(time.Now()) {
		// The claim already deleted the entry; later attempts with this
		// token report invalid, not expired.
		return ErrResetTokenExpired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, entry.Username, string(hash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.WithField("username", entry.Username).Info("Password reset completed")
	return nil
}

// RemoveExpired deletes ledger entries whose expiry has passed. Purging
// bounds storage; correctness does not depend on it.
func (s *PasswordResetService) RemoveExpired(ctx context.Context) (int, error) {
	return s.ledger.DeleteExpired(ctx, time.Now())
}
