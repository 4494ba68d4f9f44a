package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kodprodobro/auth-service/internal/config"
	"github.com/kodprodobro/auth-service/internal/models"
	"github.com/kodprodobro/auth-service/internal/repository"
	"github.com/kodprodobro/auth-service/internal/service"
)

type sentMail struct {
	To      string
	Subject string
	Body    string
}

// recordingSender captures outgoing mail for assertions.
type recordingSender struct {
	mu   sync.Mutex
	sent []sentMail
}

func (s *recordingSender) Send(to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (s *recordingSender) Sent() []sentMail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMail(nil), s.sent...)
}

// brokenRevocationStore simulates an unreachable denylist.
type brokenRevocationStore struct{}

func (brokenRevocationStore) Revoke(context.Context, string, time.Time) error {
	return errors.New("store unreachable")
}

func (brokenRevocationStore) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("store unreachable")
}

type authFixture struct {
	users   *repository.MemoryUserStore
	revoked *repository.MemoryRevocationStore
	sender  *recordingSender
	jwt     *service.JWTService
	auth    *service.AuthService
}

func newAuthFixture(t *testing.T, accessExpiry time.Duration) *authFixture {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	jwtSvc, err := service.NewJWTService(&config.JWTConfig{
		SecretKey:     testSecret,
		AccessExpiry:  accessExpiry,
		RefreshExpiry: 7 * 24 * time.Hour,
	}, logger)
	require.NoError(t, err)

	users := repository.NewMemoryUserStore()
	revoked := repository.NewMemoryRevocationStore()
	sender := &recordingSender{}

	return &authFixture{
		users:   users,
		revoked: revoked,
		sender:  sender,
		jwt:     jwtSvc,
		auth:    service.NewAuthService(users, jwtSvc, revoked, sender, logger),
	}
}

func (f *authFixture) register(t *testing.T, username, email, password string) {
	t.Helper()
	_, err := f.auth.Register(context.Background(), username, email, password)
	require.NoError(t, err)
}

func TestRegister_HashesPasswordAndAssignsDefaultRole(t *testing.T) {
	f := newAuthFixture(t, 15*time.Minute)
	ctx := context.Background()

	user, err := f.auth.Register(ctx, "alice", "alice@x.com", "Secret123!")
	require.NoError(t, err)

	assert.Equal(t, []string{models.RoleUser}, user.Roles)
	assert.NotEqual(t, "Secret123!", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("Secret123!")))
}

func TestRegister_DuplicateUsernameAndEmail(t *testing.T) {
	f := newAuthFixture(t, 15*time.Minute)
	ctx := context.Background()
	f.register(t, "alice", "alice@x.com", "Secret123!")

	_, err := f.auth.Register(ctx, "alice", "other@x.com", "Secret123!")
	require.ErrorIs(t, err, service.ErrUsernameTaken)

	_, err = f.auth.Register(ctx, "bob", "alice@x.com", "Secret123!")
	require.ErrorIs(t, err, service.ErrEmailTaken)
}

func TestLogin_IssuesValidToken(t *testing.T) {
	f := newAuthFixture(t, 15*time.Minute)
	ctx := context.Background()
	f.register(t, "alice", "alice@x.com", "Secret123!")

	pair, err := f.auth.Login(ctx, "alice", "Secret123!")
	require.NoError(t, err)

	claims, err := f.auth.Validate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, []string{models.RoleUser}, claims.Roles)
}

func TestLogin_WrongPasswordAndUnknownUserIndistinguishable(t *testing.T) {
	f := newAuthFixture(t, 15*time.Minute)
	ctx := context.Background()
	f.register(t, "alice", "alice@x.com", "Secret123!")

	_, errWrongPassword := f.auth.Login(ctx, "alice", "nope")
	_, errUnknownUser := f.auth.Login(ctx, "nobody", "nope")

	require.ErrorIs(t, errWrongPassword, service.ErrBadCredentials)
	require.ErrorIs(t, errUnknownUser, service.ErrBadCredentials)
	assert.Equal(t, errWrongPassword.Error(), errUnknownUser.Error())
}

func TestValidate_AfterLogoutReturnsRevoked(t *testing.T) {
	f := newAuthFixture(t, 15*time.Minute)
	ctx := context.Background()
	f.register(t, "alice", "alice@x.com", "Secret123!")

	pair, err := f.auth.Login(ctx, "alice", "Secret123!")
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, pair.AccessToken))

	_, err = f.auth.Validate(ctx, pair.AccessToken)
	require.ErrorIs(t, err, service.ErrTokenRevoked)
}

func TestValidate_ExpiredWinsOverRevoked(t *testing.T) {
	f := newAuthFixture(t, -time.Minute)
	ctx := context.Background()
	f.register(t, "alice", "alice@x.com", "Secret123!")

	pair, err := f.auth.Login(ctx, "alice", "Secret123!")
	require.NoError(t, err)

	// Revoked or not, an elapsed TTL reports Expired.
	require.NoError(t, f.revoked.Revoke(ctx, pair.AccessToken, time.Now().Add(time.Hour)))

	_, err = f.auth.Validate(ctx, pair.AccessToken)
	require.ErrorIs(t, err, service.ErrTokenExpired)
}

func TestValidate_GarbageToken(t *testing.T) {
	f := newAuthFixture(t, 15*time.Minute)

	_, err := f.auth.Validate(context.Background(), "garbage")
	require.ErrorIs(t, err, service.ErrTokenInvalid)
}

func TestValidate_FailsClosedWhenRevocationStoreDown(t *testing.T) {
	f := newAuthFixture(t, 15*time.Minute)
	ctx := context.Background()
	f.register(t, "alice", "alice@x.com", "Secret123!")

	pair, err := f.auth.Login(ctx, "alice", "Secret123!")
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	broken := service.NewAuthService(f.users, f.jwt, brokenRevocationStore{}, f.sender, logger)

	_, err = broken.Validate(ctx, pair.AccessToken)
	require.ErrorIs(t, err, service.ErrTokenInvalid)
}

func TestLogout_IsIdempotent(t *testing.T) {
	f := newAuthFixture(t, 15*time.Minute)
	ctx := context.Background()
	f.register(t, "alice", "alice@x.com", "Secret123!")

	pair, err := f.auth.Login(ctx, "alice", "Secret123!")
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, pair.AccessToken))
	require.NoError(t, f.auth.Logout(ctx, pair.AccessToken))

	revoked, err := f.revoked.IsRevoked(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestLogout_UndecodableTokenIsNoOp(t *testing.T) {
	f := newAuthFixture(t, 15*time.Minute)
	ctx := context.Background()

	require.NoError(t, f.auth.Logout(ctx, "garbage"))

	revoked, err := f.revoked.IsRevoked(ctx, "garbage")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRegister_SendsWelcomeEmail(t *testing.T) {
	f := newAuthFixture(t, 15*time.Minute)
	f.register(t, "alice", "alice@x.com", "Secret123!")

	assert.Eventually(t, func() bool {
		sent := f.sender.Sent()
		return len(sent) == 1 && sent[0].To == "alice@x.com"
	}, time.Second, 10*time.Millisecond)
}
