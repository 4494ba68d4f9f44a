package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodprodobro/auth-service/internal/models"
	"github.com/kodprodobro/auth-service/internal/repository"
	"github.com/kodprodobro/auth-service/internal/service"
)

func TestMemoryUserStore_UniquenessAndLookups(t *testing.T) {
	store := repository.NewMemoryUserStore()
	ctx := context.Background()

	err := store.Create(ctx, &models.User{Username: "alice", Email: "alice@x.com", PasswordHash: "h"})
	require.NoError(t, err)

	err = store.Create(ctx, &models.User{Username: "alice", Email: "other@x.com"})
	require.ErrorIs(t, err, service.ErrUsernameTaken)

	err = store.Create(ctx, &models.User{Username: "bob", Email: "alice@x.com"})
	require.ErrorIs(t, err, service.ErrEmailTaken)

	byName, err := store.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, byName)

	byEmail, err := store.GetByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, "alice", byEmail.Username)

	missing, err := store.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryRevocationStore_RevokeIsIdempotent(t *testing.T) {
	store := repository.NewMemoryRevocationStore()
	ctx := context.Background()
	expiry := time.Now().Add(time.Hour)

	require.NoError(t, store.Revoke(ctx, "tok", expiry))
	require.NoError(t, store.Revoke(ctx, "tok", expiry))

	revoked, err := store.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)

	other, err := store.IsRevoked(ctx, "other")
	require.NoError(t, err)
	assert.False(t, other)
}

func TestMemoryResetTokenStore_ConcurrentClaimsSingleWinner(t *testing.T) {
	store := repository.NewMemoryResetTokenStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &models.PasswordResetToken{
		Token:     "tok",
		Username:  "alice",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	const claimers = 50
	var wg sync.WaitGroup
	wins := make(chan *models.PasswordResetToken, claimers)

	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry, err := store.Claim(ctx, "tok")
			assert.NoError(t, err)
			if entry != nil {
				wins <- entry
			}
		}()
	}
	wg.Wait()
	close(wins)

	var winners int
	for range wins {
		winners++
	}
	assert.Equal(t, 1, winners)
}
