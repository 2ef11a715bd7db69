package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(store SlotStore) *Manager {
	return NewManager(Config{
		AccessSecret:  "test-access-secret-1234567890",
		RefreshSecret: "test-refresh-secret-1234567890",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	}, store)
}

func TestManagerIssueAndVerify(t *testing.T) {
	store := NewInMemorySlotStore()
	manager := newTestManager(store)

	tokens, err := manager.Issue(context.Background(), Identity{UserID: "user-1", Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.True(t, store.Has("user-1", tokens.RefreshToken))

	claims, err := manager.VerifyAccess(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, tokenTypeAccess, claims.TokenType)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, time.Second)

	_, err = manager.VerifyAccess(tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "refresh token must not pass as access token")
}

func TestManagerIssueValidation(t *testing.T) {
	manager := newTestManager(NewInMemorySlotStore())
	_, err := manager.Issue(context.Background(), Identity{})
	assert.Error(t, err)
}

func TestManagerRefreshSucceedsOnce(t *testing.T) {
	manager := newTestManager(NewInMemorySlotStore())
	ctx := context.Background()

	first, err := manager.Issue(ctx, Identity{UserID: "user-1"})
	require.NoError(t, err)

	userID, err := manager.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	second, err := manager.Issue(ctx, Identity{UserID: userID})
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = manager.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenSuperseded)

	_, err = manager.Refresh(ctx, second.RefreshToken)
	assert.NoError(t, err)
}

func TestManagerNewLoginInvalidatesPreviousRefreshToken(t *testing.T) {
	manager := newTestManager(NewInMemorySlotStore())
	ctx := context.Background()

	first, err := manager.Issue(ctx, Identity{UserID: "user-1"})
	require.NoError(t, err)
	_, err = manager.Issue(ctx, Identity{UserID: "user-1"})
	require.NoError(t, err)

	_, err = manager.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenSuperseded)
}

func TestManagerRevoke(t *testing.T) {
	store := NewInMemorySlotStore()
	manager := newTestManager(store)
	ctx := context.Background()

	tokens, err := manager.Issue(ctx, Identity{UserID: "user-1"})
	require.NoError(t, err)

	require.NoError(t, manager.Revoke(ctx, "user-1"))
	assert.False(t, store.Has("user-1", tokens.RefreshToken))

	_, err = manager.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenSuperseded)
}

func TestManagerRejectsExpiredAndForeignTokens(t *testing.T) {
	manager := newTestManager(NewInMemorySlotStore())
	ctx := context.Background()

	tokens, err := manager.Issue(ctx, Identity{UserID: "user-1"})
	require.NoError(t, err)

	manager.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	_, err = manager.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = manager.VerifyAccess(tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	manager.now = time.Now

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "user-1", TokenType: tokenTypeAccess})
	signed, err := foreign.SignedString([]byte("some-other-secret"))
	require.NoError(t, err)
	_, err = manager.VerifyAccess(signed)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	_, err = manager.Refresh(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManagerRefreshUnknownUser(t *testing.T) {
	issuer := newTestManager(NewInMemorySlotStore())
	tokens, err := issuer.Issue(context.Background(), Identity{UserID: "ghost"})
	require.NoError(t, err)

	other := newTestManager(NewInMemorySlotStore())
	_, err = other.Refresh(context.Background(), tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
