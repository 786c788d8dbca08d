package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entraops/entracopy/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGetTokens_EmptyStore(t *testing.T) {
	// Given a fresh database
	store := newTestStore(t)

	// When reading tokens
	tokens, err := store.GetTokens(context.Background())

	// Then there is no token set and no error
	require.NoError(t, err)
	assert.Nil(t, tokens)
}

func TestTokens_RoundTrip(t *testing.T) {
	// Given a stored token set
	store := newTestStore(t)
	expiresAt := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	want := &domain.TokenSet{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    expiresAt,
		Scope:        "openid offline_access User.Read",
	}
	require.NoError(t, store.SetTokens(context.Background(), want))

	// When reading it back
	got, err := store.GetTokens(context.Background())

	// Then all fields survive
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.Equal(t, want.RefreshToken, got.RefreshToken)
	assert.Equal(t, want.Scope, got.Scope)
	assert.True(t, want.ExpiresAt.Equal(got.ExpiresAt))
}

func TestSetTokens_OverwritesWholesale(t *testing.T) {
	// Given an existing token set
	store := newTestStore(t)
	require.NoError(t, store.SetTokens(context.Background(), &domain.TokenSet{
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
		Scope:        "openid",
	}))

	// When writing a replacement
	require.NoError(t, store.SetTokens(context.Background(), &domain.TokenSet{
		AccessToken: "new-access",
		ExpiresAt:   time.Now().Add(2 * time.Hour),
	}))

	// Then nothing from the old set remains
	got, err := store.GetTokens(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "new-access", got.AccessToken)
	assert.Empty(t, got.RefreshToken)
	assert.Empty(t, got.Scope)
}

func TestClearTokens(t *testing.T) {
	// Given a stored token set
	store := newTestStore(t)
	require.NoError(t, store.SetTokens(context.Background(), &domain.TokenSet{
		AccessToken: "access-token",
		ExpiresAt:   time.Now().Add(time.Hour),
	}))

	// When clearing
	require.NoError(t, store.ClearTokens(context.Background()))

	// Then the store reads as signed out
	got, err := store.GetTokens(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClearTokens_Idempotent(t *testing.T) {
	// Given an empty store
	store := newTestStore(t)

	// When clearing twice
	require.NoError(t, store.ClearTokens(context.Background()))

	// Then clearing again still succeeds
	assert.NoError(t, store.ClearTokens(context.Background()))
}

func TestIdentity_RoundTrip(t *testing.T) {
	// Given a stored identity
	store := newTestStore(t)
	want := &domain.Identity{
		ID:                "user-1",
		DisplayName:       "Ada Lovelace",
		UserPrincipalName: "ada@example.com",
		Mail:              "ada.lovelace@example.com",
	}
	require.NoError(t, store.SetIdentity(context.Background(), want))

	// When reading it back
	got, err := store.GetIdentity(context.Background())

	// Then the record matches
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, got)
}

func TestGetIdentity_EmptyStore(t *testing.T) {
	// Given a fresh database
	store := newTestStore(t)

	// When reading the identity
	identity, err := store.GetIdentity(context.Background())

	// Then there is none
	require.NoError(t, err)
	assert.Nil(t, identity)
}

func TestClearIdentity_KeepsTokens(t *testing.T) {
	// Given both session rows populated
	store := newTestStore(t)
	require.NoError(t, store.SetTokens(context.Background(), &domain.TokenSet{
		AccessToken: "access-token",
		ExpiresAt:   time.Now().Add(time.Hour),
	}))
	require.NoError(t, store.SetIdentity(context.Background(), &domain.Identity{ID: "user-1"}))

	// When clearing only the identity
	require.NoError(t, store.ClearIdentity(context.Background()))

	// Then the token set is untouched
	identity, err := store.GetIdentity(context.Background())
	require.NoError(t, err)
	assert.Nil(t, identity)

	tokens, err := store.GetTokens(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tokens)
}

func TestNewStore_ReopensExistingDatabase(t *testing.T) {
	// Given a database written by one store instance
	path := filepath.Join(t.TempDir(), "session.db")
	first, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, first.SetIdentity(context.Background(), &domain.Identity{ID: "user-1"}))
	require.NoError(t, first.Close())

	// When opening the same path again
	second, err := NewStore(path)
	require.NoError(t, err)
	defer second.Close()

	// Then the session survives the reopen
	identity, err := second.GetIdentity(context.Background())
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, "user-1", identity.ID)
}
