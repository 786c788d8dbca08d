package driven

import (
	"context"

	"github.com/entraops/entracopy/internal/core/domain"
)

// TokenStore persists the single signed-in session: the current token set
// and the cached identity record. Implementations must overwrite the token
// set atomically; no partially written state may ever be visible.
type TokenStore interface {
	// GetTokens returns the stored token set, or nil if none exists.
	GetTokens(ctx context.Context) (*domain.TokenSet, error)

	// SetTokens overwrites the stored token set wholesale.
	SetTokens(ctx context.Context, tokens *domain.TokenSet) error

	// ClearTokens removes the stored token set. Clearing an empty store
	// is not an error.
	ClearTokens(ctx context.Context) error

	// GetIdentity returns the cached identity record, or nil if none exists.
	GetIdentity(ctx context.Context) (*domain.Identity, error)

	// SetIdentity overwrites the cached identity record.
	SetIdentity(ctx context.Context, identity *domain.Identity) error

	// ClearIdentity removes the cached identity record.
	ClearIdentity(ctx context.Context) error
}

// ConfigStore persists the user-editable client configuration.
type ConfigStore interface {
	// Get returns the stored configuration with defaults applied.
	Get() (domain.ClientConfig, error)

	// Set overwrites the stored configuration.
	Set(cfg domain.ClientConfig) error
}
