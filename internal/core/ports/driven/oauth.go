package driven

import (
	"context"

	"github.com/entraops/entracopy/internal/core/domain"
)

// Authorizer is the interactive-redirect primitive: open the authorization
// URL in a user-visible surface and return the full URL the provider
// redirected to. The authorization code travels in that URL's fragment.
// Cancellation and timeout are reported as domain.ErrLoginCancelled and
// domain.ErrLoginTimeout.
type Authorizer interface {
	// RedirectURI returns the redirect URI to declare to the provider.
	RedirectURI() string

	// Authorize opens authURL interactively and blocks until the
	// provider redirects back, the user gives up, or ctx is done.
	Authorize(ctx context.Context, authURL string) (redirectURL string, err error)
}

// TokenClient talks to the provider's token endpoint. Both grants return
// a token set with ExpiresAt already derived from the server-declared
// lifetime. Failures are reported as *domain.TokenExchangeError.
type TokenClient interface {
	// AuthCodeURL builds the authorization endpoint URL for cfg, carrying
	// the redirect URI, the opaque state value and the S256 code challenge.
	AuthCodeURL(cfg domain.ClientConfig, redirectURI, state, challenge string) string

	// Exchange redeems an authorization code using the
	// authorization_code grant with the PKCE verifier.
	Exchange(ctx context.Context, cfg domain.ClientConfig, code, redirectURI, codeVerifier string) (*domain.TokenSet, error)

	// Refresh obtains a new token set using the refresh_token grant.
	// The returned set may omit the refresh token (no rotation) or the
	// scope; merging with the prior set is the caller's responsibility.
	Refresh(ctx context.Context, cfg domain.ClientConfig, refreshToken, scope string) (*domain.TokenSet, error)
}
