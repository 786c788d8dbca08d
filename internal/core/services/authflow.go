// Package services implements the application's core behaviour behind the
// driving ports: the authorization-code flow state machine, the
// manageable-group policy and the membership copy batch.
package services

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/entraops/entracopy/internal/core/domain"
	"github.com/entraops/entracopy/internal/core/ports/driven"
	"github.com/entraops/entracopy/internal/logger"
	"github.com/entraops/entracopy/internal/pkce"
)

// flowState is the lifecycle position of the auth flow. Transitions are
// guarded: a second interactive login cannot start while one is running,
// and refresh never overlaps authorization.
type flowState int

const (
	stateSignedOut flowState = iota
	stateAuthorizing
	stateExchanging
	stateSignedIn
	stateRefreshing
)

func (s flowState) String() string {
	switch s {
	case stateSignedOut:
		return "signed-out"
	case stateAuthorizing:
		return "authorizing"
	case stateExchanging:
		return "exchanging"
	case stateSignedIn:
		return "signed-in"
	case stateRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// AuthFlow drives the OAuth 2.0 authorization-code flow with PKCE and owns
// the stored session: interactive login, silent refresh ahead of expiry
// and sign-out. It implements driving.AuthService.
type AuthFlow struct {
	store      driven.TokenStore
	config     driven.ConfigStore
	authorizer driven.Authorizer
	tokens     driven.TokenClient
	directory  driven.DirectoryClient

	mu    sync.Mutex
	state flowState

	// Concurrent callers inside the expiry margin join a single refresh
	// rather than racing the token endpoint.
	refreshGroup singleflight.Group
}

// NewAuthFlow creates the auth flow. The initial state is derived from the
// store on first use, not cached at construction.
func NewAuthFlow(store driven.TokenStore, config driven.ConfigStore, authorizer driven.Authorizer, tokens driven.TokenClient, directory driven.DirectoryClient) *AuthFlow {
	return &AuthFlow{
		store:      store,
		config:     config,
		authorizer: authorizer,
		tokens:     tokens,
		directory:  directory,
	}
}

// Login runs the interactive authorization-code flow: generate a fresh
// PKCE pair, send the user to the authorization endpoint, redeem the code
// returned in the redirect fragment and persist the resulting session.
// A login that fails before the exchange leaves the stored session as it
// was.
func (f *AuthFlow) Login(ctx context.Context) (*domain.Identity, error) {
	if err := f.transition(stateAuthorizing); err != nil {
		return nil, err
	}

	cfg, err := f.config.Get()
	if err != nil {
		f.settle(ctx)
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.ClientID == "" {
		f.settle(ctx)
		return nil, fmt.Errorf("no client id configured: run 'entracopy config set --client-id <app-id>' first")
	}

	// The verifier lives only in this frame; it is gone once the
	// exchange returns.
	verifier, err := pkce.GenerateVerifier(pkce.DefaultVerifierBytes)
	if err != nil {
		f.settle(ctx)
		return nil, err
	}
	challenge := pkce.DeriveChallenge(verifier)
	state := uuid.NewString()

	redirectURI := f.authorizer.RedirectURI()
	authURL := f.tokens.AuthCodeURL(cfg, redirectURI, state, challenge)

	logger.Debug("auth: starting interactive login, redirect %s", redirectURI)
	redirectURL, err := f.authorizer.Authorize(ctx, authURL)
	if err != nil {
		f.settle(ctx)
		return nil, err
	}

	code, err := parseAuthorizationRedirect(redirectURL, state)
	if err != nil {
		f.settle(ctx)
		return nil, err
	}

	if err := f.transition(stateExchanging); err != nil {
		return nil, err
	}

	tokens, err := f.tokens.Exchange(ctx, cfg, code, redirectURI, verifier)
	if err != nil {
		f.settle(ctx)
		return nil, err
	}
	if err := f.store.SetTokens(ctx, tokens); err != nil {
		f.settle(ctx)
		return nil, fmt.Errorf("persist tokens: %w", err)
	}

	identity, err := f.directory.Me(ctx, tokens.AccessToken)
	if err != nil {
		// A session without an identity record is half-signed-in;
		// drop the tokens too rather than leave that behind.
		f.clearSession(ctx)
		f.setState(stateSignedOut)
		return nil, fmt.Errorf("fetch signed-in profile: %w", err)
	}
	if err := f.store.SetIdentity(ctx, identity); err != nil {
		f.clearSession(ctx)
		f.setState(stateSignedOut)
		return nil, fmt.Errorf("persist identity: %w", err)
	}

	f.setState(stateSignedIn)
	logger.Debug("auth: signed in as %s", identity.UserPrincipalName)
	return identity, nil
}

// Logout deletes the stored session wholesale. Signing out while already
// signed out is a no-op, not an error. No request is sent to the provider.
func (f *AuthFlow) Logout(ctx context.Context) error {
	f.clearSession(ctx)
	f.setState(stateSignedOut)
	return nil
}

// AccessToken returns an access token valid for at least the configured
// refresh margin. Inside the margin it refreshes silently first; on any
// refresh failure the whole session is deleted and the caller must log in
// again.
func (f *AuthFlow) AccessToken(ctx context.Context) (string, error) {
	tokens, err := f.store.GetTokens(ctx)
	if err != nil {
		return "", fmt.Errorf("read tokens: %w", err)
	}
	if tokens == nil {
		return "", domain.ErrNotSignedIn
	}

	cfg, err := f.config.Get()
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	if !tokens.ExpiresWithin(cfg.RefreshMargin) {
		return tokens.AccessToken, nil
	}

	// The refresh runs detached from any one caller's context: a joined
	// caller backing out must not abort the shared renewal mid-write.
	// Each caller still honors its own cancellation while waiting.
	ch := f.refreshGroup.DoChan("refresh", func() (any, error) {
		return f.refresh(context.WithoutCancel(ctx), cfg)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(*domain.TokenSet).AccessToken, nil
	}
}

// CurrentIdentity returns the cached identity record, or nil when no
// session exists.
func (f *AuthFlow) CurrentIdentity(ctx context.Context) (*domain.Identity, error) {
	return f.store.GetIdentity(ctx)
}

// refresh redeems the stored refresh token for a new token set and merges
// it with the prior one: a response without a rotated refresh token keeps
// the old one, a response without a scope keeps the old scope. Any failure
// deletes the entire session so a half-valid state can never linger.
func (f *AuthFlow) refresh(ctx context.Context, cfg domain.ClientConfig) (*domain.TokenSet, error) {
	if err := f.transition(stateRefreshing); err != nil {
		return nil, err
	}

	prior, err := f.store.GetTokens(ctx)
	if err != nil {
		f.settle(ctx)
		return nil, fmt.Errorf("read tokens: %w", err)
	}
	if prior == nil || prior.RefreshToken == "" {
		f.setState(stateSignedOut)
		return nil, domain.ErrNotSignedIn
	}

	logger.Debug("auth: refreshing access token")
	fresh, err := f.tokens.Refresh(ctx, cfg, prior.RefreshToken, prior.Scope)
	if err != nil {
		logger.Debug("auth: refresh failed, clearing session: %v", err)
		f.clearSession(ctx)
		f.setState(stateSignedOut)
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	if fresh.RefreshToken == "" {
		fresh.RefreshToken = prior.RefreshToken
	}
	if fresh.Scope == "" {
		fresh.Scope = prior.Scope
	}
	if err := f.store.SetTokens(ctx, fresh); err != nil {
		f.clearSession(ctx)
		f.setState(stateSignedOut)
		return nil, fmt.Errorf("persist tokens: %w", err)
	}

	f.setState(stateSignedIn)
	return fresh, nil
}

// transition moves to next if the current state permits it.
func (f *AuthFlow) transition(next flowState) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch next {
	case stateAuthorizing, stateRefreshing:
		// Interactive login and refresh both start only from a settled
		// state.
		if f.state == stateAuthorizing || f.state == stateExchanging || f.state == stateRefreshing {
			return domain.ErrLoginInProgress
		}
	case stateExchanging:
		if f.state != stateAuthorizing {
			return &domain.ProtocolError{Reason: fmt.Sprintf("cannot exchange from %s state", f.state)}
		}
	}
	f.state = next
	return nil
}

func (f *AuthFlow) setState(s flowState) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

// settle resolves an aborted flow back to signed-in or signed-out based on
// what the store actually holds.
func (f *AuthFlow) settle(ctx context.Context) {
	tokens, err := f.store.GetTokens(ctx)
	if err == nil && tokens != nil {
		f.setState(stateSignedIn)
		return
	}
	f.setState(stateSignedOut)
}

// clearSession removes tokens and identity together. Errors are logged,
// not returned: sign-out must always succeed from the caller's view.
func (f *AuthFlow) clearSession(ctx context.Context) {
	if err := f.store.ClearTokens(ctx); err != nil {
		logger.Warn("auth: clearing tokens: %v", err)
	}
	if err := f.store.ClearIdentity(ctx); err != nil {
		logger.Warn("auth: clearing identity: %v", err)
	}
}

// parseAuthorizationRedirect extracts the authorization code from the
// provider's redirect. The code, state and any error all travel in the
// URL fragment, not the query.
func parseAuthorizationRedirect(redirectURL, expectedState string) (string, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return "", &domain.ProtocolError{Reason: "unparseable redirect URL"}
	}
	params, err := url.ParseQuery(u.Fragment)
	if err != nil {
		return "", &domain.ProtocolError{Reason: "unparseable redirect fragment"}
	}

	if code := params.Get("error"); code != "" {
		return "", &domain.AuthorizationError{
			Code:        code,
			Description: params.Get("error_description"),
		}
	}
	code := params.Get("code")
	if code == "" {
		return "", &domain.ProtocolError{Reason: "no authorization code in redirect"}
	}
	if got := params.Get("state"); got != expectedState {
		return "", &domain.ProtocolError{Reason: "state mismatch in redirect"}
	}
	return code, nil
}
