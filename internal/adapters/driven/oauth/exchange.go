// Package oauth implements the driven side of the OAuth 2.0
// authorization-code flow: the loopback redirect surface, browser
// launching and the token endpoint client.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/entraops/entracopy/internal/core/domain"
	"github.com/entraops/entracopy/internal/pkce"
)

// Endpoint paths under the authority base URL.
const (
	authorizePath = "/oauth2/v2.0/authorize"
	tokenPath     = "/oauth2/v2.0/token"
)

// TokenClient redeems authorization codes and refresh tokens at the
// identity platform's token endpoint.
type TokenClient struct {
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// NewTokenClient creates a token client with a 30 second timeout.
func NewTokenClient() *TokenClient {
	return &TokenClient{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Endpoint returns the OAuth2 endpoints under the given authority,
// e.g. https://login.microsoftonline.com/common.
func Endpoint(authority string) oauth2.Endpoint {
	base := strings.TrimSuffix(authority, "/")
	return oauth2.Endpoint{
		AuthURL:  base + authorizePath,
		TokenURL: base + tokenPath,
	}
}

// AuthCodeURL builds the authorization URL. The code travels back in the
// URL fragment (response_mode=fragment) and the account chooser is always
// shown so a second login can pick a different account.
func (c *TokenClient) AuthCodeURL(cfg domain.ClientConfig, redirectURI, state, challenge string) string {
	conf := c.oauthConfig(cfg, redirectURI)
	return conf.AuthCodeURL(state,
		oauth2.SetAuthURLParam("response_mode", "fragment"),
		oauth2.SetAuthURLParam("prompt", "select_account"),
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", pkce.ChallengeMethodS256),
	)
}

// Exchange redeems an authorization code with the PKCE verifier.
func (c *TokenClient) Exchange(ctx context.Context, cfg domain.ClientConfig, code, redirectURI, codeVerifier string) (*domain.TokenSet, error) {
	conf := c.oauthConfig(cfg, redirectURI)
	tok, err := conf.Exchange(c.withHTTPClient(ctx), code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return nil, wrapTokenError(err)
	}
	return tokenSetFrom(tok, strings.Join(domain.RequiredScopes, " ")), nil
}

// Refresh obtains a new token set via the refresh_token grant. The prior
// scope is requested again; the returned set carries whatever the provider
// declared, which the auth flow merges with the stored session. This is a
// hand-rolled request because the oauth2 package's refresh path does not
// send a scope parameter.
func (c *TokenClient) Refresh(ctx context.Context, cfg domain.ClientConfig, refreshToken, scope string) (*domain.TokenSet, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("client_id", cfg.ClientID)
	data.Set("refresh_token", refreshToken)
	if scope != "" {
		data.Set("scope", scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, Endpoint(cfg.Authority).TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token refresh request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return nil, &domain.TokenExchangeError{
			StatusCode:  resp.StatusCode,
			Code:        body.Error,
			Description: body.ErrorDescription,
		}
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	return &domain.TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
		Scope:        tok.Scope,
	}, nil
}

// tokenResponse is the provider's token endpoint response body.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
}

func (c *TokenClient) oauthConfig(cfg domain.ClientConfig, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    cfg.ClientID,
		Endpoint:    Endpoint(cfg.Authority),
		RedirectURL: redirectURI,
		Scopes:      domain.RequiredScopes,
	}
}

func (c *TokenClient) withHTTPClient(ctx context.Context) context.Context {
	if c.HTTPClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, c.HTTPClient)
}

// tokenSetFrom converts an oauth2 token to the persisted shape. Expiry is
// computed by the oauth2 package from the server-declared expires_in, so
// ExpiresAt is issue time plus lifetime, not a client guess. The granted
// scope travels in the response body's scope field.
func tokenSetFrom(tok *oauth2.Token, fallbackScope string) *domain.TokenSet {
	scope, _ := tok.Extra("scope").(string)
	if scope == "" {
		scope = fallbackScope
	}
	return &domain.TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
		Scope:        scope,
	}
}

// wrapTokenError maps oauth2 retrieval failures to the flow's token
// exchange error, keeping the HTTP status and the provider's error code
// and description so the caller can render a useful message.
func wrapTokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		e := &domain.TokenExchangeError{
			Code:        re.ErrorCode,
			Description: re.ErrorDescription,
		}
		if re.Response != nil {
			e.StatusCode = re.Response.StatusCode
		}
		return e
	}
	return fmt.Errorf("token request: %w", err)
}
