package services

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"github.com/entraops/entracopy/internal/core/domain"
)

// memoryStore implements driven.TokenStore in memory for testing.
type memoryStore struct {
	mu       sync.Mutex
	tokens   *domain.TokenSet
	identity *domain.Identity

	getErr error
	setErr error
}

func (s *memoryStore) GetTokens(_ context.Context) (*domain.TokenSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.tokens, nil
}

func (s *memoryStore) SetTokens(_ context.Context, tokens *domain.TokenSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.tokens = tokens
	return nil
}

func (s *memoryStore) ClearTokens(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = nil
	return nil
}

func (s *memoryStore) GetIdentity(_ context.Context) (*domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity, nil
}

func (s *memoryStore) SetIdentity(_ context.Context, identity *domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity
	return nil
}

func (s *memoryStore) ClearIdentity(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = nil
	return nil
}

// memoryConfig implements driven.ConfigStore for testing.
type memoryConfig struct {
	cfg domain.ClientConfig
}

func (c *memoryConfig) Get() (domain.ClientConfig, error) {
	return c.cfg, nil
}

func (c *memoryConfig) Set(cfg domain.ClientConfig) error {
	c.cfg = cfg
	return nil
}

// fakeAuthorizer implements driven.Authorizer. With no canned redirect it
// plays along: it echoes the state from the authorization URL back in a
// well-formed redirect carrying a fixed code.
type fakeAuthorizer struct {
	redirectURL string
	err         error

	gotAuthURL string
}

func (a *fakeAuthorizer) RedirectURI() string {
	return "http://localhost:18080/callback"
}

func (a *fakeAuthorizer) Authorize(_ context.Context, authURL string) (string, error) {
	a.gotAuthURL = authURL
	if a.err != nil {
		return "", a.err
	}
	if a.redirectURL != "" {
		return a.redirectURL, nil
	}
	u, err := url.Parse(authURL)
	if err != nil {
		return "", err
	}
	state := u.Query().Get("state")
	return a.RedirectURI() + "#code=good-code&state=" + state, nil
}

// fakeTokenClient implements driven.TokenClient with canned responses and
// call counting.
type fakeTokenClient struct {
	mu sync.Mutex

	exchangeResult *domain.TokenSet
	exchangeErr    error
	exchangeCalls  int
	gotCode        string
	gotVerifier    string

	refreshResult *domain.TokenSet
	refreshErr    error
	refreshCalls  int
	gotRefresh    string
	gotScope      string

	// refreshBlock, when set, holds every refresh until closed.
	refreshBlock chan struct{}
}

func (c *fakeTokenClient) AuthCodeURL(cfg domain.ClientConfig, redirectURI, state, challenge string) string {
	return "https://login.example.com/authorize?client_id=" + cfg.ClientID +
		"&redirect_uri=" + redirectURI + "&state=" + state + "&code_challenge=" + challenge
}

func (c *fakeTokenClient) Exchange(_ context.Context, _ domain.ClientConfig, code, _, codeVerifier string) (*domain.TokenSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exchangeCalls++
	c.gotCode = code
	c.gotVerifier = codeVerifier
	if c.exchangeErr != nil {
		return nil, c.exchangeErr
	}
	return c.exchangeResult, nil
}

func (c *fakeTokenClient) Refresh(_ context.Context, _ domain.ClientConfig, refreshToken, scope string) (*domain.TokenSet, error) {
	c.mu.Lock()
	c.refreshCalls++
	c.gotRefresh = refreshToken
	c.gotScope = scope
	block := c.refreshBlock
	err := c.refreshErr
	var result *domain.TokenSet
	if c.refreshResult != nil {
		cp := *c.refreshResult
		result = &cp
	}
	c.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *fakeTokenClient) refreshCallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshCalls
}

// fakeDirectoryClient implements driven.DirectoryClient with canned data.
type fakeDirectoryClient struct {
	me    *domain.Identity
	meErr error

	roles    []domain.DirectoryRole
	rolesErr error

	users        []domain.User
	userByUPN    map[string]*domain.User
	resolveCalls int
	groups       []domain.Group
	groupsErr    error

	members   map[string]bool // "groupID/userID"
	addErr    map[string]error
	addCalls  []string
	probeErrs map[string]bool
}

func (c *fakeDirectoryClient) Me(_ context.Context, _ string) (*domain.Identity, error) {
	if c.meErr != nil {
		return nil, c.meErr
	}
	if c.me == nil {
		return &domain.Identity{ID: "me", DisplayName: "Me", UserPrincipalName: "me@contoso.com"}, nil
	}
	return c.me, nil
}

func (c *fakeDirectoryClient) MyDirectoryRoles(_ context.Context, _ string) ([]domain.DirectoryRole, error) {
	if c.rolesErr != nil {
		return nil, c.rolesErr
	}
	return c.roles, nil
}

func (c *fakeDirectoryClient) SearchUsers(_ context.Context, _, _ string) ([]domain.User, error) {
	return c.users, nil
}

func (c *fakeDirectoryClient) UserByPrincipalName(_ context.Context, _, upn string) (*domain.User, error) {
	c.resolveCalls++
	if u, ok := c.userByUPN[upn]; ok {
		return u, nil
	}
	return nil, errors.New("user not found")
}

func (c *fakeDirectoryClient) UserGroups(_ context.Context, _, _ string) ([]domain.Group, error) {
	if c.groupsErr != nil {
		return nil, c.groupsErr
	}
	return c.groups, nil
}

func (c *fakeDirectoryClient) IsMember(_ context.Context, _, groupID, userID string) bool {
	if c.probeErrs[groupID+"/"+userID] {
		return false
	}
	return c.members[groupID+"/"+userID]
}

func (c *fakeDirectoryClient) AddMember(_ context.Context, _, groupID, userID string) error {
	c.addCalls = append(c.addCalls, groupID+"/"+userID)
	if err, ok := c.addErr[groupID]; ok {
		return err
	}
	return nil
}
