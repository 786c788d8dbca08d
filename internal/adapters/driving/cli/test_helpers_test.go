package cli

import (
	"context"

	"github.com/entraops/entracopy/internal/core/domain"
)

// mockAuthService implements driving.AuthService for testing.
type mockAuthService struct {
	logoutCalls int
}

func (m *mockAuthService) Login(_ context.Context) (*domain.Identity, error) {
	return &domain.Identity{
		ID:                "user-1",
		DisplayName:       "Ada Lovelace",
		UserPrincipalName: "ada@contoso.com",
		Mail:              "ada@contoso.com",
	}, nil
}

func (m *mockAuthService) Logout(_ context.Context) error {
	m.logoutCalls++
	return nil
}

func (m *mockAuthService) AccessToken(_ context.Context) (string, error) {
	return "token", nil
}

func (m *mockAuthService) CurrentIdentity(_ context.Context) (*domain.Identity, error) {
	return &domain.Identity{
		ID:                "user-1",
		DisplayName:       "Ada Lovelace",
		UserPrincipalName: "ada@contoso.com",
	}, nil
}

// mockAuthServiceSignedOut implements driving.AuthService with no session.
type mockAuthServiceSignedOut struct {
	mockAuthService
}

func (m *mockAuthServiceSignedOut) AccessToken(_ context.Context) (string, error) {
	return "", domain.ErrNotSignedIn
}

func (m *mockAuthServiceSignedOut) CurrentIdentity(_ context.Context) (*domain.Identity, error) {
	return nil, nil
}

// mockDirectoryService implements driving.DirectoryService for testing.
type mockDirectoryService struct{}

func (m *mockDirectoryService) IsAdmin(_ context.Context) bool {
	return true
}

func (m *mockDirectoryService) SearchUsers(_ context.Context, prefix string) ([]domain.User, error) {
	if len(prefix) < 2 {
		return nil, domain.ErrSearchTooShort
	}
	return []domain.User{
		{ID: "user-2", DisplayName: "Grace Hopper", UserPrincipalName: "grace@contoso.com"},
	}, nil
}

func (m *mockDirectoryService) ResolveUser(_ context.Context, upn string) (*domain.User, error) {
	return &domain.User{ID: "user-2", DisplayName: "Grace Hopper", UserPrincipalName: upn}, nil
}

func (m *mockDirectoryService) ManageableGroups(_ context.Context, _ string) ([]domain.Group, error) {
	return []domain.Group{
		{ID: "grp-1", DisplayName: "Sales Team", GroupTypes: []string{"Unified"}, MailEnabled: true},
		{ID: "grp-2", DisplayName: "Field Staff", SecurityEnabled: true},
	}, nil
}

func (m *mockDirectoryService) CopyMemberships(_ context.Context, _ *domain.User, groups []domain.Group) (*domain.CopyReport, error) {
	report := &domain.CopyReport{}
	for _, g := range groups {
		report.Succeeded++
		report.Copied = append(report.Copied, g.DisplayName)
	}
	return report, nil
}

// mockDirectoryServiceNotAdmin reports no administrative role.
type mockDirectoryServiceNotAdmin struct {
	mockDirectoryService
}

func (m *mockDirectoryServiceNotAdmin) IsAdmin(_ context.Context) bool {
	return false
}

// mockDirectoryServiceEmpty returns empty results.
type mockDirectoryServiceEmpty struct {
	mockDirectoryService
}

func (m *mockDirectoryServiceEmpty) SearchUsers(_ context.Context, prefix string) ([]domain.User, error) {
	if len(prefix) < 2 {
		return nil, domain.ErrSearchTooShort
	}
	return []domain.User{}, nil
}

func (m *mockDirectoryServiceEmpty) ManageableGroups(_ context.Context, _ string) ([]domain.Group, error) {
	return []domain.Group{}, nil
}

// mockConfigStore implements driven.ConfigStore in memory.
type mockConfigStore struct {
	cfg domain.ClientConfig
}

func (s *mockConfigStore) Get() (domain.ClientConfig, error) {
	return s.cfg, nil
}

func (s *mockConfigStore) Set(cfg domain.ClientConfig) error {
	s.cfg = cfg
	return nil
}

// setupTestServices injects mock services for testing and returns a cleanup func.
func setupTestServices() func() {
	oldAuth := authService
	oldDirectory := directoryService

	authService = &mockAuthService{}
	directoryService = &mockDirectoryService{}

	return func() {
		authService = oldAuth
		directoryService = oldDirectory
	}
}
