package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entraops/entracopy/internal/core/domain"
	"github.com/entraops/entracopy/internal/graph"
)

// signedInAuth is a minimal driving.AuthService that always hands out a
// valid token.
type signedInAuth struct{}

func (signedInAuth) Login(_ context.Context) (*domain.Identity, error) { return nil, nil }
func (signedInAuth) Logout(_ context.Context) error                    { return nil }
func (signedInAuth) AccessToken(_ context.Context) (string, error)     { return "token", nil }
func (signedInAuth) CurrentIdentity(_ context.Context) (*domain.Identity, error) {
	return nil, nil
}

// signedOutAuth always reports no session.
type signedOutAuth struct{ signedInAuth }

func (signedOutAuth) AccessToken(_ context.Context) (string, error) {
	return "", domain.ErrNotSignedIn
}

func newTestDirectory(client *fakeDirectoryClient) *Directory {
	return NewDirectory(signedInAuth{}, client, testConfig())
}

func TestIsAdmin_GlobalAdministrator(t *testing.T) {
	client := &fakeDirectoryClient{
		roles: []domain.DirectoryRole{
			{ID: "obj-1", DisplayName: "Global Administrator", RoleTemplateID: "62e90394-69f5-4237-9190-012177145e10"},
		},
	}

	assert.True(t, newTestDirectory(client).IsAdmin(context.Background()))
}

func TestIsAdmin_NoRoles(t *testing.T) {
	client := &fakeDirectoryClient{}

	assert.False(t, newTestDirectory(client).IsAdmin(context.Background()))
}

func TestIsAdmin_LookupFailure_FailsClosed(t *testing.T) {
	client := &fakeDirectoryClient{rolesErr: errors.New("403 forbidden")}

	assert.False(t, newTestDirectory(client).IsAdmin(context.Background()))
}

func TestIsAdmin_SignedOut_FailsClosed(t *testing.T) {
	d := NewDirectory(signedOutAuth{}, &fakeDirectoryClient{
		roles: []domain.DirectoryRole{
			{RoleTemplateID: "62e90394-69f5-4237-9190-012177145e10"},
		},
	}, testConfig())

	assert.False(t, d.IsAdmin(context.Background()))
}

func TestSearchUsers_TooShort(t *testing.T) {
	d := newTestDirectory(&fakeDirectoryClient{})

	for _, prefix := range []string{"", "a", " a "} {
		_, err := d.SearchUsers(context.Background(), prefix)
		assert.ErrorIs(t, err, domain.ErrSearchTooShort, "prefix %q", prefix)
	}
}

func TestSearchUsers(t *testing.T) {
	client := &fakeDirectoryClient{
		users: []domain.User{{ID: "u1", DisplayName: "Ada Lovelace"}},
	}
	d := newTestDirectory(client)

	users, err := d.SearchUsers(context.Background(), "ad")

	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Ada Lovelace", users[0].DisplayName)
}

func TestManageableGroups_AppliesFilter(t *testing.T) {
	client := &fakeDirectoryClient{
		userByUPN: map[string]*domain.User{
			"ada@contoso.com": {ID: "u1", UserPrincipalName: "ada@contoso.com"},
		},
		groups: []domain.Group{
			{ID: "ok", DisplayName: "Team", GroupTypes: []string{"Unified"}, MailEnabled: true},
			{ID: "dl", DisplayName: "Old List", MailEnabled: true},
		},
	}
	d := newTestDirectory(client)

	groups, err := d.ManageableGroups(context.Background(), "ada@contoso.com")

	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "ok", groups[0].ID)
}

func TestManageableGroups_UnknownUser(t *testing.T) {
	d := newTestDirectory(&fakeDirectoryClient{})

	_, err := d.ManageableGroups(context.Background(), "nobody@contoso.com")

	assert.Error(t, err)
}

func copyTarget() *domain.User {
	return &domain.User{ID: "bob", UserPrincipalName: "bob@contoso.com"}
}

func TestCopyMemberships_MixedOutcome(t *testing.T) {
	// Given three groups: one new, one the target already belongs to and
	// one the directory rejects
	client := &fakeDirectoryClient{
		members: map[string]bool{"grp-member/bob": true},
		addErr:  map[string]error{"grp-fail": errors.New("permission denied")},
	}
	d := newTestDirectory(client)

	groups := []domain.Group{
		{ID: "grp-new", DisplayName: "New Group"},
		{ID: "grp-member", DisplayName: "Existing Group"},
		{ID: "grp-fail", DisplayName: "Locked Group"},
	}

	// When
	report, err := d.CopyMemberships(context.Background(), copyTarget(), groups)

	// Then
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []string{"New Group"}, report.Copied)
	assert.Equal(t, []string{"Existing Group"}, report.SkippedGroups)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "Locked Group", report.Failures[0].GroupName)
	assert.Contains(t, report.Failures[0].Reason, "permission denied")
}

func TestCopyMemberships_StrictlySequentialInOrder(t *testing.T) {
	client := &fakeDirectoryClient{}
	d := newTestDirectory(client)

	groups := []domain.Group{
		{ID: "g1", DisplayName: "First"},
		{ID: "g2", DisplayName: "Second"},
		{ID: "g3", DisplayName: "Third"},
	}

	_, err := d.CopyMemberships(context.Background(), copyTarget(), groups)

	require.NoError(t, err)
	assert.Equal(t, []string{"g1/bob", "g2/bob", "g3/bob"}, client.addCalls)
}

func TestCopyMemberships_AlreadyMemberFromAdd_CountsAsSkip(t *testing.T) {
	// The membership probe said "not a member" but the add reports the
	// membership already exists
	client := &fakeDirectoryClient{
		addErr: map[string]error{
			"g1": &graph.APIError{StatusCode: 400, Message: "One or more added object references already exist"},
		},
	}
	d := newTestDirectory(client)

	report, err := d.CopyMemberships(context.Background(), copyTarget(), []domain.Group{{ID: "g1", DisplayName: "Team"}})

	require.NoError(t, err)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 1, report.Skipped)
}

func TestCopyMemberships_CancelledContextStopsBatch(t *testing.T) {
	client := &fakeDirectoryClient{}
	d := newTestDirectory(client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := d.CopyMemberships(ctx, copyTarget(), []domain.Group{{ID: "g1", DisplayName: "Team"}})

	require.Error(t, err)
	assert.Empty(t, client.addCalls)
	assert.NotNil(t, report)
}

func TestCopyMemberships_UsesResolvedTarget(t *testing.T) {
	// The caller resolves the target once up front; the batch itself
	// must not look the user up again
	client := &fakeDirectoryClient{}
	d := newTestDirectory(client)

	_, err := d.CopyMemberships(context.Background(), copyTarget(), []domain.Group{{ID: "g1", DisplayName: "Team"}})

	require.NoError(t, err)
	assert.Equal(t, 0, client.resolveCalls)
	assert.Equal(t, []string{"g1/bob"}, client.addCalls)
}

func TestCopyMemberships_UnresolvedTarget(t *testing.T) {
	client := &fakeDirectoryClient{}
	d := newTestDirectory(client)

	_, err := d.CopyMemberships(context.Background(), nil, []domain.Group{{ID: "g1", DisplayName: "Team"}})

	require.Error(t, err)
	assert.Empty(t, client.addCalls)
}
