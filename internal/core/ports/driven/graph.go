package driven

import (
	"context"

	"github.com/entraops/entracopy/internal/core/domain"
)

// DirectoryClient is the authenticated Microsoft Graph facade. Every
// operation takes a valid access token; 401/403 responses are surfaced
// verbatim to the caller, never retried or refreshed here (token refresh
// is the auth flow's responsibility, before the call).
type DirectoryClient interface {
	// Me returns the profile of the principal the token belongs to.
	Me(ctx context.Context, accessToken string) (*domain.Identity, error)

	// MyDirectoryRoles returns the directory-role memberships of the
	// current principal.
	MyDirectoryRoles(ctx context.Context, accessToken string) ([]domain.DirectoryRole, error)

	// SearchUsers returns up to ten users whose display name or
	// principal name starts with prefix.
	SearchUsers(ctx context.Context, accessToken, prefix string) ([]domain.User, error)

	// UserByPrincipalName resolves a user principal name to its
	// directory object.
	UserByPrincipalName(ctx context.Context, accessToken, upn string) (*domain.User, error)

	// UserGroups returns all group memberships of the given user with
	// the properties needed for the manageable-group filter.
	UserGroups(ctx context.Context, accessToken, userID string) ([]domain.Group, error)

	// IsMember reports whether the user is already a member of the
	// group. Any error is treated as "not a member": a conservative
	// default that risks a duplicate-add attempt, never a wrong skip.
	IsMember(ctx context.Context, accessToken, groupID, userID string) bool

	// AddMember adds the user as a member reference of the group.
	AddMember(ctx context.Context, accessToken, groupID, userID string) error
}
