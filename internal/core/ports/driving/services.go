package driving

import (
	"context"

	"github.com/entraops/entracopy/internal/core/domain"
)

// AuthService owns the token lifecycle: interactive login, silent refresh
// and sign-out.
type AuthService interface {
	// Login runs the interactive authorization-code flow and returns
	// the identity of the principal that signed in.
	Login(ctx context.Context) (*domain.Identity, error)

	// Logout deletes the stored session. Idempotent, no network call.
	Logout(ctx context.Context) error

	// AccessToken returns a valid access token, refreshing it silently
	// when it is inside the expiry margin. Returns
	// domain.ErrNotSignedIn when no session exists.
	AccessToken(ctx context.Context) (string, error)

	// CurrentIdentity returns the cached identity record, or nil when
	// signed out.
	CurrentIdentity(ctx context.Context) (*domain.Identity, error)
}

// DirectoryService exposes the directory operations the CLI needs:
// user lookup, group listing with the manageable-group policy applied,
// admin determination and the membership copy batch.
type DirectoryService interface {
	// IsAdmin reports whether the signed-in principal holds one of the
	// configured administrative directory roles. Unknown means false.
	IsAdmin(ctx context.Context) bool

	// SearchUsers searches directory users by display-name or
	// principal-name prefix. The prefix must be at least two characters.
	SearchUsers(ctx context.Context, prefix string) ([]domain.User, error)

	// ResolveUser resolves a user principal name to a directory user.
	ResolveUser(ctx context.Context, upn string) (*domain.User, error)

	// ManageableGroups returns the user's group memberships that pass
	// the manual-management policy filter.
	ManageableGroups(ctx context.Context, upn string) ([]domain.Group, error)

	// CopyMemberships adds the target user to each selected group,
	// strictly sequentially, and reports per-group outcomes. Groups the
	// user already belongs to are skipped. The target must already be
	// resolved via ResolveUser.
	CopyMemberships(ctx context.Context, target *domain.User, groups []domain.Group) (*domain.CopyReport, error)
}
