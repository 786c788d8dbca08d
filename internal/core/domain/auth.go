package domain

import (
	"strings"
	"time"
)

// TokenSet is the persisted OAuth token state for the signed-in session.
// ExpiresAt is always derived from the server-declared lifetime at issue
// time, never from inspecting the token itself.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scope        string    `json:"scope"`
}

// ExpiresWithin reports whether the access token expires inside the given
// lookahead window (or has already expired).
func (t *TokenSet) ExpiresWithin(margin time.Duration) bool {
	return !t.ExpiresAt.After(time.Now().Add(margin))
}

// Identity is the cached directory profile of the signed-in principal.
// It is refreshed whenever a new token set is established and used only
// for display and "am I signed in" checks, never for authorization.
type Identity struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	UserPrincipalName string `json:"userPrincipalName"`
	Mail              string `json:"mail"`
}

// Email returns the identity's email address.
// Falls back to userPrincipalName if mail is not set.
func (i *Identity) Email() string {
	if i.Mail != "" {
		return i.Mail
	}
	return i.UserPrincipalName
}

// ClientConfig is the user-editable OAuth client configuration. It is
// treated as immutable input for the duration of one flow; changing the
// client or authority invalidates any stored session.
type ClientConfig struct {
	// ClientID is the Entra ID app registration (application) ID.
	ClientID string `toml:"client_id"`
	// Authority is the base URL of the identity platform endpoint,
	// e.g. https://login.microsoftonline.com/common.
	Authority string `toml:"authority"`
	// CallbackPort is the loopback port the redirect URI is served on.
	// Register http://localhost:<port>/callback on the app registration.
	CallbackPort int `toml:"callback_port"`
	// RefreshMargin is how long before expiry an access token is
	// refreshed ahead of use.
	RefreshMargin time.Duration `toml:"refresh_margin"`
	// AdminRoles overrides the built-in administrative role set when
	// non-empty. Role template IDs are not stable across every tenant,
	// so the matcher is configuration rather than a hardcoded list.
	AdminRoles []AdminRole `toml:"admin_roles,omitempty"`
}

// AdminRole identifies one administrative directory role, matched by
// role template ID or by display name. The display-name match is a
// compatibility fallback for tenants where template IDs differ.
type AdminRole struct {
	TemplateID  string `toml:"template_id"`
	DisplayName string `toml:"display_name"`
}

// RequiredScopes is the fixed scope list requested on every interactive
// login. offline_access is what makes the provider issue refresh tokens.
var RequiredScopes = []string{
	"openid",
	"offline_access",
	"User.Read",
	"User.ReadBasic.All",
	"User.Read.All",
	"Group.Read.All",
	"GroupMember.ReadWrite.All",
}

// AuthorityEquals compares two authority URLs ignoring a trailing slash.
func (c ClientConfig) AuthorityEquals(other string) bool {
	return strings.TrimSuffix(c.Authority, "/") == strings.TrimSuffix(other, "/")
}
