package services

import (
	"strings"

	"github.com/entraops/entracopy/internal/core/domain"
	"github.com/entraops/entracopy/internal/logger"
)

// DefaultAdminRoles is the built-in set of administrative directory roles
// that unlock the copy workflow. Matched by role template ID or, as a
// fallback for tenants where template IDs differ, by display name.
var DefaultAdminRoles = []domain.AdminRole{
	{TemplateID: "62e90394-69f5-4237-9190-012177145e10", DisplayName: "Global Administrator"},
	{TemplateID: "fe930be7-5e62-47db-91af-98c3a49a38b1", DisplayName: "User Administrator"},
	{TemplateID: "9b895d92-2cd3-44c7-9d02-a6ac2d5ea5c3", DisplayName: "Application Administrator"},
	{TemplateID: "194ae4cb-b126-40b2-bd5b-6091b380977d", DisplayName: "Security Administrator"},
	{TemplateID: "729827e3-9c14-49f7-bb1b-9608f156bbb8", DisplayName: "Helpdesk Administrator"},
	{TemplateID: "fdd7a751-b60b-444a-984c-02652fe8fa1c", DisplayName: "Groups Administrator"},
}

// rolePolicy decides whether a set of directory-role assignments grants
// administrative access. The decision fails closed: an empty or unknown
// role set means not an admin.
type rolePolicy struct {
	templateIDs map[string]struct{}
	names       map[string]struct{}
}

// newRolePolicy builds a matcher for the given roles, falling back to
// DefaultAdminRoles when none are configured.
func newRolePolicy(roles []domain.AdminRole) *rolePolicy {
	if len(roles) == 0 {
		roles = DefaultAdminRoles
	}
	p := &rolePolicy{
		templateIDs: make(map[string]struct{}, len(roles)),
		names:       make(map[string]struct{}, len(roles)),
	}
	for _, r := range roles {
		if r.TemplateID != "" {
			p.templateIDs[strings.ToLower(r.TemplateID)] = struct{}{}
		}
		if r.DisplayName != "" {
			p.names[strings.ToLower(r.DisplayName)] = struct{}{}
		}
	}
	return p
}

// grantsAdmin reports whether any of the assignments matches the policy.
func (p *rolePolicy) grantsAdmin(assignments []domain.DirectoryRole) bool {
	for _, a := range assignments {
		if _, ok := p.templateIDs[strings.ToLower(a.RoleTemplateID)]; ok && a.RoleTemplateID != "" {
			return true
		}
		if _, ok := p.names[strings.ToLower(a.DisplayName)]; ok && a.DisplayName != "" {
			return true
		}
	}
	return false
}

// filterManageable keeps only groups whose membership can be managed
// manually. Dynamic groups, mail-enabled security groups and legacy
// distribution lists all reject direct member additions, so offering them
// would only produce failed copies.
func filterManageable(groups []domain.Group) []domain.Group {
	manageable := make([]domain.Group, 0, len(groups))
	for _, g := range groups {
		switch {
		case g.IsDynamic():
			logger.Debug("policy: excluding dynamic group %q", g.DisplayName)
		case g.MailEnabled && g.SecurityEnabled:
			logger.Debug("policy: excluding mail-enabled security group %q", g.DisplayName)
		case g.MailEnabled && !g.IsUnified():
			logger.Debug("policy: excluding distribution group %q", g.DisplayName)
		default:
			manageable = append(manageable, g)
		}
	}
	return manageable
}
