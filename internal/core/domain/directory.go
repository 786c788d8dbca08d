package domain

import "slices"

// User is a directory user as returned by Microsoft Graph.
type User struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	UserPrincipalName string `json:"userPrincipalName"`
	Mail              string `json:"mail"`
}

// DirectoryRole is an administrative role assignment in the directory.
type DirectoryRole struct {
	ID             string `json:"id"`
	DisplayName    string `json:"displayName"`
	RoleTemplateID string `json:"roleTemplateId"`
}

// Group is a directory group with the properties needed to decide whether
// its membership can be managed manually.
type Group struct {
	ID                            string   `json:"id"`
	DisplayName                   string   `json:"displayName"`
	GroupTypes                    []string `json:"groupTypes"`
	MailEnabled                   bool     `json:"mailEnabled"`
	SecurityEnabled               bool     `json:"securityEnabled"`
	MembershipRule                string   `json:"membershipRule"`
	MembershipRuleProcessingState string   `json:"membershipRuleProcessingState"`
}

// IsUnified reports whether the group carries the "Unified" group type
// (Microsoft 365 group).
func (g *Group) IsUnified() bool {
	return slices.Contains(g.GroupTypes, "Unified")
}

// IsDynamic reports whether the group's membership is rule-driven and the
// rule processing is active. Such groups cannot be managed manually.
func (g *Group) IsDynamic() bool {
	return g.MembershipRule != "" && g.MembershipRuleProcessingState == "On"
}

// GroupCategory is a derived display label for a group. It is used for
// rendering only, never for policy decisions.
type GroupCategory string

const (
	CategoryOffice365Group GroupCategory = "Office 365 Group"
	CategoryOffice365Team  GroupCategory = "Office 365 Team"
	CategorySecurityGroup  GroupCategory = "Security Group"
	CategoryMailGroup      GroupCategory = "Mail Group"
	CategoryOther          GroupCategory = ""
)

// Category derives the display category of the group.
func (g *Group) Category() GroupCategory {
	switch {
	case g.IsUnified() && g.MailEnabled:
		return CategoryOffice365Group
	case g.IsUnified():
		return CategoryOffice365Team
	case g.SecurityEnabled && !g.MailEnabled:
		return CategorySecurityGroup
	case g.MailEnabled:
		return CategoryMailGroup
	default:
		return CategoryOther
	}
}

// CopyFailure records why one group could not be copied.
type CopyFailure struct {
	GroupName string
	Reason    string
}

// CopyReport is the per-group outcome of a membership copy batch. The
// batch runs each selected group to completion, so the report is stable
// and deterministic for a given input order.
type CopyReport struct {
	Succeeded int
	Failed    int
	Skipped   int

	Copied        []string
	SkippedGroups []string
	Failures      []CopyFailure
}
