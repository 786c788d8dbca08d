package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/entraops/entracopy/internal/core/domain"
	"github.com/entraops/entracopy/internal/core/ports/driven"
	"github.com/entraops/entracopy/internal/core/ports/driving"
	"github.com/entraops/entracopy/internal/logger"
)

// minSearchLength is the shortest allowed user search prefix. Shorter
// prefixes match half the directory and waste a throttled request.
const minSearchLength = 2

// Directory implements driving.DirectoryService on top of the Graph
// client. Every operation pulls a fresh access token from the auth
// service first, so a token inside the expiry margin is refreshed before
// the directory call rather than failing it.
type Directory struct {
	auth   driving.AuthService
	client driven.DirectoryClient
	config driven.ConfigStore
}

// NewDirectory creates the directory service.
func NewDirectory(auth driving.AuthService, client driven.DirectoryClient, config driven.ConfigStore) *Directory {
	return &Directory{auth: auth, client: client, config: config}
}

// IsAdmin reports whether the signed-in principal holds one of the
// configured administrative roles. Any failure along the way means false:
// admin access is never granted on a guess.
func (d *Directory) IsAdmin(ctx context.Context) bool {
	token, err := d.auth.AccessToken(ctx)
	if err != nil {
		return false
	}
	assignments, err := d.client.MyDirectoryRoles(ctx, token)
	if err != nil {
		logger.Debug("directory: role lookup failed: %v", err)
		return false
	}

	cfg, err := d.config.Get()
	if err != nil {
		return false
	}
	return newRolePolicy(cfg.AdminRoles).grantsAdmin(assignments)
}

// SearchUsers searches directory users by display-name or principal-name
// prefix.
func (d *Directory) SearchUsers(ctx context.Context, prefix string) ([]domain.User, error) {
	prefix = strings.TrimSpace(prefix)
	if len(prefix) < minSearchLength {
		return nil, domain.ErrSearchTooShort
	}
	token, err := d.auth.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	return d.client.SearchUsers(ctx, token, prefix)
}

// ResolveUser resolves a user principal name to its directory object.
func (d *Directory) ResolveUser(ctx context.Context, upn string) (*domain.User, error) {
	token, err := d.auth.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	user, err := d.client.UserByPrincipalName(ctx, token, upn)
	if err != nil {
		return nil, fmt.Errorf("resolve user %s: %w", upn, err)
	}
	return user, nil
}

// ManageableGroups returns the user's group memberships that pass the
// manual-management policy filter.
func (d *Directory) ManageableGroups(ctx context.Context, upn string) ([]domain.Group, error) {
	token, err := d.auth.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	user, err := d.client.UserByPrincipalName(ctx, token, upn)
	if err != nil {
		return nil, fmt.Errorf("resolve user %s: %w", upn, err)
	}
	groups, err := d.client.UserGroups(ctx, token, user.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch groups of %s: %w", upn, err)
	}
	return filterManageable(groups), nil
}
