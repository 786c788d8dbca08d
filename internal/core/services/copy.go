package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/entraops/entracopy/internal/core/domain"
	"github.com/entraops/entracopy/internal/graph"
	"github.com/entraops/entracopy/internal/logger"
)

// CopyMemberships adds the target user to each selected group, strictly
// one group at a time in the order given. A failure on one group is
// recorded and the batch moves on; groups the target already belongs to
// are skipped without an add attempt. The target comes in already
// resolved so the batch issues no further user lookups.
func (d *Directory) CopyMemberships(ctx context.Context, target *domain.User, groups []domain.Group) (*domain.CopyReport, error) {
	if target == nil || target.ID == "" {
		return nil, fmt.Errorf("target user is not resolved")
	}
	token, err := d.auth.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	report := &domain.CopyReport{}
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if d.client.IsMember(ctx, token, g.ID, target.ID) {
			logger.Debug("copy: %s already in %q, skipping", target.UserPrincipalName, g.DisplayName)
			report.Skipped++
			report.SkippedGroups = append(report.SkippedGroups, g.DisplayName)
			continue
		}

		err := d.client.AddMember(ctx, token, g.ID, target.ID)
		switch {
		case err == nil:
			report.Succeeded++
			report.Copied = append(report.Copied, g.DisplayName)
		case errors.Is(err, graph.ErrAlreadyMember):
			// The membership probe is best-effort; the add telling us
			// the membership already exists is still a skip, not a
			// failure.
			report.Skipped++
			report.SkippedGroups = append(report.SkippedGroups, g.DisplayName)
		default:
			logger.Debug("copy: adding %s to %q failed: %v", target.UserPrincipalName, g.DisplayName, err)
			report.Failed++
			report.Failures = append(report.Failures, domain.CopyFailure{
				GroupName: g.DisplayName,
				Reason:    err.Error(),
			})
		}
	}
	return report, nil
}
