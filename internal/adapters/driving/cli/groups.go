package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/entraops/entracopy/internal/core/domain"
)

var groupsCmd = &cobra.Command{
	Use:   "groups [upn]",
	Short: "List a user's manageable groups",
	Long: `List the group memberships of a user that can be managed manually.

Dynamic groups, mail-enabled security groups and legacy distribution
lists are filtered out: adding members to them directly either fails or
is undone by the membership rule.`,
	Args: cobra.ExactArgs(1),
	RunE: runGroups,
}

var copyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Copy group memberships from one user to another",
	Long: `Add the target user to the source user's manageable groups, one group
at a time. Groups the target already belongs to are skipped. A failure
on one group does not stop the rest of the batch.

Examples:
  # Copy every manageable group
  entracopy copy --from alice@contoso.com --to bob@contoso.com

  # Copy only the named groups
  entracopy copy --from alice@contoso.com --to bob@contoso.com --group "Sales Team" --group "Field Staff"`,
	RunE: runCopy,
}

// Flags for copy.
var (
	copyFrom   string
	copyTo     string
	copyGroups []string
	copyYes    bool
)

func init() {
	copyCmd.Flags().StringVar(&copyFrom, "from", "", "UPN of the user to copy memberships from (required)")
	copyCmd.Flags().StringVar(&copyTo, "to", "", "UPN of the user to add to the groups (required)")
	copyCmd.Flags().StringArrayVar(&copyGroups, "group", nil, "copy only groups with this display name (can be repeated)")
	copyCmd.Flags().BoolVarP(&copyYes, "yes", "y", false, "skip the confirmation prompt")
	_ = copyCmd.MarkFlagRequired("from")
	_ = copyCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(groupsCmd)
	rootCmd.AddCommand(copyCmd)
}

func runGroups(cmd *cobra.Command, args []string) error {
	if directoryService == nil {
		return errors.New("directory service not configured")
	}

	upn := args[0]
	groups, err := directoryService.ManageableGroups(context.Background(), upn)
	if err != nil {
		if errors.Is(err, domain.ErrNotSignedIn) {
			return errNotSignedIn
		}
		return fmt.Errorf("failed to list groups: %w", err)
	}

	if len(groups) == 0 {
		cmd.Printf("%s has no manageable groups.\n", upn)
		return nil
	}

	cmd.Printf("Manageable groups of %s:\n", upn)
	for _, g := range groups {
		if cat := g.Category(); cat != domain.CategoryOther {
			cmd.Printf("  %s (%s)\n", g.DisplayName, cat)
		} else {
			cmd.Printf("  %s\n", g.DisplayName)
		}
	}
	return nil
}

func runCopy(cmd *cobra.Command, _ []string) error {
	if directoryService == nil {
		return errors.New("directory service not configured")
	}

	ctx := context.Background()

	if !directoryService.IsAdmin(ctx) {
		return errors.New("copying memberships requires an administrative directory role on the signed-in account")
	}

	target, err := directoryService.ResolveUser(ctx, copyTo)
	if err != nil {
		if errors.Is(err, domain.ErrNotSignedIn) {
			return errNotSignedIn
		}
		return fmt.Errorf("target user %s not found: %w", copyTo, err)
	}

	groups, err := directoryService.ManageableGroups(ctx, copyFrom)
	if err != nil {
		return fmt.Errorf("failed to list groups of %s: %w", copyFrom, err)
	}
	if len(copyGroups) > 0 {
		groups, err = selectGroups(groups, copyGroups)
		if err != nil {
			return err
		}
	}
	if len(groups) == 0 {
		cmd.Printf("%s has no manageable groups to copy.\n", copyFrom)
		return nil
	}

	cmd.Printf("Copying %d group(s) to %s (%s):\n", len(groups), target.DisplayName, target.UserPrincipalName)
	for _, g := range groups {
		cmd.Printf("  %s\n", g.DisplayName)
	}

	if !copyYes {
		cmd.Print("\nProceed? [y/N]: ")
		reader := bufio.NewReader(os.Stdin)
		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(strings.ToLower(input))
		if input != "y" && input != "yes" {
			cmd.Println("Aborted.")
			return nil
		}
	}

	report, err := directoryService.CopyMemberships(ctx, target, groups)
	if err != nil {
		return fmt.Errorf("copy failed: %w", err)
	}

	cmd.Print(renderReport(report))
	return nil
}

// selectGroups keeps the groups whose display name was requested, and
// fails on names that matched nothing so a typo is not silently a no-op.
func selectGroups(groups []domain.Group, names []string) ([]domain.Group, error) {
	byName := make(map[string]domain.Group, len(groups))
	for _, g := range groups {
		byName[strings.ToLower(g.DisplayName)] = g
	}

	selected := make([]domain.Group, 0, len(names))
	for _, name := range names {
		g, ok := byName[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("group %q is not among the source user's manageable groups", name)
		}
		selected = append(selected, g)
	}
	return selected, nil
}
