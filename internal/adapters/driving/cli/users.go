package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/entraops/entracopy/internal/core/domain"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Look up directory users",
}

var usersSearchCmd = &cobra.Command{
	Use:   "search [prefix]",
	Short: "Search users by name or UPN prefix",
	Long: `Search directory users whose display name or user principal name starts
with the given prefix. At least two characters are required; at most ten
results are returned.`,
	Args: cobra.ExactArgs(1),
	RunE: runUsersSearch,
}

func init() {
	usersCmd.AddCommand(usersSearchCmd)
	rootCmd.AddCommand(usersCmd)
}

func runUsersSearch(cmd *cobra.Command, args []string) error {
	if directoryService == nil {
		return errors.New("directory service not configured")
	}

	prefix := strings.TrimSpace(args[0])
	users, err := directoryService.SearchUsers(context.Background(), prefix)
	if err != nil {
		if errors.Is(err, domain.ErrSearchTooShort) {
			return errors.New("search needs at least 2 characters")
		}
		if errors.Is(err, domain.ErrNotSignedIn) {
			return errNotSignedIn
		}
		return fmt.Errorf("search failed: %w", err)
	}

	if len(users) == 0 {
		cmd.Printf("No users matching %q.\n", prefix)
		return nil
	}

	for _, u := range users {
		cmd.Printf("%s\n", u.DisplayName)
		cmd.Printf("  UPN: %s\n", u.UserPrincipalName)
		if u.Mail != "" && u.Mail != u.UserPrincipalName {
			cmd.Printf("  Mail: %s\n", u.Mail)
		}
	}
	return nil
}

// errNotSignedIn is the user-facing version of domain.ErrNotSignedIn.
var errNotSignedIn = errors.New("not signed in: run 'entracopy login' first")
