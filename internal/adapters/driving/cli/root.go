package cli

import (
	"github.com/spf13/cobra"

	"github.com/entraops/entracopy/internal/core/ports/driving"
	"github.com/entraops/entracopy/internal/logger"
)

var (
	// Version is set by goreleaser ldflags.
	version = "dev"

	// Verbose enables debug logging.
	verbose bool

	// Services holds injected service implementations for CLI commands.
	authService      driving.AuthService
	directoryService driving.DirectoryService
)

// Services holds configuration for CLI commands.
type Services struct {
	Auth      driving.AuthService
	Directory driving.DirectoryService
}

// SetServices injects service implementations for CLI commands.
func SetServices(s *Services) {
	if s == nil {
		return
	}
	authService = s.Auth
	directoryService = s.Directory
}

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "entracopy",
	Short: "Copy Entra ID group memberships between users",
	Long: `Entracopy signs in to Microsoft Entra ID with your own account and copies
group memberships from one user to another: look up the source user's
groups, filter out the ones that cannot be managed manually, and add the
target user to the rest.

Requires an administrative directory role and an app registration
(client ID) with the delegated Graph permissions set up.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string for the CLI.
func SetVersion(v string) {
	version = v
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose debug output")

	// Use PersistentPreRunE to set verbose mode before any command executes
	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		return nil
	}
}
