package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/entraops/entracopy/internal/core/domain"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to Microsoft Entra ID",
	Long: `Sign in interactively via the browser.

A browser window opens on the Microsoft sign-in page; the account chooser
is always shown so you can pick a different account than last time. The
session (tokens and profile) is stored locally and refreshed silently
until you run 'entracopy logout'.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Delete the stored session",
	Long:  `Delete the locally stored tokens and profile. Safe to run when already signed out.`,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	if authService == nil {
		return errors.New("auth service not configured")
	}

	ctx := context.Background()

	cmd.Println("Opening browser for authentication...")
	identity, err := authService.Login(ctx)
	if err != nil {
		return loginError(err)
	}

	cmd.Printf("Signed in as %s (%s)\n", identity.DisplayName, identity.Email())

	if directoryService != nil && !directoryService.IsAdmin(ctx) {
		cmd.Println(warnStyle.Render("Warning: this account holds no administrative directory role; copying memberships will fail."))
	}
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	if authService == nil {
		return errors.New("auth service not configured")
	}

	if err := authService.Logout(context.Background()); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	cmd.Println("Signed out.")
	return nil
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	if authService == nil {
		return errors.New("auth service not configured")
	}

	ctx := context.Background()
	identity, err := authService.CurrentIdentity(ctx)
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	if identity == nil {
		cmd.Println("Not signed in. Run 'entracopy login' first.")
		return nil
	}

	cmd.Printf("%s\n", identity.DisplayName)
	cmd.Printf("  UPN:   %s\n", identity.UserPrincipalName)
	if identity.Mail != "" {
		cmd.Printf("  Mail:  %s\n", identity.Mail)
	}
	cmd.Printf("  ID:    %s\n", identity.ID)
	if directoryService != nil {
		if directoryService.IsAdmin(ctx) {
			cmd.Println("  Admin: yes")
		} else {
			cmd.Println("  Admin: no")
		}
	}
	return nil
}

// loginError turns the flow's error taxonomy into a message that tells the
// user what to do next, not just what went wrong.
func loginError(err error) error {
	switch {
	case errors.Is(err, domain.ErrLoginCancelled):
		return errors.New("login cancelled")
	case errors.Is(err, domain.ErrLoginTimeout):
		return errors.New("login timed out: no response from the browser within the allowed time")
	}

	var authErr *domain.AuthorizationError
	if errors.As(err, &authErr) {
		if authErr.Code == "access_denied" {
			return errors.New("login declined on the Microsoft sign-in page")
		}
		return fmt.Errorf("the identity provider rejected the sign-in: %s", authErr.Error())
	}

	var exchErr *domain.TokenExchangeError
	if errors.As(err, &exchErr) {
		switch exchErr.Code {
		case "invalid_client", "unauthorized_client":
			return fmt.Errorf("the configured client id was rejected: check 'entracopy config show' against the app registration (%s)", exchErr.Error())
		case "invalid_grant":
			return fmt.Errorf("the authorization code was rejected, try again (%s)", exchErr.Error())
		}
		return err
	}

	return err
}
