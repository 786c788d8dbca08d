package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/entraops/entracopy/internal/core/ports/driven"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage client configuration",
	Long: `Show or change the OAuth client configuration.

The client id must be an Entra ID app registration with these delegated
Graph permissions: User.Read, User.ReadBasic.All, User.Read.All,
Group.Read.All, GroupMember.ReadWrite.All. The registration needs
http://localhost:<callback-port>/callback as a redirect URI.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change configuration values",
	Long: `Change one or more configuration values.

Changing the client id, the authority or the callback port invalidates
any stored session, so those changes sign you out.`,
	RunE: runConfigSet,
}

// configStore is injected separately from the services: configuration must
// be editable before a first login is possible.
var configStore driven.ConfigStore

// SetConfigStore injects the configuration store for the config commands.
func SetConfigStore(s driven.ConfigStore) {
	configStore = s
}

// Flags for config set.
var (
	cfgClientID      string
	cfgAuthority     string
	cfgCallbackPort  int
	cfgRefreshMargin time.Duration
)

func init() {
	configSetCmd.Flags().StringVar(&cfgClientID, "client-id", "", "app registration (client) ID")
	configSetCmd.Flags().StringVar(&cfgAuthority, "authority", "", "identity platform authority URL")
	configSetCmd.Flags().IntVar(&cfgCallbackPort, "callback-port", 0, "loopback port for the login redirect")
	configSetCmd.Flags().DurationVar(&cfgRefreshMargin, "refresh-margin", 0, "how long before expiry tokens are refreshed (e.g. 5m)")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	cfg, err := configStore.Get()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "(not set)"
	}
	cmd.Printf("Client ID:      %s\n", clientID)
	cmd.Printf("Authority:      %s\n", cfg.Authority)
	cmd.Printf("Callback port:  %d\n", cfg.CallbackPort)
	cmd.Printf("Refresh margin: %s\n", cfg.RefreshMargin)
	if len(cfg.AdminRoles) > 0 {
		cmd.Println("Admin roles (overriding built-in set):")
		for _, r := range cfg.AdminRoles {
			cmd.Printf("  %s (%s)\n", r.DisplayName, r.TemplateID)
		}
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	cfg, err := configStore.Get()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// A session is bound to the client, authority and redirect URI it
	// was issued for.
	invalidatesSession := false

	if cmd.Flags().Changed("client-id") && cfgClientID != cfg.ClientID {
		cfg.ClientID = cfgClientID
		invalidatesSession = true
	}
	if cmd.Flags().Changed("authority") && !cfg.AuthorityEquals(cfgAuthority) {
		cfg.Authority = cfgAuthority
		invalidatesSession = true
	}
	if cmd.Flags().Changed("callback-port") {
		if cfgCallbackPort < 1 || cfgCallbackPort > 65535 {
			return fmt.Errorf("invalid callback port: %d", cfgCallbackPort)
		}
		// The port is part of the registered redirect URI, so changing
		// it invalidates the session just like the client id does.
		if cfgCallbackPort != cfg.CallbackPort {
			cfg.CallbackPort = cfgCallbackPort
			invalidatesSession = true
		}
	}
	if cmd.Flags().Changed("refresh-margin") {
		if cfgRefreshMargin < 0 {
			return fmt.Errorf("refresh margin cannot be negative: %s", cfgRefreshMargin)
		}
		cfg.RefreshMargin = cfgRefreshMargin
	}

	if err := configStore.Set(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	if invalidatesSession && authService != nil {
		if err := authService.Logout(context.Background()); err != nil {
			return fmt.Errorf("failed to clear stored session: %w", err)
		}
		cmd.Println("Configuration saved. The stored session was cleared; run 'entracopy login' again.")
		return nil
	}
	cmd.Println("Configuration saved.")
	return nil
}
