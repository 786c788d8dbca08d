// Package file persists the client configuration as a TOML file in the
// user's home directory.
package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/entraops/entracopy/internal/core/domain"
)

// Defaults applied when the file is missing or fields are unset.
const (
	DefaultAuthority     = "https://login.microsoftonline.com/common"
	DefaultCallbackPort  = 18080
	DefaultRefreshMargin = 5 * time.Minute
)

// fileConfig is the on-disk shape. The refresh margin is stored in
// seconds so the file stays hand-editable.
type fileConfig struct {
	ClientID             string          `toml:"client_id"`
	Authority            string          `toml:"authority,omitempty"`
	CallbackPort         int             `toml:"callback_port,omitempty"`
	RefreshMarginSeconds int             `toml:"refresh_margin_seconds,omitempty"`
	AdminRoles           []fileAdminRole `toml:"admin_roles,omitempty"`
}

type fileAdminRole struct {
	TemplateID  string `toml:"template_id,omitempty"`
	DisplayName string `toml:"display_name,omitempty"`
}

// ConfigStore reads and writes ~/.entracopy/config.toml.
type ConfigStore struct {
	path string
}

// NewConfigStore creates a config store. An empty path defaults to
// ~/.entracopy/config.toml.
func NewConfigStore(path string) (*ConfigStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dir := filepath.Join(home, ".entracopy")
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create config directory: %w", err)
		}
		path = filepath.Join(dir, "config.toml")
	}
	return &ConfigStore{path: path}, nil
}

// Path returns the location of the config file.
func (s *ConfigStore) Path() string {
	return s.path
}

// Get returns the stored configuration with defaults applied. A missing
// file yields the defaults with an empty client ID.
func (s *ConfigStore) Get() (domain.ClientConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// First run, defaults only.
	case err != nil:
		return domain.ClientConfig{}, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.Unmarshal(data, &fc); err != nil {
			return domain.ClientConfig{}, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg := domain.ClientConfig{
		ClientID:      fc.ClientID,
		Authority:     fc.Authority,
		CallbackPort:  fc.CallbackPort,
		RefreshMargin: time.Duration(fc.RefreshMarginSeconds) * time.Second,
	}
	for _, r := range fc.AdminRoles {
		cfg.AdminRoles = append(cfg.AdminRoles, domain.AdminRole{
			TemplateID:  r.TemplateID,
			DisplayName: r.DisplayName,
		})
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// Set overwrites the stored configuration.
func (s *ConfigStore) Set(cfg domain.ClientConfig) error {
	applyDefaults(&cfg)
	fc := fileConfig{
		ClientID:             cfg.ClientID,
		Authority:            cfg.Authority,
		CallbackPort:         cfg.CallbackPort,
		RefreshMarginSeconds: int(cfg.RefreshMargin / time.Second),
	}
	for _, r := range cfg.AdminRoles {
		fc.AdminRoles = append(fc.AdminRoles, fileAdminRole{
			TemplateID:  r.TemplateID,
			DisplayName: r.DisplayName,
		})
	}

	data, err := toml.Marshal(fc)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func applyDefaults(cfg *domain.ClientConfig) {
	if cfg.Authority == "" {
		cfg.Authority = DefaultAuthority
	}
	if cfg.CallbackPort == 0 {
		cfg.CallbackPort = DefaultCallbackPort
	}
	if cfg.RefreshMargin == 0 {
		cfg.RefreshMargin = DefaultRefreshMargin
	}
}
