// Package config loads the client settings from the environment.
package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sethvargo/go-envconfig"
)

// Config holds everything the session core needs from its environment. The
// hostname plays the role of the browser location; the tenant domain is the
// optional override that beats both the persisted domain and the hostname.
type Config struct {
	Hostname     string `env:"ADMIN_HOSTNAME,      default=localhost"`
	TenantDomain string `env:"ADMIN_TENANT_DOMAIN"`
	StatePath    string `env:"ADMIN_STATE_PATH"`
	LogLevel     string `env:"ADMIN_LOG_LEVEL,     default=info"`
	LogPretty    bool   `env:"ADMIN_LOG_PRETTY,    default=true"`
}

// Load reads the configuration from environment variables. When no state
// path is set, the session file lands under the user config directory.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, errors.Wrap(err, "[config.Load] envconfig.Process")
	}
	if cfg.StatePath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, errors.Wrap(err, "[config.Load] os.UserConfigDir")
		}
		cfg.StatePath = filepath.Join(dir, "adminctl", "session.json")
	}
	return &cfg, nil
}
