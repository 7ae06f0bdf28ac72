// Package config loads the daemon's own ambient configuration
// (timeouts, defaults) via github.com/spf13/viper, with in-code
// defaults and an optional file override, consumed by internal/daemon.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds daemon-wide, read-only-after-startup settings.
type Config struct {
	// InitTimeout bounds the initialize/initialized handshake.
	InitTimeout time.Duration `mapstructure:"init_timeout"`

	// ShutdownTimeout bounds the shutdown/exit grace period before a
	// spawned LSP child is signal-terminated.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// DefaultMaxDepth is the call-hierarchy walker's default depth
	// when a request omits max_depth.
	DefaultMaxDepth int `mapstructure:"default_max_depth"`

	// DevelopmentLogging switches the per-session zap logger between
	// zap.NewDevelopment and zap.NewProduction.
	DevelopmentLogging bool `mapstructure:"development_logging"`

	// Servers maps a session-registry language tag (see
	// internal/langid) to the subprocess that speaks LSP for it.
	// Operators extend or override entries in config.yaml; the daemon
	// ships with one sane default per langid.DefaultExtensions tag.
	Servers map[string]ServerCommand `mapstructure:"servers"`
}

// ServerCommand names one LSP subprocess to spawn.
type ServerCommand struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// DefaultServers seeds one widely-used language server per langid tag.
// An operator without that binary on PATH simply never requests that
// language; SessionStartFailed surfaces the spawn error when they do.
func DefaultServers() map[string]ServerCommand {
	return map[string]ServerCommand{
		"go":         {Command: "gopls", Args: []string{"serve"}},
		"rust":       {Command: "rust-analyzer"},
		"python":     {Command: "pyright-langserver", Args: []string{"--stdio"}},
		"typescript": {Command: "typescript-language-server", Args: []string{"--stdio"}},
		"javascript": {Command: "typescript-language-server", Args: []string{"--stdio"}},
		"c":          {Command: "clangd"},
		"cpp":        {Command: "clangd"},
		"java":       {Command: "jdtls"},
		"ruby":       {Command: "solargraph", Args: []string{"stdio"}},
	}
}

// Default returns the daemon's baked-in defaults: 30s init, 5s
// shutdown, max_depth 3.
func Default() Config {
	return Config{
		InitTimeout:        30 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		DefaultMaxDepth:    3,
		DevelopmentLogging: false,
		Servers:            DefaultServers(),
	}
}

// Load reads $HOME/.config/leta/config.yaml over the defaults, if
// present. A missing config file is not an error.
func Load() (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetDefault("init_timeout", cfg.InitTimeout)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
	v.SetDefault("default_max_depth", cfg.DefaultMaxDepth)
	v.SetDefault("development_logging", cfg.DevelopmentLogging)
	v.SetDefault("servers", cfg.Servers)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(ConfigDir())
	v.AutomaticEnv()
	v.SetEnvPrefix("LETA")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("failed to read leta config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal leta config: %w", err)
	}
	return cfg, nil
}

// Locate implements session.ServerLocator directly against the loaded
// Servers map, so cmd/leta can pass a Config straight into
// session.NewRegistry without an adapter type.
func (c Config) Locate(language string) (command string, args []string, ok bool) {
	sc, found := c.Servers[language]
	if !found || sc.Command == "" {
		return "", nil, false
	}
	return sc.Command, sc.Args, true
}
