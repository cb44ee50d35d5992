// Package config loads waybarctl settings from an optional TOML file and the
// environment, and sources the session's KEY=VALUE environment files.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Environment variables read by Load.
const (
	EnvBinary        = "WAYBAR_BIN"
	EnvWatchInterval = "WAYBAR_WATCH_INTERVAL"
	EnvThemeLockTTL  = "WAYBAR_THEME_LOCK_TTL"
	EnvLogLevel      = "WAYBARCTL_LOG_LEVEL"
)

// Config holds the tool's own settings.
type Config struct {
	// Binary is the waybar executable name or path.
	Binary string `toml:"binary"`

	// WatchInterval bounds each watcher tick.
	WatchInterval Duration `toml:"watch_interval"`

	// ThemeLockTTL expires a theme-update lock that carries no PID.
	// Zero means such a lock never expires.
	ThemeLockTTL Duration `toml:"theme_lock_ttl"`

	// ThemeLockHint must appear in the lock holder's command line.
	ThemeLockHint string `toml:"theme_lock_hint"`

	StopTimeout      Duration `toml:"stop_timeout"`
	StopPollInterval Duration `toml:"stop_poll_interval"`

	// LayoutIgnore lists layout basenames never offered as layouts.
	LayoutIgnore []string `toml:"layout_ignore"`

	Notify          bool   `toml:"notify"`
	NotifyReplaceID int    `toml:"notify_replace_id"`
	Picker          string `toml:"picker"`
	PickerTheme     string `toml:"picker_theme"`

	// SyncScript runs after a layout change (swaync position sync).
	SyncScript string `toml:"sync_script"`

	LogLevel string `toml:"log_level"`
}

// Default returns the built-in settings.
func Default() *Config {
	syncScript := ""
	if exe, err := os.Executable(); err == nil {
		syncScript = filepath.Join(filepath.Dir(exe), "waybar.swaync.sync.sh")
	}

	return &Config{
		Binary:           "waybar",
		WatchInterval:    Duration{200 * time.Millisecond},
		ThemeLockTTL:     Duration{120 * time.Second},
		ThemeLockHint:    "color.set.sh",
		StopTimeout:      Duration{5 * time.Second},
		StopPollInterval: Duration{100 * time.Millisecond},
		LayoutIgnore:     []string{"test.jsonc", "dock#sample.jsonc"},
		Notify:           true,
		NotifyReplaceID:  9,
		Picker:           "rofi",
		PickerTheme:      "clipboard",
		SyncScript:       syncScript,
		LogLevel:         "info",
	}
}

// Load reads path (a missing file is not an error) and applies environment
// overrides on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, err
			}
		}
	}
	applyEnvOverrides(cfg, os.Getenv)
	return cfg, nil
}

// applyEnvOverrides lets the session environment win over the file.
// Invalid values are ignored and the previous value kept.
func applyEnvOverrides(cfg *Config, getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvBinary)); v != "" {
		cfg.Binary = v
	}
	if v := strings.TrimSpace(getenv(EnvWatchInterval)); v != "" {
		if d, err := parseDuration(v); err == nil && d > 0 {
			cfg.WatchInterval = Duration{d}
		}
	}
	if v := strings.TrimSpace(getenv(EnvThemeLockTTL)); v != "" {
		if d, err := parseDuration(v); err == nil {
			cfg.ThemeLockTTL = Duration{d}
		} else if strings.HasPrefix(v, "-") {
			cfg.ThemeLockTTL = Duration{0}
		}
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = v
	}
}
