package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/kioskops/kioskctl/internal/elevation"
	kioskerrors "github.com/kioskops/kioskctl/pkg/errors"
)

// logLevels mirrors what the logger accepts.
var logLevels = map[string]struct{}{"trace": {}, "debug": {}, "info": {}, "warn": {}, "error": {}}

// ToolConfig holds operator-level settings for the tool itself, as opposed
// to the kiosk profile it enforces. Every field has a working default; the
// TOML file only overrides.
type ToolConfig struct {
	AgentDir      string
	LogLevel      string
	HumanLogs     bool
	ShellPath     string
	ElevationTTL  time.Duration
	VerifyWorkers int
}

type toolFileConfig struct {
	AgentDir      string `toml:"agent_dir"`
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	Shell         string `toml:"shell"`
	ElevationTTL  string `toml:"elevation_ttl"`
	VerifyWorkers int    `toml:"verify_workers"`
}

// DefaultToolConfig returns the built-in settings. AgentDir and ShellPath
// stay empty here so the launchd and gateway layers apply their own
// platform resolution; VerifyWorkers zero means the reconciler default.
func DefaultToolConfig() ToolConfig {
	return ToolConfig{
		LogLevel:     "info",
		HumanLogs:    true,
		ElevationTTL: elevation.DefaultTTL,
	}
}

// DefaultToolConfigPath returns where LoadToolConfig looks when no path is
// given.
func DefaultToolConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "kioskctl", "config.toml"), nil
}

// LoadToolConfig reads the tool settings file at path. A missing file is
// not an error: the defaults already work.
func LoadToolConfig(path string) (ToolConfig, error) {
	cfg := DefaultToolConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	var raw toolFileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return ToolConfig{}, kioskerrors.NewParseError(path, 0, err)
	}

	if meta.IsDefined("agent_dir") {
		dir, err := expandHome(strings.TrimSpace(raw.AgentDir))
		if err != nil {
			return ToolConfig{}, err
		}
		cfg.AgentDir = dir
	}

	if meta.IsDefined("log_level") {
		level := strings.ToLower(strings.TrimSpace(raw.LogLevel))
		if _, ok := logLevels[level]; !ok {
			return ToolConfig{}, kioskerrors.NewValidationError("log_level", fmt.Sprintf("unknown level %q", raw.LogLevel), nil)
		}
		cfg.LogLevel = level
	}

	if meta.IsDefined("log_format") {
		switch strings.ToLower(strings.TrimSpace(raw.LogFormat)) {
		case "console":
			cfg.HumanLogs = true
		case "json":
			cfg.HumanLogs = false
		default:
			return ToolConfig{}, kioskerrors.NewValidationError("log_format", fmt.Sprintf("must be console or json, got %q", raw.LogFormat), nil)
		}
	}

	if meta.IsDefined("shell") {
		cfg.ShellPath = strings.TrimSpace(raw.Shell)
	}

	if meta.IsDefined("elevation_ttl") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ElevationTTL))
		if err != nil {
			return ToolConfig{}, kioskerrors.NewValidationError("elevation_ttl", err.Error(), err)
		}
		if d <= 0 {
			return ToolConfig{}, kioskerrors.NewValidationError("elevation_ttl", "must be positive", nil)
		}
		cfg.ElevationTTL = d
	}

	if meta.IsDefined("verify_workers") {
		if raw.VerifyWorkers < 0 || raw.VerifyWorkers > 32 {
			return ToolConfig{}, kioskerrors.NewValidationError("verify_workers", "must be between 0 and 32", nil)
		}
		cfg.VerifyWorkers = raw.VerifyWorkers
	}

	return cfg, nil
}

// expandHome rewrites a leading ~/ to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
