// Package paths resolves the on-disk locations cc-voice-reporter reads and writes:
// the projects directory the AI assistant writes transcripts into, the hook
// side-channel directory, the configuration file, and the daemon's own log
// directory. All defaults follow the XDG Base Directory layout, matching the
// teacher CLI's own home-directory-relative conventions (see
// GetClaudeProjectDir in the original entire-cli paths package).
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// AppName is used to namespace every XDG directory this daemon touches.
const AppName = "cc-voice-reporter"

// DefaultProjectsDirName is the directory name the AI assistant uses under
// the user's home directory to store per-project transcript directories.
const DefaultProjectsDirName = ".claude/projects"

// xdgOrHome returns $envVar if set and absolute, otherwise joins fallbackRel
// onto the user's home directory. This mirrors the resolution order used by
// every XDG-aware tool in the example pack (config/state/cache home with a
// conventional fallback under $HOME).
func xdgOrHome(envVar, fallbackRel string) (string, error) {
	if v := os.Getenv(envVar); v != "" && filepath.IsAbs(v) {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, fallbackRel), nil
}

// ConfigHome returns $XDG_CONFIG_HOME, or ~/.config if unset.
func ConfigHome() (string, error) {
	return xdgOrHome("XDG_CONFIG_HOME", ".config")
}

// StateHome returns $XDG_STATE_HOME, or ~/.local/state if unset.
func StateHome() (string, error) {
	return xdgOrHome("XDG_STATE_HOME", ".local/state")
}

// ConfigFilePath returns the default configuration file path:
// $XDG_CONFIG_HOME/cc-voice-reporter/config.json.
func ConfigFilePath() (string, error) {
	home, err := ConfigHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, AppName, "config.json"), nil
}

// HooksStateDir returns the default hook side-channel directory:
// $XDG_STATE_HOME/cc-voice-reporter/hooks.
func HooksStateDir() (string, error) {
	home, err := StateHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, AppName, "hooks"), nil
}

// LogsDir returns the directory the daemon writes its own structured logs
// to: $XDG_STATE_HOME/cc-voice-reporter/logs.
func LogsDir() (string, error) {
	home, err := StateHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, AppName, "logs"), nil
}

// DefaultProjectsDir returns the default transcript root the AI assistant
// writes to: $HOME/.claude/projects. Overridable by config (spec §6).
func DefaultProjectsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, DefaultProjectsDirName), nil
}
