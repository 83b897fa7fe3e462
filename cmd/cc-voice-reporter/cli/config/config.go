// Package config loads and validates the daemon's JSON configuration
// file, and implements the project include/exclude filter semantics of
// spec §7. Strict unknown-field rejection mirrors the teacher CLI's
// json.Decoder.DisallowUnknownFields discipline for its own config file.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

const LogLevelEnvVar = "CC_VOICE_REPORTER_LOG_LEVEL"

// Filter holds project include/exclude patterns.
type Filter struct {
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

// Speaker holds the TTS binary configuration.
type Speaker struct {
	Command []string `json:"command,omitempty"`
}

// Ollama holds LLM endpoint tuning.
type Ollama struct {
	Model     string `json:"model,omitempty"`
	BaseURL   string `json:"baseUrl,omitempty"`
	TimeoutMs int    `json:"timeoutMs,omitempty"`
}

// Summary holds summarizer throttle tuning.
type Summary struct {
	IntervalMs int `json:"intervalMs,omitempty"`
}

// Config is the on-disk schema at $XDG_CONFIG_HOME/cc-voice-reporter/config.json.
type Config struct {
	LogLevel    string  `json:"logLevel,omitempty"`
	Language    string  `json:"language,omitempty"`
	ProjectsDir string  `json:"projectsDir,omitempty"`
	Filter      Filter  `json:"filter,omitempty"`
	Speaker     Speaker `json:"speaker,omitempty"`
	Ollama      Ollama  `json:"ollama,omitempty"`
	Summary     Summary `json:"summary,omitempty"`
}

// Load reads and strictly parses the config file at path. A missing file
// is not an error; it yields a zero-value Config so every field falls
// back to its documented default.
func Load(path string) (Config, error) {
	f, err := os.Open(path) //nolint:gosec // path is an operator-supplied config location
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("config: opening %s: %w", path, err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse strictly decodes a config document, rejecting unknown fields.
func Parse(r io.Reader) (Config, error) {
	var cfg Config
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

// ResolveLogLevel applies the env override documented in spec §6: the
// CC_VOICE_REPORTER_LOG_LEVEL environment variable trumps the config
// file's logLevel field.
func (c Config) ResolveLogLevel() string {
	if v := os.Getenv(LogLevelEnvVar); v != "" {
		return v
	}
	return c.LogLevel
}

// Allows reports whether a project's resolved display name passes the
// include/exclude filters, per spec §7: a pattern matches if it is an
// exact match of, a suffix of, or appears as a substring of the display
// name; exclude overrides include; empty lists mean allow-all.
func (f Filter) Allows(displayName string) bool {
	for _, pattern := range f.Exclude {
		if matchesPattern(pattern, displayName) {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, pattern := range f.Include {
		if matchesPattern(pattern, displayName) {
			return true
		}
	}
	return false
}

func matchesPattern(pattern, displayName string) bool {
	if pattern == displayName {
		return true
	}
	if strings.HasSuffix(displayName, pattern) {
		return true
	}
	return strings.Contains(displayName, pattern)
}
