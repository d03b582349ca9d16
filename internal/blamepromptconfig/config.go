// Package blamepromptconfig loads the optional engine configuration file:
// a TOML document controlling redaction policy and capture limits, read
// from the repository first and the user's home directory as a fallback.
package blamepromptconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/blameprompt/blameprompt/internal/redact"
)

// FileName is the config file's name, looked up at both <repo>/FileName and
// <home>/.blameprompt/FileName.
const FileName = "blameprompt.toml"

// DefaultMaxPromptLength is the character cap on stored prompt text when
// capture.max_prompt_length is unset.
const DefaultMaxPromptLength = 2000

// RedactionConfig controls the behavior of the redaction scanner.
type RedactionConfig struct {
	// Mode is "replace" (default) or "hash".
	Mode string `toml:"mode"`
	// CustomPatterns are extra detectors applied after the built-ins, in
	// order.
	CustomPatterns []CustomPattern `toml:"custom_patterns"`
	// DisablePatterns names built-in kinds (by the same names reported in
	// a Detection.Kind) to skip entirely.
	DisablePatterns []string `toml:"disable_patterns"`
}

// CustomPattern is one user-supplied regex detector.
type CustomPattern struct {
	Pattern     string `toml:"pattern"`
	Replacement string `toml:"replacement"`
}

// CaptureConfig controls how much of a transcript is retained in a Receipt.
type CaptureConfig struct {
	// MaxPromptLength caps stored prompt text; 0 means "unset" and the
	// caller should apply DefaultMaxPromptLength.
	MaxPromptLength int `toml:"max_prompt_length"`
	// StoreFullConversation controls whether the full conversation[]
	// array is populated, or only the summary fields.
	StoreFullConversation bool `toml:"store_full_conversation"`
}

// TelemetryConfig controls the opt-in anonymized usage event stream.
type TelemetryConfig struct {
	// Enabled is nil until the user has been asked once (init's consent
	// prompt); nil must never be treated as true.
	Enabled *bool `toml:"enabled"`
}

// Config is the top-level shape of blameprompt.toml.
type Config struct {
	Redaction RedactionConfig `toml:"redaction"`
	Capture   CaptureConfig   `toml:"capture"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// Default returns the configuration applied when no file is found.
func Default() Config {
	return Config{
		Redaction: RedactionConfig{Mode: "replace"},
		Capture:   CaptureConfig{MaxPromptLength: DefaultMaxPromptLength},
	}
}

// Load reads blameprompt.toml from repoRoot, falling back to
// <home>/.blameprompt/blameprompt.toml if the repo copy is absent, and
// finally to Default() if neither exists. A present-but-malformed file is
// an error; an absent one is not.
func Load(repoRoot string) (Config, error) {
	cfg := Default()

	path := filepath.Join(repoRoot, FileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return cfg, nil
		}
		path = filepath.Join(home, ".blameprompt", FileName)
		data, err = os.ReadFile(path)
		if os.IsNotExist(err) {
			return cfg, nil
		}
	}
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Redaction.Mode == "" {
		cfg.Redaction.Mode = "replace"
	}
	if cfg.Capture.MaxPromptLength == 0 {
		cfg.Capture.MaxPromptLength = DefaultMaxPromptLength
	}
	return cfg, nil
}

// Save writes cfg to <repoRoot>/FileName via tmp-then-rename, the same
// atomic-write discipline the staging journal and annotation store use.
func Save(repoRoot string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", FileName, err)
	}
	path := filepath.Join(repoRoot, FileName)
	tmp, err := os.CreateTemp(repoRoot, ".blameprompt-config-tmp-")
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", FileName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// RedactPolicy translates the config's [redaction] section into a
// redact.Policy, the shape the scrubber actually consumes.
func (c Config) RedactPolicy() redact.Policy {
	policy := redact.Policy{Mode: redact.Mode(c.Redaction.Mode)}

	for _, k := range c.Redaction.DisablePatterns {
		policy.DisablePatterns = append(policy.DisablePatterns, redact.Kind(k))
	}
	for _, p := range c.Redaction.CustomPatterns {
		policy.CustomPatterns = append(policy.CustomPatterns, redact.CustomPattern{
			Pattern:     p.Pattern,
			Replacement: p.Replacement,
		})
	}
	return policy
}
