package claudecode

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blameprompt/blameprompt/internal/transcript"
)

var (
	_ transcript.HookInstaller    = Adapter{}
	_ transcript.PresenceDetector = Adapter{}
)

// Hook verbs registered under `blameprompt hooks claude-code <verb>`.
const (
	HookNameSessionStart     = "session-start"
	HookNameUserPromptSubmit = "user-prompt-submit"
	HookNameStop             = "stop"
)

// settingsFileName is the Claude Code hook configuration file, relative to
// the repository root.
const settingsFileName = ".claude/settings.json"

// hookEntry is one command entry within a Claude Code hook matcher.
type hookEntry struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

// hookMatcher groups hook entries under an (optional) tool-name matcher.
type hookMatcher struct {
	Matcher string      `json:"matcher,omitempty"`
	Hooks   []hookEntry `json:"hooks"`
}

type hookConfig struct {
	SessionStart     []hookMatcher `json:"SessionStart,omitempty"`
	UserPromptSubmit []hookMatcher `json:"UserPromptSubmit,omitempty"`
	Stop             []hookMatcher `json:"Stop,omitempty"`
}

// InstallHookConfig idempotently merges blameprompt's hook commands into
// .claude/settings.json, preserving any other hooks or settings already
// present. Running it twice leaves the file byte-identical after the first.
func (a Adapter) InstallHookConfig(repoRoot string) error {
	path := filepath.Join(repoRoot, filepath.FromSlash(settingsFileName))

	raw, existing, err := readRawSettings(path)
	if err != nil {
		return err
	}

	var cfg hookConfig
	if hooksRaw, ok := raw["hooks"]; ok {
		if err := json.Unmarshal(hooksRaw, &cfg); err != nil {
			return fmt.Errorf("parse hooks in %s: %w", settingsFileName, err)
		}
	}

	sessionStartCmd := "blameprompt hooks claude-code " + HookNameSessionStart
	userPromptCmd := "blameprompt hooks claude-code " + HookNameUserPromptSubmit
	stopCmd := "blameprompt hooks claude-code " + HookNameStop

	changed := false
	if !hookCommandExists(cfg.SessionStart, sessionStartCmd) {
		cfg.SessionStart = addHook(cfg.SessionStart, "", sessionStartCmd)
		changed = true
	}
	if !hookCommandExists(cfg.UserPromptSubmit, userPromptCmd) {
		cfg.UserPromptSubmit = addHook(cfg.UserPromptSubmit, "", userPromptCmd)
		changed = true
	}
	if !hookCommandExists(cfg.Stop, stopCmd) {
		cfg.Stop = addHook(cfg.Stop, "", stopCmd)
		changed = true
	}

	if !changed && existing {
		return nil
	}

	hooksJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal hooks: %w", err)
	}
	// Carry over hook events hookConfig has no field for (e.g. PreToolUse).
	merged := map[string]json.RawMessage{}
	if hooksRaw, ok := raw["hooks"]; ok {
		_ = json.Unmarshal(hooksRaw, &merged)
	}
	if err := json.Unmarshal(hooksJSON, &merged); err != nil {
		return fmt.Errorf("merge hooks: %w", err)
	}
	if hooksJSON, err = json.Marshal(merged); err != nil {
		return fmt.Errorf("marshal hooks: %w", err)
	}
	raw["hooks"] = hooksJSON
	return writeRawSettings(path, raw)
}

// UninstallHookConfig removes blameprompt's hook commands from
// .claude/settings.json, leaving any other configured hooks untouched.
func (a Adapter) UninstallHookConfig(repoRoot string) error {
	path := filepath.Join(repoRoot, filepath.FromSlash(settingsFileName))

	raw, existing, err := readRawSettings(path)
	if err != nil || !existing {
		return err
	}

	var cfg hookConfig
	if hooksRaw, ok := raw["hooks"]; ok {
		if err := json.Unmarshal(hooksRaw, &cfg); err != nil {
			return fmt.Errorf("parse hooks in %s: %w", settingsFileName, err)
		}
	}

	cfg.SessionStart = removeBlamepromptHooks(cfg.SessionStart)
	cfg.UserPromptSubmit = removeBlamepromptHooks(cfg.UserPromptSubmit)
	cfg.Stop = removeBlamepromptHooks(cfg.Stop)

	hooksJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal hooks: %w", err)
	}
	// Carry over hook events hookConfig has no field for (e.g. PreToolUse).
	merged := map[string]json.RawMessage{}
	if hooksRaw, ok := raw["hooks"]; ok {
		_ = json.Unmarshal(hooksRaw, &merged)
	}
	for _, k := range []string{"SessionStart", "UserPromptSubmit", "Stop"} {
		delete(merged, k)
	}
	if err := json.Unmarshal(hooksJSON, &merged); err != nil {
		return fmt.Errorf("merge hooks: %w", err)
	}
	if hooksJSON, err = json.Marshal(merged); err != nil {
		return fmt.Errorf("marshal hooks: %w", err)
	}
	raw["hooks"] = hooksJSON
	return writeRawSettings(path, raw)
}

// DetectPresence reports whether Claude Code appears configured in
// repoRoot: either a .claude directory or its settings.json exists.
func (a Adapter) DetectPresence(repoRoot string) (bool, error) {
	if _, err := os.Stat(filepath.Join(repoRoot, ".claude")); err == nil {
		return true, nil
	}
	if _, err := os.Stat(filepath.Join(repoRoot, filepath.FromSlash(settingsFileName))); err == nil {
		return true, nil
	}
	return false, nil
}

func readRawSettings(path string) (map[string]json.RawMessage, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return make(map[string]json.RawMessage), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", settingsFileName, err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, fmt.Errorf("parse %s: %w", settingsFileName, err)
	}
	if raw == nil {
		raw = make(map[string]json.RawMessage)
	}
	return raw, true, nil
}

func writeRawSettings(path string, raw map[string]json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create %s directory: %w", filepath.Dir(settingsFileName), err)
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", settingsFileName, err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", settingsFileName, err)
	}
	return nil
}

func hookCommandExists(matchers []hookMatcher, command string) bool {
	for _, m := range matchers {
		for _, h := range m.Hooks {
			if h.Command == command {
				return true
			}
		}
	}
	return false
}

func addHook(matchers []hookMatcher, matcherName, command string) []hookMatcher {
	entry := hookEntry{Type: "command", Command: command}
	for i, m := range matchers {
		if m.Matcher == matcherName {
			matchers[i].Hooks = append(matchers[i].Hooks, entry)
			return matchers
		}
	}
	return append(matchers, hookMatcher{Matcher: matcherName, Hooks: []hookEntry{entry}})
}

func removeBlamepromptHooks(matchers []hookMatcher) []hookMatcher {
	result := make([]hookMatcher, 0, len(matchers))
	for _, m := range matchers {
		kept := make([]hookEntry, 0, len(m.Hooks))
		for _, h := range m.Hooks {
			if !isBlamepromptHookCommand(h.Command) {
				kept = append(kept, h)
			}
		}
		if len(kept) > 0 {
			m.Hooks = kept
			result = append(result, m)
		}
	}
	return result
}

func isBlamepromptHookCommand(command string) bool {
	const prefix = "blameprompt hooks claude-code "
	return len(command) >= len(prefix) && command[:len(prefix)] == prefix
}
