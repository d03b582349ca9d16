package geminicli

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

// Hook verbs registered under `blameprompt hooks gemini-cli <verb>`.
const (
	HookNameSessionStart = "session-start"
	HookNameAfterAgent   = "after-agent"
	HookNameSessionEnd   = "session-end"
)

// settingsFileName is the Gemini CLI hook configuration file, relative to
// the repository root.
const settingsFileName = ".gemini/settings.json"

type geminiHookEntry struct {
	Name    string `json:"name"`
	Command string `json:"command"`
}

type geminiHookMatcher struct {
	Matcher string            `json:"matcher,omitempty"`
	Hooks   []geminiHookEntry `json:"hooks"`
}

type geminiHookConfig struct {
	Enabled      bool                `json:"enabled"`
	SessionStart []geminiHookMatcher `json:"SessionStart,omitempty"`
	AfterAgent   []geminiHookMatcher `json:"AfterAgent,omitempty"`
	SessionEnd   []geminiHookMatcher `json:"SessionEnd,omitempty"`
}

type geminiToolsConfig struct {
	EnableHooks bool `json:"enableHooks"`
}

// InstallHookConfig idempotently merges blameprompt's hook commands into
// .gemini/settings.json, enabling the hooks feature flag Gemini CLI requires
// and registering session-start/after-agent/session-end handlers.
func (a Adapter) InstallHookConfig(repoRoot string) error {
	path := filepath.Join(repoRoot, filepath.FromSlash(settingsFileName))

	raw, existing, err := readRawSettings(path)
	if err != nil {
		return err
	}

	var hooks geminiHookConfig
	if hooksRaw, ok := raw["hooks"]; ok {
		if err := json.Unmarshal(hooksRaw, &hooks); err != nil {
			return fmt.Errorf("parse hooks in %s: %w", settingsFileName, err)
		}
	}
	var tools geminiToolsConfig
	if toolsRaw, ok := raw["tools"]; ok {
		if err := json.Unmarshal(toolsRaw, &tools); err != nil {
			return fmt.Errorf("parse tools in %s: %w", settingsFileName, err)
		}
	}

	sessionStartCmd := "blameprompt hooks gemini-cli " + HookNameSessionStart
	afterAgentCmd := "blameprompt hooks gemini-cli " + HookNameAfterAgent
	sessionEndCmd := "blameprompt hooks gemini-cli " + HookNameSessionEnd

	changed := false
	if !hooks.Enabled || !tools.EnableHooks {
		hooks.Enabled = true
		tools.EnableHooks = true
		changed = true
	}
	if !geminiHookExists(hooks.SessionStart, sessionStartCmd) {
		hooks.SessionStart = addGeminiHook(hooks.SessionStart, "", "blameprompt-session-start", sessionStartCmd)
		changed = true
	}
	if !geminiHookExists(hooks.AfterAgent, afterAgentCmd) {
		hooks.AfterAgent = addGeminiHook(hooks.AfterAgent, "", "blameprompt-after-agent", afterAgentCmd)
		changed = true
	}
	if !geminiHookExists(hooks.SessionEnd, sessionEndCmd) {
		hooks.SessionEnd = addGeminiHook(hooks.SessionEnd, "exit", "blameprompt-session-end", sessionEndCmd)
		changed = true
	}

	if !changed && existing {
		return nil
	}

	hooksJSON, err := json.Marshal(hooks)
	if err != nil {
		return fmt.Errorf("marshal hooks: %w", err)
	}
	toolsJSON, err := json.Marshal(tools)
	if err != nil {
		return fmt.Errorf("marshal tools: %w", err)
	}
	raw["hooks"] = hooksJSON
	raw["tools"] = toolsJSON
	return writeRawSettings(path, raw)
}

// UninstallHookConfig removes blameprompt's hook commands from
// .gemini/settings.json, leaving any other configured hooks untouched.
func (a Adapter) UninstallHookConfig(repoRoot string) error {
	path := filepath.Join(repoRoot, filepath.FromSlash(settingsFileName))

	raw, existing, err := readRawSettings(path)
	if err != nil || !existing {
		return err
	}

	var hooks geminiHookConfig
	if hooksRaw, ok := raw["hooks"]; ok {
		if err := json.Unmarshal(hooksRaw, &hooks); err != nil {
			return fmt.Errorf("parse hooks in %s: %w", settingsFileName, err)
		}
	}

	hooks.SessionStart = removeGeminiHooks(hooks.SessionStart)
	hooks.AfterAgent = removeGeminiHooks(hooks.AfterAgent)
	hooks.SessionEnd = removeGeminiHooks(hooks.SessionEnd)

	hooksJSON, err := json.Marshal(hooks)
	if err != nil {
		return fmt.Errorf("marshal hooks: %w", err)
	}
	// Carry over hook events the hooks struct has no field for.
	merged := map[string]json.RawMessage{}
	if hooksRaw, ok := raw["hooks"]; ok {
		_ = json.Unmarshal(hooksRaw, &merged)
	}
	for _, k := range []string{"SessionStart", "AfterAgent", "SessionEnd"} {
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

// DetectPresence reports whether Gemini CLI appears configured in
// repoRoot: either a .gemini directory or its settings.json exists.
func (a Adapter) DetectPresence(repoRoot string) (bool, error) {
	if _, err := os.Stat(filepath.Join(repoRoot, ".gemini")); err == nil {
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

func geminiHookExists(matchers []geminiHookMatcher, command string) bool {
	for _, m := range matchers {
		for _, h := range m.Hooks {
			if h.Command == command {
				return true
			}
		}
	}
	return false
}

func addGeminiHook(matchers []geminiHookMatcher, matcherName, name, command string) []geminiHookMatcher {
	entry := geminiHookEntry{Name: name, Command: command}
	for i, m := range matchers {
		if m.Matcher == matcherName {
			matchers[i].Hooks = append(matchers[i].Hooks, entry)
			return matchers
		}
	}
	return append(matchers, geminiHookMatcher{Matcher: matcherName, Hooks: []geminiHookEntry{entry}})
}

func removeGeminiHooks(matchers []geminiHookMatcher) []geminiHookMatcher {
	result := make([]geminiHookMatcher, 0, len(matchers))
	for _, m := range matchers {
		kept := make([]geminiHookEntry, 0, len(m.Hooks))
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
	const prefix = "blameprompt hooks gemini-cli "
	return len(command) >= len(prefix) && command[:len(prefix)] == prefix
}
