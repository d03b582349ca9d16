package geminicli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func readGeminiHooks(t *testing.T, dir string) (geminiHookConfig, geminiToolsConfig) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, ".gemini", "settings.json"))
	if err != nil {
		t.Fatalf("read settings: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	var hooks geminiHookConfig
	if err := json.Unmarshal(raw["hooks"], &hooks); err != nil {
		t.Fatalf("unmarshal hooks: %v", err)
	}
	var tools geminiToolsConfig
	if err := json.Unmarshal(raw["tools"], &tools); err != nil {
		t.Fatalf("unmarshal tools: %v", err)
	}
	return hooks, tools
}

func TestInstallHookConfig_EnablesFeatureFlagsAndRegistersHooks(t *testing.T) {
	dir := t.TempDir()
	if err := (Adapter{}).InstallHookConfig(dir); err != nil {
		t.Fatalf("install: %v", err)
	}

	hooks, tools := readGeminiHooks(t, dir)
	if !hooks.Enabled || !tools.EnableHooks {
		t.Fatalf("expected both feature flags enabled, got hooks.Enabled=%v tools.EnableHooks=%v", hooks.Enabled, tools.EnableHooks)
	}
	if len(hooks.SessionStart) != 1 || len(hooks.AfterAgent) != 1 || len(hooks.SessionEnd) != 1 {
		t.Fatalf("expected all three hook verbs registered, got %+v", hooks)
	}
	if hooks.SessionEnd[0].Matcher != "exit" {
		t.Fatalf("expected session-end matcher \"exit\", got %q", hooks.SessionEnd[0].Matcher)
	}
}

func TestInstallHookConfig_IsIdempotent(t *testing.T) {
	dir := t.TempDir()
	if err := (Adapter{}).InstallHookConfig(dir); err != nil {
		t.Fatalf("first install: %v", err)
	}
	first, err := os.ReadFile(filepath.Join(dir, ".gemini", "settings.json"))
	if err != nil {
		t.Fatalf("read first: %v", err)
	}

	if err := (Adapter{}).InstallHookConfig(dir); err != nil {
		t.Fatalf("second install: %v", err)
	}
	second, err := os.ReadFile(filepath.Join(dir, ".gemini", "settings.json"))
	if err != nil {
		t.Fatalf("read second: %v", err)
	}

	if string(first) != string(second) {
		t.Fatalf("expected byte-identical settings after second install")
	}
}

func TestUninstallHookConfig_RemovesOnlyBlamepromptHooks(t *testing.T) {
	dir := t.TempDir()
	if err := (Adapter{}).InstallHookConfig(dir); err != nil {
		t.Fatalf("install: %v", err)
	}

	if err := (Adapter{}).UninstallHookConfig(dir); err != nil {
		t.Fatalf("uninstall: %v", err)
	}

	hooks, _ := readGeminiHooks(t, dir)
	if len(hooks.SessionStart) != 0 || len(hooks.AfterAgent) != 0 || len(hooks.SessionEnd) != 0 {
		t.Fatalf("expected hooks removed, got %+v", hooks)
	}
}

func TestDetectPresence(t *testing.T) {
	dir := t.TempDir()
	present, err := (Adapter{}).DetectPresence(dir)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if present {
		t.Fatalf("expected no presence in empty dir")
	}

	if err := os.MkdirAll(filepath.Join(dir, ".gemini"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	present, err = (Adapter{}).DetectPresence(dir)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if !present {
		t.Fatalf("expected presence once .gemini exists")
	}
}
