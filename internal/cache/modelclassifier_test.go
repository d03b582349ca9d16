package cache

import "testing"

func TestClassify_Claude(t *testing.T) {
	c := Classify("claude-opus-4-6")
	if c.License != LicenseClosedSource || c.Vendor != "anthropic" || c.Deployment != DeploymentCloud {
		t.Errorf("unexpected classification: %+v", c)
	}
}

func TestClassify_OllamaLocal(t *testing.T) {
	c := Classify("ollama:llama3.2")
	if c.Deployment != DeploymentLocal || c.License != LicenseOpenSource {
		t.Errorf("unexpected classification: %+v", c)
	}
}

func TestClassify_DeepseekCloudOpenSource(t *testing.T) {
	c := Classify("deepseek-coder-v2")
	if c.License != LicenseOpenSource || c.Deployment != DeploymentCloud {
		t.Errorf("unexpected classification: %+v", c)
	}
}

func TestClassify_GPT(t *testing.T) {
	c := Classify("gpt-4o")
	if c.License != LicenseClosedSource || c.Vendor != "openai" {
		t.Errorf("unexpected classification: %+v", c)
	}
}

func TestClassify_LocalPrefix(t *testing.T) {
	c := Classify("local:mistral-7b")
	if c.Deployment != DeploymentLocal {
		t.Errorf("unexpected classification: %+v", c)
	}
}

func TestClassify_Replit(t *testing.T) {
	c := Classify("replit-agent")
	if c.Vendor != "replit" || c.License != LicenseClosedSource {
		t.Errorf("unexpected classification: %+v", c)
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"claude-sonnet-4-5-20250929": "Claude Sonnet 4.5",
		"claude-opus-4-6":            "Claude Opus 4.6",
	}
	for model, want := range cases {
		if got := DisplayName(model); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", model, got, want)
		}
	}
}

func TestNamespacedModelID(t *testing.T) {
	cases := map[string]string{
		"claude-sonnet-4-5": "anthropic/claude-sonnet-4-5",
		"gpt-4o":            "openai/gpt-4o",
		"gemini-2.0-flash":  "google/gemini-2.0-flash",
		"copilot-chat":      "github/copilot-chat",
		"windsurf-cascade":  "codeium/windsurf-cascade",
		"anthropic/claude":  "anthropic/claude",
	}
	for model, want := range cases {
		if got := NamespacedModelID(model); got != want {
			t.Errorf("NamespacedModelID(%q) = %q, want %q", model, got, want)
		}
	}
}
