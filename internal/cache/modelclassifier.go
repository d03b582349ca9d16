package cache

import "strings"

// License is whether a model's weights are open or closed.
type License string

const (
	LicenseOpenSource   License = "open_source"
	LicenseClosedSource License = "closed_source"
)

// Deployment is where a model runs.
type Deployment string

const (
	DeploymentLocal Deployment = "local"
	DeploymentCloud Deployment = "cloud"
)

// ModelClassification normalises a raw model identifier into the vendor and
// family it belongs to, feeding both a receipt's provider/model fields and
// the interop export's namespaced vendor/model id.
type ModelClassification struct {
	ModelID     string
	Family      string
	Vendor      string
	License     License
	Deployment  Deployment
	DisplayName string
}

// Classify identifies the vendor, family, license, and deployment of modelID.
// Local-runtime prefixes (ollama:, lmstudio:, local:) are checked first since
// they wrap an otherwise-recognisable inner model id.
func Classify(modelID string) ModelClassification {
	lower := strings.ToLower(modelID)

	for _, prefix := range []string{"ollama:", "lmstudio:", "local:"} {
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		inner := modelID
		if _, after, ok := strings.Cut(modelID, ":"); ok {
			inner = after
		}
		family, _ := classifyInnerModel(strings.ToLower(inner))
		return ModelClassification{
			ModelID:     modelID,
			Family:      family,
			Vendor:      "local",
			License:     LicenseOpenSource,
			Deployment:  DeploymentLocal,
			DisplayName: "Local: " + inner,
		}
	}

	family, vendor, license, display := classifyCloudModel(lower)
	return ModelClassification{
		ModelID:     modelID,
		Family:      family,
		Vendor:      vendor,
		License:     license,
		Deployment:  DeploymentCloud,
		DisplayName: display,
	}
}

func classifyCloudModel(lower string) (family, vendor string, license License, display string) {
	switch {
	case strings.Contains(lower, "claude"):
		return "claude", "anthropic", LicenseClosedSource, claudeDisplayName(lower)
	case strings.Contains(lower, "gpt-4"), strings.Contains(lower, "gpt-3.5"), strings.Contains(lower, "o1"), strings.Contains(lower, "o3"):
		return "gpt", "openai", LicenseClosedSource, gptDisplayName(lower)
	case strings.Contains(lower, "gemma"):
		return "gemini", "google", LicenseOpenSource, "Gemma"
	case strings.Contains(lower, "gemini"):
		return "gemini", "google", LicenseClosedSource, "Gemini"
	case strings.Contains(lower, "codellama"):
		return "llama", "meta", LicenseOpenSource, "Code Llama"
	case strings.Contains(lower, "llama"):
		return "llama", "meta", LicenseOpenSource, "Llama"
	case strings.Contains(lower, "mixtral"):
		return "mistral", "mistral_ai", LicenseOpenSource, "Mixtral"
	case strings.Contains(lower, "codestral"):
		return "mistral", "mistral_ai", LicenseOpenSource, "Codestral"
	case strings.Contains(lower, "mistral"):
		return "mistral", "mistral_ai", LicenseOpenSource, "Mistral"
	case strings.Contains(lower, "deepseek"):
		return "deepseek", "deepseek_ai", LicenseOpenSource, "DeepSeek"
	case strings.Contains(lower, "phi-"):
		return "phi", "microsoft", LicenseOpenSource, "Phi"
	case strings.Contains(lower, "qwen"), strings.Contains(lower, "codeqwen"):
		return "qwen", "alibaba", LicenseOpenSource, "Qwen"
	case strings.Contains(lower, "command-r"):
		return "command_r", "cohere", LicenseClosedSource, "Command R"
	case strings.Contains(lower, "replit"):
		return "replit", "replit", LicenseClosedSource, "Replit Agent"
	default:
		return "unknown", "unknown", LicenseClosedSource, "Unknown Model"
	}
}

func claudeDisplayName(lower string) string {
	switch {
	case strings.Contains(lower, "opus-4-6"):
		return "Claude Opus 4.6"
	case strings.Contains(lower, "opus-4-5"):
		return "Claude Opus 4.5"
	case strings.Contains(lower, "opus-4-1"):
		return "Claude Opus 4.1"
	case strings.Contains(lower, "opus-4-0"), strings.Contains(lower, "opus-4-20"):
		return "Claude Opus 4.0"
	case strings.Contains(lower, "sonnet-4-5"):
		return "Claude Sonnet 4.5"
	case strings.Contains(lower, "sonnet-4-0"), strings.Contains(lower, "sonnet-4-20"):
		return "Claude Sonnet 4.0"
	case strings.Contains(lower, "haiku-4-5"):
		return "Claude Haiku 4.5"
	case strings.Contains(lower, "haiku-3-5"), strings.Contains(lower, "3-5-haiku"):
		return "Claude Haiku 3.5"
	case strings.Contains(lower, "haiku-3"), strings.Contains(lower, "3-haiku"):
		return "Claude Haiku 3"
	default:
		return "Claude (unknown)"
	}
}

func gptDisplayName(lower string) string {
	switch {
	case strings.Contains(lower, "gpt-4o"):
		return "GPT-4o"
	case strings.Contains(lower, "gpt-4"):
		return "GPT-4"
	case strings.Contains(lower, "gpt-3.5"):
		return "GPT-3.5"
	default:
		return "OpenAI"
	}
}

func classifyInnerModel(lower string) (family, vendor string) {
	switch {
	case strings.Contains(lower, "llama"), strings.Contains(lower, "codellama"):
		return "llama", "meta"
	case strings.Contains(lower, "mistral"), strings.Contains(lower, "mixtral"):
		return "mistral", "mistral_ai"
	case strings.Contains(lower, "deepseek"):
		return "deepseek", "deepseek_ai"
	case strings.Contains(lower, "phi"):
		return "phi", "microsoft"
	case strings.Contains(lower, "qwen"):
		return "qwen", "alibaba"
	case strings.Contains(lower, "gemma"):
		return "gemini", "google"
	default:
		return "unknown", "local"
	}
}

// IsOpenSource reports whether modelID classifies as open-weight.
func IsOpenSource(modelID string) bool {
	return Classify(modelID).License == LicenseOpenSource
}

// IsLocal reports whether modelID classifies as a locally-run deployment.
func IsLocal(modelID string) bool {
	return Classify(modelID).Deployment == DeploymentLocal
}

// DisplayName returns the human-facing name for modelID.
func DisplayName(modelID string) string {
	return Classify(modelID).DisplayName
}

// NamespacedModelID renders modelID as "vendor/model" for interop export,
// normalising the handful of vendor aliases the spec names explicitly
// (claude->anthropic, gpt/codex->openai, gemini->google, copilot->github,
// windsurf->codeium) and leaving an already-namespaced id untouched.
func NamespacedModelID(modelID string) string {
	if strings.Contains(modelID, "/") {
		return modelID
	}
	lower := strings.ToLower(modelID)
	switch {
	case strings.Contains(lower, "claude"):
		return "anthropic/" + modelID
	case strings.Contains(lower, "gpt"), strings.Contains(lower, "codex"):
		return "openai/" + modelID
	case strings.Contains(lower, "gemini"):
		return "google/" + modelID
	case strings.Contains(lower, "copilot"):
		return "github/" + modelID
	case strings.Contains(lower, "windsurf"), strings.Contains(lower, "cascade"):
		return "codeium/" + modelID
	default:
		c := Classify(modelID)
		return c.Vendor + "/" + modelID
	}
}
