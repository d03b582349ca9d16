// Package redact scrubs secrets and other sensitive substrings out of agent
// transcript text before it is ever written to a Receipt, the staging
// journal, or an annotation. Detection is layered: a set of built-in
// detectors, caller-supplied custom patterns, and a final high-entropy
// sweep over whatever text remains unredacted.
package redact

import "regexp"

// Severity ranks how sensitive a detection is.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Kind identifies which detector produced a Detection.
type Kind string

const (
	KindAPIKey       Kind = "API_KEY"
	KindAWSKey       Kind = "AWS_KEY"
	KindPassword     Kind = "PASSWORD"
	KindBearerToken  Kind = "BEARER_TOKEN"
	KindToken        Kind = "TOKEN"
	KindShellPrompt  Kind = "SHELL_PROMPT"
	KindHomePath     Kind = "HOME_PATH"
	KindHighEntropy  Kind = "HIGH_ENTROPY"
	KindCustom       Kind = "CUSTOM"
	KindGitleaksRule Kind = "GITLEAKS_RULE"
)

// Mode selects how a matched region of text is replaced.
type Mode string

const (
	// ModeReplace substitutes a fixed token per kind, e.g. "[REDACTED]".
	ModeReplace Mode = "replace"
	// ModeHash substitutes a 12-hex-char prefix of SHA-256 over the match,
	// wrapped "[SHA256:xxxxxxxxxxxx]".
	ModeHash Mode = "hash"
)

// CustomPattern is a caller-supplied regex/replacement detector, applied
// after built-ins and before the entropy sweep.
type CustomPattern struct {
	Pattern     string
	Replacement string

	compiled *regexp.Regexp
}

// Policy configures a Scrub call. The zero value is a usable default:
// replace mode, all built-in detectors enabled, no custom patterns.
type Policy struct {
	Mode             Mode
	DisablePatterns  []Kind
	CustomPatterns   []CustomPattern
	EntropyThreshold float64 // 0 means DefaultEntropyThreshold
}

// DefaultEntropyThreshold is the minimum Shannon entropy (bits/char) for an
// opaque token to be flagged by the entropy sweep. Heuristic: high enough to
// avoid flagging common identifiers and words, low enough to catch typical
// API keys and tokens, which tend to sit well above 5.0. Spec marks this as
// intentionally adjustable (policy.EntropyThreshold overrides it).
const DefaultEntropyThreshold = 4.5

func (p Policy) mode() Mode {
	if p.Mode == "" {
		return ModeReplace
	}
	return p.Mode
}

func (p Policy) entropyThreshold() float64 {
	if p.EntropyThreshold <= 0 {
		return DefaultEntropyThreshold
	}
	return p.EntropyThreshold
}

func (p Policy) isDisabled(k Kind) bool {
	for _, d := range p.DisablePatterns {
		if d == k {
			return true
		}
	}
	return false
}

// Detection describes one redacted match. It never carries the matched text
// itself — only what kind of thing it was and how sensitive it is — so that
// callers can log/aggregate detections without re-leaking the secret.
type Detection struct {
	Kind     Kind
	Severity Severity
}
