package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// builtin is one built-in detector: a compiled pattern plus the kind and
// severity it reports. Patterns run in this fixed order, skipping any kind
// listed in the policy's DisablePatterns. group is the submatch index that
// should actually be redacted (0 means the whole match), so detectors whose
// pattern includes surrounding literal context (e.g. "Bearer ") only replace
// the opaque value, not the context around it.
type builtin struct {
	kind     Kind
	severity Severity
	pattern  *regexp.Regexp
	group    int
}

var builtins = []builtin{
	{KindAWSKey, SeverityCritical, regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`), 0},
	{KindAPIKey, SeverityHigh, regexp.MustCompile(`\b(?:sk|key|pk|rk)-[A-Za-z0-9_]{20,}\b`), 0},
	{KindPassword, SeverityHigh, regexp.MustCompile(`(?i)\b(?:password|secret)\s*[:=]\s*["']([^"']{4,})["']`), 1},
	{KindBearerToken, SeverityHigh, regexp.MustCompile(`\bBearer\s+([A-Za-z0-9\-_.~+/]{10,}={0,2})`), 1},
	{KindToken, SeverityMedium, regexp.MustCompile(`(?i)\b(?:token|auth)\s*[:=]\s*["']?([A-Za-z0-9\-_.~+/]{40,}={0,2})["']?`), 1},
	{KindShellPrompt, SeverityMedium, regexp.MustCompile(`\b[a-zA-Z][a-zA-Z0-9_-]{1,31}@[a-zA-Z][a-zA-Z0-9_-]{1,31}\b`), 0},
	{KindHomePath, SeverityLow, regexp.MustCompile(`(?:/Users/|/home/)[^/\s"']+`), 0},
}

// opaqueTokenPattern finds candidate opaque strings for the entropy sweep.
var opaqueTokenPattern = regexp.MustCompile(`[A-Za-z0-9/+_=-]{20,}`)

var (
	gitleaksDetector     *detect.Detector
	gitleaksDetectorOnce sync.Once
)

func getGitleaksDetector() *detect.Detector {
	gitleaksDetectorOnce.Do(func() {
		d, err := detect.NewDetectorDefaultConfig()
		if err != nil {
			return
		}
		gitleaksDetector = d
	})
	return gitleaksDetector
}

// match is a located region attributed to one detector. repl, when
// non-empty, is a custom pattern's own replacement text and wins over the
// mode-derived token.
type match struct {
	start, end int
	kind       Kind
	severity   Severity
	repl       string
}

// Scrub redacts text per policy and reports what was found. It is
// deterministic and pure: the same (text, policy) always produces the same
// (scrubbed, detections), and no global state is mutated beyond the
// memoized gitleaks detector singleton, which is read-only after init.
func Scrub(text string, policy Policy) (string, []Detection) {
	var matches, suppressed []match

	for _, b := range builtins {
		target := &matches
		if policy.isDisabled(b.kind) {
			// A disabled kind's regions are still located so the gitleaks
			// and entropy layers don't re-flag what the user opted out of.
			target = &suppressed
		}
		for _, loc := range b.pattern.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[0], loc[1]
			if b.group > 0 && 2*b.group+1 < len(loc) && loc[2*b.group] >= 0 {
				start, end = loc[2*b.group], loc[2*b.group+1]
			}
			*target = append(*target, match{start: start, end: end, kind: b.kind, severity: b.severity})
		}
	}

	if !policy.isDisabled(KindGitleaksRule) {
		if d := getGitleaksDetector(); d != nil {
			for _, f := range d.DetectString(text) {
				if f.Secret == "" {
					continue
				}
				for _, loc := range findAllLiteral(text, f.Secret) {
					if overlapsAny(suppressed, loc[0], loc[1]) {
						continue
					}
					matches = append(matches, match{start: loc[0], end: loc[1], kind: KindGitleaksRule, severity: SeverityHigh})
				}
			}
		}
	}

	for i := range policy.CustomPatterns {
		cp := &policy.CustomPatterns[i]
		if cp.compiled == nil {
			re, err := regexp.Compile(cp.Pattern)
			if err != nil {
				continue
			}
			cp.compiled = re
		}
		for _, loc := range cp.compiled.FindAllStringIndex(text, -1) {
			matches = append(matches, match{start: loc[0], end: loc[1], kind: KindCustom, severity: SeverityMedium, repl: cp.Replacement})
		}
	}

	merged := mergeMatches(matches)

	if !policy.isDisabled(KindHighEntropy) {
		threshold := policy.entropyThreshold()
		for _, loc := range opaqueTokenPattern.FindAllStringIndex(text, -1) {
			if overlapsAny(merged, loc[0], loc[1]) || overlapsAny(suppressed, loc[0], loc[1]) {
				continue
			}
			candidate := text[loc[0]:loc[1]]
			if strings.Contains(candidate, "REDACTED") || strings.Contains(candidate, "SHA256") {
				continue
			}
			if shannonEntropy(candidate) > threshold {
				merged = append(merged, match{start: loc[0], end: loc[1], kind: KindHighEntropy, severity: SeverityMedium})
			}
		}
		sort.Slice(merged, func(i, j int) bool { return merged[i].start < merged[j].start })
		merged = collapseOverlaps(merged)
	}

	if len(merged) == 0 {
		return text, nil
	}

	var b strings.Builder
	detections := make([]Detection, 0, len(merged))
	prev := 0
	for _, m := range merged {
		b.WriteString(text[prev:m.start])
		b.WriteString(replacement(policy.mode(), m, text[m.start:m.end]))
		prev = m.end
		detections = append(detections, Detection{Kind: m.kind, Severity: m.severity})
	}
	b.WriteString(text[prev:])
	return b.String(), detections
}

// replacement returns the substitution text for a matched region. A custom
// pattern's own replacement wins in either mode; otherwise hash mode emits
// the SHA-256 token and replace mode a fixed token per kind.
func replacement(mode Mode, m match, original string) string {
	if m.repl != "" {
		return m.repl
	}
	if mode == ModeHash {
		sum := sha256.Sum256([]byte(original))
		return "[SHA256:" + hex.EncodeToString(sum[:])[:12] + "]"
	}
	switch m.kind {
	case KindAWSKey:
		return "[REDACTED_AWS_KEY]"
	default:
		return "[REDACTED]"
	}
}

func findAllLiteral(haystack, needle string) [][2]int {
	var locs [][2]int
	from := 0
	for {
		idx := strings.Index(haystack[from:], needle)
		if idx < 0 {
			break
		}
		abs := from + idx
		locs = append(locs, [2]int{abs, abs + len(needle)})
		from = abs + len(needle)
	}
	return locs
}

func overlapsAny(matches []match, start, end int) bool {
	for _, m := range matches {
		if start < m.end && end > m.start {
			return true
		}
	}
	return false
}

// mergeMatches sorts and merges overlapping regions, keeping the earliest
// detector's kind/severity for any region multiple detectors flagged.
func mergeMatches(matches []match) []match {
	if len(matches) == 0 {
		return nil
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].start < matches[j].start })
	return collapseOverlaps(matches)
}

func collapseOverlaps(matches []match) []match {
	if len(matches) == 0 {
		return nil
	}
	merged := []match{matches[0]}
	for _, m := range matches[1:] {
		last := &merged[len(merged)-1]
		if m.start <= last.end {
			if m.end > last.end {
				last.end = m.end
			}
			continue
		}
		merged = append(merged, m)
	}
	return merged
}

func shannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	freq := make(map[byte]int)
	for i := 0; i < len(s); i++ {
		freq[s[i]]++
	}
	length := float64(len(s))
	var entropy float64
	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// Bytes is a convenience wrapper around Scrub for []byte content.
func Bytes(b []byte, policy Policy) ([]byte, []Detection) {
	scrubbed, detections := Scrub(string(b), policy)
	return []byte(scrubbed), detections
}

// Hash returns the 12-hex-char SHA-256 prefix used in hash mode, exposed so
// callers can reuse the same convention.
func Hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ValidateKind reports a descriptive error if a kind name in a config file
// doesn't match a known built-in, so config loading can warn instead of
// silently ignoring a typo.
func ValidateKind(name string) error {
	for _, b := range builtins {
		if string(b.kind) == name {
			return nil
		}
	}
	switch Kind(name) {
	case KindHighEntropy, KindCustom, KindGitleaksRule:
		return nil
	}
	return fmt.Errorf("unknown redaction kind %q", name)
}
