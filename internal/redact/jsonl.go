package redact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// JSONLContent scrubs a line-delimited JSON transcript. Each line is parsed
// to find which string values need redaction, then targeted replacements are
// made on the raw bytes so untouched lines keep their original formatting
// (whitespace, key order) byte for byte. Lines that fail to parse as JSON
// fall back to a plain Scrub pass over the raw line.
func JSONLContent(content string, policy Policy) (string, []Detection, error) {
	lines := strings.Split(content, "\n")
	var out strings.Builder
	var all []Detection

	for i, line := range lines {
		if i > 0 {
			out.WriteByte('\n')
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			out.WriteString(line)
			continue
		}

		var parsed any
		if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
			scrubbed, detections := Scrub(line, policy)
			out.WriteString(scrubbed)
			all = append(all, detections...)
			continue
		}

		repls, detections := collectJSONLReplacements(parsed, policy)
		if len(repls) == 0 {
			out.WriteString(line)
			continue
		}
		result := line
		for _, r := range repls {
			origJSON, err := jsonEncodeString(r[0])
			if err != nil {
				return "", nil, err
			}
			replJSON, err := jsonEncodeString(r[1])
			if err != nil {
				return "", nil, err
			}
			result = strings.ReplaceAll(result, origJSON, replJSON)
		}
		out.WriteString(result)
		all = append(all, detections...)
	}
	return out.String(), all, nil
}

// JSONLBytes is a convenience wrapper around JSONLContent for []byte content.
func JSONLBytes(b []byte, policy Policy) ([]byte, []Detection, error) {
	s := string(b)
	scrubbed, detections, err := JSONLContent(s, policy)
	if err != nil {
		return nil, nil, err
	}
	if scrubbed == s {
		return b, detections, nil
	}
	return []byte(scrubbed), detections, nil
}

// collectJSONLReplacements walks a parsed JSON value and collects unique
// (original, redacted) string pairs for values that need redaction, skipping
// fields that carry identifiers or inline media rather than prose.
func collectJSONLReplacements(v any, policy Policy) ([][2]string, []Detection) {
	seen := make(map[string]bool)
	var repls [][2]string
	var all []Detection

	var walk func(v any)
	walk = func(v any) {
		switch val := v.(type) {
		case map[string]any:
			if shouldSkipJSONLObject(val) {
				return
			}
			for k, child := range val {
				if shouldSkipJSONLField(k) {
					continue
				}
				walk(child)
			}
		case []any:
			for _, child := range val {
				walk(child)
			}
		case string:
			scrubbed, detections := Scrub(val, policy)
			if scrubbed != val && !seen[val] {
				seen[val] = true
				repls = append(repls, [2]string{val, scrubbed})
				all = append(all, detections...)
			}
		}
	}
	walk(v)
	return repls, all
}

// shouldSkipJSONLField excludes a JSON key from scanning: the "signature"
// field and any identifier field ("...id"/"...ids") are structural, not
// prose, and redacting them would corrupt cross-references.
func shouldSkipJSONLField(key string) bool {
	if key == "signature" {
		return true
	}
	lower := strings.ToLower(key)
	return strings.HasSuffix(lower, "id") || strings.HasSuffix(lower, "ids")
}

// shouldSkipJSONLObject excludes inline media payloads ("type":"image*" or
// "type":"base64"), which are binary data encoded as text, not secrets.
func shouldSkipJSONLObject(obj map[string]any) bool {
	t, ok := obj["type"].(string)
	return ok && (strings.HasPrefix(t, "image") || t == "base64")
}

// jsonEncodeString returns the JSON encoding of s without HTML escaping.
func jsonEncodeString(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", fmt.Errorf("json encode string: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
