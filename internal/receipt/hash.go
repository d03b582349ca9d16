package receipt

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// PromptHash computes the stable identity hash for a conversation: the
// SHA-256 of the linearised turns, each rendered "<ROLE>: <text>\n" with a
// TOOL turn's text being its tool name. An empty conversation still hashes
// the empty byte sequence, so PromptHash is always non-empty.
func PromptHash(turns []ConversationTurn) string {
	var b strings.Builder
	for _, t := range turns {
		text := t.Content
		if t.Role == RoleTool {
			text = t.ToolName
		}
		b.WriteString(string(t.Role))
		b.WriteString(": ")
		b.WriteString(text)
		b.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return "sha256:" + hex.EncodeToString(sum[:])
}
