// Package geminicli adapts Gemini CLI's single-document JSON transcript
// format into a transcript.ParsedSession.
package geminicli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blameprompt/blameprompt/internal/transcript"
)

func init() {
	transcript.Register(Adapter{})
}

// Adapter implements transcript.Adapter for Gemini CLI's session format.
type Adapter struct{}

func (Adapter) Name() string { return "gemini-cli" }

// FindSessions lists every session-*.json file under the gemini tmp
// directory for this repository's hash.
func (a Adapter) FindSessions(repoRoot string) ([]string, error) {
	dir, err := sessionDir(repoRoot)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, transcript.ErrNoSessionFound{Agent: a.Name(), Root: repoRoot}
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if !d.IsDir() && strings.HasPrefix(d.Name(), "session-") && strings.HasSuffix(d.Name(), ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk gemini session dir: %w", err)
	}
	return paths, nil
}

func sessionDir(repoRoot string) (string, error) {
	if override := os.Getenv("BLAMEPROMPT_TEST_GEMINI_PROJECT_DIR"); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".gemini", "tmp"), nil
}

const (
	messageTypeUser   = "user"
	messageTypeGemini = "gemini"
)

type document struct {
	Model    string    `json:"model,omitempty"`
	Messages []message `json:"messages"`
}

type message struct {
	Type      string     `json:"type"`
	Content   rawContent `json:"content,omitempty"`
	ToolCalls []toolCall `json:"toolCalls,omitempty"`
	Tokens    *tokens    `json:"tokens,omitempty"`
}

// rawContent mirrors Gemini's own inconsistency: user messages carry an
// array of {text} blocks, gemini messages carry a plain string.
type rawContent string

func (c *rawContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = rawContent(s)
		return nil
	}
	var blocks []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &blocks); err != nil {
		*c = ""
		return nil
	}
	var texts []string
	for _, b := range blocks {
		if b.Text != "" {
			texts = append(texts, b.Text)
		}
	}
	*c = rawContent(strings.Join(texts, "\n"))
	return nil
}

type toolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type tokens struct {
	Input  uint64 `json:"input"`
	Output uint64 `json:"output"`
	Cached uint64 `json:"cached"`
}

var fileModificationTools = map[string]bool{
	"write_file":  true,
	"edit_file":   true,
	"replace":     true,
	"create_file": true,
	"write":       true,
}

// Parse folds a Gemini CLI session document into a ParsedSession.
func (a Adapter) Parse(path string) (transcript.ParsedSession, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return transcript.ParsedSession{}, fmt.Errorf("read transcript: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return transcript.ParsedSession{}, fmt.Errorf("parse transcript: %w", err)
	}

	session := transcript.ParsedSession{
		SessionID: strings.TrimSuffix(filepath.Base(path), ".json"),
		Model:     doc.Model,
	}

	fileSet := map[string]bool{}
	toolSet := map[string]bool{}
	var files, tools []string
	var counts transcript.TokenCounts
	var sawTokens bool

	for _, msg := range doc.Messages {
		if msg.Type != messageTypeUser && msg.Type != messageTypeGemini {
			continue
		}
		if string(msg.Content) != "" {
			role := transcript.NormalizeRole(msg.Type)
			if msg.Type == messageTypeGemini {
				role = transcript.RoleAssistant
			}
			session.Messages = append(session.Messages, transcript.Message{
				Role: role,
				Text: string(msg.Content),
			})
		}

		if msg.Type != messageTypeGemini {
			continue
		}
		if msg.Tokens != nil {
			sawTokens = true
			counts.InputTokens += msg.Tokens.Input + msg.Tokens.Cached
			counts.OutputTokens += msg.Tokens.Output
		}
		for _, tc := range msg.ToolCalls {
			if !toolSet[tc.Name] {
				toolSet[tc.Name] = true
				tools = append(tools, tc.Name)
			}
			session.Messages = append(session.Messages, transcript.Message{
				Role:     transcript.RoleTool,
				ToolName: tc.Name,
			})
			if fileModificationTools[tc.Name] {
				if fp, ok := transcript.ExtractFilePath(tc.Args); ok && !fileSet[fp] {
					fileSet[fp] = true
					files = append(files, fp)
				}
			}
		}
	}

	if sawTokens {
		session.Tokens = &counts
	}
	session.FilesModified = files
	session.ToolsUsed = tools
	return session, nil
}
