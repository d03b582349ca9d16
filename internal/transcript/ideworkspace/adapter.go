// Package ideworkspace adapts the embedded SQLite key-value store that IDE
// extensions (e.g. a Copilot or Windsurf panel) use for workspace-scoped
// state into a transcript.ParsedSession. Session data lives inside an
// ItemTable(key, value) table keyed by UI-owned identifiers that vary by
// IDE version, so the adapter scans a list of known keys first and falls
// back to a substring search over key names.
package ideworkspace

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/blameprompt/blameprompt/internal/transcript"
)

func init() {
	transcript.Register(Adapter{})
}

// knownKeys are the ItemTable keys observed to hold chat/session transcripts
// across IDE versions, tried in order before falling back to substring
// search.
var knownKeys = []string{
	"interactive.sessions",
	"workbench.panel.chat.view.copilot.chat",
	"memento/workbench.panel.aichat",
}

// Adapter implements transcript.Adapter for the IDE-embedded workspace
// storage database.
type Adapter struct{}

func (Adapter) Name() string { return "ide-workspace" }

// FindSessions lists every workspace storage database that might belong to
// repoRoot. IDEs key workspace storage by a hash of the workspace folder
// URI, so this returns every state.vscdb under the storage root and leaves
// disambiguation to Parse, which only returns sessions if it finds
// transcript-shaped data.
func (a Adapter) FindSessions(repoRoot string) ([]string, error) {
	root, err := storageRoot()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, transcript.ErrNoSessionFound{Agent: a.Name(), Root: repoRoot}
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if !d.IsDir() && d.Name() == "state.vscdb" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk workspace storage root: %w", err)
	}
	return paths, nil
}

func storageRoot() (string, error) {
	if override := os.Getenv("BLAMEPROMPT_TEST_IDE_WORKSPACE_STORAGE_DIR"); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "Code", "User", "workspaceStorage"), nil
}

// chatDocument is the loosely-typed shape of whatever blob a known key
// holds: an array of turns, each with a role-like field and text.
type chatDocument struct {
	Turns []chatTurn `json:"requests,omitempty"`
}

type chatTurn struct {
	Message  chatText `json:"message,omitempty"`
	Response chatText `json:"response,omitempty"`
}

// chatText captures the handful of shapes IDE chat payloads use for the
// turn's own text: a bare string, or a {value: string} wrapper.
type chatText struct {
	Value string
}

func (t *chatText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.Value = s
		return nil
	}
	var wrapped struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil {
		t.Value = wrapped.Value
		return nil
	}
	var parts []struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &parts); err == nil {
		var vs []string
		for _, p := range parts {
			if p.Value != "" {
				vs = append(vs, p.Value)
			}
		}
		t.Value = strings.Join(vs, "\n")
	}
	return nil
}

// Parse opens the SQLite database at path, tries each known key in turn,
// and falls back to a substring search over every key name for one that
// looks like a chat session. Returns an error only on an I/O or SQL
// failure; a database with no transcript-shaped rows yields an empty
// ParsedSession, not an error, since FindSessions can't tell in advance
// which workspace database (if any) is the right one.
func (a Adapter) Parse(path string) (transcript.ParsedSession, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return transcript.ParsedSession{}, fmt.Errorf("open workspace storage: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	raw, key, err := readFirstMatchingKey(ctx, db)
	if err != nil {
		return transcript.ParsedSession{}, err
	}
	if raw == nil {
		return transcript.ParsedSession{SessionID: sessionIDFromPath(path)}, nil
	}

	var doc chatDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return transcript.ParsedSession{SessionID: sessionIDFromPath(path)}, nil
	}

	session := transcript.ParsedSession{SessionID: sessionIDFromPath(path) + "/" + key}
	for _, turn := range doc.Turns {
		if turn.Message.Value != "" {
			session.Messages = append(session.Messages, transcript.Message{
				Role: transcript.RoleUser,
				Text: turn.Message.Value,
			})
		}
		if turn.Response.Value != "" {
			session.Messages = append(session.Messages, transcript.Message{
				Role: transcript.RoleAssistant,
				Text: turn.Response.Value,
			})
		}
	}
	return session, nil
}

func sessionIDFromPath(path string) string {
	return filepath.Base(filepath.Dir(path))
}

// readFirstMatchingKey tries each known key exactly, then falls back to a
// LIKE scan over key names for anything chat-shaped.
func readFirstMatchingKey(ctx context.Context, db *sql.DB) ([]byte, string, error) {
	for _, key := range knownKeys {
		var value []byte
		err := db.QueryRowContext(ctx, `SELECT value FROM ItemTable WHERE key = ?`, key).Scan(&value)
		if err == nil {
			return value, key, nil
		}
		if err != sql.ErrNoRows {
			return nil, "", fmt.Errorf("query workspace storage key %q: %w", key, err)
		}
	}

	rows, err := db.QueryContext(ctx, `SELECT key, value FROM ItemTable WHERE key LIKE '%chat%' OR key LIKE '%session%'`)
	if err != nil {
		return nil, "", fmt.Errorf("scan workspace storage keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, "", fmt.Errorf("scan workspace storage row: %w", err)
		}
		var probe chatDocument
		if json.Unmarshal(value, &probe) == nil && len(probe.Turns) > 0 {
			return value, key, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterate workspace storage rows: %w", err)
	}
	return nil, "", nil
}
