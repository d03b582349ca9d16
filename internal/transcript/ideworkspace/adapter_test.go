package ideworkspace

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

func newWorkspaceDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE ItemTable (key TEXT UNIQUE ON CONFLICT REPLACE, value BLOB)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func TestFindSessions_MissingStorageRootReturnsNoSessionFound(t *testing.T) {
	t.Setenv("BLAMEPROMPT_TEST_IDE_WORKSPACE_STORAGE_DIR", filepath.Join(t.TempDir(), "nope"))
	_, err := (Adapter{}).FindSessions(".")
	if err == nil {
		t.Fatal("expected error for missing storage root")
	}
}

func TestFindSessions_ListsStateDBFiles(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BLAMEPROMPT_TEST_IDE_WORKSPACE_STORAGE_DIR", dir)
	wsDir := filepath.Join(dir, "abcdef123")
	if err := os.MkdirAll(wsDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	db := newWorkspaceDB(t, filepath.Join(wsDir, "state.vscdb"))
	db.Close()

	paths, err := (Adapter{}).FindSessions(".")
	if err != nil {
		t.Fatalf("find sessions: %v", err)
	}
	if len(paths) != 1 {
		t.Errorf("expected 1 state.vscdb, got %v", paths)
	}
}

func TestParse_FindsSessionUnderKnownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.vscdb")
	db := newWorkspaceDB(t, path)
	payload := `{"requests":[{"message":"fix it","response":"done"}]}`
	if _, err := db.Exec(`INSERT INTO ItemTable (key, value) VALUES (?, ?)`, knownKeys[0], payload); err != nil {
		t.Fatalf("insert: %v", err)
	}
	db.Close()

	session, err := (Adapter{}).Parse(path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(session.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %+v", session.Messages)
	}
	if session.Messages[0].Text != "fix it" || session.Messages[1].Text != "done" {
		t.Errorf("unexpected messages: %+v", session.Messages)
	}
}

func TestParse_FallsBackToSubstringKeyScan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.vscdb")
	db := newWorkspaceDB(t, path)
	payload := `{"requests":[{"message":"hello","response":"hi"}]}`
	if _, err := db.Exec(`INSERT INTO ItemTable (key, value) VALUES (?, ?)`, "some.unknown.chatSessionBlob", payload); err != nil {
		t.Fatalf("insert: %v", err)
	}
	db.Close()

	session, err := (Adapter{}).Parse(path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(session.Messages) != 2 {
		t.Errorf("expected substring fallback to find the session, got %+v", session.Messages)
	}
}

func TestParse_NoMatchingKeyReturnsEmptySession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.vscdb")
	db := newWorkspaceDB(t, path)
	if _, err := db.Exec(`INSERT INTO ItemTable (key, value) VALUES (?, ?)`, "unrelated.setting", `{"foo":1}`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	db.Close()

	session, err := (Adapter{}).Parse(path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(session.Messages) != 0 {
		t.Errorf("expected empty session, got %+v", session.Messages)
	}
}
