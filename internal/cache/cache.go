// Package cache implements the engine's optional global accelerator: a
// SQLite-backed projection of every receipt ever attached, kept in sync by
// walking the annotation ref rather than by being the source of truth. It
// also carries the pricing and model-classification helpers receipts use to
// fill in fields their originating transcript didn't supply.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/go-git/go-git/v5"

	"github.com/blameprompt/blameprompt/internal/notes"
	"github.com/blameprompt/blameprompt/internal/receipt"
)

// DefaultPath is where the global cache lives relative to the user's home
// directory, independent of any one repository.
const DefaultPath = ".blameprompt/prompts.db"

// Store is a handle on the global prompt cache database.
type Store struct {
	db *sql.DB
}

// DefaultFilePath resolves DefaultPath under the user's home directory.
func DefaultFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, filepath.FromSlash(DefaultPath)), nil
}

// Open opens (creating if necessary) the cache database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS prompts (
		revision       TEXT NOT NULL,
		receipt_id     TEXT NOT NULL,
		provider       TEXT,
		model          TEXT,
		session_id     TEXT,
		prompt_summary TEXT,
		cost_usd       REAL,
		timestamp      TEXT,
		files_touched  TEXT,
		PRIMARY KEY (revision, receipt_id)
	);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

// CachedReceipt is one row projected from a receipt into the cache.
type CachedReceipt struct {
	Revision      string
	ReceiptID     string
	Provider      string
	Model         string
	SessionID     string
	PromptSummary string
	CostUSD       float64
	Timestamp     string
	FilesTouched  []string
}

// UpsertReceipt stores or replaces the cache row for one receipt on revision.
func (s *Store) UpsertReceipt(ctx context.Context, revisionHex string, r receipt.Receipt) error {
	query := `
	INSERT INTO prompts (revision, receipt_id, provider, model, session_id, prompt_summary, cost_usd, timestamp, files_touched)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (revision, receipt_id) DO UPDATE SET
		provider = excluded.provider,
		model = excluded.model,
		session_id = excluded.session_id,
		prompt_summary = excluded.prompt_summary,
		cost_usd = excluded.cost_usd,
		timestamp = excluded.timestamp,
		files_touched = excluded.files_touched
	`
	files := joinPaths(r.AllFilePaths())
	_, err := s.db.ExecContext(ctx, query,
		revisionHex, r.ID, r.Provider, r.Model, r.SessionID, r.PromptSummary, r.CostUSD,
		r.Timestamp.Format("2006-01-02T15:04:05.999999999Z07:00"), files,
	)
	if err != nil {
		return fmt.Errorf("upsert cached receipt: %w", err)
	}
	return nil
}

// SyncFromNotes walks every revision carrying an annotation in store and
// upserts its receipts into the cache, making search and audit fast without
// re-reading every note on every invocation. Run each time the CLI opens the
// cache (before a cache-backed search) and by the hidden `sync-cache` command.
func (s *Store) SyncFromNotes(repo *git.Repository, store *notes.Store) (int, error) {
	hashes, err := store.ListAnnotated()
	if err != nil {
		return 0, fmt.Errorf("list annotated revisions: %w", err)
	}

	ctx := context.Background()
	synced := 0
	for _, hash := range hashes {
		payload, ok, err := store.Read(hash)
		if err != nil {
			return synced, fmt.Errorf("read annotation %s: %w", hash, err)
		}
		if !ok {
			continue
		}
		for _, r := range payload.Receipts {
			if err := s.UpsertReceipt(ctx, hash.String(), r); err != nil {
				return synced, err
			}
			synced++
		}
	}
	return synced, nil
}

// Search returns cached receipts whose provider, model, touched file paths,
// or prompt summary contains pattern, case-insensitively, bounded by limit.
func (s *Store) Search(ctx context.Context, pattern string, limit int) ([]CachedReceipt, error) {
	like := "%" + pattern + "%"
	query := `
	SELECT revision, receipt_id, provider, model, session_id, prompt_summary, cost_usd, timestamp, files_touched
	FROM prompts
	WHERE prompt_summary LIKE ? ESCAPE '\' COLLATE NOCASE
	   OR model LIKE ? ESCAPE '\' COLLATE NOCASE
	   OR provider LIKE ? ESCAPE '\' COLLATE NOCASE
	   OR files_touched LIKE ? ESCAPE '\' COLLATE NOCASE
	ORDER BY timestamp DESC
	LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, like, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("search cached receipts: %w", err)
	}
	defer rows.Close()

	var out []CachedReceipt
	for rows.Next() {
		var c CachedReceipt
		var files string
		if err := rows.Scan(&c.Revision, &c.ReceiptID, &c.Provider, &c.Model, &c.SessionID, &c.PromptSummary, &c.CostUSD, &c.Timestamp, &files); err != nil {
			return nil, fmt.Errorf("scan cached receipt: %w", err)
		}
		c.FilesTouched = splitPaths(files)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cached receipts: %w", err)
	}
	return out, nil
}

// Count returns the number of rows currently cached, used to decide whether
// a search can be served from the cache or must fall back to an uncached
// annotation-ref scan.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prompts`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count cached receipts: %w", err)
	}
	return n, nil
}

const pathSeparator = "\x1f"

func joinPaths(paths []string) string {
	return strings.Join(paths, pathSeparator)
}

func splitPaths(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, pathSeparator)
}
