// Package staging holds the per-working-copy journal of receipts pending
// attachment: the document at <repo>/.blameprompt/staging.json.
package staging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blameprompt/blameprompt/internal/receipt"
)

// FileName is the staging document's name within the hidden directory.
const FileName = "staging.json"

// Document is the on-disk shape: one key, an ordered receipt list.
type Document struct {
	Receipts []receipt.Receipt `json:"receipts"`
}

// Store is a staging journal rooted at one working copy's hidden directory.
type Store struct {
	dir string // e.g. <repo>/.blameprompt
}

// New returns a Store rooted at hiddenDir (the working copy's hidden
// directory, e.g. "<repo>/.blameprompt").
func New(hiddenDir string) *Store {
	return &Store{dir: hiddenDir}
}

func (s *Store) path() string {
	return filepath.Join(s.dir, FileName)
}

// Read returns the current staging contents, or an empty Document if the
// file does not exist yet.
func (s *Store) Read() (Document, error) {
	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return Document{}, nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("read staging journal: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse staging journal: %w", err)
	}
	return doc, nil
}

// Count returns the number of staged receipts without building any richer
// structure than necessary.
func (s *Store) Count() (int, error) {
	doc, err := s.Read()
	if err != nil {
		return 0, err
	}
	return len(doc.Receipts), nil
}

// Clear truncates the staging journal to empty.
func (s *Store) Clear() error {
	return s.write(Document{Receipts: []receipt.Receipt{}})
}

// Upsert merges r into the staging journal. If a receipt with the same
// (session_id, prompt_number) already exists, it is merged in place: the
// existing id and parent_receipt_id are kept, scalar fields are replaced
// with r's, and files_changed is merged by path (existing paths replaced,
// new paths appended). Otherwise r is appended fresh, with its
// parent_receipt_id set to the previous last entry's id.
func (s *Store) Upsert(r receipt.Receipt) error {
	doc, err := s.Read()
	if err != nil {
		return err
	}

	idx := findByStagingKey(doc.Receipts, r.SessionID, r.PromptNumber)
	if idx >= 0 {
		existing := doc.Receipts[idx]
		r.ID = existing.ID
		r.ParentReceiptID = existing.ParentReceiptID
		r.FilesChanged = mergeFileChanges(existing.AllFileChanges(), r.AllFileChanges())
		doc.Receipts[idx] = r
	} else {
		if r.ID == "" {
			r.ID = receipt.NewID()
		}
		if len(doc.Receipts) > 0 {
			r.ParentReceiptID = doc.Receipts[len(doc.Receipts)-1].ID
		}
		doc.Receipts = append(doc.Receipts, r)
	}

	return s.write(doc)
}

func findByStagingKey(receipts []receipt.Receipt, sessionID string, promptNumber *uint32) int {
	for i, r := range receipts {
		if r.SessionID != sessionID {
			continue
		}
		if samePromptNumber(r.PromptNumber, promptNumber) {
			return i
		}
	}
	return -1
}

func samePromptNumber(a, b *uint32) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// mergeFileChanges replaces entries in existing whose path also appears in
// incoming, keeping incoming's version, and appends any incoming path not
// already present, preserving existing's relative order followed by new
// paths in incoming's order.
func mergeFileChanges(existing, incoming []receipt.FileChange) []receipt.FileChange {
	byPath := make(map[string]receipt.FileChange, len(incoming))
	for _, fc := range incoming {
		byPath[fc.Path] = fc
	}

	merged := make([]receipt.FileChange, 0, len(existing)+len(incoming))
	seen := make(map[string]bool, len(existing))
	for _, fc := range existing {
		if repl, ok := byPath[fc.Path]; ok {
			merged = append(merged, repl)
		} else {
			merged = append(merged, fc)
		}
		seen[fc.Path] = true
	}
	for _, fc := range incoming {
		if !seen[fc.Path] {
			merged = append(merged, fc)
			seen[fc.Path] = true
		}
	}
	return merged
}

// write persists doc via write-tmp-then-rename on the same filesystem, so a
// reader never observes a torn write and concurrent writers resolve by
// last-writer-wins at the file level.
func (s *Store) write(doc Document) error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal staging journal: %w", err)
	}
	data = append(data, '\n')

	target := s.path()
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write staging journal: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("rename staging journal: %w", err)
	}
	return nil
}
