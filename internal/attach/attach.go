// Package attach implements the attachment engine: binding a working
// copy's staged receipts onto the current revision as a single annotation.
package attach

import (
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/blameprompt/blameprompt/internal/notes"
	"github.com/blameprompt/blameprompt/internal/receipt"
	"github.com/blameprompt/blameprompt/internal/staging"
)

// Result reports what Head did, for the caller's user-visible summary.
type Result struct {
	Hash         plumbing.Hash
	ReceiptCount int
}

// Summary renders Result the way the attachment side-effect is specified:
// a short revision id and the receipt count.
func (r Result) Summary() string {
	return fmt.Sprintf("blameprompt: attached %d receipt(s) to %s", r.ReceiptCount, r.Hash.String()[:7])
}

// Head binds NotePayload::new(staging.receipts) to HEAD under notesStore's
// ref. Attachment is idempotent-by-replacement: if HEAD already carries a
// note, the new payload replaces it. On success the staging store is
// cleared; on failure staging is left intact for a later retry, and no
// partial result is ever reported as success.
func Head(repo *git.Repository, stagingStore *staging.Store, notesStore *notes.Store) (Result, error) {
	head, err := repo.Head()
	if err != nil {
		return Result{}, fmt.Errorf("resolve HEAD: %w", err)
	}

	doc, err := stagingStore.Read()
	if err != nil {
		return Result{}, fmt.Errorf("read staging journal: %w", err)
	}
	if len(doc.Receipts) == 0 {
		return Result{Hash: head.Hash(), ReceiptCount: 0}, nil
	}

	payload := receipt.NewPayload(doc.Receipts)
	if err := notesStore.Attach(head.Hash(), payload); err != nil {
		return Result{}, fmt.Errorf("attach payload: %w", err)
	}
	if err := stagingStore.Clear(); err != nil {
		return Result{}, fmt.Errorf("clear staging journal: %w", err)
	}

	return Result{Hash: head.Hash(), ReceiptCount: len(doc.Receipts)}, nil
}
