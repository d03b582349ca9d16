// Package query implements the engine's read-side surface: listing and
// reading annotations, enumerating receipts with time/author filters,
// substring search, and projecting a revision's receipts into the
// language-neutral interop record. It never changes an annotation under the
// primary ref (only the attachment engine and rewrite remapper do that);
// WriteExport writes to the separate interop ref only.
package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/blameprompt/blameprompt/internal/cache"
	"github.com/blameprompt/blameprompt/internal/notes"
	"github.com/blameprompt/blameprompt/internal/receipt"
	"github.com/blameprompt/blameprompt/internal/staging"
)

// Surface bundles the stores a read-side command needs: the primary
// annotation store, the repository they're read against, and (optionally) a
// staging store for the "staged but not yet attached" view.
type Surface struct {
	Repo    *git.Repository
	Notes   *notes.Store
	Staging *staging.Store
}

// New returns a Surface over repo using the primary annotation ref.
func New(repo *git.Repository, stagingDir string) Surface {
	return Surface{
		Repo:    repo,
		Notes:   notes.New(repo),
		Staging: staging.New(stagingDir),
	}
}

// AnnotatedRevision pairs a commit hash with its payload, memoised within
// one command invocation so the attribution join's hot path never refetches
// the same revision's annotation twice.
type AnnotatedRevision struct {
	Hash    plumbing.Hash
	Payload receipt.NotePayload
}

// ListAnnotatedRevisions returns every revision currently carrying a
// payload, newest-first by the commit's author time.
func (s Surface) ListAnnotatedRevisions() ([]AnnotatedRevision, error) {
	hashes, err := s.Notes.ListAnnotated()
	if err != nil {
		return nil, err
	}

	out := make([]AnnotatedRevision, 0, len(hashes))
	for _, h := range hashes {
		payload, ok, err := s.Notes.Read(h)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, AnnotatedRevision{Hash: h, Payload: *payload})
	}

	sort.Slice(out, func(i, j int) bool {
		ti, tj := s.commitTime(out[i].Hash), s.commitTime(out[j].Hash)
		return ti.After(tj)
	})
	return out, nil
}

func (s Surface) commitTime(h plumbing.Hash) time.Time {
	c, err := s.Repo.CommitObject(h)
	if err != nil {
		return time.Time{}
	}
	return c.Author.When
}

// Read returns the payload attached to rev (any revision expression go-git
// can resolve), or (nil, false, nil) if it carries none.
func (s Surface) Read(rev string) (*receipt.NotePayload, bool, error) {
	hash, err := s.resolve(rev)
	if err != nil {
		return nil, false, err
	}
	return s.Notes.Read(hash)
}

func (s Surface) resolve(rev string) (plumbing.Hash, error) {
	hash, err := s.Repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve revision %q: %w", rev, err)
	}
	return *hash, nil
}

// ReceiptFilter narrows EnumerateReceipts; zero values mean "no filter" for
// that dimension.
type ReceiptFilter struct {
	Since  *time.Time
	Until  *time.Time
	Author string
}

func (f ReceiptFilter) matches(r receipt.Receipt) bool {
	if f.Since != nil && r.Timestamp.Before(*f.Since) {
		return false
	}
	if f.Until != nil && r.Timestamp.After(*f.Until) {
		return false
	}
	if f.Author != "" && !strings.EqualFold(r.User, f.Author) {
		return false
	}
	return true
}

// AttachedReceipt pairs a receipt with the revision it was attached to.
type AttachedReceipt struct {
	Revision plumbing.Hash
	Receipt  receipt.Receipt
}

// EnumerateReceipts walks every annotated revision and returns the receipts
// matching filter, across all of them.
func (s Surface) EnumerateReceipts(filter ReceiptFilter) ([]AttachedReceipt, error) {
	revs, err := s.ListAnnotatedRevisions()
	if err != nil {
		return nil, err
	}
	var out []AttachedReceipt
	for _, rev := range revs {
		for _, r := range rev.Payload.Receipts {
			if filter.matches(r) {
				out = append(out, AttachedReceipt{Revision: rev.Hash, Receipt: r})
			}
		}
	}
	return out, nil
}

// EnumerateStaged returns the receipts currently sitting in the staging
// journal, not yet bound to any revision.
func (s Surface) EnumerateStaged() ([]receipt.Receipt, error) {
	doc, err := s.Staging.Read()
	if err != nil {
		return nil, err
	}
	return doc.Receipts, nil
}

// SearchResult is one hit from Search, identifying which receipt matched and
// on which revision.
type SearchResult struct {
	Revision plumbing.Hash
	Receipt  receipt.Receipt
}

// Search finds receipts whose prompt summary, file path, model, or provider
// contains pattern (case-insensitive), across every annotated revision,
// bounded by limit. This is the uncached fallback path; callers that hold a
// warm cache.Store should prefer its Search instead.
func (s Surface) Search(pattern string, limit int) ([]SearchResult, error) {
	needle := strings.ToLower(pattern)
	revs, err := s.ListAnnotatedRevisions()
	if err != nil {
		return nil, err
	}

	var out []SearchResult
	for _, rev := range revs {
		for _, r := range rev.Payload.Receipts {
			if !receiptMatches(r, needle) {
				continue
			}
			out = append(out, SearchResult{Revision: rev.Hash, Receipt: r})
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
	}
	return out, nil
}

func receiptMatches(r receipt.Receipt, lowerNeedle string) bool {
	if strings.Contains(strings.ToLower(r.PromptSummary), lowerNeedle) {
		return true
	}
	if strings.Contains(strings.ToLower(r.Model), lowerNeedle) {
		return true
	}
	if strings.Contains(strings.ToLower(r.Provider), lowerNeedle) {
		return true
	}
	for _, p := range r.AllFilePaths() {
		if strings.Contains(strings.ToLower(p), lowerNeedle) {
			return true
		}
	}
	return false
}

// SearchCached runs Search against a warm cache.Store when it has rows,
// falling back to the uncached annotation-ref scan when the cache is empty.
// A cache that has rows but lacks newer annotations is searched as it is.
func (s Surface) SearchCached(store *cache.Store, pattern string, limit int) ([]SearchResult, error) {
	ctx := context.Background()
	n, err := store.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return s.Search(pattern, limit)
	}

	cached, err := store.Search(ctx, pattern, limit)
	if err != nil {
		return nil, err
	}
	out := make([]SearchResult, 0, len(cached))
	for _, c := range cached {
		payload, ok, err := s.Notes.Read(plumbing.NewHash(c.Revision))
		if err != nil || !ok {
			continue
		}
		for _, r := range payload.Receipts {
			if r.ID == c.ReceiptID {
				out = append(out, SearchResult{Revision: plumbing.NewHash(c.Revision), Receipt: r})
				break
			}
		}
	}
	return out, nil
}

// AuditReport summarises every annotated revision: revision and receipt
// counts, the total AI line count, and AI line counts per model (human lines
// and providers are not counted). Grounded on the original's `commands/audit.rs` report, exposed
// abstractly by spec.md's C8.
type AuditReport struct {
	RevisionCount  int
	ReceiptCount   int
	TotalAILines   uint32
	ModelLineCount map[string]uint32
}

// Audit builds an AuditReport over every currently annotated revision.
func (s Surface) Audit() (AuditReport, error) {
	revs, err := s.ListAnnotatedRevisions()
	if err != nil {
		return AuditReport{}, err
	}

	report := AuditReport{ModelLineCount: make(map[string]uint32)}
	for _, rev := range revs {
		report.RevisionCount++
		for _, r := range rev.Payload.Receipts {
			report.ReceiptCount++
			lines := r.TotalLinesChanged()
			report.TotalAILines += lines
			if r.Model != "" {
				report.ModelLineCount[r.Model] += lines
			}
		}
	}
	return report, nil
}

// CommitObject is exported for callers (e.g. cmd/blameprompt) that already
// have a Surface and want the underlying commit for a revision hash.
func (s Surface) CommitObject(hash plumbing.Hash) (*object.Commit, error) {
	return s.Repo.CommitObject(hash)
}
