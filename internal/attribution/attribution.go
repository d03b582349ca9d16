// Package attribution computes per-line code provenance for a file by
// joining the VCS's own blame output against the annotations stored by the
// notes package: who wrote each line, and if an AI did, which model, prompt,
// and cost produced it.
package attribution

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/blameprompt/blameprompt/internal/notes"
	"github.com/blameprompt/blameprompt/internal/receipt"
)

// LineOrigin classifies a single attributed line.
type LineOrigin string

const (
	LineOriginAI     LineOrigin = "AI"
	LineOriginEdited LineOrigin = "Edited"
	LineOriginHuman  LineOrigin = "Human"
)

// Line is one entry of the per-line attribution listing.
type Line struct {
	LineNo              uint32
	Commit              plumbing.Hash
	Author              string
	Origin              LineOrigin
	Model               string
	Provider            string
	PromptSummaryPrefix string
	CostUSD             *float64
}

// Result bundles the aggregate stats with the per-line listing for one file.
type Result struct {
	Stats receipt.CodeOriginStats
	Lines []Line
}

const promptSummaryPrefixLen = 60

// Attribute blames path at HEAD and classifies every line by the annotation
// attached to the revision blame assigns it to.
func Attribute(repo *git.Repository, store *notes.Store, path string) (Result, error) {
	head, err := repo.Head()
	if err != nil {
		return Result{}, fmt.Errorf("resolve HEAD: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return Result{}, fmt.Errorf("load HEAD commit: %w", err)
	}
	return AttributeAt(repo, store, commit, path)
}

// AttributeAt blames path as of commit rather than HEAD.
func AttributeAt(repo *git.Repository, store *notes.Store, commit *object.Commit, path string) (Result, error) {
	blame, err := git.Blame(commit, path)
	if err != nil {
		return Result{}, fmt.Errorf("blame %s: %w", path, err)
	}

	payloads := make(map[plumbing.Hash]*receipt.NotePayload)
	lines := make([]Line, len(blame.Lines))

	for i, bl := range blame.Lines {
		lineNo := uint32(i + 1)
		payload, ok := payloads[bl.Hash]
		if !ok {
			p, found, err := store.Read(bl.Hash)
			if err != nil {
				return Result{}, fmt.Errorf("read annotation for %s: %w", bl.Hash, err)
			}
			if found {
				payload = p
			}
			payloads[bl.Hash] = payload
		}

		line := Line{LineNo: lineNo, Commit: bl.Hash, Author: bl.Author, Origin: LineOriginHuman}
		if payload != nil {
			classify(payload, path, lineNo, &line)
		}
		lines[i] = line
	}

	return Result{Stats: computeStats(lines), Lines: lines}, nil
}

// classify applies the precedence order for one blamed line: overlay hunk
// first, then receipt file-change range, else leaves line as human.
func classify(payload *receipt.NotePayload, path string, lineNo uint32, line *Line) {
	origin, model, r := resolveLine(payload, path, lineNo)
	if origin == LineOriginHuman {
		return
	}
	line.Origin = origin
	line.Model = model
	if r != nil {
		line.Provider = r.Provider
		line.PromptSummaryPrefix = truncate(r.PromptSummary, promptSummaryPrefixLen)
		if r.CostUSD != 0 {
			cost := r.CostUSD
			line.CostUSD = &cost
		}
	}
}

// ClassifyLine resolves the origin a payload assigns to one line of path,
// overlay hunks taking precedence over receipt ranges. Returns the model
// that produced the line when the origin isn't pure human.
func ClassifyLine(payload *receipt.NotePayload, path string, lineNo uint32) (LineOrigin, string) {
	origin, model, _ := resolveLine(payload, path, lineNo)
	return origin, model
}

// resolveLine is the shared attribution walk: the first overlay hunk
// covering lineNo wins, then the first receipt whose range includes it.
func resolveLine(payload *receipt.NotePayload, path string, lineNo uint32) (LineOrigin, string, *receipt.Receipt) {
	for _, fm := range payload.FileMappings {
		if !pathsMatch(fm.Path, path) {
			continue
		}
		for _, h := range fm.Hunks {
			if lineNo >= h.StartLine && lineNo <= h.EndLine {
				return fromReceiptOrigin(h.Origin), h.Model, nil
			}
		}
	}

	for i := range payload.Receipts {
		r := &payload.Receipts[i]
		for _, fc := range r.AllFileChanges() {
			if !pathsMatch(fc.Path, path) {
				continue
			}
			if !rangeIncludes(fc.LineRange, lineNo) {
				continue
			}
			return LineOriginAI, r.Model, r
		}
	}
	return LineOriginHuman, "", nil
}

// rangeIncludes treats the legacy (1,1) sentinel as "whole file" rather than
// a literal single-line span.
func rangeIncludes(lr receipt.LineRange, lineNo uint32) bool {
	if lr.Start == 1 && lr.End == 1 {
		return true
	}
	return lineNo >= lr.Start && lineNo <= lr.End
}

// pathsMatch is the lenient comparison used throughout the engine: exact
// match, or either path a suffix of the other, to reconcile absolute and
// repo-relative spellings of the same file.
func pathsMatch(a, b string) bool {
	return a == b || strings.HasSuffix(a, b) || strings.HasSuffix(b, a)
}

func fromReceiptOrigin(o receipt.Origin) LineOrigin {
	switch o {
	case receipt.OriginAIGenerated:
		return LineOriginAI
	case receipt.OriginHumanEdited:
		return LineOriginEdited
	default:
		return LineOriginHuman
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func computeStats(lines []Line) receipt.CodeOriginStats {
	if len(lines) == 0 {
		return receipt.CodeOriginStats{}
	}
	var ai, edited, human int
	for _, l := range lines {
		switch l.Origin {
		case LineOriginAI:
			ai++
		case LineOriginEdited:
			edited++
		default:
			human++
		}
	}
	total := float64(len(lines))
	return receipt.CodeOriginStats{
		AIGeneratedPct: 100 * float64(ai) / total,
		HumanEditedPct: 100 * float64(edited) / total,
		PureHumanPct:   100 * float64(human) / total,
	}
}
