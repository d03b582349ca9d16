package notes

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/diff"

	"github.com/blameprompt/blameprompt/internal/receipt"
)

// offsetEntry is one row of the per-file line-offset table built from a
// diff hunk: applyAt is the first new-file line after the hunk, delta is
// how much a line at or after applyAt shifts.
type offsetEntry struct {
	applyAt int
	delta   int
}

// Remap relocates the annotation on oldRev to newRev, adjusting any
// file_mappings overlay hunks by the diff between the two revisions. If
// oldRev carries no annotation, Remap is a no-op. Receipts' own
// files_changed line ranges are left untouched; they are approximate by
// contract and only overlay hunks carry exact positions worth shifting.
func (s *Store) Remap(repo *git.Repository, oldRev, newRev plumbing.Hash) error {
	payload, ok, err := s.Read(oldRev)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if len(payload.FileMappings) > 0 {
		adjusted, err := remapFileMappings(repo, oldRev, newRev, payload.FileMappings)
		if err != nil {
			return fmt.Errorf("remap file mappings: %w", err)
		}
		payload.FileMappings = adjusted
	}

	if err := s.Attach(newRev, *payload); err != nil {
		return err
	}
	return s.Remove(oldRev)
}

func remapFileMappings(repo *git.Repository, oldRev, newRev plumbing.Hash, mappings []receipt.FileMapping) ([]receipt.FileMapping, error) {
	oldCommit, err := repo.CommitObject(oldRev)
	if err != nil {
		return nil, fmt.Errorf("load old commit: %w", err)
	}
	newCommit, err := repo.CommitObject(newRev)
	if err != nil {
		return nil, fmt.Errorf("load new commit: %w", err)
	}
	patch, err := oldCommit.Patch(newCommit)
	if err != nil {
		return nil, fmt.Errorf("diff revisions: %w", err)
	}

	tables := make(map[string][]offsetEntry, len(patch.FilePatches()))
	for _, fp := range patch.FilePatches() {
		from, to := fp.Files()
		path := filePatchPath(from, to)
		if path == "" {
			continue
		}
		tables[path] = buildOffsetTable(fp.Chunks())
	}

	out := make([]receipt.FileMapping, len(mappings))
	for i, fm := range mappings {
		table, ok := lookupTable(tables, fm.Path)
		if !ok || len(table) == 0 {
			out[i] = fm
			continue
		}
		newHunks := make([]receipt.Hunk, len(fm.Hunks))
		for j, h := range fm.Hunks {
			newHunks[j] = remapHunk(h, table)
		}
		fm.Hunks = newHunks
		out[i] = fm
	}
	return out, nil
}

// lookupTable applies the same lenient path matching used by attribution:
// exact match, or either path being a suffix of the other.
func lookupTable(tables map[string][]offsetEntry, path string) ([]offsetEntry, bool) {
	if t, ok := tables[path]; ok {
		return t, true
	}
	for p, t := range tables {
		if strings.HasSuffix(path, p) || strings.HasSuffix(p, path) {
			return t, true
		}
	}
	return nil, false
}

func filePatchPath(from, to diff.File) string {
	if to != nil {
		return to.Path()
	}
	if from != nil {
		return from.Path()
	}
	return ""
}

// buildOffsetTable walks a file's chunk sequence and groups consecutive
// non-equal chunks into hunks, recording each hunk's new-file apply point
// and the line-count delta it introduces.
func buildOffsetTable(chunks []diff.Chunk) []offsetEntry {
	oldPos, newPos := 1, 1
	var table []offsetEntry

	i := 0
	for i < len(chunks) {
		c := chunks[i]
		if c.Type() == diff.Equal {
			n := countLines(c.Content())
			oldPos += n
			newPos += n
			i++
			continue
		}

		newStart := newPos
		oldCount, newCount := 0, 0
		for i < len(chunks) && chunks[i].Type() != diff.Equal {
			n := countLines(chunks[i].Content())
			switch chunks[i].Type() {
			case diff.Delete:
				oldCount += n
				oldPos += n
			case diff.Add:
				newCount += n
				newPos += n
			}
			i++
		}
		table = append(table, offsetEntry{
			applyAt: newStart + newCount,
			delta:   newCount - oldCount,
		})
	}
	return table
}

func countLines(content string) int {
	if content == "" {
		return 0
	}
	trimmed := strings.TrimSuffix(content, "\n")
	return strings.Count(trimmed, "\n") + 1
}

// remapHunk translates h by the cumulative offset of every table entry
// whose apply point is at or before h's recorded start line, preserving
// span and clamping the new start to at least 1.
func remapHunk(h receipt.Hunk, table []offsetEntry) receipt.Hunk {
	offset := 0
	for _, e := range table {
		if e.applyAt <= int(h.StartLine) {
			offset += e.delta
		}
	}

	span := int(h.EndLine) - int(h.StartLine)
	newStart := int(h.StartLine) + offset
	if newStart < 1 {
		newStart = 1
	}

	h.StartLine = uint32(newStart)
	h.EndLine = uint32(newStart + span)
	return h
}
