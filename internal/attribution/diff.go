package attribution

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/diff"

	"github.com/blameprompt/blameprompt/internal/notes"
)

// DiffHunk is one hunk of an annotated revision diff: the usual unified
// hunk coordinates plus the origin the revision's annotation assigns to the
// lines the hunk introduced.
type DiffHunk struct {
	Path     string
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Origin   LineOrigin
	Model    string
	Added    []string
	Removed  []string
}

// Header renders the hunk's "@@ -a,b +c,d @@" line.
func (h DiffHunk) Header() string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
}

// Marker renders the hunk's provenance tag: "[AI <model>]", "[edited
// <model>]", or "[human]". Pure deletions carry no new lines to attribute
// and always read human.
func (h DiffHunk) Marker() string {
	switch h.Origin {
	case LineOriginAI:
		if h.Model != "" {
			return "[AI " + h.Model + "]"
		}
		return "[AI]"
	case LineOriginEdited:
		if h.Model != "" {
			return "[edited " + h.Model + "]"
		}
		return "[edited]"
	default:
		return "[human]"
	}
}

// AnnotatedDiff diffs rev against its first parent and tags every hunk with
// the origin rev's annotation assigns to the hunk's first introduced line.
// A root commit has nothing to diff against and yields no hunks.
func AnnotatedDiff(repo *git.Repository, store *notes.Store, rev plumbing.Hash) ([]DiffHunk, error) {
	commit, err := repo.CommitObject(rev)
	if err != nil {
		return nil, fmt.Errorf("load commit %s: %w", rev, err)
	}
	if commit.NumParents() == 0 {
		return nil, nil
	}
	parent, err := commit.Parent(0)
	if err != nil {
		return nil, fmt.Errorf("load parent of %s: %w", rev, err)
	}
	patch, err := parent.Patch(commit)
	if err != nil {
		return nil, fmt.Errorf("diff %s against parent: %w", rev, err)
	}

	payload, _, err := store.Read(rev)
	if err != nil {
		return nil, fmt.Errorf("read annotation for %s: %w", rev, err)
	}

	var hunks []DiffHunk
	for _, fp := range patch.FilePatches() {
		from, to := fp.Files()
		path := ""
		if to != nil {
			path = to.Path()
		} else if from != nil {
			path = from.Path()
		}
		if path == "" {
			continue
		}
		for _, h := range foldChunks(path, fp.Chunks()) {
			if payload != nil && h.NewCount > 0 {
				h.Origin, h.Model = ClassifyLine(payload, path, uint32(h.NewStart))
			}
			hunks = append(hunks, h)
		}
	}
	return hunks, nil
}

// foldChunks groups a file patch's chunk run into unified hunks, defaulting
// every hunk's origin to human until the caller attributes it.
func foldChunks(path string, chunks []diff.Chunk) []DiffHunk {
	oldPos, newPos := 1, 1
	var hunks []DiffHunk

	i := 0
	for i < len(chunks) {
		if chunks[i].Type() == diff.Equal {
			n := chunkLineCount(chunks[i].Content())
			oldPos += n
			newPos += n
			i++
			continue
		}

		h := DiffHunk{Path: path, OldStart: oldPos, NewStart: newPos, Origin: LineOriginHuman}
		for i < len(chunks) && chunks[i].Type() != diff.Equal {
			lines := splitChunkLines(chunks[i].Content())
			switch chunks[i].Type() {
			case diff.Delete:
				h.Removed = append(h.Removed, lines...)
				h.OldCount += len(lines)
				oldPos += len(lines)
			case diff.Add:
				h.Added = append(h.Added, lines...)
				h.NewCount += len(lines)
				newPos += len(lines)
			}
			i++
		}
		hunks = append(hunks, h)
	}
	return hunks
}

func splitChunkLines(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}

func chunkLineCount(content string) int {
	return len(splitChunkLines(content))
}
