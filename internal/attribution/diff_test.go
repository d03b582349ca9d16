package attribution

import (
	"testing"

	"github.com/blameprompt/blameprompt/internal/notes"
	"github.com/blameprompt/blameprompt/internal/receipt"
)

func TestAnnotatedDiff_TagsAIHunks(t *testing.T) {
	repo := initRepo(t)
	commitFile(t, repo, "a.go", joinLines("one", "two", "three"), "human seed")

	aiCommit := commitFile(t, repo, "a.go",
		joinLines("one", "two", "three", "four", "five"), "ai addition")
	store := notes.New(repo)
	payload := receipt.NewPayload([]receipt.Receipt{{
		ID:    "r1",
		Model: "claude-sonnet-4-5",
		FilesChanged: []receipt.FileChange{
			{Path: "a.go", LineRange: receipt.LineRange{Start: 4, End: 5}},
		},
	}})
	if err := store.Attach(aiCommit.Hash, payload); err != nil {
		t.Fatalf("attach: %v", err)
	}

	hunks, err := AnnotatedDiff(repo, store, aiCommit.Hash)
	if err != nil {
		t.Fatalf("annotated diff: %v", err)
	}
	if len(hunks) != 1 {
		t.Fatalf("expected 1 hunk, got %d: %+v", len(hunks), hunks)
	}
	h := hunks[0]
	if h.NewStart != 4 || h.NewCount != 2 {
		t.Errorf("expected new span (4,2), got (%d,%d)", h.NewStart, h.NewCount)
	}
	if h.Origin != LineOriginAI || h.Model != "claude-sonnet-4-5" {
		t.Errorf("expected AI hunk with model, got %s %q", h.Origin, h.Model)
	}
	if h.Marker() != "[AI claude-sonnet-4-5]" {
		t.Errorf("unexpected marker %q", h.Marker())
	}
	if len(h.Added) != 2 {
		t.Errorf("expected 2 added lines, got %v", h.Added)
	}
}

func TestAnnotatedDiff_UnannotatedRevisionIsAllHuman(t *testing.T) {
	repo := initRepo(t)
	commitFile(t, repo, "a.go", joinLines("one"), "seed")
	c := commitFile(t, repo, "a.go", joinLines("one", "two"), "growth")

	hunks, err := AnnotatedDiff(repo, notes.New(repo), c.Hash)
	if err != nil {
		t.Fatalf("annotated diff: %v", err)
	}
	if len(hunks) != 1 {
		t.Fatalf("expected 1 hunk, got %d", len(hunks))
	}
	if hunks[0].Origin != LineOriginHuman || hunks[0].Marker() != "[human]" {
		t.Errorf("expected human hunk, got %+v", hunks[0])
	}
}

func TestAnnotatedDiff_RootCommitHasNothingToDiff(t *testing.T) {
	repo := initRepo(t)
	c := commitFile(t, repo, "a.go", joinLines("one"), "root")

	hunks, err := AnnotatedDiff(repo, notes.New(repo), c.Hash)
	if err != nil {
		t.Fatalf("annotated diff: %v", err)
	}
	if hunks != nil {
		t.Errorf("expected no hunks for a root commit, got %+v", hunks)
	}
}
