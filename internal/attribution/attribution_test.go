package attribution

import (
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/blameprompt/blameprompt/internal/notes"
	"github.com/blameprompt/blameprompt/internal/receipt"
)

func initRepo(t *testing.T) *git.Repository {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init repo: %v", err)
	}
	cfg, err := repo.Config()
	if err != nil {
		t.Fatalf("repo config: %v", err)
	}
	cfg.User.Name = "Test User"
	cfg.User.Email = "test@example.com"
	if err := repo.SetConfig(cfg); err != nil {
		t.Fatalf("set config: %v", err)
	}
	return repo
}

func commitFile(t *testing.T, repo *git.Repository, name, content, message string) *object.Commit {
	t.Helper()
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	f, err := wt.Filesystem.Create(name)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.Write([]byte(content)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := wt.Add(name); err != nil {
		t.Fatalf("add: %v", err)
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	commit, err := repo.CommitObject(hash)
	if err != nil {
		t.Fatalf("load commit: %v", err)
	}
	return commit
}

func joinLines(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func TestAttribute_ClassifiesHumanThenAILines(t *testing.T) {
	repo := initRepo(t)
	commitFile(t, repo, "greet.go", joinLines("package greet", "", "func Hello() {"), "human seed")

	store := notes.New(repo)
	aiCommit := commitFile(t, repo, "greet.go",
		joinLines("package greet", "", "func Hello() {", "\tfmt.Println(\"hi\")", "}"),
		"ai addition")
	cost := 0.02
	payload := receipt.NewPayload([]receipt.Receipt{{
		ID:            "r1",
		Provider:      "anthropic",
		Model:         "claude-sonnet-4-5",
		PromptSummary: "add the greeting body",
		CostUSD:       cost,
		FilesChanged: []receipt.FileChange{
			{Path: "greet.go", LineRange: receipt.LineRange{Start: 4, End: 5}},
		},
	}})
	if err := store.Attach(aiCommit.Hash, payload); err != nil {
		t.Fatalf("attach: %v", err)
	}

	result, err := Attribute(repo, store, "greet.go")
	if err != nil {
		t.Fatalf("attribute: %v", err)
	}
	if len(result.Lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(result.Lines))
	}
	for i := 0; i < 3; i++ {
		if result.Lines[i].Origin != LineOriginHuman {
			t.Errorf("line %d: expected Human, got %s", i+1, result.Lines[i].Origin)
		}
	}
	for i := 3; i < 5; i++ {
		l := result.Lines[i]
		if l.Origin != LineOriginAI {
			t.Errorf("line %d: expected AI, got %s", i+1, l.Origin)
		}
		if l.Model != "claude-sonnet-4-5" || l.Provider != "anthropic" {
			t.Errorf("line %d: unexpected provenance %+v", i+1, l)
		}
		if l.CostUSD == nil || *l.CostUSD != cost {
			t.Errorf("line %d: expected cost %v, got %v", i+1, cost, l.CostUSD)
		}
	}

	if result.Stats.AIGeneratedPct != 40 {
		t.Errorf("expected 40%% AI, got %v", result.Stats.AIGeneratedPct)
	}
	if result.Stats.PureHumanPct != 60 {
		t.Errorf("expected 60%% human, got %v", result.Stats.PureHumanPct)
	}
}

func TestAttribute_OverlayHunkTakesPrecedenceOverReceipt(t *testing.T) {
	repo := initRepo(t)
	store := notes.New(repo)
	c := commitFile(t, repo, "a.go", joinLines("line one", "line two", "line three"), "single commit")

	payload := receipt.WithFileMappings(
		[]receipt.Receipt{{
			ID:       "r1",
			Provider: "anthropic",
			Model:    "claude-sonnet-4-5",
			FilesChanged: []receipt.FileChange{
				{Path: "a.go", LineRange: receipt.LineRange{Start: 1, End: 3}},
			},
		}},
		[]receipt.FileMapping{{
			Path: "a.go",
			Hunks: []receipt.Hunk{
				{StartLine: 2, EndLine: 2, Origin: receipt.OriginHumanEdited},
			},
		}},
	)
	if err := store.Attach(c.Hash, payload); err != nil {
		t.Fatalf("attach: %v", err)
	}

	result, err := Attribute(repo, store, "a.go")
	if err != nil {
		t.Fatalf("attribute: %v", err)
	}
	if result.Lines[0].Origin != LineOriginAI {
		t.Errorf("line 1: expected AI from receipt, got %s", result.Lines[0].Origin)
	}
	if result.Lines[1].Origin != LineOriginEdited {
		t.Errorf("line 2: expected overlay Edited to win over receipt AI, got %s", result.Lines[1].Origin)
	}
	if result.Lines[2].Origin != LineOriginAI {
		t.Errorf("line 3: expected AI from receipt, got %s", result.Lines[2].Origin)
	}
}

func TestAttribute_FirstMatchWinsForOverlappingReceipts(t *testing.T) {
	repo := initRepo(t)
	store := notes.New(repo)
	c := commitFile(t, repo, "a.go", joinLines("one", "two", "three"), "single commit")

	payload := receipt.NewPayload([]receipt.Receipt{
		{
			ID:       "first",
			Provider: "anthropic",
			Model:    "claude-sonnet-4-5",
			FilesChanged: []receipt.FileChange{
				{Path: "a.go", LineRange: receipt.LineRange{Start: 1, End: 3}},
			},
		},
		{
			ID:       "second",
			Provider: "openai",
			Model:    "gpt-5",
			FilesChanged: []receipt.FileChange{
				{Path: "a.go", LineRange: receipt.LineRange{Start: 1, End: 3}},
			},
		},
	})
	if err := store.Attach(c.Hash, payload); err != nil {
		t.Fatalf("attach: %v", err)
	}

	result, err := Attribute(repo, store, "a.go")
	if err != nil {
		t.Fatalf("attribute: %v", err)
	}
	for i, l := range result.Lines {
		if l.Provider != "anthropic" || l.Model != "claude-sonnet-4-5" {
			t.Errorf("line %d: expected first receipt to win, got %+v", i+1, l)
		}
	}
}

func TestAttribute_LegacySentinelMeansWholeFile(t *testing.T) {
	repo := initRepo(t)
	store := notes.New(repo)
	c := commitFile(t, repo, "a.go", joinLines("one", "two", "three", "four"), "single commit")

	payload := receipt.NewPayload([]receipt.Receipt{{
		ID:              "legacy",
		Provider:        "anthropic",
		Model:           "claude-sonnet-4-5",
		FilePath:        "a.go",
		LineRangeLegacy: receipt.LineRange{Start: 1, End: 1},
	}})
	if err := store.Attach(c.Hash, payload); err != nil {
		t.Fatalf("attach: %v", err)
	}

	result, err := Attribute(repo, store, "a.go")
	if err != nil {
		t.Fatalf("attribute: %v", err)
	}
	for i, l := range result.Lines {
		if l.Origin != LineOriginAI {
			t.Errorf("line %d: expected (1,1) sentinel to cover whole file, got %s", i+1, l.Origin)
		}
	}
}

func TestAttribute_NoAnnotationIsAllHuman(t *testing.T) {
	repo := initRepo(t)
	store := notes.New(repo)
	commitFile(t, repo, "a.go", joinLines("one", "two"), "single commit")

	result, err := Attribute(repo, store, "a.go")
	if err != nil {
		t.Fatalf("attribute: %v", err)
	}
	for i, l := range result.Lines {
		if l.Origin != LineOriginHuman {
			t.Errorf("line %d: expected Human, got %s", i+1, l.Origin)
		}
	}
	if result.Stats.PureHumanPct != 100 {
		t.Errorf("expected 100%% human, got %v", result.Stats.PureHumanPct)
	}
}

func TestPathsMatch_LenientSuffix(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"a.go", "a.go", true},
		{"/repo/src/a.go", "src/a.go", true},
		{"src/a.go", "/repo/src/a.go", true},
		{"a.go", "b.go", false},
	}
	for _, c := range cases {
		if got := pathsMatch(c.a, c.b); got != c.want {
			t.Errorf("pathsMatch(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}
