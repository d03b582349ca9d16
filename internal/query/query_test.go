package query

import (
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/blameprompt/blameprompt/internal/notes"
	"github.com/blameprompt/blameprompt/internal/receipt"
)

func initRepo(t *testing.T) (*git.Repository, plumbing.Hash) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	cfg, err := repo.Config()
	require.NoError(t, err)
	cfg.User.Name = "Test User"
	cfg.User.Email = "test@example.com"
	require.NoError(t, repo.SetConfig(cfg))

	wt, err := repo.Worktree()
	require.NoError(t, err)

	f, err := wt.Filesystem.Create("a.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("one\ntwo\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	_, err = wt.Add("a.txt")
	require.NoError(t, err)

	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return repo, hash
}

func TestListAnnotatedRevisions_NoneAnnotated(t *testing.T) {
	repo, _ := initRepo(t)
	s := New(repo, t.TempDir())

	revs, err := s.ListAnnotatedRevisions()
	require.NoError(t, err)
	require.Empty(t, revs)
}

func TestListAnnotatedRevisions_ReturnsAttached(t *testing.T) {
	repo, head := initRepo(t)
	s := New(repo, t.TempDir())

	payload := receipt.NewPayload([]receipt.Receipt{{ID: "r1", Model: "claude-sonnet-4-5"}})
	require.NoError(t, notes.New(repo).Attach(head, payload))

	revs, err := s.ListAnnotatedRevisions()
	require.NoError(t, err)
	require.Len(t, revs, 1)
	require.Equal(t, head, revs[0].Hash)
	require.Equal(t, "r1", revs[0].Payload.Receipts[0].ID)
}

func TestEnumerateReceipts_FiltersByAuthor(t *testing.T) {
	repo, head := initRepo(t)
	s := New(repo, t.TempDir())

	payload := receipt.NewPayload([]receipt.Receipt{
		{ID: "r1", User: "alice"},
		{ID: "r2", User: "bob"},
	})
	require.NoError(t, notes.New(repo).Attach(head, payload))

	out, err := s.EnumerateReceipts(ReceiptFilter{Author: "alice"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "r1", out[0].Receipt.ID)
}

func TestEnumerateReceipts_FiltersBySinceUntil(t *testing.T) {
	repo, head := initRepo(t)
	s := New(repo, t.TempDir())

	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	payload := receipt.NewPayload([]receipt.Receipt{
		{ID: "early", Timestamp: early},
		{ID: "late", Timestamp: late},
	})
	require.NoError(t, notes.New(repo).Attach(head, payload))

	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	out, err := s.EnumerateReceipts(ReceiptFilter{Since: &since})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "late", out[0].Receipt.ID)
}

func TestEnumerateStaged_ReturnsStagingContents(t *testing.T) {
	repo, _ := initRepo(t)
	dir := t.TempDir()
	s := New(repo, dir)

	require.NoError(t, s.Staging.Upsert(receipt.Receipt{SessionID: "s1", PromptSummary: "hi"}))

	staged, err := s.EnumerateStaged()
	require.NoError(t, err)
	require.Len(t, staged, 1)
	require.Equal(t, "s1", staged[0].SessionID)
}

func TestSearch_MatchesPromptSummaryCaseInsensitive(t *testing.T) {
	repo, head := initRepo(t)
	s := New(repo, t.TempDir())

	payload := receipt.NewPayload([]receipt.Receipt{
		{ID: "r1", PromptSummary: "Refactor the AUTH module"},
		{ID: "r2", PromptSummary: "unrelated change"},
	})
	require.NoError(t, notes.New(repo).Attach(head, payload))

	results, err := s.Search("auth", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "r1", results[0].Receipt.ID)
}

func TestSearch_RespectsLimit(t *testing.T) {
	repo, head := initRepo(t)
	s := New(repo, t.TempDir())

	payload := receipt.NewPayload([]receipt.Receipt{
		{ID: "r1", PromptSummary: "fix bug one"},
		{ID: "r2", PromptSummary: "fix bug two"},
	})
	require.NoError(t, notes.New(repo).Attach(head, payload))

	results, err := s.Search("fix bug", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestAudit_AggregatesLinesByModel(t *testing.T) {
	repo, head := initRepo(t)
	s := New(repo, t.TempDir())

	payload := receipt.NewPayload([]receipt.Receipt{
		{ID: "r1", Model: "claude-sonnet-4-5", FilesChanged: []receipt.FileChange{
			{Path: "a.go", LineRange: receipt.LineRange{Start: 1, End: 10}},
		}},
		{ID: "r2", Model: "claude-sonnet-4-5", FilesChanged: []receipt.FileChange{
			{Path: "b.go", LineRange: receipt.LineRange{Start: 1, End: 5}},
		}},
	})
	require.NoError(t, notes.New(repo).Attach(head, payload))

	report, err := s.Audit()
	require.NoError(t, err)
	require.Equal(t, 1, report.RevisionCount)
	require.Equal(t, 2, report.ReceiptCount)
	require.EqualValues(t, 15, report.TotalAILines)
	require.EqualValues(t, 15, report.ModelLineCount["claude-sonnet-4-5"])
}
