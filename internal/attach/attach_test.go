package attach

import (
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/blameprompt/blameprompt/internal/notes"
	"github.com/blameprompt/blameprompt/internal/receipt"
	"github.com/blameprompt/blameprompt/internal/staging"
)

func initRepo(t *testing.T) *git.Repository {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)
	f, err := wt.Filesystem.Create("a.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("hi\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	_, err = wt.Add("a.txt")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return repo
}

func TestHead_AttachesAndClearsStaging(t *testing.T) {
	repo := initRepo(t)
	stagingDir := t.TempDir()
	stagingStore := staging.New(stagingDir)
	notesStore := notes.New(repo)

	require.NoError(t, stagingStore.Upsert(receipt.Receipt{SessionID: "s1", PromptSummary: "hi"}))

	result, err := Head(repo, stagingStore, notesStore)
	require.NoError(t, err)
	require.Equal(t, 1, result.ReceiptCount)

	count, err := stagingStore.Count()
	require.NoError(t, err)
	require.Zero(t, count)

	head, err := repo.Head()
	require.NoError(t, err)
	payload, ok, err := notesStore.Read(head.Hash())
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, payload.Receipts, 1)
}

func TestHead_EmptyStagingIsNoop(t *testing.T) {
	repo := initRepo(t)
	stagingStore := staging.New(t.TempDir())
	notesStore := notes.New(repo)

	result, err := Head(repo, stagingStore, notesStore)
	require.NoError(t, err)
	require.Zero(t, result.ReceiptCount)

	head, err := repo.Head()
	require.NoError(t, err)
	_, ok, err := notesStore.Read(head.Hash())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestResult_Summary(t *testing.T) {
	repo := initRepo(t)
	head, err := repo.Head()
	require.NoError(t, err)

	r := Result{Hash: head.Hash(), ReceiptCount: 3}
	require.Contains(t, r.Summary(), "3 receipt(s)")
	require.Contains(t, r.Summary(), head.Hash().String()[:7])
}
