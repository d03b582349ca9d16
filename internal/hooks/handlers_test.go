package hooks

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/blameprompt/blameprompt/internal/receipt"
)

func initCommittedRepo(t *testing.T) (*git.Repository, string) {
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
	return repo, dir
}

func TestPreCommit_ReportsStagedCount(t *testing.T) {
	repo, dir := initCommittedRepo(t)
	h := NewHandler(repo, dir)

	require.NoError(t, h.Staging.Upsert(receipt.Receipt{SessionID: "s1", PromptSummary: "hi"}))

	var buf bytes.Buffer
	require.NoError(t, h.PreCommit(&buf))
	require.Contains(t, buf.String(), "1 receipt(s) staged")
}

func TestPreCommit_SilentWhenEmpty(t *testing.T) {
	repo, dir := initCommittedRepo(t)
	h := NewHandler(repo, dir)

	var buf bytes.Buffer
	require.NoError(t, h.PreCommit(&buf))
	require.Empty(t, buf.String())
}

func TestPostCommit_AttachesStagedReceipts(t *testing.T) {
	repo, dir := initCommittedRepo(t)
	h := NewHandler(repo, dir)

	require.NoError(t, h.Staging.Upsert(receipt.Receipt{SessionID: "s1", PromptSummary: "hi"}))

	var buf bytes.Buffer
	require.NoError(t, h.PostCommit(&buf))
	require.Contains(t, buf.String(), "attached 1 receipt(s)")

	count, err := h.Staging.Count()
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestPostRewrite_RemapsEachPair(t *testing.T) {
	repo, dir := initCommittedRepo(t)
	h := NewHandler(repo, dir)

	head, err := repo.Head()
	require.NoError(t, err)
	require.NoError(t, h.Notes.Attach(head.Hash(), receipt.NewPayload([]receipt.Receipt{{ID: "r1"}})))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	f, err := wt.Filesystem.Create("b.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("more\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	_, err = wt.Add("b.txt")
	require.NoError(t, err)
	newHash, err := wt.Commit("second", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	stdin := strings.NewReader(head.Hash().String() + " " + newHash.String() + " amend\n")
	require.NoError(t, h.PostRewrite(stdin))

	_, ok, err := h.Notes.Read(head.Hash())
	require.NoError(t, err)
	require.False(t, ok)

	payload, ok, err := h.Notes.Read(newHash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "r1", payload.Receipts[0].ID)
}

func TestPostCheckout_InitialisesStagingAndIgnoresWithoutRemote(t *testing.T) {
	repo, dir := initCommittedRepo(t)
	h := NewHandler(repo, dir)

	require.NoError(t, h.PostCheckout(""))

	count, err := h.Staging.Count()
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestPostMerge_NeverErrors(t *testing.T) {
	repo, dir := initCommittedRepo(t)
	h := NewHandler(repo, dir)
	require.NoError(t, h.PostMerge())
}
