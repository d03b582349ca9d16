package notes

import (
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/blameprompt/blameprompt/internal/receipt"
)

func initRepo(t *testing.T) (*git.Repository, plumbing.Hash) {
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

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	if err := writeAndAdd(wt, "README.md", "hello"); err != nil {
		t.Fatalf("write file: %v", err)
	}
	commitHash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	return repo, commitHash
}

func writeAndAdd(wt *git.Worktree, name, content string) error {
	f, err := wt.Filesystem.Create(name)
	if err != nil {
		return err
	}
	if _, err := f.Write([]byte(content)); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_, err = wt.Add(name)
	return err
}

func TestAttachAndRead_RoundTrips(t *testing.T) {
	repo, head := initRepo(t)
	store := New(repo)

	payload := receipt.NewPayload([]receipt.Receipt{{ID: "r1", Model: "claude-sonnet-4-5"}})
	if err := store.Attach(head, payload); err != nil {
		t.Fatalf("attach: %v", err)
	}

	got, ok, err := store.Read(head)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !ok {
		t.Fatal("expected note to be found")
	}
	if len(got.Receipts) != 1 || got.Receipts[0].ID != "r1" {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestRead_MissingNoteReturnsFalse(t *testing.T) {
	repo, head := initRepo(t)
	store := New(repo)

	_, ok, err := store.Read(head)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if ok {
		t.Error("expected no note on a fresh repo")
	}
}

func TestAttach_IsIdempotentByReplacement(t *testing.T) {
	repo, head := initRepo(t)
	store := New(repo)

	first := receipt.NewPayload([]receipt.Receipt{{ID: "r1"}})
	second := receipt.NewPayload([]receipt.Receipt{{ID: "r1"}, {ID: "r2"}})

	if err := store.Attach(head, first); err != nil {
		t.Fatalf("attach first: %v", err)
	}
	if err := store.Attach(head, second); err != nil {
		t.Fatalf("attach second: %v", err)
	}

	got, ok, err := store.Read(head)
	if err != nil || !ok {
		t.Fatalf("read: ok=%v err=%v", ok, err)
	}
	if len(got.Receipts) != 2 {
		t.Fatalf("expected replacement to leave exactly the second payload's 2 receipts, got %d", len(got.Receipts))
	}

	hashes, err := store.ListAnnotated()
	if err != nil {
		t.Fatalf("list annotated: %v", err)
	}
	if len(hashes) != 1 {
		t.Errorf("expected exactly one annotated commit, got %d", len(hashes))
	}
}

func TestAttach_MultipleCommitsCoexist(t *testing.T) {
	repo, head1 := initRepo(t)
	store := New(repo)

	wt, _ := repo.Worktree()
	if err := writeAndAdd(wt, "second.md", "more"); err != nil {
		t.Fatalf("write second file: %v", err)
	}
	head2, err := wt.Commit("second", &git.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("second commit: %v", err)
	}

	if err := store.Attach(head1, receipt.NewPayload([]receipt.Receipt{{ID: "r1"}})); err != nil {
		t.Fatalf("attach head1: %v", err)
	}
	if err := store.Attach(head2, receipt.NewPayload([]receipt.Receipt{{ID: "r2"}})); err != nil {
		t.Fatalf("attach head2: %v", err)
	}

	got1, ok, _ := store.Read(head1)
	if !ok || got1.Receipts[0].ID != "r1" {
		t.Errorf("expected head1's own note preserved, got %+v", got1)
	}
	got2, ok, _ := store.Read(head2)
	if !ok || got2.Receipts[0].ID != "r2" {
		t.Errorf("expected head2's own note, got %+v", got2)
	}
}

func TestRemove_DeletesNoteAndLeavesOthers(t *testing.T) {
	repo, head1 := initRepo(t)
	store := New(repo)

	wt, _ := repo.Worktree()
	writeAndAdd(wt, "second.md", "more")
	head2, _ := wt.Commit("second", &git.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	})

	store.Attach(head1, receipt.NewPayload([]receipt.Receipt{{ID: "r1"}}))
	store.Attach(head2, receipt.NewPayload([]receipt.Receipt{{ID: "r2"}}))

	if err := store.Remove(head1); err != nil {
		t.Fatalf("remove: %v", err)
	}

	_, ok, _ := store.Read(head1)
	if ok {
		t.Error("expected head1's note removed")
	}
	_, ok, _ = store.Read(head2)
	if !ok {
		t.Error("expected head2's note to survive head1's removal")
	}
}

func TestRemove_MissingNoteIsNoop(t *testing.T) {
	repo, head := initRepo(t)
	store := New(repo)
	if err := store.Remove(head); err != nil {
		t.Fatalf("expected no error removing an absent note, got %v", err)
	}
}

func TestWithRef_UsesDistinctRef(t *testing.T) {
	repo, head := initRepo(t)
	primary := New(repo)
	interop := WithRef(repo, "refs/notes/blameprompt-interop")

	primary.Attach(head, receipt.NewPayload([]receipt.Receipt{{ID: "primary"}}))
	interop.Attach(head, receipt.NewPayload([]receipt.Receipt{{ID: "interop"}}))

	p, _, _ := primary.Read(head)
	i, _, _ := interop.Read(head)
	if p.Receipts[0].ID != "primary" || i.Receipts[0].ID != "interop" {
		t.Errorf("expected independent refs, got primary=%+v interop=%+v", p, i)
	}
}
