package hooks

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/blameprompt/blameprompt/internal/attach"
	"github.com/blameprompt/blameprompt/internal/logging"
	"github.com/blameprompt/blameprompt/internal/notes"
	"github.com/blameprompt/blameprompt/internal/query"
	"github.com/blameprompt/blameprompt/internal/remote"
	"github.com/blameprompt/blameprompt/internal/staging"
)

// HiddenDirName is the working copy's hidden directory for staging and
// logs, relative to the repository root.
const HiddenDirName = ".blameprompt"

// Handler dispatches the five VCS lifecycle events blameprompt's git hook
// scripts invoke. Every method degrades to no-op on failure, per the
// engine-wide policy that hook invocations never fail the host tool.
type Handler struct {
	Repo     *git.Repository
	RepoRoot string
	Staging  *staging.Store
	Notes    *notes.Store
}

// NewHandler builds a Handler rooted at repoRoot.
func NewHandler(repo *git.Repository, repoRoot string) *Handler {
	return &Handler{
		Repo:     repo,
		RepoRoot: repoRoot,
		Staging:  staging.New(fmt.Sprintf("%s/%s", repoRoot, HiddenDirName)),
		Notes:    notes.New(repo),
	}
}

// PreCommit reports the current staged receipt count to w. Used by the
// pre-commit hook.
func (h *Handler) PreCommit(w io.Writer) error {
	ctx := logging.WithComponent(context.Background(), "hooks")
	count, err := h.Staging.Count()
	if err != nil {
		logging.Warn(ctx, "pre-commit: read staging failed", slog.Any("err", err))
		return nil
	}
	if count > 0 {
		fmt.Fprintf(w, "blameprompt: %d receipt(s) staged\n", count)
	}
	return nil
}

// PostCommit invokes the attachment engine against HEAD. Used by the
// post-commit hook.
func (h *Handler) PostCommit(w io.Writer) error {
	ctx := logging.WithComponent(context.Background(), "hooks")
	result, err := attach.Head(h.Repo, h.Staging, h.Notes)
	if err != nil {
		logging.Warn(ctx, "post-commit: attach failed", slog.Any("err", err))
		return nil
	}
	if result.ReceiptCount > 0 {
		fmt.Fprintln(w, result.Summary())
		logging.Info(ctx, "attached receipts", slog.Int("count", result.ReceiptCount), slog.String("rev", result.Hash.String()))
	}
	return nil
}

// PostRewrite reads (old-sha, new-sha) pairs from r, one per line, per
// git's post-rewrite hook protocol, and remaps each pair's annotation.
// Used by the post-rewrite hook.
func (h *Handler) PostRewrite(r io.Reader) error {
	ctx := logging.WithComponent(context.Background(), "hooks")
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		oldHash := plumbing.NewHash(fields[0])
		newHash := plumbing.NewHash(fields[1])
		if err := h.Notes.Remap(h.Repo, oldHash, newHash); err != nil {
			logging.Warn(ctx, "post-rewrite: remap failed",
				slog.String("old", oldHash.String()), slog.String("new", newHash.String()), slog.Any("err", err))
		}
	}
	return nil
}

// PostCheckout initialises the staging directory, ensures it is
// gitignored, and best-effort pulls remote annotations if a remote is
// configured. Used by the post-checkout hook (also covers post-clone,
// since a clone always ends in a checkout).
func (h *Handler) PostCheckout(remoteName string) error {
	ctx := logging.WithComponent(context.Background(), "hooks")

	if err := staging.EnsureIgnored(h.RepoRoot); err != nil {
		logging.Warn(ctx, "post-checkout: gitignore update failed", slog.Any("err", err))
	}
	if _, err := h.Staging.Read(); err != nil {
		logging.Warn(ctx, "post-checkout: staging init failed", slog.Any("err", err))
	}

	if remoteName == "" {
		remoteName = remote.DefaultRemoteName
	}
	if !remote.HasRemote(h.Repo, remoteName) {
		return nil
	}
	if err := remote.Pull(h.Repo, remoteName, notes.DefaultRef, query.InteropRef); err != nil {
		logging.Debug(ctx, "post-checkout: pull annotations skipped", slog.Any("err", err))
	}
	return nil
}

// PostMerge preserves staging across a merge: the staging journal is a
// plain file outside git's object model, so a merge never touches it. This
// only exists as the documented lifecycle point and a diagnostic log line.
func (h *Handler) PostMerge() error {
	ctx := logging.WithComponent(context.Background(), "hooks")
	logging.Debug(ctx, "post-merge: staging preserved")
	return nil
}
