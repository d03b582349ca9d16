// Package gitrepo wraps the go-git operations shared by the notes,
// attribution, and hook components: opening the repository, resolving the
// configured author, resolving revisions, and computing working-tree diff
// stats.
package gitrepo

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Open opens the repository rooted at or above dir, following linked
// worktrees back to their common git dir.
func Open(dir string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return repo, nil
}

// Author is the identity recorded on a Receipt.
type Author struct {
	Name  string
	Email string
}

// String renders the author the way a commit signature would.
func (a Author) String() string {
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

// CurrentAuthor resolves the user identity configured for repo: the
// repository's own config first (as go-git reads it), then the git CLI,
// which also sees global and system config, finally falling back to
// sentinel defaults.
func CurrentAuthor(repo *git.Repository) Author {
	name, email := "", ""

	if cfg, err := repo.Config(); err == nil {
		name = cfg.User.Name
		email = cfg.User.Email
	}

	if name == "" {
		name = gitConfigValue("user.name")
	}
	if email == "" {
		email = gitConfigValue("user.email")
	}

	if name == "" {
		name = "Unknown"
	}
	if email == "" {
		email = "unknown@local"
	}
	return Author{Name: name, Email: email}
}

func gitConfigValue(key string) string {
	out, err := exec.CommandContext(context.Background(), "git", "config", "--get", key).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// HeadHash returns the current HEAD commit hash as a hex string.
func HeadHash(repo *git.Repository) (string, error) {
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// ResolveRevision resolves a revision expression (hash, branch, tag, HEAD~N,
// ...) to a commit hash.
func ResolveRevision(repo *git.Repository, rev string) (plumbing.Hash, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve revision %q: %w", rev, err)
	}
	return *hash, nil
}

// DiffStat is the working-tree change a checkpoint observed for one file,
// relative to HEAD: the union of every hunk's new-file line span, plus
// additions/deletions counts.
type DiffStat struct {
	StartLine uint32
	EndLine   uint32
	Additions uint32
	Deletions uint32
}

// WorkingDiffStat shells out to `git diff` the way CurrentAuthor shells out
// to `git config`: go-git's worktree diffing doesn't expose unified hunks
// directly, and the porcelain output is the simplest stable source for
// exact new-file line ranges. If path has no
// uncommitted change against HEAD (e.g. the checkpoint fired after the
// working copy was already committed), it returns no error, zero additions
// and deletions, and the whole-file (1,1) line range.
func WorkingDiffStat(repoRoot, path string) (DiffStat, error) {
	cmd := exec.CommandContext(context.Background(), "git", "diff", "--unified=0", "--no-color", "HEAD", "--", path)
	cmd.Dir = repoRoot
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return DiffStat{}, fmt.Errorf("git diff %s: %w", path, err)
	}
	return parseUnifiedHunks(out.Bytes()), nil
}

// parseUnifiedHunks scans `@@ -a,b +c,d @@` headers and `+`/`-` body lines
// out of a unified diff with zero context lines, folding every hunk's
// new-file span into one overall range plus total add/delete counts.
func parseUnifiedHunks(diffText []byte) DiffStat {
	var stat DiffStat
	scanner := bufio.NewScanner(bytes.NewReader(diffText))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "@@ "):
			start, length := parseHunkNewRange(line)
			if length == 0 {
				length = 1
			}
			end := start + length - 1
			if stat.StartLine == 0 || start < stat.StartLine {
				stat.StartLine = start
			}
			if end > stat.EndLine {
				stat.EndLine = end
			}
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			// file header, not a content line
		case strings.HasPrefix(line, "+"):
			stat.Additions++
		case strings.HasPrefix(line, "-"):
			stat.Deletions++
		}
	}
	if stat.StartLine == 0 {
		stat.StartLine, stat.EndLine = 1, 1
	}
	return stat
}

// parseHunkNewRange extracts the "+c,d" side of a "@@ -a,b +c,d @@" header.
func parseHunkNewRange(header string) (start, length uint32) {
	_, newPart, ok := strings.Cut(header, "+")
	if !ok {
		return 1, 1
	}
	newPart, _, _ = strings.Cut(newPart, " ")
	numPart, lenPart, hasComma := strings.Cut(newPart, ",")
	n, _ := strconv.Atoi(numPart)
	length = 1
	if hasComma {
		if l, err := strconv.Atoi(lenPart); err == nil {
			length = uint32(l)
		}
	}
	if n <= 0 {
		n = 1
	}
	return uint32(n), length
}
