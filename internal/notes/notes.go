// Package notes stores and retrieves the provenance payload attached to a
// revision: a commit on a dedicated ref whose tree maps annotated commit
// hashes to the JSON blob of their receipt.NotePayload, built directly with
// go-git's object layer rather than shelling out to the git-notes porcelain.
package notes

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/blameprompt/blameprompt/internal/gitrepo"
	"github.com/blameprompt/blameprompt/internal/receipt"
)

// DefaultRef is the ref blameprompt's own annotations live under. It is
// deliberately distinct from refs/notes/commits so it never collides with
// notes a user keeps with git-notes itself.
const DefaultRef = "refs/notes/blameprompt"

// Store reads and writes NotePayloads against one ref in one repository.
// The ref's tree is flat: one blob per annotated commit, named by that
// commit's full hex hash. Real git-notes fans entries out into nested
// directories once the note count gets large; blameprompt's scale doesn't
// warrant that, so the tree stays single-level.
type Store struct {
	repo *git.Repository
	ref  plumbing.ReferenceName
}

// New returns a Store over repo using DefaultRef.
func New(repo *git.Repository) *Store {
	return &Store{repo: repo, ref: plumbing.ReferenceName(DefaultRef)}
}

// WithRef returns a Store over repo using a caller-chosen ref, for the
// separate interop export ref.
func WithRef(repo *git.Repository, ref string) *Store {
	return &Store{repo: repo, ref: plumbing.ReferenceName(ref)}
}

// ReadRaw returns the raw note blob bytes for commitHash, or (nil, false,
// nil) if none exists. Read is a thin wrapper around this that also decodes
// the bytes as a receipt.NotePayload.
func (s *Store) ReadRaw(commitHash plumbing.Hash) ([]byte, bool, error) {
	tree, err := s.currentTree()
	if err != nil {
		return nil, false, err
	}
	if tree == nil {
		return nil, false, nil
	}

	entry, err := tree.FindEntry(commitHash.String())
	if err != nil {
		return nil, false, nil
	}
	blob, err := s.repo.BlobObject(entry.Hash)
	if err != nil {
		return nil, false, fmt.Errorf("read note blob: %w", err)
	}
	reader, err := blob.Reader()
	if err != nil {
		return nil, false, fmt.Errorf("open note blob: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, false, fmt.Errorf("read note blob: %w", err)
	}
	return data, true, nil
}

// Read returns the payload attached to commitHash, or (nil, false, nil) if
// none exists.
func (s *Store) Read(commitHash plumbing.Hash) (*receipt.NotePayload, bool, error) {
	data, ok, err := s.ReadRaw(commitHash)
	if err != nil || !ok {
		return nil, ok, err
	}
	var payload receipt.NotePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, false, fmt.Errorf("parse note payload: %w", err)
	}
	return &payload, true, nil
}

// ListAnnotated returns every commit hash currently carrying a note.
func (s *Store) ListAnnotated() ([]plumbing.Hash, error) {
	tree, err := s.currentTree()
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, nil
	}
	hashes := make([]plumbing.Hash, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		hashes = append(hashes, plumbing.NewHash(e.Name))
	}
	return hashes, nil
}

// Attach writes payload as the note for commitHash, replacing any note
// already there. This is idempotent by replacement: attaching twice for the
// same commit leaves exactly one note, the most recent.
func (s *Store) Attach(commitHash plumbing.Hash, payload receipt.NotePayload) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal note payload: %w", err)
	}
	return s.AttachRaw(commitHash, data)
}

// AttachRaw writes data verbatim as the note blob for commitHash, replacing
// any note already there. Attach is a thin wrapper around this for the
// common receipt.NotePayload case; callers projecting a different JSON
// shape onto a ref (e.g. the interop record onto InteropRef) use this
// directly so notes.Store stays a generic commit-hash-to-blob store rather
// than one hardwired to a single payload type.
func (s *Store) AttachRaw(commitHash plumbing.Hash, data []byte) error {
	entries, err := s.currentEntries()
	if err != nil {
		return err
	}

	blobHash, err := s.writeBlob(data)
	if err != nil {
		return err
	}

	entries[commitHash.String()] = object.TreeEntry{
		Name: commitHash.String(),
		Mode: filemode.Regular,
		Hash: blobHash,
	}
	return s.commitEntries(entries, fmt.Sprintf("annotate %s", commitHash.String()))
}

// Remove deletes the note for commitHash, if any. Used by the rewrite
// remapper once an old revision's note has been migrated to its successor.
func (s *Store) Remove(commitHash plumbing.Hash) error {
	entries, err := s.currentEntries()
	if err != nil {
		return err
	}
	key := commitHash.String()
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return s.commitEntries(entries, fmt.Sprintf("remove annotation %s", key))
}

// currentTree resolves the ref's HEAD commit's tree, or (nil, nil) if the
// ref does not exist yet.
func (s *Store) currentTree() (*object.Tree, error) {
	ref, err := s.repo.Reference(s.ref, true)
	if err != nil {
		if err == plumbing.ErrReferenceNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve %s: %w", s.ref, err)
	}
	commit, err := s.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("load notes commit: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("load notes tree: %w", err)
	}
	return tree, nil
}

// currentEntries returns the flat map of commitHashHex -> TreeEntry backing
// the ref's current tree, empty if the ref doesn't exist yet.
func (s *Store) currentEntries() (map[string]object.TreeEntry, error) {
	tree, err := s.currentTree()
	if err != nil {
		return nil, err
	}
	entries := make(map[string]object.TreeEntry)
	if tree == nil {
		return entries, nil
	}
	for _, e := range tree.Entries {
		entries[e.Name] = e
	}
	return entries, nil
}

// writeBlob stores data as a blob object and returns its hash.
func (s *Store) writeBlob(data []byte) (plumbing.Hash, error) {
	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	writer, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("open blob writer: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return plumbing.ZeroHash, fmt.Errorf("write blob: %w", err)
	}
	if err := writer.Close(); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("close blob writer: %w", err)
	}
	return s.repo.Storer.SetEncodedObject(obj)
}

// commitEntries builds a tree from entries, commits it with the ref's
// current commit (if any) as parent, and moves the ref to the new commit.
func (s *Store) commitEntries(entries map[string]object.TreeEntry, message string) error {
	treeHash, err := s.buildTree(entries)
	if err != nil {
		return err
	}

	var parent plumbing.Hash
	oldRef, err := s.repo.Reference(s.ref, true)
	if err == nil {
		parent = oldRef.Hash()
	} else if err != plumbing.ErrReferenceNotFound {
		return fmt.Errorf("resolve %s: %w", s.ref, err)
	}

	author := gitrepo.CurrentAuthor(s.repo)
	sig := object.Signature{Name: author.Name, Email: author.Email, When: time.Now()}
	commit := &object.Commit{
		TreeHash:  treeHash,
		Author:    sig,
		Committer: sig,
		Message:   message,
	}
	if parent != plumbing.ZeroHash {
		commit.ParentHashes = []plumbing.Hash{parent}
	}

	obj := s.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return fmt.Errorf("encode notes commit: %w", err)
	}
	commitHash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return fmt.Errorf("store notes commit: %w", err)
	}

	newRef := plumbing.NewHashReference(s.ref, commitHash)
	if err := s.repo.Storer.SetReference(newRef); err != nil {
		return fmt.Errorf("update %s: %w", s.ref, err)
	}
	return nil
}

// buildTree encodes entries as a single flat tree object (blameprompt's
// notes tree never needs the nested-directory fan-out a real git-notes
// store uses at scale) and returns its hash.
func (s *Store) buildTree(entries map[string]object.TreeEntry) (plumbing.Hash, error) {
	treeEntries := make([]object.TreeEntry, 0, len(entries))
	for _, e := range entries {
		treeEntries = append(treeEntries, e)
	}
	sort.Slice(treeEntries, func(i, j int) bool { return treeEntries[i].Name < treeEntries[j].Name })

	tree := &object.Tree{Entries: treeEntries}
	obj := s.repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("encode notes tree: %w", err)
	}
	return s.repo.Storer.SetEncodedObject(obj)
}
