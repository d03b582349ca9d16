package query

import (
	"encoding/json"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/blameprompt/blameprompt/internal/cache"
	"github.com/blameprompt/blameprompt/internal/notes"
	"github.com/blameprompt/blameprompt/internal/receipt"
)

// InteropRef is the annotation ref interop records are written to, kept
// distinct from notes.DefaultRef so exporters and the engine never contend
// over the same ref.
const InteropRef = notes.DefaultRef + "-interop"

// ToolInfo identifies the engine producing an interop record.
type ToolInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// VCSInfo identifies the revision control system and revision an interop
// record describes.
type VCSInfo struct {
	Type     string `json:"type"`
	Revision string `json:"revision"`
}

// Contributor classifies who produced a span of lines in an interop record.
type Contributor string

const (
	ContributorAI    Contributor = "ai"
	ContributorHuman Contributor = "human"
	ContributorMixed Contributor = "mixed"
)

// InteropRange is one line span within an InteropConversation.
type InteropRange struct {
	StartLine   uint32 `json:"start_line"`
	EndLine     uint32 `json:"end_line"`
	ContentHash string `json:"content_hash,omitempty"`
}

// InteropConversation is one contributor's spans within one file.
type InteropConversation struct {
	Contributor Contributor    `json:"contributor"`
	ModelID     string         `json:"model_id,omitempty"`
	Ranges      []InteropRange `json:"ranges"`
}

// InteropFile is one file's conversations within an InteropRecord.
type InteropFile struct {
	Path          string                `json:"path"`
	Conversations []InteropConversation `json:"conversations"`
}

// InteropRecord is the language-neutral projection of a revision's
// receipts, independent of blameprompt's own Receipt/NotePayload shapes, so
// other tools can consume provenance without depending on this engine.
type InteropRecord struct {
	Version   int           `json:"version"`
	ID        string        `json:"id"`
	Timestamp string        `json:"timestamp"`
	VCS       VCSInfo       `json:"vcs"`
	Tool      ToolInfo      `json:"tool"`
	Files     []InteropFile `json:"files"`
}

// InteropSchemaVersion is the current interop record version.
const InteropSchemaVersion = 1

// EngineVersion is reported in every interop record's Tool.Version field.
// Kept as a simple constant rather than threaded through from build info,
// matching the original's `core::VERSION` string constant.
const EngineVersion = "0.1.0"

// ExportRevision projects rev's payload into an InteropRecord. Every
// receipt's every file change appears with contributor "ai" (the totality
// property query-side consumers rely on); when the payload also carries a
// file_mappings overlay, human_edited/pure_human hunks are projected
// alongside as additional conversations on the same file, giving a fuller
// picture without weakening that guarantee.
func (s Surface) ExportRevision(rev string) (InteropRecord, error) {
	hash, err := s.resolve(rev)
	if err != nil {
		return InteropRecord{}, err
	}
	payload, ok, err := s.Notes.Read(hash)
	if err != nil {
		return InteropRecord{}, err
	}
	if !ok {
		return InteropRecord{}, fmt.Errorf("revision %q carries no annotation", rev)
	}

	byPath := make(map[string]*InteropFile)
	order := []string{}
	fileFor := func(path string) *InteropFile {
		if f, ok := byPath[path]; ok {
			return f
		}
		f := &InteropFile{Path: path}
		byPath[path] = f
		order = append(order, path)
		return f
	}

	for _, r := range payload.Receipts {
		for _, fc := range r.AllFileChanges() {
			f := fileFor(fc.Path)
			f.Conversations = append(f.Conversations, InteropConversation{
				Contributor: ContributorAI,
				ModelID:     cache.NamespacedModelID(r.Model),
				Ranges: []InteropRange{{
					StartLine:   fc.LineRange.Start,
					EndLine:     fc.LineRange.End,
					ContentHash: fc.BlobHash,
				}},
			})
		}
	}

	for _, fm := range payload.FileMappings {
		f := fileFor(fm.Path)
		for _, h := range fm.Hunks {
			contributor, modelID := interopOriginFields(h)
			if contributor == ContributorAI {
				// Already covered by the receipt projection above; the
				// overlay only adds information for edited/human spans.
				continue
			}
			f.Conversations = append(f.Conversations, InteropConversation{
				Contributor: contributor,
				ModelID:     modelID,
				Ranges: []InteropRange{{
					StartLine: h.StartLine,
					EndLine:   h.EndLine,
				}},
			})
		}
	}

	files := make([]InteropFile, 0, len(order))
	for _, p := range order {
		files = append(files, *byPath[p])
	}

	return InteropRecord{
		Version:   InteropSchemaVersion,
		ID:        hash.String(),
		Timestamp: s.commitTime(hash).Format("2006-01-02T15:04:05Z07:00"),
		VCS:       VCSInfo{Type: "git", Revision: hash.String()},
		Tool:      ToolInfo{Name: "blameprompt", Version: EngineVersion},
		Files:     files,
	}, nil
}

func interopOriginFields(h receipt.Hunk) (Contributor, string) {
	switch h.Origin {
	case receipt.OriginAIGenerated:
		return ContributorAI, cache.NamespacedModelID(h.Model)
	case receipt.OriginHumanEdited:
		return ContributorMixed, cache.NamespacedModelID(h.Model)
	default:
		return ContributorHuman, ""
	}
}

// WriteExport attaches record under InteropRef for the revision it names.
// The interop ref stores InteropRecord JSON directly rather than a
// receipt.NotePayload, so this goes through notes.Store.AttachRaw, which
// keeps the store a generic commit-hash-to-blob map rather than one
// hardwired to a single payload shape.
func (s Surface) WriteExport(record InteropRecord) error {
	hash := plumbing.NewHash(record.ID)
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal interop record: %w", err)
	}
	return notes.WithRef(s.Repo, InteropRef).AttachRaw(hash, data)
}

// ReadExport returns the interop record attached to rev, or (nil, false,
// nil) if none exists.
func (s Surface) ReadExport(rev string) (*InteropRecord, bool, error) {
	hash, err := s.resolve(rev)
	if err != nil {
		return nil, false, err
	}
	data, ok, err := notes.WithRef(s.Repo, InteropRef).ReadRaw(hash)
	if err != nil || !ok {
		return nil, ok, err
	}
	var record InteropRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, false, fmt.Errorf("parse interop record: %w", err)
	}
	return &record, true, nil
}
