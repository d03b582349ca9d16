package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blameprompt/blameprompt/internal/notes"
	"github.com/blameprompt/blameprompt/internal/receipt"
)

func TestExportRevision_EveryFileChangeIsAI(t *testing.T) {
	repo, head := initRepo(t)
	s := New(repo, t.TempDir())

	payload := receipt.NewPayload([]receipt.Receipt{
		{
			ID:    "r1",
			Model: "claude-sonnet-4-5",
			FilesChanged: []receipt.FileChange{
				{Path: "a.txt", LineRange: receipt.LineRange{Start: 1, End: 2}},
				{Path: "b.txt", LineRange: receipt.LineRange{Start: 5, End: 9}},
			},
		},
	})
	require.NoError(t, notes.New(repo).Attach(head, payload))

	record, err := s.ExportRevision(head.String())
	require.NoError(t, err)
	require.Equal(t, InteropSchemaVersion, record.Version)
	require.Equal(t, head.String(), record.ID)
	require.Equal(t, "git", record.VCS.Type)
	require.Len(t, record.Files, 2)

	for _, f := range record.Files {
		require.Len(t, f.Conversations, 1)
		require.Equal(t, ContributorAI, f.Conversations[0].Contributor)
		require.Equal(t, "anthropic/claude-sonnet-4-5", f.Conversations[0].ModelID)
	}
}

func TestExportRevision_OverlayAddsHumanAndMixedSpans(t *testing.T) {
	repo, head := initRepo(t)
	s := New(repo, t.TempDir())

	payload := receipt.WithFileMappings(
		[]receipt.Receipt{
			{
				ID:    "r1",
				Model: "claude-sonnet-4-5",
				FilesChanged: []receipt.FileChange{
					{Path: "a.txt", LineRange: receipt.LineRange{Start: 1, End: 2}},
				},
			},
		},
		[]receipt.FileMapping{
			{
				Path: "a.txt",
				Hunks: []receipt.Hunk{
					{StartLine: 1, EndLine: 2, Origin: receipt.OriginAIGenerated, Model: "claude-sonnet-4-5"},
					{StartLine: 3, EndLine: 4, Origin: receipt.OriginHumanEdited, Model: "claude-sonnet-4-5"},
					{StartLine: 5, EndLine: 6, Origin: receipt.OriginPureHuman},
				},
			},
		},
	)
	require.NoError(t, notes.New(repo).Attach(head, payload))

	record, err := s.ExportRevision(head.String())
	require.NoError(t, err)
	require.Len(t, record.Files, 1)

	f := record.Files[0]
	// one AI conversation from the receipt projection, plus mixed + human
	// conversations from the overlay (the ai_generated hunk is skipped as
	// already covered).
	require.Len(t, f.Conversations, 3)

	var sawAI, sawMixed, sawHuman bool
	for _, c := range f.Conversations {
		switch c.Contributor {
		case ContributorAI:
			sawAI = true
		case ContributorMixed:
			sawMixed = true
		case ContributorHuman:
			sawHuman = true
		}
	}
	require.True(t, sawAI)
	require.True(t, sawMixed)
	require.True(t, sawHuman)
}

func TestExportRevision_NoAnnotation(t *testing.T) {
	repo, head := initRepo(t)
	s := New(repo, t.TempDir())

	_, err := s.ExportRevision(head.String())
	require.Error(t, err)
}

func TestWriteExportThenReadExport_RoundTrips(t *testing.T) {
	repo, head := initRepo(t)
	s := New(repo, t.TempDir())

	payload := receipt.NewPayload([]receipt.Receipt{
		{ID: "r1", Model: "gpt-4o", FilesChanged: []receipt.FileChange{
			{Path: "a.txt", LineRange: receipt.LineRange{Start: 1, End: 2}},
		}},
	})
	require.NoError(t, notes.New(repo).Attach(head, payload))

	record, err := s.ExportRevision(head.String())
	require.NoError(t, err)
	require.NoError(t, s.WriteExport(record))

	got, ok, err := s.ReadExport(head.String())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, record.ID, got.ID)
	require.Equal(t, record.Files, got.Files)
}

func TestReadExport_Absent(t *testing.T) {
	repo, head := initRepo(t)
	s := New(repo, t.TempDir())

	_, ok, err := s.ReadExport(head.String())
	require.NoError(t, err)
	require.False(t, ok)
}
