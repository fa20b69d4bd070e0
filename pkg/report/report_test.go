package report

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lerrors "lucidexport/pkg/errors"
	"lucidexport/pkg/models"
)

func sampleOutcomes() []models.DocumentOutcome {
	return []models.DocumentOutcome{
		{
			DocumentID: "D1",
			Title:      "Plan",
			Folder:     "/out/Plan",
			Duration:   1500 * time.Millisecond,
			Pages: []models.PageOutcome{
				{PageNumber: 2, PageTitle: "Detail", Err: &lerrors.Error{Type: lerrors.ErrorTypeEmptyResponse, Message: "no data"}},
				{PageNumber: 1, PageTitle: "Intro", Path: "/out/Plan/[01] - Intro.png", Success: true, Size: 2048},
			},
		},
		{
			DocumentID: "D2",
			Err:        lerrors.NewStageError(lerrors.StageMetadata, "D2", 0, &lerrors.Error{Type: lerrors.ErrorTypeNotFound, Message: "document not found", Code: 404}),
		},
		{
			DocumentID: "D3",
			Err:        errors.New("plain failure"),
		},
	}
}

func TestBuild(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	r := Build(sampleOutcomes(), "/out", 12, started, started.Add(2*time.Second))

	assert.Equal(t, Version, r.Version)
	assert.Equal(t, 12, r.Concurrency)
	assert.Equal(t, Totals{Documents: 3, FailedDocuments: 2, Pages: 2, FailedPages: 1, Bytes: 2048}, r.Totals)

	require.Len(t, r.Documents, 3)
	plan := r.Documents[0]
	assert.Equal(t, int64(1500), plan.DurationMS)
	require.Len(t, plan.Pages, 2)
	assert.Equal(t, 1, plan.Pages[0].Number, "pages are listed in page order")
	assert.True(t, plan.Pages[0].Success)
	assert.Equal(t, "empty_response", plan.Pages[1].ErrorType)

	assert.Equal(t, "not_found", r.Documents[1].ErrorType)
	assert.NotNil(t, r.Documents[1].Pages)
	assert.Equal(t, "unknown", r.Documents[2].ErrorType)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.json")
	now := time.Now()
	r := Build(sampleOutcomes(), "/out", 4, now, now)

	require.NoError(t, r.Save(path))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file should be renamed away")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, r.Totals, loaded.Totals)
	assert.Equal(t, r.Documents[0].Pages[0].Path, loaded.Documents[0].Pages[0].Path)
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	r := Build(nil, "/out", 12, time.Unix(0, 0), time.Unix(1, 0))
	require.NoError(t, r.Encode(&buf))
	assert.Contains(t, buf.String(), `"documents": []`)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
