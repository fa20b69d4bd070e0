// Package report writes a JSON summary of an export run.
//
// The report is for people and scripts that want to know what happened in a
// run. It is never read back by lucidexport.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	lerrors "lucidexport/pkg/errors"
	"lucidexport/pkg/models"
)

// Version is the report format version
const Version = 1

// Report is the serialized form of a run
type Report struct {
	Version     int              `json:"version"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at"`
	Output      string           `json:"output"`
	Concurrency int              `json:"concurrency"`
	Totals      Totals           `json:"totals"`
	Documents   []DocumentReport `json:"documents"`
}

// Totals mirrors models.Totals
type Totals struct {
	Documents       int   `json:"documents"`
	FailedDocuments int   `json:"failed_documents"`
	Pages           int   `json:"pages"`
	FailedPages     int   `json:"failed_pages"`
	Bytes           int64 `json:"bytes"`
}

// DocumentReport is one document's outcome
type DocumentReport struct {
	ID         string       `json:"id"`
	Title      string       `json:"title,omitempty"`
	Folder     string       `json:"folder,omitempty"`
	Error      string       `json:"error,omitempty"`
	ErrorType  string       `json:"error_type,omitempty"`
	DurationMS int64        `json:"duration_ms"`
	Pages      []PageReport `json:"pages"`
}

// PageReport is one page's outcome
type PageReport struct {
	Number     int    `json:"number"`
	Title      string `json:"title"`
	Path       string `json:"path,omitempty"`
	Success    bool   `json:"success"`
	Bytes      int64  `json:"bytes,omitempty"`
	Error      string `json:"error,omitempty"`
	ErrorType  string `json:"error_type,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Build converts run outcomes into a Report
func Build(outcomes []models.DocumentOutcome, output string, concurrency int, startedAt, finishedAt time.Time) *Report {
	totals := models.Summarize(outcomes)
	r := &Report{
		Version:     Version,
		StartedAt:   startedAt.UTC(),
		FinishedAt:  finishedAt.UTC(),
		Output:      output,
		Concurrency: concurrency,
		Totals: Totals{
			Documents:       totals.Documents,
			FailedDocuments: totals.FailedDocuments,
			Pages:           totals.Pages,
			FailedPages:     totals.FailedPages,
			Bytes:           totals.Bytes,
		},
		Documents: make([]DocumentReport, 0, len(outcomes)),
	}

	for _, d := range outcomes {
		doc := DocumentReport{
			ID:         d.DocumentID,
			Title:      d.Title,
			Folder:     d.Folder,
			DurationMS: d.Duration.Milliseconds(),
			Pages:      make([]PageReport, 0, len(d.Pages)),
		}
		if d.Err != nil {
			doc.Error = d.Err.Error()
			doc.ErrorType = string(lerrors.TypeOf(d.Err))
		}
		for _, p := range d.SortedPages() {
			page := PageReport{
				Number:     p.PageNumber,
				Title:      p.PageTitle,
				Path:       p.Path,
				Success:    p.Success,
				Bytes:      p.Size,
				Error:      p.ErrorMessage(),
				DurationMS: p.Duration.Milliseconds(),
			}
			if p.Err != nil {
				page.ErrorType = string(lerrors.TypeOf(p.Err))
			}
			doc.Pages = append(doc.Pages, page)
		}
		r.Documents = append(r.Documents, doc)
	}

	return r
}

// Encode writes r as indented JSON
func (r *Report) Encode(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// Save writes r to path atomically
func (r *Report) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	file, err := os.CreateTemp(dir, ".report-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary report file: %w", err)
	}
	tempPath := file.Name()

	if err := r.Encode(file); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync report file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close report file: %w", err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to set report file mode: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename report file: %w", err)
	}

	return nil
}

// Load reads a report written by Save
func Load(path string) (*Report, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report file: %w", err)
	}
	defer file.Close()

	var r Report
	if err := json.NewDecoder(file).Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &r, nil
}
