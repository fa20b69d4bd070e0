package errors

import "fmt"

// Stage names the pipeline step an error belongs to
type Stage string

const (
	// StageMetadata is terminal for the document
	StageMetadata Stage = "metadata"
	// StageFolder is terminal for the document when the document folder
	// cannot be created, and for the run's output root otherwise
	StageFolder Stage = "folder"
	// StageDownload is terminal for one page
	StageDownload Stage = "download"
	// StageWrite is terminal for one page
	StageWrite Stage = "write"
	// StageInternal marks a recovered panic
	StageInternal Stage = "internal"
)

// StageError attaches document and page context to a pipeline failure.
// Page is 0 for document-level stages.
type StageError struct {
	Stage      Stage
	DocumentID string
	Page       int
	Err        error
}

func (e *StageError) Error() string {
	switch {
	case e.Page > 0:
		return fmt.Sprintf("%s failed for document %s page %d: %v", e.Stage, e.DocumentID, e.Page, e.Err)
	default:
		return fmt.Sprintf("%s failed for document %s: %v", e.Stage, e.DocumentID, e.Err)
	}
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err with pipeline context
func NewStageError(stage Stage, documentID string, page int, err error) *StageError {
	return &StageError{Stage: stage, DocumentID: documentID, Page: page, Err: err}
}
