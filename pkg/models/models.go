package models

import (
	"sort"
	"time"
)

// ExportTarget describes one document export. It is passed by value and not
// changed while the export runs.
type ExportTarget struct {
	DocumentID      string
	OutputFolder    string
	ContentType     string
	ExportExtension string
	CropMode        string
}

// PageOutcome is the result of exporting one page. Started is false for
// pages that never got a download slot.
type PageOutcome struct {
	PageNumber int
	PageTitle  string
	Path       string
	Started    bool
	Success    bool
	Err        error
	Size       int64
	Duration   time.Duration
}

// ErrorMessage returns the failure text, or "" on success
func (p PageOutcome) ErrorMessage() string {
	if p.Err == nil {
		return ""
	}
	return p.Err.Error()
}

// DocumentOutcome is the result of exporting one document. Err is set when
// the document failed before any page was attempted; Pages is empty then.
type DocumentOutcome struct {
	DocumentID string
	Title      string
	Folder     string
	Pages      []PageOutcome
	Err        error
	Duration   time.Duration
}

// Succeeded reports whether the document and all of its pages exported
func (d DocumentOutcome) Succeeded() bool {
	if d.Err != nil {
		return false
	}
	for _, p := range d.Pages {
		if !p.Success {
			return false
		}
	}
	return true
}

// FailedPages returns the outcomes of pages that did not export
func (d DocumentOutcome) FailedPages() []PageOutcome {
	var failed []PageOutcome
	for _, p := range d.Pages {
		if !p.Success {
			failed = append(failed, p)
		}
	}
	return failed
}

// ExportedPages counts successful pages
func (d DocumentOutcome) ExportedPages() int {
	n := 0
	for _, p := range d.Pages {
		if p.Success {
			n++
		}
	}
	return n
}

// SortedPages returns a copy of Pages ordered by page number
func (d DocumentOutcome) SortedPages() []PageOutcome {
	pages := make([]PageOutcome, len(d.Pages))
	copy(pages, d.Pages)
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].PageNumber < pages[j].PageNumber
	})
	return pages
}

// Totals summarizes a batch of document outcomes
type Totals struct {
	Documents       int
	FailedDocuments int
	Pages           int
	FailedPages     int
	Bytes           int64
}

// Summarize adds up a batch of document outcomes
func Summarize(outcomes []DocumentOutcome) Totals {
	var t Totals
	for _, d := range outcomes {
		t.Documents++
		if d.Err != nil {
			t.FailedDocuments++
			continue
		}
		for _, p := range d.Pages {
			t.Pages++
			if p.Success {
				t.Bytes += p.Size
			} else {
				t.FailedPages++
			}
		}
	}
	return t
}
