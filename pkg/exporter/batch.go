package exporter

import (
	"context"
	"sync"
	"time"

	"lucidexport/pkg/docid"
	lerrors "lucidexport/pkg/errors"
	"lucidexport/pkg/logger"
	"lucidexport/pkg/models"
	"lucidexport/pkg/ratelimit"
	"lucidexport/pkg/storage"
)

// Options are the export settings shared by every document in a run
type Options struct {
	ContentType     string
	ExportExtension string
	CropMode        string
}

// Runner exports a batch of documents concurrently. All documents share one
// limiter, so the page download cap applies to the whole run.
type Runner struct {
	exporter *Exporter
	limiter  ratelimit.Limiter
	options  Options
	logger   logger.Logger
}

// NewRunner creates a Runner. A nil limiter gets a Semaphore with
// ratelimit.DefaultCapacity.
func NewRunner(exporter *Exporter, limiter ratelimit.Limiter, options Options, log logger.Logger) *Runner {
	if log == nil {
		log = logger.GetLogger()
	}
	if limiter == nil {
		limiter = ratelimit.NewSemaphore(ratelimit.DefaultCapacity)
	}

	return &Runner{
		exporter: exporter,
		limiter:  limiter,
		options:  options,
		logger:   log,
	}
}

// Run exports every document and waits for all of them. Blank ids are
// skipped and repeated ids are exported once, so the result can be shorter
// than ids. Outcomes follow the order of the remaining ids; one document
// failing never stops the others.
//
// Documents whose titles give the same folder name do not share a folder:
// the first of them in input order keeps the title, the others get
// "{title} ({document id})".
func (r *Runner) Run(ctx context.Context, ids []string, outputFolder, apiKey string) []models.DocumentOutcome {
	start := time.Now()

	var cleaned []string
	for _, raw := range ids {
		if id, ok := docid.Normalize(raw); ok {
			cleaned = append(cleaned, id)
		}
	}
	unique := docid.Dedupe(cleaned)
	if skipped := len(cleaned) - len(unique); skipped > 0 {
		r.logger.WarnWithFields("Skipping repeated document ids", map[string]interface{}{
			"skipped": skipped,
		})
	}

	logger.LogComponentStart(r.logger, "runner", map[string]interface{}{
		"documents":   len(unique),
		"concurrency": r.limiter.Capacity(),
		"output":      outputFolder,
	})

	outcomes := make([]models.DocumentOutcome, len(unique))
	turns := newFolderTurns(len(unique))
	var wg sync.WaitGroup

	for i, id := range unique {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			defer turns.pass(ctx, i)
			defer func() {
				if rec := recover(); rec != nil {
					err := lerrors.NewStageError(lerrors.StageInternal, id, 0, logger.FormatPanic(rec))
					r.logger.WithError(err).WithField("document_id", id).Error("Document export panicked")
					outcomes[i] = models.DocumentOutcome{DocumentID: id, Err: err}
				}
			}()

			target := models.ExportTarget{
				DocumentID:      id,
				OutputFolder:    outputFolder,
				ContentType:     r.options.ContentType,
				ExportExtension: r.options.ExportExtension,
				CropMode:        r.options.CropMode,
			}
			outcomes[i] = r.exporter.export(ctx, target, apiKey, r.limiter, func(name string) string {
				return turns.claim(ctx, i, name, id)
			})
		}(i, id)
	}

	wg.Wait()

	totals := models.Summarize(outcomes)
	logger.LogMetrics(r.logger, "export_run", map[string]interface{}{
		"documents":        totals.Documents,
		"failed_documents": totals.FailedDocuments,
		"pages":            totals.Pages,
		"failed_pages":     totals.FailedPages,
		"bytes":            totals.Bytes,
		"duration":         time.Since(start),
	})

	return outcomes
}

// folderTurns grants folder claims in input order, so that a rerun of the
// same batch gives every document the same folder. Document i claims only
// after every earlier document has claimed or given up its turn.
type folderTurns struct {
	claims *storage.FolderClaims
	done   []chan struct{}
	once   []sync.Once
}

func newFolderTurns(n int) *folderTurns {
	t := &folderTurns{
		claims: storage.NewFolderClaims(),
		done:   make([]chan struct{}, n),
		once:   make([]sync.Once, n),
	}
	for i := range t.done {
		t.done[i] = make(chan struct{})
	}
	return t
}

// claim waits for document i's turn and claims name for it. Once ctx is
// done the order is no longer kept.
func (t *folderTurns) claim(ctx context.Context, i int, name, documentID string) string {
	t.wait(ctx, i)
	defer t.end(i)
	return t.claims.Claim(name, documentID)
}

// pass ends document i's turn without claiming, keeping the order for the
// documents after it. It does nothing if i already claimed.
func (t *folderTurns) pass(ctx context.Context, i int) {
	t.wait(ctx, i)
	t.end(i)
}

func (t *folderTurns) wait(ctx context.Context, i int) {
	if i == 0 {
		return
	}
	select {
	case <-t.done[i-1]:
	case <-ctx.Done():
	}
}

func (t *folderTurns) end(i int) {
	t.once[i].Do(func() { close(t.done[i]) })
}
