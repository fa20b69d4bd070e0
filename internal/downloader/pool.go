package downloader

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	lerrors "lucidexport/pkg/errors"
	"lucidexport/pkg/logger"
	"lucidexport/pkg/models"
	"lucidexport/pkg/ratelimit"
)

// PageJob is one page of a document to download
type PageJob struct {
	// Index is the zero-based position in the document's page list
	Index     int
	PageTitle string
	URL       string
	Dir       string
	FileName  string
}

// PageNumber is the 1-based page number used in URLs and file names
func (j PageJob) PageNumber() int {
	return j.Index + 1
}

// PageDownloader fetches page image bytes
type PageDownloader interface {
	DownloadPage(ctx context.Context, pageURL, apiKey, contentType string) ([]byte, error)
}

// PageStorage writes page files
type PageStorage interface {
	SavePage(r io.Reader, dir, fileName string) (string, int64, error)
}

// PageObserver is told when a page task starts and finishes. Calls arrive
// from many goroutines.
type PageObserver interface {
	PageStarted(documentID string, pageNumber int)
	PageFinished(documentID string, outcome models.PageOutcome)
}

// Pool runs the page downloads of one document. Every Pool in a run shares
// the same limiter, so the cap on in-flight downloads is global.
type Pool struct {
	documentID  string
	apiKey      string
	contentType string
	client      PageDownloader
	storage     PageStorage
	limiter     ratelimit.Limiter
	observer    PageObserver
	logger      logger.Logger

	outcomes []models.PageOutcome
	wg       sync.WaitGroup
}

// Config holds the per-document settings of a Pool
type Config struct {
	DocumentID  string
	APIKey      string
	ContentType string
	PageCount   int
}

// NewPool creates a pool with one outcome slot per page
func NewPool(
	cfg Config,
	client PageDownloader,
	storage PageStorage,
	limiter ratelimit.Limiter,
	observer PageObserver,
	log logger.Logger,
) *Pool {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Pool{
		documentID:  cfg.DocumentID,
		apiKey:      cfg.APIKey,
		contentType: cfg.ContentType,
		client:      client,
		storage:     storage,
		limiter:     limiter,
		observer:    observer,
		logger:      log.WithField("document_id", cfg.DocumentID),
		outcomes:    make([]models.PageOutcome, cfg.PageCount),
	}
}

// Submit waits for a limiter slot and then starts the job in its own
// goroutine. The slot is held for the download and the write only; it is
// released, however the job ends, before the outcome is logged and reported
// to the observer. If no slot can be had because ctx is done, the job is
// recorded as failed without being started.
func (p *Pool) Submit(ctx context.Context, job PageJob) {
	var outcome models.PageOutcome
	err := ratelimit.GoThen(ctx, p.limiter, &p.wg,
		func() { outcome = p.run(ctx, job) },
		func() { p.record(job, outcome) },
	)
	if err != nil {
		p.Fail(job, lerrors.NewStageError(lerrors.StageDownload, p.documentID, job.PageNumber(), err))
	}
}

// Fail records job as failed with err without starting it. Only Index and
// PageTitle of job are used.
func (p *Pool) Fail(job PageJob, err error) {
	p.record(job, models.PageOutcome{
		PageNumber: job.PageNumber(),
		PageTitle:  job.PageTitle,
		Err:        err,
	})
}

// Wait blocks until every submitted job has finished and returns the
// outcomes ordered by page number.
func (p *Pool) Wait() []models.PageOutcome {
	p.wg.Wait()
	return p.outcomes
}

// record stores an outcome in the job's own slot, then logs and reports it.
// A panicking observer is logged; the stored outcome is kept.
func (p *Pool) record(job PageJob, outcome models.PageOutcome) {
	p.outcomes[job.Index] = outcome

	logger.LogPageExport(p.logger, p.documentID, outcome.PageNumber, outcome.PageTitle, outcome.Path, outcome.Err)
	if p.observer == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.WithError(logger.FormatPanic(r)).WithField("page", outcome.PageNumber).Error("Page observer panicked")
		}
	}()
	p.observer.PageFinished(p.documentID, outcome)
}

// run downloads and saves one page. A panic is turned into a failed outcome.
func (p *Pool) run(ctx context.Context, job PageJob) (outcome models.PageOutcome) {
	start := time.Now()
	outcome = models.PageOutcome{
		PageNumber: job.PageNumber(),
		PageTitle:  job.PageTitle,
		Started:    true,
	}

	defer func() {
		if r := recover(); r != nil {
			outcome.Success = false
			outcome.Path = ""
			outcome.Err = lerrors.NewStageError(lerrors.StageInternal, p.documentID, job.PageNumber(), logger.FormatPanic(r))
		}
		outcome.Duration = time.Since(start)
	}()

	if p.observer != nil {
		p.observer.PageStarted(p.documentID, job.PageNumber())
	}

	p.logger.DebugWithFields("Downloading page", map[string]interface{}{
		"page": job.PageNumber(),
		"url":  job.URL,
	})

	data, err := p.client.DownloadPage(ctx, job.URL, p.apiKey, p.contentType)
	if err != nil {
		outcome.Err = lerrors.NewStageError(lerrors.StageDownload, p.documentID, job.PageNumber(), err)
		return outcome
	}

	path, size, err := p.storage.SavePage(bytes.NewReader(data), job.Dir, job.FileName)
	if err != nil {
		outcome.Err = lerrors.NewStageError(lerrors.StageWrite, p.documentID, job.PageNumber(),
			lerrors.Wrap(lerrors.ErrorTypeIO, err, "failed to write page"))
		return outcome
	}

	outcome.Success = true
	outcome.Path = path
	outcome.Size = size
	return outcome
}
