package exporter

import (
	"context"
	"strings"
	"time"

	"lucidexport/internal/downloader"
	lerrors "lucidexport/pkg/errors"
	"lucidexport/pkg/logger"
	"lucidexport/pkg/lucid"
	"lucidexport/pkg/models"
	"lucidexport/pkg/ratelimit"
	"lucidexport/pkg/storage"
)

// Exporter exports the pages of one document at a time. It holds no
// per-document state and may run many exports concurrently.
type Exporter struct {
	client   LucidClient
	baseURL  string
	observer Observer
	logger   logger.Logger
}

// New creates an Exporter. baseURL is used to build page URLs; empty means
// the public Lucid API.
func New(client LucidClient, baseURL string, observer Observer, log logger.Logger) *Exporter {
	if log == nil {
		log = logger.GetLogger()
	}
	if observer == nil {
		observer = NopObserver{}
	}
	if baseURL == "" {
		baseURL = lucid.BaseURL
	}

	return &Exporter{
		client:   client,
		baseURL:  baseURL,
		observer: observer,
		logger:   log,
	}
}

// Export writes every page of target's document below target.OutputFolder.
// It never returns an error: a failure before any page starts is recorded in
// the outcome's Err, and page failures are recorded on their page.
func (e *Exporter) Export(ctx context.Context, target models.ExportTarget, apiKey string, limiter ratelimit.Limiter) models.DocumentOutcome {
	return e.export(ctx, target, apiKey, limiter, nil)
}

// folderClaim reserves a document folder name and returns the name to use
type folderClaim func(name string) string

func (e *Exporter) export(ctx context.Context, target models.ExportTarget, apiKey string, limiter ratelimit.Limiter, claim folderClaim) (outcome models.DocumentOutcome) {
	start := time.Now()
	target = withDefaults(target)
	log := e.logger.WithField("document_id", target.DocumentID)

	outcome = models.DocumentOutcome{DocumentID: target.DocumentID}

	defer func() {
		if r := recover(); r != nil {
			outcome.Err = lerrors.NewStageError(lerrors.StageInternal, target.DocumentID, 0, logger.FormatPanic(r))
		}
		outcome.Duration = time.Since(start)
		logger.LogDocumentOutcome(e.logger, outcome.DocumentID, outcome.Title, len(outcome.Pages), len(outcome.FailedPages()), outcome.Err)
		e.observer.DocumentFinished(outcome)
	}()

	e.observer.DocumentStarted(target.DocumentID)

	manager, err := storage.NewManager(target.OutputFolder)
	if err != nil {
		outcome.Err = lerrors.NewStageError(lerrors.StageFolder, target.DocumentID, 0,
			lerrors.Wrap(lerrors.ErrorTypeIO, err, "failed to prepare output folder"))
		return outcome
	}

	meta, err := e.client.FetchMetadata(ctx, target.DocumentID, apiKey)
	if err != nil {
		outcome.Err = lerrors.NewStageError(lerrors.StageMetadata, target.DocumentID, 0, err)
		return outcome
	}
	outcome.Title = meta.Title

	name, err := storage.FolderName(meta.Title, target.DocumentID)
	if err == nil {
		if claim != nil {
			name = claim(name)
		}
		outcome.Folder, err = manager.MakeDir(name)
	}
	if err != nil {
		outcome.Err = lerrors.NewStageError(lerrors.StageFolder, target.DocumentID, 0,
			lerrors.Wrap(lerrors.ErrorTypeIO, err, "failed to create document folder"))
		return outcome
	}

	log.InfoWithFields("Exporting document", map[string]interface{}{
		"title":  meta.Title,
		"folder": outcome.Folder,
		"pages":  len(meta.Pages),
	})
	e.observer.DocumentResolved(target.DocumentID, meta.Title, len(meta.Pages))

	pool := downloader.NewPool(downloader.Config{
		DocumentID:  target.DocumentID,
		APIKey:      apiKey,
		ContentType: target.ContentType,
		PageCount:   len(meta.Pages),
	}, e.client, manager, limiter, e.observer, e.logger)

	e.submitPages(ctx, pool, target, meta.Pages, outcome.Folder)
	outcome.Pages = pool.Wait()
	return outcome
}

// submitPages queues every page on pool. If queueing panics, the pages not
// yet queued are recorded as failed with the panic, so the pool still holds
// one outcome per page.
func (e *Exporter) submitPages(ctx context.Context, pool *downloader.Pool, target models.ExportTarget, pages []lucid.PageMeta, dir string) {
	next := 0
	defer func() {
		if r := recover(); r != nil {
			err := lerrors.NewStageError(lerrors.StageInternal, target.DocumentID, next+1, logger.FormatPanic(r))
			e.logger.WithError(err).WithField("document_id", target.DocumentID).Error("Queueing pages panicked")
			for i := next; i < len(pages); i++ {
				pool.Fail(downloader.PageJob{Index: i, PageTitle: pages[i].Title}, err)
			}
		}
	}()

	for ; next < len(pages); next++ {
		pool.Submit(ctx, downloader.PageJob{
			Index:     next,
			PageTitle: pages[next].Title,
			URL:       lucid.PageURL(e.baseURL, target.DocumentID, next+1, target.CropMode),
			Dir:       dir,
			FileName:  storage.PageFileName(next+1, pages[next].Title, target.ExportExtension),
		})
	}
}

func withDefaults(target models.ExportTarget) models.ExportTarget {
	if target.ContentType == "" {
		target.ContentType = lucid.DefaultContentType
	}
	if target.ExportExtension == "" {
		target.ExportExtension = lucid.DefaultExtension
	}
	target.ExportExtension = strings.ToLower(target.ExportExtension)
	if target.CropMode == "" {
		target.CropMode = lucid.DefaultCropMode
	}
	return target
}
