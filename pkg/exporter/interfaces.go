package exporter

import (
	"context"

	"lucidexport/internal/downloader"
	"lucidexport/pkg/lucid"
	"lucidexport/pkg/models"
)

// MetadataClient fetches a document's title and page list
type MetadataClient interface {
	FetchMetadata(ctx context.Context, documentID, apiKey string) (*lucid.DocumentMetadata, error)
}

// PageDownloader fetches rendered page images
type PageDownloader = downloader.PageDownloader

// LucidClient is everything the exporter needs from the Lucid API
type LucidClient interface {
	MetadataClient
	PageDownloader
}

// Observer receives progress events from exports. Methods are called from
// many goroutines and must not block for long.
type Observer interface {
	DocumentStarted(documentID string)
	DocumentResolved(documentID, title string, pageCount int)
	downloader.PageObserver
	DocumentFinished(outcome models.DocumentOutcome)
}

// NopObserver ignores every event
type NopObserver struct{}

func (NopObserver) DocumentStarted(string)                  {}
func (NopObserver) DocumentResolved(string, string, int)    {}
func (NopObserver) PageStarted(string, int)                 {}
func (NopObserver) PageFinished(string, models.PageOutcome) {}
func (NopObserver) DocumentFinished(models.DocumentOutcome) {}

// Observers fans events out to several observers in order
type Observers []Observer

func (o Observers) DocumentStarted(documentID string) {
	for _, obs := range o {
		obs.DocumentStarted(documentID)
	}
}

func (o Observers) DocumentResolved(documentID, title string, pageCount int) {
	for _, obs := range o {
		obs.DocumentResolved(documentID, title, pageCount)
	}
}

func (o Observers) PageStarted(documentID string, pageNumber int) {
	for _, obs := range o {
		obs.PageStarted(documentID, pageNumber)
	}
}

func (o Observers) PageFinished(documentID string, outcome models.PageOutcome) {
	for _, obs := range o {
		obs.PageFinished(documentID, outcome)
	}
}

func (o Observers) DocumentFinished(outcome models.DocumentOutcome) {
	for _, obs := range o {
		obs.DocumentFinished(outcome)
	}
}
