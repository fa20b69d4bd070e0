// Package lucid provides a client for the Lucid REST API.
//
// Only the two calls needed to export a document are implemented:
//   - FetchMetadata reads a document's title and ordered page list
//   - DownloadPage fetches one rendered page image
//
// Every request carries the Lucid-Api-Version and bearer Authorization
// headers. Failures are returned as *errors.Error values whose Type tells
// auth, not-found, network, parsing and empty-response failures apart.
// Requests are never retried.
//
// Example usage:
//
//	client := lucid.NewClient(2*time.Minute, log)
//
//	meta, err := client.FetchMetadata(ctx, "abc123", apiKey)
//	if err != nil {
//	    if errors.IsType(err, errors.ErrorTypeAuth) {
//	        // bad key
//	    }
//	}
//
//	for i := range meta.Pages {
//	    url := lucid.PageURL(client.BaseURL(), "abc123", i+1, lucid.DefaultCropMode)
//	    data, err := client.DownloadPage(ctx, url, apiKey, lucid.DefaultContentType)
//	    // write data
//	}
package lucid
