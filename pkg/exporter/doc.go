// Package exporter drives the export of Lucid documents to image files.
//
// An Exporter handles one document: it fetches the metadata once, creates
// the document folder and hands every page to a download pool. A Runner
// exports a batch of documents concurrently, all of them sharing a single
// ratelimit.Limiter so the cap on in-flight downloads holds across the run.
//
// Failures never escape as errors. They are recorded on the page or the
// document they belong to and logged, and every other page and document
// still runs.
//
// Usage:
//
//	client := lucid.NewClient(2*time.Minute, log)
//	exp := exporter.New(client, client.BaseURL(), nil, log)
//	runner := exporter.NewRunner(exp, ratelimit.NewSemaphore(12), exporter.Options{}, log)
//
//	outcomes := runner.Run(ctx, []string{"abc123", "def456"}, "./LucidExports", apiKey)
//	for _, o := range outcomes {
//	    if !o.Succeeded() {
//	        // inspect o.Err and o.FailedPages()
//	    }
//	}
package exporter
