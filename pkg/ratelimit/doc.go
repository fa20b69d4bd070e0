// Package ratelimit bounds how many page downloads run at once.
//
// A single Semaphore is shared by every document in a run, so the cap is
// global rather than per document. Acquisition is scoped: Do and Go both
// release the slot on every exit path.
//
// Usage:
//
//	limiter := ratelimit.NewSemaphore(ratelimit.DefaultCapacity)
//
//	var wg sync.WaitGroup
//	for _, page := range pages {
//	    if err := ratelimit.Go(ctx, limiter, &wg, func() { download(page) }); err != nil {
//	        // ctx was cancelled before a slot was free
//	    }
//	}
//	wg.Wait()
package ratelimit
