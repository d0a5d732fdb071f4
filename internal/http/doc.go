// Package http provides the HTTP transport used to fetch spectra from the
// archive.
//
// The Client in this package handles:
//   - User-Agent and Connection headers expected by the archive mirrors
//   - A fixed per-request timeout
//   - An optional request rate limit
//   - An optional per-host circuit breaker
//
// # Basic Usage
//
//	client := http.NewClient(http.WithTimeout(10 * time.Second))
//
//	body, err := client.Open(ctx, url)
//	if err != nil {
//	    var statusErr *http.StatusError
//	    if errors.As(err, &statusErr) && statusErr.Code == 404 {
//	        // not at this layout
//	    }
//	    return err
//	}
//	defer body.Close()
//
// # Progress Tracking
//
// The ProgressWriter type can be used to wrap any io.Writer for progress tracking:
//
//	pw := &http.ProgressWriter{
//	    Writer:   file,
//	    OnUpdate: func(written, total int64) { /* update counters */ },
//	}
package http
