// Package exporter provides the snapshot source abstraction for the dCache
// exporter. The interface enables mock implementations in unit tests
// without requiring a live info service.
package exporter

import (
	"context"
)

// SnapshotFetcher defines the interface for acquiring one complete status
// snapshot document from the dCache info service.
//
// The primary implementation is InfoClient, which reads the raw XML stream
// from the info door over TCP or fetches it from the httpd info servlet
// over HTTP.
type SnapshotFetcher interface {
	// FetchSnapshot retrieves one complete snapshot document. The fetch is
	// bounded by the configured timeout and by ctx; the document is complete
	// when the info service closes its stream.
	//
	// A refused connection is reported as an error satisfying
	// IsConnectionRefused, which callers treat as "no data this interval"
	// rather than a failure.
	FetchSnapshot(ctx context.Context) ([]byte, error)

	// Close releases resources associated with the fetcher after draining
	// in-flight fetches. Returns an error if already closed.
	Close() error
}
