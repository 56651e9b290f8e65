package telemetry

// This file defines error message templates for common failure scenarios.
// Templates provide consistent, actionable error messages with
// troubleshooting steps.
//
// Usage:
//
//	if err := xml.Unmarshal(body, &root); err != nil {
//	    return fmt.Errorf(telemetry.ErrMalformedSnapshotTemplate, addr, err)
//	}

// Error message templates for common scenarios
const (
	// ErrMalformedSnapshotTemplate is returned when the info service delivers
	// a document that does not parse as the expected XML tree.
	ErrMalformedSnapshotTemplate = `info service at %s returned a malformed snapshot document: %v

This usually indicates:
1. The configured port is not the info service port (check 'info.port' in config.yaml)
2. The info service closed the stream mid-document (transient; the next scrape retries)
3. A proxy or firewall is rewriting the stream

Troubleshooting steps:
1. Verify the endpoint by hand: nc <host> <port> | head
2. Check the InfoCollectorDomain is running: dcache status
3. For the HTTP transport, confirm the httpd service exposes /info

The current scrape is skipped; no metrics are emitted for this interval.`

	// ErrFetchTimeoutTemplate is returned when the info service accepts the
	// connection but never finishes delivering the snapshot.
	ErrFetchTimeoutTemplate = `snapshot fetch from %s did not complete within %s

The info service signals end-of-document by closing its stream. A fetch that
hits this timeout usually means:
1. The snapshot is very large (raise 'info.timeout' in config.yaml)
2. The info service is wedged and holding the connection open

The current scrape is skipped; no metrics are emitted for this interval.`
)
