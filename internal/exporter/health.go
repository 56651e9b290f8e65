// Package exporter provides health check functionality for the dCache
// exporter.
package exporter

import (
	"context"
	"fmt"
	"time"
)

// healthCheckTimeout is the default timeout for connectivity tests.
const healthCheckTimeout = 5 * time.Second

// TestConnectivity verifies the info service is reachable by fetching one
// snapshot with a short timeout. Returns nil if the fetch succeeds.
//
// A refused connection counts as a failed connectivity test even though
// collection tolerates it: the caller of this method wants to know whether
// the info door is up right now.
func (c *DcacheCollector) TestConnectivity(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, healthCheckTimeout)
		defer cancel()
	}

	if _, err := c.fetcher.FetchSnapshot(ctx); err != nil {
		return fmt.Errorf("info service connectivity test failed: %w", err)
	}
	return nil
}

// IsHealthy returns true if at least one collection pass has completed
// successfully. This is a quick check that makes no network call.
func (c *DcacheCollector) IsHealthy() bool {
	c.scrapeMu.RLock()
	defer c.scrapeMu.RUnlock()
	return !c.lastScrapeTime.IsZero()
}
