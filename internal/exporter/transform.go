// Package exporter implements the Prometheus Collector interface for dCache.
// It walks the XML status snapshot published by the dCache info service and
// republishes selected component state as labeled gauge families.
package exporter

import (
	"strings"
)

// Exported field names per category, matching the layout of the info
// snapshot. Only names listed here pass the category include filter.
var (
	doorMetrics   = []string{"load"}
	domainMetrics = []string{"event_queue_size", "thread_count"}
	poolMetrics   = []string{
		// pools/pool
		"heartbeat_seconds", "enabled", "read_only",
		// pools/pool/queues/*/queue
		"active", "queued",
		// pools/pool/space
		"total_bytes", "precious_bytes", "removable_bytes", "used_bytes", "free_bytes",
		"gap_bytes", "LRU_seconds", "break_even",
	}
	poolgroupMetrics = []string{
		// poolgroups/poolgroup
		"resilient",
		// poolgroups/poolgroup/space
		"total_bytes", "precious_bytes", "removable_bytes", "used_bytes", "free_bytes",
	}
	linkMetrics = []string{
		// links/link/space
		"total_bytes", "precious_bytes", "removable_bytes", "used_bytes", "free_bytes",
		// links/link/prefs
		"cache", "read", "write", "p2p",
	}
	linkgroupMetrics = []string{
		// linkgroups/linkgroup/space
		"total_bytes", "reserved_bytes", "available_bytes", "used_bytes", "free_bytes",
	}
)

// heartbeatField is the raw snapshot field carrying the pool heartbeat age
// in milliseconds.
const heartbeatField = "last-heartbeat"

// bytesFields holds every byte-valued raw field name, derived from the
// _bytes-suffixed names above with the suffix stripped. The snapshot reports
// these fields without the suffix; the transform restores it.
var bytesFields = buildBytesFields(
	doorMetrics, domainMetrics, poolMetrics,
	poolgroupMetrics, linkMetrics, linkgroupMetrics,
)

func buildBytesFields(groups ...[]string) map[string]struct{} {
	fields := make(map[string]struct{})
	for _, group := range groups {
		for _, name := range group {
			if stripped, ok := strings.CutSuffix(name, "_bytes"); ok {
				fields[stripped] = struct{}{}
			}
		}
	}
	return fields
}

// scaleFunc adjusts a raw snapshot value to its exported unit.
type scaleFunc func(float64) float64

func identity(v float64) float64 { return v }

func millisToSeconds(v float64) float64 { return v / 1000.0 }

// transformMetric maps a raw snapshot field name to its exported name and
// unit scaling. It is a total function: every input yields a valid output.
//
// Rules, checked in order:
//  1. Byte-valued fields get the _bytes suffix, unscaled.
//  2. The heartbeat field becomes heartbeat_seconds, scaled from
//     milliseconds.
//  3. Everything else has word separators normalized to underscores,
//     unscaled.
func transformMetric(raw string) (string, scaleFunc) {
	if _, ok := bytesFields[raw]; ok {
		return raw + "_bytes", identity
	}
	if raw == heartbeatField {
		return "heartbeat_seconds", millisToSeconds
	}
	return strings.ReplaceAll(raw, "-", "_"), identity
}
