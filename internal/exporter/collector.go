// Package exporter implements the Prometheus Collector interface for dCache
// metrics. It fetches the status snapshot from the info service and exposes
// selected component state in Prometheus format.
package exporter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fjacquet/dcache_exporter/internal/models"
	"github.com/fjacquet/dcache_exporter/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const collectionTimeout = 2 * time.Minute // Maximum time allowed for one collection pass

// CollectorOption configures optional DcacheCollector settings.
type CollectorOption func(*collectorOptions)

type collectorOptions struct {
	tracerProvider trace.TracerProvider
	fetcher        SnapshotFetcher
}

func defaultCollectorOptions() collectorOptions {
	return collectorOptions{
		tracerProvider: nil, // Will use noop via TracerWrapper
	}
}

// WithCollectorTracerProvider sets the TracerProvider for the collector.
// If not provided, tracing operations use a noop provider (no overhead).
func WithCollectorTracerProvider(tp trace.TracerProvider) CollectorOption {
	return func(o *collectorOptions) {
		o.tracerProvider = tp
	}
}

// WithSnapshotFetcher substitutes the snapshot source, primarily for tests.
// If not provided, an InfoClient is created from the configuration.
func WithSnapshotFetcher(f SnapshotFetcher) CollectorOption {
	return func(o *collectorOptions) {
		o.fetcher = f
	}
}

// DcacheCollector implements the Prometheus Collector interface for dCache.
// On every scrape it runs one complete collection pass: fetch the snapshot,
// walk each category's members, and emit the accumulated gauge families in
// ascending name order.
//
// Family names and label schemas depend on snapshot content, so the
// collector registers as unchecked (Describe sends no descriptors).
//
// Concurrent scrapes each run their own pass. Passes share only the
// immutable category configuration and the (read-mostly) SafeConfig; the
// family registry and per-category filter data are pass-local.
type DcacheCollector struct {
	safeCfg *models.SafeConfig
	fetcher SnapshotFetcher
	cache   *SnapshotCache
	tracing *TracerWrapper

	scrapeMu       sync.RWMutex
	lastScrapeTime time.Time
}

// NewDcacheCollector creates a new dCache collector with the provided
// configuration source.
//
// Example:
//
//	safeCfg := models.NewSafeConfig(cfg)
//	collector, err := exporter.NewDcacheCollector(safeCfg, exporter.WithCollectorTracerProvider(tp))
//	if err != nil {
//	    log.Fatalf("Failed to create collector: %v", err)
//	}
//	registry.MustRegister(collector)
func NewDcacheCollector(safeCfg *models.SafeConfig, opts ...CollectorOption) (*DcacheCollector, error) {
	options := defaultCollectorOptions()
	for _, opt := range opts {
		opt(&options)
	}

	cfg := safeCfg.Get()
	ttl, err := cfg.GetCacheTTL()
	if err != nil {
		return nil, err
	}

	fetcher := options.fetcher
	if fetcher == nil {
		fetcher = NewInfoClient(safeCfg, WithTracerProvider(options.tracerProvider))
	}

	return &DcacheCollector{
		safeCfg: safeCfg,
		fetcher: fetcher,
		cache:   NewSnapshotCache(ttl),
		tracing: NewTracerWrapper(options.tracerProvider, "dcache-exporter/collector"),
	}, nil
}

// Describe intentionally sends no descriptors: the exported families are
// derived from snapshot content at scrape time, so the collector is
// registered as unchecked. Required by the prometheus.Collector interface.
func (c *DcacheCollector) Describe(ch chan<- *prometheus.Desc) {
}

// Collect runs one complete collection pass and sends the result to the
// provided channel. This method is called by Prometheus on each scrape.
//
// Error policy:
//   - connection refused: the info door is down; emit nothing this
//     interval and let the next scrape retry
//   - malformed document or transport failure: log, emit nothing, keep
//     serving
//   - label-schema mismatch: programming error in the walk; log and abort
//     the pass without emitting partially corrupt families
//
// Required by the prometheus.Collector interface.
func (c *DcacheCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectionTimeout)
	defer cancel()

	scrapeStart := time.Now()
	ctx, span := c.tracing.StartSpan(ctx, "prometheus.scrape", trace.SpanKindServer)
	defer span.End()

	fams, err := c.collectPass(ctx)
	status := "success"
	if err != nil {
		status = "failed"
		log.Errorf("Collection pass failed: %v", err)
		span.AddEvent("pass_error", trace.WithAttributes(
			attribute.String(telemetry.AttrError, err.Error()),
		))
		span.SetStatus(codes.Error, "collection pass failed")
	} else {
		span.SetStatus(codes.Ok, "")
		c.recordScrapeSuccess()
	}

	span.SetAttributes(
		attribute.Float64(telemetry.AttrScrapeDurationMS, float64(time.Since(scrapeStart).Milliseconds())),
		attribute.Int(telemetry.AttrScrapeFamilyCount, fams.Len()),
		attribute.Int(telemetry.AttrScrapeSampleCount, fams.SampleCount()),
		attribute.String(telemetry.AttrScrapeStatus, status),
	)

	fams.emit(ch)

	log.Debugf("Collected %d families with %d samples", fams.Len(), fams.SampleCount())
}

// collectPass performs one fetch+walk sequence and returns the accumulated
// families. A refused connection yields an empty set and no error. Any
// error return comes with an empty set so a failed pass never emits
// partial data.
func (c *DcacheCollector) collectPass(ctx context.Context) (*familySet, error) {
	fams := newFamilySet()

	doc, err := c.fetchSnapshot(ctx)
	if err != nil {
		if IsConnectionRefused(err) {
			log.Debugf("Info service refused connection, emitting no metrics this pass: %v", err)
			return fams, nil
		}
		return fams, err
	}

	cfg := c.safeCfg.Get()
	root, err := models.ParseSnapshot(doc)
	if err != nil {
		return newFamilySet(), fmt.Errorf(telemetry.ErrMalformedSnapshotTemplate, cfg.GetInfoAddress(), err)
	}

	span := trace.SpanFromContext(ctx)
	ns := root.Namespace()
	walked := 0
	for i := range categories {
		cat := &categories[i]
		container := root.Child(ns, cat.Name)
		if container == nil || len(container.Children) == 0 {
			continue
		}
		st := newCategoryState(cat)
		for j := range container.Children {
			if err := collectMember(&container.Children[j], st, fams, cfg.Cluster); err != nil {
				// Schema violation: discard everything, emit nothing.
				return newFamilySet(), err
			}
		}
		walked++
		span.AddEvent("category_walked", trace.WithAttributes(
			attribute.String(telemetry.AttrScrapeCategory, cat.Name),
			attribute.Int(telemetry.AttrScrapeMemberCount, len(container.Children)),
		))
	}
	span.SetAttributes(attribute.Int(telemetry.AttrScrapeCategoryCount, walked))

	return fams, nil
}

// fetchSnapshot returns the snapshot document, served from the TTL cache
// when enabled and fresh.
func (c *DcacheCollector) fetchSnapshot(ctx context.Context) ([]byte, error) {
	span := trace.SpanFromContext(ctx)
	if doc, ok := c.cache.Get(); ok {
		span.SetAttributes(attribute.Bool(telemetry.AttrInfoCacheHit, true))
		return doc, nil
	}
	span.SetAttributes(attribute.Bool(telemetry.AttrInfoCacheHit, false))
	doc, err := c.fetcher.FetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set(doc)
	return doc, nil
}

func (c *DcacheCollector) recordScrapeSuccess() {
	c.scrapeMu.Lock()
	c.lastScrapeTime = time.Now()
	c.scrapeMu.Unlock()
}

// ReloadConfig reloads the configuration from the given path and flushes
// the snapshot cache when the info service address changed. Wired to the
// SIGHUP handler and the config file watcher.
func (c *DcacheCollector) ReloadConfig(configPath string) error {
	infoChanged, err := c.safeCfg.ReloadConfig(configPath)
	if err != nil {
		return err
	}
	if infoChanged {
		c.cache.Flush()
	}
	return nil
}

// Close releases the underlying snapshot fetcher.
func (c *DcacheCollector) Close() error {
	return c.fetcher.Close()
}
