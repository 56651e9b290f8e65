// Package exporter provides the snapshot fetch client for the dCache info
// service. It handles the raw TCP stream of the info door as well as the
// HTTP info servlet exposed by the dCache httpd service.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fjacquet/dcache_exporter/internal/models"
	"github.com/fjacquet/dcache_exporter/internal/telemetry"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultHTTPTimeout = 1 * time.Minute // Upper bound for HTTP snapshot requests

	// Retry configuration for the HTTP transport. The TCP info door gets no
	// retries: each scrape is an independent attempt by design.
	retryCount       = 2
	retryWaitTime    = 2 * time.Second
	retryMaxWaitTime = 10 * time.Second

	// closeDrainTimeout bounds how long Close waits for in-flight fetches.
	closeDrainTimeout = 5 * time.Second
)

// ClientOption configures optional InfoClient settings.
type ClientOption func(*clientOptions)

type clientOptions struct {
	tracerProvider trace.TracerProvider
}

func defaultClientOptions() clientOptions {
	return clientOptions{
		tracerProvider: nil, // Will use noop via TracerWrapper
	}
}

// WithTracerProvider sets the TracerProvider for distributed tracing.
// If not provided, tracing operations use a noop provider (no overhead).
func WithTracerProvider(tp trace.TracerProvider) ClientOption {
	return func(o *clientOptions) {
		o.tracerProvider = tp
	}
}

// InfoClient acquires snapshot documents from the dCache info service.
// The transport is selected by configuration: "tcp" dials the info door
// directly and reads until the service closes the stream; "http" fetches
// the same document from the httpd info servlet.
//
// The client reads its target address from SafeConfig on every fetch, so a
// configuration reload takes effect on the next scrape without rebuilding
// the client.
type InfoClient struct {
	safeCfg *models.SafeConfig
	rest    *resty.Client
	tracing *TracerWrapper

	// Connection tracking for graceful shutdown
	mu         sync.Mutex
	activeReqs int32
	closed     bool
}

// NewInfoClient creates a new snapshot client with the provided
// configuration source. TracerProvider can be injected via
// WithTracerProvider for distributed tracing.
func NewInfoClient(safeCfg *models.SafeConfig, opts ...ClientOption) *InfoClient {
	options := defaultClientOptions()
	for _, opt := range opts {
		opt(&options)
	}

	rest := resty.New().
		SetTimeout(defaultHTTPTimeout).
		SetRetryCount(retryCount).
		SetRetryWaitTime(retryWaitTime).
		SetRetryMaxWaitTime(retryMaxWaitTime).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// Retry transient server errors but never a refused connection;
			// refusal means the info door is down and the pass is skipped.
			if err != nil {
				return !IsConnectionRefused(err)
			}
			return r.StatusCode() >= 500
		})

	return &InfoClient{
		safeCfg: safeCfg,
		rest:    rest,
		tracing: NewTracerWrapper(options.tracerProvider, "dcache-exporter/info-client"),
	}
}

// FetchSnapshot retrieves one complete snapshot document over the
// configured transport. The document is complete when the info service
// closes its stream (TCP) or the HTTP response body ends.
func (c *InfoClient) FetchSnapshot(ctx context.Context) ([]byte, error) {
	if err := c.beginRequest(); err != nil {
		return nil, err
	}
	defer c.endRequest()

	cfg := c.safeCfg.Get()

	ctx, span := c.tracing.StartSpan(ctx, "info.fetch", trace.SpanKindClient)
	defer span.End()

	start := time.Now()
	var doc []byte
	var err error
	var endpoint string

	switch cfg.Info.Transport {
	case models.TransportHTTP:
		endpoint = cfg.GetInfoBaseURL()
		doc, err = c.fetchHTTP(ctx, cfg)
	default:
		endpoint = cfg.GetInfoAddress()
		doc, err = c.fetchTCP(ctx, cfg)
	}

	span.SetAttributes(
		attribute.String(telemetry.AttrInfoEndpoint, endpoint),
		attribute.String(telemetry.AttrInfoTransport, cfg.Info.Transport),
		attribute.Int(telemetry.AttrInfoBytes, len(doc)),
		attribute.Float64(telemetry.AttrInfoDurationMS, float64(time.Since(start).Milliseconds())),
	)
	if err != nil {
		span.SetStatus(codes.Error, "snapshot fetch failed")
		span.AddEvent("fetch_error", trace.WithAttributes(
			attribute.String(telemetry.AttrError, err.Error()),
		))
		return nil, err
	}
	span.SetStatus(codes.Ok, "")

	return doc, nil
}

// fetchTCP dials the info door and reads the full stream. The service
// writes the document and closes the connection; the read deadline ensures
// a wedged service fails the fetch instead of hanging the scrape.
func (c *InfoClient) fetchTCP(ctx context.Context, cfg *models.Config) ([]byte, error) {
	timeout, err := cfg.GetInfoTimeout()
	if err != nil {
		return nil, fmt.Errorf("invalid info timeout: %w", err)
	}
	addr := cfg.GetInfoAddress()

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to info service at %s: %w", addr, err)
	}
	defer func() { _ = conn.Close() }()

	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set read deadline: %w", err)
	}

	doc, err := io.ReadAll(conn)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, fmt.Errorf(telemetry.ErrFetchTimeoutTemplate, addr, timeout)
		}
		return nil, fmt.Errorf("failed to read snapshot from %s: %w", addr, err)
	}
	return doc, nil
}

// fetchHTTP retrieves the snapshot from the httpd info servlet.
func (c *InfoClient) fetchHTTP(ctx context.Context, cfg *models.Config) ([]byte, error) {
	url := cfg.GetInfoBaseURL()

	resp, err := c.rest.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("HTTP request to %s failed: %w", url, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("info servlet %s returned status %d", url, resp.StatusCode())
	}
	return resp.Body(), nil
}

// IsConnectionRefused reports whether err stems from a refused connection.
// Refusal is the steady state when the info door is down, so collection
// treats it as "no data this interval" rather than a failure.
func IsConnectionRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}

// beginRequest registers an in-flight fetch, failing if the client is
// closed.
func (c *InfoClient) beginRequest() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("info client is closed")
	}
	atomic.AddInt32(&c.activeReqs, 1)
	return nil
}

func (c *InfoClient) endRequest() {
	atomic.AddInt32(&c.activeReqs, -1)
}

// Close marks the client closed, waits (bounded) for in-flight fetches to
// drain, and releases idle HTTP connections.
//
// Returns an error if the client is already closed.
func (c *InfoClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("info client already closed")
	}
	c.closed = true
	c.mu.Unlock()

	deadline := time.Now().Add(closeDrainTimeout)
	for atomic.LoadInt32(&c.activeReqs) > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	c.rest.GetClient().CloseIdleConnections()
	return nil
}
