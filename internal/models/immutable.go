// Package models defines the core data structures for the dCache exporter
// application.
package models

import (
	"time"
)

// ImmutableConfig holds configuration values that are fixed after
// initialization. This type is created after validation completes, ensuring
// all values are finalized and cannot be modified during execution.
//
// Design rationale:
//   - Separates mutable YAML parsing (Config) from immutable runtime use
//   - Guarantees thread-safety: no synchronization needed for reads
//   - Makes dependencies explicit: components declare they need finalized config
//   - Prevents accidental modification bugs
//
// Collection passes read only from ImmutableConfig (or a SafeConfig
// snapshot), keeping per-pass state strictly pass-local.
type ImmutableConfig struct {
	// Info service connection settings
	infoAddress   string
	infoBaseURL   string
	infoTransport string
	infoTimeout   time.Duration
	cacheTTL      time.Duration

	// Server settings
	serverAddress string
	metricsURI    string
	logName       string

	// Cluster label value
	cluster string

	// OpenTelemetry settings
	otelEnabled      bool
	otelEndpoint     string
	otelInsecure     bool
	otelSamplingRate float64
}

// NewImmutableConfig creates an ImmutableConfig from a validated Config.
// This should be called AFTER Config.Validate() has passed and all config
// mutations are complete.
//
// Returns an error if a duration field cannot be parsed.
func NewImmutableConfig(cfg *Config) (ImmutableConfig, error) {
	timeout, err := cfg.GetInfoTimeout()
	if err != nil {
		return ImmutableConfig{}, err
	}
	ttl, err := cfg.GetCacheTTL()
	if err != nil {
		return ImmutableConfig{}, err
	}

	return ImmutableConfig{
		infoAddress:   cfg.GetInfoAddress(),
		infoBaseURL:   cfg.GetInfoBaseURL(),
		infoTransport: cfg.Info.Transport,
		infoTimeout:   timeout,
		cacheTTL:      ttl,

		serverAddress: cfg.GetServerAddress(),
		metricsURI:    cfg.Server.URI,
		logName:       cfg.Server.LogName,

		cluster: cfg.Cluster,

		otelEnabled:      cfg.OpenTelemetry.Enabled,
		otelEndpoint:     cfg.OpenTelemetry.Endpoint,
		otelInsecure:     cfg.OpenTelemetry.Insecure,
		otelSamplingRate: cfg.OpenTelemetry.SamplingRate,
	}, nil
}

// Accessor methods - all return copies/values, not references

// InfoAddress returns the info service host:port for the TCP transport.
func (c ImmutableConfig) InfoAddress() string {
	return c.infoAddress
}

// InfoBaseURL returns the info servlet URL for the HTTP transport.
func (c ImmutableConfig) InfoBaseURL() string {
	return c.infoBaseURL
}

// InfoTransport returns the configured snapshot transport ("tcp" or "http").
func (c ImmutableConfig) InfoTransport() string {
	return c.infoTransport
}

// InfoTimeout returns the bound on one complete snapshot fetch.
func (c ImmutableConfig) InfoTimeout() time.Duration {
	return c.infoTimeout
}

// CacheTTL returns the snapshot cache TTL; zero disables caching.
func (c ImmutableConfig) CacheTTL() time.Duration {
	return c.cacheTTL
}

// ServerAddress returns the HTTP server bind address (host:port).
func (c ImmutableConfig) ServerAddress() string {
	return c.serverAddress
}

// MetricsURI returns the metrics endpoint URI path.
func (c ImmutableConfig) MetricsURI() string {
	return c.metricsURI
}

// LogName returns the log file name.
func (c ImmutableConfig) LogName() string {
	return c.logName
}

// Cluster returns the value of the constant dcache_cluster label.
func (c ImmutableConfig) Cluster() string {
	return c.cluster
}

// OTelEnabled returns whether OpenTelemetry is enabled.
func (c ImmutableConfig) OTelEnabled() bool {
	return c.otelEnabled
}

// OTelEndpoint returns the OTLP endpoint address.
func (c ImmutableConfig) OTelEndpoint() string {
	return c.otelEndpoint
}

// OTelInsecure returns whether OTLP uses an insecure connection.
func (c ImmutableConfig) OTelInsecure() bool {
	return c.otelInsecure
}

// OTelSamplingRate returns the trace sampling rate.
func (c ImmutableConfig) OTelSamplingRate() float64 {
	return c.otelSamplingRate
}
