// Package models defines the core data structures for the dCache exporter
// application. It includes configuration models and the generic snapshot
// tree produced by the dCache info service.
package models

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Default settings applied by SetDefaults when the configuration omits them.
const (
	DefaultInfoPort     = "22112"
	DefaultInfoTimeout  = "10s"
	DefaultInfoURI      = "/info"
	DefaultTransportTCP = "tcp"
	TransportHTTP       = "http"
)

// Config represents the complete application configuration for the dCache
// exporter. It includes settings for the metrics HTTP server, the dCache
// info service, and optional OpenTelemetry tracing.
type Config struct {
	Server struct {
		Port    string `yaml:"port"`
		Host    string `yaml:"host"`
		URI     string `yaml:"uri"`
		LogName string `yaml:"logName"`
	} `yaml:"server"`

	Info struct {
		Host      string `yaml:"host"`
		Port      string `yaml:"port"`
		Transport string `yaml:"transport"`
		URI       string `yaml:"uri"`
		Timeout   string `yaml:"timeout"`
		CacheTTL  string `yaml:"cacheTTL"`
	} `yaml:"info"`

	// Cluster is emitted as the constant dcache_cluster label on every metric.
	Cluster string `yaml:"cluster"`

	OpenTelemetry struct {
		Enabled      bool    `yaml:"enabled"`
		Endpoint     string  `yaml:"endpoint"`
		Insecure     bool    `yaml:"insecure"`
		SamplingRate float64 `yaml:"samplingRate"`
	} `yaml:"opentelemetry"`
}

// SetDefaults sets default values for optional configuration fields.
// This method is called automatically by Validate() before validation checks.
func (c *Config) SetDefaults() {
	if c.Info.Port == "" {
		c.Info.Port = DefaultInfoPort
	}
	if c.Info.Transport == "" {
		c.Info.Transport = DefaultTransportTCP
	}
	if c.Info.Timeout == "" {
		c.Info.Timeout = DefaultInfoTimeout
	}
	if c.Info.URI == "" {
		c.Info.URI = DefaultInfoURI
	}
	if c.Info.CacheTTL == "" {
		c.Info.CacheTTL = "0s"
	}
	if c.Cluster == "" {
		c.Cluster = "dcache_cluster"
	}
}

// Validate checks if the configuration is valid and returns an error if not.
// It performs validation of all configuration fields including:
//   - Server settings (host, port, URI)
//   - Info service settings (host, port, transport, timeout, cache TTL)
//   - Port ranges (1-65535)
//
// This method calls SetDefaults() before validation so optional fields have
// appropriate default values.
//
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	c.SetDefaults()

	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port: %s", c.Server.Port)
	}
	if c.Server.Host == "" {
		return errors.New("server host is required")
	}
	if c.Server.URI == "" {
		return errors.New("server URI is required")
	}

	if c.Info.Host == "" {
		return errors.New("info service host is required")
	}
	if port, err := strconv.Atoi(c.Info.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid info service port: %s", c.Info.Port)
	}
	if c.Info.Transport != DefaultTransportTCP && c.Info.Transport != TransportHTTP {
		return fmt.Errorf("invalid info transport: %s (must be tcp or http)", c.Info.Transport)
	}
	if _, err := time.ParseDuration(c.Info.Timeout); err != nil {
		return fmt.Errorf("invalid info timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Info.CacheTTL); err != nil {
		return fmt.Errorf("invalid cache TTL: %w", err)
	}

	if c.OpenTelemetry.Enabled {
		if c.OpenTelemetry.Endpoint == "" {
			return errors.New("OpenTelemetry endpoint is required when tracing is enabled")
		}
		if c.OpenTelemetry.SamplingRate < 0 || c.OpenTelemetry.SamplingRate > 1 {
			return fmt.Errorf("invalid OpenTelemetry sampling rate: %f (must be 0.0-1.0)", c.OpenTelemetry.SamplingRate)
		}
	}

	return nil
}

// GetServerAddress returns the complete server address for HTTP server binding.
// Format: host:port
//
// Example: "0.0.0.0:9310"
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// GetInfoAddress returns the dCache info service address for dialing.
// Format: host:port
//
// Example: "dcache-head.example.org:22112"
func (c *Config) GetInfoAddress() string {
	return fmt.Sprintf("%s:%s", c.Info.Host, c.Info.Port)
}

// GetInfoBaseURL returns the base URL used when the HTTP transport is
// selected. The info servlet of the dCache httpd service serves the same
// snapshot document over plain HTTP.
//
// Example: "http://dcache-head.example.org:2288/info"
func (c *Config) GetInfoBaseURL() string {
	return fmt.Sprintf("http://%s:%s%s", c.Info.Host, c.Info.Port, c.Info.URI)
}

// GetInfoTimeout parses and returns the info fetch timeout as a time.Duration.
// The timeout bounds one complete snapshot fetch; the info service signals
// end-of-document by closing its stream, so a hung connection must not hang
// the scrape.
func (c *Config) GetInfoTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Info.Timeout)
}

// GetCacheTTL parses and returns the snapshot cache TTL as a time.Duration.
// A TTL of zero disables caching and every scrape fetches a fresh snapshot.
func (c *Config) GetCacheTTL() (time.Duration, error) {
	return time.ParseDuration(c.Info.CacheTTL)
}

// IsOTelEnabled returns whether OpenTelemetry tracing is enabled in the
// configuration.
func (c *Config) IsOTelEnabled() bool {
	return c.OpenTelemetry.Enabled
}
