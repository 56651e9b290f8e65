package testutil

import (
	"testing"

	"github.com/fjacquet/dcache_exporter/internal/models"
)

// NewTCPConfig returns a validated Config whose info service points at the
// given TCP address, with sensible defaults everywhere else.
func NewTCPConfig(t *testing.T, addr string) *models.Config {
	t.Helper()
	host, port := SplitHostPort(t, addr)

	cfg := &models.Config{}
	cfg.Server.Host = "localhost"
	cfg.Server.Port = "9310"
	cfg.Server.URI = "/metrics"
	cfg.Info.Host = host
	cfg.Info.Port = port
	cfg.Info.Timeout = "2s"
	cfg.Cluster = TestCluster

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Test config failed validation: %v", err)
	}
	return cfg
}

// NewHTTPConfig returns a validated Config using the HTTP transport against
// the given host:port (typically from an httptest server URL).
func NewHTTPConfig(t *testing.T, addr string) *models.Config {
	t.Helper()
	cfg := NewTCPConfig(t, addr)
	cfg.Info.Transport = models.TransportHTTP
	return cfg
}
