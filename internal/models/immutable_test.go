package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewImmutableConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Server.LogName = "dcache_exporter.log"
	cfg.Info.Timeout = "15s"
	cfg.Info.CacheTTL = "1m"
	cfg.Cluster = "prod"
	cfg.OpenTelemetry.Enabled = true
	cfg.OpenTelemetry.Endpoint = "localhost:4317"
	cfg.OpenTelemetry.Insecure = true
	cfg.OpenTelemetry.SamplingRate = 0.25
	require.NoError(t, cfg.Validate())

	ic, err := NewImmutableConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, "dcache-head.example.org:22112", ic.InfoAddress())
	assert.Equal(t, "http://dcache-head.example.org:22112/info", ic.InfoBaseURL())
	assert.Equal(t, DefaultTransportTCP, ic.InfoTransport())
	assert.Equal(t, 15*time.Second, ic.InfoTimeout())
	assert.Equal(t, time.Minute, ic.CacheTTL())
	assert.Equal(t, "0.0.0.0:9310", ic.ServerAddress())
	assert.Equal(t, "/metrics", ic.MetricsURI())
	assert.Equal(t, "dcache_exporter.log", ic.LogName())
	assert.Equal(t, "prod", ic.Cluster())
	assert.True(t, ic.OTelEnabled())
	assert.Equal(t, "localhost:4317", ic.OTelEndpoint())
	assert.True(t, ic.OTelInsecure())
	assert.Equal(t, 0.25, ic.OTelSamplingRate())
}

func TestNewImmutableConfigInvalidDuration(t *testing.T) {
	cfg := validConfig()
	cfg.SetDefaults()
	cfg.Info.Timeout = "not-a-duration"

	_, err := NewImmutableConfig(cfg)
	require.Error(t, err)
}

func TestImmutableConfigDetachedFromSource(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	ic, err := NewImmutableConfig(cfg)
	require.NoError(t, err)

	// Mutating the source config does not affect the immutable snapshot.
	cfg.Info.Host = "changed.example.org"
	assert.Equal(t, "dcache-head.example.org:22112", ic.InfoAddress())
}
