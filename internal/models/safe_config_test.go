package models

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSafeConfigGet(t *testing.T) {
	cfg := validConfig()
	safeCfg := NewSafeConfig(cfg)
	assert.Same(t, cfg, safeCfg.Get())
}

func TestSafeConfigReload(t *testing.T) {
	safeCfg := NewSafeConfig(validConfig())

	path := writeConfigFile(t, `
server:
  host: localhost
  port: "9310"
  uri: /metrics
info:
  host: new-head.example.org
cluster: staging
`)

	infoChanged, err := safeCfg.ReloadConfig(path)
	require.NoError(t, err)
	assert.True(t, infoChanged, "info host changed")
	assert.Equal(t, "new-head.example.org", safeCfg.Get().Info.Host)
	assert.Equal(t, "staging", safeCfg.Get().Cluster)
}

func TestSafeConfigReloadSameInfoAddress(t *testing.T) {
	safeCfg := NewSafeConfig(validConfig())

	path := writeConfigFile(t, `
server:
  host: localhost
  port: "9310"
  uri: /metrics
info:
  host: dcache-head.example.org
cluster: renamed-only
`)

	infoChanged, err := safeCfg.ReloadConfig(path)
	require.NoError(t, err)
	assert.False(t, infoChanged)
	assert.Equal(t, "renamed-only", safeCfg.Get().Cluster)
}

func TestSafeConfigReloadMissingFile(t *testing.T) {
	safeCfg := NewSafeConfig(validConfig())

	_, err := safeCfg.ReloadConfig("/nonexistent/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSafeConfigReloadInvalidYAML(t *testing.T) {
	original := validConfig()
	safeCfg := NewSafeConfig(original)

	path := writeConfigFile(t, "{{not yaml")
	_, err := safeCfg.ReloadConfig(path)
	require.Error(t, err)
	assert.Same(t, original, safeCfg.Get(), "running config must be untouched")
}

func TestSafeConfigReloadInvalidConfigRejected(t *testing.T) {
	original := validConfig()
	safeCfg := NewSafeConfig(original)

	path := writeConfigFile(t, `
server:
  host: localhost
  port: "9310"
  uri: /metrics
info:
  host: new-head.example.org
  transport: carrier-pigeon
`)

	_, err := safeCfg.ReloadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Same(t, original, safeCfg.Get())
}

func TestSafeConfigConcurrentAccess(t *testing.T) {
	safeCfg := NewSafeConfig(validConfig())
	path := writeConfigFile(t, `
server:
  host: localhost
  port: "9310"
  uri: /metrics
info:
  host: dcache-head.example.org
`)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = safeCfg.Get().GetInfoAddress()
		}()
		go func() {
			defer wg.Done()
			_, _ = safeCfg.ReloadConfig(path)
		}()
	}
	wg.Wait()

	assert.NotNil(t, safeCfg.Get())
}
