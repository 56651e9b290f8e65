package exporter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjacquet/dcache_exporter/internal/models"
	"github.com/fjacquet/dcache_exporter/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFetcher serves canned snapshot documents without any network.
type stubFetcher struct {
	doc     []byte
	err     error
	fetches int32
	closed  bool
}

func (f *stubFetcher) FetchSnapshot(ctx context.Context) ([]byte, error) {
	atomic.AddInt32(&f.fetches, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

func (f *stubFetcher) Close() error {
	f.closed = true
	return nil
}

func newTestCollector(t *testing.T, fetcher SnapshotFetcher) *DcacheCollector {
	t.Helper()
	cfg := &models.Config{}
	cfg.Server.Host = "localhost"
	cfg.Server.Port = "9310"
	cfg.Server.URI = "/metrics"
	cfg.Info.Host = "127.0.0.1"
	cfg.Cluster = testutil.TestCluster
	require.NoError(t, cfg.Validate())

	collector, err := NewDcacheCollector(models.NewSafeConfig(cfg), WithSnapshotFetcher(fetcher))
	require.NoError(t, err)
	return collector
}

// gather registers the collector on a fresh pedantic registry and returns
// the scraped families, keyed by name.
func gather(t *testing.T, collector *DcacheCollector) map[string]*dto.MetricFamily {
	t.Helper()
	registry := prometheus.NewPedanticRegistry()
	require.NoError(t, registry.Register(collector))

	mfs, err := registry.Gather()
	require.NoError(t, err)

	byName := make(map[string]*dto.MetricFamily, len(mfs))
	for _, mf := range mfs {
		byName[mf.GetName()] = mf
	}
	return byName
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestCollectEndToEnd(t *testing.T) {
	doc := testutil.SnapshotDoc(`
		<pools>
			<pool name="pool1@poolDomain">
				<space>
					<metric name="used-bytes" type="integer">1024</metric>
				</space>
			</pool>
		</pools>`)
	collector := newTestCollector(t, &stubFetcher{doc: []byte(doc)})

	families := gather(t, collector)

	mf, ok := families["dcache_pool_used_bytes"]
	require.True(t, ok, "expected dcache_pool_used_bytes, got %v", families)
	assert.Equal(t, dto.MetricType_GAUGE, mf.GetType())

	require.Len(t, mf.GetMetric(), 1)
	m := mf.GetMetric()[0]
	assert.Equal(t, 1024.0, m.GetGauge().GetValue())
	assert.Equal(t, testutil.TestCluster, labelValue(m, "dcache_cluster"))
	assert.Equal(t, "pool1", labelValue(m, "pool"))
}

func TestCollectAllCategories(t *testing.T) {
	doc := testutil.SnapshotDoc(`
		<doors>
			<door name="webdav-door">
				<metric name="load" type="float">0.1</metric>
			</door>
		</doors>
		<domains>
			<domain name="coreDomain">
				<routing><local><cellref name="PoolManager"/></local></routing>
				<cells>
					<cell name="PoolManager">
						<metric name="thread-count" type="integer">12</metric>
					</cell>
				</cells>
			</domain>
		</domains>
		<pools>
			<pool name="pool1">
				<metric name="enabled" type="boolean">true</metric>
			</pool>
		</pools>
		<poolgroups>
			<poolgroup name="default">
				<pools><poolref name="pool1"/></pools>
			</poolgroup>
		</poolgroups>
		<links>
			<link name="default-link">
				<prefs>
					<metric name="read" type="integer">10</metric>
				</prefs>
			</link>
		</links>
		<linkgroups>
			<linkgroup lgid="1">
				<space>
					<metric name="available" type="integer">2048</metric>
				</space>
			</linkgroup>
		</linkgroups>`)
	collector := newTestCollector(t, &stubFetcher{doc: []byte(doc)})

	families := gather(t, collector)

	for _, name := range []string{
		"dcache_door_load",
		"dcache_domain_thread_count",
		"dcache_pool_enabled",
		"dcache_poolgroup_pool_rel",
		"dcache_link_read",
		"dcache_linkgroup_available_bytes",
	} {
		assert.Contains(t, families, name)
	}
}

func TestCollectIdempotentAcrossPasses(t *testing.T) {
	doc := testutil.SnapshotDoc(`
		<pools>
			<pool name="pool1">
				<metric name="enabled" type="boolean">true</metric>
				<space>
					<metric name="used" type="integer">100</metric>
					<metric name="free" type="integer">900</metric>
				</space>
			</pool>
			<pool name="pool2">
				<metric name="enabled" type="boolean">false</metric>
			</pool>
		</pools>`)
	collector := newTestCollector(t, &stubFetcher{doc: []byte(doc)})

	registry := prometheus.NewPedanticRegistry()
	require.NoError(t, registry.Register(collector))

	first, err := registry.Gather()
	require.NoError(t, err)
	second, err := registry.Gather()
	require.NoError(t, err)

	// Same snapshot, same output, including ordering.
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].String(), second[i].String())
	}
}

func TestCollectConnectionRefusedEmitsNothing(t *testing.T) {
	addr := testutil.RefusedAddr(t)
	cfg := testutil.NewTCPConfig(t, addr)
	collector, err := NewDcacheCollector(models.NewSafeConfig(cfg))
	require.NoError(t, err)
	defer func() { _ = collector.Close() }()

	families := gather(t, collector)
	assert.Empty(t, families)
	assert.False(t, collector.IsHealthy())
}

func TestCollectMalformedSnapshotEmitsNothing(t *testing.T) {
	collector := newTestCollector(t, &stubFetcher{doc: []byte("<dCache><unclosed>")})

	families := gather(t, collector)
	assert.Empty(t, families)
}

func TestCollectTransportErrorEmitsNothing(t *testing.T) {
	collector := newTestCollector(t, &stubFetcher{err: errors.New("stream reset")})

	families := gather(t, collector)
	assert.Empty(t, families)
}

func TestCollectSchemaViolationEmitsNothing(t *testing.T) {
	// pool1 would produce valid metrics on its own, but the schema violation
	// introduced by pool2 must discard the whole pass.
	doc := testutil.SnapshotDoc(`
		<pools>
			<pool name="pool1">
				<metric name="active" type="integer">1</metric>
			</pool>
			<pool name="pool2">
				<queues>
					<queue type="regular">
						<metric name="active" type="integer">2</metric>
					</queue>
				</queues>
			</pool>
		</pools>`)
	collector := newTestCollector(t, &stubFetcher{doc: []byte(doc)})

	families := gather(t, collector)
	assert.Empty(t, families)
}

func TestCollectEmptyContainersSkipped(t *testing.T) {
	doc := testutil.SnapshotDoc(`<pools/><doors></doors>`)
	collector := newTestCollector(t, &stubFetcher{doc: []byte(doc)})

	families := gather(t, collector)
	assert.Empty(t, families)
}

func TestCollectOverTCPTransport(t *testing.T) {
	doc := testutil.SnapshotDoc(`
		<doors>
			<door name="dcap-door">
				<metric name="load" type="float">0.5</metric>
			</door>
		</doors>`)
	addr := testutil.StartInfoServer(t, doc)
	cfg := testutil.NewTCPConfig(t, addr)

	collector, err := NewDcacheCollector(models.NewSafeConfig(cfg))
	require.NoError(t, err)
	defer func() { _ = collector.Close() }()

	families := gather(t, collector)
	mf, ok := families["dcache_door_load"]
	require.True(t, ok)
	assert.Equal(t, 0.5, mf.GetMetric()[0].GetGauge().GetValue())
	assert.True(t, collector.IsHealthy())
}

func TestFetchSnapshotUsesCache(t *testing.T) {
	doc := testutil.SnapshotDoc(`<pools><pool name="p"><metric name="enabled" type="boolean">true</metric></pool></pools>`)
	fetcher := &stubFetcher{doc: []byte(doc)}
	collector := newTestCollector(t, fetcher)
	collector.cache = NewSnapshotCache(0) // disabled: every pass fetches

	registry := prometheus.NewPedanticRegistry()
	require.NoError(t, registry.Register(collector))
	_, err := registry.Gather()
	require.NoError(t, err)
	_, err = registry.Gather()
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetcher.fetches))

	collector.cache = NewSnapshotCache(5 * time.Minute) // second pass is served from cache
	_, err = registry.Gather()
	require.NoError(t, err)
	_, err = registry.Gather()
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&fetcher.fetches))
}

func TestReloadConfig(t *testing.T) {
	collector := newTestCollector(t, &stubFetcher{doc: []byte(testutil.SnapshotDoc(""))})

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: localhost
  port: "9310"
  uri: /metrics
info:
  host: other-head.example.org
cluster: reloaded
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	require.NoError(t, collector.ReloadConfig(path))
	cfg := collector.safeCfg.Get()
	assert.Equal(t, "other-head.example.org", cfg.Info.Host)
	assert.Equal(t, "reloaded", cfg.Cluster)
}

func TestReloadConfigInvalidFileRejected(t *testing.T) {
	collector := newTestCollector(t, &stubFetcher{doc: []byte(testutil.SnapshotDoc(""))})
	before := collector.safeCfg.Get()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"not-a-port\"\n"), 0o600))

	require.Error(t, collector.ReloadConfig(path))
	assert.Same(t, before, collector.safeCfg.Get(), "running config must survive a failed reload")
}

func TestCollectorClosePropagatesToFetcher(t *testing.T) {
	fetcher := &stubFetcher{doc: []byte(testutil.SnapshotDoc(""))}
	collector := newTestCollector(t, fetcher)

	require.NoError(t, collector.Close())
	assert.True(t, fetcher.closed)
}
