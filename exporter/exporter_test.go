package exporter

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zrepl/calldown/logger"
	"github.com/zrepl/calldown/zfs"
)

type fakeSource struct {
	pools    []string
	poolsErr error
	props    map[string]zfs.PropertyMap
	propsErr map[string]error
	datasets map[string]int
	scrapes  int32
}

func (s *fakeSource) Pools(ctx context.Context) ([]zfs.Pool, error) {
	atomic.AddInt32(&s.scrapes, 1)
	if s.poolsErr != nil {
		return nil, s.poolsErr
	}
	var ret []zfs.Pool
	for _, p := range s.pools {
		ret = append(ret, zfs.Pool{Name: p})
	}
	return ret, nil
}

func (s *fakeSource) Properties(ctx context.Context, pool zfs.Pool) (zfs.PropertyMap, error) {
	if err := s.propsErr[pool.Name]; err != nil {
		return nil, err
	}
	return s.props[pool.Name], nil
}

func (s *fakeSource) DatasetCount(ctx context.Context, pool zfs.Pool) (int, error) {
	n, ok := s.datasets[pool.Name]
	if !ok {
		return 0, errors.New("no such pool")
	}
	return n, nil
}

type sample struct {
	labels map[string]string
	value  float64
}

func gather(t *testing.T, c prometheus.Collector) map[string][]sample {
	t.Helper()
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	mfs, err := reg.Gather()
	require.NoError(t, err)
	ret := make(map[string][]sample)
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			s := sample{labels: make(map[string]string)}
			for _, lp := range m.GetLabel() {
				s.labels[lp.GetName()] = lp.GetValue()
			}
			s.value = metricValue(mf.GetType(), m)
			ret[mf.GetName()] = append(ret[mf.GetName()], s)
		}
	}
	return ret
}

func metricValue(typ dto.MetricType, m *dto.Metric) float64 {
	switch typ {
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	default:
		return m.GetUntyped().GetValue()
	}
}

func valueFor(samples []sample, labels map[string]string) (float64, bool) {
outer:
	for _, s := range samples {
		for k, v := range labels {
			if s.labels[k] != v {
				continue outer
			}
		}
		return s.value, true
	}
	return 0, false
}

func testContext(t *testing.T) context.Context {
	return WithLogger(context.Background(), logger.NewTestLogger(t))
}

func TestCollectorExposesPoolMetrics(t *testing.T) {
	src := &fakeSource{
		pools: []string{"tank", "rpool"},
		props: map[string]zfs.PropertyMap{
			"tank":  {"size": "1000", "allocated": "420", "free": "580", "capacity": "42", "health": "ONLINE"},
			"rpool": {"size": "2000", "allocated": "0", "free": "2000", "capacity": "0", "health": "DEGRADED"},
		},
		datasets: map[string]int{"tank": 3, "rpool": 1},
	}
	got := gather(t, NewPoolCollector(testContext(t), src, 0))

	v, ok := valueFor(got["calldown_pool_size_bytes"], map[string]string{"pool": "tank"})
	require.True(t, ok)
	assert.Equal(t, 1000.0, v)

	v, _ = valueFor(got["calldown_pool_allocated_bytes"], map[string]string{"pool": "tank"})
	assert.Equal(t, 420.0, v)
	v, _ = valueFor(got["calldown_pool_free_bytes"], map[string]string{"pool": "rpool"})
	assert.Equal(t, 2000.0, v)
	v, _ = valueFor(got["calldown_pool_capacity_ratio"], map[string]string{"pool": "tank"})
	assert.InDelta(t, 0.42, v, 1e-9)

	v, _ = valueFor(got["calldown_pool_health"], map[string]string{"pool": "tank", "state": "ONLINE"})
	assert.Equal(t, 1.0, v)
	v, _ = valueFor(got["calldown_pool_health"], map[string]string{"pool": "tank", "state": "DEGRADED"})
	assert.Equal(t, 0.0, v)
	v, _ = valueFor(got["calldown_pool_health"], map[string]string{"pool": "rpool", "state": "DEGRADED"})
	assert.Equal(t, 1.0, v)
	assert.Len(t, got["calldown_pool_health"], 2*len(HealthStates))

	v, _ = valueFor(got["calldown_pool_datasets"], map[string]string{"pool": "tank"})
	assert.Equal(t, 3.0, v)

	assert.Empty(t, got["calldown_scrape_errors_total"])
}

func TestCollectorListsPoolsOnEveryScrape(t *testing.T) {
	src := &fakeSource{
		pools:    []string{"tank"},
		props:    map[string]zfs.PropertyMap{"tank": {"size": "1"}},
		datasets: map[string]int{"tank": 1},
	}
	c := NewPoolCollector(testContext(t), src, 0)
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))

	_, err := reg.Gather()
	require.NoError(t, err)
	src.pools = []string{"tank", "backup"}
	src.props["backup"] = zfs.PropertyMap{"size": "2"}
	src.datasets["backup"] = 1
	mfs, err := reg.Gather()
	require.NoError(t, err)

	assert.EqualValues(t, 2, atomic.LoadInt32(&src.scrapes))
	var pools []string
	for _, mf := range mfs {
		if mf.GetName() != "calldown_pool_size_bytes" {
			continue
		}
		for _, m := range mf.GetMetric() {
			pools = append(pools, m.GetLabel()[0].GetValue())
		}
	}
	sort.Strings(pools)
	assert.Equal(t, []string{"backup", "tank"}, pools)
}

func TestCollectorCountsPoolListingError(t *testing.T) {
	src := &fakeSource{poolsErr: errors.New("zpool exploded")}
	got := gather(t, NewPoolCollector(testContext(t), src, 0))

	v, ok := valueFor(got["calldown_scrape_errors_total"], map[string]string{"stage": "pools"})
	require.True(t, ok)
	assert.Equal(t, 1.0, v)
	assert.Empty(t, got["calldown_pool_size_bytes"])
}

func TestCollectorKeepsHealthyPoolsOnPartialFailure(t *testing.T) {
	src := &fakeSource{
		pools: []string{"tank", "broken"},
		props: map[string]zfs.PropertyMap{
			"tank": {"size": "1000", "health": "ONLINE"},
		},
		propsErr: map[string]error{"broken": errors.New("cannot open 'broken'")},
		datasets: map[string]int{"tank": 2},
	}
	got := gather(t, NewPoolCollector(testContext(t), src, 0))

	_, ok := valueFor(got["calldown_pool_size_bytes"], map[string]string{"pool": "tank"})
	assert.True(t, ok)
	_, ok = valueFor(got["calldown_pool_size_bytes"], map[string]string{"pool": "broken"})
	assert.False(t, ok)

	v, _ := valueFor(got["calldown_scrape_errors_total"], map[string]string{"stage": "properties"})
	assert.Equal(t, 1.0, v)
	v, _ = valueFor(got["calldown_scrape_errors_total"], map[string]string{"stage": "datasets"})
	assert.Equal(t, 1.0, v)
}

func TestCollectorSkipsUnparsableValues(t *testing.T) {
	src := &fakeSource{
		pools:    []string{"tank"},
		props:    map[string]zfs.PropertyMap{"tank": {"size": "-", "free": "12"}},
		datasets: map[string]int{"tank": 1},
	}
	got := gather(t, NewPoolCollector(testContext(t), src, 0))
	assert.Empty(t, got["calldown_pool_size_bytes"])
	assert.Len(t, got["calldown_pool_free_bytes"], 1)
	assert.Empty(t, got["calldown_pool_health"])
}

func TestCollectorWithoutDatasetCount(t *testing.T) {
	saved := countDatasets
	countDatasets = false
	t.Cleanup(func() { countDatasets = saved })

	src := &fakeSource{
		pools: []string{"tank"},
		props: map[string]zfs.PropertyMap{"tank": {"size": "1000"}},
		// no dataset counts: calling DatasetCount would be a scrape error
	}
	got := gather(t, NewPoolCollector(testContext(t), src, 0))
	assert.Len(t, got["calldown_pool_size_bytes"], 1)
	assert.Empty(t, got["calldown_pool_datasets"])
	assert.Empty(t, got["calldown_scrape_errors_total"])
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bin")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func TestCommandSource(t *testing.T) {
	zpool := writeScript(t, `case "$1" in
list) printf 'tank\n' ;;
get) printf 'tank\tsize\t1000\t-\ntank\thealth\tONLINE\t-\n' ;;
esac
`)
	zfsBin := writeScript(t, `printf 'tank\ntank/a\ntank/b\n'
`)
	savedZPool, savedZFS := zfs.ZPOOL_BINARY, zfs.ZFS_BINARY
	zfs.ZPOOL_BINARY, zfs.ZFS_BINARY = zpool, zfsBin
	t.Cleanup(func() { zfs.ZPOOL_BINARY, zfs.ZFS_BINARY = savedZPool, savedZFS })

	got := gather(t, NewPoolCollector(testContext(t), CommandSource{}, 0))
	v, ok := valueFor(got["calldown_pool_size_bytes"], map[string]string{"pool": "tank"})
	require.True(t, ok)
	assert.Equal(t, 1000.0, v)
	v, _ = valueFor(got["calldown_pool_datasets"], map[string]string{"pool": "tank"})
	assert.Equal(t, 3.0, v)
}
