// Package exporter publishes pool inventory as prometheus metrics.
// Every scrape lists the pools anew; nothing is cached between scrapes.
package exporter

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/zrepl/calldown/util/envconst"
	"github.com/zrepl/calldown/zfs"
)

// Source is the inventory the collector reads from.
type Source interface {
	Pools(ctx context.Context) ([]zfs.Pool, error)
	Properties(ctx context.Context, pool zfs.Pool) (zfs.PropertyMap, error)
	DatasetCount(ctx context.Context, pool zfs.Pool) (int, error)
}

// CommandSource implements Source using the zpool and zfs binaries.
type CommandSource struct{}

var _ Source = CommandSource{}

func (CommandSource) Pools(ctx context.Context) ([]zfs.Pool, error) {
	pools, err := zfs.ListPools(ctx)
	if err != nil {
		return nil, err
	}
	return pools.Slice(), nil
}

func (CommandSource) Properties(ctx context.Context, pool zfs.Pool) (zfs.PropertyMap, error) {
	return pool.Properties(ctx)
}

func (CommandSource) DatasetCount(ctx context.Context, pool zfs.Pool) (int, error) {
	datasets, err := pool.Datasets(ctx)
	if err != nil {
		return 0, err
	}
	return datasets.Len(), nil
}

var HealthStates = []string{"ONLINE", "DEGRADED", "FAULTED", "OFFLINE", "UNAVAIL", "REMOVED", "SUSPENDED"}

var (
	scrapeTimeout     = envconst.Duration("CALLDOWN_EXPORTER_SCRAPE_TIMEOUT", 30*time.Second)
	scrapeConcurrency = envconst.Int("CALLDOWN_EXPORTER_SCRAPE_CONCURRENCY", 4)
	// recursive listing of large pools can dominate the scrape time
	countDatasets = envconst.Bool("CALLDOWN_EXPORTER_COUNT_DATASETS", true)
)

type PoolCollector struct {
	ctx           context.Context
	source        Source
	timeout       time.Duration
	countDatasets bool

	size, allocated, free, capacity, health, datasets *prometheus.Desc

	scrapeErrors *prometheus.CounterVec
}

var _ prometheus.Collector = &PoolCollector{}

// NewPoolCollector returns a collector that reads from source.
// ctx is the parent of every scrape's context and carries the logger.
// A zero timeout uses CALLDOWN_EXPORTER_SCRAPE_TIMEOUT.
func NewPoolCollector(ctx context.Context, source Source, timeout time.Duration) *PoolCollector {
	if timeout <= 0 {
		timeout = scrapeTimeout
	}
	poolLabel := []string{"pool"}
	desc := func(name, help string, labels []string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("calldown", "pool", name), help, labels, nil)
	}
	return &PoolCollector{
		ctx:           ctx,
		source:        source,
		timeout:       timeout,
		countDatasets: countDatasets,

		size:      desc("size_bytes", "Total size of the pool", poolLabel),
		allocated: desc("allocated_bytes", "Space allocated in the pool", poolLabel),
		free:      desc("free_bytes", "Space not allocated in the pool", poolLabel),
		capacity:  desc("capacity_ratio", "Allocated space as a fraction of the pool size", poolLabel),
		health:    desc("health", "1 if the pool is in the given health state", []string{"pool", "state"}),
		datasets:  desc("datasets", "Number of datasets in the pool including its root dataset", poolLabel),
		scrapeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "calldown",
			Name:      "scrape_errors_total",
			Help:      "Number of failed inventory commands during scrapes",
		}, []string{"stage"}),
	}
}

func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.size
	ch <- c.allocated
	ch <- c.free
	ch <- c.capacity
	ch <- c.health
	ch <- c.datasets
	c.scrapeErrors.Describe(ch)
}

type poolSample struct {
	pool     zfs.Pool
	props    zfs.PropertyMap
	datasets int
	// datasets is only valid if haveDatasets
	haveDatasets bool
}

func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	defer c.scrapeErrors.Collect(ch)

	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()
	log := getLogger(ctx)

	pools, err := c.source.Pools(ctx)
	if err != nil {
		log.WithError(err).Error("cannot list pools")
		c.scrapeErrors.WithLabelValues("pools").Inc()
		return
	}

	samples := make([]poolSample, len(pools))
	var g errgroup.Group
	if scrapeConcurrency > 0 {
		g.SetLimit(scrapeConcurrency)
	}
	for i := range pools {
		i := i
		g.Go(func() error {
			s := poolSample{pool: pools[i]}
			plog := log.WithField("pool", s.pool.Name)

			props, err := c.source.Properties(ctx, s.pool)
			if err != nil {
				plog.WithError(err).Error("cannot get pool properties")
				c.scrapeErrors.WithLabelValues("properties").Inc()
			}
			s.props = props

			if c.countDatasets {
				n, err := c.source.DatasetCount(ctx, s.pool)
				if err != nil {
					plog.WithError(err).Error("cannot list pool datasets")
					c.scrapeErrors.WithLabelValues("datasets").Inc()
				} else {
					s.datasets, s.haveDatasets = n, true
				}
			}

			samples[i] = s
			return nil
		})
	}
	_ = g.Wait() // per-pool errors are counted, not returned

	for _, s := range samples {
		c.emit(ch, s)
	}
}

func (c *PoolCollector) emit(ch chan<- prometheus.Metric, s poolSample) {
	name := s.pool.Name
	gaugeFromProp := func(desc *prometheus.Desc, prop string, scale float64) {
		if s.props == nil {
			return
		}
		v, err := s.props.Uint64(prop)
		if err != nil {
			return
		}
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(v)*scale, name)
	}
	gaugeFromProp(c.size, "size", 1)
	gaugeFromProp(c.allocated, "allocated", 1)
	gaugeFromProp(c.free, "free", 1)
	gaugeFromProp(c.capacity, "capacity", 0.01)

	if health, ok := s.props.Get("health"); ok {
		for _, state := range HealthStates {
			ch <- prometheus.MustNewConstMetric(c.health, prometheus.GaugeValue, boolToFloat(health == state), name, state)
		}
	}

	if s.haveDatasets {
		ch <- prometheus.MustNewConstMetric(c.datasets, prometheus.GaugeValue, float64(s.datasets), name)
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
