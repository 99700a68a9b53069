package zfs

import (
	"context"
	"time"
)

type Pool struct {
	Name string
}

func (p Pool) String() string { return p.Name }

// Pools is the result of one `zpool list` invocation.
type Pools struct {
	list listSnapshot
}

// ListPools runs `zpool list -H -o name`.
func ListPools(ctx context.Context) (*Pools, error) {
	defer func(start time.Time) {
		prom.ListDuration.WithLabelValues("pools").Observe(time.Since(start).Seconds())
	}(time.Now())

	stdout, err := run(ctx, ZPOOL_BINARY, "list", "-H", "-o", "name")
	if err != nil {
		return nil, err
	}
	return &Pools{list: newListSnapshot(stdout)}, nil
}

// Iter returns a new iterator positioned before the first pool.
func (p *Pools) Iter() *PoolIter {
	return &PoolIter{c: p.list.cursor()}
}

func (p *Pools) Len() int { return p.list.len() }

func (p *Pools) Slice() []Pool {
	ret := make([]Pool, 0, p.Len())
	for it := p.Iter(); it.Next(); {
		ret = append(ret, it.Pool())
	}
	return ret
}

type PoolIter struct {
	c lineCursor
}

func (it *PoolIter) Next() bool { return it.c.next() }

// Pool returns the pool at the current position.
// Only valid after Next returned true.
func (it *PoolIter) Pool() Pool { return Pool{Name: it.c.current()} }

// Properties runs `zpool get -H -p all <pool>`.
func (p Pool) Properties(ctx context.Context) (PropertyMap, error) {
	defer func(start time.Time) {
		prom.PropertiesDuration.WithLabelValues("pool").Observe(time.Since(start).Seconds())
	}(time.Now())

	stdout, err := run(ctx, ZPOOL_BINARY, "get", "-H", "-p", "all", p.Name)
	if err != nil {
		return nil, err
	}
	props, malformed := parseProperties(stdout)
	reportMalformed(ctx, "pool", p.Name, malformed)
	return props, nil
}

// Datasets lists the pool's root dataset and all of its descendants.
func (p Pool) Datasets(ctx context.Context) (*Datasets, error) {
	return ListDatasetsUnder(ctx, p.Name)
}

func reportMalformed(ctx context.Context, kind, name string, malformed int) {
	if malformed == 0 {
		return
	}
	prom.MalformedPropertyRows.WithLabelValues(kind).Add(float64(malformed))
	getLogger(ctx).
		WithField(kind, name).
		WithField("rows", malformed).
		Debug("skipped malformed property rows")
}
