package zfs

import (
	"context"
	"strings"
	"time"
)

type Dataset struct {
	Name string
}

func (d Dataset) String() string { return d.Name }

// Pool returns the pool that contains the dataset.
func (d Dataset) Pool() Pool {
	if i := strings.IndexByte(d.Name, '/'); i >= 0 {
		return Pool{Name: d.Name[:i]}
	}
	return Pool{Name: d.Name}
}

// Properties runs `zfs get -H -p all <dataset>`.
func (d Dataset) Properties(ctx context.Context) (PropertyMap, error) {
	defer func(start time.Time) {
		prom.PropertiesDuration.WithLabelValues("dataset").Observe(time.Since(start).Seconds())
	}(time.Now())

	stdout, err := run(ctx, ZFS_BINARY, "get", "-H", "-p", "all", d.Name)
	if err != nil {
		return nil, err
	}
	props, malformed := parseProperties(stdout)
	reportMalformed(ctx, "dataset", d.Name, malformed)
	return props, nil
}

// Datasets is the result of one `zfs list -r` invocation.
type Datasets struct {
	root string
	list listSnapshot
}

// ListDatasets lists every dataset on the system.
func ListDatasets(ctx context.Context) (*Datasets, error) {
	return ListDatasetsUnder(ctx, "")
}

// ListDatasetsUnder runs `zfs list -H -r -o name <root>`.
// root is passed through verbatim; an empty root lists all datasets.
func ListDatasetsUnder(ctx context.Context, root string) (*Datasets, error) {
	defer func(start time.Time) {
		prom.ListDuration.WithLabelValues("datasets").Observe(time.Since(start).Seconds())
	}(time.Now())

	args := []string{"list", "-H", "-r", "-o", "name"}
	if root != "" {
		args = append(args, root)
	}
	stdout, err := run(ctx, ZFS_BINARY, args...)
	if err != nil {
		return nil, err
	}
	return &Datasets{root: root, list: newListSnapshot(stdout)}, nil
}

// Root returns the root the listing was scoped to ("" for all datasets).
func (d *Datasets) Root() string { return d.root }

func (d *Datasets) Iter() *DatasetIter {
	return &DatasetIter{c: d.list.cursor()}
}

func (d *Datasets) Len() int { return d.list.len() }

func (d *Datasets) Slice() []Dataset {
	ret := make([]Dataset, 0, d.Len())
	for it := d.Iter(); it.Next(); {
		ret = append(ret, it.Dataset())
	}
	return ret
}

type DatasetIter struct {
	c lineCursor
}

func (it *DatasetIter) Next() bool { return it.c.next() }

func (it *DatasetIter) Dataset() Dataset { return Dataset{Name: it.c.current()} }
