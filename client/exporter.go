package client

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/zrepl/calldown/cli"
	"github.com/zrepl/calldown/config"
	"github.com/zrepl/calldown/exporter"
	"github.com/zrepl/calldown/version"
	"github.com/zrepl/calldown/zfs"
	"github.com/zrepl/calldown/zfs/zfscmd"
)

var exporterFlags struct {
	Listen string
}

var ExporterCmd = &cli.Subcommand{
	Use:         "exporter",
	Short:       "serve pool metrics for prometheus",
	LongRunning: true,
	SetupFlags: func(f *pflag.FlagSet) {
		f.StringVar(&exporterFlags.Listen, "listen", "", "listen address, overrides global.monitoring")
	},
	Run: doExporter,
}

func doExporter(ctx context.Context, sc *cli.Subcommand, args []string) error {
	if len(args) > 0 {
		return errors.New("this subcommand takes no positional arguments")
	}

	listen := exporterFlags.Listen
	if listen == "" {
		listen = listenFromConfig(sc.Config())
	}
	if listen == "" {
		return errors.New("no listen address: use --listen or configure a prometheus monitoring endpoint")
	}

	registry, err := newExporterRegistry(ctx, sc.Config().Global.ZFS.CommandTimeout)
	if err != nil {
		return err
	}
	return exporter.Serve(ctx, listen, registry)
}

func listenFromConfig(c *config.Config) string {
	for _, m := range c.Global.Monitoring {
		if p, ok := m.Ret.(*config.PrometheusMonitoring); ok {
			return p.Listen
		}
	}
	return ""
}

func newExporterRegistry(ctx context.Context, scrapeTimeout time.Duration) (*prometheus.Registry, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	zfscmd.RegisterMetrics(registry)
	if err := zfs.PrometheusRegister(registry); err != nil {
		return nil, errors.Wrap(err, "cannot register zfs metrics")
	}
	if err := version.PrometheusRegister(registry); err != nil {
		return nil, errors.Wrap(err, "cannot register version metric")
	}
	if err := registry.Register(exporter.NewPoolCollector(ctx, exporter.CommandSource{}, scrapeTimeout)); err != nil {
		return nil, errors.Wrap(err, "cannot register pool collector")
	}
	return registry, nil
}
