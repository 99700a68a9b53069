package exporter

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zrepl/calldown/zfs/zfscmd"
)

// Serve exposes gatherer at /metrics on listen until ctx is done.
// /debug/zfscmd lists the zfs and zpool commands currently running.
func Serve(ctx context.Context, listen string, gatherer prometheus.Gatherer) error {
	log := getLogger(ctx)

	if _, _, err := net.SplitHostPort(listen); err != nil {
		return errors.Wrapf(err, "invalid listen address %q", listen)
	}

	l, err := net.Listen("tcp", listen)
	if err != nil {
		return errors.Wrap(err, "cannot listen")
	}
	go func() {
		<-ctx.Done()
		l.Close()
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug/zfscmd", zfscmdReportHandler)

	log.WithField("listen", l.Addr().String()).Info("serving metrics")
	err = http.Serve(l, mux)
	if err != nil && ctx.Err() == nil {
		return errors.Wrap(err, "error while serving")
	}
	return nil
}

func zfscmdReportHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(zfscmd.GetReport()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
