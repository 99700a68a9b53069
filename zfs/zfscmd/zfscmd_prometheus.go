package zfscmd

import (
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var metrics struct {
	totaltime   *prometheus.HistogramVec
	systemtime  *prometheus.HistogramVec
	usertime    *prometheus.HistogramVec
	startErrors *prometheus.CounterVec
}

var timeLabels = []string{"zfsbinary", "zfsverb"}
var timeBuckets = []float64{0.01, 0.1, 0.2, 0.5, 0.75, 1, 2, 5, 10, 60}

func init() {
	metrics.totaltime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "calldown",
		Subsystem: "zfscmd",
		Name:      "runtime",
		Help:      "number of seconds that the command took from start until wait returned",
		Buckets:   timeBuckets,
	}, timeLabels)
	metrics.systemtime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "calldown",
		Subsystem: "zfscmd",
		Name:      "systemtime",
		Help:      "https://golang.org/pkg/os/#ProcessState.SystemTime",
		Buckets:   timeBuckets,
	}, timeLabels)
	metrics.usertime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "calldown",
		Subsystem: "zfscmd",
		Name:      "usertime",
		Help:      "https://golang.org/pkg/os/#ProcessState.UserTime",
		Buckets:   timeBuckets,
	}, timeLabels)
	metrics.startErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "calldown",
		Subsystem: "zfscmd",
		Name:      "start_errors",
		Help:      "number of commands that could not be started",
	}, []string{"zfsbinary"})
}

func RegisterMetrics(r prometheus.Registerer) {
	r.MustRegister(metrics.totaltime)
	r.MustRegister(metrics.systemtime)
	r.MustRegister(metrics.usertime)
	r.MustRegister(metrics.startErrors)
}

func binaryLabel(c *Cmd) string {
	return filepath.Base(c.cmd.Args[0])
}

func startPostPrometheus(c *Cmd, err error, now time.Time) {
	if err == nil {
		return
	}
	metrics.startErrors.WithLabelValues(binaryLabel(c)).Inc()
}

func waitPostPrometheus(c *Cmd, u usage, err error, now time.Time) {

	if len(c.cmd.Args) < 2 {
		getLogger(c.ctx).WithField("args", c.cmd.Args).
			Warn("prometheus: cannot turn zfs command into metric")
		return
	}

	// Note: do not start parsing other aspects
	// of the ZFS command line. This is not the suitable layer
	// for such a task.

	labelValues := []string{binaryLabel(c), c.cmd.Args[1]}

	metrics.totaltime.
		WithLabelValues(labelValues...).
		Observe(u.total_secs)
	if u.system_secs >= 0 {
		metrics.systemtime.WithLabelValues(labelValues...).
			Observe(u.system_secs)
	}
	if u.user_secs >= 0 {
		metrics.usertime.WithLabelValues(labelValues...).
			Observe(u.user_secs)
	}

}
