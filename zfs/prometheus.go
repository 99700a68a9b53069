package zfs

import "github.com/prometheus/client_golang/prometheus"

var prom struct {
	ListDuration          *prometheus.HistogramVec
	PropertiesDuration    *prometheus.HistogramVec
	MalformedPropertyRows *prometheus.CounterVec
}

func init() {
	prom.ListDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "calldown",
		Subsystem: "zfs",
		Name:      "list_duration",
		Help:      "Seconds it took to list pools or datasets",
	}, []string{"kind"})
	prom.PropertiesDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "calldown",
		Subsystem: "zfs",
		Name:      "properties_duration",
		Help:      "Seconds it took to get all properties of a pool or dataset",
	}, []string{"kind"})
	prom.MalformedPropertyRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "calldown",
		Subsystem: "zfs",
		Name:      "malformed_property_rows",
		Help:      "Number of property rows skipped because they did not have three or four columns",
	}, []string{"kind"})
}

func PrometheusRegister(registry prometheus.Registerer) error {
	if err := registry.Register(prom.ListDuration); err != nil {
		return err
	}
	if err := registry.Register(prom.PropertiesDuration); err != nil {
		return err
	}
	if err := registry.Register(prom.MalformedPropertyRows); err != nil {
		return err
	}
	return nil
}
