package version

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	calldownVersion string // set by build infrastructure
)

type VersionInformation struct {
	Version         string
	RuntimeGo       string
	RuntimeGOOS     string
	RuntimeGOARCH   string
	RUNTIMECompiler string
}

func NewVersionInformation() *VersionInformation {
	return &VersionInformation{
		Version:         resolveVersion(),
		RuntimeGo:       runtime.Version(),
		RuntimeGOOS:     runtime.GOOS,
		RuntimeGOARCH:   runtime.GOARCH,
		RUNTIMECompiler: runtime.Compiler,
	}
}

// resolveVersion prefers the linker-provided version and falls back to
// the module version recorded by `go install`.
func resolveVersion() string {
	if calldownVersion != "" {
		return calldownVersion
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		return bi.Main.Version
	}
	return "(devel)"
}

func (i *VersionInformation) String() string {
	return fmt.Sprintf("calldown version=%s go=%s GOOS=%s GOARCH=%s Compiler=%s",
		i.Version, i.RuntimeGo, i.RuntimeGOOS, i.RuntimeGOARCH, i.RUNTIMECompiler)
}

var prometheusMetric = prometheus.NewUntypedFunc(
	prometheus.UntypedOpts{
		Namespace: "calldown",
		Subsystem: "version",
		Name:      "exporter",
		Help:      "calldown exporter version",
		ConstLabels: map[string]string{
			"raw":          calldownVersion,
			"version_info": NewVersionInformation().String(),
		},
	},
	func() float64 { return 1 },
)

func PrometheusRegister(r prometheus.Registerer) error {
	return r.Register(prometheusMetric)
}
