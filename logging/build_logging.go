package logging

import (
	"context"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"

	"github.com/zrepl/calldown/config"
	"github.com/zrepl/calldown/exporter"
	"github.com/zrepl/calldown/logger"
	"github.com/zrepl/calldown/zfs"
	"github.com/zrepl/calldown/zfs/zfscmd"
)

func OutletsFromConfig(in config.LoggingOutletEnumList) (*logger.Outlets, error) {

	outlets := logger.NewOutlets()

	if len(in) == 0 {
		// Default config
		out := WriterOutlet{&HumanFormatter{}, os.Stderr}
		outlets.Add(out, logger.Warn)
		return outlets, nil
	}

	var syslogOutlets, stdoutOutlets int
	for lei, le := range in {

		outlet, minLevel, err := parseOutlet(le)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot parse outlet #%d", lei)
		}
		switch outlet.(type) {
		case *SyslogOutlet:
			syslogOutlets++
		case WriterOutlet:
			stdoutOutlets++
		}

		outlets.Add(outlet, minLevel)

	}

	if syslogOutlets > 1 {
		return nil, errors.Errorf("can only define one 'syslog' outlet")
	}
	if stdoutOutlets > 1 {
		return nil, errors.Errorf("can only define one 'stdout' outlet")
	}

	return outlets, nil

}

const DefaultOutletTimeout = 1 * time.Second

// NewLoggerFromConfig builds the root logger.
// A nil list yields the default outlet (human-readable, warn and above, stderr).
func NewLoggerFromConfig(in *config.LoggingOutletEnumList) (logger.Logger, error) {
	var list config.LoggingOutletEnumList
	if in != nil {
		list = *in
	}
	outlets, err := OutletsFromConfig(list)
	if err != nil {
		return nil, err
	}
	return logger.NewLogger(outlets, DefaultOutletTimeout), nil
}

type Subsystem string

const (
	SubsysCLI       Subsystem = "cli"
	SubsysInventory Subsystem = "inventory"
	SubsysZFSCmd    Subsystem = "zfs.cmd"
	SubsysExporter  Subsystem = "exporter"
)

func WithSubsystemLoggers(ctx context.Context, log logger.Logger) context.Context {
	ctx = zfs.WithLogger(ctx, log.WithField(SubsysField, SubsysInventory))
	ctx = zfscmd.WithLogger(ctx, log.WithField(SubsysField, SubsysZFSCmd))
	ctx = exporter.WithLogger(ctx, log.WithField(SubsysField, SubsysExporter))
	return ctx
}

func LogSubsystem(log logger.Logger, subsys Subsystem) logger.Logger {
	return log.ReplaceField(SubsysField, subsys)
}

func parseLogFormat(i interface{}) (f EntryFormatter, err error) {
	var is string
	switch j := i.(type) {
	case string:
		is = j
	default:
		return nil, errors.Errorf("invalid log format: wrong type: %T", i)
	}

	switch is {
	case "human":
		return &HumanFormatter{}, nil
	case "logfmt":
		return &LogfmtFormatter{}, nil
	case "json":
		return &JSONFormatter{}, nil
	default:
		return nil, errors.Errorf("invalid log format: '%s'", is)
	}

}

func parseOutlet(in config.LoggingOutletEnum) (o logger.Outlet, level logger.Level, err error) {

	parseCommon := func(common config.LoggingOutletCommon) (logger.Level, EntryFormatter, error) {
		if common.Level == "" || common.Format == "" {
			return 0, nil, errors.Errorf("must specify 'level' and 'format' field")
		}

		minLevel, err := logger.ParseLevel(common.Level)
		if err != nil {
			return 0, nil, errors.Wrap(err, "cannot parse 'level' field")
		}
		formatter, err := parseLogFormat(common.Format)
		if err != nil {
			return 0, nil, errors.Wrap(err, "cannot parse 'formatter' field")
		}
		return minLevel, formatter, nil
	}

	var f EntryFormatter

	switch v := in.Ret.(type) {
	case *config.StdoutLoggingOutlet:
		level, f, err = parseCommon(v.LoggingOutletCommon)
		if err != nil {
			break
		}
		o, err = parseStdoutOutlet(v, f)
	case *config.SyslogLoggingOutlet:
		level, f, err = parseCommon(v.LoggingOutletCommon)
		if err != nil {
			break
		}
		o, err = parseSyslogOutlet(v, f)
	default:
		err = errors.Errorf("unknown outlet type %T", v)
	}
	return o, level, err
}

// The "stdout" outlet writes to stderr so that it does not interleave
// with listing output of the CLI.
func parseStdoutOutlet(in *config.StdoutLoggingOutlet, formatter EntryFormatter) (WriterOutlet, error) {
	flags := MetadataAll
	writer := os.Stderr
	if !isatty.IsTerminal(writer.Fd()) && !in.Time {
		flags &= ^MetadataTime
	}
	if !isatty.IsTerminal(writer.Fd()) || !in.Color {
		flags &= ^MetadataColor
	}

	formatter.SetMetadataFlags(flags)
	return WriterOutlet{
		formatter,
		writer,
	}, nil
}

func parseSyslogOutlet(in *config.SyslogLoggingOutlet, formatter EntryFormatter) (out *SyslogOutlet, err error) {
	out = &SyslogOutlet{}
	out.Formatter = formatter
	out.Formatter.SetMetadataFlags(MetadataNone)
	out.RetryInterval = in.RetryInterval
	out.Tag = in.Tag
	return out, nil
}
