package logging

import (
	"io"
	"log/syslog"
	"sync"
	"time"

	"github.com/zrepl/calldown/logger"
)

type EntryFormatter interface {
	SetMetadataFlags(flags MetadataFlags)
	Format(e *logger.Entry) ([]byte, error)
}

// WriterOutlet writes one formatted line per entry.
// The line and its newline go out in a single Write so that lines of
// concurrently running commands never interleave.
type WriterOutlet struct {
	formatter EntryFormatter
	writer    io.Writer
}

func NewWriterOutlet(formatter EntryFormatter, writer io.Writer) WriterOutlet {
	return WriterOutlet{formatter, writer}
}

func (h WriterOutlet) WriteEntry(entry logger.Entry) error {
	line, err := h.formatter.Format(&entry)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(append(line, '\n'))
	return err
}

const DefaultSyslogTag = "calldown"

var syslogSeverity = map[logger.Level]func(*syslog.Writer, string) error{
	logger.Debug: (*syslog.Writer).Debug,
	logger.Info:  (*syslog.Writer).Info,
	logger.Warn:  (*syslog.Writer).Warning,
	logger.Error: (*syslog.Writer).Err,
}

// SyslogOutlet connects lazily and reconnects at most once per RetryInterval.
// Entries dropped while disconnected are not reported to the logger.
type SyslogOutlet struct {
	Formatter     EntryFormatter
	RetryInterval time.Duration
	Tag           string

	mtx         sync.Mutex
	writer      *syslog.Writer
	lastAttempt time.Time
}

func (o *SyslogOutlet) connect() (*syslog.Writer, error) {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	if o.writer != nil {
		return o.writer, nil
	}
	if time.Since(o.lastAttempt) < o.RetryInterval {
		return nil, nil
	}
	o.lastAttempt = time.Now()
	tag := o.Tag
	if tag == "" {
		tag = DefaultSyslogTag
	}
	w, err := syslog.New(syslog.LOG_DAEMON, tag)
	if err != nil {
		return nil, err
	}
	o.writer = w
	return w, nil
}

func (o *SyslogOutlet) WriteEntry(entry logger.Entry) error {
	msg, err := o.Formatter.Format(&entry)
	if err != nil {
		return err
	}
	w, err := o.connect()
	if w == nil {
		return err
	}
	write, ok := syslogSeverity[entry.Level]
	if !ok {
		write = (*syslog.Writer).Err
	}
	return write(w, string(msg))
}
