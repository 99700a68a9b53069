package logger

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

type Level int

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Level) UnmarshalJSON(input []byte) (err error) {
	var s string
	if err = json.Unmarshal(input, &s); err != nil {
		return err
	}
	*l, err = ParseLevel(s)
	return err
}

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) Short() string {
	switch l {
	case Debug:
		return "DEBG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERRO"
	default:
		return fmt.Sprintf("%d", int(l))
	}
}

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("%d", int(l))
	}
}

// ParseLevel accepts both the long and the short form of a level name,
// case-insensitively ("warn", "WARN", "Warn").
func ParseLevel(s string) (l Level, err error) {
	for _, l := range AllLevels {
		if strings.EqualFold(s, l.String()) || strings.EqualFold(s, l.Short()) {
			return l, nil
		}
	}
	return -1, errors.Errorf("unknown level %q, expecting one of %s", s, levelNames())
}

func levelNames() string {
	names := make([]string, len(AllLevels))
	for i, l := range AllLevels {
		names[i] = l.String()
	}
	return strings.Join(names, ", ")
}

// Levels ordered least severe to most severe
var AllLevels []Level = []Level{Debug, Info, Warn, Error}

type Fields map[string]interface{}

type Entry struct {
	Level   Level
	Message string
	Time    time.Time
	Fields  Fields
}

// An Outlet writes entries to a destination such as stderr or syslog.
//
// The logger calls WriteEntry of all outlets of a level concurrently and waits
// for them before the log call returns, so WriteEntry must not block.
// Errors are reported to the first outlet registered for Error.
type Outlet interface {
	WriteEntry(entry Entry) error
}

// Outlets maps each level to the outlets that receive it.
type Outlets struct {
	mtx  sync.RWMutex
	outs map[Level][]Outlet
}

func NewOutlets() *Outlets {
	return &Outlets{outs: make(map[Level][]Outlet, len(AllLevels))}
}

func (o *Outlets) DeepCopy() *Outlets {
	o.mtx.RLock()
	defer o.mtx.RUnlock()
	c := NewOutlets()
	for level, outs := range o.outs {
		c.outs[level] = append([]Outlet(nil), outs...)
	}
	return c
}

// Add registers outlet for minLevel and every more severe level.
func (o *Outlets) Add(outlet Outlet, minLevel Level) {
	if minLevel < Debug || minLevel > Error {
		panic(fmt.Sprintf("invalid minimum level %d", int(minLevel)))
	}
	o.mtx.Lock()
	defer o.mtx.Unlock()
	for _, l := range AllLevels[minLevel:] {
		o.outs[l] = append(o.outs[l], outlet)
	}
}

func (o *Outlets) Get(level Level) []Outlet {
	o.mtx.RLock()
	defer o.mtx.RUnlock()
	return o.outs[level]
}

// GetLoggerErrorOutlet returns the first outlet registered for Error,
// or one that discards everything if there is none.
func (o *Outlets) GetLoggerErrorOutlet() Outlet {
	o.mtx.RLock()
	defer o.mtx.RUnlock()
	if len(o.outs[Error]) < 1 {
		return discardOutlet{}
	}
	return o.outs[Error][0]
}

type discardOutlet struct{}

func (discardOutlet) WriteEntry(Entry) error { return nil }
