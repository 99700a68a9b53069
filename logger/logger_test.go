package logger_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kr/pretty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zrepl/calldown/logger"
)

type TestOutlet struct {
	mtx    sync.Mutex
	Record []logger.Entry
}

func (o *TestOutlet) WriteEntry(entry logger.Entry) error {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	o.Record = append(o.Record, entry)
	return nil
}

func NewTestOutlet() *TestOutlet {
	return &TestOutlet{Record: make([]logger.Entry, 0)}
}

func TestLogger_Basic(t *testing.T) {

	outletArr := []*TestOutlet{
		NewTestOutlet(),
		NewTestOutlet(),
	}

	outlets := logger.NewOutlets()
	for _, o := range outletArr {
		outlets.Add(o, logger.Debug)
	}

	l := logger.NewLogger(outlets, 1*time.Second)

	l.Info("foobar")

	l.WithField("fieldname", "fieldval").Info("log with field")

	l.WithError(fmt.Errorf("fooerror")).Error("error")

	t.Log(pretty.Sprint(outletArr))

	for _, o := range outletArr {
		require.Len(t, o.Record, 3)
		assert.Equal(t, "foobar", o.Record[0].Message)
		assert.Equal(t, "fieldval", o.Record[1].Fields["fieldname"])
		assert.Equal(t, "fooerror", o.Record[2].Fields[logger.FieldError])
		assert.Equal(t, logger.Error, o.Record[2].Level)
	}
}

func TestLogger_MinLevel(t *testing.T) {
	o := NewTestOutlet()
	outlets := logger.NewOutlets()
	outlets.Add(o, logger.Warn)
	l := logger.NewLogger(outlets, 0)

	l.Debug("dropped")
	l.Info("dropped")
	l.Warn("kept")
	l.Error("kept")

	require.Len(t, o.Record, 2)
	assert.Equal(t, logger.Warn, o.Record[0].Level)
	assert.Equal(t, logger.Error, o.Record[1].Level)
}

func TestLogger_WithOutletDoesNotAffectParent(t *testing.T) {
	parentOut, childOut := NewTestOutlet(), NewTestOutlet()
	outlets := logger.NewOutlets()
	outlets.Add(parentOut, logger.Debug)
	parent := logger.NewLogger(outlets, 0)
	child := parent.WithOutlet(childOut, logger.Debug)

	parent.Info("parent")
	child.Info("child")

	assert.Len(t, parentOut.Record, 2)
	require.Len(t, childOut.Record, 1)
	assert.Equal(t, "child", childOut.Record[0].Message)
}

func TestParseLevel(t *testing.T) {
	for _, l := range logger.AllLevels {
		parsed, err := logger.ParseLevel(l.String())
		require.NoError(t, err)
		assert.Equal(t, l, parsed)
	}
	_, err := logger.ParseLevel("verbose")
	assert.Error(t, err)
}

func TestParseLevelShortAndCaseInsensitive(t *testing.T) {
	for in, exp := range map[string]logger.Level{
		"DEBG":  logger.Debug,
		"Info":  logger.Info,
		"WARN":  logger.Warn,
		"erro":  logger.Error,
		"ERROR": logger.Error,
	} {
		parsed, err := logger.ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, exp, parsed, in)
	}
	_, err := logger.ParseLevel("verbose")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "debug, info, warn, error")
}

func TestOutletsAddRejectsInvalidLevel(t *testing.T) {
	assert.Panics(t, func() { logger.NewOutlets().Add(NewTestOutlet(), logger.Level(7)) })
}

func TestOutletsDeepCopyIsIndependent(t *testing.T) {
	orig := logger.NewOutlets()
	orig.Add(NewTestOutlet(), logger.Info)
	c := orig.DeepCopy()
	c.Add(NewTestOutlet(), logger.Error)
	assert.Len(t, orig.Get(logger.Error), 1)
	assert.Len(t, c.Get(logger.Error), 2)
}

func TestDiscard(t *testing.T) {
	l := logger.Discard.WithField("pool", "tank").WithError(fmt.Errorf("boom"))
	assert.Equal(t, logger.Discard, l)
	l.Error("dropped")
}
