package logger

import (
	"testing"
)

type testingLoggerOutlet struct {
	t *testing.T
}

func (o testingLoggerOutlet) WriteEntry(entry Entry) error {
	o.t.Logf("%#v", entry)
	return nil
}

func NewTestLogger(t *testing.T) Logger {
	outlets := NewOutlets()
	outlets.Add(&testingLoggerOutlet{t}, Debug)
	return NewLogger(outlets, 0)
}
