package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/go-logfmt/logfmt"
	"github.com/pkg/errors"

	"github.com/zrepl/calldown/logger"
)

const (
	FieldLevel   = "level"
	FieldMessage = "msg"
	FieldTime    = "time"
)

const (
	SubsysField string = "subsystem"
	// set by package zfscmd on every command log line
	invocationField string = "invocation"
)

type MetadataFlags int64

const (
	MetadataTime MetadataFlags = 1 << iota
	MetadataLevel
	MetadataColor

	MetadataNone MetadataFlags = 0
	MetadataAll  MetadataFlags = ^0
)

type NoFormatter struct{}

func (f NoFormatter) SetMetadataFlags(flags MetadataFlags) {}

func (f NoFormatter) Format(e *logger.Entry) ([]byte, error) {
	return []byte(e.Message), nil
}

type HumanFormatter struct {
	metadataFlags MetadataFlags
	ignoreFields  map[string]bool
}

const HumanFormatterDateFormat = time.RFC3339

func (f *HumanFormatter) SetMetadataFlags(flags MetadataFlags) {
	f.metadataFlags = flags
}

func (f *HumanFormatter) SetIgnoreFields(ignore []string) {
	if ignore == nil {
		f.ignoreFields = nil
		return
	}
	f.ignoreFields = make(map[string]bool, len(ignore))

	for _, field := range ignore {
		f.ignoreFields[field] = true
	}
}

func (f *HumanFormatter) ignored(field string) bool {
	return f.ignoreFields != nil && f.ignoreFields[field]
}

var levelColors = map[logger.Level]*color.Color{
	logger.Debug: color.New(color.FgHiBlack),
	logger.Info:  color.New(color.FgBlue),
	logger.Warn:  color.New(color.FgYellow),
	logger.Error: color.New(color.FgRed, color.Bold),
}

func (f *HumanFormatter) Format(e *logger.Entry) (out []byte, err error) {

	var line bytes.Buffer

	if f.metadataFlags&MetadataTime != 0 {
		fmt.Fprintf(&line, "%s ", e.Time.Format(HumanFormatterDateFormat))
	}
	if f.metadataFlags&MetadataLevel != 0 {
		lvl := fmt.Sprintf("[%s]", e.Level.Short())
		if c, ok := levelColors[e.Level]; ok && f.metadataFlags&MetadataColor != 0 {
			lvl = c.Sprint(lvl)
		}
		line.WriteString(lvl)
	}

	prefixFields := []string{SubsysField, invocationField}
	prefixed := make(map[string]bool, len(prefixFields)+2)
	for _, field := range prefixFields {
		val, ok := e.Fields[field]
		if !ok {
			continue
		}
		if !f.ignored(field) {
			fmt.Fprintf(&line, "[%v]", val)
			prefixed[field] = true
		}
	}

	if line.Len() > 0 {
		fmt.Fprint(&line, ": ")
	}
	fmt.Fprint(&line, e.Message)

	var rest []string
	for field := range e.Fields {
		if !prefixed[field] && !f.ignored(field) {
			rest = append(rest, field)
		}
	}
	if len(rest) > 0 {
		sort.Strings(rest)
		fmt.Fprint(&line, " ")
		enc := logfmt.NewEncoder(&line)
		for _, field := range rest {
			if err := logfmtTryEncodeKeyval(enc, field, e.Fields[field]); err != nil {
				return nil, err
			}
		}
	}

	return line.Bytes(), nil
}

type JSONFormatter struct {
	metadataFlags MetadataFlags
}

func (f *JSONFormatter) SetMetadataFlags(flags MetadataFlags) {
	f.metadataFlags = flags
}

func (f *JSONFormatter) Format(e *logger.Entry) ([]byte, error) {
	data := make(logger.Fields, len(e.Fields)+3)
	for k, v := range e.Fields {
		switch v := v.(type) {
		case error:
			// Otherwise errors are ignored by `encoding/json`
			// https://github.com/sirupsen/logrus/issues/137
			data[k] = v.Error()
		default:
			_, err := json.Marshal(v)
			if err != nil {
				return nil, errors.Errorf("field is not JSON encodable: %s", k)
			}
			data[k] = v
		}
	}

	data[FieldMessage] = e.Message
	data[FieldTime] = e.Time.Format(time.RFC3339)
	data[FieldLevel] = e.Level

	return json.Marshal(data)

}

type LogfmtFormatter struct {
	metadataFlags MetadataFlags
}

func (f *LogfmtFormatter) SetMetadataFlags(flags MetadataFlags) {
	f.metadataFlags = flags
}

func (f *LogfmtFormatter) Format(e *logger.Entry) ([]byte, error) {
	var buf bytes.Buffer
	enc := logfmt.NewEncoder(&buf)

	if f.metadataFlags&MetadataTime != 0 {
		if err := enc.EncodeKeyval(FieldTime, e.Time); err != nil {
			return nil, errors.Wrap(err, "cannot encode time")
		}
	}
	if f.metadataFlags&MetadataLevel != 0 {
		if err := enc.EncodeKeyval(FieldLevel, e.Level); err != nil {
			return nil, errors.Wrap(err, "cannot encode level")
		}
	}

	// at least try and put subsystem and invocation in front
	prefixed := make(map[string]bool, 2)
	prefix := []string{SubsysField, invocationField}
	for _, pf := range prefix {
		v, ok := e.Fields[pf]
		if !ok {
			continue
		}
		if err := logfmtTryEncodeKeyval(enc, pf, v); err != nil {
			return nil, err // unlikely
		}
		prefixed[pf] = true
	}

	if err := enc.EncodeKeyval(FieldMessage, e.Message); err != nil {
		return nil, errors.Wrap(err, "cannot encode message")
	}

	for k, v := range e.Fields {
		if !prefixed[k] {
			if err := logfmtTryEncodeKeyval(enc, k, v); err != nil {
				return nil, err
			}
		}
	}

	return buf.Bytes(), nil
}

func logfmtTryEncodeKeyval(enc *logfmt.Encoder, field, value interface{}) error {

	err := enc.EncodeKeyval(field, value)
	switch err {
	case nil: // ok
		return nil
	case logfmt.ErrUnsupportedValueType:
		return enc.EncodeKeyval(field, fmt.Sprintf("<%T>", value))
	}
	return errors.Wrapf(err, "cannot encode field '%s'", field)

}
