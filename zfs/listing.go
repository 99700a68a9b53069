package zfs

import (
	"strings"
)

// listSnapshot is the decoded stdout of one `list -H -o name` invocation.
// It is never modified after construction.
type listSnapshot struct {
	text string
}

// Invalid UTF-8 is replaced with U+FFFD and the surrounding whitespace is
// trimmed. An empty snapshot contains no names.
func newListSnapshot(stdout []byte) listSnapshot {
	text := strings.ToValidUTF8(string(stdout), "\uFFFD")
	return listSnapshot{text: strings.TrimSpace(text)}
}

func (s listSnapshot) len() int {
	if s.text == "" {
		return 0
	}
	return strings.Count(s.text, "\n") + 1
}

func (s listSnapshot) cursor() lineCursor {
	return lineCursor{rest: s.text, done: s.text == ""}
}

// lineCursor yields the newline-delimited segments of a snapshot, one per
// call to next. Interior empty lines are yielded as empty segments.
type lineCursor struct {
	rest string
	cur  string
	done bool
}

func (c *lineCursor) next() bool {
	if c.done {
		c.cur = ""
		return false
	}
	i := strings.IndexByte(c.rest, '\n')
	if i < 0 {
		c.cur, c.rest, c.done = c.rest, "", true
		return true
	}
	c.cur, c.rest = c.rest[:i], c.rest[i+1:]
	return true
}

func (c *lineCursor) current() string {
	return c.cur
}
