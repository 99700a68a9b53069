package zfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func collect(s listSnapshot) []string {
	var ret []string
	for c := s.cursor(); c.next(); {
		ret = append(ret, c.current())
	}
	return ret
}

func TestListSnapshotPreservesOrder(t *testing.T) {
	tcs := []struct {
		name string
		in   string
		exp  []string
	}{
		{"single", "tank", []string{"tank"}},
		{"trailing newline", "tank\nrpool\n", []string{"tank", "rpool"}},
		{"hierarchy", "tank\ntank/home\ntank/home/user\n", []string{"tank", "tank/home", "tank/home/user"}},
		{"surrounding whitespace", "\n  tank\nrpool  \n\n", []string{"tank", "rpool"}},
		{"interior empty line kept", "tank\n\nrpool", []string{"tank", "", "rpool"}},
		{"spaces inside names", "pool1/ds with spaces\n", []string{"pool1/ds with spaces"}},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			s := newListSnapshot([]byte(tc.in))
			assert.Equal(t, tc.exp, collect(s))
			assert.Equal(t, len(tc.exp), s.len())
			// a second pass over the same snapshot yields the same sequence
			assert.Equal(t, tc.exp, collect(s))
		})
	}
}

// Splitting an empty string would produce one empty segment.
// Empty output means "no entities", so no segment is produced.
func TestListSnapshotEmptyYieldsNothing(t *testing.T) {
	for _, in := range []string{"", "\n", " \t\n "} {
		s := newListSnapshot([]byte(in))
		assert.Nil(t, collect(s), "input %q", in)
		assert.Equal(t, 0, s.len())
	}
}

func TestListSnapshotReplacesInvalidUTF8(t *testing.T) {
	s := newListSnapshot([]byte("tank\nba\xffd\n"))
	assert.Equal(t, []string{"tank", "ba\uFFFDd"}, collect(s))
}

func TestLineCursorAfterEnd(t *testing.T) {
	c := newListSnapshot([]byte("tank")).cursor()
	assert.True(t, c.next())
	assert.Equal(t, "tank", c.current())
	assert.False(t, c.next())
	assert.False(t, c.next())
	assert.Equal(t, "", c.current())
}
