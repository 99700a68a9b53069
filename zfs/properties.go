package zfs

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// PropertyMap maps property names to their values exactly as printed by
// `zpool get -H -p` or `zfs get -H -p`.
type PropertyMap map[string]string

func (m PropertyMap) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Uint64 parses the value of key as a decimal integer.
// Missing keys and the placeholder value "-" are errors.
func (m PropertyMap) Uint64(key string) (uint64, error) {
	v, ok := m[key]
	if !ok {
		return 0, errors.Errorf("property %q not present", key)
	}
	if v == "-" {
		return 0, errors.Errorf("property %q has no value", key)
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "property %q", key)
	}
	return n, nil
}

// parseProperties parses rows of the form
//
//	<subject>\t<property>\t<value>\t<source>
//
// The subject and source columns are ignored, and the source column may be
// absent. Rows with any other number of columns are skipped and counted in
// malformed: a value containing a tab cannot be told apart from its
// neighbours. Later rows overwrite earlier rows with the same property.
func parseProperties(stdout []byte) (props PropertyMap, malformed int) {
	text := strings.ToValidUTF8(string(stdout), "\uFFFD")
	props = make(PropertyMap)
	for _, row := range strings.Split(text, "\n") {
		row = strings.TrimSuffix(row, "\r")
		if row == "" {
			continue
		}
		fields := strings.Split(row, "\t")
		if len(fields) != 3 && len(fields) != 4 {
			malformed++
			continue
		}
		props[fields[1]] = fields[2]
	}
	return props, malformed
}
