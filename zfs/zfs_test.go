package zfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBinary is a shell script that records its arguments and replays
// canned stdout, stderr and exit code.
type mockBinary struct {
	dir  string
	Path string
}

func newMockBinary(t *testing.T, stdout, stderr string, exitCode int) *mockBinary {
	t.Helper()
	dir := t.TempDir()
	script := fmt.Sprintf(`#!/bin/sh
d=$(dirname "$0")
: > "$d/args"
for a in "$@"; do printf '%%s\n' "$a" >> "$d/args"; done
cat "$d/stdout"
cat "$d/stderr" >&2
exit %d
`, exitCode)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stdout"), []byte(stdout), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stderr"), []byte(stderr), 0644))
	path := filepath.Join(dir, "bin")
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return &mockBinary{dir: dir, Path: path}
}

func (m *mockBinary) Args(t *testing.T) []string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(m.dir, "args"))
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
}

// tests using these must not run in parallel
func useZPool(t *testing.T, m *mockBinary) {
	saved := ZPOOL_BINARY
	ZPOOL_BINARY = m.Path
	t.Cleanup(func() { ZPOOL_BINARY = saved })
}

func useZFS(t *testing.T, m *mockBinary) {
	saved := ZFS_BINARY
	ZFS_BINARY = m.Path
	t.Cleanup(func() { ZFS_BINARY = saved })
}

func TestListPools(t *testing.T) {
	m := newMockBinary(t, "tank\nrpool\n", "", 0)
	useZPool(t, m)

	pools, err := ListPools(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"list", "-H", "-o", "name"}, m.Args(t))

	var names []string
	for it := pools.Iter(); it.Next(); {
		names = append(names, it.Pool().Name)
	}
	assert.Equal(t, []string{"tank", "rpool"}, names)
	assert.Equal(t, 2, pools.Len())
}

func TestPoolsIterationIsRestartable(t *testing.T) {
	m := newMockBinary(t, "tank\nrpool\nbackup\n", "", 0)
	useZPool(t, m)

	pools, err := ListPools(context.Background())
	require.NoError(t, err)

	// exhaust one iterator halfway, then start a second one
	first := pools.Iter()
	require.True(t, first.Next())
	assert.Equal(t, Pool{Name: "tank"}, first.Pool())

	assert.Equal(t, pools.Slice(), pools.Slice())
	assert.Equal(t, []Pool{{"tank"}, {"rpool"}, {"backup"}}, pools.Slice())

	require.True(t, first.Next())
	assert.Equal(t, Pool{Name: "rpool"}, first.Pool())
}

func TestListPoolsEmptyOutput(t *testing.T) {
	m := newMockBinary(t, "", "", 0)
	useZPool(t, m)

	pools, err := ListPools(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, pools.Len())
	assert.False(t, pools.Iter().Next())
	assert.Empty(t, pools.Slice())
}

func TestPoolProperties(t *testing.T) {
	m := newMockBinary(t, "tank\tversion\t5\t-\ntank\tsize\t1000000\t-\n", "", 0)
	useZPool(t, m)

	props, err := Pool{Name: "tank"}.Properties(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"get", "-H", "-p", "all", "tank"}, m.Args(t))
	assert.Equal(t, PropertyMap{"version": "5", "size": "1000000"}, props)
}

func TestPoolDatasets(t *testing.T) {
	m := newMockBinary(t, "tank\ntank/home\n", "", 0)
	useZFS(t, m)

	datasets, err := Pool{Name: "tank"}.Datasets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"list", "-H", "-r", "-o", "name", "tank"}, m.Args(t))
	assert.Equal(t, "tank", datasets.Root())

	var names []string
	for it := datasets.Iter(); it.Next(); {
		names = append(names, it.Dataset().Name)
	}
	assert.Equal(t, []string{"tank", "tank/home"}, names)
	assert.Equal(t, names, func() []string {
		var again []string
		for it := datasets.Iter(); it.Next(); {
			again = append(again, it.Dataset().Name)
		}
		return again
	}())
}

func TestListDatasetsWithoutRootOmitsArgument(t *testing.T) {
	m := newMockBinary(t, "rpool\nrpool/ROOT\ntank\n", "", 0)
	useZFS(t, m)

	datasets, err := ListDatasets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"list", "-H", "-r", "-o", "name"}, m.Args(t))
	assert.Equal(t, 3, datasets.Len())
	assert.Equal(t, "", datasets.Root())
}

func TestListDatasetsUnderPassesRootVerbatim(t *testing.T) {
	m := newMockBinary(t, "tank/with space\n", "", 0)
	useZFS(t, m)

	datasets, err := ListDatasetsUnder(context.Background(), "tank/with space")
	require.NoError(t, err)
	assert.Equal(t, []string{"list", "-H", "-r", "-o", "name", "tank/with space"}, m.Args(t))
	assert.Equal(t, []Dataset{{"tank/with space"}}, datasets.Slice())
}

func TestDatasetProperties(t *testing.T) {
	m := newMockBinary(t, "tank/home\tused\t4096\t-\ntank/home\tcompression\tlz4\tlocal\n", "", 0)
	useZFS(t, m)

	props, err := Dataset{Name: "tank/home"}.Properties(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"get", "-H", "-p", "all", "tank/home"}, m.Args(t))
	assert.Equal(t, PropertyMap{"used": "4096", "compression": "lz4"}, props)
}

func TestDatasetPool(t *testing.T) {
	assert.Equal(t, Pool{"tank"}, Dataset{"tank/home/user"}.Pool())
	assert.Equal(t, Pool{"tank"}, Dataset{"tank"}.Pool())
}

func TestNonZeroExitProducesZFSError(t *testing.T) {
	m := newMockBinary(t, "", "cannot open 'nosuchpool': no such pool\n", 1)
	useZPool(t, m)

	_, err := Pool{Name: "nosuchpool"}.Properties(context.Background())
	require.Error(t, err)
	var zfsErr *ZFSError
	require.True(t, errors.As(err, &zfsErr))
	assert.Equal(t, "cannot open 'nosuchpool': no such pool\n", string(zfsErr.Stderr))
	assert.Contains(t, err.Error(), "no such pool")
	assert.False(t, errors.Is(err, ErrCommandStart))
}

func TestMissingBinaryProducesStartError(t *testing.T) {
	saved := ZPOOL_BINARY
	ZPOOL_BINARY = filepath.Join(t.TempDir(), "zpool-does-not-exist")
	defer func() { ZPOOL_BINARY = saved }()

	_, err := ListPools(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCommandStart))
	var startErr *StartError
	require.True(t, errors.As(err, &startErr))
	assert.Contains(t, startErr.Cmd, "zpool-does-not-exist list -H -o name")
}

func TestCanceledContext(t *testing.T) {
	m := newMockBinary(t, "tank\n", "", 0)
	useZPool(t, m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ListPools(ctx)
	assert.Error(t, err)
}
