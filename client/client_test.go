package client

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zrepl/calldown/config"
	"github.com/zrepl/calldown/zfs"
)

func TestPrintTree(t *testing.T) {
	datasets := []zfs.Dataset{
		{Name: "tank"},
		{Name: "tank/home"},
		{Name: "tank/home/alice"},
		{Name: "tank/var"},
	}
	var buf bytes.Buffer
	printTree(&buf, "tank", datasets)
	assert.Equal(t, "  home\n    alice\n  var\n", buf.String())
}

func TestPrintPropertiesSorted(t *testing.T) {
	var buf bytes.Buffer
	err := printProperties(&buf, "tank", zfs.PropertyMap{"size": "100", "health": "ONLINE"})
	require.NoError(t, err)
	assert.Equal(t, "tank  health  ONLINE\ntank  size    100\n", buf.String())
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, []poolJSON{{Name: "tank"}}))
	assert.JSONEq(t, `[{"name":"tank"}]`, buf.String())
}

func TestParsePropFlags(t *testing.T) {
	props, err := parsePropFlags([]string{"a:b=c", "x:y=with=equals", "e:f="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a:b": "c", "x:y": "with=equals", "e:f": ""}, props)

	_, err = parsePropFlags([]string{"novalue"})
	assert.Error(t, err)
	_, err = parsePropFlags([]string{"=value"})
	assert.Error(t, err)
}

func TestListenFromConfig(t *testing.T) {
	c, err := config.ParseConfigBytes([]byte(`
global:
  monitoring:
    - type: prometheus
      listen: ":9811"
`))
	require.NoError(t, err)
	assert.Equal(t, ":9811", listenFromConfig(c))
	assert.Equal(t, "", listenFromConfig(config.DefaultConfig()))
}

func TestNewExporterRegistry(t *testing.T) {
	registry, err := newExporterRegistry(context.Background(), 0)
	require.NoError(t, err)
	// the pool collector itself must not be scraped here, zpool may be absent
	assert.NotNil(t, registry)
}
