package exporter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zrepl/calldown/zfs/zfscmd"
)

func TestServeRejectsInvalidListenAddress(t *testing.T) {
	err := Serve(context.Background(), "no-port", prometheus.NewRegistry())
	assert.Error(t, err)
}

func TestServeReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(testContext(t))
	cancel()
	err := Serve(ctx, "127.0.0.1:0", prometheus.NewRegistry())
	assert.NoError(t, err)
}

func TestZFSCmdReportHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	zfscmdReportHandler(rec, httptest.NewRequest(http.MethodGet, "/debug/zfscmd", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var report zfscmd.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
}
