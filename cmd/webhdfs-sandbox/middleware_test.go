package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ratio1/hdfs_crud_go/internal/httpx"
	"github.com/Ratio1/hdfs_crud_go/pkg/webhdfs"
	"github.com/Ratio1/hdfs_crud_go/pkg/webhdfs/mock"
)

func TestParseFailConfig(t *testing.T) {
	cfg, err := parseFailConfig("rate=0.25, code=503")
	require.NoError(t, err)
	assert.Equal(t, failConfig{rate: 0.25, code: 503}, cfg)

	cfg, err = parseFailConfig("rate=1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, cfg.code)

	cfg, err = parseFailConfig("")
	require.NoError(t, err)
	assert.Zero(t, cfg.rate)

	for _, bad := range []string{"rate", "rate=x", "rate=2", "code=abc", "speed=1"} {
		_, err := parseFailConfig(bad)
		assert.Error(t, err, bad)
	}
}

func newSandboxClient(t *testing.T, cfg middlewareConfig) *webhdfs.Client {
	t.Helper()
	srv := httptest.NewServer(withMiddleware(cfg, mock.Handler(mock.New())))
	t.Cleanup(srv.Close)
	ep, err := webhdfs.NewEndpoint(srv.URL, "root")
	require.NoError(t, err)
	client, err := webhdfs.New(ep, httpx.WithRetryPolicy(httpx.RetryPolicy{MaxRetries: 0}))
	require.NoError(t, err)
	return client
}

func TestStartupDelayAnswersRetriable(t *testing.T) {
	start := time.Now()
	var elapsed atomic.Int64
	client := newSandboxClient(t, middlewareConfig{
		readyAt: start.Add(time.Minute),
		now:     func() time.Time { return start.Add(time.Duration(elapsed.Load())) },
	})

	_, err := client.Status(context.Background(), "/")
	var remote *webhdfs.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, http.StatusServiceUnavailable, remote.StatusCode)
	assert.Equal(t, "RetriableException", remote.Exception)
	assert.True(t, remote.Retryable())

	elapsed.Store(int64(2 * time.Minute))
	_, err = client.Status(context.Background(), "/")
	assert.NoError(t, err)
}

func TestFailureInjection(t *testing.T) {
	client := newSandboxClient(t, middlewareConfig{
		fail:       failConfig{rate: 0.5, code: http.StatusBadGateway},
		randomizer: func() float64 { return 0.1 },
	})
	_, err := client.Status(context.Background(), "/")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, httpx.StatusCode(err))
}

func TestRequestIDHeader(t *testing.T) {
	h := withMiddleware(middlewareConfig{}, mock.Handler(mock.New()))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhdfs/v1/?op=GETFILESTATUS", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rec.Header().Get("X-Request-Id"), 36)
}
