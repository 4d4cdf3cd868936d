package hdfs_sdk_test

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
	"github.com/Ratio1/hdfs_crud_go/pkg/hdfs_sdk"
	"github.com/Ratio1/hdfs_crud_go/pkg/webhdfs"
	"github.com/Ratio1/hdfs_crud_go/pkg/webhdfs/mock"
)

// flakyBackend fails the first n status checks.
type flakyBackend struct {
	*mock.Mock
	failures int32
	calls    atomic.Int32
	err      error
}

func (b *flakyBackend) GetFileStatus(ctx context.Context, p string) (*webhdfs.FileStatus, error) {
	if b.calls.Add(1) <= b.failures {
		return nil, b.err
	}
	return b.Mock.GetFileStatus(ctx, p)
}

func fastOptions(maxWait time.Duration) hdfs_sdk.ConnectOptions {
	return hdfs_sdk.ConnectOptions{
		MaxWait:   maxWait,
		BaseDelay: time.Millisecond,
		MaxDelay:  5 * time.Millisecond,
	}
}

func TestConnectSucceedsAfterFailures(t *testing.T) {
	b := &flakyBackend{
		Mock:     mock.New(),
		failures: 3,
		err:      webhdfs.NewRemoteError(http.StatusServiceUnavailable, "RetriableException", "NameNode is starting"),
	}
	client := webhdfs.NewWithBackend(b)

	err := hdfs_sdk.Connect(context.Background(), client, fastOptions(5*time.Second))
	require.NoError(t, err)
	assert.EqualValues(t, 4, b.calls.Load())
}

func TestConnectUnreachable(t *testing.T) {
	dialErr := errors.New("dial tcp: connection refused")
	b := &flakyBackend{Mock: mock.New(), failures: 1 << 30, err: dialErr}
	client := webhdfs.NewWithBackend(b)

	err := hdfs_sdk.Connect(context.Background(), client, fastOptions(50*time.Millisecond))
	require.Error(t, err)
	assert.ErrorIs(t, err, webhdfs.ErrUnreachable)
	assert.ErrorIs(t, err, dialErr)
	assert.Greater(t, b.calls.Load(), int32(1))
	assert.Zero(t, b.WriteCount(), "bootstrap must not write")
}

func TestConnectPermissionDeniedStopsImmediately(t *testing.T) {
	b := &flakyBackend{
		Mock:     mock.New(),
		failures: 1 << 30,
		err:      webhdfs.NewRemoteError(http.StatusForbidden, "AccessControlException", "Permission denied"),
	}
	client := webhdfs.NewWithBackend(b)

	err := hdfs_sdk.Connect(context.Background(), client, fastOptions(time.Second))
	assert.ErrorIs(t, err, webhdfs.ErrPermissionDenied)
	assert.NotErrorIs(t, err, webhdfs.ErrUnreachable)
	assert.EqualValues(t, 1, b.calls.Load())
}

func TestConnectHonoursContext(t *testing.T) {
	client := webhdfs.NewWithBackend(mock.New())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := hdfs_sdk.Connect(ctx, client, hdfs_sdk.ConnectOptions{WarmUp: time.Hour})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConnectOverHTTPColdStart(t *testing.T) {
	fs := mock.New()
	var ready atomic.Bool
	handler := mock.Handler(fs)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ready.Load() {
			http.Error(w, "starting", http.StatusServiceUnavailable)
			return
		}
		handler.ServeHTTP(w, r)
	}))
	defer srv.Close()

	endpoint, err := webhdfs.NewEndpoint(srv.URL, "root")
	require.NoError(t, err)
	client, err := webhdfs.New(endpoint, httpx.WithRetryPolicy(httpx.RetryPolicy{MaxRetries: 0}))
	require.NoError(t, err)

	time.AfterFunc(20*time.Millisecond, func() { ready.Store(true) })
	require.NoError(t, hdfs_sdk.Connect(context.Background(), client, fastOptions(5*time.Second)))
}

func TestConnectHonoursMaxWaitWithDefaultTransport(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "starting", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, mode, err := hdfs_sdk.NewClient(hdfs_sdk.Options{
		Mode:        hdfs_sdk.ModeHTTP,
		NameNodeURL: srv.URL,
		Timeout:     30 * time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, hdfs_sdk.ModeHTTP, mode)

	maxWait := 100 * time.Millisecond
	start := time.Now()
	err = hdfs_sdk.Connect(context.Background(), client, hdfs_sdk.ConnectOptions{
		MaxWait:   maxWait,
		BaseDelay: 10 * time.Millisecond,
		MaxDelay:  20 * time.Millisecond,
	})
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, webhdfs.ErrUnreachable)
	assert.Less(t, elapsed, maxWait+200*time.Millisecond)
	assert.Greater(t, hits.Load(), int32(1), "the poll loop should drive the retries")
}

func TestConnectAttemptStopsAtDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client, _, err := hdfs_sdk.NewClient(hdfs_sdk.Options{Mode: hdfs_sdk.ModeHTTP, NameNodeURL: srv.URL})
	require.NoError(t, err)

	start := time.Now()
	err = hdfs_sdk.Connect(context.Background(), client, fastOptions(100*time.Millisecond))
	assert.ErrorIs(t, err, webhdfs.ErrUnreachable)
	assert.Less(t, time.Since(start), time.Second)
}

func TestEnsureNamespaceIdempotent(t *testing.T) {
	ctx := context.Background()
	fs := mock.New()
	client := webhdfs.NewWithBackend(fs)

	require.NoError(t, hdfs_sdk.EnsureNamespace(ctx, client, "/user/data", nil))
	require.NoError(t, hdfs_sdk.EnsureNamespace(ctx, client, "/user/data", nil))

	names, err := client.ListNames(ctx, "/user")
	require.NoError(t, err)
	assert.Equal(t, []string{"data"}, names)

	_, err = client.Write(ctx, "/user/file", []byte("x"), nil)
	require.NoError(t, err)
	err = hdfs_sdk.EnsureNamespace(ctx, client, "/user/file", nil)
	assert.ErrorIs(t, err, webhdfs.ErrNotDirectory)
}
