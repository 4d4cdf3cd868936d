package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

var fastRetry = RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestClientRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != "payload" {
			t.Errorf("attempt %d: body not replayed, got %q", calls.Load(), body)
		}
		if calls.Add(1) < 3 {
			http.Error(w, "starting", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithRetryPolicy(fastRetry))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	resp, err := c.Do(context.Background(), &Request{
		Method: http.MethodPut,
		Path:   "/x",
		Body:   strings.NewReader("payload"),
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	DrainAndClose(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestClientSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	var length atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		length.Store(r.ContentLength)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithRetryPolicy(fastRetry))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = c.Do(context.Background(), &Request{
		Method:       http.MethodPost,
		Path:         "/append",
		Body:         strings.NewReader("payload"),
		DisableRetry: true,
	})
	if StatusCode(err) != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("DisableRetry: expected 1 attempt, got %d", calls.Load())
	}
	if length.Load() != int64(len("payload")) {
		t.Fatalf("expected Content-Length %d, got %d", len("payload"), length.Load())
	}

	_, err = c.Do(WithoutRetry(context.Background()), &Request{Method: http.MethodGet, Path: "/status"})
	if StatusCode(err) != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("WithoutRetry: expected 1 more attempt, got %d total", calls.Load())
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"RemoteException":{"exception":"FileNotFoundException"}}`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithRetryPolicy(fastRetry))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = c.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/missing"})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusNotFound || httpErr.JSON == nil {
		t.Fatalf("unexpected error: %#v", httpErr)
	}
	if StatusCode(err) != http.StatusNotFound {
		t.Fatalf("StatusCode helper mismatch")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestClientDefaultQueryAndBasePath(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/gateway", WithQuery(url.Values{"user.name": {"root"}}))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	resp, err := c.Do(context.Background(), &Request{
		Method: http.MethodGet,
		Path:   "webhdfs/v1/user/data",
		Query:  url.Values{"op": {"LISTSTATUS"}},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	DrainAndClose(resp.Body)
	if gotPath != "/gateway/webhdfs/v1/user/data" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotQuery != "op=LISTSTATUS&user.name=root" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
}

func TestClientWithoutRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/target" {
			t.Errorf("redirect must not be followed")
		}
		http.Redirect(w, r, "/target", http.StatusTemporaryRedirect)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithoutRedirects())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	resp, err := c.Do(context.Background(), &Request{Method: http.MethodPut, Path: "/src"})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	DrainAndClose(resp.Body)
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Location") == "" {
		t.Fatalf("missing Location header")
	}
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	for _, raw := range []string{"", "   ", "namenode:9870", "://bad"} {
		if _, err := NewClient(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestClientHonoursContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithRetryPolicy(RetryPolicy{MaxRetries: 10, BaseDelay: time.Hour, MaxDelay: time.Hour}))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Do(ctx, &Request{Method: http.MethodGet, Path: "/"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
