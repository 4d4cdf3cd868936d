package webhdfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Ratio1/hdfs_crud_go/internal/httpx"
	"github.com/Ratio1/hdfs_crud_go/internal/webhdfsapi"
)

// PathPrefix is the REST prefix every WebHDFS path lives under.
const PathPrefix = "/webhdfs/v1"

// Backend performs raw WebHDFS operations on normalized absolute paths.
type Backend interface {
	GetFileStatus(ctx context.Context, p string) (*FileStatus, error)
	ListStatus(ctx context.Context, p string) ([]FileStatus, error)
	Mkdirs(ctx context.Context, p string, permission string) (bool, error)
	Create(ctx context.Context, p string, data []byte, opts CreateOptions) error
	Append(ctx context.Context, p string, data []byte) error
	Open(ctx context.Context, p string) ([]byte, error)
	Delete(ctx context.Context, p string, recursive bool) (bool, error)
}

type httpBackend struct {
	client *httpx.Client
}

func (b *httpBackend) GetFileStatus(ctx context.Context, p string) (*FileStatus, error) {
	data, err := b.call(ctx, http.MethodGet, p, "GETFILESTATUS", nil)
	if err != nil {
		return nil, err
	}
	var st FileStatus
	if err := webhdfsapi.DecodeEnvelope(data, webhdfsapi.KeyFileStatus, &st); err != nil {
		return nil, fmt.Errorf("webhdfs: decode GETFILESTATUS response: %w", err)
	}
	return &st, nil
}

func (b *httpBackend) ListStatus(ctx context.Context, p string) ([]FileStatus, error) {
	data, err := b.call(ctx, http.MethodGet, p, "LISTSTATUS", nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		FileStatus []FileStatus `json:"FileStatus"`
	}
	if err := webhdfsapi.DecodeEnvelope(data, webhdfsapi.KeyFileStatuses, &payload); err != nil {
		return nil, fmt.Errorf("webhdfs: decode LISTSTATUS response: %w", err)
	}
	return payload.FileStatus, nil
}

func (b *httpBackend) Mkdirs(ctx context.Context, p string, permission string) (bool, error) {
	q := url.Values{}
	if permission != "" {
		q.Set("permission", permission)
	}
	data, err := b.call(ctx, http.MethodPut, p, "MKDIRS", q)
	if err != nil {
		return false, err
	}
	ok, err := webhdfsapi.DecodeBoolean(data)
	if err != nil {
		return false, fmt.Errorf("webhdfs: decode MKDIRS response: %w", err)
	}
	return ok, nil
}

func (b *httpBackend) Create(ctx context.Context, p string, data []byte, opts CreateOptions) error {
	q := url.Values{"overwrite": {strconv.FormatBool(opts.Overwrite)}}
	if opts.Permission != "" {
		q.Set("permission", opts.Permission)
	}
	if opts.Replication > 0 {
		q.Set("replication", strconv.Itoa(opts.Replication))
	}
	if opts.BlockSize > 0 {
		q.Set("blocksize", strconv.FormatInt(opts.BlockSize, 10))
	}
	return b.twoStepWrite(ctx, http.MethodPut, p, "CREATE", q, data, opts.Overwrite)
}

func (b *httpBackend) Append(ctx context.Context, p string, data []byte) error {
	return b.twoStepWrite(ctx, http.MethodPost, p, "APPEND", url.Values{}, data, false)
}

func (b *httpBackend) Open(ctx context.Context, p string) ([]byte, error) {
	if b == nil || b.client == nil {
		return nil, fmt.Errorf("webhdfs: http backend not configured")
	}
	resp, err := b.client.Do(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   PathPrefix + p,
		Query:  url.Values{"op": {"OPEN"}},
	})
	if err != nil {
		return nil, mapError(err)
	}
	if !isRedirect(resp.StatusCode) {
		// Gateways such as HttpFS stream the content straight from the NameNode.
		return httpx.ReadAllAndClose(resp.Body)
	}
	location, err := redirectLocation(resp)
	if err != nil {
		return nil, err
	}
	dnResp, err := b.client.Do(ctx, &httpx.Request{Method: http.MethodGet, URL: location})
	if err != nil {
		return nil, mapError(err)
	}
	return httpx.ReadAllAndClose(dnResp.Body)
}

func (b *httpBackend) Delete(ctx context.Context, p string, recursive bool) (bool, error) {
	data, err := b.call(ctx, http.MethodDelete, p, "DELETE", url.Values{"recursive": {strconv.FormatBool(recursive)}})
	if err != nil {
		return false, err
	}
	ok, err := webhdfsapi.DecodeBoolean(data)
	if err != nil {
		return false, fmt.Errorf("webhdfs: decode DELETE response: %w", err)
	}
	return ok, nil
}

// call runs a single-step operation against the NameNode and returns the body.
func (b *httpBackend) call(ctx context.Context, method, p, op string, q url.Values) ([]byte, error) {
	if b == nil || b.client == nil {
		return nil, fmt.Errorf("webhdfs: http backend not configured")
	}
	if q == nil {
		q = url.Values{}
	}
	q.Set("op", op)
	resp, err := b.client.Do(ctx, &httpx.Request{
		Method: method,
		Path:   PathPrefix + p,
		Query:  q,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return httpx.ReadAllAndClose(resp.Body)
}

// twoStepWrite asks the NameNode where to send the payload, then sends it to
// the DataNode. The first request carries no body so a redirect never causes
// an empty write. Unless idempotent is set each step is attempted once: a
// replayed APPEND whose first response was lost would duplicate data.
func (b *httpBackend) twoStepWrite(ctx context.Context, method, p, op string, q url.Values, data []byte, idempotent bool) error {
	if b == nil || b.client == nil {
		return fmt.Errorf("webhdfs: http backend not configured")
	}
	q.Set("op", op)
	q.Set("noredirect", "true")
	resp, err := b.client.Do(ctx, &httpx.Request{
		Method:       method,
		Path:         PathPrefix + p,
		Query:        q,
		DisableRetry: !idempotent,
	})
	if err != nil {
		return mapError(err)
	}
	location, err := redirectLocation(resp)
	if err != nil {
		return fmt.Errorf("webhdfs: %s %s: %w", op, p, err)
	}

	dnResp, err := b.client.Do(ctx, &httpx.Request{
		Method:       method,
		URL:          location,
		Header:       http.Header{"Content-Type": {"application/octet-stream"}},
		Body:         bytes.NewReader(data),
		DisableRetry: !idempotent,
	})
	if err != nil {
		return mapError(err)
	}
	httpx.DrainAndClose(dnResp.Body)
	return nil
}

// redirectLocation extracts the DataNode URL from either a 307 response or a
// noredirect JSON body, and closes the response.
func redirectLocation(resp *http.Response) (string, error) {
	defer httpx.DrainAndClose(resp.Body)

	var raw string
	if isRedirect(resp.StatusCode) {
		raw = resp.Header.Get("Location")
		if raw == "" {
			return "", errors.New("redirect without Location header")
		}
	} else {
		data, err := httpx.ReadAllAndClose(resp.Body)
		if err != nil {
			return "", err
		}
		raw, err = webhdfsapi.DecodeLocation(data)
		if err != nil {
			return "", err
		}
	}

	loc, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid DataNode location %q: %w", raw, err)
	}
	if resp.Request != nil && resp.Request.URL != nil {
		loc = resp.Request.URL.ResolveReference(loc)
	}
	return loc.String(), nil
}

func isRedirect(status int) bool {
	return status == http.StatusTemporaryRedirect ||
		status == http.StatusPermanentRedirect ||
		status == http.StatusFound ||
		status == http.StatusSeeOther
}

// mapError turns transport errors carrying a RemoteException into *RemoteError.
func mapError(err error) error {
	var httpErr *httpx.HTTPError
	if !errors.As(err, &httpErr) {
		return err
	}
	remote := &RemoteError{StatusCode: httpErr.StatusCode, cause: err}
	if exc, ok := webhdfsapi.DecodeRemoteException(httpErr.Body); ok {
		remote.Exception = exc.Exception
		remote.JavaClassName = exc.JavaClassName
		remote.Message = exc.Message
	} else {
		remote.Message = strings.TrimSpace(string(httpErr.Body))
	}
	return remote
}
