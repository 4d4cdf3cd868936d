package webhdfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Ratio1/hdfs_crud_go/internal/httpx"
)

// Endpoint identifies a NameNode HTTP address and the user requests run as.
// It is immutable once constructed.
type Endpoint struct {
	baseURL string
	user    string
}

// NewEndpoint validates baseURL and returns an Endpoint.
func NewEndpoint(baseURL, user string) (Endpoint, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return Endpoint{}, fmt.Errorf("webhdfs: base URL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return Endpoint{}, fmt.Errorf("webhdfs: invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Endpoint{}, fmt.Errorf("webhdfs: base URL %q must use http or https", baseURL)
	}
	if u.Host == "" {
		return Endpoint{}, fmt.Errorf("webhdfs: base URL %q has no host", baseURL)
	}
	return Endpoint{baseURL: baseURL, user: strings.TrimSpace(user)}, nil
}

// BaseURL returns the NameNode HTTP address.
func (e Endpoint) BaseURL() string { return e.baseURL }

// User returns the identity sent as user.name.
func (e Endpoint) User() string { return e.user }

func (e Endpoint) String() string {
	if e.user == "" {
		return e.baseURL
	}
	return e.user + "@" + e.baseURL
}

// Client provides path-based access to an HDFS cluster.
type Client struct {
	backend  Backend
	endpoint Endpoint
	closer   func()
}

// New constructs a client talking to the WebHDFS REST API of endpoint.
func New(endpoint Endpoint, opts ...httpx.Option) (*Client, error) {
	if endpoint.baseURL == "" {
		return nil, fmt.Errorf("webhdfs: endpoint is required")
	}
	base := []httpx.Option{httpx.WithoutRedirects()}
	if endpoint.user != "" {
		base = append(base, httpx.WithQuery(url.Values{"user.name": {endpoint.user}}))
	}
	cl, err := httpx.NewClient(endpoint.baseURL, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	c := NewWithHTTPClient(cl)
	c.endpoint = endpoint
	return c, nil
}

// NewWithHTTPClient wraps an existing httpx.Client. The client should be
// created with httpx.WithoutRedirects so DataNode redirects are handled here.
func NewWithHTTPClient(httpClient *httpx.Client) *Client {
	return &Client{
		backend: &httpBackend{client: httpClient},
		closer:  httpClient.CloseIdleConnections,
	}
}

// NewWithBackend allows callers to provide a custom backend (e.g., mocks).
func NewWithBackend(b Backend) *Client {
	return &Client{backend: b}
}

// Endpoint returns the endpoint the client was built for; it is the zero
// value for custom backends.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// Close releases idle transport connections. The client stays usable.
func (c *Client) Close() {
	if c != nil && c.closer != nil {
		c.closer()
	}
}

// Status returns the FileStatus of p.
func (c *Client) Status(ctx context.Context, p string) (*FileStatus, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	return c.backend.GetFileStatus(ctx, normalizePath(p))
}

// Exists reports whether p exists.
func (c *Client) Exists(ctx context.Context, p string) (bool, error) {
	_, err := c.Status(ctx, p)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// List returns the entries directly under dir, sorted by name.
func (c *Client) List(ctx context.Context, dir string) ([]FileStatus, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	entries, err := c.backend.ListStatus(ctx, normalizePath(dir))
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].PathSuffix < entries[j].PathSuffix
	})
	return entries, nil
}

// ListNames returns the names of the entries directly under dir.
func (c *Client) ListNames(ctx context.Context, dir string) ([]string, error) {
	entries, err := c.List(ctx, dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.PathSuffix)
	}
	return names, nil
}

// Mkdirs creates dir and any missing parents.
func (c *Client) Mkdirs(ctx context.Context, dir string) error {
	if err := c.check(); err != nil {
		return err
	}
	ok, err := c.backend.Mkdirs(ctx, normalizePath(dir), "")
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("webhdfs: mkdirs %s returned false", dir)
	}
	return nil
}

// EnsureDir makes sure dir exists as a directory. An existing directory is
// not an error; created reports whether this call created it.
func (c *Client) EnsureDir(ctx context.Context, dir string) (created bool, err error) {
	if err := c.check(); err != nil {
		return false, err
	}
	dir = normalizePath(dir)
	st, err := c.backend.GetFileStatus(ctx, dir)
	switch {
	case err == nil && st.IsDir():
		return false, nil
	case err == nil:
		return false, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	case !errors.Is(err, ErrNotFound):
		return false, err
	}
	if err := c.Mkdirs(ctx, dir); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Write stores data at p and returns the resulting status. The status is
// nil when the write succeeded but the lookup that follows it failed; the
// error only ever reports a failed write.
func (c *Client) Write(ctx context.Context, p string, data []byte, opts *PutOptions) (*FileStatus, error) {
	if strings.TrimSpace(p) == "" {
		return nil, fmt.Errorf("webhdfs: path is required")
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	p = normalizePath(p)

	var o PutOptions
	if opts != nil {
		o = *opts
	}
	create := CreateOptions{
		Overwrite:   o.Overwrite,
		Permission:  o.Permission,
		Replication: o.Replication,
		BlockSize:   o.BlockSize,
	}
	if o.IfETagMatch != "" {
		st, err := c.backend.GetFileStatus(ctx, p)
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s no longer exists", ErrPreconditionFailed, p)
		}
		if err != nil {
			return nil, err
		}
		if st.ETag() != o.IfETagMatch {
			return nil, fmt.Errorf("%w: %s changed (have %s, want %s)", ErrPreconditionFailed, p, st.ETag(), o.IfETagMatch)
		}
		create.Overwrite = true
	}
	if o.IfAbsent {
		create.Overwrite = false
	}

	if err := c.backend.Create(ctx, p, data, create); err != nil {
		if o.IfAbsent && errors.Is(err, ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: %w", ErrPreconditionFailed, err)
		}
		return nil, err
	}
	st, err := c.backend.GetFileStatus(ctx, p)
	if err != nil {
		return nil, nil
	}
	return st, nil
}

// Append adds data to the end of an existing file using the native APPEND
// operation.
func (c *Client) Append(ctx context.Context, p string, data []byte) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("webhdfs: path is required")
	}
	if err := c.check(); err != nil {
		return err
	}
	return c.backend.Append(ctx, normalizePath(p), data)
}

// Read returns the full content of p.
func (c *Client) Read(ctx context.Context, p string) ([]byte, error) {
	if strings.TrimSpace(p) == "" {
		return nil, fmt.Errorf("webhdfs: path is required")
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	return c.backend.Open(ctx, normalizePath(p))
}

// ReadVersioned returns the content of p together with the status read just
// before it. Use the status ETag as IfETagMatch for a guarded rewrite.
func (c *Client) ReadVersioned(ctx context.Context, p string) ([]byte, *FileStatus, error) {
	st, err := c.Status(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	if st.IsDir() {
		return nil, nil, fmt.Errorf("webhdfs: %s is a directory", p)
	}
	data, err := c.Read(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	return data, st, nil
}

// Download streams the content of p into w.
func (c *Client) Download(ctx context.Context, p string, w io.Writer) (int64, error) {
	data, err := c.Read(ctx, p)
	if err != nil {
		return 0, err
	}
	return io.Copy(w, bytes.NewReader(data))
}

// Upload copies a local file into remoteDir, keeping its base name.
func (c *Client) Upload(ctx context.Context, remoteDir, localPath string, opts *PutOptions) (*FileStatus, error) {
	if strings.TrimSpace(localPath) == "" {
		return nil, fmt.Errorf("webhdfs: local path is required")
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("webhdfs: read local file: %w", err)
	}
	dest := path.Join(normalizePath(remoteDir), filepath.Base(localPath))
	return c.Write(ctx, dest, data, opts)
}

// Delete removes p. A missing path yields ErrNotFound.
func (c *Client) Delete(ctx context.Context, p string, recursive bool) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("webhdfs: path is required")
	}
	if err := c.check(); err != nil {
		return err
	}
	p = normalizePath(p)
	ok, err := c.backend.Delete(ctx, p, recursive)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return nil
}

func (c *Client) check() error {
	if c == nil || c.backend == nil {
		return fmt.Errorf("webhdfs: client is nil")
	}
	return nil
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
