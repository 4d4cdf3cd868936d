// Package files manages one named HDFS file through a local staging file:
// content is written locally first and then uploaded to the remote
// directory under the staging file's base name.
package files

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/Ratio1/hdfs_crud_go/internal/logging"
	"github.com/Ratio1/hdfs_crud_go/pkg/webhdfs"
)

var (
	// ErrReadFailure wraps failures to fetch the remote file.
	ErrReadFailure = errors.New("files: read failed")
	// ErrWriteFailure wraps failures to stage or upload content.
	ErrWriteFailure = errors.New("files: write failed")
	// ErrTooLarge is returned when content would exceed the size bound.
	ErrTooLarge = errors.New("files: content exceeds size limit")
	// ErrConflict indicates the file kept changing during a rewrite append.
	ErrConflict = errors.New("files: concurrent modification")
)

// AppendMode selects how Update extends the remote file.
type AppendMode int

const (
	// AppendRewrite reads the file, concatenates and re-uploads it guarded by
	// the version token. Cost grows with the file size.
	AppendRewrite AppendMode = iota
	// AppendNative uses the WebHDFS APPEND operation.
	AppendNative
)

func (m AppendMode) String() string {
	switch m {
	case AppendRewrite:
		return "rewrite"
	case AppendNative:
		return "native"
	}
	return fmt.Sprintf("AppendMode(%d)", int(m))
}

// ParseAppendMode maps "rewrite" and "native" to an AppendMode.
func ParseAppendMode(s string) (AppendMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rewrite":
		return AppendRewrite, nil
	case "native":
		return AppendNative, nil
	}
	return AppendRewrite, fmt.Errorf("files: unknown append mode %q", s)
}

const (
	DefaultMaxSize         = 64 << 20
	DefaultConflictRetries = 3
)

// Engine performs create, read, append and delete on a single remote file.
type Engine struct {
	client    *webhdfs.Client
	remoteDir string
	remote    string
	staging   string
	log       logging.Logger
	mode      AppendMode
	maxSize   int64
	retries   uint64
	baseDelay time.Duration
	maxDelay  time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(l logging.Logger) Option {
	return func(e *Engine) {
		e.log = logging.OrNop(l)
	}
}

func WithAppendMode(m AppendMode) Option {
	return func(e *Engine) {
		e.mode = m
	}
}

// WithMaxSize bounds the remote file size. Zero or less removes the bound.
func WithMaxSize(n int64) Option {
	return func(e *Engine) {
		e.maxSize = n
	}
}

func WithConflictRetries(n uint64) Option {
	return func(e *Engine) {
		e.retries = n
	}
}

// WithBackoff sets the delay range between conflict retries.
func WithBackoff(base, maxDelay time.Duration) Option {
	return func(e *Engine) {
		if base > 0 {
			e.baseDelay = base
		}
		if maxDelay > 0 {
			e.maxDelay = maxDelay
		}
	}
}

// New returns an Engine managing remoteDir/<base name of stagingPath>.
func New(client *webhdfs.Client, remoteDir, stagingPath string, opts ...Option) (*Engine, error) {
	if client == nil {
		return nil, errors.New("files: client is nil")
	}
	if strings.TrimSpace(remoteDir) == "" {
		return nil, errors.New("files: remote directory is required")
	}
	name := filepath.Base(stagingPath)
	if strings.TrimSpace(stagingPath) == "" || name == "." || name == string(filepath.Separator) {
		return nil, fmt.Errorf("files: invalid staging path %q", stagingPath)
	}
	e := &Engine{
		client:    client,
		remoteDir: remoteDir,
		remote:    path.Join(remoteDir, name),
		staging:   stagingPath,
		log:       logging.Nop(),
		mode:      AppendRewrite,
		maxSize:   DefaultMaxSize,
		retries:   DefaultConflictRetries,
		baseDelay: 50 * time.Millisecond,
		maxDelay:  time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.maxDelay < e.baseDelay {
		e.maxDelay = e.baseDelay
	}
	e.log = e.log.With("file", e.remote)
	return e, nil
}

// RemotePath returns the HDFS path of the managed file.
func (e *Engine) RemotePath() string {
	return e.remote
}

// StagingPath returns the local staging file.
func (e *Engine) StagingPath() string {
	return e.staging
}

// Create stages content locally and uploads it, replacing any existing file.
func (e *Engine) Create(ctx context.Context, content string) error {
	if err := e.checkSize(int64(len(content))); err != nil {
		return err
	}
	if err := e.stage(content); err != nil {
		return err
	}
	st, err := e.client.Upload(ctx, e.remoteDir, e.staging, &webhdfs.PutOptions{Overwrite: true})
	if err != nil {
		return fmt.Errorf("%w: upload %s: %w", ErrWriteFailure, e.remote, err)
	}
	size := int64(len(content))
	if st != nil {
		size = st.Length
	}
	e.log.Info(ctx, "file uploaded", "bytes", size)
	return nil
}

// Read returns the remote content. A missing file yields an error matching
// both ErrReadFailure and webhdfs.ErrNotFound.
func (e *Engine) Read(ctx context.Context) (string, error) {
	data, err := e.client.Read(ctx, e.remote)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrReadFailure, e.remote, err)
	}
	return string(data), nil
}

// Update appends text to the remote file and returns the content read back
// afterwards. When the read-back fails the failure is only logged and the
// expected content is returned; in AppendNative mode that is the empty string.
func (e *Engine) Update(ctx context.Context, text string) (string, error) {
	var (
		expected string
		err      error
	)
	switch e.mode {
	case AppendNative:
		expected, err = e.appendNative(ctx, text)
	default:
		expected, err = e.appendRewrite(ctx, text)
	}
	if err != nil {
		return "", err
	}

	verified, err := e.Read(ctx)
	if err != nil {
		e.log.Warn(ctx, "verification read failed", "err", err)
		return expected, nil
	}
	if expected != "" && verified != expected {
		e.log.Warn(ctx, "verification read differs from written content",
			"expected_bytes", len(expected), "verified_bytes", len(verified))
	}
	return verified, nil
}

// appendNative never downloads the file, so it has no expected content to
// offer and returns an empty string.
func (e *Engine) appendNative(ctx context.Context, text string) (string, error) {
	st, err := e.client.Status(ctx, e.remote)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrReadFailure, e.remote, err)
	}
	if st.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrReadFailure, e.remote)
	}
	if err := e.checkSize(st.Length + int64(len(text))); err != nil {
		return "", err
	}
	if err := e.client.Append(ctx, e.remote, []byte(text)); err != nil {
		return "", fmt.Errorf("%w: append %s: %w", ErrWriteFailure, e.remote, err)
	}
	e.log.Info(ctx, "file appended", "mode", AppendNative.String(), "bytes", len(text), "size", st.Length+int64(len(text)))
	return "", nil
}

func (e *Engine) appendRewrite(ctx context.Context, text string) (string, error) {
	var (
		content  string
		attempts int
	)
	err := retry.Do(ctx, e.backoff(), func(ctx context.Context) error {
		attempts++
		data, st, err := e.client.ReadVersioned(ctx, e.remote)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrReadFailure, e.remote, err)
		}
		content = string(data) + text
		if err := e.checkSize(int64(len(content))); err != nil {
			return err
		}
		if err := e.stage(content); err != nil {
			return err
		}
		_, err = e.client.Upload(ctx, e.remoteDir, e.staging, &webhdfs.PutOptions{IfETagMatch: st.ETag()})
		if errors.Is(err, webhdfs.ErrPreconditionFailed) {
			e.log.Warn(ctx, "file changed during append, retrying", "attempt", attempts)
			return retry.RetryableError(err)
		}
		if err != nil {
			return fmt.Errorf("%w: upload %s: %w", ErrWriteFailure, e.remote, err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, webhdfs.ErrPreconditionFailed) {
			return "", fmt.Errorf("%w: %s after %d attempts: %w", ErrConflict, e.remote, attempts, err)
		}
		return "", err
	}
	e.log.Info(ctx, "file appended", "mode", AppendRewrite.String(), "bytes", len(content))
	return content, nil
}

// Delete removes the remote file. A missing file yields webhdfs.ErrNotFound.
func (e *Engine) Delete(ctx context.Context) error {
	if err := e.client.Delete(ctx, e.remote, false); err != nil {
		return fmt.Errorf("files: delete %s: %w", e.remote, err)
	}
	e.log.Info(ctx, "file deleted")
	return nil
}

// Cleanup removes the local staging file.
func (e *Engine) Cleanup() error {
	if err := os.Remove(e.staging); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("files: remove staging file: %w", err)
	}
	return nil
}

func (e *Engine) stage(content string) error {
	if err := os.WriteFile(e.staging, []byte(content), 0o644); err != nil {
		return fmt.Errorf("%w: stage %s: %w", ErrWriteFailure, e.staging, err)
	}
	return nil
}

func (e *Engine) checkSize(n int64) error {
	if e.maxSize > 0 && n > e.maxSize {
		return fmt.Errorf("%w: %d bytes > %d", ErrTooLarge, n, e.maxSize)
	}
	return nil
}

func (e *Engine) backoff() retry.Backoff {
	b := retry.NewExponential(e.baseDelay)
	b = retry.WithJitterPercent(20, b)
	b = retry.WithCappedDuration(e.maxDelay, b)
	return retry.WithMaxRetries(e.retries, b)
}
