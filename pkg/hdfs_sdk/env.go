package hdfs_sdk

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Ratio1/hdfs_crud_go/internal/devseed"
	"github.com/Ratio1/hdfs_crud_go/internal/httpx"
	"github.com/Ratio1/hdfs_crud_go/pkg/webhdfs"
	"github.com/Ratio1/hdfs_crud_go/pkg/webhdfs/mock"
)

const (
	EnvMode        = "HDFS_RUNTIME_MODE"
	EnvNameNodeURL = "HDFS_NAMENODE_URL"
	EnvUser        = "HDFS_USER"
	EnvMockSeed    = "HDFS_MOCK_SEED"

	ModeAuto = "auto"
	ModeHTTP = "http"
	ModeMock = "mock"

	DefaultUser = "root"
)

// Options describe how NewClient builds a client.
type Options struct {
	// Mode is one of ModeHTTP, ModeMock or ModeAuto. Empty means ModeAuto.
	Mode        string
	NameNodeURL string
	User        string
	// MockSeed is an optional devseed file applied to the mock namespace.
	MockSeed string
	Timeout  time.Duration
	Retry    *httpx.RetryPolicy
}

// NewFromEnv initialises a WebHDFS client from the process environment. It
// returns the resolved mode ("http" or "mock").
func NewFromEnv() (*webhdfs.Client, string, error) {
	return NewClient(Options{
		Mode:        os.Getenv(EnvMode),
		NameNodeURL: os.Getenv(EnvNameNodeURL),
		User:        os.Getenv(EnvUser),
		MockSeed:    os.Getenv(EnvMockSeed),
	})
}

// NewClient builds an HTTP or mock-backed client according to opts.Mode.
func NewClient(opts Options) (*webhdfs.Client, string, error) {
	mode := strings.ToLower(strings.TrimSpace(opts.Mode))
	url := strings.TrimSpace(opts.NameNodeURL)

	switch mode {
	case "", ModeAuto:
		if url != "" {
			return newHTTPClient(opts)
		}
		return newMockClient(opts)
	case ModeHTTP:
		if url == "" {
			return nil, "", fmt.Errorf("hdfs_sdk: HTTP mode requires %s", EnvNameNodeURL)
		}
		return newHTTPClient(opts)
	case ModeMock:
		return newMockClient(opts)
	default:
		return nil, "", fmt.Errorf("hdfs_sdk: unsupported %s value %q", EnvMode, opts.Mode)
	}
}

func newHTTPClient(opts Options) (*webhdfs.Client, string, error) {
	user := strings.TrimSpace(opts.User)
	if user == "" {
		user = DefaultUser
	}
	endpoint, err := webhdfs.NewEndpoint(opts.NameNodeURL, user)
	if err != nil {
		return nil, "", fmt.Errorf("hdfs_sdk: %w", err)
	}
	var httpOpts []httpx.Option
	if opts.Timeout > 0 {
		httpOpts = append(httpOpts, httpx.WithTimeout(opts.Timeout))
	}
	if opts.Retry != nil {
		httpOpts = append(httpOpts, httpx.WithRetryPolicy(*opts.Retry))
	}
	client, err := webhdfs.New(endpoint, httpOpts...)
	if err != nil {
		return nil, "", fmt.Errorf("hdfs_sdk: init webhdfs HTTP client: %w", err)
	}
	return client, ModeHTTP, nil
}

func newMockClient(opts Options) (*webhdfs.Client, string, error) {
	owner := strings.TrimSpace(opts.User)
	if owner == "" {
		owner = DefaultUser
	}
	fs := mock.New(mock.WithOwner(owner, "supergroup"))
	if path := strings.TrimSpace(opts.MockSeed); path != "" {
		entries, err := devseed.Load(path)
		if err != nil {
			return nil, "", fmt.Errorf("hdfs_sdk: load mock seed: %w", err)
		}
		if err := fs.Seed(entries); err != nil {
			return nil, "", fmt.Errorf("hdfs_sdk: apply mock seed: %w", err)
		}
	}
	return webhdfs.NewWithBackend(fs), ModeMock, nil
}
