// Package config handles configuration for hdfs-crud: defaults, an optional
// YAML or JSON file, HDFS_* environment variables and command-line flags,
// applied in that order.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
)

// EnvConfigFile names the configuration file when --config is not given.
const EnvConfigFile = "HDFS_CRUD_CONFIG"

// Config holds runtime settings.
type Config struct {
	// RuntimeMode is "http", "mock" or "auto".
	RuntimeMode    string
	NameNodeURL    string
	User           string
	MockSeed       string
	RequestTimeout time.Duration

	WarmUp  time.Duration
	MaxWait time.Duration

	RecordsDir   string
	DocumentName string

	FilesDir    string
	StagingFile string
	AppendMode  string
	MaxFileSize int64

	ConflictRetries int
	ListPolicy      string
	ListConcurrency int

	KeepAliveInterval time.Duration

	LogFormat string
	LogLevel  string
}

// LoadDefaults populates c with the values of the reference deployment: a
// NameNode container named "namenode" and the root user.
func (c *Config) LoadDefaults() {
	c.RuntimeMode = "http"
	c.NameNodeURL = "http://namenode:9870"
	c.User = "root"
	c.MockSeed = ""
	c.RequestTimeout = 30 * time.Second
	c.WarmUp = 0
	c.MaxWait = 2 * time.Minute
	c.RecordsDir = "/user/data"
	c.DocumentName = "users.json"
	c.FilesDir = "/user/root"
	c.StagingFile = "example.txt"
	c.AppendMode = "rewrite"
	c.MaxFileSize = 64 << 20
	c.ConflictRetries = 3
	c.ListPolicy = "fail-fast"
	c.ListConcurrency = 1
	c.KeepAliveInterval = time.Minute
	c.LogFormat = "text"
	c.LogLevel = "info"
}

// Default returns a Config holding the defaults.
func Default() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

// DocumentPath is the HDFS path of the records document.
func (c *Config) DocumentPath() string {
	return path.Join(c.RecordsDir, c.DocumentName)
}

// Validate reports every inconsistent setting, joined into one error.
func (c *Config) Validate() error {
	var errs []error
	switch c.RuntimeMode {
	case "http", "mock", "auto":
	default:
		errs = append(errs, fmt.Errorf("runtime_mode must be http, mock or auto, got %q", c.RuntimeMode))
	}
	if c.RuntimeMode == "http" {
		if u, err := url.Parse(c.NameNodeURL); err != nil || u.Host == "" {
			errs = append(errs, fmt.Errorf("namenode_url %q is not a valid URL", c.NameNodeURL))
		}
	}
	if !strings.HasPrefix(c.RecordsDir, "/") {
		errs = append(errs, fmt.Errorf("records_dir must be absolute, got %q", c.RecordsDir))
	}
	if !strings.HasPrefix(c.FilesDir, "/") {
		errs = append(errs, fmt.Errorf("files_dir must be absolute, got %q", c.FilesDir))
	}
	if c.DocumentName == "" || strings.Contains(c.DocumentName, "/") {
		errs = append(errs, fmt.Errorf("document_name must be a plain file name, got %q", c.DocumentName))
	}
	if c.StagingFile == "" {
		errs = append(errs, errors.New("staging_file is required"))
	}
	if c.WarmUp < 0 || c.MaxWait <= 0 {
		errs = append(errs, errors.New("warm_up must be >= 0 and max_wait > 0"))
	}
	if c.ConflictRetries < 0 {
		errs = append(errs, errors.New("conflict_retries must be >= 0"))
	}
	if c.ListConcurrency < 1 {
		errs = append(errs, errors.New("list_concurrency must be >= 1"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
