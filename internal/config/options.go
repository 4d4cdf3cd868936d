package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// option is one setting reachable from the file, the environment and flags.
// The file key is the name, the flag replaces "_" with "-" and the
// environment variable is HDFS_ plus the upper-cased name.
type option struct {
	name  string
	usage string
	get   func(*Config) string
	set   func(*Config, string) error
}

func (o option) flag() string { return strings.ReplaceAll(o.name, "_", "-") }
func (o option) env() string  { return "HDFS_" + strings.ToUpper(o.name) }

func stringOpt(name, usage string, field func(*Config) *string) option {
	return option{
		name:  name,
		usage: usage,
		get:   func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			*field(c) = strings.TrimSpace(v)
			return nil
		},
	}
}

func durationOpt(name, usage string, field func(*Config) *time.Duration) option {
	return option{
		name:  name,
		usage: usage,
		get:   func(c *Config) string { return field(c).String() },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*field(c) = d
			return nil
		},
	}
}

func intOpt(name, usage string, field func(*Config) *int) option {
	return option{
		name:  name,
		usage: usage,
		get:   func(c *Config) string { return strconv.Itoa(*field(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*field(c) = n
			return nil
		},
	}
}

func int64Opt(name, usage string, field func(*Config) *int64) option {
	return option{
		name:  name,
		usage: usage,
		get:   func(c *Config) string { return strconv.FormatInt(*field(c), 10) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*field(c) = n
			return nil
		},
	}
}

var options = []option{
	stringOpt("runtime_mode", "backend: http, mock (in-memory) or auto", func(c *Config) *string { return &c.RuntimeMode }),
	stringOpt("namenode_url", "WebHDFS base URL of the NameNode", func(c *Config) *string { return &c.NameNodeURL }),
	stringOpt("user", "HDFS user sent as user.name", func(c *Config) *string { return &c.User }),
	stringOpt("mock_seed", "seed file for the in-memory backend", func(c *Config) *string { return &c.MockSeed }),
	durationOpt("request_timeout", "per-request HTTP timeout", func(c *Config) *time.Duration { return &c.RequestTimeout }),
	durationOpt("warm_up", "delay before the first liveness check", func(c *Config) *time.Duration { return &c.WarmUp }),
	durationOpt("max_wait", "how long to poll the NameNode before giving up", func(c *Config) *time.Duration { return &c.MaxWait }),
	stringOpt("records_dir", "HDFS directory holding the records document", func(c *Config) *string { return &c.RecordsDir }),
	stringOpt("document_name", "file name of the records document", func(c *Config) *string { return &c.DocumentName }),
	stringOpt("files_dir", "HDFS directory the staged file is uploaded to", func(c *Config) *string { return &c.FilesDir }),
	stringOpt("staging_file", "local staging file", func(c *Config) *string { return &c.StagingFile }),
	stringOpt("append_mode", "file append strategy: rewrite or native", func(c *Config) *string { return &c.AppendMode }),
	int64Opt("max_file_size", "largest remote file the files flow will write, in bytes", func(c *Config) *int64 { return &c.MaxFileSize }),
	intOpt("conflict_retries", "retries after a concurrent modification", func(c *Config) *int { return &c.ConflictRetries }),
	stringOpt("list_policy", "listing failure policy: fail-fast or best-effort", func(c *Config) *string { return &c.ListPolicy }),
	intOpt("list_concurrency", "parallel status lookups while listing", func(c *Config) *int { return &c.ListConcurrency }),
	durationOpt("keep_alive_interval", "tick of the keep-alive idle loop", func(c *Config) *time.Duration { return &c.KeepAliveInterval }),
	stringOpt("log_format", "log format: text or json", func(c *Config) *string { return &c.LogFormat }),
	stringOpt("log_level", "log level: debug, info, warn or error", func(c *Config) *string { return &c.LogLevel }),
}

func lookupOption(name string) (option, bool) {
	for _, o := range options {
		if o.name == name {
			return o, true
		}
	}
	return option{}, false
}
