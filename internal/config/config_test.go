package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http", c.RuntimeMode)
	assert.Equal(t, "http://namenode:9870", c.NameNodeURL)
	assert.Equal(t, "root", c.User)
	assert.Equal(t, "/user/data", c.RecordsDir)
	assert.Equal(t, "users.json", c.DocumentName)
	assert.Equal(t, "/user/data/users.json", c.DocumentPath())
	assert.Equal(t, "/user/root", c.FilesDir)
	assert.Equal(t, "example.txt", c.StagingFile)
	assert.Equal(t, time.Duration(0), c.WarmUp)
	assert.Equal(t, 2*time.Minute, c.MaxWait)
	assert.Equal(t, "fail-fast", c.ListPolicy)
	require.NoError(t, c.Validate())
}

func TestLoadFileYAML(t *testing.T) {
	p := writeFile(t, "cfg.yaml", `
namenode_url: http://localhost:9870
warm_up: 5s
max_file_size: 1024
conflict_retries: 5
`)
	c := Default()
	require.NoError(t, c.LoadFile(p))

	assert.Equal(t, "http://localhost:9870", c.NameNodeURL)
	assert.Equal(t, 5*time.Second, c.WarmUp)
	assert.EqualValues(t, 1024, c.MaxFileSize)
	assert.Equal(t, 5, c.ConflictRetries)
	assert.Equal(t, "root", c.User, "keys absent from the file keep their value")
}

func TestLoadFileJSON(t *testing.T) {
	p := writeFile(t, "cfg.json", `{"user": "hdfs", "max_wait": "30s"}`)
	c := Default()
	require.NoError(t, c.LoadFile(p))
	assert.Equal(t, "hdfs", c.User)
	assert.Equal(t, 30*time.Second, c.MaxWait)
}

func TestLoadFileErrors(t *testing.T) {
	c := Default()
	assert.Error(t, c.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.ErrorContains(t, c.LoadFile(writeFile(t, "a.yaml", "bogus_key: 1\n")), "unknown key")
	assert.ErrorContains(t, c.LoadFile(writeFile(t, "b.yaml", "max_wait: soon\n")), "max_wait")
}

func TestLoadEnv(t *testing.T) {
	c := Default()
	err := c.LoadEnv(envMap(map[string]string{
		"HDFS_NAMENODE_URL": "http://nn:50070",
		"HDFS_RUNTIME_MODE": "mock",
		"HDFS_WARM_UP":      "",
	}))
	require.NoError(t, err)
	assert.Equal(t, "http://nn:50070", c.NameNodeURL)
	assert.Equal(t, "mock", c.RuntimeMode)
	assert.Equal(t, time.Duration(0), c.WarmUp)

	err = c.LoadEnv(envMap(map[string]string{"HDFS_LIST_CONCURRENCY": "many"}))
	assert.ErrorContains(t, err, "HDFS_LIST_CONCURRENCY")
}

func TestLoadPrecedence(t *testing.T) {
	file := writeFile(t, "cfg.yaml", "user: from-file\nrecords_dir: /file/dir\nwarm_up: 1s\n")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config", file, "--warm-up", "3s"}))

	c, err := Load(flags, envMap(map[string]string{
		"HDFS_USER":    "from-env",
		"HDFS_WARM_UP": "2s",
	}))
	require.NoError(t, err)

	assert.Equal(t, "/file/dir", c.RecordsDir, "file overrides defaults")
	assert.Equal(t, "from-env", c.User, "env overrides file")
	assert.Equal(t, 3*time.Second, c.WarmUp, "flags override env")
	assert.Equal(t, "users.json", c.DocumentName)
}

func TestLoadConfigFileFromEnv(t *testing.T) {
	file := writeFile(t, "cfg.yaml", "document_name: people.json\n")
	c, err := Load(nil, envMap(map[string]string{EnvConfigFile: file}))
	require.NoError(t, err)
	assert.Equal(t, "/user/data/people.json", c.DocumentPath())
}

func TestFlagRejectsBadValue(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	BindFlags(fs)
	assert.Error(t, fs.Parse([]string{"--max-wait", "forever"}))
}

func TestValidate(t *testing.T) {
	c := Default()
	c.RuntimeMode = "grpc"
	c.RecordsDir = "relative"
	c.ListConcurrency = 0
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "runtime_mode")
	assert.Contains(t, err.Error(), "records_dir")
	assert.Contains(t, err.Error(), "list_concurrency")

	c = Default()
	c.RuntimeMode = "mock"
	c.NameNodeURL = ""
	assert.NoError(t, c.Validate(), "mock mode needs no NameNode URL")
}
