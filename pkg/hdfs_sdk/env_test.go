package hdfs_sdk_test

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ratio1/hdfs_crud_go/pkg/hdfs_sdk"
	"github.com/Ratio1/hdfs_crud_go/pkg/webhdfs/mock"
)

func TestNewFromEnvHTTPMode(t *testing.T) {
	srv := httptest.NewServer(mock.Handler(mock.New()))
	defer srv.Close()

	t.Setenv(hdfs_sdk.EnvMode, "http")
	t.Setenv(hdfs_sdk.EnvNameNodeURL, srv.URL)
	t.Setenv(hdfs_sdk.EnvUser, "")

	client, mode, err := hdfs_sdk.NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, hdfs_sdk.ModeHTTP, mode)
	assert.Equal(t, "root", client.Endpoint().User())

	st, err := client.Status(context.Background(), "/")
	require.NoError(t, err)
	assert.True(t, st.IsDir())
}

func TestNewFromEnvHTTPModeRequiresURL(t *testing.T) {
	t.Setenv(hdfs_sdk.EnvMode, "http")
	t.Setenv(hdfs_sdk.EnvNameNodeURL, "")

	_, _, err := hdfs_sdk.NewFromEnv()
	assert.ErrorContains(t, err, hdfs_sdk.EnvNameNodeURL)
}

func TestNewFromEnvAutoFallsBackToMock(t *testing.T) {
	t.Setenv(hdfs_sdk.EnvMode, "")
	t.Setenv(hdfs_sdk.EnvNameNodeURL, "")
	t.Setenv(hdfs_sdk.EnvMockSeed, "")

	client, mode, err := hdfs_sdk.NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, hdfs_sdk.ModeMock, mode)

	_, err = client.Write(context.Background(), "/user/data/users.json", []byte("[]"), nil)
	require.NoError(t, err)
}

func TestNewFromEnvMockSeed(t *testing.T) {
	seed := "- path: /user/root/example.txt\n  content: \"Hello\\n\"\n- path: /user/data\n  dir: true\n"
	file := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(file, []byte(seed), 0o600))

	t.Setenv(hdfs_sdk.EnvMode, "mock")
	t.Setenv(hdfs_sdk.EnvMockSeed, file)

	client, _, err := hdfs_sdk.NewFromEnv()
	require.NoError(t, err)

	data, err := client.Read(context.Background(), "/user/root/example.txt")
	require.NoError(t, err)
	assert.Equal(t, "Hello\n", string(data))

	ok, err := client.Exists(context.Background(), "/user/data")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewClientRejectsUnknownMode(t *testing.T) {
	_, _, err := hdfs_sdk.NewClient(hdfs_sdk.Options{Mode: "grpc"})
	assert.ErrorContains(t, err, "unsupported")
}
