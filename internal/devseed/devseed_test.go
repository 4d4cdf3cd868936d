package devseed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseYAML(t *testing.T) {
	raw := []byte(`
- path: /user/data
  dir: true
- path: /user/data/users.json
  content: '[{"name":"Ali"}]'
- path: /user/root/example.txt
  base64: SGVsbG8K
`)
	entries, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.True(t, entries[0].Dir)

	data, err := entries[1].Data()
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"Ali"}]`, string(data))

	data, err = entries[2].Data()
	require.NoError(t, err)
	assert.Equal(t, "Hello\n", string(data))
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"path":"/a.txt","content":"x"}]`), 0o600))

	entries, err := Load(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "/a.txt", entries[0].Path)
}

func TestParseRejectsInvalidEntries(t *testing.T) {
	_, err := Parse([]byte(`[{"content":"x"}]`))
	assert.Error(t, err)

	_, err = Parse([]byte(`[{"path":"/d","dir":true,"content":"x"}]`))
	assert.Error(t, err)

	_, err = Parse([]byte(`[{"path":"/f","base64":"!!"}]`))
	require.NoError(t, err)
	entries, _ := Parse([]byte(`[{"path":"/f","base64":"!!"}]`))
	_, err = entries[0].Data()
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
