package dockerprovider

import (
	"archive/tar"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrapScriptStartsExecdInBackgroundThenExecs(t *testing.T) {
	script := bootstrapScript()
	assert.Contains(t, script, execdPath+" >/tmp/execd.log 2>&1 &")
	assert.Contains(t, script, `exec "$@"`)
}

func writeTar(t *testing.T, entries map[string][]byte) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, body := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Size: int64(len(body)), Mode: 0755}))
		_, err := tw.Write(body)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return &buf
}

func TestExtractSingleFileFromTarReturnsFirstRegularFile(t *testing.T) {
	buf := writeTar(t, map[string][]byte{"execd": []byte("binary-contents")})

	data, err := extractSingleFileFromTar(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("binary-contents"), data)
}

func TestExtractSingleFileFromTarEmptyArchiveErrors(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.Close())

	_, err := extractSingleFileFromTar(&buf)
	assert.Error(t, err)
}
