package gcov

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFile_Plain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "libmath.gcov.json")
	require.NoError(t, os.WriteFile(path, []byte(mathlibDoc), 0o644))

	data, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, mathlibDoc, string(data))
}

func TestReadFile_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "libmath.gcov.json.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(mathlibDoc))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	data, err := ReadFile(path)
	require.NoError(t, err)

	doc, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "libmath.so", doc.DataFile)
}

func TestReadFile_BadGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.gcov.json.gz")
	require.NoError(t, os.WriteFile(path, []byte("not gzip"), 0o644))

	_, err := ReadFile(path)
	assert.Error(t, err)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.gcov.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
