package customscalar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ParsesScalarMap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scalars.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
DateTime:
  type: string
  format: date-time
JSON:
  type: object
`), 0o644))

	scalars, err := Load(path)
	require.NoError(t, err)
	require.Contains(t, scalars, "DateTime")
	assert.Equal(t, "string", scalars["DateTime"]["type"])
	assert.Equal(t, "date-time", scalars["DateTime"]["format"])
	assert.Equal(t, "object", scalars["JSON"]["type"])
}

func TestLoad_MissingPathReturnsNil(t *testing.T) {
	scalars, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Nil(t, scalars)
}

func TestLoad_EmptyPathReturnsNil(t *testing.T) {
	scalars, err := Load("")
	require.NoError(t, err)
	assert.Nil(t, scalars)
}
