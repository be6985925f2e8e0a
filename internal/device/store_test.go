package device

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/haulgate/internal/models"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get("missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, s.Set("k", "v"))
	v, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestFileStore_RoundTripAndPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "device.json")
	s := NewFileStore(path)

	_, err := s.Get(DeviceIDKey)
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, s.Set(DeviceIDKey, "abc"))
	require.NoError(t, s.Set("other", "xyz"))

	v, err := NewFileStore(path).Get(DeviceIDKey)
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
}

func TestFileStore_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Get(DeviceIDKey)
	assert.ErrorIs(t, err, models.ErrStorage)
}

func TestFileStore_CorruptDocumentFallsBackInProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	p := NewProvider(NewFileStore(path), browserEnv(), discardLogger())
	assert.NotEmpty(t, p.GetOrCreateDeviceID())
}
