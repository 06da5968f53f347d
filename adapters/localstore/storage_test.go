package localstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"dashsync/internal/errors"
	"dashsync/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileStorage(dir, nil)

	require.NoError(t, store.Put(ctx, "RD History.csv", []byte("Website\na.com\n"), "text/csv"))
	require.NoError(t, store.Put(ctx, "RD History.csv", []byte("Website\nb.com\n"), "text/csv"))

	data, err := store.Get(ctx, "RD History.csv")
	require.NoError(t, err)
	assert.Equal(t, "Website\nb.com\n", string(data))

	info, err := store.Head(ctx, "RD History.csv")
	require.NoError(t, err)
	assert.Equal(t, int64(14), info.Size)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFileStorageMissing(t *testing.T) {
	store := NewFileStorage(t.TempDir(), nil)

	_, err := store.Get(context.Background(), "sync-log.json")
	assert.True(t, errors.Is(err, ports.ErrNotFound))

	_, err = store.Head(context.Background(), "sync-log.json")
	assert.True(t, errors.Is(err, ports.ErrNotFound))
}

func TestFileStorageRejectsEscapingKeys(t *testing.T) {
	store := NewFileStorage(t.TempDir(), nil)

	for _, key := range []string{"", "../secret", "/etc/passwd", filepath.Join("..", "..", "x")} {
		err := store.Put(context.Background(), key, []byte("x"), "text/plain")
		assert.True(t, errors.HasCode(err, errors.CodeInvalidInput), "key %q", key)
	}
}
