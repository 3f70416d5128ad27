package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	store.now = func() time.Time { return time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	key, size, err := store.Save(ctx, "Lease.PDF", strings.NewReader("contract body"))
	require.NoError(t, err)
	assert.Equal(t, int64(13), size)
	assert.True(t, strings.HasPrefix(key, "documents/2025/06/"))
	assert.True(t, strings.HasSuffix(key, ".pdf"))

	rc, err := store.Open(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "contract body", string(data))

	require.NoError(t, store.Delete(ctx, key))
	_, err = os.Stat(filepath.Join(store.root, filepath.FromSlash(key)))
	assert.True(t, os.IsNotExist(err))

	// 重复删除不报错
	assert.NoError(t, store.Delete(ctx, key))
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../etc/passwd", "documents/../../x", "/abs", "a\\b"} {
		_, err := store.Open(context.Background(), key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}
