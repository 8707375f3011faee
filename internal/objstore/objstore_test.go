package objstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierapp/atelier-server/internal/errors"
)

func TestDisk_List(t *testing.T) {
	d, err := NewDisk(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, d.Write("styles/1700000000000-abc123-oak-0.png", []byte("png")))
	require.NoError(t, d.Write("styles/1700000000000-abc123-oak-1.png", []byte("png")))
	require.NoError(t, d.Write("materials/1700000000000-ff00aa-brass-0.png", []byte("png")))

	objects, err := d.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, objects, 3)

	// Sorted by path.
	assert.Equal(t, "materials/1700000000000-ff00aa-brass-0.png", objects[0].Path)
	assert.Equal(t, int64(3), objects[0].SizeBytes)
	assert.False(t, objects[0].LastModified.IsZero())
}

func TestDisk_List_Prefix(t *testing.T) {
	d, err := NewDisk(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, d.Write("styles/a-0.png", []byte("x")))
	require.NoError(t, d.Write("materials/b-0.png", []byte("x")))

	objects, err := d.List(context.Background(), "styles/")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "styles/a-0.png", objects[0].Path)
}

func TestDisk_List_Restartable(t *testing.T) {
	d, err := NewDisk(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, d.Write("a-0.png", []byte("x")))

	first, err := d.List(context.Background(), "")
	require.NoError(t, err)
	second, err := d.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDisk_List_Cancelled(t *testing.T) {
	d, err := NewDisk(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = d.List(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDisk_List_MissingRoot(t *testing.T) {
	d := &Disk{root: "/nonexistent/atelier-test-root"}
	_, err := d.List(context.Background(), "")
	assert.ErrorIs(t, err, errors.ErrStorageUnavailable)
}
