package media

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 transparent PNG.
var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func TestSaveAvatar(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root, "/media/", 1024)

	rel, err := store.SaveAvatarBytes(pngPixel)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "avatars/"))
	assert.True(t, strings.HasSuffix(rel, ".png"))

	data, err := os.ReadFile(filepath.Join(root, rel))
	require.NoError(t, err)
	assert.Equal(t, pngPixel, data)
	assert.Equal(t, "/media/"+rel, store.URL(rel))
	assert.Equal(t, "", store.URL(""))

	require.NoError(t, store.Remove(rel))
	require.NoError(t, store.Remove(rel))
}

func TestSaveAvatarRejects(t *testing.T) {
	store := NewStore(t.TempDir(), "/media", 32)

	_, err := store.SaveAvatarBytes([]byte("<html><script>alert(1)</script></html>"))
	assert.ErrorIs(t, err, ErrTooLarge)

	store = NewStore(t.TempDir(), "/media", 1024)
	_, err = store.SaveAvatarBytes([]byte("plain text pretending to be an image"))
	assert.ErrorIs(t, err, ErrUnsupported)
}
