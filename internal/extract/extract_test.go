package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupported(t *testing.T) {
	assert.True(t, Supported("doc.pdf"))
	assert.True(t, Supported("notes.TXT"))
	assert.True(t, Supported("readme.md"))
	assert.False(t, Supported("image.png"))
	assert.False(t, Supported("archive"))
}

func TestPages_PlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	pages, err := Pages(path)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, "hello world", pages[0].Text)
}

func TestPages_UnsupportedType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.png")
	require.NoError(t, os.WriteFile(path, []byte{0x89}, 0o644))

	_, err := Pages(path)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestPages_MissingFile(t *testing.T) {
	_, err := Pages(filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}
