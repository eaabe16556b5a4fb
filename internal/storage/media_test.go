package storage

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func TestInspectMedia(t *testing.T) {
	t.Parallel()

	allowed := []string{"image/png", "image/jpeg"}

	t.Run("by extension", func(t *testing.T) {
		t.Parallel()
		p := writeTemp(t, "a.PNG", pngHeader)

		mf, err := InspectMedia(p, 1024, allowed)
		require.NoError(t, err)
		require.Equal(t, "image/png", mf.ContentType)
		require.Equal(t, ".png", mf.Ext)
		require.EqualValues(t, len(pngHeader), mf.Size)
	})

	t.Run("sniffed without extension", func(t *testing.T) {
		t.Parallel()
		p := writeTemp(t, "upload", pngHeader)

		mf, err := InspectMedia(p, 1024, allowed)
		require.NoError(t, err)
		require.Equal(t, "image/png", mf.ContentType)
		require.Equal(t, ".png", mf.Ext)
	})

	t.Run("type not allowed", func(t *testing.T) {
		t.Parallel()
		p := writeTemp(t, "doc.txt", []byte("hello"))

		_, err := InspectMedia(p, 1024, allowed)
		require.ErrorIs(t, err, ErrInvalidMedia)
	})

	t.Run("too big", func(t *testing.T) {
		t.Parallel()
		p := writeTemp(t, "a.png", pngHeader)

		_, err := InspectMedia(p, 4, allowed)
		require.ErrorIs(t, err, ErrInvalidMedia)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		p := writeTemp(t, "a.png", nil)

		_, err := InspectMedia(p, 1024, allowed)
		require.ErrorIs(t, err, ErrInvalidMedia)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := InspectMedia(filepath.Join(t.TempDir(), "nope.png"), 1024, allowed)
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrInvalidMedia)
	})
}

func TestMediaKey(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)
	key := MediaKey(now, ".png")
	require.Regexp(t, regexp.MustCompile(`^media/2026/03/[0-9a-f-]{36}\.png$`), key)
	require.NotEqual(t, key, MediaKey(now, ".png"))
}

func TestPublicURL(t *testing.T) {
	t.Parallel()

	require.Equal(t, "http://cdn.local/media/x.png", PublicURL("http://cdn.local/", "media/x.png"))
	require.Equal(t, "http://cdn.local/media/x.png", PublicURL("http://cdn.local", "media/x.png"))
}
