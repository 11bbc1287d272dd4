package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"mermaidrender/internal/ports"
)

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	fs := New(root)
	require.Equal(t, "localfs", fs.Provider())

	out, err := fs.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   "renders/abc.png",
		ContentType: "image/png",
		Reader:      strings.NewReader("\x89PNG\r\n\x1a\nimage"),
	})
	require.NoError(t, err)
	require.Equal(t, "renders/abc.png", out.ObjectKey)
	require.Equal(t, int64(13), out.Size)

	rc, ct, size, err := fs.GetObject(ctx, out.ObjectKey)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, "image/png", ct)
	require.Equal(t, int64(13), size)
	require.Equal(t, "\x89PNG\r\n\x1a\nimage", string(body))

	// No temporary files are left next to the object.
	entries, err := os.ReadDir(filepath.Join(root, "renders"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, fs.DeleteObject(ctx, out.ObjectKey))
	_, _, _, err = fs.GetObject(ctx, out.ObjectKey)
	require.ErrorIs(t, err, os.ErrNotExist)
	require.ErrorIs(t, fs.DeleteObject(ctx, out.ObjectKey), os.ErrNotExist)
}

func TestPutOverwrites(t *testing.T) {
	ctx := context.Background()
	fs := New(t.TempDir())

	for _, body := range []string{"first", "second"} {
		_, err := fs.PutObject(ctx, ports.PutObjectInput{ObjectKey: "renders/x.png", Reader: strings.NewReader(body)})
		require.NoError(t, err)
	}

	rc, _, _, err := fs.GetObject(ctx, "renders/x.png")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "second", string(body))
}

func TestGetSniffsUnknownExtension(t *testing.T) {
	ctx := context.Background()
	fs := New(t.TempDir())

	_, err := fs.PutObject(ctx, ports.PutObjectInput{ObjectKey: "renders/blob", Reader: strings.NewReader("\x89PNG\r\n\x1a\n0000")})
	require.NoError(t, err)

	rc, ct, _, err := fs.GetObject(ctx, "renders/blob")
	require.NoError(t, err)
	defer rc.Close()
	require.Equal(t, "image/png", ct)

	// The sniffed bytes are still readable.
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Len(t, body, 12)
}

func TestRejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	fs := New(t.TempDir())

	for _, key := range []string{"", "../outside.png", "renders/../../outside.png", "/etc/passwd"} {
		_, err := fs.PutObject(ctx, ports.PutObjectInput{ObjectKey: key, Reader: strings.NewReader("x")})
		require.Error(t, err, key)
		_, _, _, err = fs.GetObject(ctx, key)
		require.Error(t, err, key)
		require.Error(t, fs.DeleteObject(ctx, key), key)
	}
}
