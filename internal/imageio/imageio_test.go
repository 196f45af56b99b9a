package imageio

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.png"), pngBytes(t, 4, 3), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.png"), []byte("not an image"), 0o644))

	l := FileLoader{Root: dir}

	img, err := l.Load(context.Background(), "ok.png")
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())

	_, err = l.Load(context.Background(), "bad.png")
	require.True(t, IsDecodeError(err), "got %v", err)

	_, err = l.Load(context.Background(), "missing.png")
	require.True(t, IsDecodeError(err), "got %v", err)
}

func TestFileLoaderStaysInsideRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "media")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "posts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(parent, "secret.png"), pngBytes(t, 2, 2), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "posts", "ok.png"), pngBytes(t, 2, 2), 0o644))

	l := FileLoader{Root: root}

	_, err := l.Load(context.Background(), "posts/ok.png")
	require.NoError(t, err)

	for _, ref := range []string{
		"../secret.png",
		"posts/../../secret.png",
		filepath.Join(parent, "secret.png"),
		"file://" + filepath.Join(parent, "secret.png"),
	} {
		_, err := l.Load(context.Background(), ref)
		require.True(t, IsDecodeError(err), "%s: got %v", ref, err)
	}
}

func TestHTTPLoader(t *testing.T) {
	data := pngBytes(t, 2, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	l := MultiLoader{HTTP: HTTPLoader{Client: srv.Client()}}

	img, err := l.Load(context.Background(), srv.URL+"/img.png")
	require.NoError(t, err)
	require.Equal(t, 2, img.Bounds().Dx())

	_, err = l.Load(context.Background(), srv.URL+"/missing.png")
	require.True(t, IsDecodeError(err))
}

func TestRemoteReferencesNeedAnAllowedHost(t *testing.T) {
	ctx := context.Background()

	_, err := MultiLoader{}.Load(ctx, "http://169.254.169.254/latest/meta-data")
	require.ErrorIs(t, err, ErrRemoteDisabled)
	require.True(t, IsDecodeError(err))

	l := MultiLoader{HTTP: HTTPLoader{AllowedHosts: []string{"cdn.example.com"}}}
	_, err = l.Load(ctx, "http://127.0.0.1:1/x.png")
	require.ErrorIs(t, err, ErrHostNotAllowed)
}

func TestTrackerReleasesHandles(t *testing.T) {
	tr := NewTracker()
	loader := MapLoader{"a": image.NewNRGBA(image.Rect(0, 0, 1, 1))}

	h, err := tr.Load(context.Background(), loader, "a")
	require.NoError(t, err)
	require.Equal(t, 1, tr.Live())
	require.NotNil(t, h.Image())

	h.Release()
	h.Release()
	require.Equal(t, 0, tr.Live())
	require.Nil(t, h.Image())
	require.True(t, h.Released())

	_, err = tr.Load(context.Background(), loader, "b")
	require.True(t, IsDecodeError(err))
	require.Equal(t, 0, tr.Live())
}
