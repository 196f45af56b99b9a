// Package imageio decodes source and watermark images and tracks the
// decoded handles an editing session owns.
package imageio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// MaxDecodeBytes bounds how much a loader reads before giving up.
const MaxDecodeBytes = 64 << 20

// DecodeError reports that an image could not be loaded or decoded.
type DecodeError struct {
	Ref string
	Err error
}

func (e *DecodeError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("failed to read image: %v", e.Err)
	}
	return fmt.Sprintf("failed to read image %s: %v", e.Ref, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err is or wraps a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// Loader resolves a reference (path or URL) to a decoded image.
type Loader interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// Decode reads and decodes one image from r.
func Decode(ref string, r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(io.LimitReader(r, MaxDecodeBytes))
	if err != nil {
		return nil, "", &DecodeError{Ref: ref, Err: err}
	}
	if b := img.Bounds(); b.Empty() {
		return nil, "", &DecodeError{Ref: ref, Err: errors.New("image has no pixels")}
	}
	return img, format, nil
}

// DecodeBytes decodes an in-memory image.
func DecodeBytes(ref string, data []byte) (image.Image, error) {
	img, _, err := Decode(ref, bytes.NewReader(data))
	return img, err
}

var (
	// ErrRemoteDisabled rejects http(s) references when no HTTP loader is
	// configured.
	ErrRemoteDisabled = errors.New("remote images are disabled")
	// ErrHostNotAllowed rejects URLs outside HTTPLoader.AllowedHosts.
	ErrHostNotAllowed = errors.New("image host is not allowed")
)

// FileLoader loads images from the local filesystem. When Root is set,
// references resolve inside it and may not leave it: absolute paths and
// ".." escapes fail.
type FileLoader struct {
	Root string
}

func (l FileLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, &DecodeError{Ref: ref, Err: err}
	}

	file, err := l.open(strings.TrimPrefix(ref, "file://"))
	if err != nil {
		return nil, &DecodeError{Ref: ref, Err: err}
	}
	defer file.Close()

	img, _, err := Decode(ref, file)
	return img, err
}

func (l FileLoader) open(path string) (*os.File, error) {
	if l.Root == "" {
		return os.Open(path)
	}
	root, err := os.OpenRoot(l.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to open image root: %w", err)
	}
	defer root.Close()
	return root.Open(filepath.FromSlash(path))
}

// HTTPLoader fetches images over http(s). A non-empty AllowedHosts limits
// fetches to those host names.
type HTTPLoader struct {
	Client       *http.Client
	AllowedHosts []string
}

func (l HTTPLoader) client() *http.Client {
	if l.Client != nil {
		return l.Client
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (l HTTPLoader) allowed(ref string) error {
	if len(l.AllowedHosts) == 0 {
		return nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return err
	}
	if !slices.Contains(l.AllowedHosts, strings.ToLower(u.Hostname())) {
		return fmt.Errorf("%w: %s", ErrHostNotAllowed, u.Hostname())
	}
	return nil
}

func (l HTTPLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	if err := l.allowed(ref); err != nil {
		return nil, &DecodeError{Ref: ref, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, &DecodeError{Ref: ref, Err: err}
	}
	resp, err := l.client().Do(req)
	if err != nil {
		return nil, &DecodeError{Ref: ref, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &DecodeError{Ref: ref, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	img, _, err := Decode(ref, resp.Body)
	return img, err
}

// MultiLoader dispatches http(s) references to HTTP and everything else to
// File. With a nil HTTP remote references fail with ErrRemoteDisabled.
type MultiLoader struct {
	File FileLoader
	HTTP Loader
}

func (l MultiLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		if l.HTTP == nil {
			return nil, &DecodeError{Ref: ref, Err: ErrRemoteDisabled}
		}
		return l.HTTP.Load(ctx, ref)
	}
	return l.File.Load(ctx, ref)
}

// MapLoader serves images from memory. Unknown references fail with a
// DecodeError.
type MapLoader map[string]image.Image

func (l MapLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	img, ok := l[ref]
	if !ok {
		return nil, &DecodeError{Ref: ref, Err: os.ErrNotExist}
	}
	return img, nil
}
