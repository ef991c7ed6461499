// Package acquire downloads the source imagery and decodes it into RGBA
// images for the catalog builder.
package acquire

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/swdee/go-deepfield/errdefs"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// HTTPClient sends HTTP requests, *http.Client satisfies it
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Source is a remote image and the file name it is saved as
type Source struct {
	URL      string
	Filename string
}

// DefaultSources returns the JWST first deep field images
func DefaultSources() []Source {
	return []Source{
		{
			URL:      "https://stsci-opo.org/STScI-01G7DDBNAV8SHNRTMT9AHGC5MF.tif",
			Filename: "first-deep-field-nircam.tif",
		},
		{
			URL:      "https://stsci-opo.org/STScI-01G7WE6PKJJ1ZXYKM04SPGMZYD.tif",
			Filename: "first-deep-field-miri.tif",
		},
	}
}

// Library is the list of local image paths in source order
type Library []string

// Path returns the first path containing every tag, or an empty string if
// none match
func (l Library) Path(tags ...string) string {

next:
	for _, p := range l {
		for _, tag := range tags {
			if !strings.Contains(p, tag) {
				continue next
			}
		}

		return p
	}

	return ""
}

// Fetch downloads each source into dir and returns the local paths.  Files
// that already exist with a non zero size are not downloaded again.
func Fetch(ctx context.Context, client HTTPClient, dir string, sources []Source) (Library, error) {

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &errdefs.AcquisitionError{Source: dir, Err: err}
	}

	lib := make(Library, 0, len(sources))

	for _, src := range sources {
		target, err := filepath.Abs(filepath.Join(dir, src.Filename))

		if err != nil {
			return nil, &errdefs.AcquisitionError{Source: src.Filename, Err: err}
		}

		lib = append(lib, target)

		if info, err := os.Stat(target); err == nil && info.Size() > 0 {
			continue
		}

		if err := download(ctx, client, src.URL, target); err != nil {
			return nil, &errdefs.AcquisitionError{Source: src.URL, Err: err}
		}
	}

	return lib, nil
}

// download writes the body of url to target.  The body is written to a
// temporary file first so an interrupted download leaves no partial image.
func download(ctx context.Context, client HTTPClient, url, target string) error {

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)

	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)

	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".*.part")

	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}

	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)

	if cerr := tmp.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}

	if n == 0 {
		return fmt.Errorf("empty response body")
	}

	return os.Rename(tmp.Name(), target)
}

// SourceID identifies the image at path for catalog caching.  It combines
// the file name, size and modification time with maxDim so a replaced file
// or a different downscale never matches an earlier entry.
func SourceID(path string, maxDim int) (string, error) {

	info, err := os.Stat(path)

	if err != nil {
		return "", &errdefs.AcquisitionError{Source: path, Err: err}
	}

	return fmt.Sprintf("%s:%d:%d@%d", filepath.Base(path), info.Size(),
		info.ModTime().UnixNano(), maxDim), nil
}

// Load decodes the image at path into RGBA.  If maxDim is positive and the
// longest side exceeds it the image is downscaled preserving aspect ratio.
func Load(path string, maxDim int) (*image.RGBA, error) {

	f, err := os.Open(path)

	if err != nil {
		return nil, &errdefs.AcquisitionError{Source: path, Err: err}
	}

	defer f.Close()

	img, _, err := image.Decode(f)

	if err != nil {
		return nil, &errdefs.AcquisitionError{Source: path, Err: fmt.Errorf("decode: %w", err)}
	}

	return ToRGBA(img, maxDim), nil
}

// ToRGBA converts img to a 0,0 origin RGBA image, downscaling it so the
// longest side is at most maxDim when maxDim is positive
func ToRGBA(img image.Image, maxDim int) *image.RGBA {

	b := img.Bounds()
	w, h := scaledSize(b.Dx(), b.Dy(), maxDim)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))

	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}

	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)

	return dst
}

// scaledSize returns the dimensions after fitting the longest side to maxDim
func scaledSize(w, h, maxDim int) (int, int) {

	longest := max(w, h)

	if maxDim <= 0 || longest <= maxDim {
		return w, h
	}

	sw := max(1, w*maxDim/longest)
	sh := max(1, h*maxDim/longest)

	return sw, sh
}
