package preprocess

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/swdee/go-deepfield/errdefs"
)

var (
	black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// newTestImage returns a black image with the given white rectangles drawn on it
func newTestImage(width, height int, rects ...image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, black)
		}
	}

	for _, r := range rects {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				img.SetRGBA(x, y, white)
			}
		}
	}

	return img
}

func TestPreprocessSingleSquare(t *testing.T) {

	img := newTestImage(10, 10, image.Rect(2, 2, 7, 7))

	cfg := Config{
		BlurKernelSize:  1,
		Threshold:       128,
		MorphKernelSize: 3,
	}

	res, err := Preprocess(img, cfg)

	if err != nil {
		t.Fatalf("Preprocess failed: %v", err)
	}

	if res.Mask.Width != 10 || res.Mask.Height != 10 {
		t.Fatalf("expected 10x10 mask, got %dx%d", res.Mask.Width, res.Mask.Height)
	}

	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			var expected uint8
			if x >= 2 && x < 7 && y >= 2 && y < 7 {
				expected = 1
			}

			if got := res.Mask.At(x, y); got != expected {
				t.Errorf("pixel (%d,%d) expected %d, got %d", x, y, expected, got)
			}
		}
	}

	if res.Thresholded.Count() != 25 {
		t.Errorf("expected 25 thresholded pixels, got %d", res.Thresholded.Count())
	}
}

func TestPreprocessStrictlyBinary(t *testing.T) {

	img := newTestImage(32, 32, image.Rect(4, 4, 12, 12), image.Rect(20, 18, 29, 30))

	res, err := Preprocess(img, DefaultConfig())

	if err != nil {
		t.Fatalf("Preprocess failed: %v", err)
	}

	for i, v := range res.Mask.Pix {
		if v != 0 && v != 1 {
			t.Fatalf("mask value at %d is %d, expected 0 or 1", i, v)
		}
	}

	if res.Mask.Count() == 0 {
		t.Errorf("expected foreground pixels in mask")
	}
}

func TestPreprocessThresholdInclusive(t *testing.T) {

	img := newTestImage(4, 4)
	img.SetRGBA(1, 1, color.RGBA{R: 128, G: 128, B: 128, A: 255})
	img.SetRGBA(2, 2, color.RGBA{R: 127, G: 127, B: 127, A: 255})

	res, err := Preprocess(img, Config{BlurKernelSize: 1, Threshold: 128, MorphKernelSize: 3})

	if err != nil {
		t.Fatalf("Preprocess failed: %v", err)
	}

	if res.Mask.At(1, 1) != 1 {
		t.Errorf("expected luminance equal to threshold to be foreground")
	}

	if res.Mask.At(2, 2) != 0 {
		t.Errorf("expected luminance below threshold to be background")
	}
}

func TestPreprocessErodeRemovesSpeckle(t *testing.T) {

	img := newTestImage(20, 20, image.Rect(3, 3, 10, 10), image.Rect(15, 15, 16, 16))

	cfg := Config{
		BlurKernelSize:   1,
		Threshold:        128,
		ErodeIterations:  1,
		DilateIterations: 1,
		MorphKernelSize:  3,
	}

	res, err := Preprocess(img, cfg)

	if err != nil {
		t.Fatalf("Preprocess failed: %v", err)
	}

	if res.Mask.At(15, 15) != 0 {
		t.Errorf("expected isolated pixel to be eroded away")
	}

	// erode then dilate with the same element restores the square
	if res.Mask.Count() != 49 {
		t.Errorf("expected 49 foreground pixels, got %d", res.Mask.Count())
	}

	// debug mask is taken before morphology so still has the speckle
	if res.Thresholded.At(15, 15) != 1 {
		t.Errorf("expected thresholded mask to keep the speckle")
	}
}

func TestPreprocessDilateJoinsFragments(t *testing.T) {

	// two blobs separated by a one pixel gap
	img := newTestImage(20, 10, image.Rect(2, 2, 8, 8), image.Rect(9, 2, 15, 8))

	cfg := Config{
		BlurKernelSize:   1,
		Threshold:        128,
		DilateIterations: 1,
		MorphKernelSize:  3,
	}

	res, err := Preprocess(img, cfg)

	if err != nil {
		t.Fatalf("Preprocess failed: %v", err)
	}

	if res.Mask.At(8, 4) != 1 {
		t.Errorf("expected gap pixel to be filled by dilation")
	}
}

func TestConfigValidate(t *testing.T) {

	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{"even kernel", Config{BlurKernelSize: 4, Threshold: 10, MorphKernelSize: 3}, "blurKernelSize"},
		{"zero kernel", Config{BlurKernelSize: 0, Threshold: 10, MorphKernelSize: 3}, "blurKernelSize"},
		{"negative kernel", Config{BlurKernelSize: -3, Threshold: 10, MorphKernelSize: 3}, "blurKernelSize"},
		{"threshold high", Config{BlurKernelSize: 3, Threshold: 256, MorphKernelSize: 3}, "threshold"},
		{"threshold low", Config{BlurKernelSize: 3, Threshold: -1, MorphKernelSize: 3}, "threshold"},
		{"negative erode", Config{BlurKernelSize: 3, ErodeIterations: -1, MorphKernelSize: 3}, "erodeIterations"},
		{"negative dilate", Config{BlurKernelSize: 3, DilateIterations: -1, MorphKernelSize: 3}, "dilateIterations"},
		{"even morph kernel", Config{BlurKernelSize: 3, MorphKernelSize: 2}, "morphKernelSize"},
		{"valid", DefaultConfig(), ""},
	}

	for _, tc := range tests {
		err := tc.cfg.Validate()

		if tc.field == "" {
			if err != nil {
				t.Errorf("%s: expected no error, got %v", tc.name, err)
			}
			continue
		}

		var cfgErr *errdefs.ConfigError

		if !errors.As(err, &cfgErr) {
			t.Errorf("%s: expected ConfigError, got %v", tc.name, err)
			continue
		}

		if cfgErr.Field != tc.field {
			t.Errorf("%s: expected field %s, got %s", tc.name, tc.field, cfgErr.Field)
		}
	}
}

func TestPreprocessRejectsConfigBeforeWork(t *testing.T) {

	_, err := Preprocess(newTestImage(4, 4), Config{BlurKernelSize: 2, MorphKernelSize: 3})

	var cfgErr *errdefs.ConfigError

	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestCompactSubImage(t *testing.T) {

	img := newTestImage(10, 10, image.Rect(4, 4, 6, 6))
	sub := img.SubImage(image.Rect(3, 3, 8, 8)).(*image.RGBA)

	c := Compact(sub)

	if c.Bounds() != image.Rect(0, 0, 5, 5) {
		t.Fatalf("expected bounds 0,0-5,5, got %v", c.Bounds())
	}

	if c.RGBAAt(1, 1) != white || c.RGBAAt(0, 0) != black {
		t.Errorf("compacted pixels do not match source")
	}

	if Compact(img) != img {
		t.Errorf("expected compact image to be returned unchanged")
	}
}
