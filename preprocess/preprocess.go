package preprocess

import (
	"image"

	"github.com/swdee/go-deepfield/errdefs"
	"gocv.io/x/gocv"
)

// Config defines the parameters used to turn the source image into a binary
// foreground mask
type Config struct {
	// BlurKernelSize is the width and height of the Gaussian blur kernel, it
	// must be odd and positive.  A value of 1 disables blurring
	BlurKernelSize int `yaml:"blurKernelSize"`
	// Threshold is the luminance value from 0 to 255 at or above which a
	// pixel becomes foreground
	Threshold int `yaml:"threshold"`
	// ErodeIterations is the number of erosion passes used to remove speckle
	ErodeIterations int `yaml:"erodeIterations"`
	// DilateIterations is the number of dilation passes used to rejoin
	// fragmented blobs, typically larger than ErodeIterations
	DilateIterations int `yaml:"dilateIterations"`
	// MorphKernelSize is the size of the rectangular structuring element used
	// for erosion and dilation
	MorphKernelSize int `yaml:"morphKernelSize"`
}

// DefaultConfig returns the preprocessing parameters tuned for the JWST deep
// field imagery
func DefaultConfig() Config {
	return Config{
		BlurKernelSize:   5,
		Threshold:        60,
		ErodeIterations:  1,
		DilateIterations: 3,
		MorphKernelSize:  3,
	}
}

// Validate checks the configuration and returns an errdefs.ConfigError
// describing the first invalid parameter
func (c Config) Validate() error {

	if c.BlurKernelSize <= 0 || c.BlurKernelSize%2 == 0 {
		return errdefs.NewConfigError("blurKernelSize",
			"must be an odd positive integer, got %d", c.BlurKernelSize)
	}

	if c.Threshold < 0 || c.Threshold > 255 {
		return errdefs.NewConfigError("threshold",
			"must be in range 0-255, got %d", c.Threshold)
	}

	if c.ErodeIterations < 0 {
		return errdefs.NewConfigError("erodeIterations",
			"must not be negative, got %d", c.ErodeIterations)
	}

	if c.DilateIterations < 0 {
		return errdefs.NewConfigError("dilateIterations",
			"must not be negative, got %d", c.DilateIterations)
	}

	if c.MorphKernelSize <= 0 || c.MorphKernelSize%2 == 0 {
		return errdefs.NewConfigError("morphKernelSize",
			"must be an odd positive integer, got %d", c.MorphKernelSize)
	}

	return nil
}

// Result holds the outputs of preprocessing
type Result struct {
	// Mask is the final foreground mask after morphology
	Mask *Mask
	// Thresholded is the mask straight after binarization, before erosion
	// and dilation.  Kept as a debug artifact
	Thresholded *Mask
}

// Preprocess converts the source image into a binary foreground mask.  The
// image is reduced to luminance, blurred, thresholded, eroded then dilated,
// and finally re-binarized so the mask is strictly two valued.
func Preprocess(src *image.RGBA, cfg Config) (*Result, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rgba, err := MatFromRGBA(src)

	if err != nil {
		return nil, err
	}

	defer rgba.Close()

	// single channel luminance using Rec.601 weights
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(rgba, &gray, gocv.ColorRGBAToGray)

	// suppress sensor and compression noise
	blurred := gocv.NewMat()
	defer blurred.Close()
	ksize := image.Pt(cfg.BlurKernelSize, cfg.BlurKernelSize)
	gocv.GaussianBlur(gray, &blurred, ksize, 0, 0, gocv.BorderDefault)

	// ThresholdBinary keeps values strictly greater than thresh, so shift by
	// one to make the threshold inclusive
	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(blurred, &binary, float32(cfg.Threshold-1), 255, gocv.ThresholdBinary)

	thresholded := maskFromMat(binary)

	morphed := binary.Clone()
	defer morphed.Close()

	kernel := gocv.GetStructuringElement(gocv.MorphRect,
		image.Pt(cfg.MorphKernelSize, cfg.MorphKernelSize))
	defer kernel.Close()

	for i := 0; i < cfg.ErodeIterations; i++ {
		gocv.Erode(morphed, &morphed, kernel)
	}

	for i := 0; i < cfg.DilateIterations; i++ {
		gocv.Dilate(morphed, &morphed, kernel)
	}

	// re-binarize to guarantee a strict 0/1 result after morphology
	final := gocv.NewMat()
	defer final.Close()
	gocv.Threshold(morphed, &final, 127, 1, gocv.ThresholdBinary)

	return &Result{
		Mask:        maskFromMat(final),
		Thresholded: thresholded,
	}, nil
}
