// Package layout maps feature bounding boxes from pixel space into positions
// in a 3D scene.  The depth assigned to each feature is a cosmetic heuristic
// and not an estimate of physical distance.
package layout

import (
	"math"

	"github.com/swdee/go-deepfield/errdefs"
	"github.com/swdee/go-deepfield/postprocess"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Config defines the constants of the pixel to scene transform
type Config struct {
	// CenterX and CenterY are subtracted from a box's top left corner before
	// scaling so the image is centered near the scene origin
	CenterX float64 `yaml:"centerX"`
	CenterY float64 `yaml:"centerY"`
	// PositionDivisor scales pixel offsets into scene units
	PositionDivisor float64 `yaml:"positionDivisor"`
	// SizeDivisor scales box width and height into scene units
	SizeDivisor float64 `yaml:"sizeDivisor"`
	// DepthMin and DepthMax bound the random depth draw.  Negative values
	// are in front of the viewer
	DepthMin float64 `yaml:"depthMin"`
	DepthMax float64 `yaml:"depthMax"`
	// DepthDecimals is the number of decimal places the depth draw is
	// rounded to
	DepthDecimals int `yaml:"depthDecimals"`
	// BiasFactor scales the (w*h)^(1/6) divisor applied to the depth
	BiasFactor float64 `yaml:"biasFactor"`
}

// DefaultConfig returns the layout constants for a scene a few units across.
// CenterX and CenterY are left at zero, the catalog builder replaces zero
// values with the center of the source image.
func DefaultConfig() Config {
	return Config{
		PositionDivisor: 1000,
		SizeDivisor:     1000,
		DepthMin:        -6.0,
		DepthMax:        -1.5,
		DepthDecimals:   2,
		BiasFactor:      0.5,
	}
}

// Validate returns an errdefs.ConfigError if any constant would produce a
// non finite placement
func (c Config) Validate() error {

	for _, f := range []struct {
		name string
		v    float64
	}{
		{"centerX", c.CenterX},
		{"centerY", c.CenterY},
		{"depthMin", c.DepthMin},
		{"depthMax", c.DepthMax},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return errdefs.NewConfigError(f.name, "must be finite, got %v", f.v)
		}
	}

	if !(c.PositionDivisor > 0) || math.IsInf(c.PositionDivisor, 0) {
		return errdefs.NewConfigError("positionDivisor", "must be positive, got %v", c.PositionDivisor)
	}

	if !(c.SizeDivisor > 0) || math.IsInf(c.SizeDivisor, 0) {
		return errdefs.NewConfigError("sizeDivisor", "must be positive, got %v", c.SizeDivisor)
	}

	if !(c.BiasFactor > 0) || math.IsInf(c.BiasFactor, 0) {
		return errdefs.NewConfigError("biasFactor", "must be positive, got %v", c.BiasFactor)
	}

	if c.DepthMin > c.DepthMax {
		return errdefs.NewConfigError("depthMin",
			"must not exceed depthMax, got %v > %v", c.DepthMin, c.DepthMax)
	}

	if c.DepthDecimals < 0 || c.DepthDecimals > 9 {
		return errdefs.NewConfigError("depthDecimals", "must be in range 0-9, got %d", c.DepthDecimals)
	}

	return nil
}

// Placement is the scene position and display size of one feature
type Placement struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Mapper assigns placements to bounding boxes.  A Mapper draws from a single
// random source and is not safe for concurrent use.
type Mapper struct {
	cfg   Config
	depth distuv.Uniform
}

// NewMapper returns a Mapper drawing depths from src.  The config should have
// been checked with Validate.
func NewMapper(cfg Config, src rand.Source) *Mapper {
	return &Mapper{
		cfg: cfg,
		depth: distuv.Uniform{
			Min: cfg.DepthMin,
			Max: cfg.DepthMax,
			Src: src,
		},
	}
}

// Place returns the placement for the box using a fresh random depth
func (m *Mapper) Place(box postprocess.BoxRect) Placement {
	return PlaceWithDepth(m.cfg, box, m.DrawDepth())
}

// DrawDepth returns a uniform random depth in the configured range rounded to
// the configured number of decimals
func (m *Mapper) DrawDepth() float64 {

	if m.cfg.DepthMin == m.cfg.DepthMax {
		return m.cfg.DepthMin
	}

	d := roundTo(m.depth.Rand(), m.cfg.DepthDecimals)

	// rounding can step past a bound that is finer than the resolution
	return math.Min(math.Max(d, m.cfg.DepthMin), m.cfg.DepthMax)
}

// PlaceWithDepth returns the placement for the box given an unbiased depth.
// Position and size depend only on the box, the depth is divided by
// BiasFactor*(w*h)^(1/6) so larger features are pulled towards the viewer.
func PlaceWithDepth(cfg Config, box postprocess.BoxRect, depth float64) Placement {

	x := float64(box.Left)
	y := float64(box.Top)
	w := float64(box.Width())
	h := float64(box.Height())

	return Placement{
		X:      (x - cfg.CenterX) / cfg.PositionDivisor,
		Y:      (y - cfg.CenterY) / cfg.PositionDivisor,
		Z:      BiasDepth(cfg, depth, w*h),
		Width:  w / cfg.SizeDivisor,
		Height: h / cfg.SizeDivisor,
	}
}

// BiasDepth applies the area bias to a depth value.  Areas below one pixel
// are treated as one so the result stays finite.
func BiasDepth(cfg Config, depth, area float64) float64 {

	if area < 1 {
		area = 1
	}

	return depth / (cfg.BiasFactor * math.Pow(area, 1.0/6.0))
}

// roundTo rounds v to the given number of decimal places
func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
