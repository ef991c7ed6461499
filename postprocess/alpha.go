package postprocess

import (
	"fmt"
	"math"
)

// AlphaBand scales every luminance value below Limit (and at or above the
// previous band's Limit) by Scale
type AlphaBand struct {
	Limit int     `yaml:"limit"`
	Scale float64 `yaml:"scale"`
}

// AlphaTable is the piecewise linear luminance to alpha mapping used to fade
// faint background to transparent while keeping bright cores opaque
type AlphaTable struct {
	// Bands in ascending Limit order, the last band must have a Limit of 256
	Bands []AlphaBand `yaml:"bands"`
	// Floor is the alpha value below which pixels are made fully transparent
	Floor int `yaml:"floor"`
}

// DefaultAlphaTable returns the standard alpha remapping
func DefaultAlphaTable() AlphaTable {
	return AlphaTable{
		Bands: []AlphaBand{
			{Limit: 60, Scale: 0.60},
			{Limit: 80, Scale: 0.80},
			{Limit: 128, Scale: 0.90},
			{Limit: 180, Scale: 1.10},
			{Limit: 240, Scale: 1.20},
			{Limit: 256, Scale: 1.30},
		},
		Floor: 35,
	}
}

// Validate checks the bands cover the full 0-255 luminance range in
// ascending order
func (t AlphaTable) Validate() error {

	if len(t.Bands) == 0 {
		return fmt.Errorf("alpha table has no bands")
	}

	prev := 0

	for i, b := range t.Bands {
		if b.Limit <= prev {
			return fmt.Errorf("alpha band %d limit %d is not above %d", i, b.Limit, prev)
		}

		if b.Scale < 0 || math.IsNaN(b.Scale) || math.IsInf(b.Scale, 0) {
			return fmt.Errorf("alpha band %d has invalid scale %v", i, b.Scale)
		}

		prev = b.Limit
	}

	if prev != 256 {
		return fmt.Errorf("alpha bands end at %d, expected 256", prev)
	}

	if t.Floor < 0 || t.Floor > 256 {
		return fmt.Errorf("alpha floor %d outside 0-256", t.Floor)
	}

	return nil
}

// Alpha returns the alpha value for the given luminance.  The scaled value
// is truncated and clamped to 0-255, then forced to 0 if below the floor.
func (t AlphaTable) Alpha(lum uint8) uint8 {

	scale := 1.0

	for _, b := range t.Bands {
		if int(lum) < b.Limit {
			scale = b.Scale
			break
		}
	}

	v := float64(lum) * scale

	if v > 255 {
		v = 255
	}

	if v < 0 {
		v = 0
	}

	a := int(v)

	if a < t.Floor {
		return 0
	}

	return uint8(a)
}

// LUT returns the table evaluated for every luminance value
func (t AlphaTable) LUT() [256]uint8 {

	var lut [256]uint8

	for i := range lut {
		lut[i] = t.Alpha(uint8(i))
	}

	return lut
}

// Luminance returns the Rec.601 luminance of an RGB pixel using the same
// fixed point weights as OpenCV's RGB to gray conversion
func Luminance(r, g, b uint8) uint8 {
	const (
		shift = 14
		rw    = 4899
		gw    = 9617
		bw    = 1868
	)

	return uint8((uint32(r)*rw + uint32(g)*gw + uint32(b)*bw + (1 << (shift - 1))) >> shift)
}
