package preprocess

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Mask is a binary foreground map with the same dimensions as the source
// image.  Every value in Pix is either 0 (background) or 1 (foreground).
type Mask struct {
	// Width of the mask in pixels
	Width int
	// Height of the mask in pixels
	Height int
	// Pix holds the mask values in row-major order, Pix[y*Width+x]
	Pix []uint8
}

// NewMask returns an all background mask of the given size
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// At returns the mask value at x, y.  Coordinates outside the mask are
// treated as background.
func (m *Mask) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return 0
	}
	return m.Pix[y*m.Width+x]
}

// Set marks the pixel at x, y as foreground
func (m *Mask) Set(x, y int) {
	m.Pix[y*m.Width+x] = 1
}

// Fill marks the w x h rectangle with top left corner x, y as foreground
func (m *Mask) Fill(x, y, w, h int) {
	for j := y; j < y+h; j++ {
		for i := x; i < x+w; i++ {
			m.Set(i, j)
		}
	}
}

// Count returns the number of foreground pixels
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// ToMat returns the mask as a single channel CV_8U Mat.  When scale is true
// foreground pixels are written as 255 so the Mat is viewable, otherwise they
// keep the value 1.  The caller must Close the returned Mat.
func (m *Mask) ToMat(scale bool) (gocv.Mat, error) {

	data := make([]uint8, len(m.Pix))

	for i, v := range m.Pix {
		if v != 0 {
			if scale {
				data[i] = 255
			} else {
				data[i] = 1
			}
		}
	}

	tmp, err := gocv.NewMatFromBytes(m.Height, m.Width, gocv.MatTypeCV8U, data)

	if err != nil {
		return gocv.NewMat(), fmt.Errorf("error creating mask Mat: %w", err)
	}

	defer tmp.Close()

	// clone so the Mat owns its memory and does not reference data
	return tmp.Clone(), nil
}

// EncodePNG returns the mask as a black and white PNG image
func (m *Mask) EncodePNG() ([]byte, error) {

	mat, err := m.ToMat(true)

	if err != nil {
		return nil, err
	}

	defer mat.Close()

	return EncodePNG(mat)
}

// maskFromMat copies a single channel Mat into a Mask, mapping every non zero
// value to 1
func maskFromMat(mat gocv.Mat) *Mask {

	mask := &Mask{
		Width:  mat.Cols(),
		Height: mat.Rows(),
		Pix:    mat.ToBytes(),
	}

	for i, v := range mask.Pix {
		if v != 0 {
			mask.Pix[i] = 1
		}
	}

	return mask
}
