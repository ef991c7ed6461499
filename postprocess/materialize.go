package postprocess

import (
	"fmt"
	"image"

	"github.com/swdee/go-deepfield/errdefs"
	"github.com/swdee/go-deepfield/preprocess"
	"gocv.io/x/gocv"
)

// Material is a region cropped out of the source image with its alpha
// channel replaced by a value derived from luminance
type Material struct {
	// Region the material was cut from
	Region Region
	// Image is the crop with source RGB and derived alpha, origin at 0,0
	Image *image.NRGBA
	// PNG is the losslessly encoded Image
	PNG []byte
}

// Materializer crops regions and derives their alpha channel.  It is safe for
// concurrent use.
type Materializer struct {
	table AlphaTable
	lut   [256]uint8
}

// NewMaterializer returns a Materializer using the given alpha table
func NewMaterializer(table AlphaTable) (*Materializer, error) {

	if err := table.Validate(); err != nil {
		return nil, errdefs.NewConfigError("alphaTable", "%v", err)
	}

	return &Materializer{
		table: table,
		lut:   table.LUT(),
	}, nil
}

// Materialize crops src to the region using the default alpha table
func Materialize(src *image.RGBA, r Region) (*Material, error) {

	m, err := NewMaterializer(DefaultAlphaTable())

	if err != nil {
		return nil, err
	}

	return m.Materialize(src, r)
}

// Materialize crops src to the region's bounding box, keeps the RGB channels
// verbatim, replaces alpha with the remapped luminance and encodes the result
// as PNG.  A box that is not fully inside src returns an
// errdefs.InvariantViolation.
func (m *Materializer) Materialize(src *image.RGBA, r Region) (*Material, error) {

	if !r.Box.Within(src.Bounds()) {
		return nil, errdefs.NewInvariantViolation(
			"region %d box %v escapes source bounds %v", r.Label, r.Box.Rect(), src.Bounds())
	}

	w, h := r.Box.Width(), r.Box.Height()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		so := src.PixOffset(r.Box.Left, r.Box.Top+y)
		do := dst.PixOffset(0, y)

		for x := 0; x < w; x++ {
			red, green, blue := src.Pix[so], src.Pix[so+1], src.Pix[so+2]

			dst.Pix[do] = red
			dst.Pix[do+1] = green
			dst.Pix[do+2] = blue
			dst.Pix[do+3] = m.lut[Luminance(red, green, blue)]

			so += 4
			do += 4
		}
	}

	data, err := encodeNRGBA(dst)

	if err != nil {
		return nil, fmt.Errorf("region %d: %w", r.Label, err)
	}

	return &Material{
		Region: r,
		Image:  dst,
		PNG:    data,
	}, nil
}

// encodeNRGBA encodes the image as PNG via OpenCV, which expects channels in
// B, G, R, A order
func encodeNRGBA(img *image.NRGBA) ([]byte, error) {

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	size := w * h * 4

	bufp := scratch.Get(scratchBGRA, size)
	defer scratch.Put(scratchBGRA, bufp)

	buf := *bufp

	for i := 0; i < size; i += 4 {
		buf[i] = img.Pix[i+2]
		buf[i+1] = img.Pix[i+1]
		buf[i+2] = img.Pix[i]
		buf[i+3] = img.Pix[i+3]
	}

	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC4, buf)

	if err != nil {
		return nil, fmt.Errorf("error creating BGRA Mat: %w", err)
	}

	defer mat.Close()

	return preprocess.EncodePNG(mat)
}
