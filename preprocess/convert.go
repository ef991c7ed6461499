package preprocess

import (
	"fmt"
	"image"
	"image/draw"

	"gocv.io/x/gocv"
)

// MatFromRGBA returns the RGBA image as a 4 channel CV_8UC4 Mat with the
// channels kept in R, G, B, A order.  The caller must Close the Mat.
func MatFromRGBA(src *image.RGBA) (gocv.Mat, error) {

	img := Compact(src)
	b := img.Bounds()

	tmp, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC4, img.Pix)

	if err != nil {
		return gocv.NewMat(), fmt.Errorf("error creating RGBA Mat: %w", err)
	}

	defer tmp.Close()

	return tmp.Clone(), nil
}

// Compact returns an image whose Pix holds exactly Dx*Dy pixels with its
// origin at 0,0.  Images that already satisfy this are returned as is.
func Compact(src *image.RGBA) *image.RGBA {

	b := src.Bounds()

	if b.Min.X == 0 && b.Min.Y == 0 && src.Stride == 4*b.Dx() &&
		len(src.Pix) == 4*b.Dx()*b.Dy() {
		return src
	}

	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)

	return dst
}

// EncodePNG encodes the Mat as a PNG image.  Four channel Mats are expected
// in OpenCV's B, G, R, A order.
func EncodePNG(mat gocv.Mat) ([]byte, error) {

	buf, err := gocv.IMEncode(gocv.PNGFileExt, mat)

	if err != nil {
		return nil, fmt.Errorf("error encoding PNG: %w", err)
	}

	defer buf.Close()

	// copy out of C memory before the buffer is released
	src := buf.GetBytes()
	out := make([]byte, len(src))
	copy(out, src)

	return out, nil
}

// EncodeRGBA encodes an RGBA image as a PNG
func EncodeRGBA(src *image.RGBA) ([]byte, error) {

	rgba, err := MatFromRGBA(src)

	if err != nil {
		return nil, err
	}

	defer rgba.Close()

	// R and B swap is symmetric, BGRA to RGBA also converts RGBA to BGRA
	bgra := gocv.NewMat()
	defer bgra.Close()

	gocv.CvtColor(rgba, &bgra, gocv.ColorBGRAToRGBA)

	return EncodePNG(bgra)
}
