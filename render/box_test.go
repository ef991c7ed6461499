package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/swdee/go-deepfield/postprocess"
	"gocv.io/x/gocv"
)

func TestAnnotateDrawsBoxes(t *testing.T) {

	src := image.NewRGBA(image.Rect(0, 0, 80, 60))

	for i := range src.Pix {
		src.Pix[i] = 0
	}

	for i := 3; i < len(src.Pix); i += 4 {
		src.Pix[i] = 255
	}

	boxes := []postprocess.BoxRect{
		postprocess.NewBoxRect(20, 20, 30, 25),
	}

	data, err := Annotate(src, boxes, DefaultFont(), 1)

	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))

	if err != nil {
		t.Fatalf("failed to decode annotated PNG: %v", err)
	}

	if img.Bounds() != src.Bounds() {
		t.Fatalf("expected bounds %v, got %v", src.Bounds(), img.Bounds())
	}

	// bottom edge of the rectangle is drawn in the first palette color
	got := color.NRGBAModel.Convert(img.At(35, 44)).(color.NRGBA)
	want := BoxColor(0)

	if got.R != want.R || got.G != want.G || got.B != want.B {
		t.Errorf("expected box color %v at bottom edge, got %v", want, got)
	}

	// pixels well away from the box are untouched
	if got := color.NRGBAModel.Convert(img.At(75, 55)).(color.NRGBA); got.R != 0 || got.G != 0 || got.B != 0 {
		t.Errorf("expected black background, got %v", got)
	}

	// source must not be modified
	if src.Pix[(44*80+35)*4] != 0 {
		t.Errorf("expected source image to be left unchanged")
	}
}

func TestBoxColorCycles(t *testing.T) {

	if BoxColor(0) != BoxColor(len(classColors)) {
		t.Errorf("expected palette to cycle")
	}

	if BoxColor(-1) != BoxColor(1) {
		t.Errorf("expected negative index to map into palette")
	}
}

func TestAnnotateLabelAlignment(t *testing.T) {

	src := image.NewRGBA(image.Rect(0, 0, 80, 60))

	for i := 3; i < len(src.Pix); i += 4 {
		src.Pix[i] = 255
	}

	box := postprocess.NewBoxRect(20, 30, 30, 25)

	font := DefaultFont()
	textSize := gocv.GetTextSize("0", font.Face, font.Scale, font.Thickness)

	// a pixel in the top padding of the label background, just inside the
	// box's right edge
	labelX := box.Right - 1
	labelY := box.Top - textSize.Y - font.BottomPad - font.TopPad + 1

	tests := []struct {
		align  Alignment
		filled bool
	}{
		{Left, false},
		{Right, true},
	}

	for _, tc := range tests {
		font.Alignment = tc.align

		data, err := Annotate(src, []postprocess.BoxRect{box}, font, 1)

		if err != nil {
			t.Fatalf("Annotate failed: %v", err)
		}

		img, err := png.Decode(bytes.NewReader(data))

		if err != nil {
			t.Fatalf("failed to decode annotated PNG: %v", err)
		}

		got := color.NRGBAModel.Convert(img.At(labelX, labelY)).(color.NRGBA)
		want := BoxColor(0)
		isLabel := got.R == want.R && got.G == want.G && got.B == want.B

		if isLabel != tc.filled {
			t.Errorf("alignment %d: expected label fill %v at (%d,%d), got %v",
				tc.align, tc.filled, labelX, labelY, got)
		}
	}
}
