package render

import (
	"image/color"

	"gocv.io/x/gocv"
)

// Alignment positions a feature index label along the top edge of its box
type Alignment int

const (
	// Left starts the label at the box's left edge
	Left Alignment = 1
	// Center centers the label over the box
	Center Alignment = 2
	// Right ends the label at the box's right edge
	Right Alignment = 3
)

// Font controls how feature index labels are drawn on the annotated image
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// padding between the index text and the filled label background
	LeftPad   int
	RightPad  int
	TopPad    int
	BottomPad int
	Alignment Alignment
}

// DefaultFont returns a small label font suited to the many little boxes of
// a deep field image
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.4,
		Color:     Black,
		Thickness: 1,
		LineType:  gocv.LineAA,
		LeftPad:   2,
		RightPad:  2,
		TopPad:    2,
		BottomPad: 3,
		Alignment: Left,
	}
}
