package postprocess

import "image"

// BoxRect are the dimensions of the bounding box of a region.  Left and Top
// are inclusive, Right and Bottom are exclusive.
type BoxRect struct {
	Left   int `json:"left"`
	Right  int `json:"right"`
	Top    int `json:"top"`
	Bottom int `json:"bottom"`
}

// NewBoxRect returns a BoxRect from its top left corner and size
func NewBoxRect(x, y, width, height int) BoxRect {
	return BoxRect{
		Left:   x,
		Top:    y,
		Right:  x + width,
		Bottom: y + height,
	}
}

// Width of the box in pixels
func (b BoxRect) Width() int {
	return b.Right - b.Left
}

// Height of the box in pixels
func (b BoxRect) Height() int {
	return b.Bottom - b.Top
}

// Area of the box in pixels
func (b BoxRect) Area() int {
	return b.Width() * b.Height()
}

// Rect returns the box as an image.Rectangle
func (b BoxRect) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right, b.Bottom)
}

// Within returns true if the box is non-empty and fully contained inside
// bounds
func (b BoxRect) Within(bounds image.Rectangle) bool {
	return b.Width() > 0 && b.Height() > 0 &&
		b.Left >= bounds.Min.X && b.Top >= bounds.Min.Y &&
		b.Right <= bounds.Max.X && b.Bottom <= bounds.Max.Y
}
