package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/swdee/go-deepfield/postprocess"
	"github.com/swdee/go-deepfield/preprocess"
	"gocv.io/x/gocv"
)

// boxLabel defines where a feature label should be rendered on the source
// image
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// FeatureBoxes renders the bounding box of every feature onto img with its
// catalog index as the label.  img is a BGR or BGRA Mat.
func FeatureBoxes(img *gocv.Mat, boxes []postprocess.BoxRect, font Font, lineThickness int) {

	// keep a record of all box labels for later rendering
	boxLabels := make([]boxLabel, 0, len(boxes))

	for i, box := range boxes {

		useClr := BoxColor(i)

		gocv.Rectangle(img, box.Rect(), useClr, lineThickness)

		text := fmt.Sprintf("%d", i)
		textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

		// Calculate the alignment of text label
		var centerX int

		switch font.Alignment {
		case Center:
			centerX = (box.Left + box.Right) / 2

		case Right:
			centerX = box.Right - (textSize.X / 2) - font.RightPad + (lineThickness / 2)

		case Left:
			fallthrough
		default:
			centerX = box.Left + (textSize.X / 2) + font.LeftPad - (lineThickness / 2)
		}

		// place labels inside the box when it touches the top edge
		top := box.Top
		if top-textSize.Y-font.TopPad-font.BottomPad < 0 {
			top = box.Top + textSize.Y + font.TopPad + font.BottomPad
		}

		labelPosition := image.Pt(centerX-textSize.X/2, top-font.BottomPad)

		bRect := image.Rect(centerX-textSize.X/2-font.LeftPad,
			top-textSize.Y-font.TopPad-font.BottomPad,
			centerX+textSize.X/2+font.RightPad, top)

		boxLabels = append(boxLabels, boxLabel{
			rect:    bRect,
			clr:     useClr,
			text:    text,
			textPos: labelPosition,
		})
	}

	// draw all labels last so they sit above neighbouring boxes
	for _, label := range boxLabels {
		gocv.Rectangle(img, label.rect, label.clr, -1)

		gocv.PutTextWithParams(img, label.text, label.textPos,
			font.Face, font.Scale, font.Color, font.Thickness,
			font.LineType, false)
	}
}

// Annotate returns a PNG of src with every box drawn on it
func Annotate(src *image.RGBA, boxes []postprocess.BoxRect, font Font, lineThickness int) ([]byte, error) {

	rgba, err := preprocess.MatFromRGBA(src)

	if err != nil {
		return nil, err
	}

	defer rgba.Close()

	// swapping R and B is symmetric so the BGRA to RGBA code also converts
	// RGBA to the BGRA order the drawing functions and PNG encoder expect
	bgra := gocv.NewMat()
	defer bgra.Close()
	gocv.CvtColor(rgba, &bgra, gocv.ColorBGRAToRGBA)

	FeatureBoxes(&bgra, boxes, font, lineThickness)

	return preprocess.EncodePNG(bgra)
}
