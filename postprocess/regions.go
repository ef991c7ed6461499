package postprocess

import (
	"fmt"

	"github.com/swdee/go-deepfield/errdefs"
	"github.com/swdee/go-deepfield/preprocess"
	"gocv.io/x/gocv"
)

// Connectivity is the default pixel adjacency rule, diagonal neighbours are
// connected
const Connectivity = 8

// Region is one maximal connected set of foreground pixels
type Region struct {
	// Label is the component id, starting at 1 and numbered in raster scan
	// order of each component's first pixel.  0 is the background
	Label int
	// Box is the bounding box of the component in source image coordinates
	Box BoxRect
	// Pixels is the number of foreground pixels carrying this label
	Pixels int
}

// ExtractRegions runs 8-connectivity connected component labeling over the
// mask and returns every component whose bounding box is at least minSize
// wide and high.  Regions are returned in ascending label order.
func ExtractRegions(mask *preprocess.Mask, minSize int) ([]Region, error) {
	return ExtractRegionsWithConnectivity(mask, minSize, Connectivity)
}

// ExtractRegionsWithConnectivity is ExtractRegions with a configurable
// adjacency rule of either 4 or 8
func ExtractRegionsWithConnectivity(mask *preprocess.Mask, minSize, conn int) ([]Region, error) {

	if conn != 4 && conn != 8 {
		return nil, errdefs.NewConfigError("connectivity", "must be 4 or 8, got %d", conn)
	}

	if minSize < 0 {
		return nil, errdefs.NewConfigError("minSize", "must not be negative, got %d", minSize)
	}

	if mask.Width == 0 || mask.Height == 0 {
		return []Region{}, nil
	}

	labels, count, err := labelMask(mask, conn)

	if err != nil {
		return nil, err
	}

	regions := scanRegions(labels, mask.Width, mask.Height, count)

	// discard regions too small to become features
	keep := make([]Region, 0, len(regions))

	for _, r := range regions {
		if r.Box.Width() < minSize || r.Box.Height() < minSize {
			continue
		}
		keep = append(keep, r)
	}

	return keep, nil
}

// labelMask returns the per pixel component labels for the mask together with
// the number of labels including the background.  Labels are renumbered by
// first appearance in raster order so the ordering does not depend on the
// labeling algorithm OpenCV selects.
func labelMask(mask *preprocess.Mask, conn int) ([]int32, int, error) {

	src, err := mask.ToMat(false)

	if err != nil {
		return nil, 0, err
	}

	defer src.Close()

	labelMat := gocv.NewMat()
	defer labelMat.Close()

	count := gocv.ConnectedComponentsWithParams(src, &labelMat, conn,
		gocv.MatTypeCV32S, gocv.CCL_DEFAULT)

	data, err := labelMat.DataPtrInt32()

	if err != nil {
		return nil, 0, fmt.Errorf("error reading label Mat: %w", err)
	}

	n := mask.Width * mask.Height

	if len(data) < n {
		return nil, 0, fmt.Errorf("label Mat has %d values, expected %d", len(data), n)
	}

	// remap to discovery order, 0 stays background
	remap := make([]int32, count)
	next := int32(1)
	labels := make([]int32, n)

	for i := 0; i < n; i++ {
		l := data[i]

		if l <= 0 || int(l) >= count {
			continue
		}

		if remap[l] == 0 {
			remap[l] = next
			next++
		}

		labels[i] = remap[l]
	}

	return labels, int(next), nil
}

// scanRegions computes the bounding box and pixel count of every non zero
// label by scanning all pixels
func scanRegions(labels []int32, width, height, count int) []Region {

	if count <= 1 {
		return []Region{}
	}

	type extent struct {
		minX, minY, maxX, maxY int
		pixels                 int
	}

	ext := make([]extent, count)

	for i := range ext {
		ext[i] = extent{minX: width, minY: height, maxX: -1, maxY: -1}
	}

	for y := 0; y < height; y++ {
		row := labels[y*width : (y+1)*width]

		for x, l := range row {
			if l == 0 {
				continue
			}

			e := &ext[l]
			e.pixels++

			if x < e.minX {
				e.minX = x
			}
			if x > e.maxX {
				e.maxX = x
			}
			if y < e.minY {
				e.minY = y
			}
			if y > e.maxY {
				e.maxY = y
			}
		}
	}

	regions := make([]Region, 0, count-1)

	for l := 1; l < count; l++ {
		e := ext[l]

		// a label with no pixels should not occur, skip rather than fail
		if e.pixels == 0 {
			continue
		}

		regions = append(regions, Region{
			Label: l,
			Box: BoxRect{
				Left:   e.minX,
				Top:    e.minY,
				Right:  e.maxX + 1,
				Bottom: e.maxY + 1,
			},
			Pixels: e.pixels,
		})
	}

	return regions
}
