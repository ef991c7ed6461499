package deepfield

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"runtime"
	"time"

	"github.com/swdee/go-deepfield/errdefs"
	"github.com/swdee/go-deepfield/layout"
	"github.com/swdee/go-deepfield/postprocess"
	"github.com/swdee/go-deepfield/preprocess"
	"github.com/swdee/go-deepfield/render"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
)

// ErrIndexRange is returned by Catalog.Get for an index outside the catalog
var ErrIndexRange = errors.New("feature index out of range")

// annotateLineThickness is the box outline width in the annotated image
const annotateLineThickness = 2

// Feature is one accepted region cropped out of the source image
type Feature struct {
	// Index is the position of the feature in the catalog
	Index int `json:"index"`
	// Label is the connected component label the feature was built from
	Label int `json:"label"`
	// Box is the bounding box in source image coordinates
	Box postprocess.BoxRect `json:"box"`
	// Pixels is the number of foreground pixels in the region
	Pixels int `json:"pixels"`
	// PNG is the cropped image with derived alpha.  It is shared by every
	// copy of the Feature and must not be modified
	PNG []byte `json:"-"`
}

// Entry pairs a feature with its scene placement
type Entry struct {
	Feature   Feature          `json:"feature"`
	Placement layout.Placement `json:"placement"`
}

// Artifacts are whole image debug outputs of a build, all PNG encoded
type Artifacts struct {
	// Processed is the full source image
	Processed []byte
	// Mask is the foreground mask after thresholding
	Mask []byte
	// Annotated is the source image with feature boxes drawn on it
	Annotated []byte
}

// Summary describes a build for logging
type Summary struct {
	// Regions is the number of regions that passed the size filter
	Regions int
	// Dropped is the number of regions removed by the feature cap
	Dropped int
	// MeanArea is the mean bounding box area of the features
	MeanArea float64
	// MeanDepth is the mean biased depth of the placements
	MeanDepth float64
}

// Catalog is the ordered, immutable collection of features produced by one
// build.  It is safe for concurrent reads.
type Catalog struct {
	width     int
	height    int
	entries   []Entry
	artifacts Artifacts
	summary   Summary
}

// NewCatalog assembles a catalog from previously built entries, such as
// those loaded from a cache.  Entries must be indexed 0..N-1 in order with
// boxes inside a width x height image.
func NewCatalog(width, height int, entries []Entry, artifacts Artifacts) (*Catalog, error) {

	bounds := image.Rect(0, 0, width, height)
	prevLabel := 0

	for i, e := range entries {
		if e.Feature.Index != i {
			return nil, errdefs.NewInvariantViolation("entry %d has index %d", i, e.Feature.Index)
		}

		if e.Feature.Label <= prevLabel {
			return nil, errdefs.NewInvariantViolation("entry %d label %d not ascending", i, e.Feature.Label)
		}

		if !e.Feature.Box.Within(bounds) {
			return nil, errdefs.NewInvariantViolation("entry %d box %v escapes %v",
				i, e.Feature.Box.Rect(), bounds)
		}

		prevLabel = e.Feature.Label
	}

	c := &Catalog{
		width:     width,
		height:    height,
		entries:   append([]Entry(nil), entries...),
		artifacts: artifacts,
	}

	c.summary = summarize(c.entries, len(entries), 0)

	return c, nil
}

// Size returns the number of features in the catalog
func (c *Catalog) Size() int {
	return len(c.entries)
}

// Get returns the entry at index, valid for 0 <= index < Size()
func (c *Catalog) Get(index int) (Entry, error) {

	if index < 0 || index >= len(c.entries) {
		return Entry{}, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexRange, index, len(c.entries))
	}

	return c.entries[index], nil
}

// Entries returns a copy of all entries in index order.  The feature PNG
// bytes are shared with the catalog and must not be modified
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Artifacts returns a copy of the debug images produced during the build
func (c *Catalog) Artifacts() Artifacts {
	return Artifacts{
		Processed: bytes.Clone(c.artifacts.Processed),
		Mask:      bytes.Clone(c.artifacts.Mask),
		Annotated: bytes.Clone(c.artifacts.Annotated),
	}
}

// Bounds returns the dimensions of the source image
func (c *Catalog) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.width, c.height)
}

// Summary returns build statistics
func (c *Catalog) Summary() Summary {
	return c.summary
}

// Build runs the full pipeline over src: preprocess to a mask, extract
// connected regions, materialize up to MaxFeatures of them in parallel and
// assign each a scene placement.  Any error aborts the build and no partial
// catalog is returned.
func Build(src *image.RGBA, p Params) (*Catalog, error) {

	if err := p.Validate(); err != nil {
		return nil, err
	}

	if src == nil || src.Bounds().Empty() {
		return nil, &errdefs.AcquisitionError{Source: "source image", Err: errors.New("image is empty")}
	}

	// work in 0,0 origin coordinates so feature boxes are relative to the
	// image itself
	src = preprocess.Compact(src)
	bounds := src.Bounds()

	start := time.Now()

	pre, err := preprocess.Preprocess(src, p.Preprocess)

	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}

	endPreprocess := time.Now()

	regions, err := postprocess.ExtractRegions(pre.Mask, p.MinSize)

	if err != nil {
		return nil, fmt.Errorf("extract regions: %w", err)
	}

	found := len(regions)

	if p.MaxFeatures > 0 && len(regions) > p.MaxFeatures {
		regions = regions[:p.MaxFeatures]
	}

	endExtract := time.Now()

	materializer, err := postprocess.NewMaterializer(p.Alpha)

	if err != nil {
		return nil, err
	}

	workers := p.Workers

	if workers == 0 {
		workers = runtime.NumCPU()
	}

	pool := NewPool(workers, materializer)
	materials, err := pool.materializeAll(src, regions)
	pool.Close()

	if err != nil {
		return nil, fmt.Errorf("materialize: %w", err)
	}

	endMaterialize := time.Now()

	entries := make([]Entry, len(materials))
	boxes := make([]postprocess.BoxRect, len(materials))

	for i, m := range materials {
		entries[i] = Entry{
			Feature: Feature{
				Index:  i,
				Label:  m.Region.Label,
				Box:    m.Region.Box,
				Pixels: m.Region.Pixels,
				PNG:    m.PNG,
			},
		}
		boxes[i] = m.Region.Box
	}

	place(entries, bounds, p)

	artifacts, err := buildArtifacts(src, pre, boxes)

	if err != nil {
		return nil, err
	}

	end := time.Now()

	c := &Catalog{
		width:     bounds.Dx(),
		height:    bounds.Dy(),
		entries:   entries,
		artifacts: artifacts,
		summary:   summarize(entries, found, found-len(entries)),
	}

	p.logf("Built catalog of %d features from %d regions (%d dropped): preprocess=%s, extract=%s, materialize=%s, artifacts=%s, total=%s",
		len(entries), found, found-len(entries),
		endPreprocess.Sub(start).String(),
		endExtract.Sub(endPreprocess).String(),
		endMaterialize.Sub(endExtract).String(),
		end.Sub(endMaterialize).String(),
		end.Sub(start).String(),
	)

	return c, nil
}

// place assigns a placement to every entry.  Placements are drawn in index
// order from a single source so a non zero seed reproduces the same depths,
// a zero seed draws from the clock.
func place(entries []Entry, bounds image.Rectangle, p Params) {

	cfg := p.Layout

	if cfg.CenterX == 0 && cfg.CenterY == 0 {
		cfg.CenterX = float64(bounds.Dx()) / 2
		cfg.CenterY = float64(bounds.Dy()) / 2
	}

	seed := p.Seed

	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	mapper := layout.NewMapper(cfg, rand.NewSource(seed))

	for i := range entries {
		entries[i].Placement = mapper.Place(entries[i].Feature.Box)
	}
}

// replace returns a copy of the catalog with fresh placements drawn using the
// layout parameters of p
func (c *Catalog) replace(p Params) *Catalog {

	entries := c.Entries()
	place(entries, c.Bounds(), p)

	return &Catalog{
		width:     c.width,
		height:    c.height,
		entries:   entries,
		artifacts: c.artifacts,
		summary:   summarize(entries, c.summary.Regions, c.summary.Dropped),
	}
}

// buildArtifacts encodes the three whole image debug outputs
func buildArtifacts(src *image.RGBA, pre *preprocess.Result, boxes []postprocess.BoxRect) (Artifacts, error) {

	var a Artifacts
	var err error

	if a.Processed, err = preprocess.EncodeRGBA(src); err != nil {
		return a, fmt.Errorf("encode processed image: %w", err)
	}

	if a.Mask, err = pre.Thresholded.EncodePNG(); err != nil {
		return a, fmt.Errorf("encode mask: %w", err)
	}

	if a.Annotated, err = render.Annotate(src, boxes, render.DefaultFont(), annotateLineThickness); err != nil {
		return a, fmt.Errorf("encode annotated image: %w", err)
	}

	return a, nil
}

// summarize computes the build statistics over the entries
func summarize(entries []Entry, found, dropped int) Summary {

	s := Summary{
		Regions: found,
		Dropped: dropped,
	}

	if len(entries) == 0 {
		return s
	}

	areas := make([]float64, len(entries))
	depths := make([]float64, len(entries))

	for i, e := range entries {
		areas[i] = float64(e.Feature.Box.Area())
		depths[i] = e.Placement.Z
	}

	s.MeanArea = stat.Mean(areas, nil)
	s.MeanDepth = stat.Mean(depths, nil)

	return s
}
