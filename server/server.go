// Package server serves a built feature catalog over HTTP
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/swdee/go-deepfield"
	"github.com/swdee/go-deepfield/layout"
	"github.com/swdee/go-deepfield/postprocess"
)

// FeatureBytes returns the PNG of the feature at the index in raw.  A raw
// value that is not an integer or is outside the catalog returns the whole
// processed image instead.
func FeatureBytes(c *deepfield.Catalog, raw string) []byte {
	return featureBytes(c, c.Artifacts().Processed, raw)
}

func featureBytes(c *deepfield.Catalog, processed []byte, raw string) []byte {

	index, err := strconv.Atoi(raw)

	if err != nil {
		return processed
	}

	e, err := c.Get(index)

	if err != nil {
		return processed
	}

	return e.Feature.PNG
}

// featureInfo is the JSON listing of one catalog entry
type featureInfo struct {
	Index     int                 `json:"index"`
	Label     int                 `json:"label"`
	Box       postprocess.BoxRect `json:"box"`
	Pixels    int                 `json:"pixels"`
	Placement layout.Placement    `json:"placement"`
}

// listing is the body of /features.json
type listing struct {
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	Features []featureInfo `json:"features"`
}

// New returns a handler serving the catalog
func New(c *deepfield.Catalog) http.Handler {

	art := c.Artifacts()
	mux := http.NewServeMux()

	mux.HandleFunc("GET /image", pngHandler(art.Processed))
	mux.HandleFunc("GET /mask", pngHandler(art.Mask))
	mux.HandleFunc("GET /annotated", pngHandler(art.Annotated))

	// match the rest of the path so empty or nested indexes fall back to
	// the processed image instead of a 404
	mux.HandleFunc("GET /feature/{index...}", func(w http.ResponseWriter, r *http.Request) {
		writePNG(w, featureBytes(c, art.Processed, r.PathValue("index")))
	})

	mux.HandleFunc("GET /features.json", func(w http.ResponseWriter, r *http.Request) {

		b := c.Bounds()
		out := listing{
			Width:    b.Dx(),
			Height:   b.Dy(),
			Features: make([]featureInfo, 0, c.Size()),
		}

		for _, e := range c.Entries() {
			out.Features = append(out.Features, featureInfo{
				Index:     e.Feature.Index,
				Label:     e.Feature.Label,
				Box:       e.Feature.Box,
				Pixels:    e.Feature.Pixels,
				Placement: e.Placement,
			})
		}

		w.Header().Set("Content-Type", "application/json")

		if err := json.NewEncoder(w).Encode(out); err != nil {
			log.Printf("error writing feature listing: %v", err)
		}
	})

	return mux
}

func pngHandler(data []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writePNG(w, data)
	}
}

func writePNG(w http.ResponseWriter, data []byte) {

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))

	if _, err := w.Write(data); err != nil {
		log.Printf("error writing image: %v", err)
	}
}
