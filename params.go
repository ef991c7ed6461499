package deepfield

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/swdee/go-deepfield/errdefs"
	"github.com/swdee/go-deepfield/layout"
	"github.com/swdee/go-deepfield/postprocess"
	"github.com/swdee/go-deepfield/preprocess"
	"gopkg.in/yaml.v3"
)

// Params are the parameters for one catalog build
type Params struct {
	// Preprocess are the mask generation parameters
	Preprocess preprocess.Config `yaml:"preprocess"`
	// MinSize is the minimum bounding box width and height of a region for
	// it to become a feature
	MinSize int `yaml:"minSize"`
	// MaxFeatures caps the catalog size, regions beyond the cap are dropped
	// in discovery order.  0 means no cap
	MaxFeatures int `yaml:"maxFeatures"`
	// Alpha is the luminance to alpha remapping table
	Alpha postprocess.AlphaTable `yaml:"alpha"`
	// Layout are the pixel to scene transform constants.  A zero CenterX and
	// CenterY are replaced with the center of the source image
	Layout layout.Config `yaml:"layout"`
	// Workers is the number of regions materialized in parallel, 0 uses one
	// worker per CPU
	Workers int `yaml:"workers"`
	// Seed for the depth draw, 0 seeds from the clock so every run differs
	Seed uint64 `yaml:"seed"`
	// Logf receives progress messages when set
	Logf func(format string, args ...any) `yaml:"-" json:"-"`
}

// DefaultParams returns the parameters tuned for the JWST deep field imagery
func DefaultParams() Params {
	return Params{
		Preprocess:  preprocess.DefaultConfig(),
		MinSize:     8,
		MaxFeatures: 300,
		Alpha:       postprocess.DefaultAlphaTable(),
		Layout:      layout.DefaultConfig(),
	}
}

// Validate checks every parameter and returns an errdefs.ConfigError for the
// first invalid one
func (p Params) Validate() error {

	if err := p.Preprocess.Validate(); err != nil {
		return err
	}

	if p.MinSize < 0 {
		return errdefs.NewConfigError("minSize", "must not be negative, got %d", p.MinSize)
	}

	if p.MaxFeatures < 0 {
		return errdefs.NewConfigError("maxFeatures", "must not be negative, got %d", p.MaxFeatures)
	}

	if p.Workers < 0 {
		return errdefs.NewConfigError("workers", "must not be negative, got %d", p.Workers)
	}

	if err := p.Alpha.Validate(); err != nil {
		return errdefs.NewConfigError("alpha", "%v", err)
	}

	return p.Layout.Validate()
}

// logf writes to the Logf hook if one is set
func (p Params) logf(format string, args ...any) {
	if p.Logf != nil {
		p.Logf(format, args...)
	}
}

// LoadParams reads parameters from a YAML file.  Fields missing from the file
// keep their default values and a missing file returns the defaults.
func LoadParams(path string) (Params, error) {

	p := DefaultParams()

	data, err := os.ReadFile(path)

	if os.IsNotExist(err) {
		return p, nil
	}

	if err != nil {
		return p, fmt.Errorf("error reading params file: %w", err)
	}

	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, errdefs.NewConfigError("file", "error parsing %s: %v", path, err)
	}

	return p, nil
}

// SaveParams writes the parameters to a YAML file, creating the directory if
// needed
func SaveParams(p Params, path string) error {

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating params directory: %w", err)
	}

	data, err := yaml.Marshal(p)

	if err != nil {
		return fmt.Errorf("error marshaling params: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing params file: %w", err)
	}

	return nil
}
