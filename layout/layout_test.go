package layout

import (
	"errors"
	"math"
	"testing"

	"github.com/swdee/go-deepfield/errdefs"
	"github.com/swdee/go-deepfield/postprocess"
	"golang.org/x/exp/rand"
)

func TestPlaceWithDepthPositionAndSize(t *testing.T) {

	cfg := Config{
		CenterX:         500,
		CenterY:         400,
		PositionDivisor: 100,
		SizeDivisor:     50,
		DepthMin:        -5,
		DepthMax:        -1,
		BiasFactor:      1,
	}

	p := PlaceWithDepth(cfg, postprocess.NewBoxRect(700, 100, 20, 10), -2)

	if p.X != 2 {
		t.Errorf("expected X 2, got %v", p.X)
	}

	if p.Y != -3 {
		t.Errorf("expected Y -3, got %v", p.Y)
	}

	if p.Width != 0.4 || p.Height != 0.2 {
		t.Errorf("expected size 0.4x0.2, got %vx%v", p.Width, p.Height)
	}

	expectedZ := -2 / math.Pow(200, 1.0/6.0)

	if math.Abs(p.Z-expectedZ) > 1e-12 {
		t.Errorf("expected Z %v, got %v", expectedZ, p.Z)
	}
}

func TestLargerAreaIsCloser(t *testing.T) {

	cfg := DefaultConfig()

	for _, depth := range []float64{-6, -3.21, -1.5} {
		small := PlaceWithDepth(cfg, postprocess.NewBoxRect(0, 0, 10, 10), depth)
		large := PlaceWithDepth(cfg, postprocess.NewBoxRect(0, 0, 100, 100), depth)

		if math.Abs(large.Z) >= math.Abs(small.Z) {
			t.Errorf("depth %v: expected area 10000 |z|=%v to be smaller than area 100 |z|=%v",
				depth, math.Abs(large.Z), math.Abs(small.Z))
		}
	}
}

func TestMapperDepthRange(t *testing.T) {

	cfg := DefaultConfig()
	m := NewMapper(cfg, rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		d := m.DrawDepth()

		if d < cfg.DepthMin || d > cfg.DepthMax {
			t.Fatalf("depth %v outside [%v, %v]", d, cfg.DepthMin, cfg.DepthMax)
		}

		if r := math.Round(d*100) / 100; r != d {
			t.Fatalf("depth %v not at 2 decimal resolution", d)
		}
	}
}

func TestMapperSeedReproducible(t *testing.T) {

	cfg := DefaultConfig()
	box := postprocess.NewBoxRect(10, 20, 30, 40)

	a := NewMapper(cfg, rand.NewSource(7))
	b := NewMapper(cfg, rand.NewSource(7))

	for i := 0; i < 10; i++ {
		pa, pb := a.Place(box), b.Place(box)

		if pa != pb {
			t.Fatalf("placement %d differs for equal seeds: %+v vs %+v", i, pa, pb)
		}
	}
}

func TestMapperPlaceFinite(t *testing.T) {

	cfg := DefaultConfig()
	m := NewMapper(cfg, rand.NewSource(1))

	p := m.Place(postprocess.NewBoxRect(0, 0, 1, 1))

	for _, v := range []float64{p.X, p.Y, p.Z, p.Width, p.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("expected finite placement, got %+v", p)
		}
	}
}

func TestMapperFixedDepth(t *testing.T) {

	cfg := DefaultConfig()
	cfg.DepthMin, cfg.DepthMax = -2, -2

	m := NewMapper(cfg, rand.NewSource(1))

	if d := m.DrawDepth(); d != -2 {
		t.Errorf("expected fixed depth -2, got %v", d)
	}
}

func TestConfigValidate(t *testing.T) {

	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"zero position divisor", func(c *Config) { c.PositionDivisor = 0 }, "positionDivisor"},
		{"negative size divisor", func(c *Config) { c.SizeDivisor = -1 }, "sizeDivisor"},
		{"zero bias", func(c *Config) { c.BiasFactor = 0 }, "biasFactor"},
		{"inverted range", func(c *Config) { c.DepthMin, c.DepthMax = -1, -5 }, "depthMin"},
		{"nan center", func(c *Config) { c.CenterX = math.NaN() }, "centerX"},
		{"decimals", func(c *Config) { c.DepthDecimals = -1 }, "depthDecimals"},
	}

	for _, tc := range tests {
		cfg := DefaultConfig()
		tc.mutate(&cfg)

		var cfgErr *errdefs.ConfigError

		if err := cfg.Validate(); !errors.As(err, &cfgErr) || cfgErr.Field != tc.field {
			t.Errorf("%s: expected ConfigError on %s, got %v", tc.name, tc.field, err)
		}
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("expected default config to be valid, got %v", err)
	}
}
