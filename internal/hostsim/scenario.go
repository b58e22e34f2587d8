package hostsim

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"arenagrid.ai/internal/hostval"
	"arenagrid.ai/internal/mathx"
	"arenagrid.ai/internal/objects"
)

// Scenario is the YAML description of a room.
type Scenario struct {
	Width   int           `yaml:"width"`
	Height  int           `yaml:"height"`
	Seed    int64         `yaml:"seed"`
	Tick    uint64        `yaml:"tick,omitempty"`
	Terrain []TerrainRect `yaml:"terrain,omitempty"`
	Objects []ObjectSpec  `yaml:"objects,omitempty"`
}

type TerrainRect struct {
	Kind string `yaml:"kind"`
	X    int    `yaml:"x"`
	Y    int    `yaml:"y"`
	W    int    `yaml:"w"`
	H    int    `yaml:"h"`
}

type ObjectSpec struct {
	Class string         `yaml:"class"`
	X     int            `yaml:"x"`
	Y     int            `yaml:"y"`
	ID    any            `yaml:"id,omitempty"`
	Attrs map[string]any `yaml:"attrs,omitempty"`
}

func LoadScenario(path string) (Scenario, error) {
	var sc Scenario
	b, err := os.ReadFile(path)
	if err != nil {
		return sc, err
	}
	return ParseScenario(b)
}

func ParseScenario(b []byte) (Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil && !errors.Is(err, io.EOF) {
		return sc, fmt.Errorf("scenario: %w", err)
	}
	return sc, nil
}

// Build creates a Sim from the scenario. Objects without an explicit id get
// a numeric one, the way some host object categories report theirs.
func (sc Scenario) Build() (*Sim, error) {
	s := New(sc.Width, sc.Height)
	s.tick = sc.Tick
	width, height := s.Size()
	for i, r := range sc.Terrain {
		t, err := ParseTerrain(r.Kind)
		if err != nil {
			return nil, fmt.Errorf("terrain[%d]: %w", i, err)
		}
		// Rects are clipped to the room.
		x0, y0 := mathx.ClampInt(r.X, 0, width), mathx.ClampInt(r.Y, 0, height)
		x1 := mathx.ClampInt(r.X+mathx.MaxInt(r.W, 1), 0, width)
		y1 := mathx.ClampInt(r.Y+mathx.MaxInt(r.H, 1), 0, height)
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				s.SetTerrain(x, y, t)
			}
		}
	}
	for i, o := range sc.Objects {
		attrs := make(map[string]hostval.Value, len(o.Attrs)+1)
		for k, raw := range o.Attrs {
			v, err := hostval.FromAny(raw)
			if err != nil {
				return nil, fmt.Errorf("objects[%d].attrs.%s: %w", i, k, err)
			}
			attrs[k] = v
		}
		if o.ID != nil {
			v, err := hostval.FromAny(o.ID)
			if err != nil {
				return nil, fmt.Errorf("objects[%d].id: %w", i, err)
			}
			attrs[objects.AttrID] = v
		} else {
			n := mathx.Hash2(sc.Seed, o.X, o.Y)%900000 + 100000 + uint64(i)
			attrs[objects.AttrID] = hostval.Number(float64(n))
		}
		if _, err := s.Spawn(o.Class, o.X, o.Y, attrs); err != nil {
			return nil, fmt.Errorf("objects[%d]: %w", i, err)
		}
	}
	return s, nil
}
