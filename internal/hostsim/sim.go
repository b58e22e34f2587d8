// Package hostsim is an in-process stand-in for the game host. It keeps a
// single room of terrain and objects and answers the same calls as the real
// host, so the binding layer and the tools can run without one.
package hostsim

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"arenagrid.ai/internal/hostval"
	"arenagrid.ai/internal/objects"
)

type Terrain uint8

const (
	TerrainPlain Terrain = iota
	TerrainSwamp
	TerrainWall
)

func ParseTerrain(s string) (Terrain, error) {
	switch s {
	case "plain", "":
		return TerrainPlain, nil
	case "swamp":
		return TerrainSwamp, nil
	case "wall":
		return TerrainWall, nil
	}
	return TerrainPlain, fmt.Errorf("unknown terrain %q", s)
}

// ClassCostMatrix is the prototype name of cost matrices created with
// NewCostMatrix.
const ClassCostMatrix = "CostMatrix"

var ErrUnknownObject = objects.ErrUnknownObject

type object struct {
	ref   hostval.Ref
	attrs map[string]hostval.Value
	alive bool
}

// Sim is safe for concurrent use; the transport serves several
// connections from one Sim.
type Sim struct {
	mu sync.RWMutex

	width, height int
	terrain       []Terrain
	objects       map[uint64]*object
	matrices      map[uint64][]uint8

	nextHandle uint64
	tick       uint64
}

func New(width, height int) *Sim {
	if width <= 0 || width > objects.GridMax+1 {
		width = objects.GridMax + 1
	}
	if height <= 0 || height > objects.GridMax+1 {
		height = objects.GridMax + 1
	}
	return &Sim{
		width:    width,
		height:   height,
		terrain:  make([]Terrain, width*height),
		objects:  map[uint64]*object{},
		matrices: map[uint64][]uint8{},
	}
}

func (s *Sim) Size() (int, int) { return s.width, s.height }

func (s *Sim) Tick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tick
}

func (s *Sim) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < s.width && y < s.height
}

func (s *Sim) SetTerrain(x, y int, t Terrain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inBounds(x, y) {
		s.terrain[y*s.width+x] = t
	}
}

func (s *Sim) terrainAt(x, y int) Terrain {
	if !s.inBounds(x, y) {
		return TerrainWall
	}
	return s.terrain[y*s.width+x]
}

// Spawn places a live object. attrs may carry id, ticksToDecay or any
// class-specific attribute; x, y and exists are always set by the sim.
func (s *Sim) Spawn(class string, x, y int, attrs map[string]hostval.Value) (hostval.Ref, error) {
	if !s.inBounds(x, y) {
		return hostval.Ref{}, fmt.Errorf("%w: (%d,%d)", objects.ErrOutOfBounds, x, y)
	}
	if class == "" {
		class = objects.ClassGameObject
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextHandle++
	ref := hostval.Ref{Handle: s.nextHandle, Class: class}
	a := make(map[string]hostval.Value, len(attrs)+3)
	for k, v := range attrs {
		a[k] = v
	}
	if _, ok := a[objects.AttrID]; !ok {
		a[objects.AttrID] = hostval.String(fmt.Sprintf("o%d", ref.Handle))
	}
	a[objects.AttrX] = hostval.Number(float64(x))
	a[objects.AttrY] = hostval.Number(float64(y))
	s.objects[ref.Handle] = &object{ref: ref, attrs: a, alive: true}
	return ref, nil
}

// Remove marks the object dead. Its last attributes stay readable, as a
// stale handle's would.
func (s *Sim) Remove(handle uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.objects[handle]; ok {
		o.alive = false
	}
}

func (s *Sim) Move(handle uint64, x, y int) error {
	if !s.inBounds(x, y) {
		return fmt.Errorf("%w: (%d,%d)", objects.ErrOutOfBounds, x, y)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[handle]
	if !ok || !o.alive {
		return fmt.Errorf("%w: #%d", ErrUnknownObject, handle)
	}
	o.attrs[objects.AttrX] = hostval.Number(float64(x))
	o.attrs[objects.AttrY] = hostval.Number(float64(y))
	return nil
}

// SetAttr overwrites one attribute of a known object.
func (s *Sim) SetAttr(handle uint64, name string, v hostval.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[handle]
	if !ok {
		return fmt.Errorf("%w: #%d", ErrUnknownObject, handle)
	}
	o.attrs[name] = v
	return nil
}

// Advance runs one tick: decay counters go down and objects that reach
// zero disappear. Counters stop at zero.
func (s *Sim) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick++
	for _, o := range s.objects {
		if !o.alive {
			continue
		}
		ttd, ok := o.attrs[objects.AttrTicksToDecay].AsNumber()
		if !ok {
			continue
		}
		ttd = math.Max(ttd-1, 0)
		o.attrs[objects.AttrTicksToDecay] = hostval.Number(ttd)
		if ttd <= 0 {
			o.alive = false
		}
	}
}

// NewCostMatrix registers a per-cell cost override. A zero cell keeps the
// terrain cost; 255 blocks the cell.
func (s *Sim) NewCostMatrix(cells map[objects.Position]uint8) hostval.Ref {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextHandle++
	m := make([]uint8, s.width*s.height)
	for p, c := range cells {
		if s.inBounds(int(p.X), int(p.Y)) {
			m[int(p.Y)*s.width+int(p.X)] = c
		}
	}
	s.matrices[s.nextHandle] = m
	return hostval.Ref{Handle: s.nextHandle, Class: ClassCostMatrix}
}

// ObjectsByClass lists live objects created from class. Every object is a
// GameObject.
func (s *Sim) ObjectsByClass(class string) ([]hostval.Ref, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]hostval.Ref, 0, len(s.objects))
	for _, o := range s.objects {
		if !o.alive {
			continue
		}
		if class == objects.ClassGameObject || o.ref.Class == class {
			out = append(out, o.ref)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out, nil
}
