package objects_test

import (
	"errors"

	"arenagrid.ai/internal/hostval"
	"arenagrid.ai/internal/objects"
)

// fakeHost answers from a fixed attribute table. Query responses default to
// honest Chebyshev answers and can be overridden per test to play a
// misbehaving host.
type fakeHost struct {
	attrs map[uint64]map[string]hostval.Value

	inRange func(origin hostval.Ref, targets []hostval.Value, r uint8) []hostval.Value
	closest func(origin hostval.Ref, targets []hostval.Value) hostval.Value
	byPath  func(origin hostval.Ref, targets []hostval.Value, opts *objects.FindPathOptions) hostval.Value
	path    objects.SearchResults
	err     error

	calls    []string
	lastOpts *objects.FindPathOptions
}

func newFakeHost() *fakeHost {
	return &fakeHost{attrs: map[uint64]map[string]hostval.Value{}}
}

func (h *fakeHost) add(handle uint64, class string, x, y int, extra map[string]hostval.Value) objects.GameObject {
	a := map[string]hostval.Value{
		objects.AttrExists: hostval.Bool(true),
		objects.AttrID:     hostval.String("obj" + hostval.Number(float64(handle)).String()),
		objects.AttrX:      hostval.Number(float64(x)),
		objects.AttrY:      hostval.Number(float64(y)),
	}
	for k, v := range extra {
		a[k] = v
	}
	h.attrs[handle] = a
	return objects.NewGameObject(h, hostval.Ref{Handle: handle, Class: class})
}

func (h *fakeHost) Attr(obj hostval.Ref, name string) (hostval.Value, error) {
	h.calls = append(h.calls, objects.OpAttr)
	if h.err != nil {
		return hostval.Undefined(), h.err
	}
	return h.attrs[obj.Handle][name], nil
}

func (h *fakeHost) pos(v hostval.Value) (objects.Position, bool) {
	if ref, ok := v.AsRef(); ok {
		a, ok := h.attrs[ref.Handle]
		if !ok {
			return objects.Position{}, false
		}
		v = hostval.Object(map[string]hostval.Value{"x": a[objects.AttrX], "y": a[objects.AttrY]})
	}
	p, err := objects.PositionFromValue(v)
	return p, err == nil
}

func (h *fakeHost) FindInRange(origin hostval.Ref, targets []hostval.Value, r uint8) ([]hostval.Value, error) {
	h.calls = append(h.calls, objects.OpFindInRange)
	if h.err != nil {
		return nil, h.err
	}
	if h.inRange != nil {
		return h.inRange(origin, targets, r), nil
	}
	from, _ := h.pos(hostval.RefTo(origin))
	var out []hostval.Value
	for _, t := range targets {
		if p, ok := h.pos(t); ok && from.GetRangeTo(p) <= r {
			out = append(out, t)
		}
	}
	return out, nil
}

func (h *fakeHost) nearest(origin hostval.Ref, targets []hostval.Value) hostval.Value {
	from, _ := h.pos(hostval.RefTo(origin))
	best := hostval.Undefined()
	bestRange := -1
	for _, t := range targets {
		p, ok := h.pos(t)
		if !ok {
			continue
		}
		if d := int(from.GetRangeTo(p)); bestRange < 0 || d < bestRange {
			best, bestRange = t, d
		}
	}
	return best
}

func (h *fakeHost) FindClosestByRange(origin hostval.Ref, targets []hostval.Value) (hostval.Value, error) {
	h.calls = append(h.calls, objects.OpFindClosestByRange)
	if h.err != nil {
		return hostval.Undefined(), h.err
	}
	if h.closest != nil {
		return h.closest(origin, targets), nil
	}
	return h.nearest(origin, targets), nil
}

func (h *fakeHost) FindClosestByPath(origin hostval.Ref, targets []hostval.Value, opts *objects.FindPathOptions) (hostval.Value, error) {
	h.calls = append(h.calls, objects.OpFindClosestByPath)
	h.lastOpts = opts
	if h.err != nil {
		return hostval.Undefined(), h.err
	}
	if h.byPath != nil {
		return h.byPath(origin, targets, opts), nil
	}
	return h.nearest(origin, targets), nil
}

func (h *fakeHost) FindPath(origin hostval.Ref, goal hostval.Value, opts *objects.FindPathOptions) (objects.SearchResults, error) {
	h.calls = append(h.calls, objects.OpFindPath)
	h.lastOpts = opts
	return h.path, h.err
}

func (h *fakeHost) GetRange(origin hostval.Ref, target hostval.Value) (uint8, error) {
	h.calls = append(h.calls, objects.OpGetRange)
	from, _ := h.pos(hostval.RefTo(origin))
	p, ok := h.pos(target)
	if !ok {
		return 0, errors.New("fake: target has no position")
	}
	return from.GetRangeTo(p), nil
}

func (h *fakeHost) count(op string) int {
	n := 0
	for _, c := range h.calls {
		if c == op {
			n++
		}
	}
	return n
}

type dropCounter map[string]int

func (d dropCounter) ObserveDrops(op string, dropped int) { d[op] += dropped }
