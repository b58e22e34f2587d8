package objects_test

import (
	"errors"
	"testing"

	"arenagrid.ai/internal/hostval"
	"arenagrid.ai/internal/objects"
)

func TestFindInRangeScenario(t *testing.T) {
	h := newFakeHost()
	origin := h.add(1, objects.ClassGameObject, 10, 10, nil)
	near := h.add(2, objects.ClassGameObject, 10, 12, nil)
	far := h.add(3, objects.ClassGameObject, 10, 20, nil)

	got, err := objects.FindInRange(origin, []objects.GameObject{near, far}, 5)
	if err != nil {
		t.Fatalf("FindInRange: %v", err)
	}
	if len(got) != 1 || got[0].Ref() != near.Ref() {
		t.Fatalf("expected only %s, got %v", near, got)
	}
}

func TestFindInRangeEmptyCandidatesSkipsHost(t *testing.T) {
	h := newFakeHost()
	origin := h.add(1, objects.ClassGameObject, 0, 0, nil)
	for _, r := range []uint8{0, 1, 255} {
		got, err := objects.FindInRange(origin, []objects.GameObject{}, r)
		if err != nil {
			t.Fatalf("range %d: %v", r, err)
		}
		if got == nil || len(got) != 0 {
			t.Fatalf("range %d: expected empty non-nil result, got %v", r, got)
		}
	}
	if len(h.calls) != 0 {
		t.Fatalf("host should not be called, calls=%v", h.calls)
	}
}

func TestFindInRangeDropsForeignElements(t *testing.T) {
	h := newFakeHost()
	origin := h.add(1, objects.ClassGameObject, 10, 10, nil)
	a := h.add(2, objects.ClassGameObject, 11, 10, nil)
	b := h.add(3, objects.ClassGameObject, 12, 10, nil)
	h.inRange = func(_ hostval.Ref, targets []hostval.Value, _ uint8) []hostval.Value {
		return []hostval.Value{
			targets[0],
			hostval.String("garbage"),
			hostval.RefTo(hostval.Ref{Handle: 99, Class: objects.ClassGameObject}),
			targets[1],
		}
	}
	drops := dropCounter{}

	got, err := objects.FindInRange(origin, []objects.GameObject{a, b}, 3, objects.WithObserver(drops))
	if err != nil {
		t.Fatalf("FindInRange: %v", err)
	}
	if len(got) != 2 || got[0].Ref() != a.Ref() || got[1].Ref() != b.Ref() {
		t.Fatalf("valid elements must survive, got %v", got)
	}
	if drops[objects.OpFindInRange] != 2 {
		t.Fatalf("expected 2 drops, got %d", drops[objects.OpFindInRange])
	}
}

func TestFindInRangeStrictFailsOnForeignElement(t *testing.T) {
	h := newFakeHost()
	origin := h.add(1, objects.ClassGameObject, 10, 10, nil)
	a := h.add(2, objects.ClassGameObject, 11, 10, nil)
	h.inRange = func(_ hostval.Ref, targets []hostval.Value, _ uint8) []hostval.Value {
		return []hostval.Value{targets[0], hostval.Null()}
	}

	_, err := objects.FindInRange(origin, []objects.GameObject{a}, 3, objects.WithStrict())
	var convErr *objects.ConversionError
	if !errors.As(err, &convErr) || !errors.Is(err, objects.ErrConversion) {
		t.Fatalf("expected ConversionError, got %v", err)
	}
	if convErr.Index != 1 || convErr.Op != objects.OpFindInRange {
		t.Fatalf("unexpected error detail: %+v", convErr)
	}
}

func TestFindInRangeNeverExceedsRange(t *testing.T) {
	h := newFakeHost()
	origin := h.add(1, objects.ClassGameObject, 50, 50, nil)
	var cands []objects.GameObject
	for i := 0; i < 40; i++ {
		cands = append(cands, h.add(uint64(10+i), objects.ClassGameObject, 50+i%13, 50-i%7, nil))
	}
	// A host that ignores the range and returns everything.
	h.inRange = func(_ hostval.Ref, targets []hostval.Value, _ uint8) []hostval.Value { return targets }

	for r := uint8(0); r <= 14; r++ {
		got, err := objects.FindInRange(origin, cands, r)
		if err != nil {
			t.Fatalf("r=%d: %v", r, err)
		}
		for _, c := range got {
			p, _ := c.Pos()
			if d := p.GetRangeTo(objects.Position{X: 50, Y: 50}); d > r {
				t.Fatalf("r=%d returned %s at range %d", r, c, d)
			}
		}
	}
}

func TestFindInRangeAcceptsBarePositions(t *testing.T) {
	h := newFakeHost()
	origin := h.add(1, objects.ClassGameObject, 10, 10, nil)
	cands := []objects.Position{{X: 10, Y: 12}, {X: 10, Y: 20}}

	got, err := objects.FindInRange(origin, cands, 5)
	if err != nil {
		t.Fatalf("FindInRange: %v", err)
	}
	if len(got) != 1 || got[0] != (objects.Position{X: 10, Y: 12}) {
		t.Fatalf("got %v", got)
	}
}

func TestFindInRangeDropsVanishedCandidates(t *testing.T) {
	h := newFakeHost()
	origin := h.add(1, objects.ClassGameObject, 10, 10, nil)
	a := h.add(2, objects.ClassGameObject, 11, 10, nil)
	b := h.add(3, objects.ClassGameObject, 12, 10, nil)
	h.inRange = func(_ hostval.Ref, targets []hostval.Value, _ uint8) []hostval.Value {
		delete(h.attrs, 3)
		return targets
	}

	got, err := objects.FindInRange(origin, []objects.GameObject{a, b}, 5)
	if err != nil {
		t.Fatalf("FindInRange: %v", err)
	}
	if len(got) != 1 || got[0].Ref() != a.Ref() {
		t.Fatalf("got %v", got)
	}
}

func TestFindInRangeRangeCheckAttrCost(t *testing.T) {
	h := newFakeHost()
	origin := h.add(1, objects.ClassGameObject, 10, 10, nil)
	a := h.add(2, objects.ClassGameObject, 11, 10, nil)
	b := h.add(3, objects.ClassGameObject, 12, 10, nil)
	cands := []objects.GameObject{a, b}

	if _, err := objects.FindInRange(origin, cands, 5); err != nil {
		t.Fatalf("FindInRange: %v", err)
	}
	// x and y for the origin and for each of the two results.
	if n := h.count(objects.OpAttr); n != 6 {
		t.Fatalf("attr calls with range check = %d, want 6", n)
	}

	h.calls = nil
	got, err := objects.FindInRange(origin, cands, 5, objects.WithRangeCheck(false))
	if err != nil || len(got) != 2 {
		t.Fatalf("FindInRange without check = %v, %v", got, err)
	}
	if n := h.count(objects.OpAttr); n != 0 {
		t.Fatalf("attr calls without range check = %d, want 0", n)
	}
}

func TestFindInRangeHostError(t *testing.T) {
	h := newFakeHost()
	origin := h.add(1, objects.ClassGameObject, 10, 10, nil)
	a := h.add(2, objects.ClassGameObject, 11, 10, nil)
	h.err = objects.ErrHost

	if _, err := objects.FindInRange(origin, []objects.GameObject{a}, 5); !errors.Is(err, objects.ErrHost) {
		t.Fatalf("expected host error, got %v", err)
	}
}

func TestClosestEmptyCandidatesIsNone(t *testing.T) {
	h := newFakeHost()
	origin := h.add(1, objects.ClassGameObject, 10, 10, nil)

	if _, ok, err := objects.FindClosestByRange(origin, []objects.GameObject{}); ok || err != nil {
		t.Fatalf("FindClosestByRange([]) = ok=%v err=%v", ok, err)
	}
	if _, ok, err := objects.FindClosestByPath(origin, []objects.GameObject{}, nil); ok || err != nil {
		t.Fatalf("FindClosestByPath([], nil) = ok=%v err=%v", ok, err)
	}
	if len(h.calls) != 0 {
		t.Fatalf("host should not be called, calls=%v", h.calls)
	}
}

func TestClosestHostNoneCollapses(t *testing.T) {
	h := newFakeHost()
	origin := h.add(1, objects.ClassGameObject, 10, 10, nil)
	a := h.add(2, objects.ClassGameObject, 11, 10, nil)
	none := func(hostval.Ref, []hostval.Value) hostval.Value { return hostval.Null() }
	h.closest = none
	h.byPath = func(hostval.Ref, []hostval.Value, *objects.FindPathOptions) hostval.Value { return hostval.Undefined() }

	if _, ok, err := objects.FindClosestByRange(origin, []objects.GameObject{a}); ok || err != nil {
		t.Fatalf("by range: ok=%v err=%v", ok, err)
	}
	if _, ok, err := objects.FindClosestByPath(origin, []objects.GameObject{a}, nil); ok || err != nil {
		t.Fatalf("by path: ok=%v err=%v", ok, err)
	}
}

func TestClosestByRangePicksNearest(t *testing.T) {
	h := newFakeHost()
	origin := h.add(1, objects.ClassGameObject, 10, 10, nil)
	far := h.add(2, objects.ClassGameObject, 30, 10, nil)
	near := h.add(3, objects.ClassGameObject, 12, 11, nil)

	got, ok, err := objects.FindClosestByRange(origin, []objects.GameObject{far, near})
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if got.Ref() != near.Ref() {
		t.Fatalf("expected %s, got %s", near, got)
	}
}

func TestClosestUnconvertibleResult(t *testing.T) {
	h := newFakeHost()
	origin := h.add(1, objects.ClassGameObject, 10, 10, nil)
	a := h.add(2, objects.ClassGameObject, 11, 10, nil)
	h.closest = func(hostval.Ref, []hostval.Value) hostval.Value { return hostval.Number(7) }
	drops := dropCounter{}

	if _, ok, err := objects.FindClosestByRange(origin, []objects.GameObject{a}, objects.WithObserver(drops)); ok || err != nil {
		t.Fatalf("lenient: ok=%v err=%v", ok, err)
	}
	if drops[objects.OpFindClosestByRange] != 1 {
		t.Fatalf("expected one drop, got %v", drops)
	}
	if _, _, err := objects.FindClosestByRange(origin, []objects.GameObject{a}, objects.WithStrict()); !errors.Is(err, objects.ErrConversion) {
		t.Fatalf("strict: expected ErrConversion, got %v", err)
	}
}

func TestClosestByPathPassesOptionsThrough(t *testing.T) {
	h := newFakeHost()
	origin := h.add(1, objects.ClassGameObject, 10, 10, nil)
	a := h.add(2, objects.ClassGameObject, 11, 10, nil)
	opts := &objects.FindPathOptions{SwampCost: 10, MaxOps: 500}

	got, ok, err := objects.FindClosestByPath(origin, []objects.GameObject{a}, opts)
	if err != nil || !ok || got.Ref() != a.Ref() {
		t.Fatalf("got=%v ok=%v err=%v", got, ok, err)
	}
	if h.lastOpts != opts {
		t.Fatalf("options were not passed through verbatim")
	}
}

func TestFindPathToIsPassThrough(t *testing.T) {
	h := newFakeHost()
	origin := h.add(1, objects.ClassGameObject, 10, 10, nil)
	h.path = objects.SearchResults{
		Path: []objects.Position{{X: 11, Y: 11}, {X: 12, Y: 12}},
		Ops:  3,
		Cost: 2,
	}

	res, err := origin.FindPathTo(objects.Position{X: 12, Y: 12}, nil)
	if err != nil {
		t.Fatalf("FindPathTo: %v", err)
	}
	if len(res.Path) != 2 || res.Cost != 2 || res.Ops != 3 || res.Incomplete {
		t.Fatalf("unexpected result %+v", res)
	}
	if h.count(objects.OpFindPath) != 1 {
		t.Fatalf("expected one findPath call, got %v", h.calls)
	}
}

func TestUnboundHandle(t *testing.T) {
	var o objects.GameObject
	if _, err := objects.FindInRange(o, []objects.Position{{X: 1, Y: 1}}, 1); !errors.Is(err, objects.ErrNoHost) {
		t.Fatalf("expected ErrNoHost, got %v", err)
	}
	if _, err := o.Exists(); !errors.Is(err, objects.ErrNoHost) {
		t.Fatalf("expected ErrNoHost, got %v", err)
	}
}
