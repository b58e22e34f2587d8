package hostsim

import (
	"fmt"

	"arenagrid.ai/internal/hostval"
	"arenagrid.ai/internal/objects"
)

var (
	_ objects.Host      = (*Sim)(nil)
	_ objects.Directory = (*Sim)(nil)
)

func (s *Sim) Attr(obj hostval.Ref, name string) (hostval.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[obj.Handle]
	if !ok {
		if name == objects.AttrExists {
			return hostval.Bool(false), nil
		}
		return hostval.Undefined(), nil
	}
	if name == objects.AttrExists {
		return hostval.Bool(o.alive), nil
	}
	return o.attrs[name], nil
}

func (s *Sim) FindInRange(origin hostval.Ref, targets []hostval.Value, r uint8) ([]hostval.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	from, err := s.originPos(origin)
	if err != nil {
		return nil, err
	}
	out := make([]hostval.Value, 0, len(targets))
	for _, t := range targets {
		p, ok := s.posOf(t)
		if ok && from.GetRangeTo(p) <= r {
			out = append(out, t)
		}
	}
	return out, nil
}

// FindClosestByRange breaks ties by input order.
func (s *Sim) FindClosestByRange(origin hostval.Ref, targets []hostval.Value) (hostval.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	from, err := s.originPos(origin)
	if err != nil {
		return hostval.Undefined(), err
	}
	best := hostval.Null()
	bestRange := -1
	for _, t := range targets {
		p, ok := s.posOf(t)
		if !ok {
			continue
		}
		if d := int(from.GetRangeTo(p)); bestRange < 0 || d < bestRange {
			best, bestRange = t, d
		}
	}
	return best, nil
}

func (s *Sim) FindClosestByPath(origin hostval.Ref, targets []hostval.Value, opts *objects.FindPathOptions) (hostval.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	from, err := s.originPos(origin)
	if err != nil {
		return hostval.Undefined(), err
	}
	goals := make(map[objects.Position]int, len(targets))
	for i, t := range targets {
		p, ok := s.posOf(t)
		if !ok {
			continue
		}
		if _, dup := goals[p]; !dup {
			goals[p] = i
		}
	}
	if len(goals) == 0 {
		return hostval.Null(), nil
	}
	cfg, err := s.searchConfig(opts)
	if err != nil {
		return hostval.Undefined(), err
	}
	res := s.search(from, goals, cfg)
	if !res.found {
		return hostval.Null(), nil
	}
	return targets[goals[res.end]], nil
}

func (s *Sim) FindPath(origin hostval.Ref, goal hostval.Value, opts *objects.FindPathOptions) (objects.SearchResults, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	from, err := s.originPos(origin)
	if err != nil {
		return objects.SearchResults{}, err
	}
	to, ok := s.posOf(goal)
	if !ok {
		return objects.SearchResults{}, fmt.Errorf("%w: goal %s has no position", objects.ErrHost, goal)
	}
	cfg, err := s.searchConfig(opts)
	if err != nil {
		return objects.SearchResults{}, err
	}
	res := s.search(from, map[objects.Position]int{to: 0}, cfg)
	return objects.SearchResults{
		Path:       res.path,
		Ops:        res.ops,
		Cost:       res.cost,
		Incomplete: !res.found,
	}, nil
}

func (s *Sim) GetRange(origin hostval.Ref, target hostval.Value) (uint8, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	from, err := s.originPos(origin)
	if err != nil {
		return 0, err
	}
	p, ok := s.posOf(target)
	if !ok {
		return 0, fmt.Errorf("%w: target %s has no position", objects.ErrHost, target)
	}
	return from.GetRangeTo(p), nil
}

func (s *Sim) originPos(ref hostval.Ref) (objects.Position, error) {
	if _, ok := s.objects[ref.Handle]; !ok {
		return objects.Position{}, fmt.Errorf("%w: %w: %s", objects.ErrHost, ErrUnknownObject, ref)
	}
	p, ok := s.posOf(hostval.RefTo(ref))
	if !ok {
		return objects.Position{}, fmt.Errorf("%w: %s has no position", objects.ErrHost, ref)
	}
	return p, nil
}

// posOf resolves a ref or a position-like object. Dead objects keep their
// last position.
func (s *Sim) posOf(v hostval.Value) (objects.Position, bool) {
	if ref, ok := v.AsRef(); ok {
		o, ok := s.objects[ref.Handle]
		if !ok {
			return objects.Position{}, false
		}
		v = hostval.Object(map[string]hostval.Value{
			objects.AttrX: o.attrs[objects.AttrX],
			objects.AttrY: o.attrs[objects.AttrY],
		})
	}
	p, err := objects.PositionFromValue(v)
	if err != nil || !s.inBounds(int(p.X), int(p.Y)) {
		return objects.Position{}, false
	}
	return p, true
}
