package objects

import (
	"errors"
	"fmt"

	"arenagrid.ai/internal/hostval"
)

// ErrConversion is reported in strict mode when a host result cannot be
// turned back into one of the caller's candidates.
var ErrConversion = errors.New("objects: host result does not match any candidate")

type ConversionError struct {
	Op    string
	Index int
	Value hostval.Value
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%v: %s result[%d]=%s", ErrConversion, e.Op, e.Index, e.Value)
}

func (e *ConversionError) Unwrap() error { return ErrConversion }

// QueryObserver is told how many host results a query discarded. Queries
// that drop nothing do not call it.
type QueryObserver interface {
	ObserveDrops(op string, dropped int)
}

type queryConfig struct {
	strict     bool
	rangeCheck bool
	observer   QueryObserver
}

type QueryOption func(*queryConfig)

// WithStrict turns conversion failures into ErrConversion instead of
// dropping the element (batch queries) or reporting "not found" (single
// result queries).
func WithStrict() QueryOption {
	return func(c *queryConfig) { c.strict = true }
}

// WithRangeCheck controls whether FindInRange re-checks every host result
// against the requested range. On by default. The check reads the x and y
// attributes of the origin and of every result, so against a remote host it
// costs two extra round trips per result plus two for the origin.
func WithRangeCheck(on bool) QueryOption {
	return func(c *queryConfig) { c.rangeCheck = on }
}

func WithObserver(o QueryObserver) QueryOption {
	return func(c *queryConfig) { c.observer = o }
}

func newQueryConfig(opts []QueryOption) queryConfig {
	cfg := queryConfig{rangeCheck: true}
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	return cfg
}

func (c queryConfig) observe(op string, dropped int) {
	if c.observer != nil && dropped > 0 {
		c.observer.ObserveDrops(op, dropped)
	}
}

// candidateSet maps host values back onto the typed candidates they were
// built from.
type candidateSet[T Target] struct {
	byKey   map[string]T
	keyless []T
}

func marshalCandidates[T Target](candidates []T) ([]hostval.Value, candidateSet[T]) {
	vals := make([]hostval.Value, 0, len(candidates))
	set := candidateSet[T]{byKey: make(map[string]T, len(candidates))}
	for _, c := range candidates {
		v := c.HostValue()
		vals = append(vals, v)
		k := v.Key()
		if k == "" {
			set.keyless = append(set.keyless, c)
			continue
		}
		if _, dup := set.byKey[k]; !dup {
			set.byKey[k] = c
		}
	}
	return vals, set
}

func (s candidateSet[T]) lookup(v hostval.Value) (T, bool) {
	if k := v.Key(); k != "" {
		c, ok := s.byKey[k]
		return c, ok
	}
	for _, c := range s.keyless {
		if c.HostValue().Equal(v) {
			return c, true
		}
	}
	var zero T
	return zero, false
}

// FindInRange returns the candidates within r of origin, as decided by the
// host. Results the host returns that are not among the candidates, or
// that turn out to lie beyond r, are dropped unless WithStrict is given.
// Result order is the host's.
func FindInRange[T Target](origin WorldObject, candidates []T, r uint8, opts ...QueryOption) ([]T, error) {
	cfg := newQueryConfig(opts)
	if len(candidates) == 0 {
		return []T{}, nil
	}
	o := origin.Object()
	if o.host == nil {
		return nil, ErrNoHost
	}
	args, set := marshalCandidates(candidates)
	res, err := o.host.FindInRange(o.ref, args, r)
	if err != nil {
		return nil, err
	}

	var from Position
	if cfg.rangeCheck {
		if from, err = origin.Pos(); err != nil {
			return nil, fmt.Errorf("%s: origin position: %w", OpFindInRange, err)
		}
	}

	out := make([]T, 0, len(res))
	dropped := 0
	for i, v := range res {
		c, ok := set.lookup(v)
		if ok && cfg.rangeCheck {
			if ok, err = withinRange(from, c, r); err != nil {
				return nil, err
			}
		}
		if !ok {
			if cfg.strict {
				return nil, &ConversionError{Op: OpFindInRange, Index: i, Value: v}
			}
			dropped++
			continue
		}
		out = append(out, c)
	}
	cfg.observe(OpFindInRange, dropped)
	return out, nil
}

// withinRange treats a candidate that can no longer report a valid
// position as out of range. Any other failure is the host's.
func withinRange[T Target](from Position, c T, r uint8) (bool, error) {
	p, err := c.Pos()
	if err != nil {
		if errors.Is(err, ErrAttrType) || errors.Is(err, ErrOutOfBounds) || errors.Is(err, ErrNoHost) {
			return false, nil
		}
		return false, err
	}
	return from.GetRangeTo(p) <= r, nil
}

// FindClosestByRange returns the candidate nearest to origin in a straight
// line. An empty candidate list, a host "none" and an unconvertible host
// result all report ok=false.
func FindClosestByRange[T Target](origin WorldObject, candidates []T, opts ...QueryOption) (T, bool, error) {
	return findClosest(origin, candidates, OpFindClosestByRange, newQueryConfig(opts),
		func(h Host, ref hostval.Ref, args []hostval.Value) (hostval.Value, error) {
			return h.FindClosestByRange(ref, args)
		})
}

// FindClosestByPath is FindClosestByRange measured by path cost. No
// reachable candidate reports ok=false, same as an empty list.
func FindClosestByPath[T Target](origin WorldObject, candidates []T, pathOpts *FindPathOptions, opts ...QueryOption) (T, bool, error) {
	return findClosest(origin, candidates, OpFindClosestByPath, newQueryConfig(opts),
		func(h Host, ref hostval.Ref, args []hostval.Value) (hostval.Value, error) {
			return h.FindClosestByPath(ref, args, pathOpts)
		})
}

type closestFn func(h Host, ref hostval.Ref, args []hostval.Value) (hostval.Value, error)

func findClosest[T Target](origin WorldObject, candidates []T, op string, cfg queryConfig, call closestFn) (T, bool, error) {
	var zero T
	if len(candidates) == 0 {
		return zero, false, nil
	}
	o := origin.Object()
	if o.host == nil {
		return zero, false, ErrNoHost
	}
	args, set := marshalCandidates(candidates)
	res, err := call(o.host, o.ref, args)
	if err != nil {
		return zero, false, err
	}
	if res.IsNullish() {
		return zero, false, nil
	}
	c, ok := set.lookup(res)
	if !ok {
		if cfg.strict {
			return zero, false, &ConversionError{Op: op, Value: res}
		}
		cfg.observe(op, 1)
		return zero, false, nil
	}
	return c, true, nil
}

// FindPathTo hands the search to the host and returns its result as is.
func FindPathTo(origin WorldObject, target Target, opts *FindPathOptions) (SearchResults, error) {
	o := origin.Object()
	if o.host == nil {
		return SearchResults{}, ErrNoHost
	}
	return o.host.FindPath(o.ref, target.HostValue(), opts)
}
