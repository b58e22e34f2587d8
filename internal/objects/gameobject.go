package objects

import (
	"errors"
	"fmt"
	"math"

	"arenagrid.ai/internal/hostval"
)

// Target is anything a spatial query can be asked about: it has a position
// and can be handed to the host.
type Target interface {
	HasPosition
	HostValue() hostval.Value
}

// WorldObject is the capability bundle of every live entity. Concrete types
// get it by embedding GameObject.
type WorldObject interface {
	Target
	Object() GameObject
	Exists() (bool, error)
	ID() (ID, error)
	TicksToDecay() (uint32, bool, error)
}

// GameObject is a borrowed view over one host object. It holds no
// simulation state: every getter asks the host, and Exists may flip to
// false between two calls as the simulation advances.
type GameObject struct {
	host Host
	ref  hostval.Ref
}

func NewGameObject(h Host, ref hostval.Ref) GameObject {
	return GameObject{host: h, ref: ref}
}

func (o GameObject) Object() GameObject       { return o }
func (o GameObject) Ref() hostval.Ref         { return o.ref }
func (o GameObject) Class() string            { return o.ref.Class }
func (o GameObject) Host() Host               { return o.host }
func (o GameObject) HostValue() hostval.Value { return hostval.RefTo(o.ref) }
func (o GameObject) String() string           { return o.ref.String() }

func (o GameObject) attr(name string) (hostval.Value, error) {
	if o.host == nil {
		return hostval.Undefined(), ErrNoHost
	}
	return o.host.Attr(o.ref, name)
}

// Exists reports whether the object is live right now. A missing flag counts
// as gone.
func (o GameObject) Exists() (bool, error) {
	v, err := o.attr(AttrExists)
	if err != nil {
		return false, err
	}
	if v.IsNullish() {
		return false, nil
	}
	b, ok := v.AsBool()
	if !ok {
		return false, o.attrErr(AttrExists, "bool", v)
	}
	return b, nil
}

// RawID is the identity exactly as the host stores it.
func (o GameObject) RawID() (hostval.Value, error) {
	return o.attr(AttrID)
}

// ID is recomputed on every call; callers that need it repeatedly may cache it.
func (o GameObject) ID() (ID, error) {
	raw, err := o.RawID()
	if err != nil {
		return "", err
	}
	id, err := NormalizeID(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", o.ref, err)
	}
	return id, nil
}

func (o GameObject) X() (uint8, error) { return o.coordAttr(AttrX) }
func (o GameObject) Y() (uint8, error) { return o.coordAttr(AttrY) }

func (o GameObject) Pos() (Position, error) {
	x, err := o.X()
	if err != nil {
		return Position{}, err
	}
	y, err := o.Y()
	if err != nil {
		return Position{}, err
	}
	return Position{X: x, Y: y}, nil
}

// TicksToDecay returns ok=false for objects that never disappear.
func (o GameObject) TicksToDecay() (uint32, bool, error) {
	v, err := o.attr(AttrTicksToDecay)
	if err != nil {
		return 0, false, err
	}
	if v.IsNullish() {
		return 0, false, nil
	}
	f, ok := v.AsNumber()
	if !ok || f < 0 || f > math.MaxUint32 || f != math.Trunc(f) {
		return 0, false, o.attrErr(AttrTicksToDecay, "u32", v)
	}
	return uint32(f), true, nil
}

// GetRangeTo asks the host for the linear range to target.
func (o GameObject) GetRangeTo(target Target) (uint8, error) {
	if o.host == nil {
		return 0, ErrNoHost
	}
	return o.host.GetRange(o.ref, target.HostValue())
}

// FindPathTo returns the host's full search result for a single target.
func (o GameObject) FindPathTo(target Target, opts *FindPathOptions) (SearchResults, error) {
	return FindPathTo(o, target, opts)
}

func (o GameObject) coordAttr(name string) (uint8, error) {
	v, err := o.attr(name)
	if err != nil {
		return 0, err
	}
	c, err := coord(v)
	if err != nil {
		if errors.Is(err, ErrAttrType) {
			return 0, o.attrErr(name, "u8", v)
		}
		return 0, fmt.Errorf("%s.%s: %w", o.ref, name, err)
	}
	return c, nil
}

func (o GameObject) attrErr(name, want string, got hostval.Value) error {
	return fmt.Errorf("%w: %s.%s want %s, got %s", ErrAttrType, o.ref, name, want, got)
}
