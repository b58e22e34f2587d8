package objects

import (
	"errors"

	"arenagrid.ai/internal/hostval"
)

// Attribute names the host exposes on world objects.
const (
	AttrExists       = "exists"
	AttrID           = "id"
	AttrX            = "x"
	AttrY            = "y"
	AttrTicksToDecay = "ticksToDecay"
	AttrMy           = "my"
	AttrBonusType    = "bonusType"
)

// Host prototype names.
const (
	ClassGameObject = "GameObject"
	ClassBonusFlag  = "BonusFlag"
)

// Host operation names, shared by the wire protocol and the call journal.
const (
	OpAttr               = "attr"
	OpFindInRange        = "findInRange"
	OpFindClosestByRange = "findClosestByRange"
	OpFindClosestByPath  = "findClosestByPath"
	OpFindPath           = "findPath"
	OpGetRange           = "getRange"
	OpObjectsByClass     = "objectsByClass"
)

var (
	// ErrHost wraps failures reaching or running the host.
	ErrHost = errors.New("objects: host call failed")
	// ErrNoHost is returned by handles that were never bound to a host.
	ErrNoHost = errors.New("objects: handle is not bound to a host")
	// ErrAttrType means an attribute did not hold the kind the host declares for it.
	ErrAttrType = errors.New("objects: unexpected attribute type")
	// ErrUnknownObject means the host has no object behind a handle.
	ErrUnknownObject = errors.New("objects: unknown host object")
	// ErrUnsupported marks options or operations a host does not implement.
	ErrUnsupported = errors.New("objects: unsupported by host")
)

// Host is the simulation this package observes. It owns all entity and map
// state; every method is a synchronous call that completes within the
// current tick. Targets are position-like host values: refs to host objects
// or {x, y} objects.
type Host interface {
	Attr(obj hostval.Ref, name string) (hostval.Value, error)

	// FindInRange returns the subset of targets within r of origin.
	FindInRange(origin hostval.Ref, targets []hostval.Value, r uint8) ([]hostval.Value, error)
	// FindClosestByRange returns the nearest target, or a nullish value.
	FindClosestByRange(origin hostval.Ref, targets []hostval.Value) (hostval.Value, error)
	// FindClosestByPath returns the target with the cheapest path, or a
	// nullish value when none is reachable.
	FindClosestByPath(origin hostval.Ref, targets []hostval.Value, opts *FindPathOptions) (hostval.Value, error)
	FindPath(origin hostval.Ref, goal hostval.Value, opts *FindPathOptions) (SearchResults, error)
	GetRange(origin hostval.Ref, target hostval.Value) (uint8, error)
}

// Directory lists live objects by host prototype.
type Directory interface {
	ObjectsByClass(class string) ([]hostval.Ref, error)
}

// FindPathOptions is handed to the host untouched. Zero fields mean "host
// default".
type FindPathOptions struct {
	CostMatrix      *hostval.Ref    `json:"cost_matrix,omitempty" yaml:"-"`
	PlainCost       int             `json:"plain_cost,omitempty" yaml:"plain_cost,omitempty"`
	SwampCost       int             `json:"swamp_cost,omitempty" yaml:"swamp_cost,omitempty"`
	Flee            bool            `json:"flee,omitempty" yaml:"flee,omitempty"`
	MaxOps          int             `json:"max_ops,omitempty" yaml:"max_ops,omitempty"`
	MaxCost         int             `json:"max_cost,omitempty" yaml:"max_cost,omitempty"`
	HeuristicWeight float64         `json:"heuristic_weight,omitempty" yaml:"heuristic_weight,omitempty"`
	Ignore          []hostval.Value `json:"ignore,omitempty" yaml:"-"`
}

// SearchResults is the host's path search output.
type SearchResults struct {
	Path       []Position `json:"path"`
	Ops        int        `json:"ops"`
	Cost       int        `json:"cost"`
	Incomplete bool       `json:"incomplete"`
}
