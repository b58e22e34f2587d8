package objects

import (
	"errors"
	"fmt"
	"math"

	"arenagrid.ai/internal/hostval"
	"arenagrid.ai/internal/mathx"
)

// GridMax is the largest coordinate a room position can hold.
const GridMax = math.MaxUint8

var ErrOutOfBounds = errors.New("objects: coordinate out of bounds")

// Position is a cell within the single map region.
type Position struct {
	X uint8 `json:"x"`
	Y uint8 `json:"y"`
}

// HasPosition is implemented by anything the host can locate on the grid.
type HasPosition interface {
	Pos() (Position, error)
}

func NewPosition(x, y int) (Position, error) {
	if x < 0 || x > GridMax || y < 0 || y > GridMax {
		return Position{}, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, x, y)
	}
	return Position{X: uint8(x), Y: uint8(y)}, nil
}

func (p Position) Pos() (Position, error) { return p, nil }

// GetRangeTo is the linear range used by the host: the larger of the two
// axis distances.
func (p Position) GetRangeTo(o Position) uint8 {
	return uint8(mathx.Chebyshev(int(p.X), int(p.Y), int(o.X), int(o.Y)))
}

// HostValue lets a bare position be passed wherever the host accepts a
// position-like object.
func (p Position) HostValue() hostval.Value {
	return hostval.Object(map[string]hostval.Value{
		"x": hostval.Number(float64(p.X)),
		"y": hostval.Number(float64(p.Y)),
	})
}

func (p Position) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// PositionFromValue reads a position-like host object.
func PositionFromValue(v hostval.Value) (Position, error) {
	x, err := coord(v.Field(AttrX))
	if err != nil {
		return Position{}, fmt.Errorf("x: %w", err)
	}
	y, err := coord(v.Field(AttrY))
	if err != nil {
		return Position{}, fmt.Errorf("y: %w", err)
	}
	return Position{X: x, Y: y}, nil
}

func coord(v hostval.Value) (uint8, error) {
	f, ok := v.AsNumber()
	if !ok {
		return 0, fmt.Errorf("%w: want number, got %s", ErrAttrType, v.Kind())
	}
	if f != math.Trunc(f) || f < 0 || f > GridMax {
		return 0, fmt.Errorf("%w: %v", ErrOutOfBounds, f)
	}
	return uint8(f), nil
}
