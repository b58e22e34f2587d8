// Package arena holds the object types of the power-split arena mode.
package arena

import (
	"fmt"

	"arenagrid.ai/internal/hostval"
	"arenagrid.ai/internal/objects"
)

// Ownership is the capture state of a flag as seen by the current player.
type Ownership uint8

const (
	Neutral Ownership = iota
	OwnedByMe
	OwnedByEnemy
)

func (o Ownership) String() string {
	switch o {
	case OwnedByMe:
		return "mine"
	case OwnedByEnemy:
		return "enemy"
	default:
		return "neutral"
	}
}

// BonusFlag applies an effect to every creep of the player who captured it.
type BonusFlag struct {
	objects.GameObject
}

// FromGameObject narrows a handle to a BonusFlag when the host created it
// from the BonusFlag prototype.
func FromGameObject(o objects.GameObject) (BonusFlag, bool) {
	if o.Class() != objects.ClassBonusFlag {
		return BonusFlag{}, false
	}
	return BonusFlag{GameObject: o}, true
}

func NewBonusFlag(h objects.Host, handle uint64) BonusFlag {
	return BonusFlag{GameObject: objects.NewGameObject(h, hostval.Ref{Handle: handle, Class: objects.ClassBonusFlag})}
}

// My maps the host's true / false / undefined onto the three capture states.
func (f BonusFlag) My() (Ownership, error) {
	v, err := f.attr(objects.AttrMy)
	if err != nil {
		return Neutral, err
	}
	if v.IsNullish() {
		return Neutral, nil
	}
	b, ok := v.AsBool()
	if !ok {
		return Neutral, fmt.Errorf("%w: %s.my want bool, got %s", objects.ErrAttrType, f, v)
	}
	if b {
		return OwnedByMe, nil
	}
	return OwnedByEnemy, nil
}

func (f BonusFlag) BonusType() (Part, error) {
	v, err := f.attr(objects.AttrBonusType)
	if err != nil {
		return "", err
	}
	s, ok := v.AsString()
	if !ok {
		return "", fmt.Errorf("%w: %s.bonusType want string, got %s", objects.ErrAttrType, f, v)
	}
	return ParsePart(s)
}

func (f BonusFlag) attr(name string) (hostval.Value, error) {
	h := f.Host()
	if h == nil {
		return hostval.Undefined(), objects.ErrNoHost
	}
	return h.Attr(f.Ref(), name)
}
