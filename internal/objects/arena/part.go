package arena

import "fmt"

// Part is a creep body part type. Bonus flags use it to say which parts
// their effect boosts.
type Part string

const (
	PartMove         Part = "move"
	PartWork         Part = "work"
	PartCarry        Part = "carry"
	PartAttack       Part = "attack"
	PartRangedAttack Part = "ranged_attack"
	PartHeal         Part = "heal"
	PartTough        Part = "tough"
)

var knownParts = map[Part]struct{}{
	PartMove:         {},
	PartWork:         {},
	PartCarry:        {},
	PartAttack:       {},
	PartRangedAttack: {},
	PartHeal:         {},
	PartTough:        {},
}

func ParsePart(s string) (Part, error) {
	p := Part(s)
	if _, ok := knownParts[p]; !ok {
		return "", fmt.Errorf("unknown body part %q", s)
	}
	return p, nil
}

func (p Part) String() string { return string(p) }
