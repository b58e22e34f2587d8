package objects

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"arenagrid.ai/internal/hostval"
)

// ID names one live world entity for as long as it exists.
type ID string

func (id ID) String() string { return string(id) }

// ErrIDRepr means the host handed out an identity that is neither text nor
// a number. It points at a host contract violation, not a stale handle.
var ErrIDRepr = errors.New("objects: identity is neither string nor number")

type IDReprError struct {
	Kind hostval.Kind
	Raw  string
}

func (e *IDReprError) Error() string {
	return fmt.Sprintf("%v: got %s %s", ErrIDRepr, e.Kind, e.Raw)
}

func (e *IDReprError) Unwrap() error { return ErrIDRepr }

// NormalizeID turns a raw host identity into its canonical text. Text is
// returned unchanged; numbers are printed in plain decimal with no exponent
// and no trailing ".0".
func NormalizeID(raw hostval.Value) (ID, error) {
	if s, ok := raw.AsString(); ok {
		return ID(s), nil
	}
	if f, ok := raw.AsNumber(); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", &IDReprError{Kind: raw.Kind(), Raw: raw.String()}
		}
		if f == 0 {
			// -0 prints as "-0".
			f = 0
		}
		return ID(strconv.FormatFloat(f, 'f', -1, 64)), nil
	}
	return "", &IDReprError{Kind: raw.Kind(), Raw: raw.String()}
}
