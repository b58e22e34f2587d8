package hostval

import (
	"encoding/json"
	"fmt"
	"math"
)

// Wire tags. A value travels as {"t":<tag>, ...}.
const (
	tagUndefined = "undef"
	tagNull      = "null"
	tagBool      = "bool"
	tagNumber    = "num"
	tagString    = "str"
	tagRef       = "ref"
	tagObject    = "obj"
	tagArray     = "arr"
)

type wireValue struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v,omitempty"`
	H uint64          `json:"h,omitempty"`
	C string          `json:"c,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	w := wireValue{}
	var err error
	switch v.kind {
	case KindUndefined:
		w.T = tagUndefined
	case KindNull:
		w.T = tagNull
	case KindBool:
		w.T = tagBool
		w.V, err = json.Marshal(v.b)
	case KindNumber:
		if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
			return nil, fmt.Errorf("hostval: number %v has no wire form", v.n)
		}
		w.T = tagNumber
		w.V, err = json.Marshal(v.n)
	case KindString:
		w.T = tagString
		w.V, err = json.Marshal(v.s)
	case KindRef:
		w.T = tagRef
		w.H = v.ref.Handle
		w.C = v.ref.Class
	case KindObject:
		w.T = tagObject
		if v.obj == nil {
			w.V = json.RawMessage("{}")
		} else {
			w.V, err = json.Marshal(v.obj)
		}
	case KindArray:
		w.T = tagArray
		if v.arr == nil {
			w.V = json.RawMessage("[]")
		} else {
			w.V, err = json.Marshal(v.arr)
		}
	default:
		return nil, fmt.Errorf("hostval: unknown kind %d", v.kind)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var w wireValue
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	switch w.T {
	case tagUndefined, "":
		*v = Undefined()
	case tagNull:
		*v = Null()
	case tagBool:
		var x bool
		if err := json.Unmarshal(w.V, &x); err != nil {
			return fmt.Errorf("hostval bool: %w", err)
		}
		*v = Bool(x)
	case tagNumber:
		var x float64
		if err := json.Unmarshal(w.V, &x); err != nil {
			return fmt.Errorf("hostval num: %w", err)
		}
		*v = Number(x)
	case tagString:
		var x string
		if err := json.Unmarshal(w.V, &x); err != nil {
			return fmt.Errorf("hostval str: %w", err)
		}
		*v = String(x)
	case tagRef:
		if w.H == 0 {
			return fmt.Errorf("hostval ref: missing handle")
		}
		*v = RefTo(Ref{Handle: w.H, Class: w.C})
	case tagObject:
		var x map[string]Value
		if len(w.V) > 0 {
			if err := json.Unmarshal(w.V, &x); err != nil {
				return fmt.Errorf("hostval obj: %w", err)
			}
		}
		if x == nil {
			x = map[string]Value{}
		}
		*v = Value{kind: KindObject, obj: x}
	case tagArray:
		var x []Value
		if len(w.V) > 0 {
			if err := json.Unmarshal(w.V, &x); err != nil {
				return fmt.Errorf("hostval arr: %w", err)
			}
		}
		*v = Value{kind: KindArray, arr: x}
	default:
		return fmt.Errorf("hostval: unknown tag %q", w.T)
	}
	return nil
}
