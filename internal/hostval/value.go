// Package hostval is the tagged union for every value that crosses the host
// boundary. The host declares what an attribute holds; callers never probe
// a dynamic value for its type.
package hostval

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindRef
	KindObject
	KindArray
)

var kindNames = [...]string{
	KindUndefined: "undefined",
	KindNull:      "null",
	KindBool:      "bool",
	KindNumber:    "number",
	KindString:    "string",
	KindRef:       "ref",
	KindObject:    "object",
	KindArray:     "array",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Ref is an opaque handle to a live host object together with the name of
// the host prototype it was created from.
type Ref struct {
	Handle uint64 `json:"h"`
	Class  string `json:"c,omitempty"`
}

func (r Ref) IsZero() bool { return r.Handle == 0 }

func (r Ref) String() string {
	if r.Class == "" {
		return fmt.Sprintf("#%d", r.Handle)
	}
	return fmt.Sprintf("%s#%d", r.Class, r.Handle)
}

// Value is immutable once built. The zero Value is undefined.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	ref  Ref
	obj  map[string]Value
	arr  []Value
}

func Undefined() Value          { return Value{} }
func Null() Value               { return Value{kind: KindNull} }
func Bool(b bool) Value         { return Value{kind: KindBool, b: b} }
func Number(n float64) Value    { return Value{kind: KindNumber, n: n} }
func String(s string) Value     { return Value{kind: KindString, s: s} }
func RefTo(r Ref) Value         { return Value{kind: KindRef, ref: r} }
func Array(elems []Value) Value { return Value{kind: KindArray, arr: append([]Value(nil), elems...)} }

func Object(fields map[string]Value) Value {
	cp := make(map[string]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Value{kind: KindObject, obj: cp}
}

func (v Value) Kind() Kind { return v.kind }

// IsNullish reports whether the host signalled "nothing" (undefined or null).
func (v Value) IsNullish() bool { return v.kind == KindUndefined || v.kind == KindNull }

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

func (v Value) AsNumber() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.n, true
}

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

func (v Value) AsRef() (Ref, bool) {
	if v.kind != KindRef {
		return Ref{}, false
	}
	return v.ref, true
}

// Field returns the named field of an object value, or undefined.
func (v Value) Field(name string) Value {
	if v.kind != KindObject {
		return Undefined()
	}
	return v.obj[name]
}

// Fields returns the sorted field names of an object value.
func (v Value) Fields() []string {
	if v.kind != KindObject {
		return nil
	}
	names := make([]string, 0, len(v.obj))
	for k := range v.obj {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Elems returns the elements of an array value. The slice must not be modified.
func (v Value) Elems() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.arr
}

// Key identifies the host object a value stands for. Refs are keyed by
// handle, position-like objects by their coordinates. Values that cannot
// identify anything return "".
func (v Value) Key() string {
	switch v.kind {
	case KindRef:
		return "#" + strconv.FormatUint(v.ref.Handle, 10)
	case KindObject:
		x, okx := v.Field("x").AsNumber()
		y, oky := v.Field("y").AsNumber()
		if !okx || !oky {
			return ""
		}
		return "@" + formatNumber(x) + "," + formatNumber(y)
	default:
		return ""
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindUndefined, KindNull:
		return v.kind.String()
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return formatNumber(v.n)
	case KindString:
		return strconv.Quote(v.s)
	case KindRef:
		return v.ref.String()
	case KindObject:
		var sb strings.Builder
		sb.WriteByte('{')
		for i, k := range v.Fields() {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(k)
			sb.WriteByte(':')
			sb.WriteString(v.obj[k].String())
		}
		sb.WriteByte('}')
		return sb.String()
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	return v.kind.String()
}

// Equal is structural equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindUndefined, KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindString:
		return v.s == o.s
	case KindRef:
		return v.ref == o.ref
	case KindObject:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, fv := range v.obj {
			ov, ok := o.obj[k]
			if !ok || !fv.Equal(ov) {
				return false
			}
		}
		return true
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// FromAny converts decoded YAML/JSON data into a Value.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case float64:
		return Number(t), nil
	case Ref:
		return RefTo(t), nil
	case []any:
		elems := make([]Value, 0, len(t))
		for i, e := range t {
			ev, err := FromAny(e)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			elems = append(elems, ev)
		}
		return Value{kind: KindArray, arr: elems}, nil
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, e := range t {
			ev, err := FromAny(e)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			fields[k] = ev
		}
		return Value{kind: KindObject, obj: fields}, nil
	default:
		return Value{}, fmt.Errorf("unsupported host value type %T", x)
	}
}

func formatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
