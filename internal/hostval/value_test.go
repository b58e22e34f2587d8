package hostval

import (
	"encoding/json"
	"math"
	"testing"
)

func TestKeyIdentifiesRefsAndPositions(t *testing.T) {
	a := RefTo(Ref{Handle: 7, Class: "BonusFlag"})
	b := RefTo(Ref{Handle: 7, Class: "GameObject"})
	if a.Key() != b.Key() {
		t.Fatalf("same handle must share a key: %q vs %q", a.Key(), b.Key())
	}
	pos := Object(map[string]Value{"x": Number(10), "y": Number(12)})
	if got := pos.Key(); got != "@10,12" {
		t.Fatalf("position key = %q", got)
	}
	for _, v := range []Value{Undefined(), Null(), String("abc"), Number(1), Object(map[string]Value{"x": Number(1)})} {
		if v.Key() != "" {
			t.Fatalf("%s should not have a key, got %q", v, v.Key())
		}
	}
}

func TestJSONRoundTripPreservesKinds(t *testing.T) {
	in := Array([]Value{
		Undefined(),
		Null(),
		Bool(true),
		Number(42),
		String("abc123"),
		RefTo(Ref{Handle: 3, Class: "GameObject"}),
		Object(map[string]Value{"x": Number(1), "y": Number(2)}),
	})
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out Value
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !in.Equal(out) {
		t.Fatalf("round trip mismatch:\n in=%s\nout=%s", in, out)
	}
}

func TestMarshalRejectsNonFiniteNumbers(t *testing.T) {
	if _, err := json.Marshal(Number(math.NaN())); err == nil {
		t.Fatalf("expected NaN to be rejected")
	}
}

func TestUnmarshalRejectsUnknownTag(t *testing.T) {
	var v Value
	if err := json.Unmarshal([]byte(`{"t":"sym","v":"x"}`), &v); err == nil {
		t.Fatalf("expected unknown tag to fail")
	}
	if err := json.Unmarshal([]byte(`{"t":"ref"}`), &v); err == nil {
		t.Fatalf("expected ref without handle to fail")
	}
}

func TestFromAny(t *testing.T) {
	v, err := FromAny(map[string]any{"id": 12345, "tags": []any{"a", true, nil}})
	if err != nil {
		t.Fatalf("FromAny: %v", err)
	}
	if n, ok := v.Field("id").AsNumber(); !ok || n != 12345 {
		t.Fatalf("id = %s", v.Field("id"))
	}
	elems := v.Field("tags").Elems()
	if len(elems) != 3 || elems[2].Kind() != KindNull {
		t.Fatalf("tags = %s", v.Field("tags"))
	}
	if _, err := FromAny(struct{}{}); err == nil {
		t.Fatalf("expected unsupported type error")
	}
}
