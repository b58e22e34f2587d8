package protocol_test

import (
	"encoding/json"
	"testing"

	"arenagrid.ai/internal/hostval"
	"arenagrid.ai/internal/objects"
	"arenagrid.ai/internal/protocol"
)

func newValidator(t *testing.T) *protocol.Validator {
	t.Helper()
	v, err := protocol.NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return v
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestSchemas_ValidateSamples(t *testing.T) {
	v := newValidator(t)

	validate := func(raw []byte) {
		t.Helper()
		if err := v.Validate(raw); err != nil {
			t.Fatalf("validate %s: %v", raw, err)
		}
	}

	validate([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "client_name":"probe"
	}`))

	validate([]byte(`{
	  "type":"WELCOME",
	  "protocol_version":"1.0",
	  "host_name":"hostsim",
	  "session_id":"01J9Z3K6W0000000000000000",
	  "tick":12,
	  "width":100,
	  "height":100
	}`))

	origin := hostval.Ref{Handle: 1, Class: objects.ClassGameObject}
	call := protocol.NewCall(7, objects.OpFindInRange)
	call.Origin = &origin
	call.Targets = []hostval.Value{
		hostval.RefTo(hostval.Ref{Handle: 2, Class: objects.ClassBonusFlag}),
		objects.Position{X: 3, Y: 4}.HostValue(),
	}
	call.Range = 5
	validate(mustJSON(t, call))

	path := protocol.NewCall(8, objects.OpFindPath)
	path.Origin = &origin
	goal := objects.Position{X: 9, Y: 9}.HostValue()
	path.Target = &goal
	path.Options = &objects.FindPathOptions{PlainCost: 1, SwampCost: 5, MaxOps: 100}
	validate(mustJSON(t, path))

	res := protocol.NewResult(7)
	res.Values = []hostval.Value{hostval.RefTo(hostval.Ref{Handle: 2})}
	validate(mustJSON(t, res))

	search := protocol.NewResult(8)
	search.Search = &objects.SearchResults{Path: []objects.Position{{X: 1, Y: 1}}, Ops: 3, Cost: 2}
	validate(mustJSON(t, search))

	validate(mustJSON(t, protocol.NewFailure(9, protocol.ErrUnknownObject, "no object #9")))
}

func TestSchemas_RejectBadFrames(t *testing.T) {
	v := newValidator(t)
	for name, raw := range map[string]string{
		"unknown type":         `{"type":"PING","protocol_version":"1.0"}`,
		"call without origin":  `{"type":"CALL","protocol_version":"1.0","id":1,"op":"findInRange","targets":[]}`,
		"call unknown op":      `{"type":"CALL","protocol_version":"1.0","id":1,"op":"teleport","origin":{"h":1}}`,
		"attr without name":    `{"type":"CALL","protocol_version":"1.0","id":1,"op":"attr","origin":{"h":1}}`,
		"range too large":      `{"type":"CALL","protocol_version":"1.0","id":1,"op":"findInRange","origin":{"h":1},"range":300}`,
		"failure without code": `{"type":"RESULT","protocol_version":"1.0","id":1,"ok":false}`,
		"bad value tag":        `{"type":"RESULT","protocol_version":"1.0","id":1,"ok":true,"value":{"t":"sym"}}`,
		"ref without handle":   `{"type":"RESULT","protocol_version":"1.0","id":1,"ok":true,"value":{"t":"ref"}}`,
		"not json":             `{"type":`,
	} {
		if err := v.Validate([]byte(raw)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestSchemas_ValueRoundTrip(t *testing.T) {
	v := newValidator(t)
	vals := []hostval.Value{
		hostval.Undefined(),
		hostval.Null(),
		hostval.Bool(false),
		hostval.Number(-2.5),
		hostval.String("flag"),
		hostval.RefTo(hostval.Ref{Handle: 3, Class: objects.ClassBonusFlag}),
		hostval.Array([]hostval.Value{hostval.Number(1), hostval.Null()}),
		objects.Position{X: 10, Y: 12}.HostValue(),
	}
	for _, val := range vals {
		if err := v.ValidateValue(mustJSON(t, val)); err != nil {
			t.Fatalf("value %s: %v", val, err)
		}
	}
	if err := v.ValidateValue([]byte(`{"t":"num","v":"7"}`)); err == nil {
		t.Fatalf("expected string payload rejected for num")
	}
}
