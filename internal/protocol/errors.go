package protocol

import (
	"errors"

	"arenagrid.ai/internal/objects"
)

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"

	// Call dispatch.
	ErrUnknownOp  = "E_UNKNOWN_OP"
	ErrBadRequest = "E_BAD_REQUEST"

	// Host side.
	ErrUnknownObject = "E_UNKNOWN_OBJECT"
	ErrUnsupported   = "E_UNSUPPORTED"
	ErrHost          = "E_HOST"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrUnknownOp:       {},
	ErrBadRequest:      {},
	ErrUnknownObject:   {},
	ErrUnsupported:     {},
	ErrHost:            {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// CodeOf classifies a host-side error into a wire code.
func CodeOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, objects.ErrUnknownObject):
		return ErrUnknownObject
	case errors.Is(err, objects.ErrUnsupported):
		return ErrUnsupported
	case errors.Is(err, objects.ErrHost):
		return ErrHost
	default:
		return ErrInternal
	}
}
