package protocol

import (
	"arenagrid.ai/internal/hostval"
	"arenagrid.ai/internal/objects"
)

// HELLO (client -> host)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
	// Frames larger than this are refused by the host. Zero means the host default.
	MaxFrameBytes   int    `json:"max_frame_bytes,omitempty"`
}

// WELCOME (host -> client)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	HostName        string `json:"host_name"`
	SessionID       string `json:"session_id"`
	Tick            uint64 `json:"tick"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
}

// CALL (client -> host). Which argument fields are set depends on Op.
//
//	attr               origin, name
//	findInRange        origin, targets, range
//	findClosestByRange origin, targets
//	findClosestByPath  origin, targets, options
//	findPath           origin, target, options
//	getRange           origin, target
//	objectsByClass     class
type CallMsg struct {
	Type            string                   `json:"type"`
	ProtocolVersion string                   `json:"protocol_version"`
	ID              uint64                   `json:"id"`
	Op              string                   `json:"op"`
	Origin          *hostval.Ref             `json:"origin,omitempty"`
	Name            string                   `json:"name,omitempty"`
	Class           string                   `json:"class,omitempty"`
	Targets         []hostval.Value          `json:"targets,omitempty"`
	Target          *hostval.Value           `json:"target,omitempty"`
	Range           int                      `json:"range,omitempty"`
	Options         *objects.FindPathOptions `json:"options,omitempty"`
}

// RESULT (host -> client). Exactly one payload field is meaningful for a
// successful call; failed calls carry Code and Message.
type ResultMsg struct {
	Type            string                 `json:"type"`
	ProtocolVersion string                 `json:"protocol_version"`
	ID              uint64                 `json:"id"`
	OK              bool                   `json:"ok"`
	Code            string                 `json:"code,omitempty"`
	Message         string                 `json:"message,omitempty"`
	Value           *hostval.Value         `json:"value,omitempty"`
	Values          []hostval.Value        `json:"values,omitempty"`
	Range           int                    `json:"range,omitempty"`
	Search          *objects.SearchResults `json:"search,omitempty"`
}

func NewCall(id uint64, op string) CallMsg {
	return CallMsg{Type: TypeCall, ProtocolVersion: Version, ID: id, Op: op}
}

func NewResult(id uint64) ResultMsg {
	return ResultMsg{Type: TypeResult, ProtocolVersion: Version, ID: id, OK: true}
}

func NewFailure(id uint64, code, msg string) ResultMsg {
	return ResultMsg{Type: TypeResult, ProtocolVersion: Version, ID: id, Code: code, Message: msg}
}
