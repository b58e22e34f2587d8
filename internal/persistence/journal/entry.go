// Package journal records host calls made through the binding layer: one
// Entry per call, plus one per batch of dropped query results.
package journal

import (
	"time"

	"arenagrid.ai/internal/hostval"
)

type Kind string

const (
	KindCall  Kind = "call"
	KindDrops Kind = "drops"
)

type Entry struct {
	Session string       `json:"session"`
	Seq     uint64       `json:"seq"`
	Time    time.Time    `json:"time"`
	Kind    Kind         `json:"kind"`
	Op      string       `json:"op"`
	Origin  *hostval.Ref `json:"origin,omitempty"`
	// Name is the attribute for attr calls and the class for objectsByClass.
	Name    string       `json:"name,omitempty"`
	Targets int          `json:"targets,omitempty"`
	Results int          `json:"results,omitempty"`
	Dropped int          `json:"dropped,omitempty"`
	Micros  int64        `json:"micros,omitempty"`
	Code    string       `json:"code,omitempty"`
	Err     string       `json:"err,omitempty"`
}

// Sink receives entries. Implementations must be safe for concurrent use.
type Sink interface {
	Append(Entry) error
}

type multiSink []Sink

// MultiSink fans entries out to every sink, returning the first error.
func MultiSink(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiSink) Append(e Entry) error {
	var first error
	for _, s := range m {
		if err := s.Append(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
