package live

import (
	cperrors "github.com/mchmarny/craftplan/pkg/errors"
	"github.com/mchmarny/craftplan/pkg/planner"
)

// Message types sent by clients.
const (
	MessageObjective = "objective"
	MessageTier      = "tier"
	MessageReset     = "reset"
	MessageSnapshot  = "snapshot"
)

// Event types sent by the server.
const (
	EventSnapshot = "snapshot"
	EventError    = "error"
)

// Message is a client request to mutate or read the session.
type Message struct {
	Type    string   `json:"type"`
	Item    string   `json:"item,omitempty"`
	Count   *float64 `json:"count,omitempty"`
	Machine string   `json:"machine,omitempty"`
	Tier    *int     `json:"tier,omitempty"`
}

// Event is pushed to the client after every accepted mutation and in reply
// to rejected messages. Snapshot events whose expansion failed carry the
// failure in Code and Message.
type Event struct {
	Type string `json:"type"`

	*planner.Snapshot `json:",omitempty"`

	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func snapshotEvent(s planner.Snapshot) Event {
	e := Event{Type: EventSnapshot, Snapshot: &s}
	if s.Err != nil {
		e.Code, e.Message = errorFields(s.Err)
	}
	return e
}

func errorEvent(err error) Event {
	e := Event{Type: EventError}
	e.Code, e.Message = errorFields(err)
	return e
}

func errorFields(err error) (string, string) {
	code := cperrors.CodeOf(err)
	if code == "" {
		code = cperrors.ErrCodeInternal
	}
	return string(code), err.Error()
}
