// Package hub fans messages out to websocket clients.
//
// A Hub owns its client set on one goroutine (Run). Clients register and
// unregister through channels, and each client has its own write pump so a
// slow client is dropped instead of stalling the others.
package hub

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageType indicates the websocket message format
type MessageType int

const (
	// JSONMessage is a JSON-encoded message
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data (e.g., JPEG frames)
	BinaryMessage
)

// Message is a message to be broadcast to clients.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage creates a JSON message from pre-encoded bytes
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage creates a binary message
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

// Envelope wraps a typed event for the events stream.
type Envelope struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data"`
}

// NewEnvelope creates an envelope with a fresh id.
func NewEnvelope(kind string, data any, at time.Time) Envelope {
	return Envelope{ID: uuid.NewString(), Type: kind, Time: at, Data: data}
}

// Encode renders the envelope as a JSON message.
func (e Envelope) Encode() (Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return Message{}, err
	}
	return NewJSONMessage(data), nil
}
