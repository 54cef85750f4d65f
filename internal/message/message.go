package message

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type discriminates commands (orchestrator -> participant) from
// events (participant -> orchestrator).
type Type string

const (
	TypeCommand Type = "COMMAND"
	TypeEvent   Type = "EVENT"
)

// Message is the wire envelope shared by every saga participant. The
// envelope, not any single payload, is what the outbox stores and the
// idempotency guard keys on.
type Message struct {
	ID            uuid.UUID
	Type          Type
	Name          string
	Timestamp     time.Time
	CorrelationID uuid.UUID
	Payload       Payload
}

// NewCommand builds a command envelope with a fresh message id.
func NewCommand(name string, correlationID uuid.UUID, payload Payload) Message {
	return Message{
		ID:            uuid.New(),
		Type:          TypeCommand,
		Name:          name,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Payload:       payload,
	}
}

// NewEvent builds an event envelope with a fresh message id.
func NewEvent(name string, correlationID uuid.UUID, payload Payload) Message {
	return Message{
		ID:            uuid.New(),
		Type:          TypeEvent,
		Name:          name,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Payload:       payload,
	}
}

type envelope struct {
	ID            uuid.UUID       `json:"id"`
	Type          Type            `json:"type"`
	Name          string          `json:"name"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID uuid.UUID       `json:"correlationId"`
	Payload       json.RawMessage `json:"payload"`
}

// MarshalJSON wraps the payload with its "@type" discriminator.
func (m Message) MarshalJSON() ([]byte, error) {
	raw, err := MarshalPayload(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", m.Name, err)
	}
	return json.Marshal(envelope{
		ID:            m.ID,
		Type:          m.Type,
		Name:          m.Name,
		Timestamp:     m.Timestamp,
		CorrelationID: m.CorrelationID,
		Payload:       raw,
	})
}

// UnmarshalJSON decodes the envelope and resolves the payload union by
// its "@type" discriminator.
func (m *Message) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	payload, err := UnmarshalPayload(env.Payload)
	if err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", env.Name, err)
	}
	m.ID = env.ID
	m.Type = env.Type
	m.Name = env.Name
	m.Timestamp = env.Timestamp
	m.CorrelationID = env.CorrelationID
	m.Payload = payload
	return nil
}
