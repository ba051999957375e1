package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope published to Kafka for every domain event.
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	SubjectID     string          `json:"subject_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEvent builds an event envelope around the given payload. SubjectID keys
// the Kafka partition so events for the same checkout stay ordered.
func NewEvent(eventType, subjectID, source string, payload any) (*Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		SubjectID:  subjectID,
		OccurredAt: time.Now().UTC(),
		Source:     source,
		Payload:    body,
	}, nil
}

// WithCorrelationID sets the correlation ID on the event.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// Marshal serializes the event to JSON.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
