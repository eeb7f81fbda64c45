package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventVerificationCreated   = "verification.created"
	EventVerificationCompleted = "verification.completed"
	EventVerificationFailed    = "verification.failed"
)

// Exchange names
const (
	ExchangeVerificationEvents = "verification.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// VerificationCreatedEvent is published when a document upload creates a record
type VerificationCreatedEvent struct {
	RecordID      int64  `json:"record_id"`
	OCRLanguage   string `json:"ocr_language,omitempty"`
	OCRConfidence int    `json:"ocr_confidence"`
	// Extracted identity fields are intentionally absent: events may
	// end up in broker logs and must stay free of personal data.
	NameExtracted bool `json:"name_extracted"`
	DOBExtracted  bool `json:"dob_extracted"`
}

// VerificationCompletedEvent is published when the orchestrator finishes a record
type VerificationCompletedEvent struct {
	RecordID         int64 `json:"record_id"`
	FaceMatchScore   int   `json:"face_match_score"`
	FaceConfidence   int   `json:"face_confidence"`
	IdentityVerified bool  `json:"identity_verified"`
	AgeVerified      bool  `json:"age_verified"`
}

// VerificationFailedEvent is published when processing ends in the failed state
type VerificationFailedEvent struct {
	RecordID int64  `json:"record_id"`
	Reason   string `json:"reason"`
}
