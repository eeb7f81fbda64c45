package messaging_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idproof/idproof-backend/pkg/messaging"
)

func TestNewEvent(t *testing.T) {
	data := messaging.VerificationCompletedEvent{
		RecordID:         7,
		FaceMatchScore:   72,
		FaceConfidence:   80,
		IdentityVerified: true,
		AgeVerified:      true,
	}

	event, err := messaging.NewEvent(messaging.EventVerificationCompleted, "verification-service", "corr-1", data)
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, messaging.EventVerificationCompleted, event.Type)
	assert.Equal(t, "verification-service", event.Source)
	assert.Equal(t, "corr-1", event.CorrelationID)
	assert.False(t, event.Timestamp.IsZero())

	var decoded messaging.VerificationCompletedEvent
	require.NoError(t, event.UnmarshalData(&decoded))
	assert.Equal(t, data, decoded)
}

func TestVerificationCreatedEvent_CarriesNoPersonalData(t *testing.T) {
	event := messaging.VerificationCreatedEvent{
		RecordID:      3,
		OCRLanguage:   "eng",
		OCRConfidence: 70,
		NameExtracted: true,
		DOBExtracted:  true,
	}

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))

	// Only presence flags cross the broker, never the extracted values
	assert.NotContains(t, fields, "name")
	assert.NotContains(t, fields, "extracted_name")
	assert.NotContains(t, fields, "dob")
	assert.NotContains(t, fields, "extracted_dob")
	assert.Equal(t, true, fields["name_extracted"])
	assert.Equal(t, true, fields["dob_extracted"])
}
