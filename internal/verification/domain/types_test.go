package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idproof/idproof-backend/internal/verification/domain"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from    domain.Status
		to      domain.Status
		allowed bool
	}{
		{domain.StatusPending, domain.StatusDocumentProcessed, true},
		{domain.StatusDocumentProcessed, domain.StatusSelfieUploaded, true},
		{domain.StatusSelfieUploaded, domain.StatusProcessing, true},
		{domain.StatusProcessing, domain.StatusCompleted, true},
		{domain.StatusProcessing, domain.StatusFailed, true},

		// no skipping forward
		{domain.StatusPending, domain.StatusSelfieUploaded, false},
		{domain.StatusDocumentProcessed, domain.StatusProcessing, false},
		{domain.StatusSelfieUploaded, domain.StatusCompleted, false},

		// no moving backwards
		{domain.StatusCompleted, domain.StatusProcessing, false},
		{domain.StatusSelfieUploaded, domain.StatusDocumentProcessed, false},

		// failed only from processing
		{domain.StatusPending, domain.StatusFailed, false},
		{domain.StatusSelfieUploaded, domain.StatusFailed, false},
		{domain.StatusCompleted, domain.StatusFailed, false},

		// terminal states go nowhere
		{domain.StatusFailed, domain.StatusCompleted, false},
		{domain.StatusCompleted, domain.StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanAdvanceTo(tt.to))
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, domain.StatusCompleted.Terminal())
	assert.True(t, domain.StatusFailed.Terminal())
	assert.False(t, domain.StatusPending.Terminal())
	assert.False(t, domain.StatusProcessing.Terminal())
}

func TestRecordAdvance(t *testing.T) {
	rec := &domain.Record{Status: domain.StatusDocumentProcessed}

	require.NoError(t, rec.Advance(domain.StatusSelfieUploaded))
	assert.Equal(t, domain.StatusSelfieUploaded, rec.Status)

	err := rec.Advance(domain.StatusCompleted)
	require.Error(t, err)
	// failed advance leaves the status untouched
	assert.Equal(t, domain.StatusSelfieUploaded, rec.Status)
}

func TestQualityFeedbackScan(t *testing.T) {
	src := domain.QualityFeedback{
		Face:    []string{"Selfie appears blurry; retake with a steady camera."},
		Age:     []string{},
		Overall: []string{"Identity verified: face match score 72 with confidence 80."},
	}

	value, err := src.Value()
	require.NoError(t, err)

	var out domain.QualityFeedback
	require.NoError(t, out.Scan(value))
	assert.Equal(t, src, out)

	// nil column leaves the zero value
	var empty domain.QualityFeedback
	require.NoError(t, empty.Scan(nil))
	assert.Nil(t, empty.Face)

	assert.Error(t, empty.Scan(42))
}
