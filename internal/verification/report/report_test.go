package report_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idproof/idproof-backend/internal/verification/domain"
	"github.com/idproof/idproof-backend/internal/verification/report"
)

func completedRecord() *domain.Record {
	name := "Jane Doe"
	dob := "01/01/1990"
	lang := "eng"
	ocrConf := 70
	score := 72
	faceConf := 80
	age := 30
	ageConf := 85
	completed := time.Date(2026, time.August, 31, 10, 0, 0, 0, time.UTC)

	return &domain.Record{
		ID:             3,
		DocumentPath:   "uploads/doc.png",
		SelfiePath:     "uploads/selfie.png",
		ExtractedName:  &name,
		ExtractedDOB:   &dob,
		OCRLanguage:    &lang,
		OCRConfidence:  &ocrConf,
		FaceMatchScore: &score,
		FaceConfidence: &faceConf,
		DetectedAge:    &age,
		AgeConfidence:  &ageConf,

		IdentityVerified: true,
		AgeVerified:      true,

		QualityFeedback: &domain.QualityFeedback{
			Face:    []string{"Selfie is slightly blurry; a steadier shot will help."},
			Age:     []string{},
			Overall: []string{"Identity verified: face match score 72 with confidence 80."},
		},

		Status:      domain.StatusCompleted,
		CreatedAt:   completed.Add(-2 * time.Minute),
		CompletedAt: &completed,
	}
}

func TestGenerate(t *testing.T) {
	data, err := report.NewGenerator().Generate(completedRecord())
	require.NoError(t, err)

	require.Greater(t, len(data), 500)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestGenerate_SparseRecord(t *testing.T) {
	// Missing optionals render as dashes instead of erroring
	rec := &domain.Record{
		ID:           9,
		DocumentPath: "uploads/doc.png",
		Status:       domain.StatusCompleted,
		CreatedAt:    time.Now().UTC(),
	}

	data, err := report.NewGenerator().Generate(rec)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}
