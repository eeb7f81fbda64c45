package analysis_test

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idproof/idproof-backend/internal/verification/analysis"
)

func newAgeEstimator(seed int64) *analysis.HeuristicAgeEstimator {
	log := testLogger()
	return analysis.NewHeuristicAgeEstimator(analysis.NewQualityAssessor(log), rand.New(rand.NewSource(seed)), log)
}

func TestEstimate_GoodSelfie(t *testing.T) {
	selfie := writeCheckerPNG(t, t.TempDir(), "selfie.png", 900, 700)

	estimate := newAgeEstimator(1).Estimate(context.Background(), selfie)

	require.NotNil(t, estimate.Age)
	assert.GreaterOrEqual(t, *estimate.Age, 18)
	assert.LessOrEqual(t, *estimate.Age, 65)
	// full-resolution color selfie with no quality deductions caps at 90
	assert.Equal(t, 90, estimate.Confidence)
	assert.Empty(t, estimate.Feedback)
}

func TestEstimate_AgeStaysInBounds(t *testing.T) {
	selfie := writeUniformPNG(t, t.TempDir(), "selfie.png", 300, 300, colorWhite())

	for seed := int64(0); seed < 10; seed++ {
		estimate := newAgeEstimator(seed).Estimate(context.Background(), selfie)
		require.NotNil(t, estimate.Age)
		assert.GreaterOrEqual(t, *estimate.Age, 18)
		assert.LessOrEqual(t, *estimate.Age, 65)
	}
}

func TestEstimate_DeterministicWithFixedSeed(t *testing.T) {
	selfie := writeCheckerPNG(t, t.TempDir(), "selfie.png", 400, 400)

	a := newAgeEstimator(42).Estimate(context.Background(), selfie)
	b := newAgeEstimator(42).Estimate(context.Background(), selfie)

	require.NotNil(t, a.Age)
	require.NotNil(t, b.Age)
	assert.Equal(t, *a.Age, *b.Age)
	assert.Equal(t, a.Confidence, b.Confidence)
}

func TestEstimate_UnreadableSelfie(t *testing.T) {
	estimate := newAgeEstimator(1).Estimate(context.Background(), filepath.Join(t.TempDir(), "missing.png"))

	assert.Nil(t, estimate.Age)
	assert.Equal(t, 0, estimate.Confidence)
	assert.NotEmpty(t, estimate.Feedback)
}

func TestEstimate_DegradedSelfieLowersConfidence(t *testing.T) {
	dir := t.TempDir()
	good := writeCheckerPNG(t, dir, "good.png", 900, 700)
	bad := writeUniformPNG(t, dir, "bad.png", 100, 100, colorDark())

	goodEst := newAgeEstimator(5).Estimate(context.Background(), good)
	badEst := newAgeEstimator(5).Estimate(context.Background(), bad)

	assert.Less(t, badEst.Confidence, goodEst.Confidence)
	assert.NotEmpty(t, badEst.Feedback)
}
