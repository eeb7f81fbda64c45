package analysis

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"github.com/idproof/idproof-backend/pkg/logger"
)

// AgeEstimate holds a heuristic age estimate for a selfie
type AgeEstimate struct {
	Age        *int     `json:"age"`
	Confidence int      `json:"confidence"`
	Feedback   []string `json:"feedback"`
}

// AgeEstimator produces an age estimate from a selfie image
type AgeEstimator interface {
	Estimate(ctx context.Context, selfiePath string) *AgeEstimate
}

// HeuristicAgeEstimator derives an age from selfie color statistics plus
// bounded jitter. Like the face matcher it is a documented placeholder for
// a real vision model; the estimate stays within [18, 65].
type HeuristicAgeEstimator struct {
	quality *QualityAssessor
	rng     *rand.Rand
	mu      sync.Mutex
	log     *logger.Logger
}

// NewHeuristicAgeEstimator creates an estimator with the given jitter source
func NewHeuristicAgeEstimator(quality *QualityAssessor, rng *rand.Rand, log *logger.Logger) *HeuristicAgeEstimator {
	return &HeuristicAgeEstimator{
		quality: quality,
		rng:     rng,
		log:     log.WithComponent("age_estimator"),
	}
}

// Estimate computes the age estimate for the selfie at selfiePath.
// Decode failures yield a nil age with zero confidence rather than an error.
func (e *HeuristicAgeEstimator) Estimate(ctx context.Context, selfiePath string) *AgeEstimate {
	stats, err := ReadStats(selfiePath)
	if err != nil {
		e.log.Warn().Err(err).Msg("selfie unreadable, age estimate unavailable")
		return &AgeEstimate{
			Age:        nil,
			Confidence: 0,
			Feedback:   []string{"Selfie could not be analyzed for age estimation."},
		}
	}

	estimated := 25.0

	if stats.Channels() >= 3 {
		skinTone := (stats.Means[0] + stats.Means[1] - stats.Means[2]) / 2
		if skinTone > 150 {
			estimated += 8
		} else if skinTone < 100 {
			estimated -= 5
		}

		complexity := stats.StdDevs[0] / 255
		estimated += complexity * 15
	}

	estimated += e.jitter(6)

	age := clampInt(int(math.Round(estimated)), 18, 65)

	confidence, feedback := e.confidence(stats, selfiePath)

	return &AgeEstimate{
		Age:        &age,
		Confidence: confidence,
		Feedback:   feedback,
	}
}

func (e *HeuristicAgeEstimator) confidence(stats *ImageStats, selfiePath string) (int, []string) {
	confidence := 60.0

	area := float64(stats.Area())
	if area > 400_000 {
		confidence += 15
	}
	if area > 800_000 {
		confidence += 10
	}
	if stats.Color {
		confidence += 10
	}
	if stats.Channels() >= 3 {
		confidence += 10
	}

	scale := area / 500_000
	if scale > 1 {
		scale = 1
	}
	confidence *= 0.7 + 0.3*scale
	if confidence > 90 {
		confidence = 90
	}

	feedback := []string{}

	report := e.quality.Assess(selfiePath)
	if report.Degraded() {
		confidence -= 20
		feedback = append(feedback, "Selfie quality is low; the age estimate is less reliable.")
	}
	if report.HasIssue(IssueBlurry) {
		feedback = append(feedback, "Selfie blur affects age estimation accuracy.")
	}

	return clampInt(int(math.Round(confidence)), 0, 100), feedback
}

func (e *HeuristicAgeEstimator) jitter(bound float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return (e.rng.Float64()*2 - 1) * bound
}
