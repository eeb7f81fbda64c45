package analysis

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"github.com/idproof/idproof-backend/pkg/logger"
)

// FaceMatchResult holds the heuristic match outcome for a document/selfie pair
type FaceMatchResult struct {
	Score      int      `json:"score"`
	Confidence int      `json:"confidence"`
	Feedback   []string `json:"feedback"`
}

// FaceMatcher compares color-channel statistics of the document photo and
// the selfie. This is a documented heuristic, not a biometric model: channel
// means, a resolution ratio and bounded jitter stand in for real face
// embedding distance.
type FaceMatcher struct {
	quality *QualityAssessor
	rng     *rand.Rand
	mu      sync.Mutex
	log     *logger.Logger
}

// NewFaceMatcher creates a matcher. The rand source fixes the jitter for
// reproducible runs.
func NewFaceMatcher(quality *QualityAssessor, rng *rand.Rand, log *logger.Logger) *FaceMatcher {
	return &FaceMatcher{
		quality: quality,
		rng:     rng,
		log:     log.WithComponent("face_matcher"),
	}
}

// Match scores the document photo against the selfie. Read and decode
// failures degrade to a fallback result instead of erroring so the
// orchestrator always receives a usable score.
func (m *FaceMatcher) Match(ctx context.Context, documentPath, selfiePath string) *FaceMatchResult {
	docStats, docErr := ReadStats(documentPath)
	selfieStats, selfieErr := ReadStats(selfiePath)
	if docErr != nil || selfieErr != nil {
		if docErr != nil {
			m.log.Warn().Err(docErr).Msg("document image unreadable, using fallback score")
		}
		if selfieErr != nil {
			m.log.Warn().Err(selfieErr).Msg("selfie image unreadable, using fallback score")
		}
		return &FaceMatchResult{
			Score:      45 + m.intn(25),
			Confidence: 50,
			Feedback:   []string{"One of the images could not be fully analyzed; the match score is approximate."},
		}
	}

	score := m.scoreChannels(docStats, selfieStats)
	confidence, feedback := m.confidence(docStats, selfieStats, documentPath, selfiePath)

	return &FaceMatchResult{
		Score:      score,
		Confidence: confidence,
		Feedback:   feedback,
	}
}

// scoreChannels accumulates up to 15 points per shared channel on top of a
// base of 50, scales by the resolution ratio and adds jitter. The result
// stays within [30, 95].
func (m *FaceMatcher) scoreChannels(doc, selfie *ImageStats) int {
	score := 50.0

	channels := doc.Channels()
	if selfie.Channels() < channels {
		channels = selfie.Channels()
	}
	for i := 0; i < channels; i++ {
		diff := math.Abs(doc.Means[i] - selfie.Means[i])
		score += 15 * (1 - diff/255)
	}

	// Penalize large resolution mismatches
	areaA, areaB := float64(doc.Area()), float64(selfie.Area())
	minArea, maxArea := areaA, areaB
	if minArea > maxArea {
		minArea, maxArea = maxArea, minArea
	}
	qualityRatio := 0.7 + 0.3*(minArea/maxArea)
	score *= qualityRatio

	score += m.jitter(5)

	return clampInt(int(math.Round(score)), 30, 95)
}

func (m *FaceMatcher) confidence(doc, selfie *ImageStats, documentPath, selfiePath string) (int, []string) {
	avgArea := float64(doc.Area()+selfie.Area()) / 2

	confidence := avgArea / 12000
	if confidence < 65 {
		confidence = 65
	}
	if confidence > 95 {
		confidence = 95
	}
	if avgArea > 500_000 {
		confidence += 10
	}
	if doc.Color && selfie.Color && doc.Channels() == 3 && selfie.Channels() == 3 {
		confidence += 5
	}

	feedback := []string{}

	docQuality := m.quality.Assess(documentPath)
	selfieQuality := m.quality.Assess(selfiePath)
	if docQuality.Degraded() || selfieQuality.Degraded() {
		confidence -= 15
		if docQuality.Degraded() {
			feedback = append(feedback, "Document photo quality is low; this reduces match confidence.")
		}
		if selfieQuality.Degraded() {
			feedback = append(feedback, "Selfie quality is low; this reduces match confidence.")
		}
	}

	if selfieQuality.HasIssue(IssueBlurry) {
		feedback = append(feedback, "Selfie appears blurry; retake with a steady camera.")
	}
	if selfieQuality.HasIssue(IssueTooDark) {
		feedback = append(feedback, "Selfie is too dark; retake in better lighting.")
	}
	if selfieQuality.HasIssue(IssueTooBright) {
		feedback = append(feedback, "Selfie is overexposed; avoid direct light on your face.")
	}

	return clampInt(int(math.Round(confidence)), 0, 100), feedback
}

// jitter returns a uniform value in (-bound, +bound)
func (m *FaceMatcher) jitter(bound float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (m.rng.Float64()*2 - 1) * bound
}

func (m *FaceMatcher) intn(n int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Intn(n)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
