package analysis

import (
	"github.com/idproof/idproof-backend/pkg/logger"
)

// QualityTier buckets an image's fitness for analysis
type QualityTier string

const (
	TierExcellent QualityTier = "excellent"
	TierGood      QualityTier = "good"
	TierPoor      QualityTier = "poor"
	TierVeryPoor  QualityTier = "very_poor"
)

// Issue tags attached to a quality report
const (
	IssueLowResolution      = "low_resolution"
	IssueModerateResolution = "moderate_resolution"
	IssueTooDark            = "too_dark"
	IssueTooBright          = "too_bright"
	IssueBlurry             = "blurry"
	IssueSlightlyBlurry     = "slightly_blurry"
)

// QualityReport is the result of assessing one image
type QualityReport struct {
	Quality  QualityTier `json:"quality"`
	Issues   []string    `json:"issues"`
	Score    int         `json:"score"`
	Feedback []string    `json:"feedback"`
}

// HasIssue reports whether the given tag was raised
func (r *QualityReport) HasIssue(tag string) bool {
	for _, issue := range r.Issues {
		if issue == tag {
			return true
		}
	}
	return false
}

// Degraded reports whether the tier is poor or worse
func (r *QualityReport) Degraded() bool {
	return r.Quality == TierPoor || r.Quality == TierVeryPoor
}

// QualityAssessor scores images on resolution, brightness and texture
// variation. Assessment never fails: decode errors produce a safe default
// so the verification pipeline keeps moving.
type QualityAssessor struct {
	log *logger.Logger
}

// NewQualityAssessor creates an assessor
func NewQualityAssessor(log *logger.Logger) *QualityAssessor {
	return &QualityAssessor{log: log.WithComponent("quality_assessor")}
}

// Assess computes the quality report for the image at path
func (a *QualityAssessor) Assess(path string) *QualityReport {
	stats, err := ReadStats(path)
	if err != nil {
		a.log.Warn().Err(err).Msg("quality assessment fell back to default")
		return &QualityReport{
			Quality:  TierPoor,
			Issues:   []string{},
			Score:    50,
			Feedback: []string{"Image could not be analyzed; please upload a clear JPEG, PNG or WebP photo."},
		}
	}

	return a.assessStats(stats)
}

func (a *QualityAssessor) assessStats(stats *ImageStats) *QualityReport {
	report := &QualityReport{
		Score:    100,
		Issues:   []string{},
		Feedback: []string{},
	}

	// Resolution
	switch area := stats.Area(); {
	case area < 200_000:
		report.Issues = append(report.Issues, IssueLowResolution)
		report.Feedback = append(report.Feedback, "Image resolution is too low; move closer or use a higher-resolution camera.")
		report.Score -= 30
	case area < 500_000:
		report.Issues = append(report.Issues, IssueModerateResolution)
		report.Feedback = append(report.Feedback, "Image resolution is moderate; a sharper photo improves accuracy.")
		report.Score -= 15
	}

	// Brightness
	switch brightness := stats.Brightness(); {
	case brightness < 80:
		report.Issues = append(report.Issues, IssueTooDark)
		report.Feedback = append(report.Feedback, "Image is too dark; retake in better lighting.")
		report.Score -= 25
	case brightness > 200:
		report.Issues = append(report.Issues, IssueTooBright)
		report.Feedback = append(report.Feedback, "Image is overexposed; avoid direct light or glare.")
		report.Score -= 20
	}

	// Texture variation as a blur proxy
	switch sd := stats.MaxStdDev(); {
	case sd < 30:
		report.Issues = append(report.Issues, IssueBlurry)
		report.Feedback = append(report.Feedback, "Image appears blurry; hold the camera steady and refocus.")
		report.Score -= 35
	case sd < 50:
		report.Issues = append(report.Issues, IssueSlightlyBlurry)
		report.Feedback = append(report.Feedback, "Image is slightly blurry; a steadier shot will help.")
		report.Score -= 15
	}

	if report.Score < 0 {
		report.Score = 0
	}

	switch {
	case report.Score >= 85:
		report.Quality = TierExcellent
	case report.Score >= 70:
		report.Quality = TierGood
	case report.Score >= 50:
		report.Quality = TierPoor
	default:
		report.Quality = TierVeryPoor
	}

	return report
}
