package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Status represents the lifecycle state of a verification record.
// Transitions are monotonic; a record never moves backwards.
type Status string

const (
	StatusPending           Status = "pending"
	StatusDocumentProcessed Status = "document_processed"
	StatusSelfieUploaded    Status = "selfie_uploaded"
	StatusProcessing        Status = "processing"
	StatusCompleted         Status = "completed"
	StatusFailed            Status = "failed"
)

// statusRank orders the happy-path states. Failed is terminal and only
// reachable from processing.
var statusRank = map[Status]int{
	StatusPending:           0,
	StatusDocumentProcessed: 1,
	StatusSelfieUploaded:    2,
	StatusProcessing:        3,
	StatusCompleted:         4,
}

// CanAdvanceTo reports whether the transition s -> next is legal
func (s Status) CanAdvanceTo(next Status) bool {
	if next == StatusFailed {
		return s == StatusProcessing
	}
	cur, ok := statusRank[s]
	if !ok {
		return false
	}
	nxt, ok := statusRank[next]
	if !ok {
		return false
	}
	return nxt == cur+1
}

// Terminal reports whether no further transitions are allowed
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// QualityFeedback groups human-readable feedback strings by category
type QualityFeedback struct {
	Face    []string `json:"face"`
	Age     []string `json:"age"`
	Overall []string `json:"overall"`
}

// Value implements driver.Valuer so the feedback is stored as jsonb
func (q QualityFeedback) Value() (driver.Value, error) {
	return json.Marshal(q)
}

// Scan implements sql.Scanner
func (q *QualityFeedback) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, q)
	case string:
		return json.Unmarshal([]byte(v), q)
	default:
		return fmt.Errorf("unsupported quality feedback type %T", src)
	}
}

// Record is the persisted unit of work tracking one document+selfie
// verification attempt
type Record struct {
	ID           int64  `json:"id" db:"id"`
	DocumentPath string `json:"document_path" db:"document_path"`
	SelfiePath   string `json:"selfie_path" db:"selfie_path"`

	// Fields extracted from the document image, written once by OCR
	ExtractedName *string `json:"extracted_name" db:"extracted_name"`
	ExtractedAge  *int    `json:"extracted_age" db:"extracted_age"`
	ExtractedDOB  *string `json:"extracted_dob" db:"extracted_dob"`
	OCRConfidence *int    `json:"ocr_confidence" db:"ocr_confidence"`
	OCRLanguage   *string `json:"ocr_language" db:"ocr_language"`

	// Analysis results, written once by the orchestrator
	FaceMatchScore *int `json:"face_match_score" db:"face_match_score"`
	FaceConfidence *int `json:"face_confidence" db:"face_confidence"`
	DetectedAge    *int `json:"detected_age" db:"detected_age"`
	AgeConfidence  *int `json:"age_confidence" db:"age_confidence"`

	IdentityVerified bool `json:"identity_verified" db:"identity_verified"`
	AgeVerified      bool `json:"age_verified" db:"age_verified"`

	QualityFeedback *QualityFeedback `json:"quality_feedback" db:"quality_feedback"`

	Status        Status  `json:"status" db:"status"`
	FailureReason *string `json:"failure_reason,omitempty" db:"failure_reason"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
}

// Advance moves the record to the next status, enforcing monotonic ordering
func (r *Record) Advance(next Status) error {
	if !r.Status.CanAdvanceTo(next) {
		return fmt.Errorf("illegal status transition %s -> %s", r.Status, next)
	}
	r.Status = next
	return nil
}
