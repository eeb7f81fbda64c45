package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/idproof/idproof-backend/internal/verification/analysis"
	"github.com/idproof/idproof-backend/internal/verification/domain"
	"github.com/idproof/idproof-backend/internal/verification/ocr"
	"github.com/idproof/idproof-backend/internal/verification/repository"
	"github.com/idproof/idproof-backend/pkg/errors"
	"github.com/idproof/idproof-backend/pkg/logger"
)

// Verdict thresholds
const (
	minFaceMatchScore = 50
	minFaceConfidence = 60
	minAgeConfidence  = 60
	minVerifiedAge    = 18
)

// TextExtractor runs OCR over the document image
type TextExtractor interface {
	Extract(ctx context.Context, documentPath string) (*ocr.Result, error)
}

// FaceMatcher compares the document photo against the selfie
type FaceMatcher interface {
	Match(ctx context.Context, documentPath, selfiePath string) *analysis.FaceMatchResult
}

// EventPublisher publishes verification lifecycle events
type EventPublisher interface {
	PublishCreated(ctx context.Context, rec *domain.Record)
	PublishCompleted(ctx context.Context, rec *domain.Record)
	PublishFailed(ctx context.Context, rec *domain.Record, reason string)
}

// Service orchestrates the verification pipeline: OCR on document upload,
// face match + age estimation on the process trigger, verdicts and the
// single final record write.
type Service struct {
	store     repository.RecordStore
	extractor TextExtractor
	matcher   FaceMatcher
	ages      analysis.AgeEstimator
	events    EventPublisher
	cache     Cache
	cacheTTL  time.Duration
	timeout   time.Duration
	log       *logger.Logger

	// inflight guards against duplicate process triggers per record
	mu       sync.Mutex
	inflight map[int64]struct{}
}

// Option configures optional service collaborators
type Option func(*Service)

// WithEvents wires the lifecycle event publisher
func WithEvents(events EventPublisher) Option {
	return func(s *Service) { s.events = events }
}

// WithCache wires the completed-record result cache
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithTimeout bounds one processing run
func WithTimeout(timeout time.Duration) Option {
	return func(s *Service) { s.timeout = timeout }
}

// NewService creates the verification orchestrator
func NewService(store repository.RecordStore, extractor TextExtractor, matcher FaceMatcher, ages analysis.AgeEstimator, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:     store,
		extractor: extractor,
		matcher:   matcher,
		ages:      ages,
		timeout:   45 * time.Second,
		log:       log.WithComponent("verification_service"),
		inflight:  make(map[int64]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateFromDocument runs OCR on an uploaded document image and creates the
// verification record. OCR infrastructure failures abort the upload.
func (s *Service) CreateFromDocument(ctx context.Context, documentPath string) (*domain.Record, *ocr.Result, error) {
	ocrCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.extractor.Extract(ocrCtx, documentPath)
	if err != nil {
		s.log.Error().Err(err).Msg("document text extraction failed")
		return nil, nil, errors.Wrap(err, "OCR_FAILED", "document could not be processed", 500)
	}

	rec := &domain.Record{
		DocumentPath:  documentPath,
		ExtractedName: result.Name,
		ExtractedAge:  result.Age,
		ExtractedDOB:  result.DOB,
		OCRConfidence: &result.Confidence,
		OCRLanguage:   &result.Language,
		Status:        domain.StatusDocumentProcessed,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.store.Create(ctx, rec); err != nil {
		s.log.Error().Err(err).Msg("failed to persist verification record")
		return nil, nil, errors.Internal("could not create verification record")
	}

	if s.events != nil {
		s.events.PublishCreated(ctx, rec)
	}

	s.log.Info().Int64("record_id", rec.ID).Msg("verification record created")
	return rec, result, nil
}

// AttachSelfie sets the selfie path on an existing record, exactly once
func (s *Service) AttachSelfie(ctx context.Context, id int64, selfiePath string) (*domain.Record, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if rec.SelfiePath != "" {
		return nil, errors.Conflict("selfie already uploaded for this record")
	}
	if err := rec.Advance(domain.StatusSelfieUploaded); err != nil {
		return nil, errors.Conflict(fmt.Sprintf("record is %s and cannot accept a selfie", rec.Status))
	}
	rec.SelfiePath = selfiePath

	if err := s.store.Update(ctx, rec); err != nil {
		return nil, errors.Internal("could not update verification record")
	}

	s.log.Info().Int64("record_id", rec.ID).Msg("selfie attached")
	return rec, nil
}

// Process runs face match and age estimation for a selfie-ready record and
// writes the verdict bundle in a single record update. Duplicate triggers
// and terminal records are rejected without mutating state. The inflight
// slot is taken before the record is read so the status check and the
// processing write happen under the same guard.
func (s *Service) Process(ctx context.Context, id int64) (*domain.Record, error) {
	if !s.acquire(id) {
		return nil, errors.Conflict("verification is already in progress")
	}
	defer s.release(id)

	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch rec.Status {
	case domain.StatusProcessing:
		return nil, errors.Conflict("verification is already in progress")
	case domain.StatusCompleted:
		return nil, errors.Conflict("verification is already completed")
	case domain.StatusFailed:
		return nil, errors.Conflict("verification has failed and cannot be reprocessed")
	}
	if rec.SelfiePath == "" {
		return nil, errors.BadRequest("selfie must be uploaded before processing")
	}

	if err := rec.Advance(domain.StatusProcessing); err != nil {
		return nil, errors.Conflict(fmt.Sprintf("record is %s and cannot be processed", rec.Status))
	}
	if err := s.store.Update(ctx, rec); err != nil {
		return nil, errors.Internal("could not update verification record")
	}

	procCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	match, estimate, err := s.analyze(procCtx, rec)
	if err != nil {
		return nil, s.fail(ctx, rec, err)
	}

	s.applyResults(rec, match, estimate)

	if err := rec.Advance(domain.StatusCompleted); err != nil {
		return nil, s.fail(ctx, rec, err)
	}
	now := time.Now().UTC()
	rec.CompletedAt = &now

	if err := s.store.Update(ctx, rec); err != nil {
		return nil, s.fail(ctx, rec, fmt.Errorf("persist results: %w", err))
	}

	s.cacheRecord(ctx, rec)
	if s.events != nil {
		s.events.PublishCompleted(ctx, rec)
	}

	s.log.Info().
		Int64("record_id", rec.ID).
		Bool("identity_verified", rec.IdentityVerified).
		Bool("age_verified", rec.AgeVerified).
		Msg("verification completed")

	return rec, nil
}

// analyze runs the two independent analyses concurrently and joins before
// the caller writes the record. Panics from either analysis surface as a
// processing error rather than crashing the server.
func (s *Service) analyze(ctx context.Context, rec *domain.Record) (match *analysis.FaceMatchResult, estimate *analysis.AgeEstimate, err error) {
	var wg sync.WaitGroup
	var matchPanic, agePanic error

	wg.Add(2)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				matchPanic = fmt.Errorf("face match panicked: %v", r)
			}
		}()
		match = s.matcher.Match(ctx, rec.DocumentPath, rec.SelfiePath)
	}()
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				agePanic = fmt.Errorf("age estimation panicked: %v", r)
			}
		}()
		estimate = s.ages.Estimate(ctx, rec.SelfiePath)
	}()
	wg.Wait()

	if matchPanic != nil {
		return nil, nil, matchPanic
	}
	if agePanic != nil {
		return nil, nil, agePanic
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("processing timed out: %w", err)
	}
	return match, estimate, nil
}

// applyResults writes scores, verdicts and merged feedback onto the record
func (s *Service) applyResults(rec *domain.Record, match *analysis.FaceMatchResult, estimate *analysis.AgeEstimate) {
	rec.FaceMatchScore = &match.Score
	rec.FaceConfidence = &match.Confidence
	rec.DetectedAge = estimate.Age
	rec.AgeConfidence = &estimate.Confidence

	rec.IdentityVerified = match.Score >= minFaceMatchScore && match.Confidence >= minFaceConfidence

	finalAge := rec.ExtractedAge
	if estimate.Age != nil && estimate.Confidence >= minAgeConfidence {
		finalAge = estimate.Age
	}
	rec.AgeVerified = finalAge != nil && *finalAge >= minVerifiedAge

	overall := make([]string, 0, 2)
	if rec.IdentityVerified {
		overall = append(overall, fmt.Sprintf("Identity verified: face match score %d with confidence %d.", match.Score, match.Confidence))
	} else {
		overall = append(overall, fmt.Sprintf("Identity not verified: face match score %d with confidence %d.", match.Score, match.Confidence))
	}
	switch {
	case finalAge == nil:
		overall = append(overall, "Age could not be determined from the selfie or the document.")
	case rec.AgeVerified:
		overall = append(overall, fmt.Sprintf("Age verified: determined age %d meets the minimum of %d.", *finalAge, minVerifiedAge))
	default:
		overall = append(overall, fmt.Sprintf("Age not verified: determined age %d is below the minimum of %d.", *finalAge, minVerifiedAge))
	}

	rec.QualityFeedback = &domain.QualityFeedback{
		Face:    match.Feedback,
		Age:     estimate.Feedback,
		Overall: overall,
	}
}

// fail moves the record to the failed terminal state. Status is forced
// rather than advanced: the local copy may already hold completed when the
// final persist fails, and the store must still end on a terminal state.
func (s *Service) fail(ctx context.Context, rec *domain.Record, cause error) error {
	s.log.Error().Err(cause).Int64("record_id", rec.ID).Msg("verification processing failed")

	reason := "verification processing failed"
	rec.FailureReason = &reason
	rec.Status = domain.StatusFailed
	rec.CompletedAt = nil
	if err := s.store.Update(ctx, rec); err != nil {
		s.log.Error().Err(err).Int64("record_id", rec.ID).Msg("failed to persist failed state")
	}

	if s.events != nil {
		s.events.PublishFailed(ctx, rec, reason)
	}

	return errors.Internal("verification processing failed")
}

// Get loads a record, preferring the result cache for completed records.
// Reads have no side effects.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Record, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey(id)); err == nil {
			var rec domain.Record
			if err := json.Unmarshal([]byte(cached), &rec); err == nil {
				return &rec, nil
			}
			s.log.Warn().Int64("record_id", id).Msg("discarding undecodable cached record")
		}
	}

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, errors.NotFound("verification record")
		}
		return nil, errors.Internal("could not load verification record")
	}
	return rec, nil
}

// List returns all records ordered by id
func (s *Service) List(ctx context.Context) ([]*domain.Record, error) {
	recs, err := s.store.List(ctx)
	if err != nil {
		return nil, errors.Internal("could not list verification records")
	}
	return recs, nil
}

func (s *Service) cacheRecord(ctx context.Context, rec *domain.Record) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(rec.ID), string(data), s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Int64("record_id", rec.ID).Msg("failed to cache completed record")
	}
}

func cacheKey(id int64) string {
	return fmt.Sprintf("verification:%d", id)
}

func (s *Service) acquire(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[id]; busy {
		return false
	}
	s.inflight[id] = struct{}{}
	return true
}

func (s *Service) release(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, id)
}
