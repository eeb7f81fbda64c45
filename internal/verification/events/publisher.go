package events

import (
	"context"

	"github.com/idproof/idproof-backend/internal/verification/domain"
	"github.com/idproof/idproof-backend/pkg/logger"
	"github.com/idproof/idproof-backend/pkg/messaging"
)

// VerificationEventPublisher publishes verification lifecycle events.
// Publishing is best-effort: broker failures are logged, never propagated
// into the verification flow.
type VerificationEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewVerificationEventPublisher creates a publisher bound to the
// verification events exchange
func NewVerificationEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*VerificationEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeVerificationEvents, "verification-service", log)
	if err != nil {
		return nil, err
	}

	return &VerificationEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishCreated publishes a record-created event after a document upload
func (p *VerificationEventPublisher) PublishCreated(ctx context.Context, rec *domain.Record) {
	data := messaging.VerificationCreatedEvent{
		RecordID:      rec.ID,
		NameExtracted: rec.ExtractedName != nil,
		DOBExtracted:  rec.ExtractedDOB != nil,
	}
	if rec.OCRLanguage != nil {
		data.OCRLanguage = *rec.OCRLanguage
	}
	if rec.OCRConfidence != nil {
		data.OCRConfidence = *rec.OCRConfidence
	}

	if err := p.publisher.Publish(ctx, messaging.EventVerificationCreated, data); err != nil {
		p.logger.Error().Err(err).Int64("record_id", rec.ID).Msg("failed to publish verification created event")
	}
}

// PublishCompleted publishes the final verdict bundle for a completed record
func (p *VerificationEventPublisher) PublishCompleted(ctx context.Context, rec *domain.Record) {
	data := messaging.VerificationCompletedEvent{
		RecordID:         rec.ID,
		IdentityVerified: rec.IdentityVerified,
		AgeVerified:      rec.AgeVerified,
	}
	if rec.FaceMatchScore != nil {
		data.FaceMatchScore = *rec.FaceMatchScore
	}
	if rec.FaceConfidence != nil {
		data.FaceConfidence = *rec.FaceConfidence
	}

	if err := p.publisher.Publish(ctx, messaging.EventVerificationCompleted, data); err != nil {
		p.logger.Error().Err(err).Int64("record_id", rec.ID).Msg("failed to publish verification completed event")
	}
}

// PublishFailed publishes a terminal failure event
func (p *VerificationEventPublisher) PublishFailed(ctx context.Context, rec *domain.Record, reason string) {
	data := messaging.VerificationFailedEvent{
		RecordID: rec.ID,
		Reason:   reason,
	}

	if err := p.publisher.Publish(ctx, messaging.EventVerificationFailed, data); err != nil {
		p.logger.Error().Err(err).Int64("record_id", rec.ID).Msg("failed to publish verification failed event")
	}
}
