package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/idproof/idproof-backend/internal/verification/domain"
	"github.com/idproof/idproof-backend/pkg/database"
)

// PostgresStore is the durable RecordStore backed by Postgres via sqlx
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a Postgres-backed record store
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const createTableQuery = `
CREATE TABLE IF NOT EXISTS verification_records (
	id BIGSERIAL PRIMARY KEY,
	document_path TEXT NOT NULL,
	selfie_path TEXT NOT NULL DEFAULT '',
	extracted_name TEXT,
	extracted_age INT,
	extracted_dob TEXT,
	ocr_confidence INT,
	ocr_language TEXT,
	face_match_score INT,
	face_confidence INT,
	detected_age INT,
	age_confidence INT,
	identity_verified BOOLEAN NOT NULL DEFAULT FALSE,
	age_verified BOOLEAN NOT NULL DEFAULT FALSE,
	quality_feedback JSONB,
	status TEXT NOT NULL,
	failure_reason TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at TIMESTAMPTZ
)`

// Migrate ensures the records table exists
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableQuery); err != nil {
		return fmt.Errorf("create verification_records table: %w", err)
	}
	return nil
}

// Create inserts a new record and populates its id
func (s *PostgresStore) Create(ctx context.Context, rec *domain.Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO verification_records
		(document_path, selfie_path, extracted_name, extracted_age, extracted_dob,
		 ocr_confidence, ocr_language, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := s.db.QueryRowContext(ctx, query,
		rec.DocumentPath, rec.SelfiePath,
		rec.ExtractedName, rec.ExtractedAge, rec.ExtractedDOB,
		rec.OCRConfidence, rec.OCRLanguage,
		rec.Status, rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("insert verification record: %w", err)
	}
	return nil
}

// Get loads a record by id
func (s *PostgresStore) Get(ctx context.Context, id int64) (*domain.Record, error) {
	var rec domain.Record
	query := `SELECT * FROM verification_records WHERE id = $1`
	if err := s.db.GetContext(ctx, &rec, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("select verification record: %w", err)
	}
	return &rec, nil
}

// Update persists the full current record state
func (s *PostgresStore) Update(ctx context.Context, rec *domain.Record) error {
	query := `UPDATE verification_records SET
		document_path = $2, selfie_path = $3,
		extracted_name = $4, extracted_age = $5, extracted_dob = $6,
		ocr_confidence = $7, ocr_language = $8,
		face_match_score = $9, face_confidence = $10,
		detected_age = $11, age_confidence = $12,
		identity_verified = $13, age_verified = $14,
		quality_feedback = $15, status = $16, failure_reason = $17,
		completed_at = $18
		WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.DocumentPath, rec.SelfiePath,
		rec.ExtractedName, rec.ExtractedAge, rec.ExtractedDOB,
		rec.OCRConfidence, rec.OCRLanguage,
		rec.FaceMatchScore, rec.FaceConfidence,
		rec.DetectedAge, rec.AgeConfidence,
		rec.IdentityVerified, rec.AgeVerified,
		rec.QualityFeedback, rec.Status, rec.FailureReason,
		rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update verification record: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update verification record: %w", err)
	}
	if affected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// List returns all records ordered by id
func (s *PostgresStore) List(ctx context.Context) ([]*domain.Record, error) {
	var recs []*domain.Record
	query := `SELECT * FROM verification_records ORDER BY id`
	if err := s.db.SelectContext(ctx, &recs, query); err != nil {
		return nil, fmt.Errorf("list verification records: %w", err)
	}
	return recs, nil
}
