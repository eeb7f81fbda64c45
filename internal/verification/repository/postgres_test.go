package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idproof/idproof-backend/internal/verification/domain"
	"github.com/idproof/idproof-backend/internal/verification/repository"
	"github.com/idproof/idproof-backend/pkg/database"
	"github.com/idproof/idproof-backend/pkg/logger"
)

func newMockStore(t *testing.T) (*repository.PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := database.NewFromDB(sqlx.NewDb(mockDB, "sqlmock"), logger.New("test", "test"))
	return repository.NewPostgresStore(db), mock
}

func TestPostgresStore_Create(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO verification_records").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	name := "Jane Doe"
	rec := &domain.Record{
		DocumentPath:  "uploads/doc.png",
		ExtractedName: &name,
		Status:        domain.StatusDocumentProcessed,
	}

	require.NoError(t, store.Create(context.Background(), rec))
	assert.Equal(t, int64(7), rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT \\* FROM verification_records").
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), 42)
	assert.ErrorIs(t, err, repository.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := newMockStore(t)

	created := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "document_path", "selfie_path", "status", "identity_verified", "age_verified", "created_at"}).
		AddRow(int64(3), "uploads/doc.png", "uploads/selfie.png", "completed", true, true, created)

	mock.ExpectQuery("SELECT \\* FROM verification_records").
		WithArgs(int64(3)).
		WillReturnRows(rows)

	rec, err := store.Get(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.ID)
	assert.Equal(t, domain.StatusCompleted, rec.Status)
	assert.True(t, rec.IdentityVerified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE verification_records").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Update(context.Background(), &domain.Record{ID: 42, Status: domain.StatusProcessing})
	assert.ErrorIs(t, err, repository.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Update(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE verification_records").
		WillReturnResult(sqlmock.NewResult(0, 1))

	score := 72
	rec := &domain.Record{
		ID:             3,
		DocumentPath:   "uploads/doc.png",
		SelfiePath:     "uploads/selfie.png",
		FaceMatchScore: &score,
		Status:         domain.StatusCompleted,
		QualityFeedback: &domain.QualityFeedback{
			Overall: []string{"Identity verified: face match score 72 with confidence 80."},
		},
	}

	assert.NoError(t, store.Update(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}
