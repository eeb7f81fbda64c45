package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idproof/idproof-backend/internal/verification/domain"
	"github.com/idproof/idproof-backend/internal/verification/repository"
)

func TestMemoryStore_CreateAssignsSequentialIDs(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()

	first := &domain.Record{DocumentPath: "a.jpg", Status: domain.StatusDocumentProcessed}
	second := &domain.Record{DocumentPath: "b.jpg", Status: domain.StatusDocumentProcessed}

	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.Create(ctx, second))

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.False(t, first.CreatedAt.IsZero())
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()

	rec := &domain.Record{DocumentPath: "doc.jpg", Status: domain.StatusDocumentProcessed}
	require.NoError(t, store.Create(ctx, rec))

	loaded, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)

	// Mutating the returned record must not leak into the store
	loaded.Status = domain.StatusCompleted

	again, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDocumentProcessed, again.Status)
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	store := repository.NewMemoryStore()

	_, err := store.Get(context.Background(), 99)
	assert.ErrorIs(t, err, repository.ErrRecordNotFound)
}

func TestMemoryStore_Update(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()

	rec := &domain.Record{DocumentPath: "doc.jpg", Status: domain.StatusDocumentProcessed}
	require.NoError(t, store.Create(ctx, rec))

	rec.SelfiePath = "selfie.jpg"
	rec.Status = domain.StatusSelfieUploaded
	require.NoError(t, store.Update(ctx, rec))

	loaded, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "selfie.jpg", loaded.SelfiePath)
	assert.Equal(t, domain.StatusSelfieUploaded, loaded.Status)
}

func TestMemoryStore_UpdateNotFound(t *testing.T) {
	store := repository.NewMemoryStore()

	err := store.Update(context.Background(), &domain.Record{ID: 5})
	assert.ErrorIs(t, err, repository.ErrRecordNotFound)
}

func TestMemoryStore_ListOrderedByID(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Create(ctx, &domain.Record{DocumentPath: "doc.jpg", Status: domain.StatusDocumentProcessed}))
	}

	recs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, int64(1), recs[0].ID)
	assert.Equal(t, int64(2), recs[1].ID)
	assert.Equal(t, int64(3), recs[2].ID)
}
