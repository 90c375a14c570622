package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/transfer"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTransferTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&transfer.TransferRequest{}, &transfer.TransferLine{})
	require.NoError(t, err)

	return db
}

func newTestTransfer(t *testing.T) *transfer.TransferRequest {
	t.Helper()
	tr, err := transfer.NewTransferRequest(
		uuid.New(), uuid.New(), uuid.New(), uuid.New(),
		[]transfer.TransferLine{
			{ProductID: uuid.New(), VariantID: uuid.New(), Quantity: 4, UnitCost: decimal.NewFromInt(12)},
		},
		"restock downtown branch",
	)
	require.NoError(t, err)
	return tr
}

func TestGormTransferRequestRepository_SaveAndFind(t *testing.T) {
	db := setupTransferTestDB(t)
	repo := NewGormTransferRequestRepository(db)
	ctx := context.Background()

	tr := newTestTransfer(t)
	require.NoError(t, repo.Save(ctx, tr))

	t.Run("loads the request with its lines", func(t *testing.T) {
		found, err := repo.FindByID(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, transfer.TransferStatusPending, found.Status)
		require.Len(t, found.Lines, 1)
		assert.Equal(t, int64(4), found.Lines[0].Quantity)
	})

	t.Run("unknown id returns not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestGormTransferRequestRepository_SaveWithLock(t *testing.T) {
	db := setupTransferTestDB(t)
	repo := NewGormTransferRequestRepository(db)
	ctx := context.Background()

	t.Run("persists a status transition", func(t *testing.T) {
		tr := newTestTransfer(t)
		require.NoError(t, repo.Save(ctx, tr))

		require.NoError(t, tr.Approve(uuid.New()))
		require.NoError(t, repo.SaveWithLock(ctx, tr))

		found, err := repo.FindByID(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, transfer.TransferStatusApproved, found.Status)
		assert.Equal(t, 2, found.Version)
		assert.NotNil(t, found.ApprovedAt)
	})

	t.Run("stale version fails with a concurrency conflict", func(t *testing.T) {
		tr := newTestTransfer(t)
		require.NoError(t, repo.Save(ctx, tr))

		require.NoError(t, tr.Approve(uuid.New()))
		require.NoError(t, repo.SaveWithLock(ctx, tr))

		err := repo.SaveWithLock(ctx, tr)
		assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))
	})

	t.Run("rejection persists note and release guard", func(t *testing.T) {
		tr := newTestTransfer(t)
		require.NoError(t, repo.Save(ctx, tr))

		require.NoError(t, tr.Reject(uuid.New(), "wrong destination"))
		require.True(t, tr.ReleaseStock())
		require.NoError(t, repo.SaveWithLock(ctx, tr))

		found, err := repo.FindByID(ctx, tr.ID)
		require.NoError(t, err)
		assert.Equal(t, transfer.TransferStatusRejected, found.Status)
		assert.Equal(t, "wrong destination", found.RejectNote)
		assert.True(t, found.StockReleased)
	})
}

func TestGormTransferRequestRepository_FindByStatus(t *testing.T) {
	db := setupTransferTestDB(t)
	repo := NewGormTransferRequestRepository(db)
	ctx := context.Background()

	pending := newTestTransfer(t)
	require.NoError(t, repo.Save(ctx, pending))

	approved := newTestTransfer(t)
	require.NoError(t, approved.Approve(uuid.New()))
	require.NoError(t, repo.Save(ctx, approved))

	found, err := repo.FindByStatus(ctx, transfer.TransferStatusPending, shared.Filter{})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, pending.ID, found[0].ID)

	count, err := repo.CountByStatus(ctx, transfer.TransferStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
