package stock

import (
	"testing"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestEntry(t *testing.T) *StockEntry {
	t.Helper()
	entry, err := NewStockEntry(uuid.New(), uuid.New(), uuid.New())
	require.NoError(t, err)
	return entry
}

func TestNewStockEntry(t *testing.T) {
	branchID := uuid.New()
	productID := uuid.New()
	variantID := uuid.New()

	t.Run("creates entry successfully", func(t *testing.T) {
		entry, err := NewStockEntry(branchID, productID, variantID)

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, entry.ID)
		assert.Equal(t, branchID, entry.BranchID)
		assert.Equal(t, productID, entry.ProductID)
		assert.Equal(t, variantID, entry.VariantID)
		assert.Equal(t, int64(0), entry.QuantityOnHand)
		assert.True(t, entry.AverageCost.IsZero())
	})

	t.Run("fails with nil branch ID", func(t *testing.T) {
		entry, err := NewStockEntry(uuid.Nil, productID, variantID)

		require.Error(t, err)
		assert.Nil(t, entry)
		assert.Contains(t, err.Error(), "Branch ID")
	})

	t.Run("fails with nil variant ID", func(t *testing.T) {
		entry, err := NewStockEntry(branchID, productID, uuid.Nil)

		require.Error(t, err)
		assert.Nil(t, entry)
		assert.Contains(t, err.Error(), "Variant ID")
	})
}

func TestStockEntry_Adjust(t *testing.T) {
	t.Run("increases quantity and calculates weighted average cost", func(t *testing.T) {
		entry := createTestEntry(t)

		// First import: 100 units at 10.00
		cost := decimal.NewFromInt(10)
		err := entry.Adjust(100, &cost)

		require.NoError(t, err)
		assert.Equal(t, int64(100), entry.QuantityOnHand)
		assert.Equal(t, "10", entry.AverageCost.String())

		// Second import: 100 units at 20.00
		// New cost = (100*10 + 100*20) / 200 = 15
		cost = decimal.NewFromInt(20)
		err = entry.Adjust(100, &cost)

		require.NoError(t, err)
		assert.Equal(t, int64(200), entry.QuantityOnHand)
		assert.Equal(t, "15", entry.AverageCost.String())
	})

	t.Run("rounds weighted average to 4 places", func(t *testing.T) {
		entry := createTestEntry(t)

		cost := decimal.NewFromInt(10)
		require.NoError(t, entry.Adjust(3, &cost))

		cost = decimal.NewFromInt(11)
		require.NoError(t, entry.Adjust(3, &cost))

		// (3*10 + 3*11) / 6 = 10.5
		assert.Equal(t, "10.5", entry.AverageCost.String())

		cost = decimal.NewFromInt(20)
		require.NoError(t, entry.Adjust(1, &cost))

		// (6*10.5 + 1*20) / 7 = 11.857142... -> 11.8571
		assert.Equal(t, "11.8571", entry.AverageCost.String())
	})

	t.Run("negative delta keeps average cost unchanged", func(t *testing.T) {
		entry := createTestEntry(t)

		cost := decimal.NewFromFloat(12.5)
		require.NoError(t, entry.Adjust(10, &cost))
		require.NoError(t, entry.Adjust(-4, nil))

		assert.Equal(t, int64(6), entry.QuantityOnHand)
		assert.Equal(t, "12.5", entry.AverageCost.String())
	})

	t.Run("fails when result would be negative", func(t *testing.T) {
		entry := createTestEntry(t)

		cost := decimal.NewFromInt(10)
		require.NoError(t, entry.Adjust(5, &cost))

		err := entry.Adjust(-6, nil)

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INSUFFICIENT_STOCK", domainErr.Code)
		assert.Equal(t, int64(6), domainErr.Details["requested"])
		assert.Equal(t, int64(5), domainErr.Details["available"])
		assert.Equal(t, int64(5), entry.QuantityOnHand)
	})

	t.Run("fails with zero delta", func(t *testing.T) {
		entry := createTestEntry(t)

		err := entry.Adjust(0, nil)

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "VALIDATION_ERROR", domainErr.Code)
	})

	t.Run("fails with negative unit cost", func(t *testing.T) {
		entry := createTestEntry(t)

		cost := decimal.NewFromInt(-1)
		err := entry.Adjust(10, &cost)

		require.Error(t, err)
		assert.Equal(t, int64(0), entry.QuantityOnHand)
	})

	t.Run("emits StockAdjusted event", func(t *testing.T) {
		entry := createTestEntry(t)

		cost := decimal.NewFromInt(10)
		require.NoError(t, entry.Adjust(5, &cost))

		events := entry.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeStockAdjusted, events[0].EventType())
	})

	t.Run("reimport at current average cost leaves average unchanged", func(t *testing.T) {
		entry := createTestEntry(t)

		cost := decimal.NewFromInt(10)
		require.NoError(t, entry.Adjust(6, &cost))
		cost = decimal.NewFromInt(13)
		require.NoError(t, entry.Adjust(2, &cost))
		avg := entry.AverageCost

		require.NoError(t, entry.Adjust(-5, nil))
		reimportCost := avg
		require.NoError(t, entry.Adjust(5, &reimportCost))

		assert.Equal(t, int64(8), entry.QuantityOnHand)
		assert.True(t, avg.Equal(entry.AverageCost), "expected %s, got %s", avg, entry.AverageCost)
	})
}

func TestStockEntry_CanFulfill(t *testing.T) {
	entry := createTestEntry(t)
	cost := decimal.NewFromInt(10)
	require.NoError(t, entry.Adjust(10, &cost))

	assert.True(t, entry.CanFulfill(10))
	assert.True(t, entry.CanFulfill(1))
	assert.False(t, entry.CanFulfill(11))
	assert.False(t, entry.CanFulfill(0))
	assert.False(t, entry.CanFulfill(-1))
}

func TestStockEntry_MinQuantity(t *testing.T) {
	t.Run("emits StockBelowMinimum when dropping under threshold", func(t *testing.T) {
		entry := createTestEntry(t)
		cost := decimal.NewFromInt(10)
		require.NoError(t, entry.Adjust(10, &cost))
		require.NoError(t, entry.SetMinQuantity(5))
		entry.ClearDomainEvents()

		require.NoError(t, entry.Adjust(-7, nil))

		events := entry.GetDomainEvents()
		require.Len(t, events, 2)
		assert.Equal(t, EventTypeStockAdjusted, events[0].EventType())
		assert.Equal(t, EventTypeStockBelowMinimum, events[1].EventType())
	})

	t.Run("rejects negative threshold", func(t *testing.T) {
		entry := createTestEntry(t)

		err := entry.SetMinQuantity(-1)

		require.Error(t, err)
	})
}

func TestStockEntry_VersionIncrement(t *testing.T) {
	entry := createTestEntry(t)
	assert.Equal(t, 1, entry.Version)

	cost := decimal.NewFromInt(10)
	require.NoError(t, entry.Adjust(5, &cost))
	assert.Equal(t, 2, entry.Version)

	require.NoError(t, entry.Adjust(-1, nil))
	assert.Equal(t, 3, entry.Version)
}
