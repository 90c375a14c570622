package stock

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryLedger is an in-memory Ledger for processor tests
type memoryLedger struct {
	entries map[string]*StockEntry
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{entries: make(map[string]*StockEntry)}
}

func (l *memoryLedger) key(branchID, productID, variantID uuid.UUID) string {
	return branchID.String() + "/" + productID.String() + "/" + variantID.String()
}

func (l *memoryLedger) GetOrCreate(_ context.Context, branchID, productID, variantID uuid.UUID) (*StockEntry, error) {
	k := l.key(branchID, productID, variantID)
	if entry, ok := l.entries[k]; ok {
		return entry, nil
	}
	entry, err := NewStockEntry(branchID, productID, variantID)
	if err != nil {
		return nil, err
	}
	l.entries[k] = entry
	return entry, nil
}

func (l *memoryLedger) quantity(branchID, productID, variantID uuid.UUID) int64 {
	if entry, ok := l.entries[l.key(branchID, productID, variantID)]; ok {
		return entry.QuantityOnHand
	}
	return 0
}

func TestMovementProcessor_ApplyImport(t *testing.T) {
	ctx := context.Background()
	processor := NewMovementProcessor()
	branchID := uuid.New()
	createdBy := uuid.New()
	productID := uuid.New()
	variantID := uuid.New()

	t.Run("applies merged lines to the ledger", func(t *testing.T) {
		ledger := newMemoryLedger()
		lines := []MovementLine{
			{ProductID: productID, VariantID: variantID, Quantity: 3, UnitCost: decimal.NewFromInt(10)},
			{ProductID: productID, VariantID: variantID, Quantity: 2, UnitCost: decimal.NewFromInt(10)},
		}

		result, err := processor.ApplyImport(ctx, ledger, branchID, createdBy, lines)

		require.NoError(t, err)
		assert.Equal(t, MovementTypeImport, result.Movement.Type)
		require.Len(t, result.Movement.Lines, 1)
		assert.Equal(t, int64(5), ledger.quantity(branchID, productID, variantID))
	})

	t.Run("rejects invalid lines before touching the ledger", func(t *testing.T) {
		ledger := newMemoryLedger()
		lines := []MovementLine{
			{ProductID: productID, VariantID: variantID, Quantity: 0, UnitCost: decimal.NewFromInt(10)},
		}

		result, err := processor.ApplyImport(ctx, ledger, branchID, createdBy, lines)

		require.Error(t, err)
		assert.Nil(t, result)
		assert.Empty(t, ledger.entries)
	})

	t.Run("collects MovementApplied and entry events", func(t *testing.T) {
		ledger := newMemoryLedger()
		lines := []MovementLine{
			{ProductID: productID, VariantID: variantID, Quantity: 5, UnitCost: decimal.NewFromInt(10)},
		}

		result, err := processor.ApplyImport(ctx, ledger, branchID, createdBy, lines)

		require.NoError(t, err)
		require.NotEmpty(t, result.Events)
		assert.Equal(t, EventTypeMovementApplied, result.Events[0].EventType())
		assert.Equal(t, EventTypeStockAdjusted, result.Events[1].EventType())
		// entry events are drained into the result
		assert.Empty(t, result.Entries[0].GetDomainEvents())
	})
}

func TestMovementProcessor_ApplyExport(t *testing.T) {
	ctx := context.Background()
	processor := NewMovementProcessor()
	branchID := uuid.New()
	createdBy := uuid.New()
	productID := uuid.New()
	variantX := uuid.New()
	variantY := uuid.New()

	seed := func(t *testing.T, ledger *memoryLedger, variantID uuid.UUID, qty int64) {
		t.Helper()
		cost := decimal.NewFromInt(10)
		entry, err := ledger.GetOrCreate(ctx, branchID, productID, variantID)
		require.NoError(t, err)
		require.NoError(t, entry.Adjust(qty, &cost))
		entry.ClearDomainEvents()
	}

	t.Run("decrements stock on success", func(t *testing.T) {
		ledger := newMemoryLedger()
		seed(t, ledger, variantX, 10)

		_, err := processor.ApplyExport(ctx, ledger, branchID, createdBy, []MovementLine{
			{ProductID: productID, VariantID: variantX, Quantity: 4, UnitCost: decimal.NewFromInt(10)},
		})

		require.NoError(t, err)
		assert.Equal(t, int64(6), ledger.quantity(branchID, productID, variantX))
	})

	t.Run("names every offending variant and mutates nothing", func(t *testing.T) {
		ledger := newMemoryLedger()
		seed(t, ledger, variantX, 3)
		seed(t, ledger, variantY, 1)

		_, err := processor.ApplyExport(ctx, ledger, branchID, createdBy, []MovementLine{
			{ProductID: productID, VariantID: variantX, Quantity: 5, UnitCost: decimal.NewFromInt(10)},
			{ProductID: productID, VariantID: variantY, Quantity: 2, UnitCost: decimal.NewFromInt(10)},
		})

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INSUFFICIENT_STOCK", domainErr.Code)
		shortages, ok := domainErr.Details["shortages"].([]map[string]any)
		require.True(t, ok)
		assert.Len(t, shortages, 2)
		assert.Equal(t, int64(3), ledger.quantity(branchID, productID, variantX))
		assert.Equal(t, int64(1), ledger.quantity(branchID, productID, variantY))
	})

	t.Run("merged duplicates are validated in aggregate", func(t *testing.T) {
		ledger := newMemoryLedger()
		seed(t, ledger, variantX, 5)

		// Each line alone fits; together they do not
		_, err := processor.ApplyExport(ctx, ledger, branchID, createdBy, []MovementLine{
			{ProductID: productID, VariantID: variantX, Quantity: 3, UnitCost: decimal.NewFromInt(10)},
			{ProductID: productID, VariantID: variantX, Quantity: 3, UnitCost: decimal.NewFromInt(10)},
		})

		require.Error(t, err)
		assert.Equal(t, int64(5), ledger.quantity(branchID, productID, variantX))
	})

	t.Run("sequence of imports and exports sums signed deltas", func(t *testing.T) {
		ledger := newMemoryLedger()
		cost := decimal.NewFromInt(10)

		steps := []int64{8, -3, 5, -7, 2}
		var expected int64
		for _, delta := range steps {
			line := MovementLine{ProductID: productID, VariantID: variantX, UnitCost: cost}
			var err error
			if delta > 0 {
				line.Quantity = delta
				_, err = processor.ApplyImport(ctx, ledger, branchID, createdBy, []MovementLine{line})
			} else {
				line.Quantity = -delta
				_, err = processor.ApplyExport(ctx, ledger, branchID, createdBy, []MovementLine{line})
			}
			require.NoError(t, err)
			expected += delta
		}

		assert.Equal(t, expected, ledger.quantity(branchID, productID, variantX))
	})

	t.Run("export then reimport restores quantity and average cost", func(t *testing.T) {
		ledger := newMemoryLedger()
		costA := decimal.NewFromInt(10)
		costB := decimal.NewFromInt(16)

		_, err := processor.ApplyImport(ctx, ledger, branchID, createdBy, []MovementLine{
			{ProductID: productID, VariantID: variantX, Quantity: 6, UnitCost: costA},
			{ProductID: productID, VariantID: variantX, Quantity: 2, UnitCost: costB},
		})
		require.NoError(t, err)

		entry := ledger.entries[ledger.key(branchID, productID, variantX)]
		avgBefore := entry.AverageCost

		_, err = processor.ApplyExport(ctx, ledger, branchID, createdBy, []MovementLine{
			{ProductID: productID, VariantID: variantX, Quantity: 5, UnitCost: avgBefore},
		})
		require.NoError(t, err)

		_, err = processor.ApplyImport(ctx, ledger, branchID, createdBy, []MovementLine{
			{ProductID: productID, VariantID: variantX, Quantity: 5, UnitCost: avgBefore},
		})
		require.NoError(t, err)

		assert.Equal(t, int64(8), entry.QuantityOnHand)
		assert.True(t, avgBefore.Equal(entry.AverageCost))
	})
}

func TestMovementProcessor_ApplyTransfer(t *testing.T) {
	ctx := context.Background()
	processor := NewMovementProcessor()
	sourceBranch := uuid.New()
	destBranch := uuid.New()
	createdBy := uuid.New()
	productID := uuid.New()
	variantID := uuid.New()

	t.Run("reserves stock at the source only", func(t *testing.T) {
		ledger := newMemoryLedger()
		cost := decimal.NewFromInt(10)
		entry, err := ledger.GetOrCreate(ctx, sourceBranch, productID, variantID)
		require.NoError(t, err)
		require.NoError(t, entry.Adjust(5, &cost))

		result, err := processor.ApplyTransfer(ctx, ledger, sourceBranch, destBranch, createdBy, []MovementLine{
			{ProductID: productID, VariantID: variantID, Quantity: 5, UnitCost: cost},
		})

		require.NoError(t, err)
		assert.Equal(t, MovementTypeTransfer, result.Movement.Type)
		require.NotNil(t, result.Movement.DestinationBranchID)
		assert.Equal(t, destBranch, *result.Movement.DestinationBranchID)
		assert.Equal(t, int64(0), ledger.quantity(sourceBranch, productID, variantID))
		assert.Equal(t, int64(0), ledger.quantity(destBranch, productID, variantID))
	})

	t.Run("rejects identical source and destination", func(t *testing.T) {
		ledger := newMemoryLedger()

		_, err := processor.ApplyTransfer(ctx, ledger, sourceBranch, sourceBranch, createdBy, []MovementLine{
			{ProductID: productID, VariantID: variantID, Quantity: 1, UnitCost: decimal.NewFromInt(10)},
		})

		require.Error(t, err)
	})

	t.Run("fails with insufficient source stock", func(t *testing.T) {
		ledger := newMemoryLedger()

		_, err := processor.ApplyTransfer(ctx, ledger, sourceBranch, destBranch, createdBy, []MovementLine{
			{ProductID: productID, VariantID: variantID, Quantity: 1, UnitCost: decimal.NewFromInt(10)},
		})

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INSUFFICIENT_STOCK", domainErr.Code)
	})
}

func TestCompensationLines(t *testing.T) {
	productID := uuid.New()
	variantID := uuid.New()
	lines := []MovementLine{
		{ProductID: productID, VariantID: variantID, Quantity: 4, UnitCost: decimal.NewFromInt(99)},
	}

	t.Run("prices lines with the lookup cost", func(t *testing.T) {
		result := CompensationLines(lines, func(uuid.UUID, uuid.UUID) (decimal.Decimal, bool) {
			return decimal.NewFromFloat(12.5), true
		})

		require.Len(t, result, 1)
		assert.Equal(t, int64(4), result[0].Quantity)
		assert.Equal(t, "12.5", result[0].UnitCost.String())
	})

	t.Run("falls back to the original cost when lookup misses", func(t *testing.T) {
		result := CompensationLines(lines, func(uuid.UUID, uuid.UUID) (decimal.Decimal, bool) {
			return decimal.Zero, false
		})

		require.Len(t, result, 1)
		assert.Equal(t, "99", result[0].UnitCost.String())
	})
}
