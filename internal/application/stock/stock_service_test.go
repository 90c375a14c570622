package stock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryEntryRepo struct {
	mu      sync.Mutex
	entries map[string]*stock.StockEntry
}

func newMemoryEntryRepo() *memoryEntryRepo {
	return &memoryEntryRepo{entries: make(map[string]*stock.StockEntry)}
}

func entryKey(branchID, productID, variantID uuid.UUID) string {
	return branchID.String() + "/" + productID.String() + "/" + variantID.String()
}

func (r *memoryEntryRepo) FindByID(_ context.Context, id uuid.UUID) (*stock.StockEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryEntryRepo) FindByKey(_ context.Context, branchID, productID, variantID uuid.UUID) (*stock.StockEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[entryKey(branchID, productID, variantID)]; ok {
		return e, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memoryEntryRepo) FindByBranch(_ context.Context, branchID uuid.UUID, _ shared.Filter) ([]stock.StockEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []stock.StockEntry
	for _, e := range r.entries {
		if e.BranchID == branchID {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (r *memoryEntryRepo) FindByProduct(_ context.Context, productID uuid.UUID, _ shared.Filter) ([]stock.StockEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []stock.StockEntry
	for _, e := range r.entries {
		if e.ProductID == productID {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (r *memoryEntryRepo) FindAll(_ context.Context, _ shared.Filter) ([]stock.StockEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]stock.StockEntry, 0, len(r.entries))
	for _, e := range r.entries {
		result = append(result, *e)
	}
	return result, nil
}

func (r *memoryEntryRepo) FindBelowMinimum(_ context.Context, _ shared.Filter) ([]stock.StockEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []stock.StockEntry
	for _, e := range r.entries {
		if e.IsBelowMinimum() {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (r *memoryEntryRepo) GetOrCreate(_ context.Context, branchID, productID, variantID uuid.UUID) (*stock.StockEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := entryKey(branchID, productID, variantID)
	if e, ok := r.entries[key]; ok {
		return e, nil
	}
	entry, err := stock.NewStockEntry(branchID, productID, variantID)
	if err != nil {
		return nil, err
	}
	r.entries[key] = entry
	return entry, nil
}

func (r *memoryEntryRepo) Save(_ context.Context, entry *stock.StockEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entryKey(entry.BranchID, entry.ProductID, entry.VariantID)] = entry
	return nil
}

func (r *memoryEntryRepo) SaveWithLock(_ context.Context, entry *stock.StockEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entryKey(entry.BranchID, entry.ProductID, entry.VariantID)] = entry
	return nil
}

func (r *memoryEntryRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.entries)), nil
}

func (r *memoryEntryRepo) CountByBranch(_ context.Context, branchID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, e := range r.entries {
		if e.BranchID == branchID {
			n++
		}
	}
	return n, nil
}

type memoryMovementRepo struct {
	mu        sync.Mutex
	movements []*stock.Movement
}

func newMemoryMovementRepo() *memoryMovementRepo {
	return &memoryMovementRepo{}
}

func (r *memoryMovementRepo) FindByID(_ context.Context, id uuid.UUID) (*stock.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.movements {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryMovementRepo) FindByBranch(_ context.Context, branchID uuid.UUID, _ shared.Filter) ([]stock.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []stock.Movement
	for _, m := range r.movements {
		if m.BranchID == branchID || (m.DestinationBranchID != nil && *m.DestinationBranchID == branchID) {
			result = append(result, *m)
		}
	}
	return result, nil
}

func (r *memoryMovementRepo) FindByType(_ context.Context, movementType stock.MovementType, _ shared.Filter) ([]stock.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []stock.Movement
	for _, m := range r.movements {
		if m.Type == movementType {
			result = append(result, *m)
		}
	}
	return result, nil
}

func (r *memoryMovementRepo) FindBySource(_ context.Context, sourceType stock.SourceType, sourceID string) ([]stock.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []stock.Movement
	for _, m := range r.movements {
		if m.SourceType == sourceType && m.SourceID == sourceID {
			result = append(result, *m)
		}
	}
	return result, nil
}

func (r *memoryMovementRepo) FindByDateRange(_ context.Context, start, end time.Time, _ shared.Filter) ([]stock.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []stock.Movement
	for _, m := range r.movements {
		if !m.CreatedAt.Before(start) && !m.CreatedAt.After(end) {
			result = append(result, *m)
		}
	}
	return result, nil
}

func (r *memoryMovementRepo) FindAll(_ context.Context, _ shared.Filter) ([]stock.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]stock.Movement, 0, len(r.movements))
	for _, m := range r.movements {
		result = append(result, *m)
	}
	return result, nil
}

func (r *memoryMovementRepo) Create(_ context.Context, movement *stock.Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, movement)
	return nil
}

func (r *memoryMovementRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.movements)), nil
}

func (r *memoryMovementRepo) SumSignedQuantity(_ context.Context, branchID, productID, variantID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, m := range r.movements {
		for i := range m.Lines {
			line := m.Lines[i]
			if m.BranchID == branchID && line.ProductID == productID && line.VariantID == variantID {
				sum += m.SignedQuantity(&line)
			}
		}
	}
	return sum, nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *capturingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

type serviceFixture struct {
	service   *StockService
	entries   *memoryEntryRepo
	movements *memoryMovementRepo
	publisher *capturingPublisher
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	entries := newMemoryEntryRepo()
	movements := newMemoryMovementRepo()
	scope := NewNoOpTransactionScope(entries, movements, nil, nil)
	publisher := &capturingPublisher{}

	service := NewStockService(scope, stock.NewMovementProcessor())
	service.SetEventPublisher(publisher)

	return &serviceFixture{
		service:   service,
		entries:   entries,
		movements: movements,
		publisher: publisher,
	}
}

func (f *serviceFixture) seed(t *testing.T, branchID, productID, variantID uuid.UUID, quantity int64, cost int64) {
	t.Helper()
	_, err := f.service.CreateImport(context.Background(), CreateImportRequest{
		BranchID:  branchID,
		CreatedBy: uuid.New(),
		Lines: []MovementLineRequest{
			{ProductID: productID, VariantID: variantID, Quantity: quantity, UnitCost: decimal.NewFromInt(cost)},
		},
	})
	require.NoError(t, err)
}

func TestStockService_CreateImport(t *testing.T) {
	ctx := context.Background()

	t.Run("creates entry and records movement", func(t *testing.T) {
		f := newServiceFixture(t)
		branchID, productID, variantID := uuid.New(), uuid.New(), uuid.New()

		resp, err := f.service.CreateImport(ctx, CreateImportRequest{
			BranchID:  branchID,
			CreatedBy: uuid.New(),
			Note:      "initial delivery",
			Lines: []MovementLineRequest{
				{ProductID: productID, VariantID: variantID, Quantity: 10, UnitCost: decimal.NewFromInt(25)},
			},
		})

		require.NoError(t, err)
		assert.Equal(t, "IMPORT", resp.Type)
		assert.Equal(t, "initial delivery", resp.Note)
		require.Len(t, resp.Lines, 1)

		entry, err := f.entries.FindByKey(ctx, branchID, productID, variantID)
		require.NoError(t, err)
		assert.Equal(t, int64(10), entry.QuantityOnHand)
		assert.Equal(t, "25", entry.AverageCost.String())

		count, _ := f.movements.Count(ctx, shared.DefaultFilter())
		assert.Equal(t, int64(1), count)
	})

	t.Run("merges duplicate lines before applying", func(t *testing.T) {
		f := newServiceFixture(t)
		branchID, productID, variantID := uuid.New(), uuid.New(), uuid.New()

		resp, err := f.service.CreateImport(ctx, CreateImportRequest{
			BranchID:  branchID,
			CreatedBy: uuid.New(),
			Lines: []MovementLineRequest{
				{ProductID: productID, VariantID: variantID, Quantity: 4, UnitCost: decimal.NewFromInt(10)},
				{ProductID: productID, VariantID: variantID, Quantity: 6, UnitCost: decimal.NewFromInt(10)},
			},
		})

		require.NoError(t, err)
		require.Len(t, resp.Lines, 1)
		assert.Equal(t, int64(10), resp.Lines[0].Quantity)
	})

	t.Run("rejects non-positive quantity without persisting anything", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.CreateImport(ctx, CreateImportRequest{
			BranchID:  uuid.New(),
			CreatedBy: uuid.New(),
			Lines: []MovementLineRequest{
				{ProductID: uuid.New(), VariantID: uuid.New(), Quantity: 0},
			},
		})

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_MOVEMENT", domainErr.Code)

		count, _ := f.movements.Count(ctx, shared.DefaultFilter())
		assert.Equal(t, int64(0), count)
	})

	t.Run("publishes movement and stock events after commit", func(t *testing.T) {
		f := newServiceFixture(t)

		f.seed(t, uuid.New(), uuid.New(), uuid.New(), 5, 10)

		require.NotEmpty(t, f.publisher.events)
		assert.Equal(t, stock.EventTypeMovementApplied, f.publisher.events[0].EventType())
	})
}

func TestStockService_CreateExport(t *testing.T) {
	ctx := context.Background()

	t.Run("decrements on-hand quantity", func(t *testing.T) {
		f := newServiceFixture(t)
		branchID, productID, variantID := uuid.New(), uuid.New(), uuid.New()
		f.seed(t, branchID, productID, variantID, 10, 20)

		_, err := f.service.CreateExport(ctx, CreateExportRequest{
			BranchID:  branchID,
			CreatedBy: uuid.New(),
			Lines: []MovementLineRequest{
				{ProductID: productID, VariantID: variantID, Quantity: 4},
			},
		})

		require.NoError(t, err)
		entry, err := f.entries.FindByKey(ctx, branchID, productID, variantID)
		require.NoError(t, err)
		assert.Equal(t, int64(6), entry.QuantityOnHand)
		assert.Equal(t, "20", entry.AverageCost.String(), "export must not change the average cost")
	})

	t.Run("insufficient stock leaves ledger untouched", func(t *testing.T) {
		f := newServiceFixture(t)
		branchID, productID, variantID := uuid.New(), uuid.New(), uuid.New()
		f.seed(t, branchID, productID, variantID, 6, 20)

		_, err := f.service.CreateExport(ctx, CreateExportRequest{
			BranchID:  branchID,
			CreatedBy: uuid.New(),
			Lines: []MovementLineRequest{
				{ProductID: productID, VariantID: variantID, Quantity: 10},
			},
		})

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INSUFFICIENT_STOCK", domainErr.Code)

		entry, err := f.entries.FindByKey(ctx, branchID, productID, variantID)
		require.NoError(t, err)
		assert.Equal(t, int64(6), entry.QuantityOnHand)

		// only the seed import is on record
		count, _ := f.movements.Count(ctx, shared.DefaultFilter())
		assert.Equal(t, int64(1), count)
	})

	t.Run("one short line fails the whole movement", func(t *testing.T) {
		f := newServiceFixture(t)
		branchID := uuid.New()
		productA, variantA := uuid.New(), uuid.New()
		productB, variantB := uuid.New(), uuid.New()
		f.seed(t, branchID, productA, variantA, 10, 10)
		f.seed(t, branchID, productB, variantB, 1, 10)

		_, err := f.service.CreateExport(ctx, CreateExportRequest{
			BranchID:  branchID,
			CreatedBy: uuid.New(),
			Lines: []MovementLineRequest{
				{ProductID: productA, VariantID: variantA, Quantity: 5},
				{ProductID: productB, VariantID: variantB, Quantity: 3},
			},
		})

		require.Error(t, err)
		entryA, _ := f.entries.FindByKey(ctx, branchID, productA, variantA)
		entryB, _ := f.entries.FindByKey(ctx, branchID, productB, variantB)
		assert.Equal(t, int64(10), entryA.QuantityOnHand)
		assert.Equal(t, int64(1), entryB.QuantityOnHand)
	})
}

func TestStockService_GetEntry(t *testing.T) {
	ctx := context.Background()

	t.Run("returns persisted entry", func(t *testing.T) {
		f := newServiceFixture(t)
		branchID, productID, variantID := uuid.New(), uuid.New(), uuid.New()
		f.seed(t, branchID, productID, variantID, 7, 15)

		resp, err := f.service.GetEntry(ctx, branchID, productID, variantID)

		require.NoError(t, err)
		assert.Equal(t, int64(7), resp.QuantityOnHand)
		assert.Equal(t, "105", resp.TotalValue.String())
	})

	t.Run("missing entry reads as empty", func(t *testing.T) {
		f := newServiceFixture(t)

		resp, err := f.service.GetEntry(ctx, uuid.New(), uuid.New(), uuid.New())

		require.NoError(t, err)
		assert.Equal(t, int64(0), resp.QuantityOnHand)
		assert.True(t, resp.AverageCost.IsZero())
	})
}

func TestStockService_SetMinQuantity(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	branchID, productID, variantID := uuid.New(), uuid.New(), uuid.New()
	f.seed(t, branchID, productID, variantID, 3, 10)

	resp, err := f.service.SetMinQuantity(ctx, SetMinQuantityRequest{
		BranchID:    branchID,
		ProductID:   productID,
		VariantID:   variantID,
		MinQuantity: 5,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(5), resp.MinQuantity)
	assert.True(t, resp.IsBelowMinimum)
}

func TestStockService_CheckAvailability(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	branchID := uuid.New()
	productA, variantA := uuid.New(), uuid.New()
	productB, variantB := uuid.New(), uuid.New()
	f.seed(t, branchID, productA, variantA, 10, 10)

	resp, err := f.service.CheckAvailability(ctx, CheckAvailabilityRequest{
		BranchID: branchID,
		Lines: []AvailabilityLineRequest{
			{ProductID: productA, VariantID: variantA, Quantity: 4},
			{ProductID: productA, VariantID: variantA, Quantity: 4},
			{ProductID: productB, VariantID: variantB, Quantity: 1},
		},
	})

	require.NoError(t, err)
	assert.False(t, resp.Available)
	require.Len(t, resp.Lines, 2, "duplicate lines merge before the check")

	assert.Equal(t, int64(8), resp.Lines[0].Requested)
	assert.True(t, resp.Lines[0].Fulfilled)
	assert.Equal(t, int64(0), resp.Lines[1].Available)
	assert.False(t, resp.Lines[1].Fulfilled)
}

func TestStockService_ListMovements(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	branchID, productID, variantID := uuid.New(), uuid.New(), uuid.New()
	f.seed(t, branchID, productID, variantID, 10, 10)

	_, err := f.service.CreateExport(ctx, CreateExportRequest{
		BranchID:  branchID,
		CreatedBy: uuid.New(),
		Lines: []MovementLineRequest{
			{ProductID: productID, VariantID: variantID, Quantity: 2},
		},
	})
	require.NoError(t, err)

	all, total, err := f.service.ListMovements(ctx, MovementListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	exports, _, err := f.service.ListMovements(ctx, MovementListFilter{Type: "EXPORT"})
	require.NoError(t, err)
	require.Len(t, exports, 1)
	assert.Equal(t, "EXPORT", exports[0].Type)

	// audit trail cross-check: signed sum matches on-hand quantity
	sum, err := f.movements.SumSignedQuantity(ctx, branchID, productID, variantID)
	require.NoError(t, err)
	entry, _ := f.entries.FindByKey(ctx, branchID, productID, variantID)
	assert.Equal(t, entry.QuantityOnHand, sum)
}
