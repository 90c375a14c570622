package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
)

// StockEntryRepository defines the interface for stock entry persistence
type StockEntryRepository interface {
	// FindByID finds a stock entry by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*StockEntry, error)

	// FindByKey finds the entry for a branch-product-variant combination
	FindByKey(ctx context.Context, branchID, productID, variantID uuid.UUID) (*StockEntry, error)

	// FindByBranch finds all entries in a branch
	FindByBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) ([]StockEntry, error)

	// FindByProduct finds all entries for a product (across branches)
	FindByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]StockEntry, error)

	// FindAll finds all entries matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]StockEntry, error)

	// FindBelowMinimum finds entries below their minimum threshold
	FindBelowMinimum(ctx context.Context, filter shared.Filter) ([]StockEntry, error)

	// GetOrCreate gets the existing entry or creates an empty one
	GetOrCreate(ctx context.Context, branchID, productID, variantID uuid.UUID) (*StockEntry, error)

	// Save creates or updates a stock entry
	Save(ctx context.Context, entry *StockEntry) error

	// SaveWithLock saves with optimistic locking (checks version)
	SaveWithLock(ctx context.Context, entry *StockEntry) error

	// Count counts entries matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// CountByBranch counts entries in a branch
	CountByBranch(ctx context.Context, branchID uuid.UUID) (int64, error)
}

// MovementRepository defines the interface for movement persistence.
// Movements are append-only; there is deliberately no update or delete.
type MovementRepository interface {
	// FindByID finds a movement (with its lines) by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Movement, error)

	// FindByBranch finds movements touching a branch (as source or destination)
	FindByBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) ([]Movement, error)

	// FindByType finds movements of a given type
	FindByType(ctx context.Context, movementType MovementType, filter shared.Filter) ([]Movement, error)

	// FindBySource finds movements caused by a source document
	FindBySource(ctx context.Context, sourceType SourceType, sourceID string) ([]Movement, error)

	// FindByDateRange finds movements within a date range
	FindByDateRange(ctx context.Context, start, end time.Time, filter shared.Filter) ([]Movement, error)

	// FindAll finds all movements matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Movement, error)

	// Create creates a new movement with its lines (append-only)
	Create(ctx context.Context, movement *Movement) error

	// Count counts movements matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// SumSignedQuantity sums the signed line quantities for one ledger key,
	// used to cross-check an entry's on-hand quantity against the audit trail
	SumSignedQuantity(ctx context.Context, branchID, productID, variantID uuid.UUID) (int64, error)
}

// EntryFilter extends shared.Filter with ledger-specific filters
type EntryFilter struct {
	shared.Filter
	BranchID     *uuid.UUID
	ProductID    *uuid.UUID
	BelowMinimum bool
	HasStock     bool
}

// MovementFilter extends shared.Filter with movement-specific filters
type MovementFilter struct {
	shared.Filter
	BranchID   *uuid.UUID
	Type       *MovementType
	SourceType *SourceType
	SourceID   string
	StartDate  *time.Time
	EndDate    *time.Time
}
