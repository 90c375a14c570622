package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/stock"
	"gorm.io/gorm"
)

// GormMovementRepository implements MovementRepository using GORM.
// Movements are append-only; the repository exposes no update or delete.
type GormMovementRepository struct {
	db *gorm.DB
}

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// FindByID finds a movement (with its lines) by ID
func (r *GormMovementRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.Movement, error) {
	var movement stock.Movement
	if err := r.db.WithContext(ctx).Preload("Lines").First(&movement, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &movement, nil
}

// FindByBranch finds movements touching a branch (as source or destination)
func (r *GormMovementRepository) FindByBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) ([]stock.Movement, error) {
	var movements []stock.Movement
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&stock.Movement{}).
			Where("branch_id = ? OR destination_branch_id = ?", branchID, branchID),
		filter,
	)
	if err := query.Preload("Lines").Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// FindByType finds movements of a given type
func (r *GormMovementRepository) FindByType(ctx context.Context, movementType stock.MovementType, filter shared.Filter) ([]stock.Movement, error) {
	var movements []stock.Movement
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&stock.Movement{}).Where("type = ?", movementType),
		filter,
	)
	if err := query.Preload("Lines").Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// FindBySource finds movements caused by a source document
func (r *GormMovementRepository) FindBySource(ctx context.Context, sourceType stock.SourceType, sourceID string) ([]stock.Movement, error) {
	var movements []stock.Movement
	if err := r.db.WithContext(ctx).
		Where("source_type = ? AND source_id = ?", sourceType, sourceID).
		Order("created_at ASC").
		Preload("Lines").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// FindByDateRange finds movements within a date range
func (r *GormMovementRepository) FindByDateRange(ctx context.Context, start, end time.Time, filter shared.Filter) ([]stock.Movement, error) {
	var movements []stock.Movement
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&stock.Movement{}).
			Where("created_at >= ? AND created_at <= ?", start, end),
		filter,
	)
	if err := query.Preload("Lines").Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// FindAll finds all movements matching the filter
func (r *GormMovementRepository) FindAll(ctx context.Context, filter shared.Filter) ([]stock.Movement, error) {
	var movements []stock.Movement
	query := r.applyFilter(r.db.WithContext(ctx).Model(&stock.Movement{}), filter)
	if err := query.Preload("Lines").Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// Create creates a new movement with its lines (append-only)
func (r *GormMovementRepository) Create(ctx context.Context, movement *stock.Movement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

// Count counts movements matching the filter
func (r *GormMovementRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&stock.Movement{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumSignedQuantity sums the signed line quantities for one ledger key,
// used to cross-check an entry's on-hand quantity against the audit trail
func (r *GormMovementRepository) SumSignedQuantity(ctx context.Context, branchID, productID, variantID uuid.UUID) (int64, error) {
	var result struct {
		Total int64
	}
	if err := r.db.WithContext(ctx).
		Model(&stock.MovementLine{}).
		Select("COALESCE(SUM(CASE WHEN movements.type = ? THEN movement_lines.quantity ELSE -movement_lines.quantity END), 0) as total", stock.MovementTypeImport).
		Joins("JOIN movements ON movements.id = movement_lines.movement_id").
		Where("movements.branch_id = ? AND movement_lines.product_id = ? AND movement_lines.variant_id = ?", branchID, productID, variantID).
		Scan(&result).Error; err != nil {
		return 0, err
	}
	return result.Total, nil
}

func (r *GormMovementRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, MovementSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	return query
}

func (r *GormMovementRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "branch_id":
			query = query.Where("branch_id = ? OR destination_branch_id = ?", value, value)
		case "type":
			query = query.Where("type = ?", value)
		case "source_type":
			query = query.Where("source_type = ?", value)
		}
	}
	return query
}

// Ensure GormMovementRepository implements MovementRepository
var _ stock.MovementRepository = (*GormMovementRepository)(nil)
