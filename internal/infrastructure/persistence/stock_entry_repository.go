package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/stock"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockEntryRepository implements StockEntryRepository using GORM
type GormStockEntryRepository struct {
	db *gorm.DB
}

// NewGormStockEntryRepository creates a new GormStockEntryRepository
func NewGormStockEntryRepository(db *gorm.DB) *GormStockEntryRepository {
	return &GormStockEntryRepository{db: db}
}

// FindByID finds a stock entry by its ID
func (r *GormStockEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.StockEntry, error) {
	var entry stock.StockEntry
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// FindByKey finds the entry for a branch-product-variant combination
func (r *GormStockEntryRepository) FindByKey(ctx context.Context, branchID, productID, variantID uuid.UUID) (*stock.StockEntry, error) {
	var entry stock.StockEntry
	if err := r.db.WithContext(ctx).
		Where("branch_id = ? AND product_id = ? AND variant_id = ?", branchID, productID, variantID).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// FindByBranch finds all entries in a branch
func (r *GormStockEntryRepository) FindByBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) ([]stock.StockEntry, error) {
	var entries []stock.StockEntry
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&stock.StockEntry{}).Where("branch_id = ?", branchID),
		filter,
	)
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindByProduct finds all entries for a product (across branches)
func (r *GormStockEntryRepository) FindByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]stock.StockEntry, error) {
	var entries []stock.StockEntry
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&stock.StockEntry{}).Where("product_id = ?", productID),
		filter,
	)
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindAll finds all entries matching the filter
func (r *GormStockEntryRepository) FindAll(ctx context.Context, filter shared.Filter) ([]stock.StockEntry, error) {
	var entries []stock.StockEntry
	query := r.applyFilter(r.db.WithContext(ctx).Model(&stock.StockEntry{}), filter)
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindBelowMinimum finds entries below their minimum threshold
func (r *GormStockEntryRepository) FindBelowMinimum(ctx context.Context, filter shared.Filter) ([]stock.StockEntry, error) {
	var entries []stock.StockEntry
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&stock.StockEntry{}).
			Where("min_quantity > 0 AND quantity_on_hand < min_quantity"),
		filter,
	)
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// GetOrCreate gets the existing entry or creates an empty one
func (r *GormStockEntryRepository) GetOrCreate(ctx context.Context, branchID, productID, variantID uuid.UUID) (*stock.StockEntry, error) {
	entry, err := r.FindByKey(ctx, branchID, productID, variantID)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	entry, err = stock.NewStockEntry(branchID, productID, variantID)
	if err != nil {
		return nil, err
	}

	// ON CONFLICT handles the race where two transactions create the same key
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "branch_id"}, {Name: "product_id"}, {Name: "variant_id"}},
			DoNothing: true,
		}).
		Create(entry)
	if result.Error != nil {
		return nil, result.Error
	}

	// Zero rows means another transaction won the race; fetch its entry
	if result.RowsAffected == 0 {
		return r.FindByKey(ctx, branchID, productID, variantID)
	}

	return entry, nil
}

// Save creates or updates a stock entry
func (r *GormStockEntryRepository) Save(ctx context.Context, entry *stock.StockEntry) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormStockEntryRepository) SaveWithLock(ctx context.Context, entry *stock.StockEntry) error {
	result := r.db.WithContext(ctx).
		Model(entry).
		Where("id = ? AND version = ?", entry.ID, entry.Version-1).
		Updates(map[string]interface{}{
			"quantity_on_hand": entry.QuantityOnHand,
			"average_cost":     entry.AverageCost,
			"min_quantity":     entry.MinQuantity,
			"version":          entry.Version,
			"updated_at":       entry.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Count counts entries matching the filter
func (r *GormStockEntryRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&stock.StockEntry{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByBranch counts entries in a branch
func (r *GormStockEntryRepository) CountByBranch(ctx context.Context, branchID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&stock.StockEntry{}).
		Where("branch_id = ?", branchID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormStockEntryRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, StockEntrySortFields, "updated_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	return query
}

func (r *GormStockEntryRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "branch_id":
			query = query.Where("branch_id = ?", value)
		case "product_id":
			query = query.Where("product_id = ?", value)
		case "below_minimum":
			if value == true {
				query = query.Where("min_quantity > 0 AND quantity_on_hand < min_quantity")
			}
		case "has_stock":
			if value == true {
				query = query.Where("quantity_on_hand > 0")
			}
		}
	}
	return query
}

// Ensure GormStockEntryRepository implements StockEntryRepository
var _ stock.StockEntryRepository = (*GormStockEntryRepository)(nil)
