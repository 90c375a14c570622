package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/transfer"
	"gorm.io/gorm"
)

// GormTransferRequestRepository implements TransferRequestRepository using GORM
type GormTransferRequestRepository struct {
	db *gorm.DB
}

// NewGormTransferRequestRepository creates a new GormTransferRequestRepository
func NewGormTransferRequestRepository(db *gorm.DB) *GormTransferRequestRepository {
	return &GormTransferRequestRepository{db: db}
}

// FindByID finds a transfer request (with its lines) by ID
func (r *GormTransferRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*transfer.TransferRequest, error) {
	var tr transfer.TransferRequest
	if err := r.db.WithContext(ctx).Preload("Lines").First(&tr, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &tr, nil
}

// FindByStatus finds transfer requests with a specific status
func (r *GormTransferRequestRepository) FindByStatus(ctx context.Context, status transfer.TransferStatus, filter shared.Filter) ([]transfer.TransferRequest, error) {
	var transfers []transfer.TransferRequest
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&transfer.TransferRequest{}).Where("status = ?", status),
		filter,
	)
	if err := query.Preload("Lines").Find(&transfers).Error; err != nil {
		return nil, err
	}
	return transfers, nil
}

// FindBySourceBranch finds transfer requests originating from a branch
func (r *GormTransferRequestRepository) FindBySourceBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) ([]transfer.TransferRequest, error) {
	var transfers []transfer.TransferRequest
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&transfer.TransferRequest{}).Where("source_branch_id = ?", branchID),
		filter,
	)
	if err := query.Preload("Lines").Find(&transfers).Error; err != nil {
		return nil, err
	}
	return transfers, nil
}

// FindByDestinationBranch finds transfer requests targeting a branch
func (r *GormTransferRequestRepository) FindByDestinationBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) ([]transfer.TransferRequest, error) {
	var transfers []transfer.TransferRequest
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&transfer.TransferRequest{}).Where("destination_branch_id = ?", branchID),
		filter,
	)
	if err := query.Preload("Lines").Find(&transfers).Error; err != nil {
		return nil, err
	}
	return transfers, nil
}

// FindAll finds all transfer requests matching the filter
func (r *GormTransferRequestRepository) FindAll(ctx context.Context, filter shared.Filter) ([]transfer.TransferRequest, error) {
	var transfers []transfer.TransferRequest
	query := r.applyFilter(r.db.WithContext(ctx).Model(&transfer.TransferRequest{}), filter)
	if err := query.Preload("Lines").Find(&transfers).Error; err != nil {
		return nil, err
	}
	return transfers, nil
}

// Save creates or updates a transfer request with its lines
func (r *GormTransferRequestRepository) Save(ctx context.Context, tr *transfer.TransferRequest) error {
	return r.db.WithContext(ctx).Save(tr).Error
}

// SaveWithLock saves with optimistic locking (checks version).
// Lines are immutable after creation, so only the request row is updated.
func (r *GormTransferRequestRepository) SaveWithLock(ctx context.Context, tr *transfer.TransferRequest) error {
	result := r.db.WithContext(ctx).
		Model(tr).
		Where("id = ? AND version = ?", tr.ID, tr.Version-1).
		Updates(map[string]interface{}{
			"status":         tr.Status,
			"reject_note":    tr.RejectNote,
			"stock_released": tr.StockReleased,
			"approved_by":    tr.ApprovedBy,
			"approved_at":    tr.ApprovedAt,
			"rejected_at":    tr.RejectedAt,
			"shipped_at":     tr.ShippedAt,
			"received_at":    tr.ReceivedAt,
			"version":        tr.Version,
			"updated_at":     tr.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Count counts transfer requests matching the filter
func (r *GormTransferRequestRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&transfer.TransferRequest{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByStatus counts transfer requests with a specific status
func (r *GormTransferRequestRepository) CountByStatus(ctx context.Context, status transfer.TransferStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&transfer.TransferRequest{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormTransferRequestRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, TransferSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	return query
}

func (r *GormTransferRequestRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "source_branch_id":
			query = query.Where("source_branch_id = ?", value)
		case "destination_branch_id":
			query = query.Where("destination_branch_id = ?", value)
		}
	}
	return query
}

// Ensure GormTransferRequestRepository implements TransferRequestRepository
var _ transfer.TransferRequestRepository = (*GormTransferRequestRepository)(nil)
