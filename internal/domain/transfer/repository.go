package transfer

import (
	"context"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
)

// TransferRequestRepository defines the interface for transfer request persistence
type TransferRequestRepository interface {
	// FindByID finds a transfer request (with its lines) by ID
	FindByID(ctx context.Context, id uuid.UUID) (*TransferRequest, error)

	// FindByStatus finds transfer requests with a specific status
	FindByStatus(ctx context.Context, status TransferStatus, filter shared.Filter) ([]TransferRequest, error)

	// FindBySourceBranch finds transfer requests originating from a branch
	FindBySourceBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) ([]TransferRequest, error)

	// FindByDestinationBranch finds transfer requests targeting a branch
	FindByDestinationBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) ([]TransferRequest, error)

	// FindAll finds all transfer requests matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]TransferRequest, error)

	// Save creates or updates a transfer request with its lines
	Save(ctx context.Context, tr *TransferRequest) error

	// SaveWithLock saves with optimistic locking (checks version)
	SaveWithLock(ctx context.Context, tr *TransferRequest) error

	// Count counts transfer requests matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// CountByStatus counts transfer requests with a specific status
	CountByStatus(ctx context.Context, status TransferStatus) (int64, error)
}
