package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
)

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// FindByID finds an order (with its lines) by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByStatus finds orders with a specific status
	FindByStatus(ctx context.Context, status OrderStatus, filter shared.Filter) ([]Order, error)

	// FindByBuyerPhone finds orders placed with a buyer phone number
	FindByBuyerPhone(ctx context.Context, phone string, filter shared.Filter) ([]Order, error)

	// FindAll finds all orders matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Order, error)

	// Save creates or updates an order with its lines
	Save(ctx context.Context, o *Order) error

	// SaveWithLock saves with optimistic locking (checks version)
	SaveWithLock(ctx context.Context, o *Order) error

	// Count counts orders matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// CountByStatus counts orders with a specific status
	CountByStatus(ctx context.Context, status OrderStatus) (int64, error)
}
