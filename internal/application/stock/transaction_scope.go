package stock

import (
	"context"

	"github.com/retail/backend/internal/domain/order"
	"github.com/retail/backend/internal/domain/stock"
	"github.com/retail/backend/internal/domain/transfer"
)

// TransactionScope provides transactional access to the ledger repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or roll
// back atomically. Every workflow that mutates the ledger (movements,
// transfers, order lifecycle) runs through this scope so multi-branch
// operations stay all-or-nothing.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all ledger-touching
// repositories within one transaction. All repositories returned share the
// same underlying database transaction.
type TransactionalRepositories interface {
	// StockEntries returns the stock entry repository scoped to the current transaction
	StockEntries() stock.StockEntryRepository
	// Movements returns the movement repository scoped to the current transaction
	Movements() stock.MovementRepository
	// Transfers returns the transfer request repository scoped to the current transaction
	Transfers() transfer.TransferRequestRepository
	// Orders returns the order repository scoped to the current transaction
	Orders() order.OrderRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. This is useful for testing or when transaction support is
// not required.
type NoOpTransactionScope struct {
	entryRepo    stock.StockEntryRepository
	movementRepo stock.MovementRepository
	transferRepo transfer.TransferRequestRepository
	orderRepo    order.OrderRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	entryRepo stock.StockEntryRepository,
	movementRepo stock.MovementRepository,
	transferRepo transfer.TransferRequestRepository,
	orderRepo order.OrderRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		entryRepo:    entryRepo,
		movementRepo: movementRepo,
		transferRepo: transferRepo,
		orderRepo:    orderRepo,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// StockEntries returns the stock entry repository.
func (s *NoOpTransactionScope) StockEntries() stock.StockEntryRepository {
	return s.entryRepo
}

// Movements returns the movement repository.
func (s *NoOpTransactionScope) Movements() stock.MovementRepository {
	return s.movementRepo
}

// Transfers returns the transfer request repository.
func (s *NoOpTransactionScope) Transfers() transfer.TransferRequestRepository {
	return s.transferRepo
}

// Orders returns the order repository.
func (s *NoOpTransactionScope) Orders() order.OrderRepository {
	return s.orderRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
