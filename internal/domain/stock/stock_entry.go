package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// StockEntry represents the on-hand stock of one product variant at one branch.
// It is the aggregate root for ledger operations.
// The composite identifier is BranchID + ProductID + VariantID.
type StockEntry struct {
	shared.BaseAggregateRoot
	BranchID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_entry_branch_variant,priority:1"`
	ProductID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_entry_branch_variant,priority:2"`
	VariantID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_entry_branch_variant,priority:3"`
	QuantityOnHand int64           `gorm:"not null;default:0"`
	AverageCost    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Moving weighted average cost
	MinQuantity    int64           `gorm:"not null;default:0"`                    // Minimum stock threshold for alerts
}

// TableName returns the table name for GORM
func (StockEntry) TableName() string {
	return "stock_entries"
}

// NewStockEntry creates an empty ledger entry for a branch-variant combination
func NewStockEntry(branchID, productID, variantID uuid.UUID) (*StockEntry, error) {
	if branchID == uuid.Nil {
		return nil, shared.NewValidationError("Branch ID cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, shared.NewValidationError("Product ID cannot be empty")
	}
	if variantID == uuid.Nil {
		return nil, shared.NewValidationError("Variant ID cannot be empty")
	}

	entry := &StockEntry{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BranchID:          branchID,
		ProductID:         productID,
		VariantID:         variantID,
		QuantityOnHand:    0,
		AverageCost:       decimal.Zero,
		MinQuantity:       0,
	}

	return entry, nil
}

// Adjust applies a signed quantity delta to the entry.
// Positive deltas with a unit cost recalculate the moving weighted average cost:
// newAvg = (oldQty*oldAvg + delta*unitCost) / (oldQty + delta), rounded to 4 places.
// Negative deltas never change the average. A delta that would drive the
// quantity below zero fails with INSUFFICIENT_STOCK and leaves the entry untouched.
func (e *StockEntry) Adjust(delta int64, unitCost *decimal.Decimal) error {
	if delta == 0 {
		return shared.NewValidationError("Adjustment delta cannot be zero")
	}
	if unitCost != nil && unitCost.IsNegative() {
		return shared.NewValidationError("Unit cost cannot be negative")
	}

	newQuantity := e.QuantityOnHand + delta
	if newQuantity < 0 {
		return shared.ErrInsufficientStock.WithDetails(map[string]any{
			"branch_id":  e.BranchID.String(),
			"product_id": e.ProductID.String(),
			"variant_id": e.VariantID.String(),
			"requested":  -delta,
			"available":  e.QuantityOnHand,
		})
	}

	oldQuantity := decimal.NewFromInt(e.QuantityOnHand)
	oldCost := e.AverageCost

	if delta > 0 && unitCost != nil {
		added := decimal.NewFromInt(delta)
		if e.QuantityOnHand == 0 {
			e.AverageCost = unitCost.Round(4)
		} else {
			totalValue := oldQuantity.Mul(oldCost).Add(added.Mul(*unitCost))
			totalQuantity := oldQuantity.Add(added)
			e.AverageCost = totalValue.Div(totalQuantity).Round(4)
		}
	}

	e.QuantityOnHand = newQuantity
	e.UpdatedAt = time.Now()
	e.IncrementVersion()

	e.AddDomainEvent(NewStockAdjustedEvent(e, delta, oldCost, e.AverageCost))

	if e.IsBelowMinimum() {
		e.AddDomainEvent(NewStockBelowMinimumEvent(e))
	}

	return nil
}

// CanFulfill returns true if the on-hand quantity can cover the requested quantity
func (e *StockEntry) CanFulfill(quantity int64) bool {
	return quantity > 0 && e.QuantityOnHand >= quantity
}

// SetMinQuantity sets the minimum stock threshold for alerts
func (e *StockEntry) SetMinQuantity(quantity int64) error {
	if quantity < 0 {
		return shared.NewValidationError("Minimum quantity cannot be negative")
	}

	e.MinQuantity = quantity
	e.UpdatedAt = time.Now()
	e.IncrementVersion()

	return nil
}

// IsBelowMinimum returns true if the on-hand quantity is below the minimum threshold
func (e *StockEntry) IsBelowMinimum() bool {
	return e.MinQuantity > 0 && e.QuantityOnHand < e.MinQuantity
}

// TotalValue returns the ledger value of the entry (quantity * average cost)
func (e *StockEntry) TotalValue() decimal.Decimal {
	return decimal.NewFromInt(e.QuantityOnHand).Mul(e.AverageCost)
}
