package stock

import (
	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypeStockEntry = "StockEntry"
	AggregateTypeMovement   = "Movement"
)

// Event type constants
const (
	EventTypeStockAdjusted     = "StockAdjusted"
	EventTypeStockBelowMinimum = "StockBelowMinimum"
	EventTypeMovementApplied   = "MovementApplied"
)

// StockAdjustedEvent is raised whenever a ledger entry quantity changes
type StockAdjustedEvent struct {
	shared.BaseDomainEvent
	StockEntryID uuid.UUID       `json:"stock_entry_id"`
	BranchID     uuid.UUID       `json:"branch_id"`
	ProductID    uuid.UUID       `json:"product_id"`
	VariantID    uuid.UUID       `json:"variant_id"`
	Delta        int64           `json:"delta"`
	NewQuantity  int64           `json:"new_quantity"`
	OldCost      decimal.Decimal `json:"old_cost"`
	NewCost      decimal.Decimal `json:"new_cost"`
}

// NewStockAdjustedEvent creates a new StockAdjustedEvent
func NewStockAdjustedEvent(entry *StockEntry, delta int64, oldCost, newCost decimal.Decimal) *StockAdjustedEvent {
	return &StockAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAdjusted, AggregateTypeStockEntry, entry.ID),
		StockEntryID:    entry.ID,
		BranchID:        entry.BranchID,
		ProductID:       entry.ProductID,
		VariantID:       entry.VariantID,
		Delta:           delta,
		NewQuantity:     entry.QuantityOnHand,
		OldCost:         oldCost,
		NewCost:         newCost,
	}
}

// EventType returns the event type name
func (e *StockAdjustedEvent) EventType() string {
	return EventTypeStockAdjusted
}

// StockBelowMinimumEvent is raised when an entry drops below its minimum threshold
type StockBelowMinimumEvent struct {
	shared.BaseDomainEvent
	StockEntryID   uuid.UUID `json:"stock_entry_id"`
	BranchID       uuid.UUID `json:"branch_id"`
	ProductID      uuid.UUID `json:"product_id"`
	VariantID      uuid.UUID `json:"variant_id"`
	QuantityOnHand int64     `json:"quantity_on_hand"`
	MinQuantity    int64     `json:"min_quantity"`
}

// NewStockBelowMinimumEvent creates a new StockBelowMinimumEvent
func NewStockBelowMinimumEvent(entry *StockEntry) *StockBelowMinimumEvent {
	return &StockBelowMinimumEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockBelowMinimum, AggregateTypeStockEntry, entry.ID),
		StockEntryID:    entry.ID,
		BranchID:        entry.BranchID,
		ProductID:       entry.ProductID,
		VariantID:       entry.VariantID,
		QuantityOnHand:  entry.QuantityOnHand,
		MinQuantity:     entry.MinQuantity,
	}
}

// EventType returns the event type name
func (e *StockBelowMinimumEvent) EventType() string {
	return EventTypeStockBelowMinimum
}

// MovementAppliedEvent is raised once per applied movement
type MovementAppliedEvent struct {
	shared.BaseDomainEvent
	MovementID          uuid.UUID  `json:"movement_id"`
	MovementType        string     `json:"movement_type"`
	BranchID            uuid.UUID  `json:"branch_id"`
	DestinationBranchID *uuid.UUID `json:"destination_branch_id,omitempty"`
	LineCount           int        `json:"line_count"`
	TotalQuantity       int64      `json:"total_quantity"`
}

// NewMovementAppliedEvent creates a new MovementAppliedEvent
func NewMovementAppliedEvent(movement *Movement) *MovementAppliedEvent {
	return &MovementAppliedEvent{
		BaseDomainEvent:     shared.NewBaseDomainEvent(EventTypeMovementApplied, AggregateTypeMovement, movement.ID),
		MovementID:          movement.ID,
		MovementType:        movement.Type.String(),
		BranchID:            movement.BranchID,
		DestinationBranchID: movement.DestinationBranchID,
		LineCount:           len(movement.Lines),
		TotalQuantity:       movement.TotalQuantity(),
	}
}

// EventType returns the event type name
func (e *MovementAppliedEvent) EventType() string {
	return EventTypeMovementApplied
}
