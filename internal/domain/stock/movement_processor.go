package stock

import (
	"context"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Ledger loads (or lazily creates) the stock entries a movement touches.
// Implementations are expected to run inside the caller's transaction.
type Ledger interface {
	GetOrCreate(ctx context.Context, branchID, productID, variantID uuid.UUID) (*StockEntry, error)
}

// MovementProcessor validates and applies stock movements against the ledger.
// Export-style movements check availability across ALL merged lines before
// mutating any entry, so a failed movement never leaves partial changes.
type MovementProcessor struct{}

// NewMovementProcessor creates a new MovementProcessor
func NewMovementProcessor() *MovementProcessor {
	return &MovementProcessor{}
}

// MovementResult bundles the movement record with the entries it changed and
// the events to publish after the surrounding transaction commits
type MovementResult struct {
	Movement *Movement
	Entries  []*StockEntry
	Events   []shared.DomainEvent
}

// ApplyImport increases the branch ledger by the merged movement lines,
// recalculating the weighted average cost of each entry
func (p *MovementProcessor) ApplyImport(ctx context.Context, ledger Ledger, branchID, createdBy uuid.UUID, lines []MovementLine) (*MovementResult, error) {
	movement, err := NewMovement(MovementTypeImport, branchID, lines, createdBy)
	if err != nil {
		return nil, err
	}

	entries := make([]*StockEntry, 0, len(movement.Lines))
	for i := range movement.Lines {
		line := movement.Lines[i]
		entry, err := ledger.GetOrCreate(ctx, branchID, line.ProductID, line.VariantID)
		if err != nil {
			return nil, err
		}
		unitCost := line.UnitCost
		if err := entry.Adjust(line.Quantity, &unitCost); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return newMovementResult(movement, entries), nil
}

// ApplyExport decreases the branch ledger by the merged movement lines.
// Availability is validated for every line first; on any shortage the error
// reports all offending variants and no entry is changed.
func (p *MovementProcessor) ApplyExport(ctx context.Context, ledger Ledger, branchID, createdBy uuid.UUID, lines []MovementLine) (*MovementResult, error) {
	movement, err := NewMovement(MovementTypeExport, branchID, lines, createdBy)
	if err != nil {
		return nil, err
	}
	return p.applyOutbound(ctx, ledger, movement, branchID)
}

// ApplyTransfer decreases the source branch ledger (the reservation half of a
// transfer). The destination half is applied later as an import.
func (p *MovementProcessor) ApplyTransfer(ctx context.Context, ledger Ledger, sourceBranchID, destinationBranchID, createdBy uuid.UUID, lines []MovementLine) (*MovementResult, error) {
	if destinationBranchID == uuid.Nil {
		return nil, shared.NewValidationError("Destination branch ID cannot be empty")
	}
	if sourceBranchID == destinationBranchID {
		return nil, shared.NewValidationError("Source and destination branches must differ")
	}

	movement, err := NewMovement(MovementTypeTransfer, sourceBranchID, lines, createdBy)
	if err != nil {
		return nil, err
	}
	movement.WithDestination(destinationBranchID)
	return p.applyOutbound(ctx, ledger, movement, sourceBranchID)
}

func (p *MovementProcessor) applyOutbound(ctx context.Context, ledger Ledger, movement *Movement, branchID uuid.UUID) (*MovementResult, error) {
	entries := make([]*StockEntry, 0, len(movement.Lines))
	shortages := make([]map[string]any, 0)

	for i := range movement.Lines {
		line := movement.Lines[i]
		entry, err := ledger.GetOrCreate(ctx, branchID, line.ProductID, line.VariantID)
		if err != nil {
			return nil, err
		}
		if !entry.CanFulfill(line.Quantity) {
			shortages = append(shortages, map[string]any{
				"product_id": line.ProductID.String(),
				"variant_id": line.VariantID.String(),
				"requested":  line.Quantity,
				"available":  entry.QuantityOnHand,
			})
		}
		entries = append(entries, entry)
	}

	if len(shortages) > 0 {
		return nil, shared.ErrInsufficientStock.WithDetails(map[string]any{
			"branch_id": branchID.String(),
			"shortages": shortages,
		})
	}

	for i := range movement.Lines {
		if err := entries[i].Adjust(-movement.Lines[i].Quantity, nil); err != nil {
			return nil, err
		}
	}

	return newMovementResult(movement, entries), nil
}

func newMovementResult(movement *Movement, entries []*StockEntry) *MovementResult {
	events := []shared.DomainEvent{NewMovementAppliedEvent(movement)}
	for _, entry := range entries {
		events = append(events, entry.GetDomainEvents()...)
		entry.ClearDomainEvents()
	}
	return &MovementResult{Movement: movement, Entries: entries, Events: events}
}

// CompensationLines builds import lines that undo a previous outbound,
// priced by the costOf lookup (typically each entry's current average cost)
// so the reimport leaves the moving average unchanged
func CompensationLines(lines []MovementLine, costOf func(productID, variantID uuid.UUID) (decimal.Decimal, bool)) []MovementLine {
	result := make([]MovementLine, 0, len(lines))
	for i := range lines {
		line := lines[i]
		cost := line.UnitCost
		if c, ok := costOf(line.ProductID, line.VariantID); ok {
			cost = c
		}
		result = append(result, MovementLine{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			UnitCost:  cost,
		})
	}
	return result
}
