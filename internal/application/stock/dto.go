package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
)

// MovementLineRequest represents one line of a movement request
type MovementLineRequest struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	VariantID uuid.UUID       `json:"variant_id" binding:"required"`
	Quantity  int64           `json:"quantity" binding:"required"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// CreateImportRequest represents a request to import stock into a branch
type CreateImportRequest struct {
	BranchID  uuid.UUID             `json:"branch_id" binding:"required"`
	Lines     []MovementLineRequest `json:"lines" binding:"required,min=1,dive"`
	Note      string                `json:"note"`
	CreatedBy uuid.UUID             `json:"created_by" binding:"required"`
}

// CreateExportRequest represents a request to export stock out of a branch
type CreateExportRequest struct {
	BranchID  uuid.UUID             `json:"branch_id" binding:"required"`
	Lines     []MovementLineRequest `json:"lines" binding:"required,min=1,dive"`
	Note      string                `json:"note"`
	CreatedBy uuid.UUID             `json:"created_by" binding:"required"`
}

// SetMinQuantityRequest represents a request to set an entry's low-stock threshold
type SetMinQuantityRequest struct {
	BranchID    uuid.UUID `json:"branch_id" binding:"required"`
	ProductID   uuid.UUID `json:"product_id" binding:"required"`
	VariantID   uuid.UUID `json:"variant_id" binding:"required"`
	MinQuantity int64     `json:"min_quantity" binding:"min=0"`
}

// AvailabilityLineRequest is one (variant, quantity) pair of an availability check
type AvailabilityLineRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	VariantID uuid.UUID `json:"variant_id" binding:"required"`
	Quantity  int64     `json:"quantity" binding:"required,min=1"`
}

// CheckAvailabilityRequest asks whether a branch can fulfill a set of lines
type CheckAvailabilityRequest struct {
	BranchID uuid.UUID                 `json:"branch_id" binding:"required"`
	Lines    []AvailabilityLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// AvailabilityLineResponse reports per-line availability
type AvailabilityLineResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	VariantID uuid.UUID `json:"variant_id"`
	Requested int64     `json:"requested"`
	Available int64     `json:"available"`
	Fulfilled bool      `json:"fulfilled"`
}

// CheckAvailabilityResponse is the availability check result
type CheckAvailabilityResponse struct {
	BranchID  uuid.UUID                  `json:"branch_id"`
	Available bool                       `json:"available"`
	Lines     []AvailabilityLineResponse `json:"lines"`
}

// EntryListFilter represents filter options for stock entry lists
type EntryListFilter struct {
	BranchID     *uuid.UUID `form:"branch_id"`
	ProductID    *uuid.UUID `form:"product_id"`
	BelowMinimum *bool      `form:"below_minimum"`
	Page         int        `form:"page" binding:"min=0"`
	PageSize     int        `form:"page_size" binding:"min=0,max=100"`
	OrderBy      string     `form:"order_by"`
	OrderDir     string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// MovementListFilter represents filter options for movement lists
type MovementListFilter struct {
	BranchID  *uuid.UUID `form:"branch_id"`
	Type      string     `form:"type" binding:"omitempty,oneof=IMPORT EXPORT TRANSFER"`
	StartDate *time.Time `form:"start_date" time_format:"2006-01-02"`
	EndDate   *time.Time `form:"end_date" time_format:"2006-01-02"`
	Page      int        `form:"page" binding:"min=0"`
	PageSize  int        `form:"page_size" binding:"min=0,max=100"`
	OrderBy   string     `form:"order_by"`
	OrderDir  string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// StockEntryResponse represents a ledger entry in API responses
type StockEntryResponse struct {
	ID             uuid.UUID       `json:"id"`
	BranchID       uuid.UUID       `json:"branch_id"`
	ProductID      uuid.UUID       `json:"product_id"`
	VariantID      uuid.UUID       `json:"variant_id"`
	QuantityOnHand int64           `json:"quantity_on_hand"`
	AverageCost    decimal.Decimal `json:"average_cost"`
	TotalValue     decimal.Decimal `json:"total_value"`
	MinQuantity    int64           `json:"min_quantity"`
	IsBelowMinimum bool            `json:"is_below_minimum"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Version        int             `json:"version"`
}

// ToStockEntryResponse maps a domain entry to its response form
func ToStockEntryResponse(entry *stock.StockEntry) *StockEntryResponse {
	return &StockEntryResponse{
		ID:             entry.ID,
		BranchID:       entry.BranchID,
		ProductID:      entry.ProductID,
		VariantID:      entry.VariantID,
		QuantityOnHand: entry.QuantityOnHand,
		AverageCost:    entry.AverageCost,
		TotalValue:     entry.TotalValue(),
		MinQuantity:    entry.MinQuantity,
		IsBelowMinimum: entry.IsBelowMinimum(),
		UpdatedAt:      entry.UpdatedAt,
		Version:        entry.Version,
	}
}

// MovementLineResponse represents a movement line in API responses
type MovementLineResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	VariantID uuid.UUID       `json:"variant_id"`
	Quantity  int64           `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	Amount    decimal.Decimal `json:"amount"`
}

// MovementResponse represents a movement in API responses
type MovementResponse struct {
	ID                  uuid.UUID              `json:"id"`
	Type                string                 `json:"type"`
	BranchID            uuid.UUID              `json:"branch_id"`
	DestinationBranchID *uuid.UUID             `json:"destination_branch_id,omitempty"`
	SourceType          string                 `json:"source_type"`
	SourceID            string                 `json:"source_id,omitempty"`
	Note                string                 `json:"note,omitempty"`
	CreatedBy           uuid.UUID              `json:"created_by"`
	CreatedAt           time.Time              `json:"created_at"`
	Lines               []MovementLineResponse `json:"lines"`
}

// ToMovementResponse maps a domain movement to its response form
func ToMovementResponse(m *stock.Movement) *MovementResponse {
	lines := make([]MovementLineResponse, 0, len(m.Lines))
	for i := range m.Lines {
		line := m.Lines[i]
		lines = append(lines, MovementLineResponse{
			ID:        line.ID,
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			UnitCost:  line.UnitCost,
			Amount:    line.Amount(),
		})
	}
	return &MovementResponse{
		ID:                  m.ID,
		Type:                m.Type.String(),
		BranchID:            m.BranchID,
		DestinationBranchID: m.DestinationBranchID,
		SourceType:          m.SourceType.String(),
		SourceID:            m.SourceID,
		Note:                m.Note,
		CreatedBy:           m.CreatedBy,
		CreatedAt:           m.CreatedAt,
		Lines:               lines,
	}
}

// ToMovementLines maps request lines to domain movement lines
func ToMovementLines(lines []MovementLineRequest) []stock.MovementLine {
	result := make([]stock.MovementLine, 0, len(lines))
	for i := range lines {
		result = append(result, stock.MovementLine{
			ProductID: lines[i].ProductID,
			VariantID: lines[i].VariantID,
			Quantity:  lines[i].Quantity,
			UnitCost:  lines[i].UnitCost,
		})
	}
	return result
}
