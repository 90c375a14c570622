package transfer

import (
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/transfer"
	"github.com/shopspring/decimal"
)

// TransferLineRequest is one (variant, quantity) position of a transfer.
// The unit cost is not part of the request; it is captured from the source
// ledger when the transfer is created.
type TransferLineRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	VariantID uuid.UUID `json:"variant_id" binding:"required"`
	Quantity  int64     `json:"quantity" binding:"required,min=1"`
}

// CreateTransferRequest represents a request to move stock between branches
type CreateTransferRequest struct {
	SourceBranchID      uuid.UUID             `json:"source_branch_id" binding:"required"`
	DestinationBranchID uuid.UUID             `json:"destination_branch_id" binding:"required"`
	Lines               []TransferLineRequest `json:"lines" binding:"required,min=1,dive"`
	Note                string                `json:"note"`
	CreatedBy           uuid.UUID             `json:"created_by" binding:"required"`
}

// UpdateTransferStatusRequest represents a status transition request
type UpdateTransferStatusRequest struct {
	Status     string    `json:"status" binding:"required,oneof=APPROVED REJECTED IN_TRANSIT RECEIVED"`
	OperatorID uuid.UUID `json:"operator_id" binding:"required"`
	Note       string    `json:"note"`
}

// TransferListFilter represents filter options for transfer lists
type TransferListFilter struct {
	Status              string     `form:"status" binding:"omitempty,oneof=PENDING APPROVED REJECTED IN_TRANSIT RECEIVED"`
	SourceBranchID      *uuid.UUID `form:"source_branch_id"`
	DestinationBranchID *uuid.UUID `form:"destination_branch_id"`
	Page                int        `form:"page" binding:"min=0"`
	PageSize            int        `form:"page_size" binding:"min=0,max=100"`
	OrderBy             string     `form:"order_by"`
	OrderDir            string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// TransferLineResponse represents a transfer line in API responses
type TransferLineResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	VariantID uuid.UUID       `json:"variant_id"`
	Quantity  int64           `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// TransferResponse represents a transfer request in API responses
type TransferResponse struct {
	ID                  uuid.UUID              `json:"id"`
	SourceBranchID      uuid.UUID              `json:"source_branch_id"`
	DestinationBranchID uuid.UUID              `json:"destination_branch_id"`
	Status              string                 `json:"status"`
	MovementID          uuid.UUID              `json:"movement_id"`
	Note                string                 `json:"note,omitempty"`
	RejectNote          string                 `json:"reject_note,omitempty"`
	CreatedBy           uuid.UUID              `json:"created_by"`
	ApprovedBy          *uuid.UUID             `json:"approved_by,omitempty"`
	ApprovedAt          *time.Time             `json:"approved_at,omitempty"`
	RejectedAt          *time.Time             `json:"rejected_at,omitempty"`
	ShippedAt           *time.Time             `json:"shipped_at,omitempty"`
	ReceivedAt          *time.Time             `json:"received_at,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
	Version             int                    `json:"version"`
	Lines               []TransferLineResponse `json:"lines"`
}

// ToTransferResponse maps a domain transfer request to its response form
func ToTransferResponse(tr *transfer.TransferRequest) *TransferResponse {
	lines := make([]TransferLineResponse, 0, len(tr.Lines))
	for i := range tr.Lines {
		line := tr.Lines[i]
		lines = append(lines, TransferLineResponse{
			ID:        line.ID,
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			UnitCost:  line.UnitCost,
		})
	}
	return &TransferResponse{
		ID:                  tr.ID,
		SourceBranchID:      tr.SourceBranchID,
		DestinationBranchID: tr.DestinationBranchID,
		Status:              tr.Status.String(),
		MovementID:          tr.MovementID,
		Note:                tr.Note,
		RejectNote:          tr.RejectNote,
		CreatedBy:           tr.CreatedBy,
		ApprovedBy:          tr.ApprovedBy,
		ApprovedAt:          tr.ApprovedAt,
		RejectedAt:          tr.RejectedAt,
		ShippedAt:           tr.ShippedAt,
		ReceivedAt:          tr.ReceivedAt,
		CreatedAt:           tr.CreatedAt,
		UpdatedAt:           tr.UpdatedAt,
		Version:             tr.Version,
		Lines:               lines,
	}
}
