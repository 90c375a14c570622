package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/order"
	"github.com/shopspring/decimal"
)

// BuyerRequest holds the purchaser's contact details
type BuyerRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone" binding:"required"`
}

// RecipientRequest holds the delivery contact details
type RecipientRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// OrderLineRequest is one position of an order, fulfilled by a branch
type OrderLineRequest struct {
	BranchID  uuid.UUID       `json:"branch_id" binding:"required"`
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	VariantID uuid.UUID       `json:"variant_id" binding:"required"`
	Quantity  int64           `json:"quantity" binding:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unit_price" binding:"required"`
}

// CreateOrderRequest represents a request to place an order
type CreateOrderRequest struct {
	Buyer         BuyerRequest       `json:"buyer" binding:"required"`
	Recipient     RecipientRequest   `json:"recipient"`
	PaymentMethod string             `json:"payment_method" binding:"required,oneof=COD BANK_TRANSFER CARD"`
	Lines         []OrderLineRequest `json:"lines" binding:"required,min=1,dive"`
	CreatedBy     uuid.UUID          `json:"created_by" binding:"required"`
}

// ReturnApprovalApproved and ReturnApprovalRejected are the operator's verdict
// on a return request.
const (
	ReturnApprovalApproved = "approved"
	ReturnApprovalRejected = "rejected"
)

// UpdateOrderStatusRequest represents a status transition request.
// A RETURNED transition additionally requires the operator's approval verdict.
type UpdateOrderStatusRequest struct {
	Status         string    `json:"status" binding:"required,oneof=PROCESSING CONFIRMED SHIPPING DELIVERED CANCELLED RETURNED"`
	OperatorID     uuid.UUID `json:"operator_id" binding:"required"`
	Reason         string    `json:"reason"`
	Note           string    `json:"note"`
	ReturnApproval string    `json:"return_approval" binding:"omitempty,oneof=approved rejected"`
}

// OrderListFilter represents filter options for order lists
type OrderListFilter struct {
	Status     string `form:"status" binding:"omitempty,oneof=PENDING PROCESSING CONFIRMED SHIPPING DELIVERED CANCELLED RETURNED"`
	BuyerPhone string `form:"buyer_phone"`
	Page       int    `form:"page" binding:"min=0"`
	PageSize   int    `form:"page_size" binding:"min=0,max=100"`
	OrderBy    string `form:"order_by"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// OrderLineResponse represents an order line in API responses
type OrderLineResponse struct {
	ID        uuid.UUID       `json:"id"`
	BranchID  uuid.UUID       `json:"branch_id"`
	ProductID uuid.UUID       `json:"product_id"`
	VariantID uuid.UUID       `json:"variant_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Amount    decimal.Decimal `json:"amount"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID             uuid.UUID           `json:"id"`
	BuyerName      string              `json:"buyer_name"`
	BuyerPhone     string              `json:"buyer_phone"`
	RecipientName  string              `json:"recipient_name,omitempty"`
	RecipientPhone string              `json:"recipient_phone,omitempty"`
	Address        string              `json:"address,omitempty"`
	Status         string              `json:"status"`
	PaymentStatus  string              `json:"payment_status"`
	PaymentMethod  string              `json:"payment_method"`
	TotalPrice     decimal.Decimal     `json:"total_price"`
	CancelReason   string              `json:"cancel_reason,omitempty"`
	ReturnNote     string              `json:"return_note,omitempty"`
	DeliveredAt    *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt    *time.Time          `json:"cancelled_at,omitempty"`
	ReturnedAt     *time.Time          `json:"returned_at,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Version        int                 `json:"version"`
	Lines          []OrderLineResponse `json:"lines"`
}

// ToOrderResponse maps a domain order to its response form
func ToOrderResponse(o *order.Order) *OrderResponse {
	lines := make([]OrderLineResponse, 0, len(o.Lines))
	for i := range o.Lines {
		line := o.Lines[i]
		lines = append(lines, OrderLineResponse{
			ID:        line.ID,
			BranchID:  line.BranchID,
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Amount:    line.Amount,
		})
	}
	return &OrderResponse{
		ID:             o.ID,
		BuyerName:      o.Buyer.Name,
		BuyerPhone:     o.Buyer.Phone,
		RecipientName:  o.Recipient.Name,
		RecipientPhone: o.Recipient.Phone,
		Address:        o.Recipient.Address,
		Status:         o.Status.String(),
		PaymentStatus:  o.PaymentStatus.String(),
		PaymentMethod:  o.PaymentMethod.String(),
		TotalPrice:     o.TotalPrice,
		CancelReason:   o.CancelReason,
		ReturnNote:     o.ReturnNote,
		DeliveredAt:    o.DeliveredAt,
		CancelledAt:    o.CancelledAt,
		ReturnedAt:     o.ReturnedAt,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
		Version:        o.Version,
		Lines:          lines,
	}
}

// ToOrderLines maps request lines to domain order lines
func ToOrderLines(lines []OrderLineRequest) []order.OrderLine {
	result := make([]order.OrderLine, 0, len(lines))
	for i := range lines {
		result = append(result, order.OrderLine{
			BranchID:  lines[i].BranchID,
			ProductID: lines[i].ProductID,
			VariantID: lines[i].VariantID,
			Quantity:  lines[i].Quantity,
			UnitPrice: lines[i].UnitPrice,
		})
	}
	return result
}
