package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the fulfillment status of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusShipping   OrderStatus = "SHIPPING"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusReturned   OrderStatus = "RETURNED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusConfirmed,
		OrderStatusShipping, OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusProcessing || target == OrderStatusConfirmed || target == OrderStatusCancelled
	case OrderStatusProcessing:
		return target == OrderStatusConfirmed || target == OrderStatusCancelled
	case OrderStatusConfirmed:
		return target == OrderStatusShipping || target == OrderStatusCancelled
	case OrderStatusShipping:
		return target == OrderStatusDelivered || target == OrderStatusReturned
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned:
		return false // Terminal states
	}
	return false
}

// IsTerminal returns true if no further transitions are possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled || s == OrderStatusReturned
}

// PaymentStatus represents the payment status of an order
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed,
		PaymentStatusCancelled, PaymentStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// PaymentMethod represents how the buyer pays
type PaymentMethod string

const (
	PaymentMethodCOD          PaymentMethod = "COD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCard         PaymentMethod = "CARD"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodBankTransfer, PaymentMethodCard:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// Buyer holds the purchaser's contact details
type Buyer struct {
	Name  string `gorm:"column:buyer_name;type:varchar(100);not null"`
	Phone string `gorm:"column:buyer_phone;type:varchar(20);not null;index:idx_order_buyer_phone"`
}

// Recipient holds the delivery contact details
type Recipient struct {
	Name    string `gorm:"column:recipient_name;type:varchar(100)"`
	Phone   string `gorm:"column:recipient_phone;type:varchar(20)"`
	Address string `gorm:"column:recipient_address;type:varchar(255)"`
}

// OrderLine represents a line item in an order
type OrderLine struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_order_line_order"`
	BranchID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_order_line_branch"` // Branch fulfilling this line
	ProductID uuid.UUID       `gorm:"type:uuid;not null"`
	VariantID uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity  int64           `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Quantity * UnitPrice
}

// TableName returns the table name for GORM
func (OrderLine) TableName() string {
	return "order_lines"
}

// NewOrderLine creates a validated order line
func NewOrderLine(branchID, productID, variantID uuid.UUID, quantity int64, unitPrice decimal.Decimal) (*OrderLine, error) {
	if branchID == uuid.Nil {
		return nil, shared.NewValidationError("Line branch ID cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, shared.NewValidationError("Line product ID cannot be empty")
	}
	if variantID == uuid.Nil {
		return nil, shared.NewValidationError("Line variant ID cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewValidationError("Line quantity must be positive")
	}
	if unitPrice.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("Line unit price must be positive")
	}

	return &OrderLine{
		ID:        uuid.New(),
		BranchID:  branchID,
		ProductID: productID,
		VariantID: variantID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Amount:    decimal.NewFromInt(quantity).Mul(unitPrice),
	}, nil
}

// Order represents a customer order aggregate root.
// Stock for every line is exported when the order is created; cancellation
// and approved returns compensate with imports, guarded to run exactly once.
type Order struct {
	shared.BaseAggregateRoot
	Buyer         Buyer         `gorm:"embedded"`
	Recipient     Recipient     `gorm:"embedded"`
	Status        OrderStatus   `gorm:"type:varchar(20);not null;index:idx_order_status"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null"`
	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null"`
	TotalPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Sum of line amounts
	StockReleased bool            `gorm:"not null;default:false"`      // One-shot guard for cancel/return compensation
	CancelReason  string          `gorm:"type:varchar(255)"`
	ReturnNote    string          `gorm:"type:varchar(255)"`
	DeliveredAt   *time.Time
	CancelledAt   *time.Time
	ReturnedAt    *time.Time

	Lines []OrderLine `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// NewOrder creates a PENDING order from a validated draft
func NewOrder(buyer Buyer, recipient Recipient, method PaymentMethod, lines []OrderLine) (*Order, error) {
	if buyer.Phone == "" {
		return nil, shared.NewValidationError("Buyer phone cannot be empty")
	}
	if buyer.Name == "" {
		return nil, shared.NewValidationError("Buyer name cannot be empty")
	}
	if !method.IsValid() {
		return nil, shared.NewValidationError("Invalid payment method")
	}
	if len(lines) == 0 {
		return nil, shared.NewValidationError("Order requires at least one line")
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Buyer:             buyer,
		Recipient:         recipient,
		Status:            OrderStatusPending,
		PaymentStatus:     PaymentStatusPending,
		PaymentMethod:     method,
		TotalPrice:        decimal.Zero,
		Lines:             make([]OrderLine, 0, len(lines)),
	}

	for i := range lines {
		line, err := NewOrderLine(lines[i].BranchID, lines[i].ProductID, lines[i].VariantID, lines[i].Quantity, lines[i].UnitPrice)
		if err != nil {
			return nil, err
		}
		line.OrderID = o.ID
		o.Lines = append(o.Lines, *line)
	}

	o.recalculateTotal()
	o.AddDomainEvent(NewOrderCreatedEvent(o))

	return o, nil
}

func (o *Order) recalculateTotal() {
	total := decimal.Zero
	for i := range o.Lines {
		total = total.Add(o.Lines[i].Amount)
	}
	o.TotalPrice = total
}

// TransitionTo applies a guarded status transition. The ledger side effects of
// CANCELLED and RETURNED (stock release) are driven by the application service
// through ReleaseStock.
func (o *Order) TransitionTo(target OrderStatus) error {
	if !target.IsValid() {
		return shared.NewValidationError("Invalid order status")
	}
	if !o.Status.CanTransitionTo(target) {
		return shared.NewIllegalTransitionError(o.Status.String(), target.String())
	}

	now := time.Now()
	old := o.Status
	o.Status = target

	switch target {
	case OrderStatusDelivered:
		o.DeliveredAt = &now
		// COD settles on delivery
		if o.PaymentMethod == PaymentMethodCOD && o.PaymentStatus == PaymentStatusPending {
			o.PaymentStatus = PaymentStatusCompleted
		}
	case OrderStatusCancelled:
		o.CancelledAt = &now
		if o.PaymentStatus == PaymentStatusPending {
			o.PaymentStatus = PaymentStatusCancelled
		}
	case OrderStatusReturned:
		o.ReturnedAt = &now
		if o.PaymentStatus == PaymentStatusCompleted {
			o.PaymentStatus = PaymentStatusRefunded
		}
	}

	o.UpdatedAt = now
	o.IncrementVersion()

	o.AddDomainEvent(NewOrderStatusChangedEvent(o, old))
	if target == OrderStatusCancelled {
		o.AddDomainEvent(NewOrderCancelledEvent(o))
	}
	if target == OrderStatusReturned {
		o.AddDomainEvent(NewOrderReturnedEvent(o))
	}

	return nil
}

// Cancel transitions the order to CANCELLED with a reason
func (o *Order) Cancel(reason string) error {
	if err := o.TransitionTo(OrderStatusCancelled); err != nil {
		return err
	}
	o.CancelReason = reason
	return nil
}

// Return transitions the order to RETURNED with an operator note
func (o *Order) Return(note string) error {
	if err := o.TransitionTo(OrderStatusReturned); err != nil {
		return err
	}
	o.ReturnNote = note
	return nil
}

// ReleaseStock flips the one-shot compensation guard.
// Returns true exactly once; replays return false and the caller must skip
// the compensating imports.
func (o *Order) ReleaseStock() bool {
	if o.StockReleased {
		return false
	}
	o.StockReleased = true
	o.UpdatedAt = time.Now()
	return true
}

// LinesByBranch groups the order lines by fulfilling branch
func (o *Order) LinesByBranch() map[uuid.UUID][]OrderLine {
	grouped := make(map[uuid.UUID][]OrderLine)
	for i := range o.Lines {
		grouped[o.Lines[i].BranchID] = append(grouped[o.Lines[i].BranchID], o.Lines[i])
	}
	return grouped
}

// BranchIDs returns the distinct fulfilling branches in line order
func (o *Order) BranchIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	ids := make([]uuid.UUID, 0)
	for i := range o.Lines {
		if !seen[o.Lines[i].BranchID] {
			seen[o.Lines[i].BranchID] = true
			ids = append(ids, o.Lines[i].BranchID)
		}
	}
	return ids
}
