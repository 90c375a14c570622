package transfer

import (
	"time"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// TransferStatus represents the status of a transfer request
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "PENDING"
	TransferStatusApproved  TransferStatus = "APPROVED"
	TransferStatusRejected  TransferStatus = "REJECTED"
	TransferStatusInTransit TransferStatus = "IN_TRANSIT"
	TransferStatusReceived  TransferStatus = "RECEIVED"
)

// IsValid checks if the status is a valid TransferStatus
func (s TransferStatus) IsValid() bool {
	switch s {
	case TransferStatusPending, TransferStatusApproved, TransferStatusRejected,
		TransferStatusInTransit, TransferStatusReceived:
		return true
	}
	return false
}

// String returns the string representation of TransferStatus
func (s TransferStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s TransferStatus) CanTransitionTo(target TransferStatus) bool {
	switch s {
	case TransferStatusPending:
		return target == TransferStatusApproved || target == TransferStatusRejected
	case TransferStatusApproved:
		return target == TransferStatusInTransit
	case TransferStatusInTransit:
		return target == TransferStatusReceived
	case TransferStatusRejected, TransferStatusReceived:
		return false // Terminal states
	}
	return false
}

// IsTerminal returns true if no further transitions are possible
func (s TransferStatus) IsTerminal() bool {
	return s == TransferStatusRejected || s == TransferStatusReceived
}

// TransferLine is one (product, variant, quantity) position of a transfer.
// The unit cost is captured from the source entry at creation time and is
// used to price the destination import on receipt.
type TransferLine struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TransferID uuid.UUID       `gorm:"type:uuid;not null;index:idx_transfer_line_transfer"`
	ProductID  uuid.UUID       `gorm:"type:uuid;not null"`
	VariantID  uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity   int64           `gorm:"not null"`
	UnitCost   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (TransferLine) TableName() string {
	return "transfer_lines"
}

// TransferRequest represents a stock transfer between two branches.
// The source branch is decremented when the request is created (reservation);
// the destination branch is incremented only when the goods are received.
type TransferRequest struct {
	shared.BaseAggregateRoot
	SourceBranchID      uuid.UUID      `gorm:"type:uuid;not null;index:idx_transfer_source"`
	DestinationBranchID uuid.UUID      `gorm:"type:uuid;not null;index:idx_transfer_destination"`
	Status              TransferStatus `gorm:"type:varchar(20);not null;index:idx_transfer_status"`
	MovementID          uuid.UUID      `gorm:"type:uuid;not null"` // Reservation movement created alongside the request
	Note                string         `gorm:"type:varchar(255)"`
	RejectNote          string         `gorm:"type:varchar(255)"`
	StockReleased       bool           `gorm:"not null;default:false"` // One-shot guard for the rejection compensation
	CreatedBy           uuid.UUID      `gorm:"type:uuid;not null"`
	ApprovedBy          *uuid.UUID     `gorm:"type:uuid"`
	ApprovedAt          *time.Time
	RejectedAt          *time.Time
	ShippedAt           *time.Time
	ReceivedAt          *time.Time

	Lines []TransferLine `gorm:"foreignKey:TransferID;references:ID"`
}

// TableName returns the table name for GORM
func (TransferRequest) TableName() string {
	return "transfer_requests"
}

// NewTransferRequest creates a pending transfer request
func NewTransferRequest(sourceBranchID, destinationBranchID, movementID, createdBy uuid.UUID, lines []TransferLine, note string) (*TransferRequest, error) {
	if sourceBranchID == uuid.Nil {
		return nil, shared.NewValidationError("Source branch ID cannot be empty")
	}
	if destinationBranchID == uuid.Nil {
		return nil, shared.NewValidationError("Destination branch ID cannot be empty")
	}
	if sourceBranchID == destinationBranchID {
		return nil, shared.NewValidationError("Source and destination branches must differ")
	}
	if movementID == uuid.Nil {
		return nil, shared.NewValidationError("Movement ID cannot be empty")
	}
	if createdBy == uuid.Nil {
		return nil, shared.NewValidationError("Creator ID cannot be empty")
	}
	if len(lines) == 0 {
		return nil, shared.NewValidationError("Transfer requires at least one line")
	}
	for i := range lines {
		if lines[i].Quantity <= 0 {
			return nil, shared.NewValidationError("Transfer line quantity must be positive")
		}
	}

	tr := &TransferRequest{
		BaseAggregateRoot:   shared.NewBaseAggregateRoot(),
		SourceBranchID:      sourceBranchID,
		DestinationBranchID: destinationBranchID,
		Status:              TransferStatusPending,
		MovementID:          movementID,
		Note:                note,
		CreatedBy:           createdBy,
		Lines:               make([]TransferLine, 0, len(lines)),
	}

	for i := range lines {
		line := lines[i]
		line.ID = uuid.New()
		line.TransferID = tr.ID
		tr.Lines = append(tr.Lines, line)
	}

	tr.AddDomainEvent(NewTransferCreatedEvent(tr))

	return tr, nil
}

// Approve transitions the request from PENDING to APPROVED
func (t *TransferRequest) Approve(approvedBy uuid.UUID) error {
	if !t.Status.CanTransitionTo(TransferStatusApproved) {
		return shared.NewIllegalTransitionError(t.Status.String(), TransferStatusApproved.String())
	}
	if approvedBy == uuid.Nil {
		return shared.NewValidationError("Approver ID cannot be empty")
	}

	now := time.Now()
	old := t.Status
	t.Status = TransferStatusApproved
	t.ApprovedBy = &approvedBy
	t.ApprovedAt = &now
	t.UpdatedAt = now
	t.IncrementVersion()

	t.AddDomainEvent(NewTransferStatusChangedEvent(t, old))

	return nil
}

// Reject transitions the request from PENDING to REJECTED.
// A non-empty note is required; the caller runs the stock compensation
// guarded by ReleaseStock.
func (t *TransferRequest) Reject(rejectedBy uuid.UUID, note string) error {
	if !t.Status.CanTransitionTo(TransferStatusRejected) {
		return shared.NewIllegalTransitionError(t.Status.String(), TransferStatusRejected.String())
	}
	if note == "" {
		return shared.NewValidationError("Rejection note is required")
	}
	if rejectedBy == uuid.Nil {
		return shared.NewValidationError("Operator ID cannot be empty")
	}

	now := time.Now()
	old := t.Status
	t.Status = TransferStatusRejected
	t.ApprovedBy = &rejectedBy
	t.RejectNote = note
	t.RejectedAt = &now
	t.UpdatedAt = now
	t.IncrementVersion()

	t.AddDomainEvent(NewTransferStatusChangedEvent(t, old))
	t.AddDomainEvent(NewTransferRejectedEvent(t))

	return nil
}

// MarkInTransit transitions the request from APPROVED to IN_TRANSIT
func (t *TransferRequest) MarkInTransit() error {
	if !t.Status.CanTransitionTo(TransferStatusInTransit) {
		return shared.NewIllegalTransitionError(t.Status.String(), TransferStatusInTransit.String())
	}

	now := time.Now()
	old := t.Status
	t.Status = TransferStatusInTransit
	t.ShippedAt = &now
	t.UpdatedAt = now
	t.IncrementVersion()

	t.AddDomainEvent(NewTransferStatusChangedEvent(t, old))

	return nil
}

// Receive transitions the request from IN_TRANSIT to RECEIVED.
// The caller imports the lines into the destination branch in the same
// transaction.
func (t *TransferRequest) Receive() error {
	if !t.Status.CanTransitionTo(TransferStatusReceived) {
		return shared.NewIllegalTransitionError(t.Status.String(), TransferStatusReceived.String())
	}

	now := time.Now()
	old := t.Status
	t.Status = TransferStatusReceived
	t.ReceivedAt = &now
	t.UpdatedAt = now
	t.IncrementVersion()

	t.AddDomainEvent(NewTransferStatusChangedEvent(t, old))
	t.AddDomainEvent(NewTransferReceivedEvent(t))

	return nil
}

// ReleaseStock flips the one-shot compensation guard.
// Returns true exactly once; replays return false and the caller must skip
// the compensating import.
func (t *TransferRequest) ReleaseStock() bool {
	if t.StockReleased {
		return false
	}
	t.StockReleased = true
	t.UpdatedAt = time.Now()
	return true
}

// TotalQuantity returns the sum of line quantities
func (t *TransferRequest) TotalQuantity() int64 {
	var total int64
	for i := range t.Lines {
		total += t.Lines[i].Quantity
	}
	return total
}
