package transfer

import (
	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeTransferRequest = "TransferRequest"

// Event type constants
const (
	EventTypeTransferCreated       = "TransferCreated"
	EventTypeTransferStatusChanged = "TransferStatusChanged"
	EventTypeTransferRejected      = "TransferRejected"
	EventTypeTransferReceived      = "TransferReceived"
)

// TransferCreatedEvent is raised when a transfer request is created
type TransferCreatedEvent struct {
	shared.BaseDomainEvent
	TransferID          uuid.UUID `json:"transfer_id"`
	SourceBranchID      uuid.UUID `json:"source_branch_id"`
	DestinationBranchID uuid.UUID `json:"destination_branch_id"`
	LineCount           int       `json:"line_count"`
	TotalQuantity       int64     `json:"total_quantity"`
}

// NewTransferCreatedEvent creates a new TransferCreatedEvent
func NewTransferCreatedEvent(t *TransferRequest) *TransferCreatedEvent {
	return &TransferCreatedEvent{
		BaseDomainEvent:     shared.NewBaseDomainEvent(EventTypeTransferCreated, AggregateTypeTransferRequest, t.ID),
		TransferID:          t.ID,
		SourceBranchID:      t.SourceBranchID,
		DestinationBranchID: t.DestinationBranchID,
		LineCount:           len(t.Lines),
		TotalQuantity:       t.TotalQuantity(),
	}
}

// EventType returns the event type name
func (e *TransferCreatedEvent) EventType() string {
	return EventTypeTransferCreated
}

// TransferStatusChangedEvent is raised on every transfer status transition
type TransferStatusChangedEvent struct {
	shared.BaseDomainEvent
	TransferID          uuid.UUID `json:"transfer_id"`
	SourceBranchID      uuid.UUID `json:"source_branch_id"`
	DestinationBranchID uuid.UUID `json:"destination_branch_id"`
	OldStatus           string    `json:"old_status"`
	NewStatus           string    `json:"new_status"`
}

// NewTransferStatusChangedEvent creates a new TransferStatusChangedEvent
func NewTransferStatusChangedEvent(t *TransferRequest, old TransferStatus) *TransferStatusChangedEvent {
	return &TransferStatusChangedEvent{
		BaseDomainEvent:     shared.NewBaseDomainEvent(EventTypeTransferStatusChanged, AggregateTypeTransferRequest, t.ID),
		TransferID:          t.ID,
		SourceBranchID:      t.SourceBranchID,
		DestinationBranchID: t.DestinationBranchID,
		OldStatus:           old.String(),
		NewStatus:           t.Status.String(),
	}
}

// EventType returns the event type name
func (e *TransferStatusChangedEvent) EventType() string {
	return EventTypeTransferStatusChanged
}

// TransferRejectedEvent is raised when a transfer request is rejected
type TransferRejectedEvent struct {
	shared.BaseDomainEvent
	TransferID     uuid.UUID `json:"transfer_id"`
	SourceBranchID uuid.UUID `json:"source_branch_id"`
	RejectNote     string    `json:"reject_note"`
}

// NewTransferRejectedEvent creates a new TransferRejectedEvent
func NewTransferRejectedEvent(t *TransferRequest) *TransferRejectedEvent {
	return &TransferRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransferRejected, AggregateTypeTransferRequest, t.ID),
		TransferID:      t.ID,
		SourceBranchID:  t.SourceBranchID,
		RejectNote:      t.RejectNote,
	}
}

// EventType returns the event type name
func (e *TransferRejectedEvent) EventType() string {
	return EventTypeTransferRejected
}

// TransferReceivedEvent is raised when the destination branch receives the goods
type TransferReceivedEvent struct {
	shared.BaseDomainEvent
	TransferID          uuid.UUID `json:"transfer_id"`
	DestinationBranchID uuid.UUID `json:"destination_branch_id"`
	TotalQuantity       int64     `json:"total_quantity"`
}

// NewTransferReceivedEvent creates a new TransferReceivedEvent
func NewTransferReceivedEvent(t *TransferRequest) *TransferReceivedEvent {
	return &TransferReceivedEvent{
		BaseDomainEvent:     shared.NewBaseDomainEvent(EventTypeTransferReceived, AggregateTypeTransferRequest, t.ID),
		TransferID:          t.ID,
		DestinationBranchID: t.DestinationBranchID,
		TotalQuantity:       t.TotalQuantity(),
	}
}

// EventType returns the event type name
func (e *TransferReceivedEvent) EventType() string {
	return EventTypeTransferReceived
}
