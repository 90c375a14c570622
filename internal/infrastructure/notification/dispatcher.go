package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/retail/backend/internal/domain/order"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/stock"
	"github.com/retail/backend/internal/domain/transfer"
	"go.uber.org/zap"
)

// dedupeTTL bounds how long a delivered event ID is remembered
const dedupeTTL = 24 * time.Hour

// Dispatcher turns domain events into notifications.
// It subscribes to transfer and order status events plus low-stock
// warnings, deduplicates replays through the idempotency store, and
// hands the notification to the notifier on a separate goroutine so
// delivery never blocks event dispatch.
type Dispatcher struct {
	notifier Notifier
	store    shared.IdempotencyStore
	logger   *zap.Logger
}

// NewDispatcher creates a new notification dispatcher
func NewDispatcher(notifier Notifier, store shared.IdempotencyStore, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		store:    store,
		logger:   logger.Named("notification-dispatcher"),
	}
}

// EventTypes returns the event types the dispatcher listens for
func (d *Dispatcher) EventTypes() []string {
	return []string{
		transfer.EventTypeTransferStatusChanged,
		transfer.EventTypeTransferRejected,
		transfer.EventTypeTransferReceived,
		order.EventTypeOrderStatusChanged,
		order.EventTypeOrderCancelled,
		order.EventTypeOrderReturned,
		stock.EventTypeStockBelowMinimum,
	}
}

// Handle translates one event into at most one notification
func (d *Dispatcher) Handle(ctx context.Context, event shared.DomainEvent) error {
	fresh, err := d.store.MarkProcessed(ctx, event.EventID().String(), dedupeTTL)
	if err != nil {
		return fmt.Errorf("failed to deduplicate event: %w", err)
	}
	if !fresh {
		d.logger.Debug("event already notified, skipping",
			zap.String("event_id", event.EventID().String()),
			zap.String("event_type", event.EventType()),
		)
		return nil
	}

	n, ok := d.build(event)
	if !ok {
		return nil
	}

	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.notifier.Notify(sendCtx, n); err != nil {
			d.logger.Error("notification delivery failed",
				zap.String("event_type", event.EventType()),
				zap.Error(err),
			)
		}
	}()

	return nil
}

func (d *Dispatcher) build(event shared.DomainEvent) (Notification, bool) {
	switch e := event.(type) {
	case *transfer.TransferStatusChangedEvent:
		return Notification{
			Subject: "Transfer status changed",
			Body:    fmt.Sprintf("Transfer %s moved from %s to %s", e.TransferID, e.OldStatus, e.NewStatus),
			Metadata: map[string]string{
				"transfer_id":           e.TransferID.String(),
				"source_branch_id":      e.SourceBranchID.String(),
				"destination_branch_id": e.DestinationBranchID.String(),
				"new_status":            e.NewStatus,
			},
		}, true
	case *transfer.TransferRejectedEvent:
		return Notification{
			Subject: "Transfer rejected",
			Body:    fmt.Sprintf("Transfer %s was rejected: %s", e.TransferID, e.RejectNote),
			Metadata: map[string]string{
				"transfer_id":      e.TransferID.String(),
				"source_branch_id": e.SourceBranchID.String(),
			},
		}, true
	case *transfer.TransferReceivedEvent:
		return Notification{
			Subject: "Transfer received",
			Body:    fmt.Sprintf("Transfer %s received %d units at the destination branch", e.TransferID, e.TotalQuantity),
			Metadata: map[string]string{
				"transfer_id":           e.TransferID.String(),
				"destination_branch_id": e.DestinationBranchID.String(),
			},
		}, true
	case *order.OrderStatusChangedEvent:
		return Notification{
			Subject: "Order status changed",
			Body:    fmt.Sprintf("Order %s moved from %s to %s", e.OrderID, e.OldStatus, e.NewStatus),
			Metadata: map[string]string{
				"order_id":       e.OrderID.String(),
				"new_status":     e.NewStatus,
				"payment_status": e.PaymentStatus,
			},
		}, true
	case *order.OrderCancelledEvent:
		return Notification{
			Subject: "Order cancelled",
			Body:    fmt.Sprintf("Order %s was cancelled: %s", e.OrderID, e.CancelReason),
			Metadata: map[string]string{
				"order_id": e.OrderID.String(),
			},
		}, true
	case *order.OrderReturnedEvent:
		return Notification{
			Subject: "Order returned",
			Body:    fmt.Sprintf("Order %s was returned", e.OrderID),
			Metadata: map[string]string{
				"order_id": e.OrderID.String(),
			},
		}, true
	case *stock.StockBelowMinimumEvent:
		return Notification{
			Subject: "Stock below minimum",
			Body: fmt.Sprintf("Product %s variant %s at branch %s is down to %d (minimum %d)",
				e.ProductID, e.VariantID, e.BranchID, e.QuantityOnHand, e.MinQuantity),
			Metadata: map[string]string{
				"branch_id":  e.BranchID.String(),
				"product_id": e.ProductID.String(),
				"variant_id": e.VariantID.String(),
			},
		}, true
	default:
		return Notification{}, false
	}
}

// Ensure Dispatcher implements EventHandler
var _ shared.EventHandler = (*Dispatcher)(nil)
