package order

import (
	"testing"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBuyer() Buyer {
	return Buyer{Name: "Alex Tran", Phone: "0901234567"}
}

func testRecipient() Recipient {
	return Recipient{Name: "Alex Tran", Phone: "0901234567", Address: "12 Hang Bai"}
}

func testLines(quantities ...int64) []OrderLine {
	lines := make([]OrderLine, 0, len(quantities))
	for _, q := range quantities {
		lines = append(lines, OrderLine{
			BranchID:  uuid.New(),
			ProductID: uuid.New(),
			VariantID: uuid.New(),
			Quantity:  q,
			UnitPrice: decimal.NewFromInt(100),
		})
	}
	return lines
}

func createTestOrder(t *testing.T) *Order {
	t.Helper()
	o, err := NewOrder(testBuyer(), testRecipient(), PaymentMethodCOD, testLines(2, 3))
	require.NoError(t, err)
	o.ClearDomainEvents()
	return o
}

func TestNewOrder(t *testing.T) {
	t.Run("creates pending order with derived total", func(t *testing.T) {
		o, err := NewOrder(testBuyer(), testRecipient(), PaymentMethodCOD, testLines(2, 3))

		require.NoError(t, err)
		assert.Equal(t, OrderStatusPending, o.Status)
		assert.Equal(t, PaymentStatusPending, o.PaymentStatus)
		assert.False(t, o.StockReleased)
		// 2*100 + 3*100
		assert.Equal(t, "500", o.TotalPrice.String())
		require.Len(t, o.Lines, 2)
		assert.Equal(t, o.ID, o.Lines[0].OrderID)

		events := o.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeOrderCreated, events[0].EventType())
	})

	t.Run("rejects empty buyer phone", func(t *testing.T) {
		buyer := testBuyer()
		buyer.Phone = ""

		_, err := NewOrder(buyer, testRecipient(), PaymentMethodCOD, testLines(1))

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "VALIDATION_ERROR", domainErr.Code)
	})

	t.Run("rejects order without lines", func(t *testing.T) {
		_, err := NewOrder(testBuyer(), testRecipient(), PaymentMethodCOD, nil)

		require.Error(t, err)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := NewOrder(testBuyer(), testRecipient(), PaymentMethodCOD, testLines(0))

		require.Error(t, err)
	})

	t.Run("rejects non-positive price", func(t *testing.T) {
		lines := testLines(1)
		lines[0].UnitPrice = decimal.Zero

		_, err := NewOrder(testBuyer(), testRecipient(), PaymentMethodCOD, lines)

		require.Error(t, err)
	})

	t.Run("rejects unknown payment method", func(t *testing.T) {
		_, err := NewOrder(testBuyer(), testRecipient(), PaymentMethod("CRYPTO"), testLines(1))

		require.Error(t, err)
	})
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	statuses := []OrderStatus{
		OrderStatusPending, OrderStatusProcessing, OrderStatusConfirmed,
		OrderStatusShipping, OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned,
	}
	allowed := map[OrderStatus][]OrderStatus{
		OrderStatusPending:    {OrderStatusProcessing, OrderStatusConfirmed, OrderStatusCancelled},
		OrderStatusProcessing: {OrderStatusConfirmed, OrderStatusCancelled},
		OrderStatusConfirmed:  {OrderStatusShipping, OrderStatusCancelled},
		OrderStatusShipping:   {OrderStatusDelivered, OrderStatusReturned},
		OrderStatusDelivered:  {},
		OrderStatusCancelled:  {},
		OrderStatusReturned:   {},
	}

	for _, from := range statuses {
		for _, to := range statuses {
			expected := false
			for _, a := range allowed[from] {
				if a == to {
					expected = true
				}
			}
			assert.Equal(t, expected, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestOrder_TransitionTo(t *testing.T) {
	t.Run("walks the happy path to delivered", func(t *testing.T) {
		o := createTestOrder(t)

		require.NoError(t, o.TransitionTo(OrderStatusProcessing))
		require.NoError(t, o.TransitionTo(OrderStatusConfirmed))
		require.NoError(t, o.TransitionTo(OrderStatusShipping))
		require.NoError(t, o.TransitionTo(OrderStatusDelivered))

		assert.Equal(t, OrderStatusDelivered, o.Status)
		assert.NotNil(t, o.DeliveredAt)
	})

	t.Run("delivered settles a pending COD payment", func(t *testing.T) {
		o := createTestOrder(t)
		require.NoError(t, o.TransitionTo(OrderStatusConfirmed))
		require.NoError(t, o.TransitionTo(OrderStatusShipping))

		require.NoError(t, o.TransitionTo(OrderStatusDelivered))

		assert.Equal(t, PaymentStatusCompleted, o.PaymentStatus)
	})

	t.Run("illegal transition names both states", func(t *testing.T) {
		o := createTestOrder(t)

		err := o.TransitionTo(OrderStatusDelivered)

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ILLEGAL_TRANSITION", domainErr.Code)
		assert.Equal(t, "PENDING", domainErr.Details["current"])
		assert.Equal(t, "DELIVERED", domainErr.Details["requested"])
		assert.Equal(t, OrderStatusPending, o.Status)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		o := createTestOrder(t)

		err := o.TransitionTo(OrderStatus("ARCHIVED"))

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "VALIDATION_ERROR", domainErr.Code)
	})

	t.Run("emits status changed event", func(t *testing.T) {
		o := createTestOrder(t)

		require.NoError(t, o.TransitionTo(OrderStatusProcessing))

		events := o.GetDomainEvents()
		require.Len(t, events, 1)
		changed, ok := events[0].(*OrderStatusChangedEvent)
		require.True(t, ok)
		assert.Equal(t, "PENDING", changed.OldStatus)
		assert.Equal(t, "PROCESSING", changed.NewStatus)
	})
}

func TestOrder_Cancel(t *testing.T) {
	t.Run("cancels pending payment alongside", func(t *testing.T) {
		o := createTestOrder(t)

		require.NoError(t, o.Cancel("customer changed mind"))

		assert.Equal(t, OrderStatusCancelled, o.Status)
		assert.Equal(t, PaymentStatusCancelled, o.PaymentStatus)
		assert.Equal(t, "customer changed mind", o.CancelReason)
		assert.NotNil(t, o.CancelledAt)
	})

	t.Run("cancelling a cancelled order fails", func(t *testing.T) {
		o := createTestOrder(t)
		require.NoError(t, o.Cancel("first"))

		err := o.Cancel("second")

		require.Error(t, err)
		assert.Equal(t, "first", o.CancelReason)
	})
}

func TestOrder_Return(t *testing.T) {
	o := createTestOrder(t)
	require.NoError(t, o.TransitionTo(OrderStatusConfirmed))
	require.NoError(t, o.TransitionTo(OrderStatusShipping))
	require.NoError(t, o.TransitionTo(OrderStatusDelivered))

	// DELIVERED is terminal; returns only run from SHIPPING
	require.Error(t, o.Return("too late"))

	o2 := createTestOrder(t)
	require.NoError(t, o2.TransitionTo(OrderStatusConfirmed))
	require.NoError(t, o2.TransitionTo(OrderStatusShipping))
	// COD not settled yet, so nothing to refund
	require.NoError(t, o2.Return("wrong size"))
	assert.Equal(t, OrderStatusReturned, o2.Status)
	assert.Equal(t, "wrong size", o2.ReturnNote)
	assert.Equal(t, PaymentStatusPending, o2.PaymentStatus)
}

func TestOrder_ReleaseStock(t *testing.T) {
	o := createTestOrder(t)

	assert.True(t, o.ReleaseStock(), "first release must fire")
	assert.False(t, o.ReleaseStock(), "replay must be a no-op")
	assert.True(t, o.StockReleased)
}

func TestOrder_LinesByBranch(t *testing.T) {
	branchA := uuid.New()
	branchB := uuid.New()
	lines := []OrderLine{
		{BranchID: branchA, ProductID: uuid.New(), VariantID: uuid.New(), Quantity: 1, UnitPrice: decimal.NewFromInt(10)},
		{BranchID: branchB, ProductID: uuid.New(), VariantID: uuid.New(), Quantity: 2, UnitPrice: decimal.NewFromInt(10)},
		{BranchID: branchA, ProductID: uuid.New(), VariantID: uuid.New(), Quantity: 3, UnitPrice: decimal.NewFromInt(10)},
	}
	o, err := NewOrder(testBuyer(), testRecipient(), PaymentMethodCard, lines)
	require.NoError(t, err)

	grouped := o.LinesByBranch()

	require.Len(t, grouped, 2)
	assert.Len(t, grouped[branchA], 2)
	assert.Len(t, grouped[branchB], 1)
	assert.Equal(t, []uuid.UUID{branchA, branchB}, o.BranchIDs())
}
