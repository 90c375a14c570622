package order

import (
	"context"

	"github.com/google/uuid"
	appstock "github.com/retail/backend/internal/application/stock"
	"github.com/retail/backend/internal/domain/order"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
)

// OrderService orchestrates the order lifecycle. Placing an order exports
// stock from every fulfilling branch in one transaction; cancellation and
// approved returns compensate with imports exactly once.
type OrderService struct {
	scope          appstock.TransactionScope
	processor      *stock.MovementProcessor
	eventPublisher shared.EventPublisher
}

// NewOrderService creates a new OrderService
func NewOrderService(scope appstock.TransactionScope, processor *stock.MovementProcessor) *OrderService {
	return &OrderService{
		scope:     scope,
		processor: processor,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *OrderService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}

type repoLedger struct {
	repo stock.StockEntryRepository
}

func (l *repoLedger) GetOrCreate(ctx context.Context, branchID, productID, variantID uuid.UUID) (*stock.StockEntry, error) {
	return l.repo.GetOrCreate(ctx, branchID, productID, variantID)
}

// Create places an order and exports stock from every fulfilling branch.
// Availability is checked across ALL branches before any export is applied,
// so a shortage anywhere fails the whole order and leaves every ledger
// untouched.
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error) {
	o, err := order.NewOrder(
		order.Buyer{Name: req.Buyer.Name, Phone: req.Buyer.Phone},
		order.Recipient{Name: req.Recipient.Name, Phone: req.Recipient.Phone, Address: req.Recipient.Address},
		order.PaymentMethod(req.PaymentMethod),
		ToOrderLines(req.Lines),
	)
	if err != nil {
		return nil, err
	}

	var response *OrderResponse
	var events []shared.DomainEvent

	err = s.scope.Execute(ctx, func(repos appstock.TransactionalRepositories) error {
		ledger := &repoLedger{repo: repos.StockEntries()}

		if err := s.checkAllBranches(ctx, ledger, o); err != nil {
			return err
		}

		grouped := o.LinesByBranch()
		for _, branchID := range o.BranchIDs() {
			movementLines := make([]stock.MovementLine, 0, len(grouped[branchID]))
			for _, line := range grouped[branchID] {
				movementLines = append(movementLines, stock.MovementLine{
					ProductID: line.ProductID,
					VariantID: line.VariantID,
					Quantity:  line.Quantity,
				})
			}

			result, err := s.processor.ApplyExport(ctx, ledger, branchID, req.CreatedBy, movementLines)
			if err != nil {
				return err
			}
			result.Movement.WithSource(stock.SourceTypeOrder, o.ID.String()).WithNote("order placed")

			for _, entry := range result.Entries {
				if err := repos.StockEntries().SaveWithLock(ctx, entry); err != nil {
					return err
				}
			}
			if err := repos.Movements().Create(ctx, result.Movement); err != nil {
				return err
			}
			events = append(events, result.Events...)
		}

		if err := repos.Orders().Save(ctx, o); err != nil {
			return err
		}

		events = append(events, o.GetDomainEvents()...)
		o.ClearDomainEvents()
		response = ToOrderResponse(o)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, events)
	return response, nil
}

// checkAllBranches verifies availability for every line across every branch
// before any export runs. Duplicate lines for the same branch-variant key sum
// before the check, mirroring the merge the exports will do.
func (s *OrderService) checkAllBranches(ctx context.Context, ledger stock.Ledger, o *order.Order) error {
	type ledgerKey struct {
		branchID  uuid.UUID
		productID uuid.UUID
		variantID uuid.UUID
	}
	requested := make(map[ledgerKey]int64)
	keys := make([]ledgerKey, 0, len(o.Lines))
	for i := range o.Lines {
		key := ledgerKey{o.Lines[i].BranchID, o.Lines[i].ProductID, o.Lines[i].VariantID}
		if _, seen := requested[key]; !seen {
			keys = append(keys, key)
		}
		requested[key] += o.Lines[i].Quantity
	}

	shortages := make([]map[string]any, 0)
	for _, key := range keys {
		entry, err := ledger.GetOrCreate(ctx, key.branchID, key.productID, key.variantID)
		if err != nil {
			return err
		}
		if !entry.CanFulfill(requested[key]) {
			shortages = append(shortages, map[string]any{
				"branch_id":  key.branchID.String(),
				"product_id": key.productID.String(),
				"variant_id": key.variantID.String(),
				"requested":  requested[key],
				"available":  entry.QuantityOnHand,
			})
		}
	}
	if len(shortages) > 0 {
		return shared.ErrInsufficientStock.WithDetails(map[string]any{
			"shortages": shortages,
		})
	}
	return nil
}

// UpdateStatus applies one lifecycle transition to an order. Cancellation and
// an approved return compensate the exported stock exactly once; a rejected
// return leaves the order and the ledger unchanged.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, req UpdateOrderStatusRequest) (*OrderResponse, error) {
	var response *OrderResponse
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos appstock.TransactionalRepositories) error {
		o, err := repos.Orders().FindByID(ctx, id)
		if err != nil {
			return err
		}

		switch order.OrderStatus(req.Status) {
		case order.OrderStatusCancelled:
			err = s.cancel(ctx, repos, o, req, &events)
		case order.OrderStatusReturned:
			var handled bool
			handled, err = s.handleReturn(ctx, repos, o, req, &events)
			if err == nil && !handled {
				// rejected return: nothing changes
				response = ToOrderResponse(o)
				return nil
			}
		default:
			err = o.TransitionTo(order.OrderStatus(req.Status))
		}
		if err != nil {
			return err
		}

		if err := repos.Orders().SaveWithLock(ctx, o); err != nil {
			return err
		}

		events = append(events, o.GetDomainEvents()...)
		o.ClearDomainEvents()
		response = ToOrderResponse(o)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, events)
	return response, nil
}

func (s *OrderService) cancel(ctx context.Context, repos appstock.TransactionalRepositories, o *order.Order, req UpdateOrderStatusRequest, events *[]shared.DomainEvent) error {
	if err := o.Cancel(req.Reason); err != nil {
		return err
	}
	return s.compensate(ctx, repos, o, req.OperatorID, "order cancelled", events)
}

// handleReturn processes a RETURNED transition. The operator's verdict is
// required; a rejected verdict keeps the order in its current state and is
// reported via the handled flag.
func (s *OrderService) handleReturn(ctx context.Context, repos appstock.TransactionalRepositories, o *order.Order, req UpdateOrderStatusRequest, events *[]shared.DomainEvent) (bool, error) {
	switch req.ReturnApproval {
	case ReturnApprovalRejected:
		return false, nil
	case ReturnApprovalApproved:
	default:
		return false, shared.NewValidationError("Return requires an operator approval verdict")
	}

	if err := o.Return(req.Note); err != nil {
		return false, err
	}
	if err := s.compensate(ctx, repos, o, req.OperatorID, "order returned", events); err != nil {
		return false, err
	}
	return true, nil
}

// compensate imports the order's lines back into their branches at the
// entries' current average cost, guarded to run exactly once per order.
func (s *OrderService) compensate(ctx context.Context, repos appstock.TransactionalRepositories, o *order.Order, operatorID uuid.UUID, note string, events *[]shared.DomainEvent) error {
	if !o.ReleaseStock() {
		return nil
	}

	ledger := &repoLedger{repo: repos.StockEntries()}
	grouped := o.LinesByBranch()

	for _, branchID := range o.BranchIDs() {
		costOf := func(productID, variantID uuid.UUID) (decimal.Decimal, bool) {
			entry, err := repos.StockEntries().FindByKey(ctx, branchID, productID, variantID)
			if err != nil {
				return decimal.Zero, false
			}
			return entry.AverageCost, true
		}

		movementLines := make([]stock.MovementLine, 0, len(grouped[branchID]))
		for _, line := range grouped[branchID] {
			movementLines = append(movementLines, stock.MovementLine{
				ProductID: line.ProductID,
				VariantID: line.VariantID,
				Quantity:  line.Quantity,
			})
		}
		lines := stock.CompensationLines(movementLines, costOf)

		result, err := s.processor.ApplyImport(ctx, ledger, branchID, operatorID, lines)
		if err != nil {
			return err
		}
		result.Movement.WithSource(stock.SourceTypeOrder, o.ID.String()).WithNote(note)

		for _, entry := range result.Entries {
			if err := repos.StockEntries().SaveWithLock(ctx, entry); err != nil {
				return err
			}
		}
		if err := repos.Movements().Create(ctx, result.Movement); err != nil {
			return err
		}
		*events = append(*events, result.Events...)
	}
	return nil
}

// Get returns one order with its lines
func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	var response *OrderResponse

	err := s.scope.Execute(ctx, func(repos appstock.TransactionalRepositories) error {
		o, err := repos.Orders().FindByID(ctx, id)
		if err != nil {
			return err
		}
		response = ToOrderResponse(o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// List lists orders with filtering and pagination
func (s *OrderService) List(ctx context.Context, filter OrderListFilter) ([]OrderResponse, int64, error) {
	sharedFilter := buildOrderFilter(filter)

	var orders []order.Order
	var total int64

	err := s.scope.Execute(ctx, func(repos appstock.TransactionalRepositories) error {
		var err error
		switch {
		case filter.Status != "":
			orders, err = repos.Orders().FindByStatus(ctx, order.OrderStatus(filter.Status), sharedFilter)
		case filter.BuyerPhone != "":
			orders, err = repos.Orders().FindByBuyerPhone(ctx, filter.BuyerPhone, sharedFilter)
		default:
			orders, err = repos.Orders().FindAll(ctx, sharedFilter)
		}
		if err != nil {
			return err
		}
		total, err = repos.Orders().Count(ctx, sharedFilter)
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	responses := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		responses = append(responses, *ToOrderResponse(&orders[i]))
	}
	return responses, total, nil
}

func buildOrderFilter(filter OrderListFilter) shared.Filter {
	f := shared.DefaultFilter()
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		f.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		f.OrderDir = filter.OrderDir
	}
	if filter.Status != "" {
		f.Filters["status"] = filter.Status
	}
	if filter.BuyerPhone != "" {
		f.Filters["buyer_phone"] = filter.BuyerPhone
	}
	return f
}
