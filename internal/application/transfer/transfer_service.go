package transfer

import (
	"context"

	"github.com/google/uuid"
	appstock "github.com/retail/backend/internal/application/stock"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/stock"
	"github.com/retail/backend/internal/domain/transfer"
	"github.com/shopspring/decimal"
)

// TransferService orchestrates the transfer workflow: creating a request
// reserves stock at the source branch, receiving imports it at the
// destination, and rejecting compensates the reservation exactly once.
type TransferService struct {
	scope          appstock.TransactionScope
	processor      *stock.MovementProcessor
	eventPublisher shared.EventPublisher
}

// NewTransferService creates a new TransferService
func NewTransferService(scope appstock.TransactionScope, processor *stock.MovementProcessor) *TransferService {
	return &TransferService{
		scope:     scope,
		processor: processor,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *TransferService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *TransferService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
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

// Create reserves the requested stock at the source branch and persists the
// pending transfer request. The reservation and the request commit together;
// a shortage on any line fails the whole creation.
func (s *TransferService) Create(ctx context.Context, req CreateTransferRequest) (*TransferResponse, error) {
	var response *TransferResponse
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos appstock.TransactionalRepositories) error {
		ledger := &repoLedger{repo: repos.StockEntries()}

		movementLines := make([]stock.MovementLine, 0, len(req.Lines))
		for i := range req.Lines {
			movementLines = append(movementLines, stock.MovementLine{
				ProductID: req.Lines[i].ProductID,
				VariantID: req.Lines[i].VariantID,
				Quantity:  req.Lines[i].Quantity,
			})
		}

		result, err := s.processor.ApplyTransfer(ctx, ledger, req.SourceBranchID, req.DestinationBranchID, req.CreatedBy, movementLines)
		if err != nil {
			return err
		}

		// Capture the source average cost per merged line; it prices the
		// destination import on receipt.
		transferLines := make([]transfer.TransferLine, 0, len(result.Movement.Lines))
		for i := range result.Movement.Lines {
			line := result.Movement.Lines[i]
			transferLines = append(transferLines, transfer.TransferLine{
				ProductID: line.ProductID,
				VariantID: line.VariantID,
				Quantity:  line.Quantity,
				UnitCost:  result.Entries[i].AverageCost,
			})
		}

		tr, err := transfer.NewTransferRequest(req.SourceBranchID, req.DestinationBranchID, result.Movement.ID, req.CreatedBy, transferLines, req.Note)
		if err != nil {
			return err
		}
		result.Movement.WithSource(stock.SourceTypeTransfer, tr.ID.String())

		for _, entry := range result.Entries {
			if err := repos.StockEntries().SaveWithLock(ctx, entry); err != nil {
				return err
			}
		}
		if err := repos.Movements().Create(ctx, result.Movement); err != nil {
			return err
		}
		if err := repos.Transfers().Save(ctx, tr); err != nil {
			return err
		}

		events = append(result.Events, tr.GetDomainEvents()...)
		tr.ClearDomainEvents()
		response = ToTransferResponse(tr)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, events)
	return response, nil
}

// UpdateStatus applies one workflow transition to a transfer request.
// Rejection compensates the source reservation exactly once; receipt imports
// the lines at the destination at the cost captured at creation.
func (s *TransferService) UpdateStatus(ctx context.Context, id uuid.UUID, req UpdateTransferStatusRequest) (*TransferResponse, error) {
	var response *TransferResponse
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos appstock.TransactionalRepositories) error {
		tr, err := repos.Transfers().FindByID(ctx, id)
		if err != nil {
			return err
		}

		switch transfer.TransferStatus(req.Status) {
		case transfer.TransferStatusApproved:
			err = tr.Approve(req.OperatorID)
		case transfer.TransferStatusRejected:
			err = s.reject(ctx, repos, tr, req, &events)
		case transfer.TransferStatusInTransit:
			err = tr.MarkInTransit()
		case transfer.TransferStatusReceived:
			err = s.receive(ctx, repos, tr, req, &events)
		default:
			err = shared.NewValidationError("Unknown transfer status: " + req.Status)
		}
		if err != nil {
			return err
		}

		if err := repos.Transfers().SaveWithLock(ctx, tr); err != nil {
			return err
		}

		events = append(events, tr.GetDomainEvents()...)
		tr.ClearDomainEvents()
		response = ToTransferResponse(tr)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, events)
	return response, nil
}

// reject transitions the request and, exactly once, imports the reserved
// quantities back into the source branch at their current average cost.
func (s *TransferService) reject(ctx context.Context, repos appstock.TransactionalRepositories, tr *transfer.TransferRequest, req UpdateTransferStatusRequest, events *[]shared.DomainEvent) error {
	if err := tr.Reject(req.OperatorID, req.Note); err != nil {
		return err
	}
	if !tr.ReleaseStock() {
		return nil
	}

	costOf := func(productID, variantID uuid.UUID) (decimal.Decimal, bool) {
		entry, err := repos.StockEntries().FindByKey(ctx, tr.SourceBranchID, productID, variantID)
		if err != nil {
			return decimal.Zero, false
		}
		return entry.AverageCost, true
	}
	lines := stock.CompensationLines(movementLinesOf(tr.Lines), costOf)

	return s.applyImport(ctx, repos, tr, tr.SourceBranchID, req.OperatorID, lines, "transfer rejected: "+req.Note, events)
}

// receive transitions the request and imports the lines into the destination
// branch at the unit cost captured when the transfer was created.
func (s *TransferService) receive(ctx context.Context, repos appstock.TransactionalRepositories, tr *transfer.TransferRequest, req UpdateTransferStatusRequest, events *[]shared.DomainEvent) error {
	if err := tr.Receive(); err != nil {
		return err
	}
	return s.applyImport(ctx, repos, tr, tr.DestinationBranchID, req.OperatorID, movementLinesOf(tr.Lines), "transfer received", events)
}

func (s *TransferService) applyImport(ctx context.Context, repos appstock.TransactionalRepositories, tr *transfer.TransferRequest, branchID, operatorID uuid.UUID, lines []stock.MovementLine, note string, events *[]shared.DomainEvent) error {
	ledger := &repoLedger{repo: repos.StockEntries()}

	result, err := s.processor.ApplyImport(ctx, ledger, branchID, operatorID, lines)
	if err != nil {
		return err
	}
	result.Movement.WithSource(stock.SourceTypeTransfer, tr.ID.String()).WithNote(note)

	for _, entry := range result.Entries {
		if err := repos.StockEntries().SaveWithLock(ctx, entry); err != nil {
			return err
		}
	}
	if err := repos.Movements().Create(ctx, result.Movement); err != nil {
		return err
	}

	*events = append(*events, result.Events...)
	return nil
}

func movementLinesOf(lines []transfer.TransferLine) []stock.MovementLine {
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

// Get returns one transfer request with its lines
func (s *TransferService) Get(ctx context.Context, id uuid.UUID) (*TransferResponse, error) {
	var response *TransferResponse

	err := s.scope.Execute(ctx, func(repos appstock.TransactionalRepositories) error {
		tr, err := repos.Transfers().FindByID(ctx, id)
		if err != nil {
			return err
		}
		response = ToTransferResponse(tr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// List lists transfer requests with filtering and pagination
func (s *TransferService) List(ctx context.Context, filter TransferListFilter) ([]TransferResponse, int64, error) {
	sharedFilter := buildTransferFilter(filter)

	var transfers []transfer.TransferRequest
	var total int64

	err := s.scope.Execute(ctx, func(repos appstock.TransactionalRepositories) error {
		var err error
		switch {
		case filter.Status != "":
			transfers, err = repos.Transfers().FindByStatus(ctx, transfer.TransferStatus(filter.Status), sharedFilter)
		case filter.SourceBranchID != nil:
			transfers, err = repos.Transfers().FindBySourceBranch(ctx, *filter.SourceBranchID, sharedFilter)
		case filter.DestinationBranchID != nil:
			transfers, err = repos.Transfers().FindByDestinationBranch(ctx, *filter.DestinationBranchID, sharedFilter)
		default:
			transfers, err = repos.Transfers().FindAll(ctx, sharedFilter)
		}
		if err != nil {
			return err
		}
		total, err = repos.Transfers().Count(ctx, sharedFilter)
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	responses := make([]TransferResponse, 0, len(transfers))
	for i := range transfers {
		responses = append(responses, *ToTransferResponse(&transfers[i]))
	}
	return responses, total, nil
}

func buildTransferFilter(filter TransferListFilter) shared.Filter {
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
	if filter.SourceBranchID != nil {
		f.Filters["source_branch_id"] = *filter.SourceBranchID
	}
	return f
}
