package stock

import (
	"context"

	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/stock"
)

// StockService handles ledger business operations: manual imports and
// exports, threshold management, and the read surface over entries and the
// movement audit trail.
type StockService struct {
	scope          TransactionScope
	processor      *stock.MovementProcessor
	eventPublisher shared.EventPublisher
}

// NewStockService creates a new StockService
func NewStockService(scope TransactionScope, processor *stock.MovementProcessor) *StockService {
	return &StockService{
		scope:     scope,
		processor: processor,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *StockService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// publishEvents publishes domain events after a successful commit.
// Event delivery is fire-and-forget; failures are the bus's concern.
func (s *StockService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}

// repoLedger adapts a StockEntryRepository to the domain Ledger port
type repoLedger struct {
	repo stock.StockEntryRepository
}

func (l *repoLedger) GetOrCreate(ctx context.Context, branchID, productID, variantID uuid.UUID) (*stock.StockEntry, error) {
	return l.repo.GetOrCreate(ctx, branchID, productID, variantID)
}

// CreateImport applies an IMPORT movement to the branch ledger
func (s *StockService) CreateImport(ctx context.Context, req CreateImportRequest) (*MovementResponse, error) {
	var result *stock.MovementResult

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		ledger := &repoLedger{repo: repos.StockEntries()}

		r, err := s.processor.ApplyImport(ctx, ledger, req.BranchID, req.CreatedBy, ToMovementLines(req.Lines))
		if err != nil {
			return err
		}
		r.Movement.WithNote(req.Note)

		for _, entry := range r.Entries {
			if err := repos.StockEntries().SaveWithLock(ctx, entry); err != nil {
				return err
			}
		}
		if err := repos.Movements().Create(ctx, r.Movement); err != nil {
			return err
		}

		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, result.Events)
	return ToMovementResponse(result.Movement), nil
}

// CreateExport applies an EXPORT movement to the branch ledger
func (s *StockService) CreateExport(ctx context.Context, req CreateExportRequest) (*MovementResponse, error) {
	var result *stock.MovementResult

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		ledger := &repoLedger{repo: repos.StockEntries()}

		r, err := s.processor.ApplyExport(ctx, ledger, req.BranchID, req.CreatedBy, ToMovementLines(req.Lines))
		if err != nil {
			return err
		}
		r.Movement.WithNote(req.Note)

		for _, entry := range r.Entries {
			if err := repos.StockEntries().SaveWithLock(ctx, entry); err != nil {
				return err
			}
		}
		if err := repos.Movements().Create(ctx, r.Movement); err != nil {
			return err
		}

		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, result.Events)
	return ToMovementResponse(result.Movement), nil
}

// GetEntry returns the ledger entry for a branch-variant key.
// A missing entry is reported as an empty entry, never an error.
func (s *StockService) GetEntry(ctx context.Context, branchID, productID, variantID uuid.UUID) (*StockEntryResponse, error) {
	var response *StockEntryResponse

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		entry, err := repos.StockEntries().FindByKey(ctx, branchID, productID, variantID)
		if err != nil {
			de, ok := err.(*shared.DomainError)
			if !ok || de.Code != shared.ErrNotFound.Code {
				return err
			}
			entry, err = stock.NewStockEntry(branchID, productID, variantID)
			if err != nil {
				return err
			}
		}
		response = ToStockEntryResponse(entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// SetMinQuantity updates an entry's low-stock threshold
func (s *StockService) SetMinQuantity(ctx context.Context, req SetMinQuantityRequest) (*StockEntryResponse, error) {
	var response *StockEntryResponse

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		entry, err := repos.StockEntries().GetOrCreate(ctx, req.BranchID, req.ProductID, req.VariantID)
		if err != nil {
			return err
		}
		if err := entry.SetMinQuantity(req.MinQuantity); err != nil {
			return err
		}
		if err := repos.StockEntries().SaveWithLock(ctx, entry); err != nil {
			return err
		}
		response = ToStockEntryResponse(entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// ListEntries lists ledger entries with filtering and pagination
func (s *StockService) ListEntries(ctx context.Context, filter EntryListFilter) ([]StockEntryResponse, int64, error) {
	sharedFilter := buildEntryFilter(filter)

	var entries []stock.StockEntry
	var total int64

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		switch {
		case filter.BelowMinimum != nil && *filter.BelowMinimum:
			entries, err = repos.StockEntries().FindBelowMinimum(ctx, sharedFilter)
		case filter.BranchID != nil:
			entries, err = repos.StockEntries().FindByBranch(ctx, *filter.BranchID, sharedFilter)
		case filter.ProductID != nil:
			entries, err = repos.StockEntries().FindByProduct(ctx, *filter.ProductID, sharedFilter)
		default:
			entries, err = repos.StockEntries().FindAll(ctx, sharedFilter)
		}
		if err != nil {
			return err
		}
		total, err = repos.StockEntries().Count(ctx, sharedFilter)
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	responses := make([]StockEntryResponse, 0, len(entries))
	for i := range entries {
		responses = append(responses, *ToStockEntryResponse(&entries[i]))
	}
	return responses, total, nil
}

// ListMovements lists the movement audit trail with filtering and pagination
func (s *StockService) ListMovements(ctx context.Context, filter MovementListFilter) ([]MovementResponse, int64, error) {
	sharedFilter := buildMovementFilter(filter)

	var movements []stock.Movement
	var total int64

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		switch {
		case filter.StartDate != nil && filter.EndDate != nil:
			movements, err = repos.Movements().FindByDateRange(ctx, *filter.StartDate, *filter.EndDate, sharedFilter)
		case filter.BranchID != nil:
			movements, err = repos.Movements().FindByBranch(ctx, *filter.BranchID, sharedFilter)
		case filter.Type != "":
			movements, err = repos.Movements().FindByType(ctx, stock.MovementType(filter.Type), sharedFilter)
		default:
			movements, err = repos.Movements().FindAll(ctx, sharedFilter)
		}
		if err != nil {
			return err
		}
		total, err = repos.Movements().Count(ctx, sharedFilter)
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	responses := make([]MovementResponse, 0, len(movements))
	for i := range movements {
		responses = append(responses, *ToMovementResponse(&movements[i]))
	}
	return responses, total, nil
}

// GetMovement returns one movement with its lines
func (s *StockService) GetMovement(ctx context.Context, id uuid.UUID) (*MovementResponse, error) {
	var response *MovementResponse

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		movement, err := repos.Movements().FindByID(ctx, id)
		if err != nil {
			return err
		}
		response = ToMovementResponse(movement)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// CheckAvailability answers whether a branch can fulfill a set of lines.
// This is a read-only pre-check; the authoritative validation still happens
// when the movement or order is applied.
func (s *StockService) CheckAvailability(ctx context.Context, req CheckAvailabilityRequest) (*CheckAvailabilityResponse, error) {
	merged := make(map[string]*AvailabilityLineResponse)
	order := make([]string, 0, len(req.Lines))
	for _, line := range req.Lines {
		key := line.ProductID.String() + "/" + line.VariantID.String()
		if existing, ok := merged[key]; ok {
			existing.Requested += line.Quantity
			continue
		}
		merged[key] = &AvailabilityLineResponse{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Requested: line.Quantity,
		}
		order = append(order, key)
	}

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		for _, key := range order {
			line := merged[key]
			entry, err := repos.StockEntries().FindByKey(ctx, req.BranchID, line.ProductID, line.VariantID)
			if err != nil {
				de, ok := err.(*shared.DomainError)
				if ok && de.Code == shared.ErrNotFound.Code {
					line.Available = 0
					line.Fulfilled = false
					continue
				}
				return err
			}
			line.Available = entry.QuantityOnHand
			line.Fulfilled = entry.CanFulfill(line.Requested)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	response := &CheckAvailabilityResponse{BranchID: req.BranchID, Available: true}
	for _, key := range order {
		line := merged[key]
		if !line.Fulfilled {
			response.Available = false
		}
		response.Lines = append(response.Lines, *line)
	}
	return response, nil
}

func buildEntryFilter(filter EntryListFilter) shared.Filter {
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
	if filter.BranchID != nil {
		f.Filters["branch_id"] = *filter.BranchID
	}
	if filter.ProductID != nil {
		f.Filters["product_id"] = *filter.ProductID
	}
	return f
}

func buildMovementFilter(filter MovementListFilter) shared.Filter {
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
	if filter.BranchID != nil {
		f.Filters["branch_id"] = *filter.BranchID
	}
	if filter.Type != "" {
		f.Filters["type"] = filter.Type
	}
	return f
}
