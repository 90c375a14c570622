package stock

import (
	"github.com/google/uuid"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MovementType represents the type of stock movement
type MovementType string

const (
	// MovementTypeImport represents stock entering a branch (receiving, compensation)
	MovementTypeImport MovementType = "IMPORT"
	// MovementTypeExport represents stock leaving a branch (sales, shrinkage)
	MovementTypeExport MovementType = "EXPORT"
	// MovementTypeTransfer represents stock moving between two branches
	MovementTypeTransfer MovementType = "TRANSFER"
)

// String returns the string representation of MovementType
func (t MovementType) String() string {
	return string(t)
}

// IsValid returns true if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeImport, MovementTypeExport, MovementTypeTransfer:
		return true
	}
	return false
}

// SourceType represents the document that caused a movement
type SourceType string

const (
	// SourceTypeManual is a movement entered directly by an operator
	SourceTypeManual SourceType = "MANUAL"
	// SourceTypeOrder is a movement caused by an order lifecycle change
	SourceTypeOrder SourceType = "ORDER"
	// SourceTypeTransfer is a movement caused by a transfer request
	SourceTypeTransfer SourceType = "TRANSFER"
)

// String returns the string representation of SourceType
func (s SourceType) String() string {
	return string(s)
}

// IsValid returns true if the source type is valid
func (s SourceType) IsValid() bool {
	switch s {
	case SourceTypeManual, SourceTypeOrder, SourceTypeTransfer:
		return true
	}
	return false
}

// MovementLine is one (product, variant, quantity) position of a movement
type MovementLine struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	MovementID uuid.UUID       `gorm:"type:uuid;not null;index:idx_movement_line_movement"`
	ProductID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_movement_line_product"`
	VariantID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_movement_line_variant"`
	Quantity   int64           `gorm:"not null"`                    // Always positive, direction determined by movement type
	UnitCost   decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Cost per unit at time of movement
}

// TableName returns the table name for GORM
func (MovementLine) TableName() string {
	return "movement_lines"
}

// Amount returns the line value (quantity * unit cost)
func (l *MovementLine) Amount() decimal.Decimal {
	return decimal.NewFromInt(l.Quantity).Mul(l.UnitCost)
}

// Movement is an immutable record of an applied stock movement.
// Once created, movements cannot be modified - corrections are made with
// compensating movements.
type Movement struct {
	shared.BaseEntity
	Type                MovementType `gorm:"type:varchar(20);not null;index:idx_movement_type"`
	BranchID            uuid.UUID    `gorm:"type:uuid;not null;index:idx_movement_branch"` // Source branch for TRANSFER
	DestinationBranchID *uuid.UUID   `gorm:"type:uuid;index"`                              // Set for TRANSFER only
	SourceType          SourceType   `gorm:"type:varchar(20);not null;index:idx_movement_source"`
	SourceID            string       `gorm:"type:varchar(50);index:idx_movement_source"` // ID of the causing document, if any
	Note                string       `gorm:"type:varchar(255)"`
	CreatedBy           uuid.UUID    `gorm:"type:uuid;not null"`

	Lines []MovementLine `gorm:"foreignKey:MovementID;references:ID"`
}

// TableName returns the table name for GORM
func (Movement) TableName() string {
	return "movements"
}

// NewMovement creates a new movement record with merged, validated lines
func NewMovement(movementType MovementType, branchID uuid.UUID, lines []MovementLine, createdBy uuid.UUID) (*Movement, error) {
	if !movementType.IsValid() {
		return nil, shared.NewDomainError(shared.ErrInvalidMovement.Code, "Invalid movement type")
	}
	if branchID == uuid.Nil {
		return nil, shared.NewValidationError("Branch ID cannot be empty")
	}
	if createdBy == uuid.Nil {
		return nil, shared.NewValidationError("Creator ID cannot be empty")
	}

	merged, err := MergeLines(lines)
	if err != nil {
		return nil, err
	}

	m := &Movement{
		BaseEntity: shared.NewBaseEntity(),
		Type:       movementType,
		BranchID:   branchID,
		SourceType: SourceTypeManual,
		CreatedBy:  createdBy,
		Lines:      merged,
	}

	for i := range m.Lines {
		m.Lines[i].ID = uuid.New()
		m.Lines[i].MovementID = m.ID
	}

	return m, nil
}

// WithDestination sets the destination branch for a TRANSFER movement
func (m *Movement) WithDestination(branchID uuid.UUID) *Movement {
	m.DestinationBranchID = &branchID
	return m
}

// WithSource sets the causing document reference
func (m *Movement) WithSource(sourceType SourceType, sourceID string) *Movement {
	m.SourceType = sourceType
	m.SourceID = sourceID
	return m
}

// WithNote sets the operator note
func (m *Movement) WithNote(note string) *Movement {
	m.Note = note
	return m
}

// TotalQuantity returns the sum of line quantities
func (m *Movement) TotalQuantity() int64 {
	var total int64
	for i := range m.Lines {
		total += m.Lines[i].Quantity
	}
	return total
}

// SignedQuantity returns the quantity of one line with sign based on movement type
// as seen from the movement's branch. IMPORT is positive, EXPORT and TRANSFER
// (source side) are negative.
func (m *Movement) SignedQuantity(line *MovementLine) int64 {
	if m.Type == MovementTypeImport {
		return line.Quantity
	}
	return -line.Quantity
}

// MergeLines merges duplicate (product, variant) lines by summing quantities.
// The merged unit cost is the quantity-weighted average of the duplicates.
// Every line must carry a positive quantity and a non-negative cost.
func MergeLines(lines []MovementLine) ([]MovementLine, error) {
	if len(lines) == 0 {
		return nil, shared.NewDomainError(shared.ErrInvalidMovement.Code, "Movement requires at least one line")
	}

	type key struct {
		productID uuid.UUID
		variantID uuid.UUID
	}

	order := make([]key, 0, len(lines))
	merged := make(map[key]MovementLine, len(lines))

	for i := range lines {
		line := lines[i]
		if line.ProductID == uuid.Nil || line.VariantID == uuid.Nil {
			return nil, shared.NewDomainError(shared.ErrInvalidMovement.Code, "Line product and variant IDs are required")
		}
		if line.Quantity <= 0 {
			return nil, shared.NewDomainError(shared.ErrInvalidMovement.Code, "Line quantity must be positive")
		}
		if line.UnitCost.IsNegative() {
			return nil, shared.NewDomainError(shared.ErrInvalidMovement.Code, "Line unit cost cannot be negative")
		}

		k := key{productID: line.ProductID, variantID: line.VariantID}
		existing, ok := merged[k]
		if !ok {
			order = append(order, k)
			merged[k] = line
			continue
		}

		totalQuantity := existing.Quantity + line.Quantity
		totalValue := existing.Amount().Add(line.Amount())
		existing.Quantity = totalQuantity
		existing.UnitCost = totalValue.Div(decimal.NewFromInt(totalQuantity)).Round(4)
		merged[k] = existing
	}

	result := make([]MovementLine, 0, len(order))
	for _, k := range order {
		result = append(result, merged[k])
	}
	return result, nil
}
