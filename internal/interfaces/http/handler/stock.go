package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	stockapp "github.com/retail/backend/internal/application/stock"
)

// StockHandler handles stock ledger API endpoints
type StockHandler struct {
	BaseHandler
	stockService *stockapp.StockService
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(stockService *stockapp.StockService) *StockHandler {
	return &StockHandler{stockService: stockService}
}

// RegisterRoutes registers stock routes on the given group
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	stock := rg.Group("/stock")
	{
		stock.POST("/imports", h.CreateImport)
		stock.POST("/exports", h.CreateExport)
		stock.POST("/availability", h.CheckAvailability)
		stock.GET("/entries", h.ListEntries)
		stock.GET("/entries/lookup", h.GetEntry)
		stock.PUT("/entries/min-quantity", h.SetMinQuantity)
		stock.GET("/movements", h.ListMovements)
		stock.GET("/movements/:id", h.GetMovement)
	}
}

// CreateImport records an import movement and updates the ledger
func (h *StockHandler) CreateImport(c *gin.Context) {
	var req stockapp.CreateImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	movement, err := h.stockService.CreateImport(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, movement)
}

// CreateExport records an export movement and updates the ledger
func (h *StockHandler) CreateExport(c *gin.Context) {
	var req stockapp.CreateExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	movement, err := h.stockService.CreateExport(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, movement)
}

// CheckAvailability reports whether a branch can fulfill a set of lines
func (h *StockHandler) CheckAvailability(c *gin.Context) {
	var req stockapp.CheckAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.stockService.CheckAvailability(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// ListEntries returns a paginated list of ledger entries
func (h *StockHandler) ListEntries(c *gin.Context) {
	var filter stockapp.EntryListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	entries, total, err := h.stockService.ListEntries(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, entries, total, filter.Page, filter.PageSize)
}

// GetEntry returns the ledger entry for one branch-product-variant key.
// A key that has never moved reads as an empty entry.
func (h *StockHandler) GetEntry(c *gin.Context) {
	branchID, err := uuid.Parse(c.Query("branch_id"))
	if err != nil {
		h.BadRequest(c, "Invalid branch ID format")
		return
	}
	productID, err := uuid.Parse(c.Query("product_id"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}
	variantID, err := uuid.Parse(c.Query("variant_id"))
	if err != nil {
		h.BadRequest(c, "Invalid variant ID format")
		return
	}

	entry, err := h.stockService.GetEntry(c.Request.Context(), branchID, productID, variantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, entry)
}

// SetMinQuantity sets the low-stock threshold for one entry
func (h *StockHandler) SetMinQuantity(c *gin.Context) {
	var req stockapp.SetMinQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	entry, err := h.stockService.SetMinQuantity(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, entry)
}

// ListMovements returns the paginated movement audit trail
func (h *StockHandler) ListMovements(c *gin.Context) {
	var filter stockapp.MovementListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	movements, total, err := h.stockService.ListMovements(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, movements, total, filter.Page, filter.PageSize)
}

// GetMovement returns one movement with its lines
func (h *StockHandler) GetMovement(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid movement ID format")
		return
	}

	movement, err := h.stockService.GetMovement(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, movement)
}
