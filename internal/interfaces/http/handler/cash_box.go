package handler

import (
	"time"

	appledger "github.com/erp/backoffice/internal/application/ledger"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// CashBoxHandler handles cash box endpoints
type CashBoxHandler struct {
	BaseHandler
	financeService *appledger.FinanceService
}

// NewCashBoxHandler creates a new CashBoxHandler
func NewCashBoxHandler(financeService *appledger.FinanceService) *CashBoxHandler {
	return &CashBoxHandler{financeService: financeService}
}

// ListCashBoxesQuery filters the cash box list
type ListCashBoxesQuery struct {
	IncludeArchived bool `form:"include_archived"`
}

// Create creates a cash box
//
//	@Summary	Create a cash box
//	@Tags		cash-boxes
//	@Router		/cash-boxes [post]
func (h *CashBoxHandler) Create(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req appledger.CreateCashBoxRequest
	if !h.bindJSON(c, &req) {
		return
	}

	box, err := h.financeService.CreateCashBox(c.Request.Context(), scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, box)
}

// List returns the cash boxes visible to the caller
//
//	@Summary	List cash boxes
//	@Tags		cash-boxes
//	@Router		/cash-boxes [get]
func (h *CashBoxHandler) List(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var q ListCashBoxesQuery
	if !h.bindQuery(c, &q) {
		return
	}

	boxes, err := h.financeService.ListCashBoxes(c.Request.Context(), scope, q.IncludeArchived)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, boxes)
}

// Get returns one cash box
//
//	@Summary	Get a cash box
//	@Tags		cash-boxes
//	@Router		/cash-boxes/{id} [get]
func (h *CashBoxHandler) Get(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	box, err := h.financeService.GetCashBox(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, box)
}

// Update edits a cash box's presentation fields
//
//	@Summary	Update a cash box
//	@Tags		cash-boxes
//	@Router		/cash-boxes/{id} [put]
func (h *CashBoxHandler) Update(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appledger.UpdateCashBoxRequest
	if !h.bindJSON(c, &req) {
		return
	}

	box, err := h.financeService.UpdateCashBox(c.Request.Context(), scope, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, box)
}

// Archive hides a cash box from new operations
//
//	@Summary	Archive a cash box
//	@Tags		cash-boxes
//	@Router		/cash-boxes/{id}/archive [post]
func (h *CashBoxHandler) Archive(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.financeService.ArchiveCashBox(c.Request.Context(), scope, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Delete removes a cash box nothing references
//
//	@Summary	Delete a cash box
//	@Tags		cash-boxes
//	@Router		/cash-boxes/{id} [delete]
func (h *CashBoxHandler) Delete(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.financeService.DeleteCashBox(c.Request.Context(), scope, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Balance returns the live balance. With ?verify=true the aggregated
// balance is compared against a replay of completed transactions.
//
//	@Summary	Get a cash box balance
//	@Tags		cash-boxes
//	@Router		/cash-boxes/{id}/balance [get]
func (h *CashBoxHandler) Balance(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if c.Query("verify") == "true" {
		check, err := h.financeService.VerifyCashBoxBalance(c.Request.Context(), scope, id)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, check)
		return
	}

	balance, err := h.financeService.GetCashBoxBalance(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

// History returns balance snapshots over ?from=&to= (YYYY-MM-DD)
//
//	@Summary	Cash box balance history
//	@Tags		cash-boxes
//	@Router		/cash-boxes/{id}/history [get]
func (h *CashBoxHandler) History(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var q dto.DateRangeRequest
	if !h.bindQuery(c, &q) {
		return
	}
	from, to, err := q.Parse(time.Now())
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if to.Before(from) {
		h.BadRequest(c, "from must not be after to")
		return
	}

	history, err := h.financeService.ListBalanceHistory(c.Request.Context(), scope, id, from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, history)
}
