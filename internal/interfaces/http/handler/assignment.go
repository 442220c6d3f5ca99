package handler

import (
	appfo "github.com/erp/backoffice/internal/application/financeobject"
	"github.com/gin-gonic/gin"
)

// AssignmentHandler attributes transactions to finance objects
type AssignmentHandler struct {
	BaseHandler
	allocationService *appfo.AllocationService
}

// NewAssignmentHandler creates a new AssignmentHandler
func NewAssignmentHandler(allocationService *appfo.AllocationService) *AssignmentHandler {
	return &AssignmentHandler{allocationService: allocationService}
}

// Assign points a transaction at one finance object or splits it
//
//	@Summary	Assign a transaction
//	@Tags		ledger
//	@Router		/transactions/{id}/assign [post]
func (h *AssignmentHandler) Assign(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appfo.AssignRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.allocationService.AssignTransaction(c.Request.Context(), scope, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// BulkAssign points many transactions at one finance object
//
//	@Summary	Bulk assign transactions
//	@Tags		ledger
//	@Router		/transactions/bulk-assign [post]
func (h *AssignmentHandler) BulkAssign(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req appfo.BulkAssignRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.allocationService.BulkAssignTransactions(c.Request.Context(), scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
