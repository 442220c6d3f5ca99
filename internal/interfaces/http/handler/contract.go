package handler

import (
	appcontract "github.com/erp/backoffice/internal/application/contract"
	"github.com/gin-gonic/gin"
)

// ContractHandler exposes settlement repair and status changes
type ContractHandler struct {
	BaseHandler
	settlementService *appcontract.SettlementService
}

// NewContractHandler creates a new ContractHandler
func NewContractHandler(settlementService *appcontract.SettlementService) *ContractHandler {
	return &ContractHandler{settlementService: settlementService}
}

// Recalc re-derives one contract's paid amount and payment status
//
//	@Summary	Recalculate a contract
//	@Tags		contracts
//	@Router		/contracts/{id}/recalc [post]
func (h *ContractHandler) Recalc(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.settlementService.Recalc(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RecalcAll repairs every contract of the caller's tenant
//
//	@Summary	Recalculate all contracts
//	@Tags		contracts
//	@Router		/contracts/recalc-all [post]
func (h *ContractHandler) RecalcAll(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	result, err := h.settlementService.RecalcAll(c.Request.Context(), scope)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ChangeStatus moves a contract to another workflow status
//
//	@Summary	Change contract status
//	@Tags		contracts
//	@Router		/contracts/{id}/status [post]
func (h *ContractHandler) ChangeStatus(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appcontract.ChangeStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.settlementService.ChangeStatus(c.Request.Context(), scope, id, req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
