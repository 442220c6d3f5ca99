package handler

import (
	apppayroll "github.com/erp/backoffice/internal/application/payroll"
	"github.com/erp/backoffice/internal/domain/payroll"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PayrollHandler handles payroll rules, accruals and payouts
type PayrollHandler struct {
	BaseHandler
	accrualService *apppayroll.AccrualService
	payoutService  *apppayroll.PayoutService
}

// NewPayrollHandler creates a new PayrollHandler
func NewPayrollHandler(accrualService *apppayroll.AccrualService, payoutService *apppayroll.PayoutService) *PayrollHandler {
	return &PayrollHandler{
		accrualService: accrualService,
		payoutService:  payoutService,
	}
}

// AccrualsQuery filters the accrual list
type AccrualsQuery struct {
	dto.ListRequest
	UserID     string `form:"user_id" binding:"omitempty,uuid"`
	ContractID string `form:"contract_id" binding:"omitempty,uuid"`
	Status     string `form:"status" binding:"omitempty,oneof=active paid cancelled"`
}

// PayoutsQuery filters the payout list
type PayoutsQuery struct {
	dto.ListRequest
	UserID string `form:"user_id" binding:"omitempty,uuid"`
}

// UpsertRule creates or replaces a user's rule for a document type
//
//	@Summary	Upsert a payroll rule
//	@Tags		payroll
//	@Router		/payroll/rules [put]
func (h *PayrollHandler) UpsertRule(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req apppayroll.UpsertRuleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	rule, err := h.accrualService.UpsertRule(c.Request.Context(), scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rule)
}

// ListRules returns the company's payroll rules
//
//	@Summary	List payroll rules
//	@Tags		payroll
//	@Router		/payroll/rules [get]
func (h *PayrollHandler) ListRules(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}

	rules, err := h.accrualService.ListRules(c.Request.Context(), scope)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rules)
}

// ListAccruals pages through accruals
//
//	@Summary	List accruals
//	@Tags		payroll
//	@Router		/payroll/accruals [get]
func (h *PayrollHandler) ListAccruals(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var q AccrualsQuery
	if !h.bindQuery(c, &q) {
		return
	}
	q.Normalize()

	filter := apppayroll.AccrualListFilter{
		UserID:     optionalUUID(q.UserID),
		ContractID: optionalUUID(q.ContractID),
		Status:     payroll.Status(q.Status),
		Page:       q.Page,
		PageSize:   q.PageSize,
		OrderBy:    q.OrderBy,
		OrderDir:   q.OrderDir,
	}
	accruals, total, err := h.accrualService.ListAccruals(c.Request.Context(), scope, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, accruals, total, q.Page, q.PageSize)
}

// CreateManualAccrual records a bonus or a penalty
//
//	@Summary	Create a manual accrual
//	@Tags		payroll
//	@Router		/payroll/accruals/manual [post]
func (h *PayrollHandler) CreateManualAccrual(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req apppayroll.ManualAccrualRequest
	if !h.bindJSON(c, &req) {
		return
	}

	accrual, err := h.accrualService.CreateManualAccrual(c.Request.Context(), scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, accrual)
}

// CancelAccrual cancels an unpaid accrual
//
//	@Summary	Cancel an accrual
//	@Tags		payroll
//	@Router		/payroll/accruals/{id} [delete]
func (h *PayrollHandler) CancelAccrual(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.accrualService.CancelAccrual(c.Request.Context(), scope, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// CreatePayout pays accruals out of a cash box
//
//	@Summary	Create a payout
//	@Tags		payroll
//	@Router		/payroll/payouts [post]
func (h *PayrollHandler) CreatePayout(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req apppayroll.CreatePayoutRequest
	if !h.bindJSON(c, &req) {
		return
	}

	payout, err := h.payoutService.CreatePayout(c.Request.Context(), scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, payout)
}

// DeletePayout reverses a payout and its spending
//
//	@Summary	Delete a payout
//	@Tags		payroll
//	@Router		/payroll/payouts/{id} [delete]
func (h *PayrollHandler) DeletePayout(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.payoutService.DeletePayout(c.Request.Context(), scope, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ListPayouts pages through payouts, optionally for one user
//
//	@Summary	List payouts
//	@Tags		payroll
//	@Router		/payroll/payouts [get]
func (h *PayrollHandler) ListPayouts(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var q PayoutsQuery
	if !h.bindQuery(c, &q) {
		return
	}
	q.Normalize()

	filter := shared.DefaultFilter()
	filter.Page = q.Page
	filter.PageSize = q.PageSize
	filter.OrderBy = q.OrderBy
	filter.OrderDir = q.OrderDir
	payouts, total, err := h.payoutService.ListPayouts(c.Request.Context(), scope, optionalUUID(q.UserID), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, payouts, total, q.Page, q.PageSize)
}

// optionalUUID parses an already validated query value
func optionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}
