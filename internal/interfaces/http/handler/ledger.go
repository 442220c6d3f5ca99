package handler

import (
	appledger "github.com/erp/backoffice/internal/application/ledger"
	"github.com/gin-gonic/gin"
)

// LedgerHandler handles receipts, spendings, transfers and transaction edits
type LedgerHandler struct {
	BaseHandler
	financeService *appledger.FinanceService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(financeService *appledger.FinanceService) *LedgerHandler {
	return &LedgerHandler{financeService: financeService}
}

// CreateContractReceipt records customer money against a contract
//
//	@Summary	Record a contract receipt
//	@Tags		ledger
//	@Router		/receipts/contract [post]
func (h *LedgerHandler) CreateContractReceipt(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req appledger.ContractReceiptRequest
	if !h.bindJSON(c, &req) {
		return
	}

	receipt, err := h.financeService.CreateContractReceipt(c.Request.Context(), scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, receipt)
}

// CreateDirectorLoan records money lent by the director
//
//	@Summary	Record a director loan
//	@Tags		ledger
//	@Router		/receipts/director-loan [post]
func (h *LedgerHandler) CreateDirectorLoan(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req appledger.DirectorLoanRequest
	if !h.bindJSON(c, &req) {
		return
	}

	receipt, err := h.financeService.CreateDirectorLoanReceipt(c.Request.Context(), scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, receipt)
}

// DeleteReceipt removes a receipt and reverses its effect on the balance
//
//	@Summary	Delete a receipt
//	@Tags		ledger
//	@Router		/receipts/{id} [delete]
func (h *LedgerHandler) DeleteReceipt(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.financeService.DeleteReceipt(c.Request.Context(), scope, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// CreateSpending records outgoing money
//
//	@Summary	Record a spending
//	@Tags		ledger
//	@Router		/spendings [post]
func (h *LedgerHandler) CreateSpending(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req appledger.SpendingRequest
	if !h.bindJSON(c, &req) {
		return
	}

	spending, err := h.financeService.CreateSpending(c.Request.Context(), scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, spending)
}

// CreateDirectorWithdrawal records money taken out by the director
//
//	@Summary	Record a director withdrawal
//	@Tags		ledger
//	@Router		/spendings/director-withdrawal [post]
func (h *LedgerHandler) CreateDirectorWithdrawal(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req appledger.DirectorWithdrawalRequest
	if !h.bindJSON(c, &req) {
		return
	}

	spending, err := h.financeService.CreateDirectorWithdrawal(c.Request.Context(), scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, spending)
}

// DeleteSpending removes a spending and gives its money back to the box
//
//	@Summary	Delete a spending
//	@Tags		ledger
//	@Router		/spendings/{id} [delete]
func (h *LedgerHandler) DeleteSpending(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.financeService.DeleteSpending(c.Request.Context(), scope, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Transfer moves money between two cash boxes of the same company
//
//	@Summary	Transfer between cash boxes
//	@Tags		ledger
//	@Router		/transfers [post]
func (h *LedgerHandler) Transfer(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req appledger.TransferRequest
	if !h.bindJSON(c, &req) {
		return
	}

	transfer, err := h.financeService.TransferBetweenCashBoxes(c.Request.Context(), scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, transfer)
}

// CompleteTransaction applies a pending transaction to its cash box
//
//	@Summary	Complete a transaction
//	@Tags		ledger
//	@Router		/transactions/{id}/complete [post]
func (h *LedgerHandler) CompleteTransaction(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	tx, err := h.financeService.CompleteTransaction(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tx)
}

// UpdateTransaction edits notes, payment method and counterparty
//
//	@Summary	Update transaction details
//	@Tags		ledger
//	@Router		/transactions/{id} [patch]
func (h *LedgerHandler) UpdateTransaction(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appledger.UpdateTransactionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	tx, err := h.financeService.UpdateTransactionDetails(c.Request.Context(), scope, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tx)
}
