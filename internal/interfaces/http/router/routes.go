package router

import (
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/interfaces/http/handler"
)

// Handlers are the HTTP handlers exposed under the API group
type Handlers struct {
	CashBoxes   *handler.CashBoxHandler
	Ledger      *handler.LedgerHandler
	Assignments *handler.AssignmentHandler
	Contracts   *handler.ContractHandler
	Payroll     *handler.PayrollHandler
	Reports     *handler.ReportHandler
}

// Groups builds the API route groups
func Groups(h Handlers) []*DomainGroup {
	cashBoxes := NewDomainGroup("cash-boxes", "/cash-boxes").
		POST("", shared.ActionManageCashBoxes, h.CashBoxes.Create).
		GET("", shared.ActionViewLedger, h.CashBoxes.List).
		GET("/:id", shared.ActionViewLedger, h.CashBoxes.Get).
		PUT("/:id", shared.ActionManageCashBoxes, h.CashBoxes.Update).
		POST("/:id/archive", shared.ActionManageCashBoxes, h.CashBoxes.Archive).
		DELETE("/:id", shared.ActionManageCashBoxes, h.CashBoxes.Delete).
		GET("/:id/balance", shared.ActionViewLedger, h.CashBoxes.Balance).
		GET("/:id/history", shared.ActionViewLedger, h.CashBoxes.History)

	receipts := NewDomainGroup("receipts", "/receipts").
		POST("/contract", shared.ActionWriteLedger, h.Ledger.CreateContractReceipt).
		POST("/director-loan", shared.ActionWriteLedger, h.Ledger.CreateDirectorLoan).
		DELETE("/:id", shared.ActionWriteLedger, h.Ledger.DeleteReceipt)

	spendings := NewDomainGroup("spendings", "/spendings").
		POST("", shared.ActionWriteLedger, h.Ledger.CreateSpending).
		POST("/director-withdrawal", shared.ActionWriteLedger, h.Ledger.CreateDirectorWithdrawal).
		DELETE("/:id", shared.ActionWriteLedger, h.Ledger.DeleteSpending)

	transfers := NewDomainGroup("transfers", "/transfers").
		POST("", shared.ActionWriteLedger, h.Ledger.Transfer)

	transactions := NewDomainGroup("transactions", "/transactions").
		PATCH("/:id", shared.ActionWriteLedger, h.Ledger.UpdateTransaction).
		POST("/:id/complete", shared.ActionWriteLedger, h.Ledger.CompleteTransaction).
		POST("/:id/assign", shared.ActionAssign, h.Assignments.Assign).
		POST("/bulk-assign", shared.ActionAssign, h.Assignments.BulkAssign)

	contracts := NewDomainGroup("contracts", "/contracts").
		POST("/:id/recalc", shared.ActionRecalcContracts, h.Contracts.Recalc).
		POST("/recalc-all", shared.ActionRecalcContracts, h.Contracts.RecalcAll).
		POST("/:id/status", shared.ActionRecalcContracts, h.Contracts.ChangeStatus)

	payroll := NewDomainGroup("payroll", "/payroll").
		PUT("/rules", shared.ActionManagePayroll, h.Payroll.UpsertRule).
		GET("/rules", shared.ActionViewPayroll, h.Payroll.ListRules).
		GET("/accruals", shared.ActionViewPayroll, h.Payroll.ListAccruals).
		POST("/accruals/manual", shared.ActionManagePayroll, h.Payroll.CreateManualAccrual).
		DELETE("/accruals/:id", shared.ActionManagePayroll, h.Payroll.CancelAccrual).
		POST("/payouts", shared.ActionManagePayroll, h.Payroll.CreatePayout).
		DELETE("/payouts/:id", shared.ActionManagePayroll, h.Payroll.DeletePayout).
		GET("/payouts", shared.ActionViewPayroll, h.Payroll.ListPayouts)

	reports := NewDomainGroup("reports", "/reports").
		POST("/cashflow/rebuild", shared.ActionBuildReports, h.Reports.Rebuild).
		GET("/cashflow/monthly", shared.ActionViewReports, h.Reports.Monthly).
		POST("/periods/:year/:month/close", shared.ActionBuildReports, h.Reports.ClosePeriod).
		POST("/periods/:year/:month/open", shared.ActionBuildReports, h.Reports.OpenPeriod)

	return []*DomainGroup{cashBoxes, receipts, spendings, transfers, transactions, contracts, payroll, reports}
}

// RegisterAPI registers every API group on r
func RegisterAPI(r *Router, h Handlers) *Router {
	for _, g := range Groups(h) {
		r.Register(g)
	}
	return r
}
