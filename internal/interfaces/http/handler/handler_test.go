package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	appcontract "github.com/erp/backoffice/internal/application/contract"
	appfo "github.com/erp/backoffice/internal/application/financeobject"
	appledger "github.com/erp/backoffice/internal/application/ledger"
	"github.com/erp/backoffice/internal/application/ledger/ledgertest"
	apppayroll "github.com/erp/backoffice/internal/application/payroll"
	appreport "github.com/erp/backoffice/internal/application/report"
	"github.com/erp/backoffice/internal/domain/contract"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/erp/backoffice/internal/interfaces/http/handler"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/erp/backoffice/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type allowAll struct{}

func (allowAll) CanPerform(context.Context, shared.RequestScope, shared.Action, string) (bool, error) {
	return true, nil
}

type apiFixture struct {
	store  *ledgertest.Store
	scope  shared.RequestScope
	engine *gin.Engine
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	store := ledgertest.NewStore()
	scope := shared.NewRequestScope(uuid.New(), uuid.New(), uuid.New())

	finance := appledger.NewFinanceService(store, appledger.Config{}, zap.NewNop())
	settlement := appcontract.NewSettlementService(store, zap.NewNop())
	finance.SetSettler(settlement)
	allocation := appfo.NewAllocationService(store, decimal.RequireFromString("0.01"), zap.NewNop())
	allocation.SetSettler(settlement)
	accruals := apppayroll.NewAccrualService(store, zap.NewNop())
	payouts := apppayroll.NewPayoutService(store, finance, zap.NewNop())
	builder := appreport.NewCashflowBuilder(store, valueobject.DefaultCurrency, zap.NewNop())

	engine := gin.New()
	engine.Use(middleware.RequestID())
	withScope := func(c *gin.Context) {
		c.Set(middleware.ScopeKey, scope)
		c.Next()
	}
	r := router.NewRouter(engine, router.WithPolicy(allowAll{}), router.WithMiddleware(withScope))
	router.RegisterAPI(r, router.Handlers{
		CashBoxes:   handler.NewCashBoxHandler(finance),
		Ledger:      handler.NewLedgerHandler(finance),
		Assignments: handler.NewAssignmentHandler(allocation),
		Contracts:   handler.NewContractHandler(settlement),
		Payroll:     handler.NewPayrollHandler(accruals, payouts),
		Reports:     handler.NewReportHandler(builder),
	}).Setup()

	return &apiFixture{store: store, scope: scope, engine: engine}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)

	var resp dto.Response
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

func (f *apiFixture) createBox(t *testing.T, name string) string {
	t.Helper()
	rec, resp := f.do(t, http.MethodPost, "/cash-boxes", gin.H{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return resp.Data.(map[string]any)["id"].(string)
}

func (f *apiFixture) balance(t *testing.T, boxID string) string {
	t.Helper()
	rec, resp := f.do(t, http.MethodGet, "/cash-boxes/"+boxID+"/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	return resp.Data.(map[string]any)["balance"].(map[string]any)["amount"].(string)
}

func TestCashBoxEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	boxID := f.createBox(t, "Main till")

	rec, resp := f.do(t, http.MethodGet, "/cash-boxes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, resp.Data, 1)

	rec, resp = f.do(t, http.MethodGet, "/cash-boxes/"+boxID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Main till", resp.Data.(map[string]any)["name"])

	rec, _ = f.do(t, http.MethodPut, "/cash-boxes/"+boxID, gin.H{"name": "Front desk"})
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "0.00", f.balance(t, boxID))

	rec, _ = f.do(t, http.MethodPost, "/cash-boxes/"+boxID+"/archive", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, resp = f.do(t, http.MethodGet, "/cash-boxes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, resp.Data)

	rec, resp = f.do(t, http.MethodGet, "/cash-boxes?include_archived=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, resp.Data, 1)
}

func TestCashBoxEndpoints_Errors(t *testing.T) {
	f := newAPIFixture(t)

	rec, resp := f.do(t, http.MethodGet, "/cash-boxes/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)

	rec, resp = f.do(t, http.MethodGet, "/cash-boxes/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.RequestID)

	rec, resp = f.do(t, http.MethodPost, "/cash-boxes", gin.H{"name": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)

	rec, _ = f.do(t, http.MethodGet, "/cash-boxes/"+uuid.NewString()+"/history?from=2026-13-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLedgerEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	till := f.createBox(t, "Till")
	safe := f.createBox(t, "Safe")

	rec, resp := f.do(t, http.MethodPost, "/receipts/director-loan", gin.H{"cash_box_id": till, "sum": "1000"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "1000.00", f.balance(t, till))
	receiptID := resp.Data.(map[string]any)["id"].(string)

	t.Run("spending", func(t *testing.T) {
		rec, resp := f.do(t, http.MethodPost, "/spendings", gin.H{"cash_box_id": till, "sum": "250.50"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "749.50", f.balance(t, till))

		id := resp.Data.(map[string]any)["id"].(string)
		rec, _ = f.do(t, http.MethodDelete, "/spendings/"+id, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "1000.00", f.balance(t, till))
	})

	t.Run("overdraft is rejected", func(t *testing.T) {
		rec, resp := f.do(t, http.MethodPost, "/spendings", gin.H{"cash_box_id": till, "sum": "1000.01"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, dto.ErrCodeInsufficientFunds, resp.Error.Code)
		assert.Equal(t, "1000.00", f.balance(t, till))
	})

	t.Run("non-positive sum fails validation", func(t *testing.T) {
		rec, resp := f.do(t, http.MethodPost, "/spendings", gin.H{"cash_box_id": till, "sum": "0"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	})

	t.Run("transfer", func(t *testing.T) {
		rec, _ := f.do(t, http.MethodPost, "/transfers", gin.H{
			"from_cash_box_id": till, "to_cash_box_id": safe, "sum": "300",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "700.00", f.balance(t, till))
		assert.Equal(t, "300.00", f.balance(t, safe))

		rec, resp := f.do(t, http.MethodPost, "/transfers", gin.H{
			"from_cash_box_id": till, "to_cash_box_id": till, "sum": "1",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, dto.ErrCodeSameCashBox, resp.Error.Code)
	})

	t.Run("spent loan cannot be deleted", func(t *testing.T) {
		rec, resp := f.do(t, http.MethodDelete, "/receipts/"+receiptID, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, dto.ErrCodeInsufficientFunds, resp.Error.Code)
	})
}

func TestContractEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	till := f.createBox(t, "Till")
	c := contract.NewContract(f.scope, "C-7", valueobject.MustMoney("500"), nil)
	f.store.AddContract(c)

	rec, _ := f.do(t, http.MethodPost, "/receipts/contract", gin.H{
		"cash_box_id": till, "contract_id": c.ID.String(), "sum": "500",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, resp := f.do(t, http.MethodPost, "/contracts/"+c.ID.String()+"/recalc", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := resp.Data.(map[string]any)
	assert.Equal(t, "500.00", data["paid_amount"].(map[string]any)["amount"])
	assert.Equal(t, false, data["changed"])

	rec, resp = f.do(t, http.MethodPost, "/contracts/recalc-all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, resp.Data.(map[string]any)["processed"])
}

func TestPayrollAndReportEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	rec, resp := f.do(t, http.MethodGet, "/payroll/accruals?page=1&page_size=10", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, resp.Meta)
	assert.EqualValues(t, 0, resp.Meta.Total)

	rec, _ = f.do(t, http.MethodGet, "/payroll/accruals?user_id=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/payroll/payouts", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/payroll/payouts", gin.H{"user_id": uuid.NewString()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp = f.do(t, http.MethodPost, "/reports/periods/2026/3/close", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "CLOSED", resp.Data.(map[string]any)["status"])

	rec, _ = f.do(t, http.MethodPost, "/reports/periods/2026/13/close", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/reports/cashflow/monthly?year=2026", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBaseHandler_HandleError(t *testing.T) {
	var h handler.BaseHandler
	engine := gin.New()
	engine.GET("/timeout", func(c *gin.Context) { h.HandleError(c, shared.ErrOperationTimedOut) })
	engine.GET("/wrapped", func(c *gin.Context) {
		h.HandleError(c, errors.Join(errors.New("ctx"), shared.ErrPeriodClosed))
	})
	engine.GET("/plain", func(c *gin.Context) { h.HandleError(c, errors.New("db exploded")) })

	serve := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := serve("/timeout")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), dto.ErrCodeOperationTimedOut)

	rec = serve("/wrapped")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), dto.ErrCodePeriodClosed)

	rec = serve("/plain")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db exploded")
}

type stubPinger struct{ err error }

func (p stubPinger) Ping() error { return p.err }

func TestHealthHandler(t *testing.T) {
	for _, tc := range []struct {
		name   string
		err    error
		status int
	}{
		{"healthy", nil, http.StatusOK},
		{"database down", errors.New("connection refused"), http.StatusServiceUnavailable},
	} {
		t.Run(tc.name, func(t *testing.T) {
			engine := gin.New()
			engine.GET("/health", handler.NewHealthHandler(stubPinger{tc.err}, "test").Check)

			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}
