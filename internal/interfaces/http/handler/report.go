package handler

import (
	"context"
	"strconv"
	"time"

	appreport "github.com/erp/backoffice/internal/application/report"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// ReportHandler handles cashflow aggregates and reporting periods
type ReportHandler struct {
	BaseHandler
	builder *appreport.CashflowBuilder
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(builder *appreport.CashflowBuilder) *ReportHandler {
	return &ReportHandler{builder: builder}
}

// MonthlyQuery selects the report year
type MonthlyQuery struct {
	Year int `form:"year" binding:"omitempty,min=2000,max=2100"`
}

// Rebuild recomputes cashflow aggregates for a date range
//
//	@Summary	Rebuild cashflow aggregates
//	@Tags		reports
//	@Router		/reports/cashflow/rebuild [post]
func (h *ReportHandler) Rebuild(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var req appreport.RebuildRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if req.To.Before(req.From) {
		h.BadRequest(c, "from must not be after to")
		return
	}

	result, err := h.builder.Rebuild(c.Request.Context(), scope, req.From, req.To, req.Force)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Monthly returns the monthly cashflow rows of ?year= (default current year)
//
//	@Summary	Monthly cashflow
//	@Tags		reports
//	@Router		/reports/cashflow/monthly [get]
func (h *ReportHandler) Monthly(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var q MonthlyQuery
	if !h.bindQuery(c, &q) {
		return
	}
	if q.Year == 0 {
		q.Year = time.Now().Year()
	}

	rows, err := h.builder.Monthly(c.Request.Context(), scope, q.Year)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rows)
}

// ClosePeriod closes a reporting month
//
//	@Summary	Close a reporting period
//	@Tags		reports
//	@Router		/reports/periods/{year}/{month}/close [post]
func (h *ReportHandler) ClosePeriod(c *gin.Context) {
	h.setPeriod(c, h.builder.ClosePeriod)
}

// OpenPeriod reopens a closed month
//
//	@Summary	Open a reporting period
//	@Tags		reports
//	@Router		/reports/periods/{year}/{month}/open [post]
func (h *ReportHandler) OpenPeriod(c *gin.Context) {
	h.setPeriod(c, h.builder.OpenPeriod)
}

func (h *ReportHandler) setPeriod(c *gin.Context, apply func(ctx context.Context, scope shared.RequestScope, year, month int) (*appreport.PeriodResponse, error)) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	year, month, ok := h.period(c)
	if !ok {
		return
	}

	period, err := apply(c.Request.Context(), scope, year, month)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, period)
}

// period parses :year and :month
func (h *ReportHandler) period(c *gin.Context) (int, int, bool) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 2000 || year > 2100 {
		h.BadRequest(c, "Invalid year")
		return 0, 0, false
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil || month < 1 || month > 12 {
		h.BadRequest(c, "Invalid month: must be 1-12")
		return 0, 0, false
	}
	return year, month, true
}
