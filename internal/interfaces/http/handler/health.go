package handler

import (
	"net/http"
	"time"

	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping() error
}

// HealthHandler reports service liveness
type HealthHandler struct {
	BaseHandler
	db      Pinger
	version string
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db Pinger, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version}
}

// HealthResponse is the body of /health
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Check pings the database
//
//	@Summary	Health check
//	@Tags		system
//	@Router		/health [get]
func (h *HealthHandler) Check(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Timestamp: time.Now().UTC(),
		Checks:    map[string]string{"database": "ok"},
	}
	if err := h.db.Ping(); err != nil {
		resp.Status = "unhealthy"
		resp.Checks["database"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, dto.Response{Success: false, Data: resp})
		return
	}
	h.Success(c, resp)
}
