package middleware

import (
	"fmt"
	"net/http"

	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BodyLimit caps ledger write payloads at maxBytes. A declared
// Content-Length over the cap is refused up front; chunked bodies fail on
// the read that crosses it.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	tooLarge := fmt.Sprintf("Request body is larger than %d bytes", maxBytes)

	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.Body == http.NoBody {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			abortJSON(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, tooLarge)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
