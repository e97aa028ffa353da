package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	appctx "outletstock/internal/core/context"
)

const (
	// HeaderOperator names the person acting; it is trusted as sent.
	HeaderOperator = "X-Operator"
	// HeaderViewID identifies the client view issuing ledger requests.
	HeaderViewID = "X-View-ID"
)

// RequestIdentity copies the operator and view headers into the request
// context for the domain layer.
func RequestIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if op := strings.TrimSpace(c.GetHeader(HeaderOperator)); op != "" {
			ctx = appctx.WithOperator(ctx, op)
		}
		if view := strings.TrimSpace(c.GetHeader(HeaderViewID)); view != "" {
			ctx = appctx.WithViewID(ctx, view)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
