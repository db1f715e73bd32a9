package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/fieldops/dcinstall-api/internal/audit"
)

// AuditContext propagates the authenticated actor and request metadata into
// the request context so the audit recorder can attribute entries. Must run
// after Auth on protected routes; on public routes it still attaches the
// request metadata.
func AuditContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if claims := GetClaims(c); claims != nil {
			ctx = audit.WithActor(ctx, &audit.Actor{
				ID:    claims.UserID,
				Name:  claims.FullName,
				Email: claims.Email,
				Role:  claims.Role,
			})
		}

		ctx = audit.WithRequestInfo(ctx, &audit.RequestInfo{
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			URL:       c.Request.URL.Path,
			Method:    c.Request.Method,
		})

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
