package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/bookwell/bookwell/internal/reqctx"
)

// RequestContext attaches a fresh request context to every request before
// anything else runs. Later middleware and handlers mutate it in place, so
// goroutines that captured the context see auth values filled in after
// they were spawned.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		rc := reqctx.New(c.ClientIP(), c.Request.UserAgent())
		c.Request = c.Request.WithContext(reqctx.With(c.Request.Context(), rc))
		c.Header("X-Request-ID", rc.RequestID())
		c.Next()
	}
}

// Identity populates the request context from the gateway-verified identity
// headers. The service sits behind an auth gateway that strips these
// headers from external traffic and injects them for authenticated calls.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		rc := reqctx.From(c.Request.Context())
		if rc == nil {
			c.Next()
			return
		}

		if v := c.GetHeader("X-User-ID"); v != "" {
			rc.SetUserID(v)
		}
		if v := c.GetHeader("X-Organization-ID"); v != "" {
			rc.SetOrganizationID(v)
		}
		if v := c.GetHeader("X-API-Key-ID"); v != "" {
			rc.SetAPIKeyID(v)
		}
		c.Next()
	}
}
