package middleware

import (
	"github.com/gin-gonic/gin"

	"bartally/internal/infrastructure/storage/postgres"
)

// HeaderServiceKey carries a machine collaborator's key: "<key-id>.<secret>".
const HeaderServiceKey = "X-Service-Key"

// ServiceKeyAuth authenticates machine collaborators pushing ledger batches.
// A request without the header falls through to fallback (normally the bearer
// middleware), so operators can hit the same endpoints with a user token.
//
// Runs after TenantDB: key verification reads the tenant's own key table.
func ServiceKeyAuth(store *postgres.ServiceKeyStore, fallback gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(HeaderServiceKey)
		if token == "" {
			if fallback != nil {
				fallback(c)
				return
			}
			abortUnauthorized(c, "service key required")
			return
		}

		sourceSystem, err := store.Verify(c.Request.Context(), token)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		// The handler prefers this over any system name the body claims
		c.Set("source_system", sourceSystem)
		c.Next()
	}
}
