package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// NewRelicAttributes annotates the transaction started by nrgin with the
// ledger identifiers of the request and reports handler errors. It must run
// after nrgin.Middleware and is a no-op when New Relic is disabled.
func NewRelicAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		txn := nrgin.Transaction(c)
		if txn == nil {
			return
		}

		if id := c.Param("id"); id != "" {
			txn.AddAttribute("trip_id", id)
		}
		if key := c.Param("key"); key != "" {
			txn.AddAttribute("driver_key", key)
		}
		if requestID := c.GetString(RequestIDKey); requestID != "" {
			txn.AddAttribute("request_id", requestID)
		}

		// Record error if present.
		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
