package middleware

import (
	"github.com/gin-gonic/gin"
)

const clientIPKey = "client_ip"

// ClientIP stores the caller address for audit entries. Proxy headers are
// honoured only for the proxies trusted by the engine.
func ClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(clientIPKey, c.ClientIP())
		c.Next()
	}
}

// GetIPFromContext retrieves the IP stored by ClientIP.
func GetIPFromContext(c *gin.Context) string {
	if ip, ok := c.Get(clientIPKey); ok {
		if s, ok := ip.(string); ok {
			return s
		}
	}
	return c.ClientIP()
}
