package middleware

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// ConfigCORS allows the given origins. An empty list or "*" allows any
// origin.
func ConfigCORS(allowedOrigins []string) gin.HandlerFunc {
	conf := cors.DefaultConfig()
	if len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
		conf.AllowAllOrigins = true
	} else {
		conf.AllowOrigins = allowedOrigins
	}
	conf.AllowHeaders = append(conf.AllowHeaders, "Authorization", "X-Request-ID")
	conf.ExposeHeaders = []string{"X-Request-ID"}
	conf.MaxAge = 12 * time.Hour

	return cors.New(conf)
}
