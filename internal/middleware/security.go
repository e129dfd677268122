package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityConfig represents security headers configuration
type SecurityConfig struct {
	HSTS          bool
	HSTSMaxAge    int
	FrameOptions  string
	CSPDirectives []string
}

// DefaultSecurityConfig suits a JSON API that never serves HTML.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		HSTS:          true,
		HSTSMaxAge:    31536000,
		FrameOptions:  "DENY",
		CSPDirectives: []string{"default-src 'none'", "frame-ancestors 'none'"},
	}
}

// SecurityHeaders adds security headers to responses. Responses are marked
// uncacheable since most of them carry patient data.
func SecurityHeaders(config SecurityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.HSTS {
			c.Header("Strict-Transport-Security", fmt.Sprintf("max-age=%d; includeSubDomains", config.HSTSMaxAge))
		}
		c.Header("X-Frame-Options", config.FrameOptions)
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Cache-Control", "no-store")
		if len(config.CSPDirectives) > 0 {
			c.Header("Content-Security-Policy", strings.Join(config.CSPDirectives, "; "))
		}
		c.Next()
	}
}
