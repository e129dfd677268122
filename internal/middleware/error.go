package middleware

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/dental-scheduler/pkg/errors"
	"github.com/jwalitptl/dental-scheduler/pkg/httputil"
	"github.com/jwalitptl/dental-scheduler/pkg/logger"
)

// ErrorLogger logs the causes of internal errors attached by handlers. The
// client only ever sees a generic message for those.
func ErrorLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		for _, e := range c.Errors {
			if apperrors.KindOf(e.Err) != apperrors.KindInternal {
				continue
			}
			log.ZL.Error().
				Err(e.Err).
				Str("trace_id", c.GetString(httputil.ContextRequestID)).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Str("client_ip", c.ClientIP()).
				Msg("Request error")
		}
	}
}
