// Package handler holds request parsing shared by the resource handlers.
package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-scheduler/pkg/httputil"
	"github.com/jwalitptl/dental-scheduler/pkg/validator"
)

// BindJSON decodes the body into req and validates it. On failure the
// response has been written and false is returned.
func BindJSON(c *gin.Context, v validator.Validator, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httputil.RespondWithMessage(c, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := v.Validate(req); err != nil {
		httputil.RespondWithError(c, err)
		return false
	}
	return true
}

// ParseID reads a positive integer path parameter.
func ParseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		httputil.RespondWithMessage(c, http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	return id, true
}

// QueryTime parses an RFC 3339 query parameter. Absent optional values are zero.
func QueryTime(c *gin.Context, name string, required bool) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		if required {
			httputil.RespondWithMessage(c, http.StatusBadRequest, fmt.Sprintf("%s is required", name))
			return time.Time{}, false
		}
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		httputil.RespondWithMessage(c, http.StatusBadRequest, fmt.Sprintf("%s must be an RFC 3339 timestamp", name))
		return time.Time{}, false
	}
	return t.UTC(), true
}

// QueryInt parses an optional integer query parameter, returning def when absent.
func QueryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		httputil.RespondWithMessage(c, http.StatusBadRequest, fmt.Sprintf("%s must be an integer", name))
		return 0, false
	}
	return n, true
}
