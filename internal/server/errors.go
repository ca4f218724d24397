package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/structural-analysis/internal/async"
	"github.com/joseph-ayodele/structural-analysis/internal/common"
)

func errorBody(code, message string) gin.H {
	return gin.H{"error": gin.H{"code": code, "message": message}}
}

// httpStatus maps a service error to its status code.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, async.ErrQueueClosed):
		return http.StatusServiceUnavailable
	case common.IsUserError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error body. Internal errors are logged and not echoed.
func (s *Server) fail(c *gin.Context, op string, err error) {
	status := httpStatus(err)
	code := common.ErrorCode(err)
	msg := err.Error()
	switch {
	case errors.Is(err, common.ErrAnalysisInProgress):
		msg = common.ErrAnalysisInProgress.Error()
	case status >= http.StatusInternalServerError && status != http.StatusNotImplemented:
		s.log(c).Error(op+" failed", "error", err)
		msg = "internal error"
		if status == http.StatusServiceUnavailable {
			code, msg = "UNAVAILABLE", "service is shutting down"
		}
	default:
		s.log(c).Info(op+" rejected", "code", code, "error", err)
	}
	c.AbortWithStatusJSON(status, errorBody(code, msg))
}

// pathID parses the :id parameter. It writes a 400 and returns false when
// the id is not a UUID.
func (s *Server) pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	raw := c.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		s.fail(c, "parse "+name, fmt.Errorf("%s id %q must be a UUID: %w", name, raw, common.ErrInvalidInput))
		return uuid.Nil, false
	}
	return id, true
}
