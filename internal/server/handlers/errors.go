package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anmoldairy/dairy/internal/pagination"
	"github.com/anmoldairy/dairy/internal/repository"
	"github.com/anmoldairy/dairy/internal/service/dairy"
	"github.com/anmoldairy/dairy/internal/service/reporting"
	whatsappsvc "github.com/anmoldairy/dairy/internal/service/whatsapp"
	"github.com/anmoldairy/dairy/pkg/clients/backend"
)

// errBadRequest marks malformed path or query parameters.
var errBadRequest = errors.New("bad request")

const dateLayout = "2006-01-02"

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, dairy.ErrInvalidInput),
		errors.Is(err, reporting.ErrInvalidDateRange):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrDuplicateCustomerID),
		errors.Is(err, repository.ErrDuplicateProduct),
		errors.Is(err, repository.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, whatsappsvc.ErrNoRecipient):
		return http.StatusUnprocessableEntity
	case errors.Is(err, backend.ErrRemote),
		errors.Is(err, pagination.ErrPageLimit),
		errors.Is(err, whatsappsvc.ErrSendFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		if status == http.StatusInternalServerError {
			c.JSON(status, gin.H{"error": "internal error"})
			return
		}
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func int64Param(c *gin.Context, name string) (int64, error) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", errBadRequest, name)
	}
	return v, nil
}

func pageQuery(c *gin.Context) (int, error) {
	raw := c.DefaultQuery("page", "0")
	page, err := strconv.Atoi(raw)
	if err != nil || page < 0 {
		return 0, fmt.Errorf("%w: page must be a non-negative number", errBadRequest)
	}
	return page, nil
}

// dateQuery parses an optional YYYY-MM-DD query value in loc.
func dateQuery(c *gin.Context, name string, loc *time.Location) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a date in YYYY-MM-DD format", errBadRequest, name)
	}
	return &t, nil
}
