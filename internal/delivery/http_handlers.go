package delivery

import (
	"errors"
	"net/http"
	"time"

	"campaignledger/internal/domain"
	"campaignledger/internal/usecase"
	"campaignledger/pkg/logger"

	"github.com/gin-gonic/gin"
)

// handles HTTP requests
type HTTPHandlers struct {
	campaigns *usecase.CampaignService
	revenue   *usecase.RevenueService
	pricing   *usecase.PricingService
	catalog   *usecase.CatalogService
	logger    *logger.Logger
}

// creates new HTTP handlers
func NewHTTPHandlers(
	campaigns *usecase.CampaignService,
	revenue *usecase.RevenueService,
	pricing *usecase.PricingService,
	catalog *usecase.CatalogService,
	logger *logger.Logger,
) *HTTPHandlers {
	return &HTTPHandlers{
		campaigns: campaigns,
		revenue:   revenue,
		pricing:   pricing,
		catalog:   catalog,
		logger:    logger,
	}
}

// HealthCheck reports liveness
func (h *HTTPHandlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": c.GetString("request_id"),
	})
}

// GetAPIInfo returns API v1 information and available endpoints
func (h *HTTPHandlers) GetAPIInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"api_version": "v1",
		"service":     "Campaign Ledger",
		"version":     "1.0.0",
		"description": "Campaign lifecycle, pricing plans and monthly revenue ledger",
		"endpoints": gin.H{
			"campaigns": "/api/v1/campaigns",
			"revenue":   "/api/v1/revenue",
			"plans":     "/api/v1/plans",
			"catalog":   "/api/v1/catalog",
		},
		"request_id": c.GetString("request_id"),
	})
}

// error kinds in the order they are matched
var errorStatuses = []struct {
	err    error
	status int
}{
	{domain.ErrValidation, http.StatusBadRequest},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrDuplicateMonth, http.StatusConflict},
	{domain.ErrDuplicateName, http.StatusConflict},
	{domain.ErrDuplicateProduct, http.StatusConflict},
	{domain.ErrAlreadyDeleted, http.StatusConflict},
	{domain.ErrNotDeleted, http.StatusConflict},
	{domain.ErrInvalidState, http.StatusConflict},
	{domain.ErrPersistence, http.StatusInternalServerError},
}

// respondError maps ledger errors to status codes
func (h *HTTPHandlers) respondError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			status, code = e.status, errorCode(e.err)
			break
		}
	}

	if status >= http.StatusInternalServerError {
		h.logger.WithContext(c.Request.Context()).WithError(err).WithField("path", c.FullPath()).Error("Request failed")
	}

	c.JSON(status, gin.H{
		"error":      code,
		"message":    err.Error(),
		"request_id": c.GetString("request_id"),
	})
}

// errorCode is the leading token of a sentinel's message.
func errorCode(err error) string {
	msg := err.Error()
	for i, r := range msg {
		if r == ':' {
			return msg[:i]
		}
	}
	return msg
}

func (h *HTTPHandlers) badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":      "VALIDATION_ERROR",
		"message":    message,
		"request_id": c.GetString("request_id"),
	})
}

// respond writes data under the given key alongside the request id
func respond(c *gin.Context, status int, key string, data any) {
	c.JSON(status, gin.H{
		key:          data,
		"request_id": c.GetString("request_id"),
	})
}
