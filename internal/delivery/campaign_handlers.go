package delivery

import (
	"net/http"

	"campaignledger/internal/domain"
	"campaignledger/internal/usecase"

	"github.com/gin-gonic/gin"
)

type createCampaignRequest struct {
	Name         string              `json:"campaign_name" binding:"required"`
	StartDate    *domain.Date        `json:"start_date" binding:"required"`
	EndDate      *domain.Date        `json:"end_date" binding:"required"`
	CreatedBy    string              `json:"created_by"`
	CalendarType domain.CalendarType `json:"calendar_type"`
	LogoPath     string              `json:"logo_path"`
}

type softDeleteRequest struct {
	DeletedBy string `json:"deleted_by"`
}

// ListCampaigns returns active campaigns, or trashed ones with ?status=trashed
func (h *HTTPHandlers) ListCampaigns(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		campaigns []domain.Campaign
		err       error
	)
	switch c.DefaultQuery("status", "active") {
	case "active":
		campaigns, err = h.campaigns.ListActive(ctx)
	case "trashed":
		campaigns, err = h.campaigns.ListTrashed(ctx)
	default:
		h.badRequest(c, "status must be active or trashed")
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "campaigns", newCampaignViews(campaigns))
}

func (h *HTTPHandlers) CreateCampaign(c *gin.Context) {
	var req createCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	campaign, err := h.campaigns.Create(c.Request.Context(), usecase.CreateCampaignInput{
		Name:         req.Name,
		StartDate:    *req.StartDate,
		EndDate:      *req.EndDate,
		CreatedBy:    req.CreatedBy,
		CalendarType: req.CalendarType,
		LogoPath:     req.LogoPath,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "campaign", newCampaignView(*campaign))
}

func (h *HTTPHandlers) GetCampaign(c *gin.Context) {
	campaign, err := h.campaigns.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "campaign", newCampaignView(*campaign))
}

// GetDashboard returns the current and upcoming campaigns for ?date or today
func (h *HTTPHandlers) GetDashboard(c *gin.Context) {
	today := h.campaigns.Today()
	if raw := c.Query("date"); raw != "" {
		parsed, err := domain.ParseDate(raw)
		if err != nil {
			h.badRequest(c, "Date must be in YYYY-MM-DD format")
			return
		}
		today = parsed
	}

	dashboard, err := h.campaigns.Dashboard(c.Request.Context(), today)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "dashboard", newDashboardView(dashboard))
}

func (h *HTTPHandlers) AddCampaignProduct(c *gin.Context) {
	var spec domain.ProductSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	line, err := h.campaigns.AddProduct(c.Request.Context(), c.Param("id"), spec)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "product", newProductView(*line))
}

func (h *HTTPHandlers) RemoveCampaignProduct(c *gin.Context) {
	if err := h.campaigns.RemoveProduct(c.Request.Context(), c.Param("id"), c.Param("name")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandlers) SoftDeleteCampaign(c *gin.Context) {
	var req softDeleteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, err.Error())
			return
		}
	}

	campaign, err := h.campaigns.SoftDelete(c.Request.Context(), c.Param("id"), req.DeletedBy)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "campaign", newCampaignView(*campaign))
}

func (h *HTTPHandlers) RestoreCampaign(c *gin.Context) {
	campaign, err := h.campaigns.Restore(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "campaign", newCampaignView(*campaign))
}

// PurgeCampaign permanently deletes a trashed campaign
func (h *HTTPHandlers) PurgeCampaign(c *gin.Context) {
	if err := h.campaigns.Purge(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// EmptyTrash purges every trashed campaign and reports per-campaign outcomes
func (h *HTTPHandlers) EmptyTrash(c *gin.Context) {
	report, err := h.campaigns.PurgeAllTrashed(c.Request.Context())
	if report == nil {
		h.respondError(c, err)
		return
	}

	status := http.StatusOK
	if err != nil {
		status = http.StatusMultiStatus
		h.logger.WithContext(c.Request.Context()).WithError(err).Warn("Some campaigns could not be purged")
	}
	respond(c, status, "report", report)
}
