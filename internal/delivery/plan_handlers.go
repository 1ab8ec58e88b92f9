package delivery

import (
	"net/http"
	"strconv"

	"campaignledger/internal/domain"
	"campaignledger/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createPlanRequest struct {
	Name            string           `json:"plan_name" binding:"required"`
	Description     string           `json:"description"`
	CampaignID      string           `json:"campaign_id"`
	MinProfitMargin *decimal.Decimal `json:"min_profit_margin"`
}

type catalogProductRequest struct {
	Name string           `json:"name" binding:"required"`
	Cost *decimal.Decimal `json:"cost"`
}

func (h *HTTPHandlers) ListPlans(c *gin.Context) {
	plans, err := h.pricing.ListPlans(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "plans", newPlanViews(plans))
}

func (h *HTTPHandlers) CreatePlan(c *gin.Context) {
	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	plan, err := h.pricing.CreatePlan(c.Request.Context(), usecase.CreatePlanInput{
		Name:            req.Name,
		Description:     req.Description,
		CampaignID:      req.CampaignID,
		MinProfitMargin: req.MinProfitMargin,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "plan", newPlanView(*plan))
}

func (h *HTTPHandlers) GetPlan(c *gin.Context) {
	plan, err := h.pricing.GetPlan(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "plan", newPlanView(*plan))
}

func (h *HTTPHandlers) DeletePlan(c *gin.Context) {
	if err := h.pricing.DeletePlan(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandlers) GetPlanSummary(c *gin.Context) {
	summary, err := h.pricing.PlanSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "summary", newPlanSummaryView(summary))
}

func (h *HTTPHandlers) AddPlanProduct(c *gin.Context) {
	var spec domain.ProductSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	line, err := h.pricing.AddProduct(c.Request.Context(), c.Param("id"), spec)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "product", newProductView(*line))
}

func (h *HTTPHandlers) AddPlanCatalogProduct(c *gin.Context) {
	var req catalogProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	line, err := h.pricing.AddCatalogProduct(c.Request.Context(), c.Param("id"), req.Name, req.Cost)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "product", newProductView(*line))
}

func (h *HTTPHandlers) UpdatePlanProduct(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		h.badRequest(c, "product index must be an integer")
		return
	}
	var spec domain.ProductSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	line, err := h.pricing.UpdateProduct(c.Request.Context(), c.Param("id"), index, spec)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "product", newProductView(*line))
}

func (h *HTTPHandlers) RemovePlanProduct(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		h.badRequest(c, "product index must be an integer")
		return
	}

	if err := h.pricing.RemoveProduct(c.Request.Context(), c.Param("id"), index); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandlers) ListCatalog(c *gin.Context) {
	entries, err := h.catalog.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "products", catalogView(entries))
}

func (h *HTTPHandlers) GetCatalogProduct(c *gin.Context) {
	entry, err := h.catalog.Lookup(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "product", catalogView([]domain.CatalogEntry{*entry})[0])
}

// catalogView exposes the entry name, which the stored form keys by.
func catalogView(entries []domain.CatalogEntry) []gin.H {
	out := make([]gin.H, len(entries))
	for i, e := range entries {
		out[i] = gin.H{
			"name":                   e.Name,
			"base_price":             e.BasePrice,
			"after_discount":         e.AfterDiscount,
			"after_code":             e.AfterCode,
			"base_discount_percent":  e.BaseDiscountPercent,
			"code_discount_percent":  e.CodeDiscountPercent,
			"total_discount_percent": e.TotalDiscountPercent(),
			"default_cost":           e.DefaultCost(),
		}
	}
	return out
}
