package delivery

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type addMonthRequest struct {
	Name        string `json:"month_name" binding:"required"`
	Year        int    `json:"year" binding:"required"`
	MonthNumber int    `json:"month_number" binding:"required"`
}

type expenseRequest struct {
	Type  string          `json:"type"`
	Value decimal.Decimal `json:"value"`
}

type revenueRequest struct {
	Type   string          `json:"type"`
	Value  decimal.Decimal `json:"value"`
	ROI    decimal.Decimal `json:"roi"`
	Orders int             `json:"orders"`
}

func (h *HTTPHandlers) ListMonths(c *gin.Context) {
	months, err := h.revenue.ListMonths(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "months", months)
}

func (h *HTTPHandlers) AddMonth(c *gin.Context) {
	var req addMonthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	month, err := h.revenue.AddMonth(c.Request.Context(), req.Name, req.Year, req.MonthNumber)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "month", month)
}

func (h *HTTPHandlers) GetMonth(c *gin.Context) {
	month, err := h.revenue.GetMonth(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "month", month)
}

func (h *HTTPHandlers) GetMonthSummary(c *gin.Context) {
	summary, err := h.revenue.MonthSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "summary", newSummaryView(summary))
}

func (h *HTTPHandlers) AddExpense(c *gin.Context) {
	var req expenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	expense, err := h.revenue.AddExpense(c.Request.Context(), c.Param("id"), req.Type, req.Value)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "expense", expense)
}

func (h *HTTPHandlers) UpdateExpense(c *gin.Context) {
	var req expenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	expense, err := h.revenue.UpdateExpense(c.Request.Context(), c.Param("id"), req.Value)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "expense", expense)
}

func (h *HTTPHandlers) DeleteExpense(c *gin.Context) {
	if err := h.revenue.DeleteExpense(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandlers) AddRevenue(c *gin.Context) {
	var req revenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	revenue, err := h.revenue.AddRevenue(c.Request.Context(), c.Param("id"), req.Type, req.Value, req.ROI, req.Orders)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "revenue", revenue)
}

func (h *HTTPHandlers) UpdateRevenue(c *gin.Context) {
	var req revenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	revenue, err := h.revenue.UpdateRevenue(c.Request.Context(), c.Param("id"), req.Value, req.ROI, req.Orders)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "revenue", revenue)
}

func (h *HTTPHandlers) DeleteRevenue(c *gin.Context) {
	if err := h.revenue.DeleteRevenue(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandlers) GetTotalSummary(c *gin.Context) {
	summary, err := h.revenue.TotalSummary(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "summary", newTotalSummaryView(summary))
}

func (h *HTTPHandlers) GetMonthlyTrend(c *gin.Context) {
	trend, err := h.revenue.MonthlyTrend(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "trend", trend)
}

func (h *HTTPHandlers) GetROIByChannel(c *gin.Context) {
	channels, err := h.revenue.ROIByChannel(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "channels", channels)
}

func (h *HTTPHandlers) GetExpensesByType(c *gin.Context) {
	totals, err := h.revenue.ExpensesByType(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "totals", totals)
}

func (h *HTTPHandlers) GetRevenuesByType(c *gin.Context) {
	totals, err := h.revenue.RevenuesByType(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "totals", totals)
}
