package api

import (
	"net/http"
	"strconv"

	"scanela-billing/internal/database"
	"scanela-billing/internal/middleware"
	"scanela-billing/internal/models"
	"scanela-billing/internal/response"
	"scanela-billing/pkg/logging"

	"github.com/gin-gonic/gin"
)

// PaymentHistoryResponse represents payment history response
type PaymentHistoryResponse struct {
	Events []models.PaymentEvent `json:"events"`
	Total  int64                 `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

// GetPaymentHistory lists the caller's billing events, newest first
// GET /api/billing/history?limit=20&offset=0
func (h *Handler) GetPaymentHistory(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid limit")
		return
	}
	if limit > 100 {
		limit = 100
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid offset")
		return
	}

	events, total, err := database.ListPaymentEventsByUser(c.Request.Context(), principal.ID, limit, offset)
	if err != nil {
		logging.Errorf("Failed to get payment history - user_id: %s, error: %v", principal.ID, err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to get payment history")
		return
	}
	if events == nil {
		events = []models.PaymentEvent{}
	}

	c.JSON(http.StatusOK, PaymentHistoryResponse{
		Events: events,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}
