package api

import (
	"net/http"

	"scanela-billing/internal/database"
	"scanela-billing/internal/middleware"
	"scanela-billing/internal/models"
	"scanela-billing/internal/plans"
	"scanela-billing/internal/response"
	"scanela-billing/pkg/logging"

	"github.com/gin-gonic/gin"
)

// CheckoutRequest represents a checkout request
type CheckoutRequest struct {
	PlanID   string `json:"planId"`
	Interval string `json:"interval"`
}

// CancelRequest represents a cancellation request
type CancelRequest struct {
	Immediate bool `json:"immediate"`
}

// SubscriptionView is the stored row plus the tier resolved from it.
type SubscriptionView struct {
	*models.Subscription
	NormalizedPlan plans.Tier `json:"normalized_plan"`
}

func newSubscriptionView(sub *models.Subscription) *SubscriptionView {
	if sub == nil {
		return nil
	}
	return &SubscriptionView{Subscription: sub, NormalizedPlan: sub.Tier()}
}

// CreateCheckout handles POST /api/billing/checkout
func (h *Handler) CreateCheckout(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	result, err := h.Billing.CreateCheckout(c.Request.Context(), principal, req.PlanID, req.Interval)
	if err != nil {
		writeServiceError(c, err, false)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CancelSubscription handles POST /api/billing/cancel
func (h *Handler) CancelSubscription(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	// an empty body means a scheduled cancellation
	var req CancelRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format")
			return
		}
	}

	result, err := h.Billing.Cancel(c.Request.Context(), principal, req.Immediate)
	if err != nil {
		writeServiceError(c, err, true)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SyncSubscription handles POST /api/billing/sync
func (h *Handler) SyncSubscription(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	sub, err := h.Billing.Sync(c.Request.Context(), principal)
	if err != nil {
		writeServiceError(c, err, false)
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscription": newSubscriptionView(sub)})
}

// GetSubscription handles GET /api/billing/subscription
func (h *Handler) GetSubscription(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	sub, err := database.FindSubscriptionByUserID(c.Request.Context(), principal.ID)
	if err != nil {
		logging.Errorf("Failed to load subscription - user_id: %s, error: %v", principal.ID, err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to load subscription")
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscription": newSubscriptionView(sub)})
}

// GetPlan handles GET /api/billing/plan
func (h *Handler) GetPlan(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	tier, err := h.Plans.CurrentPlan(c.Request.Context(), principal.ID)
	if err != nil {
		logging.Errorf("Failed to resolve plan - user_id: %s, error: %v", principal.ID, err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to resolve plan")
		return
	}

	c.JSON(http.StatusOK, gin.H{"plan": tier})
}
