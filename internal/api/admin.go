package api

import (
	"net/http"

	"scanela-billing/internal/plans"
	"scanela-billing/internal/response"
	"scanela-billing/pkg/logging"

	"github.com/gin-gonic/gin"
)

// SetPlanRequest represents a manual plan change
type SetPlanRequest struct {
	Plan string `json:"plan" binding:"required"`
}

// SetUserPlan handles PUT /api/admin/users/:id/plan
func (h *Handler) SetUserPlan(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		response.ErrorJSON(c, http.StatusBadRequest, "User ID is required")
		return
	}

	var req SetPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}
	tier, ok := plans.ParseTier(req.Plan)
	if !ok {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid plan")
		return
	}

	if err := h.Plans.SetManualPlan(c.Request.Context(), userID, tier); err != nil {
		logging.Errorf("Manual plan change failed - user_id: %s, error: %v", userID, err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to update plan")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":     userID,
		"plan":        tier,
		"plan_source": plans.SourceManual,
	})
}

// TestEventRequest represents a manual test trigger
type TestEventRequest struct {
	UserID  string                 `json:"user_id"`
	Payload map[string]interface{} `json:"payload"`
}

// TriggerTestEvent handles POST /api/admin/events/test. It only writes an
// audit row so the event log can be checked end to end.
func (h *Handler) TriggerTestEvent(c *gin.Context) {
	var req TestEventRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
			return
		}
	}

	var userID *string
	if req.UserID != "" {
		userID = &req.UserID
	}
	h.Events.Log(c.Request.Context(), userID, "test.trigger", "", req.Payload)

	c.JSON(http.StatusOK, gin.H{"logged": true})
}
