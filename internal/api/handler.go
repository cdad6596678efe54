package api

import (
	"errors"
	"net/http"

	"scanela-billing/internal/response"
	"scanela-billing/internal/services"

	"github.com/gin-gonic/gin"
)

// Handler serves every HTTP endpoint of the billing service.
type Handler struct {
	Verifier  *services.SignatureVerifier
	Processor *services.WebhookProcessor
	Billing   *services.BillingService
	Plans     *services.PlanService
	Events    *services.EventLogger
	Auth      services.Authenticator
	AdminKey  string
}

// writeServiceError maps a service error onto the HTTP status of its class.
// Unclassified failures answer a generic 500 unless surfaceDetail is set, in
// which case the error text (the Paddle message for API errors) is returned.
// Missing price configuration is always a generic 500.
func writeServiceError(c *gin.Context, err error, surfaceDetail bool) {
	var apiErr *services.PaddleAPIError
	switch {
	case errors.Is(err, services.ErrInvalidPlan):
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid plan")
	case errors.Is(err, services.ErrInvalidInterval):
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid interval")
	case errors.Is(err, services.ErrNoActiveSubscription):
		response.ErrorJSON(c, http.StatusBadRequest, "No active subscription")
	case errors.Is(err, services.ErrUnauthorized):
		response.ErrorJSON(c, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, services.ErrPriceNotConfigured), errors.Is(err, services.ErrProviderNotConfigured):
		response.ErrorJSON(c, http.StatusInternalServerError, "Internal server error")
	case errors.Is(err, services.ErrProviderTimeout):
		response.ErrorJSON(c, http.StatusInternalServerError, "Payment provider timeout")
	case !surfaceDetail:
		response.ErrorJSON(c, http.StatusInternalServerError, "Internal server error")
	case errors.As(err, &apiErr):
		response.ErrorJSON(c, http.StatusInternalServerError, apiErr.Message)
	default:
		response.ErrorJSON(c, http.StatusInternalServerError, err.Error())
	}
}
