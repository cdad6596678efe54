package api

import (
	"scanela-billing/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine, h *Handler) {
	api := r.Group("/api")
	{
		// Paddle calls this; authenticity comes from the signature header
		api.POST("/webhooks/paddle", h.PaddleWebhook)

		billing := api.Group("/billing")
		billing.Use(middleware.BearerAuthMiddleware(h.Auth))
		{
			billing.POST("/checkout", h.CreateCheckout)
			billing.POST("/cancel", h.CancelSubscription)
			billing.POST("/sync", h.SyncSubscription)
			billing.GET("/subscription", h.GetSubscription)
			billing.GET("/plan", h.GetPlan)
			billing.GET("/history", h.GetPaymentHistory)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.AdminKeyMiddleware(h.AdminKey))
		{
			admin.PUT("/users/:id/plan", h.SetUserPlan)
			admin.POST("/events/test", h.TriggerTestEvent)
		}
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "scanela-billing",
		})
	})
}
