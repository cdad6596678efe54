package api

import (
	"errors"
	"net/http"
	"time"

	"scanela-billing/internal/metrics"
	"scanela-billing/internal/response"
	"scanela-billing/internal/services"
	"scanela-billing/pkg/logging"

	"github.com/gin-gonic/gin"
)

// PaddleSignatureHeader carries ts=<unix>;h1=<hex>.
const PaddleSignatureHeader = "Paddle-Signature"

// MaxWebhookBodyBytes caps what is read before the signature is checked.
const MaxWebhookBodyBytes = 1 << 20

// PaddleWebhook handles POST /api/webhooks/paddle.
//
// Only a missing or bad signature and an unparseable body are answered with
// 400. Once an event is parsed the delivery is acknowledged with 200 even if
// handling fails.
func (h *Handler) PaddleWebhook(c *gin.Context) {
	startTime := time.Now()
	defer func() { metrics.ObserveWebhookDuration(time.Since(startTime)) }()

	signatureHeader := c.GetHeader(PaddleSignatureHeader)
	if signatureHeader == "" {
		logging.Errorf("Paddle webhook rejected: missing %s header", PaddleSignatureHeader)
		metrics.IncWebhookEvent("unknown", "missing_signature")
		response.ErrorJSON(c, http.StatusBadRequest, "Missing signature")
		return
	}

	// Raw bytes are required: the signature covers the body exactly as sent
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxWebhookBodyBytes)
	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logging.Errorf("Paddle webhook rejected: body exceeds %d bytes", tooLarge.Limit)
			metrics.IncWebhookEvent("unknown", "body_too_large")
			response.ErrorJSON(c, http.StatusBadRequest, "Request body too large")
			return
		}
		logging.Errorf("Failed to read webhook body: %v", err)
		response.ErrorJSON(c, http.StatusBadRequest, "Failed to read request body")
		return
	}

	if err := h.Verifier.Check(signatureHeader, body); err != nil {
		logging.Errorf("Paddle webhook signature verification failed, body length: %d, error: %v", len(body), err)
		metrics.IncWebhookEvent("unknown", "invalid_signature")
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid signature")
		return
	}

	event, err := services.ParseEvent(body)
	if err != nil {
		logging.Errorf("Failed to parse Paddle webhook: %v", err)
		metrics.IncWebhookEvent("unknown", "invalid_payload")
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid payload")
		return
	}

	outcome, err := h.Processor.Process(c.Request.Context(), event, body)
	if err != nil {
		logging.Errorf("Paddle webhook handling failed - event_id: %s, type: %s, error: %v", event.EventID, event.EventType, err)
	}
	metrics.IncWebhookEvent(event.EventType, outcome)

	logging.Infof("Paddle webhook handled - event_id: %s, type: %s, outcome: %s, took: %v",
		event.EventID, event.EventType, outcome, time.Since(startTime))

	c.JSON(http.StatusOK, gin.H{"received": true})
}
