package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"scanela-billing/internal/metrics"
	"scanela-billing/internal/models"
	"scanela-billing/pkg/logging"
)

// PaddleClient calls the Paddle Billing REST API.
type PaddleClient struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewPaddleClient creates a client. Every call is bounded by timeout.
func NewPaddleClient(apiKey, baseURL string, timeout time.Duration) *PaddleClient {
	if baseURL == "" {
		baseURL = "https://api.paddle.com"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PaddleClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

type paddleAPIErrorBody struct {
	Code    string `json:"code"`
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

type paddleAPIEnvelope struct {
	Data  json.RawMessage    `json:"data"`
	Error paddleAPIErrorBody `json:"error"`
}

type transactionItem struct {
	PriceID  string `json:"price_id"`
	Quantity int    `json:"quantity"`
}

type transactionRequest struct {
	Items      []transactionItem `json:"items"`
	CustomData map[string]string `json:"custom_data,omitempty"`
	Checkout   *checkoutSettings `json:"checkout,omitempty"`
}

type checkoutSettings struct {
	URL string `json:"url,omitempty"`
}

type transactionResponse struct {
	ID       string `json:"id"`
	Checkout struct {
		URL string `json:"url"`
	} `json:"checkout"`
}

// CheckoutTransaction is the part of a created transaction the caller needs.
type CheckoutTransaction struct {
	ID  string
	URL string
}

// CreateTransaction opens a checkout for one unit of priceID. customData is
// echoed back on every webhook about the resulting subscription.
func (c *PaddleClient) CreateTransaction(ctx context.Context, priceID string, customData map[string]string, successURL string) (*CheckoutTransaction, error) {
	payload := transactionRequest{
		Items:      []transactionItem{{PriceID: priceID, Quantity: 1}},
		CustomData: customData,
	}
	if successURL != "" {
		payload.Checkout = &checkoutSettings{URL: successURL}
	}

	data, err := c.call(ctx, "create_transaction", http.MethodPost, "/transactions", payload)
	if err != nil {
		return nil, err
	}

	var tx transactionResponse
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	if tx.Checkout.URL == "" {
		return nil, fmt.Errorf("paddle response missing checkout url")
	}
	return &CheckoutTransaction{ID: tx.ID, URL: tx.Checkout.URL}, nil
}

// GetSubscription fetches the current state of a subscription.
func (c *PaddleClient) GetSubscription(ctx context.Context, subscriptionID string) (models.PaddleData, error) {
	data, err := c.call(ctx, "get_subscription", http.MethodGet, "/subscriptions/"+url.PathEscape(subscriptionID), nil)
	if err != nil {
		return nil, err
	}
	return decodePaddleData(data)
}

// CancelSubscription cancels now or at the end of the billing period.
func (c *PaddleClient) CancelSubscription(ctx context.Context, subscriptionID string, immediate bool) (models.PaddleData, error) {
	effectiveFrom := "next_billing_period"
	if immediate {
		effectiveFrom = "immediately"
	}
	data, err := c.call(ctx, "cancel_subscription", http.MethodPost,
		"/subscriptions/"+url.PathEscape(subscriptionID)+"/cancel",
		map[string]string{"effective_from": effectiveFrom})
	if err != nil {
		return nil, err
	}
	return decodePaddleData(data)
}

func decodePaddleData(raw json.RawMessage) (models.PaddleData, error) {
	out := models.PaddleData{}
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode paddle data: %w", err)
	}
	return out, nil
}

func (c *PaddleClient) call(ctx context.Context, op, method, path string, payload interface{}) (json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, ErrProviderNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader = http.NoBody
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal paddle payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build paddle request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			metrics.IncPaddleRequest(op, "timeout")
			logging.Errorf("Paddle API timeout - op: %s, after: %s", op, c.timeout)
			return nil, fmt.Errorf("%s: %w", op, ErrProviderTimeout)
		}
		metrics.IncPaddleRequest(op, "error")
		return nil, fmt.Errorf("paddle API request failed: %w", err)
	}
	defer resp.Body.Close()

	metrics.IncPaddleRequest(op, strconv.Itoa(resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read paddle response: %w", err)
	}

	var parsed paddleAPIEnvelope
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &parsed); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("decode paddle response: %w", err)
		}
	}

	if resp.StatusCode >= 300 {
		msg := firstNonEmptyString(parsed.Error.Detail, parsed.Error.Message, string(respBody), resp.Status)
		logging.Errorf("Paddle API error - op: %s, status: %d, code: %s, message: %s", op, resp.StatusCode, parsed.Error.Code, msg)
		return nil, &PaddleAPIError{StatusCode: resp.StatusCode, Code: parsed.Error.Code, Message: msg}
	}

	return parsed.Data, nil
}
