package services

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSignature is returned when a webhook signature is missing or wrong
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrInvalidPayload is returned when a webhook body cannot be parsed
	ErrInvalidPayload = errors.New("invalid webhook payload")

	// ErrUnauthorized is returned for any missing, malformed or rejected bearer token
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidPlan is returned when a checkout names something other than a paid tier
	ErrInvalidPlan = errors.New("invalid plan")

	// ErrInvalidInterval is returned for an interval other than monthly or annual
	ErrInvalidInterval = errors.New("invalid interval")

	// ErrPriceNotConfigured is returned when no Paddle price id is configured for a plan
	ErrPriceNotConfigured = errors.New("price not configured")

	// ErrNoActiveSubscription is returned when the user has no Paddle subscription on file
	ErrNoActiveSubscription = errors.New("no active subscription")

	// ErrProviderTimeout is returned when a Paddle API call exceeds its deadline
	ErrProviderTimeout = errors.New("payment provider timeout")

	// ErrProviderNotConfigured is returned when PADDLE_API_KEY is empty
	ErrProviderNotConfigured = errors.New("payment provider not configured")
)

// PaddleAPIError is a non-2xx answer from the Paddle API.
type PaddleAPIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *PaddleAPIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("paddle API error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("paddle API error (%d): %s", e.StatusCode, e.Message)
}
