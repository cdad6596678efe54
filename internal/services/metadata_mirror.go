package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"scanela-billing/internal/plans"
	"scanela-billing/pkg/logging"
)

// MetadataMirror copies a user's tier onto their auth identity so clients
// can read it without calling the billing service.
type MetadataMirror interface {
	SetPlan(ctx context.Context, userID string, tier plans.Tier) error
}

// NoopMetadataMirror is used when no auth provider is configured.
type NoopMetadataMirror struct{}

func (NoopMetadataMirror) SetPlan(_ context.Context, userID string, tier plans.Tier) error {
	logging.Debugf("Metadata mirror disabled - user_id: %s, plan: %s", userID, tier)
	return nil
}

// AuthAdminMirror writes user_metadata.plan through the auth provider's admin API.
type AuthAdminMirror struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

// NewAuthAdminMirror creates a mirror for the auth provider at baseURL
func NewAuthAdminMirror(baseURL, serviceKey string) *AuthAdminMirror {
	return &AuthAdminMirror{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type userMetadataUpdate struct {
	UserMetadata map[string]string `json:"user_metadata"`
}

func (m *AuthAdminMirror) SetPlan(ctx context.Context, userID string, tier plans.Tier) error {
	body, err := json.Marshal(userMetadataUpdate{UserMetadata: map[string]string{"plan": string(tier)}})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/auth/v1/admin/users/%s", m.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.serviceKey)
	req.Header.Set("apikey", m.serviceKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("update user metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("update user metadata: status %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

// mirrorPlan calls mirror and only logs a failure.
func mirrorPlan(ctx context.Context, mirror MetadataMirror, userID string, tier plans.Tier) {
	if mirror == nil || userID == "" {
		return
	}
	if err := mirror.SetPlan(ctx, userID, tier); err != nil {
		logging.Errorf("Failed to mirror plan to user metadata - user_id: %s, plan: %s, error: %v", userID, tier, err)
		return
	}
	logging.Infof("User metadata plan updated - user_id: %s, plan: %s", userID, tier)
}
