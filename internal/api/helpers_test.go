package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"scanela-billing/internal/models"
	"scanela-billing/internal/plans"
	"scanela-billing/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const (
	testWebhookSecret = "pdl_ntfset_test"
	testJWTSecret     = "jwt-test-secret"
	testAdminKey      = "admin-key"
)

type stubMirror struct {
	mu    sync.Mutex
	plans map[string]plans.Tier
}

func (m *stubMirror) SetPlan(_ context.Context, userID string, tier plans.Tier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.plans == nil {
		m.plans = map[string]plans.Tier{}
	}
	m.plans[userID] = tier
	return nil
}

func (m *stubMirror) Plan(userID string) plans.Tier {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plans[userID]
}

type stubPaddle struct {
	tx         *services.CheckoutTransaction
	cancelData models.PaddleData
	err        error
}

func (s *stubPaddle) CreateTransaction(context.Context, string, map[string]string, string) (*services.CheckoutTransaction, error) {
	return s.tx, s.err
}

func (s *stubPaddle) GetSubscription(context.Context, string) (models.PaddleData, error) {
	return s.cancelData, s.err
}

func (s *stubPaddle) CancelSubscription(context.Context, string, bool) (models.PaddleData, error) {
	return s.cancelData, s.err
}

type testServer struct {
	router *gin.Engine
	mirror *stubMirror
	paddle *stubPaddle
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	mirror := &stubMirror{}
	paddle := &stubPaddle{}
	events := services.NewEventLogger()
	cache := services.NewMemoryPlanCache(time.Minute, 100)
	processor := services.NewWebhookProcessor(services.NewUserResolver(), events, services.NewReconciler(cache), mirror)

	h := &Handler{
		Verifier:  services.NewSignatureVerifier(testWebhookSecret, 0),
		Processor: processor,
		Billing:   services.NewBillingService(paddle, processor, mirror, events, nil, cache, ""),
		Plans:     services.NewPlanService(cache, mirror, events),
		Events:    events,
		Auth:      services.NewJWTAuthenticator(testJWTSecret),
		AdminKey:  testAdminKey,
	}

	r := gin.New()
	SetupRoutes(r, h)
	return &testServer{router: r, mirror: mirror, paddle: paddle}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := services.SignAccessToken(testJWTSecret, userID, userID+"@example.com", time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func authedRequest(t *testing.T, method, path, userID string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", bearer(t, userID))
	}
	return req
}

func signedWebhook(body []byte) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/paddle", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(PaddleSignatureHeader, services.SignatureHeader(testWebhookSecret, time.Now().Unix(), body))
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}
