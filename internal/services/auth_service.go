package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"scanela-billing/pkg/logging"

	"github.com/golang-jwt/jwt/v5"
)

// Principal is the authenticated caller.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Authenticator validates a bearer token. Every failure is ErrUnauthorized.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Principal, error)
}

// RemoteAuthenticator introspects tokens against the auth provider.
type RemoteAuthenticator struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

// NewRemoteAuthenticator creates an authenticator for the auth provider at baseURL
func NewRemoteAuthenticator(baseURL, serviceKey string) *RemoteAuthenticator {
	return &RemoteAuthenticator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *RemoteAuthenticator) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if a.serviceKey != "" {
		req.Header.Set("apikey", a.serviceKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		logging.Errorf("Token introspection failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrUnauthorized
	}

	var principal Principal
	if err := json.NewDecoder(resp.Body).Decode(&principal); err != nil || principal.ID == "" {
		return nil, ErrUnauthorized
	}
	return &principal, nil
}

// AccessClaims are the claims read from a locally verified access token.
type AccessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTAuthenticator verifies HS256 access tokens with a shared secret.
type JWTAuthenticator struct {
	secret []byte
}

// NewJWTAuthenticator creates a local token verifier
func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret)}
}

func (a *JWTAuthenticator) Authenticate(_ context.Context, token string) (*Principal, error) {
	if token == "" || len(a.secret) == 0 {
		return nil, ErrUnauthorized
	}

	claims := &AccessClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tkn.Valid || claims.Subject == "" {
		return nil, ErrUnauthorized
	}
	return &Principal{ID: claims.Subject, Email: claims.Email}, nil
}

// SignAccessToken mints an HS256 token for subject. Used by tests and local tooling.
func SignAccessToken(secret, subject, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
