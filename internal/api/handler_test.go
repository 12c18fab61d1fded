package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nivixpay/nivix-ledger/internal/api/middleware"
	"github.com/nivixpay/nivix-ledger/internal/api/problem"
	"github.com/nivixpay/nivix-ledger/internal/config"
	"github.com/nivixpay/nivix-ledger/internal/token"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	middleware.SetJWTSecret(testSecret)
	middleware.SetJWTValidation("nivix-ledger", "nivix-api")

	cfg := &config.Config{
		JWTSecret:          testSecret,
		JWTIssuer:          "nivix-ledger",
		JWTAudience:        "nivix-api",
		PublicRateLimitRPS: 1000,
		AuthRateLimitRPS:   1000,
	}
	router := NewRouter(cfg, zap.NewNop(), nil, nil, nil, nil, token.NewMockMover())
	return router.Routes()
}

func signTestToken(t *testing.T, owner solana.PublicKey) string {
	t.Helper()

	userID := uuid.NewString()
	claims := jwt.MapClaims{
		"user_id": userID,
		"owner":   owner.String(),
		"role":    "user",
		"sub":     userID,
		"iss":     "nivix-ledger",
		"aud":     "nivix-api",
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/v1/transfers", "/v1/offline/transactions", "/v1/pools"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("{}"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"), path)

		var details problem.Details
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &details), path)
		assert.Equal(t, http.StatusUnauthorized, details.Status, path)
		assert.Contains(t, details.Type, "auth/", path)
	}
}

func TestInvalidTokenRejected(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/wallets/transactions", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticatedBadRequest(t *testing.T) {
	router := newTestRouter(t)
	tokenString := signTestToken(t, solana.NewWallet().PublicKey())

	// Past auth, the handler rejects the malformed body before any storage
	// access happens.
	req := httptest.NewRequest(http.MethodPost, "/v1/transfers", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestOfflineRecordSenderBoundToOwner(t *testing.T) {
	router := newTestRouter(t)
	tokenString := signTestToken(t, solana.NewWallet().PublicKey())

	// A non-admin caller cannot record an intent naming someone else as
	// sender.
	body := fmt.Sprintf(`{"sender":%q,"recipient":%q,"amount":10}`,
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	req := httptest.NewRequest(http.MethodPost, "/v1/offline/transactions", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestBootstrapOwnerLogin(t *testing.T) {
	middleware.SetJWTSecret(testSecret)
	middleware.SetJWTValidation("nivix-ledger", "nivix-api")

	bootstrap := solana.NewWallet().PublicKey()
	cfg := &config.Config{
		JWTSecret:          testSecret,
		JWTIssuer:          "nivix-ledger",
		JWTAudience:        "nivix-api",
		PublicRateLimitRPS: 1000,
		AuthRateLimitRPS:   1000,
		BootstrapOwner:     bootstrap,
	}
	router := NewRouter(cfg, zap.NewNop(), nil, nil, nil, nil, token.NewMockMover()).Routes()

	// The configured bootstrap owner gets an admin token with no user row.
	body := fmt.Sprintf(`{"owner":%q}`, bootstrap.String())
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "admin", claims["role"])
	assert.Equal(t, bootstrap.String(), claims["owner"])
	assert.Equal(t, uuid.Nil.String(), claims["user_id"])

	// Any other owner is turned away before any storage lookup.
	body = fmt.Sprintf(`{"owner":%q}`, solana.NewWallet().PublicKey())
	req = httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(body))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestKycStatusInvalidOwner(t *testing.T) {
	router := newTestRouter(t)
	tokenString := signTestToken(t, solana.NewWallet().PublicKey())

	req := httptest.NewRequest(http.MethodGet, "/v1/kyc/not-a-pubkey", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLiveness(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestOpenAPISpecServed(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Nivix Ledger API")
}

func TestTraceHeaderPropagated(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz/live", nil)
	req.Header.Set("X-Trace-ID", "trace-abc123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "trace-abc123", rec.Header().Get("X-Trace-ID"))

	// Absent a caller-supplied id, one is generated.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/live", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
