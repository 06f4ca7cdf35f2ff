package registry

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxledger/dlt-rx/pkg/config"
	"github.com/rxledger/dlt-rx/pkg/fabric"
	"github.com/rxledger/dlt-rx/pkg/logger"
)

var jwtTestConfig = &config.JWTConfig{
	SecretKey: "test-secret-key",
	Issuer:    "rxledger-registry",
	Audience:  "rxledger-users",
}

func signTestToken(t *testing.T, subject, role string, secret string) string {
	t.Helper()
	claims := UserClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    jwtTestConfig.Issuer,
			Audience:  jwt.ClaimStrings{jwtTestConfig.Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	var gotSubject, gotRole, gotCaller string
	handler := AuthMiddleware(jwtTestConfig, logger.New("error"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		require.NotNil(t, claims)
		gotSubject = claims.Subject
		gotRole = claims.Role
		gotCaller = fabric.CallerFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/prescriptions/1", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "doctor-1", "doctor", jwtTestConfig.SecretKey))
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "doctor-1", gotSubject)
	assert.Equal(t, "doctor", gotRole)
	assert.Equal(t, "doctor-1", gotCaller)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	handler := AuthMiddleware(jwtTestConfig, logger.New("error"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	// Missing header.
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest("GET", "/prescriptions/1", nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	// Malformed header.
	req := httptest.NewRequest("GET", "/prescriptions/1", nil)
	req.Header.Set("Authorization", "Basic abc123")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	// Wrong signing key.
	req = httptest.NewRequest("GET", "/prescriptions/1", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "doctor-1", "doctor", "other-secret"))
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	// Expired token.
	expired := UserClaims{
		Role: "doctor",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "doctor-1",
			Issuer:    jwtTestConfig.Issuer,
			Audience:  jwt.ClaimStrings{jwtTestConfig.Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	expiredToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, expired).SignedString([]byte(jwtTestConfig.SecretKey))
	require.NoError(t, err)

	req = httptest.NewRequest("GET", "/prescriptions/1", nil)
	req.Header.Set("Authorization", "Bearer "+expiredToken)
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestRequireRole(t *testing.T) {
	protected := RequireRole("admin", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	auth := AuthMiddleware(jwtTestConfig, logger.New("error"))

	// Admin passes.
	req := httptest.NewRequest("GET", "/doctors/10/prescriptions", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "admin-1", "admin", jwtTestConfig.SecretKey))
	recorder := httptest.NewRecorder()
	auth(protected).ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusOK, recorder.Code)

	// Non-admin is rejected.
	req = httptest.NewRequest("GET", "/doctors/10/prescriptions", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "doctor-1", "doctor", jwtTestConfig.SecretKey))
	recorder = httptest.NewRecorder()
	auth(protected).ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}
