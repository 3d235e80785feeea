package setup

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"newton/app"
	"newton/config"
	"newton/database"
	"newton/pkg/whop"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "super-secret-jwt-token-for-tests"

func newTestServer(t *testing.T) (*app.App, func(req *http.Request) (int, map[string]interface{})) {
	t.Helper()

	cfg := &config.Config{
		DBDriver:       database.DriverSQLite,
		DBDSN:          filepath.Join(t.TempDir(), "routes.db"),
		MaxUploadBytes: 1 << 20,
		Env:            "test",
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := InitDatabase(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	application := app.New(database.NewRepository(db), app.Deps{
		Verifier:    whop.NewVerifier("whsec_routes", time.Minute),
		JWTSecret:   testJWTSecret,
		JWTAudience: "authenticated",
	}, logger)

	fiberApp := NewFiberApp(cfg, logger)
	ApplyMiddleware(fiberApp, logger)
	RegisterRoutes(fiberApp, application)

	do := func(req *http.Request) (int, map[string]interface{}) {
		resp, err := fiberApp.Test(req, -1)
		require.NoError(t, err)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return resp.StatusCode, body
	}
	return application, do
}

func signToken(t *testing.T, subject string, expiresIn time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":           subject,
		"email":         subject + "@example.com",
		"aud":           "authenticated",
		"exp":           time.Now().Add(expiresIn).Unix(),
		"user_metadata": map[string]any{"full_name": "Route Tester"},
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func TestRoutes_Public(t *testing.T) {
	_, do := newTestServer(t)

	status, body := do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	status, body = do(httptest.NewRequest(http.MethodGet, "/api/time", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["study_date"])

	// The webhook answers with its own verification error, not an auth error
	req := httptest.NewRequest(http.MethodPost, "/api/whop", strings.NewReader(`{"type":"membership_activated"}`))
	req.Header.Set("Content-Type", "application/json")
	status, body = do(req)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, whop.ErrMissingSignature.Error(), body["error"])
}

func TestRoutes_Authenticated(t *testing.T) {
	application, do := newTestServer(t)

	tests := []struct {
		name           string
		token          string
		expectedStatus int
	}{
		{name: "No token", expectedStatus: http.StatusUnauthorized},
		{name: "Expired token", token: signToken(t, "user-old", -time.Minute), expectedStatus: http.StatusUnauthorized},
		{name: "Valid token", token: signToken(t, "user-route", time.Hour), expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			status, _ := do(req)
			assert.Equal(t, tt.expectedStatus, status)
		})
	}

	user, err := application.Repo.GetUser("user-route")
	require.NoError(t, err)
	require.NotNil(t, user, "GET /api/me creates the profile")
	assert.Equal(t, "Route Tester", user.Name)
	assert.Equal(t, "user-route@example.com", user.Email)

	missing, err := application.Repo.GetUser("user-old")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRoutes_StudyFlow(t *testing.T) {
	_, do := newTestServer(t)
	auth := "Bearer " + signToken(t, "user-study", time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/api/study/sessions", nil)
	req.Header.Set("Authorization", auth)
	status, body := do(req)
	require.Equal(t, http.StatusCreated, status)

	session := body["session"].(map[string]interface{})
	id := session["id"].(string)

	req = httptest.NewRequest(http.MethodPost, "/api/study/sessions/"+id+"/stop", nil)
	req.Header.Set("Authorization", auth)
	status, _ = do(req)
	assert.Equal(t, http.StatusOK, status)

	req = httptest.NewRequest(http.MethodPost, "/api/study/sessions/"+id+"/heartbeat", nil)
	req.Header.Set("Authorization", auth)
	status, _ = do(req)
	assert.Equal(t, http.StatusConflict, status)
}
