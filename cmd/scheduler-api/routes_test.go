package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/camp-autoscheduler/internal/handler"
	"github.com/noah-isme/camp-autoscheduler/internal/models"
	"github.com/noah-isme/camp-autoscheduler/internal/service"
	"github.com/noah-isme/camp-autoscheduler/pkg/config"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{Env: config.EnvDevelopment, APIPrefix: "/api/v1"}
	metrics := service.NewMetricsService()
	disabled := service.NewAutoScheduleService(nil, nil, nil, nil, nil, nil, nil, nil, nil, metrics, nil, nil, zap.NewNop(), service.AutoScheduleConfig{})
	return newRouter(cfg, zap.NewNop(), routeDeps{
		autoschedule: handler.NewAutoScheduleHandler(disabled),
		metrics:      handler.NewMetricsHandler(metrics, nil),
		metricsSvc:   metrics,
		tokens:       service.NewTokenService(service.TokenConfig{Secret: "secret"}),
	})
}

func bearer(t *testing.T, role models.UserRole) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, models.JWTClaims{
		UserID:           "u1",
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRouterProtectsAutoscheduleRoutes(t *testing.T) {
	router := testRouter(t)

	cases := []struct {
		name   string
		auth   string
		status int
	}{
		{name: "anonymous", status: http.StatusUnauthorized},
		{name: "participant", auth: bearer(t, models.RoleParticipant), status: http.StatusForbidden},
		{name: "content team reaches disabled scheduler", auth: bearer(t, models.RoleContentTeam), status: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/camps/camp-1/autoschedule/debug", nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestRouterServesProbes(t *testing.T) {
	router := testRouter(t)

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
