package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/camp-autoscheduler/internal/models"
	"github.com/noah-isme/camp-autoscheduler/internal/service"
	appErrors "github.com/noah-isme/camp-autoscheduler/pkg/errors"
)

type tokenStub struct {
	claims *models.JWTClaims
}

func (s tokenStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

func protectedRouter(role models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JWT(tokenStub{claims: &models.JWTClaims{UserID: "u1", Role: role}}))
	router.POST("/apply", RBAC(models.RoleAdmin, models.RoleContentTeam), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestJWTAndRBAC(t *testing.T) {
	cases := []struct {
		name   string
		header string
		role   models.UserRole
		status int
	}{
		{name: "missing header", role: models.RoleAdmin, status: http.StatusUnauthorized},
		{name: "malformed header", header: "Token good", role: models.RoleAdmin, status: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer bad", role: models.RoleAdmin, status: http.StatusUnauthorized},
		{name: "participant", header: "Bearer good", role: models.RoleParticipant, status: http.StatusForbidden},
		{name: "content team", header: "Bearer good", role: models.RoleContentTeam, status: http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/apply", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			protectedRouter(tc.role).ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestRBACWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/debug", RBAC(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMetricsRecordsRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics))
	router.GET("/camps/:campId/debug", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/camps/c1/debug", nil))

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `path="/camps/:campId/debug"`)
}
