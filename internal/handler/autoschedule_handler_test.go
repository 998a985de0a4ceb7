package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/camp-autoscheduler/internal/dto"
	internalmiddleware "github.com/noah-isme/camp-autoscheduler/internal/middleware"
	"github.com/noah-isme/camp-autoscheduler/internal/models"
	appErrors "github.com/noah-isme/camp-autoscheduler/pkg/errors"
)

type autoSchedulerMock struct {
	calculate     dto.CalculateRequest
	validate      dto.ValidateRequest
	apply         dto.ApplyRequest
	applyProposal dto.ApplyProposalRequest
	exportFormat  string
	err           error
}

func (m *autoSchedulerMock) Calculate(ctx context.Context, req dto.CalculateRequest) (*dto.ProposalResponse, error) {
	m.calculate = req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.ProposalResponse{ProposalID: "proposal-1", CampID: req.CampID, Valid: true}, nil
}

func (m *autoSchedulerMock) Validate(ctx context.Context, req dto.ValidateRequest) (*dto.ValidationResponse, error) {
	m.validate = req
	return &dto.ValidationResponse{CampID: req.CampID, Valid: true}, m.err
}

func (m *autoSchedulerMock) DiffCurrent(ctx context.Context, campID string, constraints *dto.ConstraintsRequest) (*dto.ProposalResponse, error) {
	return &dto.ProposalResponse{CampID: campID, Diff: &dto.DiffResponse{}}, m.err
}

func (m *autoSchedulerMock) Apply(ctx context.Context, req dto.ApplyRequest) (*dto.ApplyResponse, error) {
	m.apply = req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.ApplyResponse{CampID: req.CampID, Created: 3}, nil
}

func (m *autoSchedulerMock) ApplyProposal(ctx context.Context, req dto.ApplyProposalRequest) (*dto.ApplyResponse, error) {
	m.applyProposal = req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.ApplyResponse{CampID: req.CampID, ProposalID: req.ProposalID, Deleted: 2, Created: 3}, nil
}

func (m *autoSchedulerMock) GetProposal(ctx context.Context, proposalID string) (*dto.ProposalResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &dto.ProposalResponse{ProposalID: proposalID}, nil
}

func (m *autoSchedulerMock) RejectProposal(ctx context.Context, proposalID string) (*dto.ProposalResponse, error) {
	return &dto.ProposalResponse{ProposalID: proposalID, Status: string(models.ProposalStatusRejected)}, m.err
}

func (m *autoSchedulerMock) Debug(ctx context.Context, campID string, constraints *dto.ConstraintsRequest) (*dto.DebugResponse, error) {
	return &dto.DebugResponse{CampID: campID, SlotCount: 4}, m.err
}

func (m *autoSchedulerMock) Export(ctx context.Context, proposalID, format string) ([]byte, string, string, error) {
	m.exportFormat = format
	if m.err != nil {
		return nil, "", "", m.err
	}
	return []byte("Day,Start\n"), "program-" + proposalID + ".csv", "text/csv; charset=utf-8", nil
}

func autoscheduleRouter(svc *autoSchedulerMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := &AutoScheduleHandler{service: svc}
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "operator-1", Role: models.RoleContentTeam})
		c.Next()
	})
	camps := router.Group("/camps/:campId/autoschedule")
	camps.POST("/calculate", handler.Calculate)
	camps.POST("/validate", handler.Validate)
	camps.GET("/diff", handler.Diff)
	camps.POST("/apply", handler.Apply)
	camps.POST("/proposals/:id/apply", handler.ApplyProposal)
	camps.GET("/debug", handler.Debug)
	router.GET("/autoschedule/proposals/:id", handler.GetProposal)
	router.POST("/autoschedule/proposals/:id/reject", handler.RejectProposal)
	router.GET("/autoschedule/proposals/:id/export", handler.Export)
	return router
}

func serve(router *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAutoScheduleCalculateBindsPathAndBody(t *testing.T) {
	svc := &autoSchedulerMock{}
	w := serve(autoscheduleRouter(svc), http.MethodPost, "/camps/camp-1/autoschedule/calculate",
		[]byte(`{"mode":"similar","constraints":{"speakerAvailabilityConstraint":false}}`))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "camp-1", svc.calculate.CampID)
	assert.Equal(t, "similar", svc.calculate.Mode)
	assert.Equal(t, "operator-1", svc.calculate.RequestedBy)
	require.NotNil(t, svc.calculate.Constraints)
	assert.False(t, svc.calculate.Constraints.Options().SpeakerAvailability)
	assert.True(t, svc.calculate.Constraints.Options().EventType)

	var envelope struct {
		Data dto.ProposalResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "proposal-1", envelope.Data.ProposalID)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestAutoScheduleCalculateAcceptsEmptyBody(t *testing.T) {
	svc := &autoSchedulerMock{}
	w := serve(autoscheduleRouter(svc), http.MethodPost, "/camps/camp-1/autoschedule/calculate", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "camp-1", svc.calculate.CampID)
	assert.Empty(t, svc.calculate.Mode)
}

func TestAutoScheduleCalculateRejectsMalformedBody(t *testing.T) {
	w := serve(autoscheduleRouter(&autoSchedulerMock{}), http.MethodPost, "/camps/camp-1/autoschedule/calculate", []byte(`{"mode":`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAutoScheduleCalculateMapsDomainErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{err: appErrors.ErrNoFeasibleSchedule, status: http.StatusUnprocessableEntity, code: "NO_FEASIBLE_SCHEDULE"},
		{err: appErrors.ErrSchedulerDisabled, status: http.StatusServiceUnavailable, code: "SCHEDULER_DISABLED"},
		{err: errors.New("boom"), status: http.StatusInternalServerError, code: "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			w := serve(autoscheduleRouter(&autoSchedulerMock{err: tc.err}), http.MethodPost, "/camps/camp-1/autoschedule/calculate", nil)
			require.Equal(t, tc.status, w.Code)

			var envelope struct {
				Error appErrors.Error `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
			assert.Equal(t, tc.code, envelope.Error.Code)
		})
	}
}

func TestAutoScheduleValidateDefaultsToCurrent(t *testing.T) {
	svc := &autoSchedulerMock{}
	w := serve(autoscheduleRouter(svc), http.MethodPost, "/camps/camp-9/autoschedule/validate", []byte(`{}`))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "camp-9", svc.validate.CampID)
	assert.Empty(t, svc.validate.Schedule)
}

func TestAutoScheduleApplyProposalConflictCarriesViolations(t *testing.T) {
	svc := &autoSchedulerMock{err: appErrors.WithDetails(appErrors.ErrInvalidSchedule, map[string]interface{}{
		"violations": []dto.ViolationView{{Kind: "conflict", Message: "overlap", EventIDs: []string{"e1", "e2"}}},
	})}
	w := serve(autoscheduleRouter(svc), http.MethodPost, "/camps/camp-1/autoschedule/proposals/p-1/apply", nil)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "camp-1", svc.applyProposal.CampID)
	assert.Equal(t, "p-1", svc.applyProposal.ProposalID)
	assert.Contains(t, w.Body.String(), `"violations"`)
	assert.Contains(t, w.Body.String(), `"eventIds":["e1","e2"]`)
}

func TestAutoScheduleApply(t *testing.T) {
	svc := &autoSchedulerMock{}
	w := serve(autoscheduleRouter(svc), http.MethodPost, "/camps/camp-1/autoschedule/apply", []byte(`{"mode":"new"}`))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "new", svc.apply.Mode)
	assert.Equal(t, "operator-1", svc.apply.RequestedBy)
	assert.Contains(t, w.Body.String(), `"created":3`)
}

func TestAutoScheduleReadEndpoints(t *testing.T) {
	router := autoscheduleRouter(&autoSchedulerMock{})

	w := serve(router, http.MethodGet, "/camps/camp-1/autoschedule/diff", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"eventDiffs"`)

	w = serve(router, http.MethodGet, "/camps/camp-1/autoschedule/debug", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"slotCount":4`)

	w = serve(router, http.MethodGet, "/autoschedule/proposals/p-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"proposalId":"p-1"`)

	w = serve(router, http.MethodPost, "/autoschedule/proposals/p-1/reject", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"REJECTED"`)
}

func TestAutoScheduleGetProposalNotFound(t *testing.T) {
	router := autoscheduleRouter(&autoSchedulerMock{err: appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")})
	w := serve(router, http.MethodGet, "/autoschedule/proposals/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAutoScheduleExportStreamsAttachment(t *testing.T) {
	svc := &autoSchedulerMock{}
	w := serve(autoscheduleRouter(svc), http.MethodGet, "/autoschedule/proposals/p-1/export?format=csv", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", svc.exportFormat)
	assert.Equal(t, `attachment; filename="program-p-1.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "Day,Start\n", w.Body.String())
}

func TestAutoScheduleRoutesRequireOperatorRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &AutoScheduleHandler{service: &autoSchedulerMock{}}
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "guest", Role: models.RoleParticipant})
		c.Next()
	})
	router.POST("/camps/:campId/autoschedule/apply", internalmiddleware.RBAC(models.RoleAdmin, models.RoleContentTeam), handler.Apply)

	w := serve(router, http.MethodPost, "/camps/camp-1/autoschedule/apply", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
