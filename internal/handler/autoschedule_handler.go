package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/camp-autoscheduler/internal/dto"
	"github.com/noah-isme/camp-autoscheduler/internal/service"
	appErrors "github.com/noah-isme/camp-autoscheduler/pkg/errors"
	"github.com/noah-isme/camp-autoscheduler/pkg/response"
)

type autoScheduler interface {
	Calculate(ctx context.Context, req dto.CalculateRequest) (*dto.ProposalResponse, error)
	Validate(ctx context.Context, req dto.ValidateRequest) (*dto.ValidationResponse, error)
	DiffCurrent(ctx context.Context, campID string, constraints *dto.ConstraintsRequest) (*dto.ProposalResponse, error)
	Apply(ctx context.Context, req dto.ApplyRequest) (*dto.ApplyResponse, error)
	ApplyProposal(ctx context.Context, req dto.ApplyProposalRequest) (*dto.ApplyResponse, error)
	GetProposal(ctx context.Context, proposalID string) (*dto.ProposalResponse, error)
	RejectProposal(ctx context.Context, proposalID string) (*dto.ProposalResponse, error)
	Debug(ctx context.Context, campID string, constraints *dto.ConstraintsRequest) (*dto.DebugResponse, error)
	Export(ctx context.Context, proposalID, format string) ([]byte, string, string, error)
}

// AutoScheduleHandler exposes the camp program autoscheduler.
type AutoScheduleHandler struct {
	service autoScheduler
}

// NewAutoScheduleHandler constructs the handler.
func NewAutoScheduleHandler(svc *service.AutoScheduleService) *AutoScheduleHandler {
	return &AutoScheduleHandler{service: svc}
}

// bindOptionalJSON accepts an empty body as the zero request.
func bindOptionalJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

func requestedBy(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}

// Calculate godoc
// @Summary Calculate a program proposal
// @Description Mode "new" optimises capacity use from scratch, "similar" keeps as much of the current program as possible.
// @Tags AutoSchedule
// @Accept json
// @Produce json
// @Param campId path string true "Camp ID"
// @Param payload body dto.CalculateRequest false "Calculation options"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /camps/{campId}/autoschedule/calculate [post]
func (h *AutoScheduleHandler) Calculate(c *gin.Context) {
	var req dto.CalculateRequest
	if !bindOptionalJSON(c, &req, "invalid calculate payload") {
		return
	}
	req.CampID = c.Param("campId")
	req.RequestedBy = requestedBy(c)
	result, err := h.service.Calculate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Validate godoc
// @Summary Validate the current or a recomputed program
// @Tags AutoSchedule
// @Accept json
// @Produce json
// @Param campId path string true "Camp ID"
// @Param payload body dto.ValidateRequest false "Schedule to validate"
// @Success 200 {object} response.Envelope
// @Router /camps/{campId}/autoschedule/validate [post]
func (h *AutoScheduleHandler) Validate(c *gin.Context) {
	var req dto.ValidateRequest
	if !bindOptionalJSON(c, &req, "invalid validate payload") {
		return
	}
	req.CampID = c.Param("campId")
	result, err := h.service.Validate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Diff godoc
// @Summary Compare the current program with the closest valid one
// @Tags AutoSchedule
// @Produce json
// @Param campId path string true "Camp ID"
// @Success 200 {object} response.Envelope
// @Router /camps/{campId}/autoschedule/diff [get]
func (h *AutoScheduleHandler) Diff(c *gin.Context) {
	result, err := h.service.DiffCurrent(c.Request.Context(), c.Param("campId"), nil)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Apply godoc
// @Summary Recompute and persist the program
// @Tags AutoSchedule
// @Accept json
// @Produce json
// @Param campId path string true "Camp ID"
// @Param payload body dto.ApplyRequest false "Apply options"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /camps/{campId}/autoschedule/apply [post]
func (h *AutoScheduleHandler) Apply(c *gin.Context) {
	var req dto.ApplyRequest
	if !bindOptionalJSON(c, &req, "invalid apply payload") {
		return
	}
	req.CampID = c.Param("campId")
	req.RequestedBy = requestedBy(c)
	result, err := h.service.Apply(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ApplyProposal godoc
// @Summary Persist a calculated proposal
// @Tags AutoSchedule
// @Produce json
// @Param campId path string true "Camp ID"
// @Param id path string true "Proposal ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /camps/{campId}/autoschedule/proposals/{id}/apply [post]
func (h *AutoScheduleHandler) ApplyProposal(c *gin.Context) {
	result, err := h.service.ApplyProposal(c.Request.Context(), dto.ApplyProposalRequest{
		CampID:      c.Param("campId"),
		ProposalID:  c.Param("id"),
		RequestedBy: requestedBy(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// GetProposal godoc
// @Summary Get a stored proposal
// @Tags AutoSchedule
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /autoschedule/proposals/{id} [get]
func (h *AutoScheduleHandler) GetProposal(c *gin.Context) {
	result, err := h.service.GetProposal(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// RejectProposal godoc
// @Summary Reject a stored proposal
// @Tags AutoSchedule
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} response.Envelope
// @Router /autoschedule/proposals/{id}/reject [post]
func (h *AutoScheduleHandler) RejectProposal(c *gin.Context) {
	result, err := h.service.RejectProposal(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Download a proposal as a printable program
// @Tags AutoSchedule
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Proposal ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /autoschedule/proposals/{id}/export [get]
func (h *AutoScheduleHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	payload, filename, contentType, err := h.service.Export(c.Request.Context(), c.Param("id"), query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, contentType, payload)
}

// Debug godoc
// @Summary Explain the model the solver sees
// @Tags AutoSchedule
// @Produce json
// @Param campId path string true "Camp ID"
// @Success 200 {object} response.Envelope
// @Router /camps/{campId}/autoschedule/debug [get]
func (h *AutoScheduleHandler) Debug(c *gin.Context) {
	result, err := h.service.Debug(c.Request.Context(), c.Param("campId"), nil)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
