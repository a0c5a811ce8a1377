package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rvm-assignment-api/internal/dto"
	internalmiddleware "github.com/noah-isme/rvm-assignment-api/internal/middleware"
	"github.com/noah-isme/rvm-assignment-api/internal/models"
	"github.com/noah-isme/rvm-assignment-api/internal/service"
	appErrors "github.com/noah-isme/rvm-assignment-api/pkg/errors"
	"github.com/noah-isme/rvm-assignment-api/pkg/response"
)

type weekGenerator interface {
	Generate(ctx context.Context, req dto.GenerateWeekRequest) (*dto.GenerateWeekResponse, error)
}

type assignmentWorkflow interface {
	Get(ctx context.Context, id string) (*models.Assignment, error)
	ListByWeek(ctx context.Context, weekID string) ([]models.Assignment, error)
	ListPending(ctx context.Context) ([]models.Assignment, error)
	Stats(ctx context.Context) (*models.ApprovalStats, error)
	Submit(ctx context.Context, id, action string, approver service.Approver, reason string) (*models.Assignment, error)
	Promote(ctx context.Context, ids []string) (*models.PromotionResult, error)
}

type weekExporter interface {
	WeekCSV(ctx context.Context, weekID string) ([]byte, error)
}

// AssignmentHandler exposes generation and approval workflow endpoints.
type AssignmentHandler struct {
	generator weekGenerator
	service   assignmentWorkflow
	exporter  weekExporter
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(generator *service.GenerationService, workflow *service.WorkflowService, exporter *service.ExportService) *AssignmentHandler {
	h := &AssignmentHandler{}
	if generator != nil {
		h.generator = generator
	}
	if workflow != nil {
		h.service = workflow
	}
	if exporter != nil {
		h.exporter = exporter
	}
	return h
}

// Generate godoc
// @Summary Generate assignment proposals for a week
// @Description Runs eligibility, ranking, pairing and the approval gate for every part. Parts default to the weekly template.
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.GenerateWeekRequest true "Generate payload"
// @Success 201 {object} response.Envelope
// @Router /assignments/generate [post]
func (h *AssignmentHandler) Generate(c *gin.Context) {
	if h.generator == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "generation service not configured"))
		return
	}
	var req dto.GenerateWeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.generator.Generate(c.Request.Context(), req)
	if err != nil {
		if result != nil && len(result.Assignments) > 0 {
			response.Partial(c, result, err)
			return
		}
		response.Error(c, err)
		return
	}
	if req.DryRun {
		response.JSON(c, http.StatusOK, result, response.Meta{"mode": "preview"})
		return
	}
	response.Created(c, result)
}

// Pending godoc
// @Summary List assignments awaiting approval
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /assignments/pending [get]
func (h *AssignmentHandler) Pending(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "workflow service not configured"))
		return
	}
	items, err := h.service.ListPending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, response.Meta{"count": len(items)})
}

// Week godoc
// @Summary List a week's assignments in program order
// @Tags Assignments
// @Produce json
// @Param weekId path string true "Week ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/week/{weekId} [get]
func (h *AssignmentHandler) Week(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "workflow service not configured"))
		return
	}
	items, err := h.service.ListByWeek(c.Request.Context(), c.Param("weekId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items)
}

// ExportWeek godoc
// @Summary Download a week's assignments as CSV
// @Tags Assignments
// @Produce text/csv
// @Param weekId path string true "Week ID"
// @Success 200 {file} file
// @Router /assignments/week/{weekId}/export [get]
func (h *AssignmentHandler) ExportWeek(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export service not configured"))
		return
	}
	weekID := c.Param("weekId")
	payload, err := h.exporter.WeekCSV(c.Request.Context(), weekID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "assignments-"+weekID+".csv", "text/csv; charset=utf-8", payload)
}

// Stats godoc
// @Summary Assignment counts by workflow status
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /assignments/stats [get]
func (h *AssignmentHandler) Stats(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "workflow service not configured"))
		return
	}
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}

// Get godoc
// @Summary Get assignment
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "workflow service not configured"))
		return
	}
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// Act godoc
// @Summary Submit a workflow action
// @Description APPROVE or REJECT a pending assignment, or COMPLETE an approved one. The approver is taken from the access token.
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body dto.AssignmentActionRequest true "Action payload"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/actions [post]
func (h *AssignmentHandler) Act(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "workflow service not configured"))
		return
	}
	var req dto.AssignmentActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid action payload"))
		return
	}
	claims := internalmiddleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	approver := service.Approver{ID: claims.UserID, Name: claims.FullName}
	item, err := h.service.Submit(c.Request.Context(), c.Param("id"), req.Action, approver, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// Approve godoc
// @Summary Approve or reject an assignment (legacy endpoint)
// @Description Kept for older clients. Prefer POST /assignments/{id}/actions.
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body dto.ApprovalRequest true "Approval payload"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/approve [patch]
func (h *AssignmentHandler) Approve(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "workflow service not configured"))
		return
	}
	var req dto.ApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid approval payload"))
		return
	}
	action := strings.ToUpper(strings.TrimSpace(req.Action))
	if action != string(models.AssignmentActionApprove) && action != string(models.AssignmentActionReject) {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidAction, "action must be APPROVE or REJECT"))
		return
	}
	claims := internalmiddleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	approver := service.Approver{ID: claims.UserID, Name: claims.FullName}
	if approver.Name == "" {
		approver.Name = req.ApproverName
	}
	if approver.ID == "" {
		approver.ID = req.ApproverID
	}
	item, err := h.service.Submit(c.Request.Context(), c.Param("id"), action, approver, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// Promote godoc
// @Summary Copy completed assignments into history
// @Description Promotes the listed ids, or every completed assignment when none are given. Ineligible ids are reported as skipped.
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.PromoteRequest false "Promotion payload"
// @Success 200 {object} response.Envelope
// @Router /assignments/promote [post]
func (h *AssignmentHandler) Promote(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "workflow service not configured"))
		return
	}
	var req dto.PromoteRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid promote payload"))
			return
		}
	}
	result, err := h.service.Promote(c.Request.Context(), req.IDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
