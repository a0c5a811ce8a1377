package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rvm-assignment-api/internal/dto"
	"github.com/noah-isme/rvm-assignment-api/internal/service"
	appErrors "github.com/noah-isme/rvm-assignment-api/pkg/errors"
	"github.com/noah-isme/rvm-assignment-api/pkg/response"
)

type engineDiagnostics interface {
	FilterTest(ctx context.Context, req dto.FilterTestRequest) (*dto.FilterTestResponse, error)
	RankTest(ctx context.Context, req dto.RankTestRequest) (*dto.RankTestResponse, error)
}

// EngineHandler exposes read-only diagnostics of the eligibility and ranking rules.
type EngineHandler struct {
	service engineDiagnostics
}

// NewEngineHandler constructs the handler.
func NewEngineHandler(svc *service.GenerationService) *EngineHandler {
	h := &EngineHandler{}
	if svc != nil {
		h.service = svc
	}
	return h
}

// FilterTest godoc
// @Summary Explain eligibility for one role
// @Tags Engine
// @Accept json
// @Produce json
// @Param payload body dto.FilterTestRequest true "Filter test payload"
// @Success 200 {object} response.Envelope
// @Router /engine/filter-test [post]
func (h *EngineHandler) FilterTest(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "engine service not configured"))
		return
	}
	var req dto.FilterTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid filter-test payload"))
		return
	}
	result, err := h.service.FilterTest(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// RankTest godoc
// @Summary Rank candidates for one role
// @Tags Engine
// @Accept json
// @Produce json
// @Param payload body dto.RankTestRequest true "Rank test payload"
// @Success 200 {object} response.Envelope
// @Router /engine/rank-test [post]
func (h *EngineHandler) RankTest(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "engine service not configured"))
		return
	}
	var req dto.RankTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rank-test payload"))
		return
	}
	result, err := h.service.RankTest(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
