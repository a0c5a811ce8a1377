package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/rvm-assignment-api/internal/dto"
	"github.com/noah-isme/rvm-assignment-api/internal/models"
	"github.com/noah-isme/rvm-assignment-api/internal/service"
	appErrors "github.com/noah-isme/rvm-assignment-api/pkg/errors"
	"github.com/noah-isme/rvm-assignment-api/pkg/response"
)

type historyManager interface {
	Import(ctx context.Context, req dto.ImportHistoryRequest) ([]models.HistoryEntry, error)
	List(ctx context.Context, query dto.HistoryQuery) ([]models.HistoryEntry, error)
}

type workloadReporter interface {
	Workload(ctx context.Context) ([]models.PersonStats, error)
	ForPerson(ctx context.Context, ref string) (*models.PersonStats, error)
}

// HistoryHandler exposes the participation record and workload stats.
type HistoryHandler struct {
	history historyManager
	stats   workloadReporter
}

// NewHistoryHandler constructs the handler.
func NewHistoryHandler(history *service.HistoryService, stats *service.StatsService) *HistoryHandler {
	h := &HistoryHandler{}
	if history != nil {
		h.history = history
	}
	if stats != nil {
		h.stats = stats
	}
	return h
}

// List godoc
// @Summary List participation history
// @Tags History
// @Produce json
// @Param since query string false "Only entries on or after this date (YYYY-MM-DD)"
// @Param person query string false "Member name"
// @Param weekId query string false "Week ID"
// @Success 200 {object} response.Envelope
// @Router /history [get]
func (h *HistoryHandler) List(c *gin.Context) {
	if h.history == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "history service not configured"))
		return
	}
	var query dto.HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid history query"))
		return
	}
	entries, err := h.history.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, response.Meta{"count": len(entries)})
}

// Import godoc
// @Summary Import past participations
// @Tags History
// @Accept json
// @Produce json
// @Param payload body dto.ImportHistoryRequest true "History entries"
// @Success 201 {object} response.Envelope
// @Router /history [post]
func (h *HistoryHandler) Import(c *gin.Context) {
	if h.history == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "history service not configured"))
		return
	}
	var req dto.ImportHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid history payload"))
		return
	}
	entries, err := h.history.Import(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entries)
}

// Workload godoc
// @Summary Workload per member, least used first
// @Tags History
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /history/stats [get]
func (h *HistoryHandler) Workload(c *gin.Context) {
	if h.stats == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "stats service not configured"))
		return
	}
	stats, err := h.stats.Workload(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}

// PersonWorkload godoc
// @Summary Workload of one member
// @Tags History
// @Produce json
// @Param personId path string true "Member ID or name"
// @Success 200 {object} response.Envelope
// @Router /history/stats/{personId} [get]
func (h *HistoryHandler) PersonWorkload(c *gin.Context) {
	if h.stats == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "stats service not configured"))
		return
	}
	stats, err := h.stats.ForPerson(c.Request.Context(), c.Param("personId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}
