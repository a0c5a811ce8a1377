package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/rvm-assignment-api/internal/models"
	"github.com/noah-isme/rvm-assignment-api/pkg/export"
	appErrors "github.com/noah-isme/rvm-assignment-api/pkg/errors"
)

var weekExportHeaders = []string{"position", "role", "type", "principal", "helper", "date", "duration", "status", "approver", "reason"}

type weekReader interface {
	ListByWeek(ctx context.Context, weekID string) ([]models.Assignment, error)
}

type csvRenderer interface {
	Render(sheet export.Sheet) ([]byte, error)
}

// ExportService renders a week's assignments as a printable CSV sheet.
type ExportService struct {
	weeks  weekReader
	csv    csvRenderer
	logger *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(weeks weekReader, logger *zap.Logger, csv csvRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	return &ExportService{weeks: weeks, csv: csv, logger: logger}
}

// WeekCSV renders the week in program order. An unknown week is NotFound.
func (s *ExportService) WeekCSV(ctx context.Context, weekID string) ([]byte, error) {
	items, err := s.weeks.ListByWeek(ctx, weekID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no assignments for week %s", weekID))
	}

	sheet := export.Sheet{Headers: weekExportHeaders, Rows: make([][]string, 0, len(items))}
	for _, a := range items {
		sheet.Rows = append(sheet.Rows, []string{
			strconv.Itoa(a.Position + 1),
			a.RoleTitle,
			string(a.RoleType),
			a.PrincipalName,
			deref(a.SecondaryName),
			a.MeetingDate.Format(models.DateLayout),
			strconv.Itoa(a.DurationMin),
			string(a.Status),
			deref(a.ApproverName),
			exportReason(a),
		})
	}
	payload, err := s.csv.Render(sheet)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Debug("week exported", zap.String("week_id", weekID), zap.Int("rows", len(items)))
	return payload, nil
}

func exportReason(a models.Assignment) string {
	if a.Status == models.AssignmentStatusRejected {
		return deref(a.RejectionReason)
	}
	return strings.TrimSpace(a.SelectionReason)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
