package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/feedback-engine/internal/api/dto"
	"github.com/spec-kit/feedback-engine/internal/auth"
	"github.com/spec-kit/feedback-engine/internal/domain"
	"github.com/spec-kit/feedback-engine/internal/repository"
	"github.com/spec-kit/feedback-engine/internal/service"
	apperrors "github.com/spec-kit/feedback-engine/pkg/util"
)

// CasesHandler exposes feedback case endpoints.
type CasesHandler struct {
	cases     *service.CaseService
	analytics *service.AnalyticsService
}

// NewCasesHandler constructs handler.
func NewCasesHandler(cases *service.CaseService, analytics *service.AnalyticsService) *CasesHandler {
	return &CasesHandler{cases: cases, analytics: analytics}
}

// CreateCase POST /cases, the detection pipeline webhook.
func (h *CasesHandler) CreateCase(c *fiber.Ctx) error {
	var req dto.CreateCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.CompanyID == "" {
		return apperrors.NewValidationError("company_id required", nil)
	}
	if req.SLADeadline.IsZero() {
		return apperrors.NewValidationError("sla_deadline required", nil)
	}

	fc, err := h.cases.CreateCase(c.UserContext(), service.CaseCreateInput{
		CompanyID:     req.CompanyID,
		ContactID:     req.ContactID,
		OriginalScore: req.OriginalScore,
		Priority:      req.Priority,
		AssignedTo:    req.AssignedTo,
		SLADeadline:   req.SLADeadline,
	})
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": caseSummary(fc)})
}

// PerformAction POST /cases/:id/actions.
func (h *CasesHandler) PerformAction(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CaseActionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	payload, err := req.Payload()
	if err != nil {
		return apperrors.MapError(err)
	}

	actorID := principal.UserID
	fc, err := h.cases.PerformAction(c.UserContext(), domain.ActorUser, &actorID, c.Params("id"), payload)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.CaseActionResponse{
		CaseID:    fc.ID,
		NewStatus: fc.Status,
		UpdatedAt: fc.UpdatedAt,
	}})
}

// GetCase GET /cases/:id.
func (h *CasesHandler) GetCase(c *fiber.Ctx) error {
	fc, err := h.cases.GetCase(c.UserContext(), c.Params("id"))
	if err != nil {
		return apperrors.MapError(err)
	}
	history, err := h.cases.ListHistory(c.UserContext(), fc.ID, 100, 0)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": caseDetail(fc, history)})
}

// ListCases GET /cases.
func (h *CasesHandler) ListCases(c *fiber.Ctx) error {
	filter := parseCaseQuery(c)
	cases, err := h.cases.ListCases(c.UserContext(), filter)
	if err != nil {
		return apperrors.MapError(err)
	}
	items := make([]dto.CaseSummary, 0, len(cases))
	for i := range cases {
		items = append(items, caseSummary(&cases[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// RecoveryMetrics GET /metrics/recovery.
func (h *CasesHandler) RecoveryMetrics(c *fiber.Ctx) error {
	snapshot, err := h.analytics.Snapshot(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.RecoveryMetricsResponse{
		CasesRecovered: snapshot.CasesRecovered,
		CasesResolved:  snapshot.CasesResolved,
		ScoreDeltaSum:  snapshot.ScoreDeltaSum,
	}})
}

func parseCaseQuery(c *fiber.Ctx) repository.CaseFilter {
	filter := repository.CaseFilter{}
	if companyID := c.Query("company_id"); companyID != "" {
		filter.CompanyID = &companyID
	}
	if assignedTo := c.Query("assigned_to"); assignedTo != "" {
		filter.AssignedTo = &assignedTo
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.CaseStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.CasePriority(strings.TrimSpace(part)))
		}
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := c.QueryInt("page_size", 20)
	if pageSize < 1 {
		pageSize = 20
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return &parsed
}

func caseSummary(fc *domain.FeedbackCase) dto.CaseSummary {
	return dto.CaseSummary{
		ID:              fc.ID,
		CompanyID:       fc.CompanyID,
		ContactID:       fc.ContactID,
		OriginalScore:   fc.OriginalScore,
		Priority:        fc.Priority,
		Status:          fc.Status,
		AssignedTo:      fc.AssignedTo,
		EscalationLevel: fc.EscalationLevel,
		SLADeadline:     fc.SLADeadline,
		CreatedAt:       fc.CreatedAt,
		UpdatedAt:       fc.UpdatedAt,
	}
}

func caseDetail(fc *domain.FeedbackCase, history []domain.CaseHistory) dto.CaseDetailResponse {
	entries := make([]dto.CaseHistoryResponse, 0, len(history))
	for _, entry := range history {
		entries = append(entries, dto.CaseHistoryResponse{
			ActorType: entry.ActorType,
			ActorID:   entry.ActorID,
			Action:    entry.Action,
			OldStatus: entry.OldStatus,
			NewStatus: entry.NewStatus,
			Comment:   entry.Comment,
			CreatedAt: entry.CreatedAt,
		})
	}
	return dto.CaseDetailResponse{
		CaseSummary:               caseSummary(fc),
		RecoveryScore:             fc.RecoveryScore,
		EscalatedTo:               fc.EscalatedTo,
		EscalationReason:          fc.EscalationReason,
		FollowupDate:              fc.FollowupDate,
		FollowupNotes:             fc.FollowupNotes,
		ResolutionNotes:           fc.ResolutionNotes,
		RecoverySurveyScheduledAt: fc.RecoverySurveyScheduledAt,
		RecoverySurveySentAt:      fc.RecoverySurveySentAt,
		ClosedAt:                  fc.ClosedAt,
		History:                   entries,
	}
}
