package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lexhub/comms-audit/internal/api/dto"
	"github.com/lexhub/comms-audit/internal/auth"
	"github.com/lexhub/comms-audit/internal/domain"
	"github.com/lexhub/comms-audit/internal/repository"
	"github.com/lexhub/comms-audit/internal/service"
	apperrors "github.com/lexhub/comms-audit/pkg/util/errorutil"
)

// AuditHandler serves the Support Operational Hub's audit endpoints.
type AuditHandler struct {
	queries   *service.AuditQueryService
	threads   *service.ThreadService
	agents    *service.AgentHistoryService
	analytics *service.AnalyticsService
	retries   *service.RedispatchService
}

// AuditHandlerDependencies bundles services for the handler.
type AuditHandlerDependencies struct {
	Queries   *service.AuditQueryService
	Threads   *service.ThreadService
	Agents    *service.AgentHistoryService
	Analytics *service.AnalyticsService
	Retries   *service.RedispatchService
}

// NewAuditHandler constructs handler.
func NewAuditHandler(deps AuditHandlerDependencies) *AuditHandler {
	return &AuditHandler{
		queries:   deps.Queries,
		threads:   deps.Threads,
		agents:    deps.Agents,
		analytics: deps.Analytics,
		retries:   deps.Retries,
	}
}

// ListLogs GET /api/v1/audit/logs.
func (h *AuditHandler) ListLogs(c *fiber.Ctx) error {
	filter := parseLogFilter(c)
	page := parseInt(c.Query("page"), 1)
	limit := parseInt(c.Query("limit"), service.DefaultPageSize)

	result, err := h.queries.Query(c.UserContext(), filter, page, limit)
	if err != nil {
		return err
	}

	items := make([]dto.LogEntryResponse, 0, len(result.Entries))
	for i := range result.Entries {
		items = append(items, logEntryResponse(&result.Entries[i]))
	}
	return c.JSON(dto.ListLogsResponse{
		Data: items,
		Meta: dto.ListMeta{Page: result.Page, Limit: result.Limit, Total: result.Total},
		Stats: dto.QueryStatsResponse{
			TotalSent:    result.Stats.TotalSent,
			TotalFailed:  result.Stats.TotalFailed,
			ActiveAgents: result.Stats.ActiveAgents,
		},
	})
}

// GetThread GET /api/v1/audit/logs/:id/thread.
func (h *AuditHandler) GetThread(c *fiber.Ctx) error {
	thread, err := h.threads.Resolve(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}

	messages := make([]dto.ThreadMessageResponse, 0, len(thread.Messages))
	for _, m := range thread.Messages {
		var quoted *string
		if m.Quoted != "" {
			q := m.Quoted
			quoted = &q
		}
		messages = append(messages, dto.ThreadMessageResponse{
			Sender: m.Sender,
			SentAt: m.SentAt,
			Body:   m.Body,
			Quoted: quoted,
		})
	}
	return c.JSON(fiber.Map{"data": dto.ThreadResponse{
		Key:      thread.Key,
		TicketID: thread.TicketID,
		Subject:  thread.Subject,
		Messages: messages,
	}})
}

// AgentHistory GET /api/v1/audit/agents/:id/logs.
func (h *AuditHandler) AgentHistory(c *fiber.Ctx) error {
	limit := parseInt(c.Query("limit"), service.DefaultAgentHistoryLimit)
	entries, err := h.agents.ByAgent(c.UserContext(), c.Params("id"), limit)
	if err != nil {
		return err
	}

	items := make([]dto.LogEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, logEntryResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Analytics GET /api/v1/audit/analytics.
func (h *AuditHandler) Analytics(c *fiber.Ctx) error {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -6)
	if parsed := parseDate(c.Query("from")); parsed != nil {
		from = *parsed
	}
	if parsed := parseDate(c.Query("to")); parsed != nil {
		to = *parsed
	}

	overview, err := h.analytics.Overview(c.UserContext(), from, to)
	if err != nil {
		return err
	}

	daily := make([]dto.DailyCountResponse, 0, len(overview.Daily))
	for _, d := range overview.Daily {
		daily = append(daily, dto.DailyCountResponse{
			Day:    d.Day.Format("2006-01-02"),
			Sent:   d.Sent,
			Failed: d.Failed,
		})
	}
	topAgents := make([]dto.AgentCountResponse, 0, len(overview.TopAgents))
	for _, a := range overview.TopAgents {
		topAgents = append(topAgents, dto.AgentCountResponse{AgentID: a.AgentID, Count: a.Count})
	}
	roles := make([]dto.RoleCountResponse, 0, len(overview.Roles))
	for _, r := range overview.Roles {
		roles = append(roles, dto.RoleCountResponse{Role: r.Role, Count: r.Count})
	}
	return c.JSON(fiber.Map{"data": dto.AnalyticsResponse{Daily: daily, TopAgents: topAgents, Roles: roles}})
}

// RetryLog POST /api/v1/audit/logs/:id/retry.
func (h *AuditHandler) RetryLog(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	performedBy := principal.Name
	if performedBy == "" {
		performedBy = principal.OperatorID
	}

	id := c.Params("id")
	retryCount, err := h.retries.Retry(c.UserContext(), id, performedBy)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.RetryResponse{ID: id, RetryCount: retryCount}})
}

func parseLogFilter(c *fiber.Ctx) repository.LogFilter {
	filter := repository.LogFilter{}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		filter.Search = &search
	}
	if agentID := strings.TrimSpace(c.Query("agent_id")); agentID != "" {
		filter.AgentID = &agentID
	}
	// Unrecognized enum values behave as an absent predicate.
	if role := domain.AgentRole(strings.ToUpper(c.Query("role"))); role == domain.RoleAgent ||
		role == domain.RoleSupervisor || role == domain.RoleAdmin {
		filter.Role = &role
	}
	if action := strings.TrimSpace(c.Query("action")); action != "" {
		filter.Action = &action
	}
	if status := domain.DeliveryStatus(strings.ToUpper(c.Query("status"))); status.Valid() {
		filter.Status = &status
	}
	if from := parseTime(c.Query("from")); from != nil {
		filter.From = from
	}
	if to := parseTime(c.Query("to")); to != nil {
		filter.To = to
	}
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return parseDate(val)
	}
	return &t
}

func parseDate(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", val)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func logEntryResponse(entry *domain.LogEntry) dto.LogEntryResponse {
	history := make([]dto.HistoryEventResponse, 0, len(entry.History))
	for _, ev := range entry.History {
		history = append(history, dto.HistoryEventResponse{
			ID:          ev.ID,
			Action:      ev.Action,
			PerformedBy: ev.PerformedBy,
			Details:     ev.Details,
			CreatedAt:   ev.CreatedAt,
		})
	}
	return dto.LogEntryResponse{
		ID:           entry.ID,
		AgentID:      entry.AgentID,
		AgentName:    entry.AgentName,
		AgentEmail:   entry.AgentEmail,
		AgentRole:    entry.AgentRole,
		AgentStatus:  string(entry.AgentStatus),
		Action:       entry.Action,
		Type:         entry.Type,
		Recipient:    entry.Recipient,
		Subject:      entry.Subject,
		TicketID:     entry.TicketID,
		Status:       entry.Status,
		RetryCount:   entry.RetryCount,
		Timestamp:    entry.Timestamp,
		DeliveryTime: entry.DeliveryTime,
		OpenTime:     entry.OpenTime,
		ClickTime:    entry.ClickTime,
		IPAddress:    entry.IPAddress,
		DeviceInfo:   entry.DeviceInfo,
		Location:     entry.Location,
		TrackingID:   entry.TrackingID,
		SMTPResponse: entry.SMTPResponse,
		ErrorMessage: entry.ErrorMessage,
		History:      history,
	}
}
