package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/automation/pkg/eventbus"
	"github.com/dukex/automation/pkg/events"
	"github.com/dukex/automation/pkg/models"
	"github.com/dukex/automation/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	validator   *validator.Validate
	now         func() time.Time
}

func NewAPIHandlers(
	logger *slog.Logger,
	persistence persistence.Persistence,
	publisher eventbus.EventPublisher,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		logger:      logger.With("module", "api_handlers"),
		persistence: persistence,
		publisher:   publisher,
		validator:   validator,
		now:         time.Now,
	}
}

// Register mounts every route on app.
func (h *APIHandlers) Register(app fiber.Router) {
	app.Get("/health", h.HealthCheck)

	t := app.Group("/tenants/:tenantId")
	t.Post("/events", h.TriggerEvent)
	t.Get("/messages", h.ListMessages)
	t.Get("/messages/:id", h.GetMessage)

	app.Post("/webhooks/messages/:id/status", h.UpdateMessageStatus)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	httpStatus := http.StatusOK
	repositoryCheck := "ok"

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
		repositoryCheck = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": h.now().UTC(),
	})
}

// TriggerEvent validates an inbound event and hands it to the worker through the bus.
func (h *APIHandlers) TriggerEvent(c fiber.Ctx) error {
	tenantID := c.Params("tenantId")

	if err := validateJSONSchema(triggerEventSchemaLoader, c.Body()); err != nil {
		return badRequest(c, err.Error())
	}

	var req TriggerEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	overrides := make(map[string]models.Reference, len(req.Context))
	for key, ref := range req.Context {
		overrides[key] = ref.reference()
	}

	event := events.NewTriggerRequested(tenantID, req.Event, req.Subject.reference(), overrides)
	if err := event.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.publisher.Publish(c.Context(), tenantID, event); err != nil {
		h.logger.ErrorContext(c.Context(), "Failed to publish trigger request",
			"tenant_id", tenantID, "event", req.Event, "error", err)

		return internalError(c, err)
	}

	h.logger.InfoContext(c.Context(), "Trigger request accepted",
		"tenant_id", tenantID, "event", req.Event, "event_id", event.ID)

	return c.Status(fiber.StatusAccepted).JSON(TriggerEventResponse{EventID: event.ID})
}

func (h *APIHandlers) ListMessages(c fiber.Ctx) error {
	opts, err := parseListMessagesOptions(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.persistence.Messages().List(c.Context(), opts)
	if err != nil {
		return internalError(c, err)
	}

	opts = persistence.NormalizeListOptions(opts)

	return c.JSON(fiber.Map{
		"messages":      result.Messages,
		"total_count":   result.TotalCount,
		"has_next_page": result.HasNextPage,
		"pagination": fiber.Map{
			"limit":  opts.Limit,
			"offset": opts.Offset,
		},
	})
}

func parseListMessagesOptions(c fiber.Ctx) (persistence.ListMessagesOptions, error) {
	opts := persistence.ListMessagesOptions{
		TenantID: c.Params("tenantId"),
		RuleID:   c.Query("rule_id"),
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return opts, err
		}

		opts.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return opts, err
		}

		opts.Offset = offset
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status, ok := models.ParseMessageStatus(statusStr)
		if !ok {
			return opts, errors.New("unknown status " + strconv.Quote(statusStr))
		}

		opts.Status = status
	}

	return opts, nil
}

func (h *APIHandlers) GetMessage(c fiber.Ctx) error {
	msg, err := h.persistence.Messages().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleMessageError(c, err)
	}

	if msg.TenantID != c.Params("tenantId") {
		return notFound(c, "Message not found")
	}

	return c.JSON(msg)
}

// UpdateMessageStatus applies a provider delivery report and announces the transition.
func (h *APIHandlers) UpdateMessageStatus(c fiber.Ctx) error {
	var req MessageStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	msg, err := h.persistence.Messages().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleMessageError(c, err)
	}

	logger := h.logger.With("tenant_id", msg.TenantID, "message_id", msg.ID)
	now := h.now().UTC()

	status := models.MessageStatus(req.Status)
	if status == models.MessageStatusFailed {
		var cause error
		if req.Error != "" {
			cause = errors.New(req.Error)
		}

		err = msg.MarkFailed(cause, now)
	} else {
		err = msg.Transition(status, now)
	}

	if err != nil {
		return handleMessageError(c, err)
	}

	if err := h.persistence.Messages().Update(c.Context(), msg); err != nil {
		return internalError(c, err)
	}

	event := events.NewMessageStatusChanged(msg.TenantID, msg.ID, msg.Status)
	if err := h.publisher.Publish(c.Context(), msg.TenantID, event); err != nil {
		// the transition is already stored, only the follow-up rules are lost
		logger.ErrorContext(c.Context(), "Failed to publish message status change", "error", err)
	}

	logger.InfoContext(c.Context(), "Message status updated", "status", msg.Status)

	return c.JSON(msg)
}
