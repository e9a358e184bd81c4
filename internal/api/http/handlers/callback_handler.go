package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/lexhub/comms-audit/internal/api/dto"
	"github.com/lexhub/comms-audit/internal/domain"
	"github.com/lexhub/comms-audit/internal/service"
	apperrors "github.com/lexhub/comms-audit/pkg/util/errorutil"
)

// CallbackHandler receives asynchronous delivery-status callbacks from the
// mail transport.
type CallbackHandler struct {
	callbacks *service.CallbackService
	token     string
}

// NewCallbackHandler constructs handler. token, when set, must match the
// X-Callback-Token header on every request.
func NewCallbackHandler(callbacks *service.CallbackService, token string) *CallbackHandler {
	return &CallbackHandler{callbacks: callbacks, token: token}
}

// DeliveryStatus POST /api/v1/audit/callbacks/delivery.
func (h *CallbackHandler) DeliveryStatus(c *fiber.Ctx) error {
	if h.token != "" {
		provided := c.Get("X-Callback-Token")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(h.token)) != 1 {
			return apperrors.NewUnauthorized("invalid callback token")
		}
	}

	var req dto.DeliveryCallbackRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.EntryID == "" || req.Status == "" {
		return apperrors.NewValidationError("entry_id and status required", nil)
	}

	err := h.callbacks.Advance(c.UserContext(), service.StatusCallbackInput{
		EntryID:      req.EntryID,
		Status:       domain.DeliveryStatus(req.Status),
		SMTPResponse: req.SMTPResponse,
		ErrorMessage: req.ErrorMessage,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"status": req.Status}})
}
