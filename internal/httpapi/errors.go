package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Jair0305/battleship/internal/domain"
	dto "github.com/Jair0305/battleship/pkg/battleshipdto"
)

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindInvalidState:
		return fiber.StatusConflict
	case domain.KindValidation:
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

// handleError renders domain errors with catalog text and hides the detail
// of anything else.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(dto.Error{Kind: "HTTP", Code: "http_error", Message: fe.Message})
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return c.Status(statusFor(de.Kind)).JSON(dto.Error{
			Kind:    string(de.Kind),
			Code:    de.Code,
			Message: s.msgs.ErrorText(de.Code, de.Error()),
		})
	}
	s.logger.Error("http_request_error", zap.String("method", c.Method()), zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(dto.Error{
		Kind:    "INTERNAL",
		Code:    "internal",
		Message: s.msgs.ErrorText("", "internal error"),
	})
}
