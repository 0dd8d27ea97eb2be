package middleware

import (
	"errors"

	"diasporan-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is the global error handler. Application errors keep their code;
// anything else is a fiber error or an internal failure.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return response.Error(c, fe.Message, fe.Code, map[string]interface{}{})
	}
	return response.Fail(c, err)
}
