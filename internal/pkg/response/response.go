package response

import (
	"diasporan-backend/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// SuccessBody is the standardized success JSON shape.
type SuccessBody struct {
	Status   string      `json:"status"`
	Message  string      `json:"message"`
	Data     interface{} `json:"data"`
	Metadata interface{} `json:"metadata,omitempty"`
}

// ErrorBody is the standardized error JSON shape.
type ErrorBody struct {
	Status string      `json:"status"`
	Error  ErrorDetail `json:"error"`
}

// ErrorDetail is the nested error object. Code is the stable machine-readable code.
type ErrorDetail struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	StatusCode int         `json:"statusCode"`
	Details    interface{} `json:"details,omitempty"`
}

const statusSuccess = "success"
const statusError = "error"

// Success sends a 200 OK response with the standard success format.
func Success(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return c.Status(fiber.StatusOK).JSON(SuccessBody{
		Status:   statusSuccess,
		Message:  message,
		Data:     data,
		Metadata: metadata,
	})
}

// SuccessCreated sends a 201 Created response with the standard success format.
func SuccessCreated(c *fiber.Ctx, message string, data interface{}, metadata interface{}) error {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return c.Status(fiber.StatusCreated).JSON(SuccessBody{
		Status:   statusSuccess,
		Message:  message,
		Data:     data,
		Metadata: metadata,
	})
}

// Error sends a response with the standard error format and a code derived from the status.
func Error(c *fiber.Ctx, message string, statusCode int, details interface{}) error {
	return ErrorWithCode(c, defaultCode(statusCode), message, statusCode, details)
}

func ErrorWithCode(c *fiber.Ctx, code, message string, statusCode int, details interface{}) error {
	if details == nil {
		details = map[string]interface{}{}
	}
	return c.Status(statusCode).JSON(ErrorBody{
		Status: statusError,
		Error: ErrorDetail{
			Code:       code,
			Message:    message,
			StatusCode: statusCode,
			Details:    details,
		},
	})
}

// Unauthorized sends 401 with the same shape as other errors (status "error", error.message).
// Use this for auth middleware so all errors are consistent.
func Unauthorized(c *fiber.Ctx, message string) error {
	return ErrorWithCode(c, apperror.CodeUnauthorized, message, fiber.StatusUnauthorized, nil)
}

// ErrorCauseLocal holds the cause of an internal failure for the health error log.
const ErrorCauseLocal = "error_cause"

// Fail writes err using the single kind -> status mapping. Internal failures are logged
// with their cause and reach the client as a generic INTERNAL_ERROR.
func Fail(c *fiber.Ctx, err error) error {
	e := apperror.As(err)
	status := StatusFor(e.Kind)
	if e.Kind == apperror.KindInternal || e.Kind == apperror.KindTransient {
		traceID, _ := c.Locals("trace_id").(string)
		log.Error().Err(e.Err).Str("trace_id", traceID).Str("method", c.Method()).Str("path", c.Path()).
			Str("code", e.Code).Msg("Request failed")
		if e.Err != nil {
			c.Locals(ErrorCauseLocal, e.Err.Error())
		}
	}
	var details interface{}
	if e.Details != nil {
		details = e.Details
	}
	return ErrorWithCode(c, e.Code, e.Message, status, details)
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(k apperror.Kind) int {
	switch k {
	case apperror.KindValidation, apperror.KindInvalidState:
		return fiber.StatusBadRequest
	case apperror.KindUnauthorized:
		return fiber.StatusUnauthorized
	case apperror.KindForbidden:
		return fiber.StatusForbidden
	case apperror.KindNotFound:
		return fiber.StatusNotFound
	case apperror.KindConflict:
		return fiber.StatusConflict
	case apperror.KindNotImplemented:
		return fiber.StatusNotImplemented
	case apperror.KindTransient:
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

func defaultCode(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return apperror.CodeValidation
	case fiber.StatusUnauthorized:
		return apperror.CodeUnauthorized
	case fiber.StatusForbidden:
		return apperror.CodeForbidden
	case fiber.StatusNotFound:
		return apperror.CodeNotFound
	case fiber.StatusConflict:
		return apperror.CodeConflict
	case fiber.StatusNotImplemented:
		return apperror.CodeNotImplemented
	case fiber.StatusServiceUnavailable, fiber.StatusRequestTimeout:
		return apperror.CodeTransient
	}
	if status >= 500 {
		return apperror.CodeInternal
	}
	return "ERROR"
}
