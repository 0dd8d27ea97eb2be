// Package request binds and validates handler input.
package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"diasporan-backend/internal/domain"
	"diasporan-backend/internal/pkg/apperror"
	"diasporan-backend/internal/pkg/pagination"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FieldError is one failed constraint, reported under error.details.fields.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Bind decodes the JSON body into dst and runs its validate tags.
func Bind(c *fiber.Ctx, dst interface{}) error {
	if len(c.Body()) == 0 {
		return apperror.Validation(apperror.CodeValidation, "Request body is required")
	}
	if err := json.Unmarshal(c.Body(), dst); err != nil {
		return apperror.Validation(apperror.CodeValidation, "Invalid request body")
	}
	return Validate(dst)
}

// Validate runs the validate tags of v and translates failures into a validation error.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.Internal(err)
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return apperror.Validation(apperror.CodeValidation, fields[0].Field+": "+fields[0].Message).
		WithDetails(map[string]any{"fields": fields})
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "len":
		return "must have length " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "email":
		return "must be a valid email"
	case "url", "http_url":
		return "must be a valid URL"
	}
	return fmt.Sprintf("failed %q", fe.Tag())
}

// UUIDParam parses a route parameter as a uuid.
func UUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperror.Validation(apperror.CodeValidation, "Invalid "+name)
	}
	return id, nil
}

// ListingTypeParam parses the :type route parameter.
func ListingTypeParam(c *fiber.Ctx) (domain.ListingType, error) {
	lt, err := domain.ParseListingType(c.Params("type"))
	if err != nil {
		return "", apperror.Validation(apperror.CodeValidation, "Unknown listing type "+strconv.Quote(c.Params("type")))
	}
	return lt, nil
}

// Page reads ?page= and ?limit=.
func Page(c *fiber.Ctx) pagination.Params {
	return pagination.Parse(c.Query("page"), c.Query("limit"))
}

// FloatQuery returns nil when the parameter is absent.
func FloatQuery(c *fiber.Ctx, name string) (*float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperror.Validation(apperror.CodeValidation, name+" must be a number")
	}
	return &f, nil
}

// IntQuery returns def when the parameter is absent.
func IntQuery(c *fiber.Ctx, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.Validation(apperror.CodeValidation, name+" must be an integer")
	}
	return n, nil
}

// TimeQuery accepts RFC 3339 timestamps or plain dates (YYYY-MM-DD, UTC midnight).
func TimeQuery(c *fiber.Ctx, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := ParseTime(raw)
	if err != nil {
		return nil, apperror.Validation(apperror.CodeValidation, name+" must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	}
	return &t, nil
}

func ParseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, raw)
}
