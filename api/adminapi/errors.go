package adminapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/pnp-roster/roster/storage/model"
)

// Error codes used in error responses
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeInvalidClient  = "invalid_client"
	ErrorCodeNotFound       = "not_found"
	ErrorCodeConflict       = "already_exists"
	ErrorCodeServerError    = "server_error"
)

// ErrorResponse is the body of all error responses
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// ErrorInvalidRequest returns an ErrorResponse for a malformed request
func ErrorInvalidRequest(description string) ErrorResponse {
	return ErrorResponse{
		Error:            ErrorCodeInvalidRequest,
		ErrorDescription: description,
	}
}

// ErrorNotFound returns an ErrorResponse for an unknown resource
func ErrorNotFound(description string) ErrorResponse {
	return ErrorResponse{
		Error:            ErrorCodeNotFound,
		ErrorDescription: description,
	}
}

// ErrorServerError returns an ErrorResponse for an internal failure
func ErrorServerError(description string) ErrorResponse {
	return ErrorResponse{
		Error:            ErrorCodeServerError,
		ErrorDescription: description,
	}
}

// writeError maps the model error types to status codes and writes the
// ErrorResponse
func writeError(c *fiber.Ctx, err error) error {
	var notFound model.NotFoundError
	var alreadyExists model.AlreadyExistsError
	var validation model.ValidationError
	switch {
	case errors.As(err, &notFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorNotFound(notFound.Error()))
	case errors.As(err, &alreadyExists):
		return c.Status(fiber.StatusConflict).JSON(
			ErrorResponse{
				Error:            ErrorCodeConflict,
				ErrorDescription: alreadyExists.Error(),
			},
		)
	case errors.As(err, &validation):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorInvalidRequest(validation.Error()))
	default:
		log.WithError(err).Error("admin api request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorServerError(err.Error()))
	}
}
