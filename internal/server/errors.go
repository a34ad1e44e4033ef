package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/jobpilot/internal/pipeline"
	"github.com/jonathan/jobpilot/internal/profile"
	"github.com/jonathan/jobpilot/internal/schemas"
	"github.com/jonathan/jobpilot/internal/tracker"
)

// Error codes returned in the "code" field of error bodies.
const (
	CodeInvalidRequest   = "invalid_request"
	CodeNotFound         = "not_found"
	CodeSessionExpired   = "session_expired"
	CodeGenerationFailed = "generation_failed"
	CodeRateLimited      = "rate_limit_exceeded"
	CodeInternal         = "internal_error"
)

const internalMessage = "internal server error"

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNotFound reports a missing resource addressed by the request path
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// errorBody is the JSON shape of every error response
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPStatus returns the status code for err.
func HTTPStatus(err error) int {
	status, _ := classify(err)
	return status
}

// ErrorCode returns the machine-readable code for err.
func ErrorCode(err error) string {
	_, code := classify(err)
	return code
}

func classify(err error) (int, string) {
	switch err.(type) {
	case nil:
		return http.StatusOK, ""
	case *ErrValidation, *pipeline.InputError:
		return http.StatusBadRequest, CodeInvalidRequest
	case *ErrNotFound:
		return http.StatusNotFound, CodeNotFound
	}

	var (
		expired    *pipeline.SessionExpiredError
		generation *pipeline.GenerationError
		extraction *profile.ExtractionError
		upload     *profile.UploadError
		input      *pipeline.InputError
		invalid    *ErrValidation
		userID     *profile.InvalidUserIDError
		schema     *schemas.ValidationError
		fields     validator.ValidationErrors
		missing    *ErrNotFound
	)
	switch {
	case errors.As(err, &expired):
		return http.StatusNotFound, CodeSessionExpired
	case errors.As(err, &generation), errors.As(err, &extraction):
		return http.StatusBadGateway, CodeGenerationFailed
	case errors.As(err, &input), errors.As(err, &invalid), errors.As(err, &userID), errors.As(err, &upload),
		errors.As(err, &schema), errors.As(err, &fields), errors.Is(err, tracker.ErrInvalidStatus):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.As(err, &missing), errors.Is(err, profile.ErrNotFound), errors.Is(err, tracker.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	}
	return http.StatusInternalServerError, CodeInternal
}

// publicMessage hides the detail of unexpected failures.
func publicMessage(status int, err error) string {
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		return internalMessage
	}
	return err.Error()
}

// validationError turns the first validator failure into an ErrValidation.
func validationError(err error) error {
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		fe := fields[0]
		msg := fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		return &ErrValidation{Field: fe.Field(), Message: msg}
	}
	return &ErrValidation{Field: "body", Message: err.Error()}
}
