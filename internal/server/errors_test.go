package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jonathan/jobpilot/internal/pipeline"
	"github.com/jonathan/jobpilot/internal/profile"
	"github.com/jonathan/jobpilot/internal/schemas"
	"github.com/jonathan/jobpilot/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrValidation(t *testing.T) {
	err := &ErrValidation{Field: "session_id", Message: "required"}
	assert.Equal(t, "validation error: session_id - required", err.Error())
}

func TestErrNotFound(t *testing.T) {
	err := &ErrNotFound{Resource: "file", ID: "resume.pdf"}
	assert.Equal(t, "file not found: resume.pdf", err.Error())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "validation", err: &ErrValidation{Field: "f", Message: "m"}, wantStatus: http.StatusBadRequest, wantCode: CodeInvalidRequest},
		{name: "input", err: &pipeline.InputError{Field: "job", Message: "missing"}, wantStatus: http.StatusBadRequest, wantCode: CodeInvalidRequest},
		{name: "user id", err: fmt.Errorf("failed to load profile: %w", &profile.InvalidUserIDError{UserID: "../x"}), wantStatus: http.StatusBadRequest, wantCode: CodeInvalidRequest},
		{name: "profile schema", err: &schemas.ValidationError{Schema: "master_profile"}, wantStatus: http.StatusBadRequest, wantCode: CodeInvalidRequest},
		{name: "bad status", err: fmt.Errorf("%w: %q", tracker.ErrInvalidStatus, "lost"), wantStatus: http.StatusBadRequest, wantCode: CodeInvalidRequest},
		{name: "session expired", err: &pipeline.SessionExpiredError{SessionID: "abc"}, wantStatus: http.StatusNotFound, wantCode: CodeSessionExpired},
		{name: "generation", err: &pipeline.GenerationError{Stage: "parse_job", Cause: errors.New("quota")}, wantStatus: http.StatusBadGateway, wantCode: CodeGenerationFailed},
		{name: "resume rejected", err: &profile.UploadError{Filename: "cv.docx", Reason: "only PDF resumes are supported"}, wantStatus: http.StatusBadRequest, wantCode: CodeInvalidRequest},
		{name: "resume extraction", err: &profile.ExtractionError{Reason: "bad schema", Cause: &schemas.ValidationError{Schema: "master_profile"}}, wantStatus: http.StatusBadGateway, wantCode: CodeGenerationFailed},
		{name: "missing file", err: &ErrNotFound{Resource: "file", ID: "x"}, wantStatus: http.StatusNotFound, wantCode: CodeNotFound},
		{name: "missing profile", err: fmt.Errorf("failed to load profile: %w", fmt.Errorf("%w: /p.json", profile.ErrNotFound)), wantStatus: http.StatusNotFound, wantCode: CodeNotFound},
		{name: "missing application", err: fmt.Errorf("%w: 9", tracker.ErrNotFound), wantStatus: http.StatusNotFound, wantCode: CodeNotFound},
		{name: "render", err: &pipeline.RenderError{Renderer: "latex", Cause: errors.New("boom")}, wantStatus: http.StatusInternalServerError, wantCode: CodeInternal},
		{name: "unknown", err: errors.New("disk full"), wantStatus: http.StatusInternalServerError, wantCode: CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, HTTPStatus(tt.err))
			assert.Equal(t, tt.wantCode, ErrorCode(tt.err))
		})
	}
}

func TestPublicMessage(t *testing.T) {
	err := errors.New("pq: connection refused")
	assert.Equal(t, internalMessage, publicMessage(http.StatusInternalServerError, err))
	assert.Equal(t, err.Error(), publicMessage(http.StatusBadGateway, err))
	assert.Equal(t, err.Error(), publicMessage(http.StatusBadRequest, err))
	assert.Equal(t, pipeline.SessionExpiredMessage,
		publicMessage(http.StatusNotFound, &pipeline.SessionExpiredError{SessionID: "x"}))
}

func TestValidationError(t *testing.T) {
	type request struct {
		SessionID string `json:"session_id" validate:"required"`
		Days      int    `json:"days" validate:"max=365"`
	}
	v := newValidator()

	err := validationError(v.Struct(request{}))
	var ve *ErrValidation
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "session_id", ve.Field)
	assert.Equal(t, "required", ve.Message)

	err = validationError(v.Struct(request{SessionID: "s", Days: 400}))
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "max=365", ve.Message)

	err = validationError(errors.New("unexpected EOF"))
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "body", ve.Field)
}
