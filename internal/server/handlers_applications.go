package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/jobpilot/internal/tracker"
	"github.com/jonathan/jobpilot/internal/types"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ApplicationsResponse lists tracked applications
type ApplicationsResponse struct {
	Applications []types.Application `json:"applications"`
	Count        int                 `json:"count"`
}

// StatusRequest is the body of PATCH /api/applications/{id}/status
type StatusRequest struct {
	Status types.ApplicationStatus `json:"status" validate:"required"`
	Notes  string                  `json:"notes" validate:"max=2000"`
}

// FollowUpRequest is the optional body of POST /api/applications/{id}/followup
type FollowUpRequest struct {
	Days int `json:"days" validate:"min=0,max=365"`
}

func applicationID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &ErrValidation{Field: "id", Message: fmt.Sprintf("%q is not an application id", raw)}
	}
	return id, nil
}

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	status := types.ApplicationStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	if status != "" && !status.Valid() {
		s.errorResponse(w, r, &ErrValidation{Field: "status", Message: fmt.Sprintf("unknown status %q", status)})
		return
	}
	apps, err := s.tracker.List(r.Context(), status)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, applicationsResponse(apps))
}

func (s *Server) handleApplicationStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.tracker.Stats(r.Context())
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, stats)
}

func (s *Server) handleFollowUps(w http.ResponseWriter, r *http.Request) {
	apps, err := s.tracker.FollowUps(r.Context(), s.now())
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, applicationsResponse(apps))
}

// handleExportApplications streams every application as a spreadsheet.
func (s *Server) handleExportApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := s.tracker.List(r.Context(), "")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	stats, err := s.tracker.Stats(r.Context())
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := tracker.ExportXLSX(&buf, apps, stats); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	name := fmt.Sprintf("applications_%s.xlsx", s.now().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.requestLogger(r).Warn("export write failed", zap.Error(err))
	}
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := applicationID(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	var req StatusRequest
	if err := s.decodeJSON(w, r, &req, false); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	app, err := s.tracker.UpdateStatus(r.Context(), id, req.Status, req.Notes)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.requestLogger(r).Info("application status updated",
		zap.Int64("application_id", id),
		zap.String("status", string(app.Status)))
	s.jsonResponse(w, r, http.StatusOK, app)
}

func (s *Server) handleSetFollowUp(w http.ResponseWriter, r *http.Request) {
	id, err := applicationID(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	var req FollowUpRequest
	if err := s.decodeJSON(w, r, &req, true); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	app, err := s.tracker.SetFollowUp(r.Context(), id, req.Days)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, app)
}

func applicationsResponse(apps []types.Application) ApplicationsResponse {
	if apps == nil {
		apps = []types.Application{}
	}
	return ApplicationsResponse{Applications: apps, Count: len(apps)}
}
