package server

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/jobpilot/internal/logger"
	"github.com/jonathan/jobpilot/internal/pipeline"
	"github.com/jonathan/jobpilot/internal/profile"
	"github.com/jonathan/jobpilot/internal/types"
)

// HealthResponse is returned by GET /api/health
type HealthResponse struct {
	Status         string    `json:"status"`
	Version        string    `json:"version"`
	ActiveSessions int       `json:"active_sessions"`
	Time           time.Time `json:"time"`
}

// ProfileResponse carries a master profile and its section counts
type ProfileResponse struct {
	UserID  string               `json:"user_id,omitempty"`
	Summary profile.Summary      `json:"summary"`
	Profile *types.MasterProfile `json:"profile"`
}

// JobRequest names a posting by URL or pasted text
type JobRequest struct {
	URL    string `json:"jd_url" validate:"omitempty,url,max=2048"`
	Text   string `json:"jd_text" validate:"omitempty,max=100000"`
	UserID string `json:"user_id" validate:"omitempty,max=64"`
}

func (r JobRequest) input() pipeline.JobInput {
	return pipeline.JobInput{URL: strings.TrimSpace(r.URL), Text: r.Text}
}

// ParseJobResponse is returned by POST /api/parse-jd
type ParseJobResponse struct {
	Job *types.ParsedJob `json:"job"`
}

// SessionResponse is returned by GET /api/tailor/sessions/{session_id}
type SessionResponse struct {
	SessionID   string                  `json:"session_id"`
	Suggestions *types.SuggestionBundle `json:"suggestions"`
}

// FinalizeRequest is the body of POST /api/tailor/finalize
type FinalizeRequest struct {
	SessionID string        `json:"session_id" validate:"required,max=128"`
	UserEdits types.EditSet `json:"user_edits"`
}

// FinalizeResponse adds download links to the finalize result
type FinalizeResponse struct {
	*pipeline.FinalizeResult
	Downloads map[string]string `json:"downloads"`
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	active := 0
	if s.sessions != nil {
		active = s.sessions.Len()
	}
	s.jsonResponse(w, r, http.StatusOK, HealthResponse{
		Status:         "healthy",
		Version:        s.version,
		ActiveSessions: active,
		Time:           s.now().UTC(),
	})
}

// profileUserID takes the user from the path, then the query string. Empty means the default
// profile.
func profileUserID(r *http.Request) string {
	if id := r.PathValue("user_id"); id != "" {
		return id
	}
	return strings.TrimSpace(r.URL.Query().Get("user_id"))
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := profileUserID(r)
	p, err := s.profiles.Load(r.Context(), userID)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	path, _ := s.profiles.Path(userID)
	s.jsonResponse(w, r, http.StatusOK, ProfileResponse{
		UserID:  userID,
		Summary: profile.Summarize(p, path),
		Profile: p,
	})
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	userID := profileUserID(r)
	var p types.MasterProfile
	if err := s.decodeJSON(w, r, &p, false); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	path, err := s.profiles.Save(r.Context(), userID, &p)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.requestLogger(r).Info("profile saved", logger.StringFields(
		logger.StringField{Key: logger.FieldUserID, Value: userID},
		logger.StringField{Key: "path", Value: path},
	)...)
	s.jsonResponse(w, r, http.StatusOK, ProfileResponse{
		UserID:  userID,
		Summary: profile.Summarize(&p, path),
		Profile: &p,
	})
}

// UploadProfileResponse is returned by POST /api/profile/upload
type UploadProfileResponse struct {
	UserID string `json:"user_id"`
	profile.Summary
}

// handleUploadProfile builds a new per-user profile from a multipart "file" resume PDF.
func (s *Server) handleUploadProfile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, profile.MaxResumeBytes+maxBodyBytes)
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.errorResponse(w, r, &ErrValidation{Field: "file", Message: "upload too large"})
			return
		}
		s.errorResponse(w, r, &ErrValidation{Field: "file", Message: "expected a multipart form upload"})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.errorResponse(w, r, &ErrValidation{Field: "file", Message: "a resume PDF is required"})
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, profile.MaxResumeBytes+1))
	if err != nil {
		s.errorResponse(w, r, &ErrValidation{Field: "file", Message: "could not read upload"})
		return
	}

	res, err := s.importer.ImportPDF(r.Context(), header.Filename, data)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.requestLogger(r).Info("profile uploaded", logger.StringFields(
		logger.StringField{Key: logger.FieldUserID, Value: res.UserID},
		logger.StringField{Key: "file_hash", Value: res.FileHash},
	)...)
	s.jsonResponse(w, r, http.StatusOK, UploadProfileResponse{UserID: res.UserID, Summary: res.Summary})
}

func (s *Server) handleParseJob(w http.ResponseWriter, r *http.Request) {
	var req JobRequest
	if err := s.decodeJSON(w, r, &req, false); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	job, err := s.svc.ParseJob(r.Context(), req.input())
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, ParseJobResponse{Job: job})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	var req JobRequest
	if err := s.decodeJSON(w, r, &req, false); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	res, err := s.svc.Suggest(r.Context(), pipeline.SuggestRequest{Job: req.input(), UserID: req.UserID})
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.requestLogger(r).Info("suggestions generated",
		zap.String(logger.FieldSessionID, res.SessionID),
		zap.Time("expires_at", res.ExpiresAt))
	s.jsonResponse(w, r, http.StatusOK, res)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("session_id")
	bundle, err := s.svc.Session(id)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, SessionResponse{SessionID: id, Suggestions: bundle})
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	var req FinalizeRequest
	if err := s.decodeJSON(w, r, &req, false); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	res, err := s.svc.Finalize(r.Context(), pipeline.FinalizeRequest{
		SessionID: req.SessionID,
		Edits:     req.UserEdits,
		Source:    "web_ui",
	})
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, s.finalizeResponse(res))
}

// handleTailor runs suggest and finalize in one call, accepting every suggestion.
func (s *Server) handleTailor(w http.ResponseWriter, r *http.Request) {
	var req JobRequest
	if err := s.decodeJSON(w, r, &req, false); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	res, err := s.svc.Tailor(r.Context(), pipeline.SuggestRequest{Job: req.input(), UserID: req.UserID}, "web_ui")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, s.finalizeResponse(res))
}

// servableName accepts a bare, non-hidden file name.
func servableName(name string) bool {
	return name != "" && name == filepath.Base(name) && !strings.HasPrefix(name, ".") && !strings.ContainsAny(name, `/\`)
}

func (s *Server) finalizeResponse(res *pipeline.FinalizeResult) FinalizeResponse {
	downloads := make(map[string]string, len(res.Files))
	for _, f := range res.Files {
		downloads[f.Kind] = "/api/files/" + filepath.Base(f.Path)
	}
	return FinalizeResponse{FinalizeResult: res, Downloads: downloads}
}

// handleFile serves a generated file. Only plain names inside the output directory resolve.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	if !servableName(name) {
		s.errorResponse(w, r, &ErrNotFound{Resource: "file", ID: name})
		return
	}

	f, err := os.Open(filepath.Join(s.svc.OutputDir(), name))
	if err != nil {
		s.errorResponse(w, r, &ErrNotFound{Resource: "file", ID: name})
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		s.errorResponse(w, r, &ErrNotFound{Resource: "file", ID: name})
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeContent(w, r, name, info.ModTime(), f)
}
