// Package profile loads and saves candidate master profiles stored as JSON files.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jonathan/jobpilot/internal/pipeline"
	"github.com/jonathan/jobpilot/internal/schemas"
	"github.com/jonathan/jobpilot/internal/types"
)

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// FileStore keeps the default profile at one path and per-user profiles in a directory as
// <user_id>.json.
type FileStore struct {
	defaultPath string
	dir         string
}

// NewFileStore creates a FileStore.
func NewFileStore(defaultPath, dir string) *FileStore {
	return &FileStore{defaultPath: defaultPath, dir: dir}
}

var _ pipeline.ProfileSource = (*FileStore)(nil)

// ValidUserID reports whether id is usable as a profile file name.
func ValidUserID(id string) bool {
	return userIDPattern.MatchString(id) && !strings.Contains(id, "..")
}

// Path returns the file backing userID; an empty id means the default profile.
func (s *FileStore) Path(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return s.defaultPath, nil
	}
	if !ValidUserID(userID) {
		return "", &InvalidUserIDError{UserID: userID}
	}
	return filepath.Join(s.dir, userID+".json"), nil
}

// LoadProfile implements pipeline.ProfileSource.
func (s *FileStore) LoadProfile(ctx context.Context, userID string) (*types.MasterProfile, error) {
	return s.Load(ctx, userID)
}

// Load reads the profile for userID, or the default profile when userID is empty.
func (s *FileStore) Load(_ context.Context, userID string) (*types.MasterProfile, error) {
	path, err := s.Path(userID)
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// Default reads the default profile.
func (s *FileStore) Default(ctx context.Context) (*types.MasterProfile, error) {
	return s.Load(ctx, "")
}

// Save validates p and writes it for userID (the default profile when empty). The file is
// replaced atomically.
func (s *FileStore) Save(_ context.Context, userID string, p *types.MasterProfile) (string, error) {
	if p == nil {
		return "", errors.New("profile is required")
	}
	path, err := s.Path(userID)
	if err != nil {
		return "", err
	}
	if err := schemas.ValidateValue(schemas.MasterProfile, p); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", &LoadError{Path: path, Message: "failed to encode", Cause: err}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", &LoadError{Path: path, Message: "failed to create directory", Cause: err}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".profile-*.json")
	if err != nil {
		return "", &LoadError{Path: path, Message: "failed to create temp file", Cause: err}
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return "", &LoadError{Path: path, Message: "failed to write", Cause: err}
	}
	if err := tmp.Close(); err != nil {
		return "", &LoadError{Path: path, Message: "failed to write", Cause: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", &LoadError{Path: path, Message: "failed to replace", Cause: err}
	}
	return path, nil
}

// LoadFile reads and validates a master profile JSON file.
func LoadFile(path string) (*types.MasterProfile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, &LoadError{Path: path, Message: "failed to read file", Cause: err}
	}
	if err := schemas.ValidateBytes(schemas.MasterProfile, content); err != nil {
		return nil, &LoadError{Path: path, Message: "invalid profile", Cause: err}
	}

	var p types.MasterProfile
	if err := json.Unmarshal(content, &p); err != nil {
		return nil, &LoadError{Path: path, Message: "failed to unmarshal JSON", Cause: err}
	}
	return &p, nil
}

// Summary is a short description of a stored profile
type Summary struct {
	Name                    string `json:"name"`
	Email                   string `json:"email"`
	EducationCount          int    `json:"education_count"`
	WorkExperienceCount     int    `json:"work_experience_count"`
	ResearchExperienceCount int    `json:"research_experience_count"`
	ProjectsCount           int    `json:"projects_count"`
	ProfilePath             string `json:"profile_path,omitempty"`
}

// Summarize counts the sections of p.
func Summarize(p *types.MasterProfile, path string) Summary {
	return Summary{
		Name:                    p.Personal.Name,
		Email:                   p.Personal.Email,
		EducationCount:          len(p.Education),
		WorkExperienceCount:     len(p.WorkExperience),
		ResearchExperienceCount: len(p.ResearchExperience),
		ProjectsCount:           len(p.Projects),
		ProfilePath:             path,
	}
}
