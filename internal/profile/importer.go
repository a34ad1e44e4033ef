package profile

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/jobpilot/internal/llm"
	"github.com/jonathan/jobpilot/internal/logger"
	"github.com/jonathan/jobpilot/internal/prompts"
	"github.com/jonathan/jobpilot/internal/schemas"
	"github.com/jonathan/jobpilot/internal/types"
)

// MaxResumeBytes caps the size of an uploaded resume.
const MaxResumeBytes = 10 << 20

const (
	nameSlugLen = 20
	hashIDLen   = 8
)

var pdfMagic = []byte("%PDF-")

// Importer turns resume PDFs into stored master profiles
type Importer struct {
	client llm.DocumentClient
	store  *FileStore
	tier   llm.ModelTier
	log    *zap.Logger
}

// ImporterOption configures an Importer
type ImporterOption func(*Importer)

// WithImportTier selects the model tier used for extraction (default advanced).
func WithImportTier(tier llm.ModelTier) ImporterOption {
	return func(im *Importer) { im.tier = tier }
}

// WithImportLogger sets the logger
func WithImportLogger(log *zap.Logger) ImporterOption {
	return func(im *Importer) { im.log = log }
}

// NewImporter creates an Importer that saves into store.
func NewImporter(client llm.DocumentClient, store *FileStore, opts ...ImporterOption) *Importer {
	im := &Importer{client: client, store: store, tier: llm.TierAdvanced, log: zap.NewNop()}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// ImportResult describes a freshly imported profile
type ImportResult struct {
	UserID   string
	FileHash string
	Profile  *types.MasterProfile
	Summary  Summary
}

// IsPDF reports whether filename has a .pdf extension and data starts with the PDF header.
func IsPDF(filename string, data []byte) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf") && bytes.HasPrefix(data, pdfMagic)
}

// ImportPDF extracts a master profile from a resume PDF and saves it under a user id derived
// from the candidate's name and the file contents. Uploading the same file again replaces
// the same profile.
func (im *Importer) ImportPDF(ctx context.Context, filename string, data []byte) (*ImportResult, error) {
	if len(data) > MaxResumeBytes {
		return nil, &UploadError{Filename: filename, Reason: fmt.Sprintf("file exceeds %d MB", MaxResumeBytes>>20)}
	}
	if !IsPDF(filename, data) {
		return nil, &UploadError{Filename: filename, Reason: "only PDF resumes are supported"}
	}
	if im.client == nil {
		return nil, &ExtractionError{Reason: "no LLM client configured"}
	}

	sum := sha256.Sum256(data)
	fileHash := hex.EncodeToString(sum[:])[:12]
	log := im.log.With(zap.String("file_hash", fileHash), zap.Int("bytes", len(data)))

	prompt, err := prompts.Get(prompts.ProfileImportFile, prompts.ExtractProfile)
	if err != nil {
		return nil, err
	}
	response, err := im.client.GenerateJSONFromDocument(ctx, prompt, llm.Document{MIMEType: "application/pdf", Data: data}, im.tier)
	if err != nil {
		return nil, &ExtractionError{Reason: "model call failed", Cause: err}
	}

	p, err := decodeExtracted(response)
	if err != nil {
		log.Debug("unusable profile extraction", zap.String("response", logger.Truncate(response, 500)))
		return nil, err
	}

	userID := ImportUserID(p.Personal.Name, fileHash)
	path, err := im.store.Save(ctx, userID, p)
	if err != nil {
		var schemaErr *schemas.ValidationError
		if errors.As(err, &schemaErr) {
			return nil, &ExtractionError{Reason: "extracted profile does not match the profile schema", Cause: err}
		}
		return nil, err
	}

	summary := Summarize(p, path)
	log.Info("profile imported",
		zap.String(logger.FieldUserID, userID),
		zap.Int("work_experience", summary.WorkExperienceCount),
		zap.Int("projects", summary.ProjectsCount))
	return &ImportResult{UserID: userID, FileHash: fileHash, Profile: p, Summary: summary}, nil
}

// decodeExtracted parses the model output and fills in what the schema requires but models
// tend to leave out: section ids and empty lists.
func decodeExtracted(response string) (*types.MasterProfile, error) {
	var p types.MasterProfile
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(response)), &p); err != nil {
		return nil, &ExtractionError{Reason: "response is not a JSON profile", Cause: err}
	}

	p.Personal.Name = strings.TrimSpace(p.Personal.Name)
	p.Personal.Email = strings.TrimSpace(p.Personal.Email)
	if p.Personal.Name == "" {
		return nil, &ExtractionError{Reason: "no candidate name found in resume"}
	}

	for i := range p.Education {
		if p.Education[i].ID == "" {
			p.Education[i].ID = fmt.Sprintf("edu_%d", i+1)
		}
	}
	fillExperienceIDs(p.WorkExperience, "exp")
	fillExperienceIDs(p.ResearchExperience, "research")
	for i := range p.Projects {
		if p.Projects[i].ID == "" {
			p.Projects[i].ID = fmt.Sprintf("proj_%d", i+1)
		}
		if p.Projects[i].Bullets == nil {
			p.Projects[i].Bullets = []string{}
		}
	}
	if p.WorkExperience == nil {
		p.WorkExperience = []types.ProfileExperience{}
	}
	if p.Education == nil {
		p.Education = []types.Education{}
	}
	return &p, nil
}

func fillExperienceIDs(exps []types.ProfileExperience, prefix string) {
	for i := range exps {
		if exps[i].ID == "" {
			exps[i].ID = fmt.Sprintf("%s_%d", prefix, i+1)
		}
		if exps[i].Bullets == nil {
			exps[i].Bullets = []string{}
		}
	}
}

// ImportUserID builds "<name slug>_<hash prefix>", e.g. "jane_doe_3fa9c1e2". The slug keeps
// lowercase letters and digits and joins everything else with underscores.
func ImportUserID(name, fileHash string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	slug := b.String()
	if len(slug) > nameSlugLen {
		slug = strings.TrimRight(slug[:nameSlugLen], "_")
	}
	if slug == "" {
		slug = "user"
	}
	if len(fileHash) > hashIDLen {
		fileHash = fileHash[:hashIDLen]
	}
	return slug + "_" + fileHash
}
