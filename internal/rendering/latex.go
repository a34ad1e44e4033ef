package rendering

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/jonathan/jobpilot/internal/pipeline"
	"github.com/jonathan/jobpilot/internal/types"
	"github.com/jonathan/jobpilot/internal/validation"
)

//go:embed templates/resume.tex.tmpl
var templateFS embed.FS

const defaultTemplate = "templates/resume.tex.tmpl"

// CompileFunc compiles a .tex file into workDir and returns the PDF path
type CompileFunc func(ctx context.Context, texPath, workDir string) (pdfPath, logOutput string, err error)

// PageCountFunc counts the pages of a PDF
type PageCountFunc func(ctx context.Context, pdfPath string) (int, error)

// TemplateData is the view of a tailored resume handed to the LaTeX template.
// ContactLine is already escaped.
type TemplateData struct {
	Name           string
	ContactLine    string
	Skills         []types.SkillCategory
	Work           []types.ResumeEntry
	Research       []types.ResumeEntry
	Projects       []types.ProjectEntry
	Education      []types.Education
	Certifications []string
}

// LaTeXRenderer writes <base>.tex and, when enabled, compiles it to <base>.pdf
type LaTeXRenderer struct {
	tmpl         *template.Template
	templatePath string
	compilePDF   bool
	requirePDF   bool
	maxPages     int
	compile      CompileFunc
	countPages   PageCountFunc
	log          *zap.Logger
}

// LaTeXOption configures a LaTeXRenderer
type LaTeXOption func(*LaTeXRenderer)

// WithTemplateFile renders with a template from disk instead of the embedded one.
func WithTemplateFile(path string) LaTeXOption {
	return func(r *LaTeXRenderer) { r.templatePath = path }
}

// WithPDF enables compilation. With require set, a failed compile fails the render.
// maxPages <= 0 disables the page limit warning.
func WithPDF(require bool, maxPages int) LaTeXOption {
	return func(r *LaTeXRenderer) {
		r.compilePDF = true
		r.requirePDF = require
		r.maxPages = maxPages
	}
}

// WithCompiler replaces pdflatex and the page counter.
func WithCompiler(compile CompileFunc, count PageCountFunc) LaTeXOption {
	return func(r *LaTeXRenderer) {
		r.compile = compile
		r.countPages = count
	}
}

// WithLogger sets the logger used for compile warnings.
func WithLogger(log *zap.Logger) LaTeXOption {
	return func(r *LaTeXRenderer) { r.log = log }
}

// NewLaTeXRenderer parses the template and returns a renderer.
func NewLaTeXRenderer(opts ...LaTeXOption) (*LaTeXRenderer, error) {
	r := &LaTeXRenderer{
		compile:    validation.CompileLaTeX,
		countPages: validation.CountPDFPages,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	tmpl, err := parseTemplate(r.templatePath)
	if err != nil {
		return nil, err
	}
	r.tmpl = tmpl
	return r, nil
}

// Name implements pipeline.Renderer.
func (r *LaTeXRenderer) Name() string { return "latex" }

// Render writes the .tex file and optionally compiles it.
func (r *LaTeXRenderer) Render(ctx context.Context, doc *types.TailoredResume, target pipeline.OutputTarget) ([]pipeline.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tex, err := r.RenderTeX(doc)
	if err != nil {
		return nil, err
	}

	texPath := target.Path(".tex")
	if err := os.WriteFile(texPath, []byte(tex), 0o644); err != nil {
		return nil, &OutputError{Format: "tex", Path: texPath, Cause: err}
	}
	artifacts := []pipeline.Artifact{{Kind: pipeline.KindTeX, Path: texPath}}

	if !r.compilePDF {
		return artifacts, nil
	}

	pdf, err := r.compileAndCount(ctx, texPath, target.Dir)
	if err != nil {
		if r.requirePDF {
			return artifacts, &OutputError{Format: "pdf", Path: target.Path(".pdf"), Cause: err}
		}
		r.log.Warn("PDF compilation failed, keeping .tex only",
			zap.String("tex", texPath),
			zap.Error(err))
		return artifacts, nil
	}
	return append(artifacts, *pdf), nil
}

func (r *LaTeXRenderer) compileAndCount(ctx context.Context, texPath, dir string) (*pipeline.Artifact, error) {
	pdfPath, logOutput, err := r.compile(ctx, texPath, dir)
	if err != nil {
		var compErr *validation.CompileError
		if !errors.As(err, &compErr) || !compErr.Partial() {
			return nil, err
		}
		r.log.Warn("pdflatex reported errors",
			zap.String("pdf", pdfPath),
			zap.String("log_tail", tail(logOutput, 500)))
	}
	if cleanErr := validation.CleanupCompilationArtifacts(texPath, dir); cleanErr != nil {
		r.log.Debug("failed to remove LaTeX aux files", zap.Error(cleanErr))
	}

	artifact := &pipeline.Artifact{Kind: pipeline.KindPDF, Path: pdfPath}
	pages, err := r.countPages(ctx, pdfPath)
	if err != nil {
		r.log.Warn("could not count PDF pages", zap.String("pdf", pdfPath), zap.Error(err))
		return artifact, nil
	}
	artifact.Pages = pages
	if r.maxPages > 0 && pages > r.maxPages {
		artifact.Warning = fmt.Sprintf("resume is %d pages, limit is %d: content needs trimming", pages, r.maxPages)
	}
	return artifact, nil
}

// RenderTeX executes the template against the document.
func (r *LaTeXRenderer) RenderTeX(doc *types.TailoredResume) (string, error) {
	if doc == nil {
		return "", ErrNilDocument
	}
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, buildTemplateData(doc)); err != nil {
		return "", &TemplateError{Path: r.templatePath, Phase: PhaseExecute, Cause: err}
	}
	return buf.String(), nil
}

func parseTemplate(path string) (*template.Template, error) {
	var (
		content []byte
		err     error
	)
	if path == "" {
		content, err = templateFS.ReadFile(defaultTemplate)
	} else {
		content, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, &TemplateError{Path: path, Phase: PhaseLoad, Cause: err}
	}

	// LaTeX is full of braces, so actions use << >>
	tmpl, err := template.New("resume").
		Delims("<<", ">>").
		Funcs(template.FuncMap{
			"escape":     EscapeLaTeX,
			"escapeJoin": escapeJoin,
			"dates":      dateRange,
		}).
		Parse(string(content))
	if err != nil {
		return nil, &TemplateError{Path: path, Phase: PhaseParse, Cause: err}
	}
	return tmpl, nil
}

func buildTemplateData(doc *types.TailoredResume) TemplateData {
	data := TemplateData{
		Name:           doc.Personal.Name,
		ContactLine:    contactLine(doc.Personal),
		Work:           doc.WorkExperience,
		Research:       doc.ResearchExperience,
		Projects:       doc.Projects,
		Education:      doc.Education,
		Certifications: doc.Certifications,
	}
	for _, c := range doc.TechnicalSkills {
		if len(c.Skills) > 0 {
			data.Skills = append(data.Skills, c)
		}
	}
	return data
}

// contactLine joins email, phone and profile links with " $|$ ".
func contactLine(p types.PersonalInfo) string {
	var parts []string
	if p.Email != "" {
		parts = append(parts, fmt.Sprintf(`\href{mailto:%s}{%s}`, escapeURL(p.Email), EscapeLaTeX(p.Email)))
	}
	if p.Phone != "" {
		parts = append(parts, EscapeLaTeX(p.Phone))
	}
	links := []struct {
		value, prefix, label string
	}{
		{p.LinkedIn, "https://linkedin.com/in/", "LinkedIn"},
		{p.GitHub, "https://github.com/", "GitHub"},
		{p.Website, "https://", "Website"},
	}
	for _, l := range links {
		if l.value == "" {
			continue
		}
		url := l.value
		if !strings.HasPrefix(url, "http") {
			url = l.prefix + url
		}
		parts = append(parts, fmt.Sprintf(`\href{%s}{%s}`, escapeURL(url), l.label))
	}
	return strings.Join(parts, " $|$ ")
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
