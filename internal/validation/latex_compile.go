package validation

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	// CompilationTimeout bounds a whole compile, all passes included
	CompilationTimeout = 30 * time.Second

	// compilePasses lets hyperref resolve its references on the second run
	compilePasses = 2
)

var auxExtensions = []string{".aux", ".log", ".out", ".toc", ".lof", ".lot"}

// CompileLaTeX compiles texPath with pdflatex into workDir and returns the PDF path.
// An empty workDir compiles next to the source. When pdflatex exits with an error but
// still produced a PDF, the path is returned together with a partial CompileError.
func CompileLaTeX(ctx context.Context, texPath string, workDir string) (pdfPath string, logOutput string, err error) {
	if _, err := os.Stat(texPath); err != nil {
		return "", "", &CompileError{TexPath: texPath, Reason: "source not readable", Cause: err}
	}
	if _, err := exec.LookPath("pdflatex"); err != nil {
		return "", "", &ToolMissingError{
			Tools: []string{"pdflatex"},
			Hint:  "install a LaTeX distribution such as TeX Live",
		}
	}

	if workDir == "" {
		workDir = filepath.Dir(texPath)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", "", &CompileError{TexPath: texPath, Reason: "cannot create " + workDir, Cause: err}
	}

	ctx, cancel := context.WithTimeout(ctx, CompilationTimeout)
	defer cancel()

	absTex, err := filepath.Abs(texPath)
	if err != nil {
		absTex = texPath
	}

	var (
		out    strings.Builder
		runErr error
	)
	for range compilePasses {
		cmd := exec.CommandContext(ctx, "pdflatex", "-interaction=nonstopmode", "-output-directory", workDir, absTex)
		cmd.Dir = workDir
		cmd.Stdout = &out
		cmd.Stderr = &out
		if runErr = cmd.Run(); ctx.Err() != nil {
			return "", out.String(), &CompileError{
				TexPath: texPath,
				Reason:  "timed out",
				Log:     out.String(),
				Cause:   ctx.Err(),
			}
		}
	}
	logOutput = out.String()

	pdfPath = filepath.Join(workDir, strings.TrimSuffix(filepath.Base(texPath), ".tex")+".pdf")
	if _, err := os.Stat(pdfPath); os.IsNotExist(err) {
		return "", logOutput, &CompileError{
			TexPath: texPath,
			Reason:  "no PDF was generated",
			Log:     logOutput,
			Cause:   runErr,
		}
	}

	// pdflatex can exit non-zero and still write a usable PDF
	if runErr != nil {
		return pdfPath, logOutput, &CompileError{
			TexPath: texPath,
			PDFPath: pdfPath,
			Reason:  "pdflatex reported errors, PDF may be incomplete",
			Log:     logOutput,
			Cause:   runErr,
		}
	}

	return pdfPath, logOutput, nil
}

// CleanupCompilationArtifacts removes the auxiliary files pdflatex leaves next to the PDF
// for texPath in workDir. Missing files are ignored.
func CleanupCompilationArtifacts(texPath, workDir string) error {
	if texPath == "" {
		return nil
	}
	if workDir == "" {
		workDir = filepath.Dir(texPath)
	}
	stem := strings.TrimSuffix(filepath.Base(texPath), ".tex")
	for _, ext := range auxExtensions {
		if err := os.Remove(filepath.Join(workDir, stem+ext)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
