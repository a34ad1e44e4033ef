package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage master profiles",
}

var profileImportCmd = &cobra.Command{
	Use:   "import <resume.pdf>",
	Short: "Create a master profile from a resume PDF",
	Long:  "Extract a master profile from a resume PDF with the configured model and save it under a new user id.",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileImport,
}

func init() {
	profileCmd.AddCommand(profileImportCmd)
	rootCmd.AddCommand(profileCmd)
}

func runProfileImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.withTracker(ctx); err != nil {
		return err
	}
	if err := a.withService(ctx, nil); err != nil {
		return err
	}
	return importResume(cmd, a, args[0])
}

// importResume reads path and stores the extracted profile.
func importResume(cmd *cobra.Command, a *app, path string) error {
	if a.importer == nil {
		return errors.New("the configured LLM provider cannot read PDF files")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read resume: %w", err)
	}
	res, err := a.importer.ImportPDF(cmd.Context(), filepath.Base(path), data)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Imported profile for %s\n", res.Summary.Name)
	fmt.Fprintf(out, "  user id:    %s\n", res.UserID)
	fmt.Fprintf(out, "  sections:   %d education, %d work, %d research, %d projects\n",
		res.Summary.EducationCount, res.Summary.WorkExperienceCount,
		res.Summary.ResearchExperienceCount, res.Summary.ProjectsCount)
	fmt.Fprintf(out, "  saved to:   %s\n", res.Summary.ProfilePath)
	fmt.Fprintf(out, "Use --user %s when tailoring.\n", res.UserID)
	return nil
}
