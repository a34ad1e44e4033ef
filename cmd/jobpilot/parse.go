package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobpilot/internal/observability"
	"github.com/jonathan/jobpilot/internal/pipeline"
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parse a job posting into structured fields",
	Long:  "Fetch a posting by URL (or read its text from a file or stdin) and print the extracted title, company, skills and requirements.",
	RunE:  runParse,
}

func init() {
	addJobFlags(parseCmd)
	parseCmd.Flags().String("out", "", "Write the parsed job as JSON to this file")
	rootCmd.AddCommand(parseCmd)
}

// addJobFlags registers --url and --file on cmd.
func addJobFlags(cmd *cobra.Command) {
	cmd.Flags().String("url", "", "Job posting URL")
	cmd.Flags().String("file", "", `File holding the posting text ("-" reads stdin)`)
	cmd.MarkFlagsMutuallyExclusive("url", "file")
	cmd.MarkFlagsOneRequired("url", "file")
}

// jobInput reads the posting named by --url or --file.
func jobInput(cmd *cobra.Command) (pipeline.JobInput, error) {
	url, _ := cmd.Flags().GetString("url")
	if url != "" {
		return pipeline.JobInput{URL: url}, nil
	}
	file, _ := cmd.Flags().GetString("file")
	text, err := readText(file, cmd.InOrStdin())
	if err != nil {
		return pipeline.JobInput{}, err
	}
	return pipeline.JobInput{Text: text}, nil
}

func readText(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read job posting: %w", err)
	}
	return string(data), nil
}

func runParse(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	in, err := jobInput(cmd)
	if err != nil {
		return err
	}

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

	job, err := a.svc.ParseJob(ctx, in)
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintJob(job)

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		return nil
	}
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved parsed job to %s\n", out)
	return nil
}
