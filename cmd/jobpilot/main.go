// Package main is the jobpilot command line: the HTTP API server plus terminal commands for
// tailoring a resume and managing tracked applications.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonathan/jobpilot/internal/config"
)

var version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "jobpilot",
	Short:         "Tailor a master resume to job postings and track applications",
	Long:          "jobpilot parses a job posting, proposes edits to a master resume, renders the reviewed result and records the application.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./jobpilot.yaml when present)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	mustBind("log.debug", rootCmd.PersistentFlags().Lookup("debug"))
	mustBind("log.json", rootCmd.PersistentFlags().Lookup("json"))
}

// loadConfig reads configuration through the global viper so that bound flags take effect.
func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper(), cfgFile)
}

func main() {
	// .env feeds the same environment lookups as exported variables
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
