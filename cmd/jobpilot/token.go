package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobpilot/internal/config"
	"github.com/jonathan/jobpilot/internal/server"
)

var tokenCmd = &cobra.Command{
	Use:   "token <operator>",
	Short: "Issue a bearer token for the API",
	Long:  "Sign a token for the named operator with auth.jwt_secret. The server only checks tokens when a secret is configured.",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Auth.Enabled() {
		return errors.New("auth.jwt_secret (JWT_SECRET) is not set")
	}
	jwtCfg, err := config.NewJWTConfig(cfg.Auth)
	if err != nil {
		return err
	}

	token, expires, err := server.NewJWTService(jwtCfg).GenerateToken(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.Format("2006-01-02 15:04 MST"))
	return nil
}
