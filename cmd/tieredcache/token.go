package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/tieredcache/auth"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an admin bearer token",
	Long: `Issue a bearer token for the admin endpoints, signed with
server.admin.token_secret and holding server.admin.role.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			return err
		}
		if !cfg.AdminEnabled() {
			return fmt.Errorf("server.admin.token_secret is not set")
		}

		authn, err := auth.NewJWTAuthenticator(cfg.JWTConfig(), []byte(cfg.Server.Admin.TokenSecret))
		if err != nil {
			return err
		}
		token, err := authn.Issue(tokenSubject, []string{cfg.Server.Admin.Role}, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "admin", "token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
