package cmd

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/frahmantamala/checkout-payments/internal"
	"github.com/frahmantamala/checkout-payments/internal/auth"
	"github.com/spf13/cobra"
)

var adminTokenCmd = &cobra.Command{
	Use:   "admin-token",
	Short: "Issue a bearer token for the payment administration routes",
	Long:  `Sign an admin token with security.admin_token_secret and print it to stdout.`,
	Run: func(cmd *cobra.Command, args []string) {
		token, err := issueAdminToken()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
	},
}

var (
	tokenSubject string
	tokenTTL     time.Duration
)

func init() {
	adminTokenCmd.Flags().StringVarP(&tokenSubject, "subject", "s", "operator", "token subject, logged on administrative actions")
	adminTokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime; security.admin_token_duration when zero")
}

func issueAdminToken() (string, error) {
	cfg, err := loadConfigAndLogger(func(c *internal.Config) error {
		if c.Security.AdminTokenSecret == "" {
			return errors.New("security.admin_token_secret is not set")
		}
		return c.Security.Validate()
	})
	if err != nil {
		return "", err
	}

	tokens, err := auth.NewJWTTokenService(cfg.Security.AdminTokenSecret, getDurationFlag(tokenTTL, cfg.Security.AdminTokenDuration))
	if err != nil {
		return "", err
	}

	return tokens.IssueToken(tokenSubject, auth.RoleAdmin)
}

func getDurationFlag(flagValue, configValue time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}
