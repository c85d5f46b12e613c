package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/yourusername/invoice-api/handlers"
	"github.com/yourusername/invoice-api/logger"
	"github.com/yourusername/invoice-api/middleware"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the API",
	Long: `Issue a JWT signed with JWT_SECRET for the given subject and role.

Roles: admin and accountant may write, viewer may only read.
With --refresh a refresh token signed with JWT_REFRESH_SECRET is printed too.`,
	Example: `  # Token for an accountant, valid for a day
  invoice-api token --subject ops@acme.co.za --role accountant --ttl 24h`,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().String("subject", "", "Subject (sub claim) of the token")
	tokenCmd.Flags().String("role", middleware.RoleAccountant, "Role claim: admin, accountant or viewer")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	tokenCmd.Flags().Bool("refresh", false, "Also print a refresh token")
	tokenCmd.MarkFlagRequired("subject")
}

func runToken(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("token")

	subject, _ := cmd.Flags().GetString("subject")
	role, _ := cmd.Flags().GetString("role")
	ttl, _ := cmd.Flags().GetDuration("ttl")
	withRefresh, _ := cmd.Flags().GetBool("refresh")

	switch role {
	case middleware.RoleAdmin, middleware.RoleAccountant, middleware.RoleViewer:
	default:
		return fmt.Errorf("unknown role %q", role)
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}

	out := cmd.OutOrStdout()
	if withRefresh {
		if cfg.JWTRefreshSecret == "" {
			return fmt.Errorf("JWT_REFRESH_SECRET environment variable is required")
		}
		pair, err := handlers.IssueTokens(cfg, subject, role)
		if err != nil {
			return fmt.Errorf("failed to sign tokens: %w", err)
		}
		fmt.Fprintf(out, "access_token:  %s\nrefresh_token: %s\n", pair.AccessToken, pair.RefreshToken)
	} else {
		token, err := middleware.GenerateToken(subject, role, cfg.JWTSecret, ttl)
		if err != nil {
			return fmt.Errorf("failed to sign token: %w", err)
		}
		fmt.Fprintln(out, token)
	}

	log.Info().
		Str("subject", subject).
		Str("role", role).
		Dur("ttl", ttl).
		Msg("Token issued")
	return nil
}
