package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anoixa/tidypics/database/repo/users"
	"github.com/anoixa/tidypics/internal/auth"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// tokenCmd 为已有用户签发访问令牌
var tokenCmd = &cobra.Command{
	Use:   "token <username>",
	Short: "Issue an access token for a user",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if err := runToken(args[0], ttl); err != nil {
			log.Fatal().Err(err).Msg("Token issue failed")
		}
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
}

func runToken(username string, ttl time.Duration) error {
	container, err := openLedgerContainer()
	if err != nil {
		return err
	}
	defer func() { _ = container.Close() }()

	cfg := container.GetConfig()
	if cfg.JWTSecret == "" {
		return errors.New("jwt_secret is not configured")
	}
	jwtSvc, err := auth.NewJWTService(cfg.JWTSecret)
	if err != nil {
		return err
	}

	user, err := users.NewRepository(container.GetDatabaseProvider()).GetByUsername(context.Background(), username)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user %q not found", username)
	}

	token, expiresAt, err := jwtSvc.GenerateAccessToken(user.ID, ttl)
	if err != nil {
		return err
	}
	fmt.Printf("%s\nexpires at %s\n", token, expiresAt.Format(time.RFC3339))
	return nil
}
