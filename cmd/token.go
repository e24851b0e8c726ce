package cmd

import (
	"errors"
	"fmt"
	"time"

	"mediagate/config"
	"mediagate/core/auth"

	"github.com/spf13/cobra"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "签发管理员 token",
	Long:  `使用 SECRET_KEY 签发访问 /api/admin/* 的 JWT。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if !cfg.SecretKeyConfigured() {
			return errors.New("SECRET_KEY is not set; the server rejects tokens signed with the default key")
		}
		ttl := tokenTTL
		if ttl <= 0 {
			ttl = cfg.AdminTokenTTL
		}
		token, err := auth.IssueToken(cfg.SecretKey, "admin", ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var hashCmd = &cobra.Command{
	Use:   "hash <password>",
	Short: "生成 ADMIN_PASSWORD_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token 有效期 (默认 ADMIN_TOKEN_TTL_SECONDS)")
	tokenCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(tokenCmd)
}
