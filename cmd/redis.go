package cmd

import (
	"context"
	"fmt"
	"time"

	"mediagate/core/limiter"
	"mediagate/db"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Redis连接测试",
	Long:  `测试Redis连接并进行基本读写操作，同时统计限流器正在跟踪的客户端数量。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := setup()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Redis配置: %s:%s, DB: %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		if err := db.ConnectRedis(cfg); err != nil {
			return fmt.Errorf("无法连接到Redis: %w", err)
		}
		defer db.CloseRedis()
		fmt.Fprintln(out, "Redis连接成功！")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := db.TestRedis(ctx); err != nil {
			return fmt.Errorf("Redis操作测试失败: %w", err)
		}
		fmt.Fprintln(out, "Redis基本操作测试成功！")

		n, err := limiter.CountKeys(ctx, db.RedisClient)
		if err != nil {
			return fmt.Errorf("统计限流键失败: %w", err)
		}
		fmt.Fprintf(out, "限流器正在跟踪 %d 个客户端\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
