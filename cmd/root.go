package cmd

import (
	"fmt"
	"os"

	"mediagate/config"
	"mediagate/logger"
	"mediagate/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mediagate",
	Short: "mediagate is an HTTP front end for yt-dlp with per-client rate limiting.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
	SilenceUsage: true,
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and initializes logging.
func setup() *config.Config {
	cfg := config.Load()
	logger.InitLogger(logger.Config{
		Level:      logger.ParseLevel(cfg.LogLevel),
		OutputPath: cfg.LogFile,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAgeDays,
		Compress:   true,
	})
	return cfg
}

func runServer() error {
	cfg := setup()
	defer logger.Sync()
	return server.Start(cfg)
}
