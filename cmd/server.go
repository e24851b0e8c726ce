package cmd

import (
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动 mediagate 服务器",
	Long:  `启动 HTTP 服务器，提供 URL 校验、下载、文件下发和健康检查接口以及 Web 界面`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
