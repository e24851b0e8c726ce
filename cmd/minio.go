package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"mediagate/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix string
	minioStats  bool
	minioDelete bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO归档管理",
	Long:  `查看和管理 MinIO 中归档的下载文件，支持列出文件、查看统计信息、按前缀删除。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := setup()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		ctx := context.Background()
		archive, err := storage.NewArchive(ctx, cfg)
		if err != nil {
			return fmt.Errorf("无法连接到MinIO: %w", err)
		}

		switch {
		case minioDelete:
			if minioPrefix == "" {
				return fmt.Errorf("删除操作需要指定 --prefix")
			}
			n, err := archive.DeletePrefix(ctx, minioPrefix)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "已删除 %s 下的 %d 个对象\n", minioPrefix, n)

		case minioStats:
			_, stats, err := archive.List(ctx, minioPrefix)
			if err != nil {
				return err
			}
			usage, err := archive.Usage(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "对象数量: %d\n", stats.TotalObjects)
			fmt.Fprintf(out, "总大小: %s\n", storage.FormatSize(stats.TotalSize))
			if !stats.LastModified.IsZero() {
				fmt.Fprintf(out, "最后修改时间: %s\n", stats.LastModified.Format(time.RFC3339))
			}
			categories := make([]string, 0, len(usage))
			for c := range usage {
				categories = append(categories, c)
			}
			sort.Strings(categories)
			for _, c := range categories {
				fmt.Fprintf(out, "  %-6s %s\n", c, storage.FormatSize(usage[c]))
			}

		default:
			objects, _, err := archive.List(ctx, minioPrefix)
			if err != nil {
				return err
			}
			for _, obj := range objects {
				fmt.Fprintf(out, "%s\t%s\t%s\n", obj.Key, storage.FormatSize(obj.Size), obj.LastModified.Format(time.RFC3339))
			}
			fmt.Fprintf(out, "共 %d 个对象\n", len(objects))
		}
		return nil
	},
}

func init() {
	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", storage.ArtifactPrefix, "对象前缀")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "显示统计信息")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "删除前缀下的所有对象")
	rootCmd.AddCommand(minioCmd)
}
