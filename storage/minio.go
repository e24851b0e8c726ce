package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"mediagate/config"
	"mediagate/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArtifactPrefix is the object prefix under which served artifacts are mirrored.
const ArtifactPrefix = "artifacts/"

// BucketStats 存储桶统计信息
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// ObjectInfo 文件信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
	ETag         string
}

// Archive mirrors fetched artifacts into a MinIO bucket.
type Archive struct {
	client *minio.Client
	bucket string
}

// NewArchive 初始化 MinIO 客户端并确保存储桶存在
func NewArchive(ctx context.Context, cfg *config.Config) (*Archive, error) {
	if !cfg.ArchiveEnabled() {
		return nil, errors.New("MinIO endpoint not configured")
	}

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// 检查存储桶是否存在
	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("检查存储桶失败: %w", err)
	}
	if !exists {
		err = client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion})
		if err != nil {
			return nil, fmt.Errorf("创建存储桶失败: %w", err)
		}
		logger.Info("Created MinIO bucket", logger.String("bucket", cfg.MinioBucket))
	}

	return &Archive{client: client, bucket: cfg.MinioBucket}, nil
}

// Bucket returns the archive bucket name.
func (a *Archive) Bucket() string {
	return a.bucket
}

// ObjectKey maps an artifact filename to its object key.
func ObjectKey(filename string) string {
	return ArtifactPrefix + path.Base(filepath.ToSlash(filename))
}

// Upload copies the artifact at localPath into the bucket.
func (a *Archive) Upload(ctx context.Context, localPath, filename string) error {
	key := ObjectKey(filename)
	info, err := a.client.FPutObject(ctx, a.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentTypeFor(filename),
	})
	if err != nil {
		return fmt.Errorf("上传对象 %s 失败: %w", key, err)
	}
	logger.Debug("Archived artifact",
		logger.String("key", key),
		logger.Int64("size", info.Size))
	return nil
}

// List 列出前缀下的对象并统计
func (a *Archive) List(ctx context.Context, prefix string) ([]ObjectInfo, *BucketStats, error) {
	stats := &BucketStats{}
	var objects []ObjectInfo

	for object := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("列出对象时出错: %w", object.Err)
		}

		stats.TotalObjects++
		stats.TotalSize += object.Size
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}
		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
			ETag:         object.ETag,
		})
	}
	return objects, stats, nil
}

// Usage 按媒体类别统计占用空间
func (a *Archive) Usage(ctx context.Context) (map[string]int64, error) {
	objects, _, err := a.List(ctx, ArtifactPrefix)
	if err != nil {
		return nil, err
	}
	usage := make(map[string]int64)
	for _, obj := range objects {
		usage[Category(obj.Key)] += obj.Size
	}
	return usage, nil
}

// DeletePrefix 递归删除前缀下的所有对象，返回删除数量
func (a *Archive) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	objects, _, err := a.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	if len(objects) == 0 {
		return 0, nil
	}

	objectsCh := make(chan minio.ObjectInfo, len(objects))
	for _, obj := range objects {
		objectsCh <- minio.ObjectInfo{Key: obj.Key}
	}
	close(objectsCh)

	for rerr := range a.client.RemoveObjects(ctx, a.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if rerr.Err != nil {
			return 0, fmt.Errorf("删除对象 %s 失败: %w", rerr.ObjectName, rerr.Err)
		}
	}
	return len(objects), nil
}

// FormatSize 格式化文件大小
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

// Category 从文件名推断媒体类别
func Category(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".mp3", ".m4a", ".opus", ".ogg", ".wav", ".flac", ".aac":
		return "audio"
	case ".mp4", ".webm", ".mkv", ".mov", ".avi", ".flv":
		return "video"
	case ".jpg", ".jpeg", ".png", ".webp":
		return "image"
	default:
		return "other"
	}
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".opus", ".ogg":
		return "audio/ogg"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mkv":
		return "video/x-matroska"
	default:
		return "application/octet-stream"
	}
}
