package repository

import (
	"context"
	"sync"
	"time"

	"mediagate/model"

	"gorm.io/gorm"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// DownloadRepository 下载记录数据访问接口
type DownloadRepository interface {
	// Create 保存一条下载记录
	Create(ctx context.Context, record *model.DownloadRecord) error
	// ListRecent 按时间倒序返回最近的记录
	ListRecent(ctx context.Context, limit int) ([]*model.DownloadRecord, error)
	// CountByStatus 按状态统计记录数
	CountByStatus(ctx context.Context) (map[model.ArtifactStatus]int64, error)
}

// ClampLimit normalises a caller supplied page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

// gormDownloadRepository GORM 实现
type gormDownloadRepository struct {
	db *gorm.DB
}

// NewGormDownloadRepository 创建 GORM 下载记录仓库
func NewGormDownloadRepository(db *gorm.DB) DownloadRepository {
	return &gormDownloadRepository{db: db}
}

// Create 保存一条下载记录
func (r *gormDownloadRepository) Create(ctx context.Context, record *model.DownloadRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(record).Error
}

func recentQuery(tx *gorm.DB, limit int) *gorm.DB {
	return tx.Model(&model.DownloadRecord{}).
		Order("created_at DESC").
		Order("id DESC").
		Limit(ClampLimit(limit))
}

// ListRecent 按时间倒序返回最近的记录
func (r *gormDownloadRepository) ListRecent(ctx context.Context, limit int) ([]*model.DownloadRecord, error) {
	var records []*model.DownloadRecord
	if err := recentQuery(r.db.WithContext(ctx), limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// CountByStatus 按状态统计记录数
func (r *gormDownloadRepository) CountByStatus(ctx context.Context) (map[model.ArtifactStatus]int64, error) {
	var rows []struct {
		Status model.ArtifactStatus
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&model.DownloadRecord{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[model.ArtifactStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}

// memoryDownloadRepository keeps the most recent records in process. Used
// when no database is configured.
type memoryDownloadRepository struct {
	mu       sync.Mutex
	records  []*model.DownloadRecord
	capacity int
	nextID   int64
}

// NewMemoryDownloadRepository keeps at most capacity records.
func NewMemoryDownloadRepository(capacity int) DownloadRepository {
	if capacity <= 0 {
		capacity = MaxHistoryLimit
	}
	return &memoryDownloadRepository{capacity: capacity}
}

func (r *memoryDownloadRepository) Create(_ context.Context, record *model.DownloadRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	record.ID = r.nextID
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	cp := *record
	r.records = append(r.records, &cp)
	if over := len(r.records) - r.capacity; over > 0 {
		r.records = append([]*model.DownloadRecord(nil), r.records[over:]...)
	}
	return nil
}

func (r *memoryDownloadRepository) ListRecent(_ context.Context, limit int) ([]*model.DownloadRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	limit = ClampLimit(limit)
	out := make([]*model.DownloadRecord, 0, limit)
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *r.records[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memoryDownloadRepository) CountByStatus(_ context.Context) (map[model.ArtifactStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[model.ArtifactStatus]int64)
	for _, rec := range r.records {
		out[rec.Status]++
	}
	return out, nil
}
