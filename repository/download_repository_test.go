package repository

import (
	"context"
	"strings"
	"testing"

	"mediagate/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultHistoryLimit},
		{-3, DefaultHistoryLimit},
		{10, 10},
		{MaxHistoryLimit + 1, MaxHistoryLimit},
	}
	for _, tt := range tests {
		if got := ClampLimit(tt.in); got != tt.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMemoryRepositoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDownloadRepository(3)

	for _, name := range []string{"a", "b", "c", "d"} {
		status := model.ArtifactCompleted
		if name == "d" {
			status = model.ArtifactRejected
		}
		if err := repo.Create(ctx, &model.DownloadRecord{Filename: name, Status: status}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := repo.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	var names []string
	for _, r := range got {
		names = append(names, r.Filename)
	}
	if strings.Join(names, ",") != "d,c,b" {
		t.Fatalf("records = %v, want d,c,b", names)
	}

	counts, err := repo.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[model.ArtifactCompleted] != 2 || counts[model.ArtifactRejected] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestRecentQuerySQL(t *testing.T) {
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "user:pass@tcp(127.0.0.1:3306)/test",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var records []*model.DownloadRecord
		return recentQuery(tx, 0).Find(&records)
	})
	for _, want := range []string{"`download_records`", "ORDER BY created_at DESC,id DESC", "LIMIT 50"} {
		if !strings.Contains(sql, want) {
			t.Errorf("sql %q missing %q", sql, want)
		}
	}
}
