package model

import "time"

// DownloadRecord is the persisted history entry for one metered download attempt.
type DownloadRecord struct {
	ID        int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	ClientID  string         `json:"clientId" gorm:"type:varchar(64);index"`
	URL       string         `json:"url" gorm:"type:varchar(2048)"`
	FormatID  string         `json:"formatId,omitempty" gorm:"type:varchar(64)"`
	AudioOnly bool           `json:"audioOnly"`
	Title     string         `json:"title,omitempty" gorm:"type:varchar(512)"`
	Filename  string         `json:"filename,omitempty" gorm:"type:varchar(255)"`
	Size      int64          `json:"size"`
	Status    ArtifactStatus `json:"status" gorm:"type:varchar(16);index"`
	Error     string         `json:"error,omitempty" gorm:"type:text"`
	CreatedAt time.Time      `json:"createdAt" gorm:"index"`
}

// TableName keeps the table name stable regardless of GORM's pluralisation.
func (DownloadRecord) TableName() string {
	return "download_records"
}
