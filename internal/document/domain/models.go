package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Document tracks an object in storage. UploadedAt stays nil until the
// client confirms the upload; ReportID stays nil until it is attached.
type Document struct {
	ID         snowflake.ID  `gorm:"primaryKey" json:"id"`
	ReportID   *snowflake.ID `gorm:"index" json:"report_id,omitempty"`
	UserID     snowflake.ID  `gorm:"not null;index" json:"user_id"`
	Name       string        `gorm:"type:text;not null" json:"name"`
	StorageKey string        `gorm:"type:text;not null" json:"storage_key"`
	UploadedAt *time.Time    `json:"uploaded_at,omitempty"`
	CreatedAt  time.Time     `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (Document) TableName() string { return "documents" }

// Uploaded reports whether the client confirmed the upload.
func (d Document) Uploaded() bool { return d.UploadedAt != nil }
