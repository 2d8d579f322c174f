package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/srithedesigner/credmatrix-backend/internal/identity"
	"gorm.io/gorm"
)

type RequestUploadRequest struct {
	Name        string
	ContentType string
	ReportID    *snowflake.ID
}

type UploadTicket struct {
	DocumentID snowflake.ID `json:"document_id"`
	StorageKey string       `json:"storage_key"`
	UploadURL  string       `json:"upload_url"`
	ExpiresAt  time.Time    `json:"expires_at"`
}

type DownloadTicket struct {
	DocumentID  snowflake.ID `json:"document_id"`
	DownloadURL string       `json:"download_url"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, doc *Document) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Document, error)
	MarkUploaded(ctx context.Context, db *gorm.DB, id, userID snowflake.ID, at time.Time) (int64, error)
	AttachPending(ctx context.Context, db *gorm.DB, userID, reportID snowflake.ID, ids []snowflake.ID, at time.Time) (int64, error)
	ListByReport(ctx context.Context, db *gorm.DB, reportID snowflake.ID) ([]Document, error)
	FindReportOwner(ctx context.Context, db *gorm.DB, reportID snowflake.ID) (*snowflake.ID, error)
}

type Service interface {
	// RequestUpload registers a pending document and mints a presigned PUT URL.
	RequestUpload(ctx context.Context, actor identity.Actor, req RequestUploadRequest) (*UploadTicket, error)
	ConfirmUpload(ctx context.Context, actor identity.Actor, documentID snowflake.ID) (*Document, error)
	// AttachPending moves the user's unattached documents in ids onto the
	// report in one statement. Unmatched ids are ignored.
	AttachPending(ctx context.Context, tx *gorm.DB, userID, reportID snowflake.ID, ids []snowflake.ID) (int64, error)
	Retract(ctx context.Context, storageKey string) error
	DownloadURL(ctx context.Context, actor identity.Actor, documentID snowflake.ID) (*DownloadTicket, error)
	ListByReport(ctx context.Context, reportID snowflake.ID) ([]Document, error)
}

var (
	ErrNotFound           = errors.New("document_not_found")
	ErrInvalidName        = errors.New("invalid_document_name")
	ErrNotUploaded        = errors.New("document_not_uploaded")
	ErrStorageUnavailable = errors.New("storage_unavailable")
)
