package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/srithedesigner/credmatrix-backend/internal/clock"
	"github.com/srithedesigner/credmatrix-backend/internal/config"
	documentdomain "github.com/srithedesigner/credmatrix-backend/internal/document/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/identity"
	obsmetrics "github.com/srithedesigner/credmatrix-backend/internal/observability/metrics"
	"github.com/srithedesigner/credmatrix-backend/internal/providers/storage"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       documentdomain.Repository
	Storage    storage.Provider
	Policy     *config.LifecyclePolicyHolder
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       documentdomain.Repository
	storage    storage.Provider
	policy     *config.LifecyclePolicyHolder
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) documentdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("document.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		storage:    p.Storage,
		policy:     p.Policy,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) RequestUpload(ctx context.Context, actor identity.Actor, req documentdomain.RequestUploadRequest) (*documentdomain.UploadTicket, error) {
	name, err := documentdomain.SanitizeName(req.Name)
	if err != nil {
		return nil, err
	}

	var reportID *snowflake.ID
	if req.ReportID != nil && *req.ReportID != 0 {
		owner, err := s.repo.FindReportOwner(ctx, s.db, *req.ReportID)
		if err != nil {
			return nil, err
		}
		if owner == nil || *owner != actor.UserID {
			return nil, documentdomain.ErrNotFound
		}
		id := *req.ReportID
		reportID = &id
	}

	now := s.clock.Now()
	ttl := time.Duration(s.policy.Get().UploadURLTTLSeconds) * time.Second
	doc := &documentdomain.Document{
		ID:         s.genID.Generate(),
		ReportID:   reportID,
		UserID:     actor.UserID,
		Name:       name,
		StorageKey: documentdomain.StorageKey(actor.UserID, reportID, name),
		CreatedAt:  now,
	}

	var uploadURL string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, doc); err != nil {
			return err
		}
		url, err := s.storage.MintUploadURL(ctx, doc.StorageKey, ttl, strings.TrimSpace(req.ContentType))
		if err != nil {
			return fmt.Errorf("%w: %v", documentdomain.ErrStorageUnavailable, err)
		}
		uploadURL = url
		return nil
	})
	if err != nil {
		s.log.Warn("upload request failed",
			zap.String("document_id", doc.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	s.obsMetrics.RecordDocumentUpload(ctx, "requested")
	return &documentdomain.UploadTicket{
		DocumentID: doc.ID,
		StorageKey: doc.StorageKey,
		UploadURL:  uploadURL,
		ExpiresAt:  now.Add(ttl),
	}, nil
}

// ConfirmUpload stamps uploaded_at once. Repeated confirmations return the
// document with its original timestamp.
func (s *Service) ConfirmUpload(ctx context.Context, actor identity.Actor, documentID snowflake.ID) (*documentdomain.Document, error) {
	if documentID == 0 {
		return nil, documentdomain.ErrNotFound
	}

	var doc *documentdomain.Document
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.MarkUploaded(ctx, tx, documentID, actor.UserID, s.clock.Now())
		if err != nil {
			return err
		}
		found, err := s.repo.FindByID(ctx, tx, documentID)
		if err != nil {
			return err
		}
		if found == nil || found.UserID != actor.UserID {
			return documentdomain.ErrNotFound
		}
		if affected > 0 {
			s.obsMetrics.RecordDocumentUpload(ctx, "confirmed")
		}
		doc = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Service) AttachPending(ctx context.Context, tx *gorm.DB, userID, reportID snowflake.ID, ids []snowflake.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if tx == nil {
		tx = s.db
	}

	attached, err := s.repo.AttachPending(ctx, tx, userID, reportID, dedupeIDs(ids), s.clock.Now())
	if err != nil {
		return 0, err
	}
	if attached != int64(len(ids)) {
		s.log.Debug("some documents were not attached",
			zap.String("report_id", reportID.String()),
			zap.Int("requested", len(ids)),
			zap.Int64("attached", attached),
		)
	}
	return attached, nil
}

func (s *Service) Retract(ctx context.Context, storageKey string) error {
	storageKey = strings.TrimSpace(storageKey)
	if storageKey == "" {
		return documentdomain.ErrNotFound
	}
	if err := s.storage.Delete(ctx, storageKey); err != nil {
		return fmt.Errorf("%w: %v", documentdomain.ErrStorageUnavailable, err)
	}
	s.log.Info("storage object retracted", zap.String("storage_key", storageKey))
	return nil
}

func (s *Service) DownloadURL(ctx context.Context, actor identity.Actor, documentID snowflake.ID) (*documentdomain.DownloadTicket, error) {
	doc, err := s.repo.FindByID(ctx, s.db, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil || (doc.UserID != actor.UserID && actor.Role != identity.RoleAdmin) {
		return nil, documentdomain.ErrNotFound
	}
	if !doc.Uploaded() {
		return nil, documentdomain.ErrNotUploaded
	}

	ttl := time.Duration(s.policy.Get().DownloadURLTTLSeconds) * time.Second
	url, err := s.storage.MintDownloadURL(ctx, doc.StorageKey, ttl)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", documentdomain.ErrStorageUnavailable, err)
	}
	return &documentdomain.DownloadTicket{
		DocumentID:  doc.ID,
		DownloadURL: url,
		ExpiresAt:   s.clock.Now().Add(ttl),
	}, nil
}

func (s *Service) ListByReport(ctx context.Context, reportID snowflake.ID) ([]documentdomain.Document, error) {
	return s.repo.ListByReport(ctx, s.db, reportID)
}

func dedupeIDs(ids []snowflake.ID) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(ids))
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
