package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/mock/gomock"
	"github.com/srithedesigner/credmatrix-backend/internal/clock"
	"github.com/srithedesigner/credmatrix-backend/internal/config"
	documentdomain "github.com/srithedesigner/credmatrix-backend/internal/document/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/document/repository"
	"github.com/srithedesigner/credmatrix-backend/internal/identity"
	"github.com/srithedesigner/credmatrix-backend/internal/providers/storage/mocks"
	"github.com/srithedesigner/credmatrix-backend/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	alice = identity.Actor{UserID: 7, EntityID: 70, Role: identity.RoleUser}
	bob   = identity.Actor{UserID: 8, EntityID: 80, Role: identity.RoleUser}
)

type fixture struct {
	db      *gorm.DB
	svc     documentdomain.Service
	storage *mocks.MockProvider
	clock   *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&documentdomain.Document{}))
	require.NoError(t, conn.Exec(`CREATE TABLE reports (id INTEGER PRIMARY KEY, user_id INTEGER NOT NULL)`).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 7, 1, 9, 30, 0, 0, time.UTC))
	store := mocks.NewMockProvider(gomock.NewController(t))

	return &fixture{
		db:      conn,
		storage: store,
		clock:   clk,
		svc: NewService(Params{
			DB:      conn,
			Log:     zap.NewNop(),
			GenID:   node,
			Clock:   clk,
			Repo:    repository.Provide(),
			Storage: store,
			Policy:  config.NewStaticLifecyclePolicyHolder(config.DefaultLifecyclePolicy()),
		}),
	}
}

func (f *fixture) seedReport(t *testing.T, id, userID snowflake.ID) {
	t.Helper()
	require.NoError(t, f.db.Exec(`INSERT INTO reports (id, user_id) VALUES (?, ?)`, id, userID).Error)
}

func (f *fixture) upload(t *testing.T, actor identity.Actor, name string) *documentdomain.UploadTicket {
	t.Helper()
	f.storage.EXPECT().
		MintUploadURL(gomock.Any(), gomock.Any(), time.Hour, gomock.Any()).
		Return("https://storage.example/put", nil)
	ticket, err := f.svc.RequestUpload(context.Background(), actor, documentdomain.RequestUploadRequest{Name: name})
	require.NoError(t, err)
	return ticket
}

func (f *fixture) load(t *testing.T, id snowflake.ID) documentdomain.Document {
	t.Helper()
	var doc documentdomain.Document
	require.NoError(t, f.db.First(&doc, "id = ?", id).Error)
	return doc
}

func (f *fixture) count(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&documentdomain.Document{}).Count(&n).Error)
	return n
}

func TestRequestUploadCreatesPendingDocument(t *testing.T) {
	f := newFixture(t)

	f.storage.EXPECT().
		MintUploadURL(gomock.Any(), "7/temp/bank-statement.pdf", time.Hour, "application/pdf").
		Return("https://storage.example/put?sig=1", nil)

	ticket, err := f.svc.RequestUpload(context.Background(), alice, documentdomain.RequestUploadRequest{
		Name:        "Bank Statement.PDF",
		ContentType: "application/pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, "7/temp/bank-statement.pdf", ticket.StorageKey)
	assert.Equal(t, "https://storage.example/put?sig=1", ticket.UploadURL)
	assert.True(t, ticket.ExpiresAt.Equal(f.clock.Now().Add(time.Hour)))

	doc := f.load(t, ticket.DocumentID)
	assert.Nil(t, doc.UploadedAt)
	assert.Nil(t, doc.ReportID)
	assert.Equal(t, alice.UserID, doc.UserID)
}

func TestRequestUploadForOwnReportUsesReportKey(t *testing.T) {
	f := newFixture(t)
	f.seedReport(t, 500, alice.UserID)
	reportID := snowflake.ID(500)

	f.storage.EXPECT().
		MintUploadURL(gomock.Any(), "7/500/itr.pdf", time.Hour, "").
		Return("https://storage.example/put", nil)

	ticket, err := f.svc.RequestUpload(context.Background(), alice, documentdomain.RequestUploadRequest{Name: "ITR.pdf", ReportID: &reportID})
	require.NoError(t, err)

	doc := f.load(t, ticket.DocumentID)
	require.NotNil(t, doc.ReportID)
	assert.Equal(t, reportID, *doc.ReportID)
}

func TestRequestUploadRejectsForeignReport(t *testing.T) {
	f := newFixture(t)
	f.seedReport(t, 500, bob.UserID)
	reportID := snowflake.ID(500)
	missing := snowflake.ID(501)

	_, err := f.svc.RequestUpload(context.Background(), alice, documentdomain.RequestUploadRequest{Name: "a.pdf", ReportID: &reportID})
	assert.ErrorIs(t, err, documentdomain.ErrNotFound)

	_, err = f.svc.RequestUpload(context.Background(), alice, documentdomain.RequestUploadRequest{Name: "a.pdf", ReportID: &missing})
	assert.ErrorIs(t, err, documentdomain.ErrNotFound)
	assert.Zero(t, f.count(t))
}

func TestRequestUploadRollsBackWhenMintFails(t *testing.T) {
	f := newFixture(t)

	f.storage.EXPECT().
		MintUploadURL(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", errors.New("signing key revoked"))

	_, err := f.svc.RequestUpload(context.Background(), alice, documentdomain.RequestUploadRequest{Name: "a.pdf"})
	assert.ErrorIs(t, err, documentdomain.ErrStorageUnavailable)
	assert.Zero(t, f.count(t))
}

func TestRequestUploadRejectsBadName(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.RequestUpload(context.Background(), alice, documentdomain.RequestUploadRequest{Name: "???"})
	assert.ErrorIs(t, err, documentdomain.ErrInvalidName)
}

func TestConfirmUploadRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.upload(t, alice, "a.pdf")
	confirmedAt := f.clock.Now()

	doc, err := f.svc.ConfirmUpload(ctx, alice, ticket.DocumentID)
	require.NoError(t, err)
	require.NotNil(t, doc.UploadedAt)
	assert.True(t, doc.UploadedAt.Equal(confirmedAt))

	// A later confirmation and an attach leave the timestamp alone.
	f.clock.Advance(time.Hour)
	again, err := f.svc.ConfirmUpload(ctx, alice, ticket.DocumentID)
	require.NoError(t, err)
	assert.True(t, again.UploadedAt.Equal(confirmedAt))

	_, err = f.svc.AttachPending(ctx, nil, alice.UserID, 900, []snowflake.ID{ticket.DocumentID})
	require.NoError(t, err)

	stored := f.load(t, ticket.DocumentID)
	require.NotNil(t, stored.UploadedAt)
	assert.True(t, stored.UploadedAt.Equal(confirmedAt))
}

func TestConfirmUploadChecksOwnership(t *testing.T) {
	f := newFixture(t)
	ticket := f.upload(t, alice, "a.pdf")

	_, err := f.svc.ConfirmUpload(context.Background(), bob, ticket.DocumentID)
	assert.ErrorIs(t, err, documentdomain.ErrNotFound)
	assert.Nil(t, f.load(t, ticket.DocumentID).UploadedAt)

	_, err = f.svc.ConfirmUpload(context.Background(), alice, 12345)
	assert.ErrorIs(t, err, documentdomain.ErrNotFound)
}

func TestAttachPendingFiltersByOwnerAndState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mine := f.upload(t, alice, "mine.pdf")
	theirs := f.upload(t, bob, "theirs.pdf")
	already := f.upload(t, alice, "already.pdf")

	_, err := f.svc.AttachPending(ctx, nil, alice.UserID, 100, []snowflake.ID{already.DocumentID})
	require.NoError(t, err)

	attached, err := f.svc.AttachPending(ctx, nil, alice.UserID, 200, []snowflake.ID{
		mine.DocumentID, theirs.DocumentID, already.DocumentID, 999,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), attached)

	doc := f.load(t, mine.DocumentID)
	require.NotNil(t, doc.ReportID)
	assert.Equal(t, snowflake.ID(200), *doc.ReportID)
	assert.NotNil(t, doc.UploadedAt)

	assert.Nil(t, f.load(t, theirs.DocumentID).ReportID)

	kept := f.load(t, already.DocumentID)
	require.NotNil(t, kept.ReportID)
	assert.Equal(t, snowflake.ID(100), *kept.ReportID)

	none, err := f.svc.AttachPending(ctx, nil, alice.UserID, 200, nil)
	require.NoError(t, err)
	assert.Zero(t, none)

	docs, err := f.svc.ListByReport(ctx, 200)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, mine.DocumentID, docs[0].ID)
}

func TestDownloadURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.upload(t, alice, "a.pdf")

	_, err := f.svc.DownloadURL(ctx, alice, ticket.DocumentID)
	assert.ErrorIs(t, err, documentdomain.ErrNotUploaded)

	_, err = f.svc.ConfirmUpload(ctx, alice, ticket.DocumentID)
	require.NoError(t, err)

	_, err = f.svc.DownloadURL(ctx, bob, ticket.DocumentID)
	assert.ErrorIs(t, err, documentdomain.ErrNotFound)

	f.storage.EXPECT().
		MintDownloadURL(gomock.Any(), "7/temp/a.pdf", time.Hour).
		Return("https://storage.example/get", nil)
	download, err := f.svc.DownloadURL(ctx, alice, ticket.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "https://storage.example/get", download.DownloadURL)
}

func TestRetract(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.storage.EXPECT().Delete(gomock.Any(), "7/temp/a.pdf").Return(nil)
	require.NoError(t, f.svc.Retract(ctx, "7/temp/a.pdf"))

	f.storage.EXPECT().Delete(gomock.Any(), "7/temp/b.pdf").Return(errors.New("timeout"))
	assert.ErrorIs(t, f.svc.Retract(ctx, "7/temp/b.pdf"), documentdomain.ErrStorageUnavailable)
	assert.ErrorIs(t, f.svc.Retract(ctx, " "), documentdomain.ErrNotFound)
}
