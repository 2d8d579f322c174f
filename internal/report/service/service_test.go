package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/srithedesigner/credmatrix-backend/internal/activity/domain"
	activityrepo "github.com/srithedesigner/credmatrix-backend/internal/activity/repository"
	activityservice "github.com/srithedesigner/credmatrix-backend/internal/activity/service"
	"github.com/srithedesigner/credmatrix-backend/internal/clock"
	"github.com/srithedesigner/credmatrix-backend/internal/config"
	documentdomain "github.com/srithedesigner/credmatrix-backend/internal/document/domain"
	documentrepo "github.com/srithedesigner/credmatrix-backend/internal/document/repository"
	documentservice "github.com/srithedesigner/credmatrix-backend/internal/document/service"
	entitydomain "github.com/srithedesigner/credmatrix-backend/internal/entity/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/identity"
	ledgerdomain "github.com/srithedesigner/credmatrix-backend/internal/ledger/domain"
	ledgerrepo "github.com/srithedesigner/credmatrix-backend/internal/ledger/repository"
	ledgerservice "github.com/srithedesigner/credmatrix-backend/internal/ledger/service"
	"github.com/srithedesigner/credmatrix-backend/internal/providers/storage"
	reportdomain "github.com/srithedesigner/credmatrix-backend/internal/report/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/report/repository"
	"github.com/srithedesigner/credmatrix-backend/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	entityA snowflake.ID = 1000
	entityB snowflake.ID = 2000
)

var (
	alice = identity.Actor{UserID: 1, EntityID: entityA, Role: identity.RoleUser}
	carol = identity.Actor{UserID: 3, EntityID: entityA, Role: identity.RoleUser}
	bob   = identity.Actor{UserID: 2, EntityID: entityB, Role: identity.RoleUser}
	staff = identity.Actor{UserID: 9, Role: identity.RoleAdmin}
)

type fixture struct {
	db    *gorm.DB
	svc   reportdomain.Service
	clock *clock.FakeClock
}

func newFixture(t *testing.T, policy config.LifecyclePolicy) *fixture {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&entitydomain.Entity{},
		&ledgerdomain.Transaction{},
		&documentdomain.Document{},
		&activitydomain.Activity{},
		&reportdomain.Report{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	holder := config.NewStaticLifecyclePolicyHolder(policy)

	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: ledgerrepo.Provide(),
	})
	documentSvc := documentservice.NewService(documentservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: documentrepo.Provide(),
		Storage: storage.Unconfigured{}, Policy: holder,
	})
	activitySvc := activityservice.NewService(activityservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: activityrepo.Provide(),
	})

	return &fixture{
		db:    conn,
		clock: clk,
		svc: NewService(Params{
			DB:          conn,
			Log:         log,
			GenID:       node,
			Clock:       clk,
			Repo:        repository.Provide(),
			LedgerSvc:   ledgerSvc,
			DocumentSvc: documentSvc,
			ActivitySvc: activitySvc,
			Policy:      holder,
		}),
	}
}

func legacy() config.LifecyclePolicy { return config.DefaultLifecyclePolicy() }

func strict() config.LifecyclePolicy {
	policy := config.DefaultLifecyclePolicy()
	policy.EnforceTransitions = true
	return policy
}

func (f *fixture) seedEntity(t *testing.T, id snowflake.ID, credits int64) {
	t.Helper()
	now := f.clock.Now()
	require.NoError(t, f.db.Create(&entitydomain.Entity{
		ID: id, Name: "Entity", Type: entitydomain.EntityTypeBank, Credits: credits, CreatedAt: now, UpdatedAt: now,
	}).Error)
}

func (f *fixture) credits(t *testing.T, id snowflake.ID) int64 {
	t.Helper()
	var entity entitydomain.Entity
	require.NoError(t, f.db.First(&entity, "id = ?", id).Error)
	return entity.Credits
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func (f *fixture) activities(t *testing.T, reportID snowflake.ID) []activitydomain.Activity {
	t.Helper()
	var items []activitydomain.Activity
	require.NoError(t, f.db.Where("report_id = ?", reportID).Order("created_at asc, id asc").Find(&items).Error)
	return items
}

func (f *fixture) initiate(t *testing.T, actor identity.Actor, codes ...ledgerdomain.ServiceCode) *reportdomain.Report {
	t.Helper()
	report, err := f.svc.Initiate(context.Background(), actor, reportdomain.InitiateRequest{
		TargetEntityName: "CredMatrix Inc.",
		TargetEntityPAN:  "abcde1234f",
		Services:         codes,
	})
	require.NoError(t, err)
	return report
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestInitiateDebitsEntityAndRecordsTransaction(t *testing.T) {
	f := newFixture(t, legacy())
	f.seedEntity(t, entityA, 20)

	report := f.initiate(t, alice, ledgerdomain.ServiceFinancialInfo)

	assert.Equal(t, reportdomain.StatusRequestRaised, report.Status)
	assert.Equal(t, int64(5), report.Credits)
	assert.Equal(t, "ABCDE1234F", report.TargetEntityPAN)
	assert.Equal(t, int64(15), f.credits(t, entityA))

	var txns []ledgerdomain.Transaction
	require.NoError(t, f.db.Find(&txns).Error)
	require.Len(t, txns, 1)
	assert.Equal(t, int64(5), txns[0].Credits)
	assert.Equal(t, ledgerdomain.TransactionKindDebit, txns[0].Kind)
	require.NotNil(t, txns[0].ReportID)
	assert.Equal(t, report.ID, *txns[0].ReportID)

	assert.Zero(t, f.count(t, &activitydomain.Activity{}))

	stored, err := f.svc.Get(context.Background(), alice, report.ID)
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.ServiceCodes{ledgerdomain.ServiceFinancialInfo}, stored.Services)
	assert.Empty(t, stored.PendingDocuments)
}

func TestInitiateInsufficientCreditsLeavesNoTrace(t *testing.T) {
	f := newFixture(t, legacy())
	f.seedEntity(t, entityA, 15)

	_, err := f.svc.Initiate(context.Background(), alice, reportdomain.InitiateRequest{
		TargetEntityName: "CredMatrix Inc.",
		TargetEntityPAN:  "ABCDE1234F",
		Services:         ledgerdomain.ServiceCodes{ledgerdomain.ServiceComprehensiveReportWithScores},
	})
	assert.ErrorIs(t, err, ledgerdomain.ErrInsufficientCredits)
	assert.Equal(t, int64(15), f.credits(t, entityA))
	assert.Zero(t, f.count(t, &reportdomain.Report{}))
	assert.Zero(t, f.count(t, &ledgerdomain.Transaction{}))
}

func TestInitiateRequiresEntity(t *testing.T) {
	f := newFixture(t, legacy())
	ctx := context.Background()
	req := reportdomain.InitiateRequest{
		TargetEntityName: "CredMatrix Inc.",
		TargetEntityPAN:  "ABCDE1234F",
		Services:         ledgerdomain.ServiceCodes{ledgerdomain.ServiceFinancialInfo},
	}

	_, err := f.svc.Initiate(ctx, identity.Actor{UserID: 5, Role: identity.RoleUser}, req)
	assert.ErrorIs(t, err, reportdomain.ErrNoEntity)

	// Entity membership is checked before the payload.
	_, err = f.svc.Initiate(ctx, identity.Actor{UserID: 5, Role: identity.RoleUser}, reportdomain.InitiateRequest{TargetEntityName: " ", TargetEntityPAN: "AB-12"})
	assert.ErrorIs(t, err, reportdomain.ErrNoEntity)

	// The entity reference dangles.
	_, err = f.svc.Initiate(ctx, identity.Actor{UserID: 5, EntityID: 4040, Role: identity.RoleUser}, req)
	assert.ErrorIs(t, err, reportdomain.ErrNoEntity)
	assert.Zero(t, f.count(t, &reportdomain.Report{}))
}

func TestInitiateValidatesInput(t *testing.T) {
	f := newFixture(t, legacy())
	f.seedEntity(t, entityA, 100)
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, alice, reportdomain.InitiateRequest{TargetEntityName: " ", TargetEntityPAN: "ABCDE1234F", Services: ledgerdomain.ServiceCodes{ledgerdomain.ServiceFinancialInfo}})
	assert.ErrorIs(t, err, reportdomain.ErrInvalidTargetName)

	_, err = f.svc.Initiate(ctx, alice, reportdomain.InitiateRequest{TargetEntityName: "X", TargetEntityPAN: "AB-12", Services: ledgerdomain.ServiceCodes{ledgerdomain.ServiceFinancialInfo}})
	assert.ErrorIs(t, err, reportdomain.ErrInvalidPAN)

	_, err = f.svc.Initiate(ctx, alice, reportdomain.InitiateRequest{TargetEntityName: "X", TargetEntityPAN: "ABCDE1234F"})
	assert.ErrorIs(t, err, ledgerdomain.ErrEmptyServices)
	assert.Equal(t, int64(100), f.credits(t, entityA))
}

// sqlite serializes these on one connection; the guarded decrement itself is
// covered in the ledger repository tests and against postgres.
func TestParallelInitiatesChargeOnce(t *testing.T) {
	f := newFixture(t, legacy())
	f.seedEntity(t, entityA, 20)

	const workers = 8
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		successes    int
		insufficient int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Initiate(context.Background(), alice, reportdomain.InitiateRequest{
				TargetEntityName: "CredMatrix Inc.",
				TargetEntityPAN:  "ABCDE1234F",
				Services:         ledgerdomain.ServiceCodes{ledgerdomain.ServiceComprehensiveReportWithScores},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case assert.ErrorIs(t, err, ledgerdomain.ErrInsufficientCredits):
				insufficient++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, insufficient)
	assert.Zero(t, f.credits(t, entityA))
	assert.Equal(t, int64(1), f.count(t, &reportdomain.Report{}))
	assert.Equal(t, int64(1), f.count(t, &ledgerdomain.Transaction{}))
}

func TestInitiateAttachesOnlyOwnPendingDocuments(t *testing.T) {
	f := newFixture(t, legacy())
	f.seedEntity(t, entityA, 20)
	now := f.clock.Now()

	docs := []documentdomain.Document{
		{ID: 11, UserID: alice.UserID, Name: "a.pdf", StorageKey: "1/temp/a.pdf", CreatedAt: now},
		{ID: 12, UserID: bob.UserID, Name: "b.pdf", StorageKey: "2/temp/b.pdf", CreatedAt: now},
	}
	require.NoError(t, f.db.Create(&docs).Error)

	report, err := f.svc.Initiate(context.Background(), alice, reportdomain.InitiateRequest{
		TargetEntityName: "CredMatrix Inc.",
		TargetEntityPAN:  "ABCDE1234F",
		Services:         ledgerdomain.ServiceCodes{ledgerdomain.ServiceFinancialInfo},
		DocumentIDs:      []snowflake.ID{11, 12, 13},
	})
	require.NoError(t, err)

	var mine, theirs documentdomain.Document
	require.NoError(t, f.db.First(&mine, "id = ?", 11).Error)
	require.NoError(t, f.db.First(&theirs, "id = ?", 12).Error)
	require.NotNil(t, mine.ReportID)
	assert.Equal(t, report.ID, *mine.ReportID)
	assert.NotNil(t, mine.UploadedAt)
	assert.Nil(t, theirs.ReportID)
}

func TestEditJournalsExactlySubmittedFields(t *testing.T) {
	f := newFixture(t, legacy())
	f.seedEntity(t, entityA, 20)
	report := f.initiate(t, alice, ledgerdomain.ServiceFinancialInfo)

	changes, err := reportdomain.DecodeChanges(map[string]json.RawMessage{
		"target_entity_name": json.RawMessage(`"CredMatrix Holdings"`),
		"agent_id":           json.RawMessage(`"9"`),
	})
	require.NoError(t, err)

	updated, err := f.svc.Edit(context.Background(), alice, report.ID, changes)
	require.NoError(t, err)
	assert.Equal(t, "CredMatrix Holdings", updated.TargetEntityName)
	require.NotNil(t, updated.AgentID)
	assert.Equal(t, snowflake.ID(9), *updated.AgentID)
	assert.Equal(t, int64(5), updated.Credits)

	acts := f.activities(t, report.ID)
	require.Len(t, acts, 1)
	want := []string{"agent_id", "target_entity_name"}
	assert.Equal(t, want, keys(acts[0].OldState))
	assert.Equal(t, want, keys(acts[0].NewState))
	assert.Equal(t, "CredMatrix Inc.", acts[0].OldState["target_entity_name"])
	assert.Nil(t, acts[0].OldState["agent_id"])
	assert.Equal(t, "9", acts[0].NewState["agent_id"])
	assert.Equal(t, alice.UserID, acts[0].UserID)
}

func TestEditByAssignedAgent(t *testing.T) {
	f := newFixture(t, legacy())
	f.seedEntity(t, entityA, 20)
	report := f.initiate(t, alice, ledgerdomain.ServiceFinancialInfo)
	agentID := bob.UserID

	_, err := f.svc.Edit(context.Background(), staff, report.ID, reportdomain.Changes{reportdomain.FieldAgentID: &agentID})
	require.NoError(t, err)

	updated, err := f.svc.Edit(context.Background(), bob, report.ID, reportdomain.Changes{
		reportdomain.FieldStatus:           reportdomain.StatusDocPending,
		reportdomain.FieldPendingDocuments: []string{"GST returns"},
	})
	require.NoError(t, err)
	assert.Equal(t, reportdomain.StatusDocPending, updated.Status)

	stored, err := f.svc.Get(context.Background(), bob, report.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"GST returns"}, []string(stored.PendingDocuments))
}

func TestEditLegacyAllowsAnyStatusJump(t *testing.T) {
	f := newFixture(t, legacy())
	f.seedEntity(t, entityA, 20)
	report := f.initiate(t, alice, ledgerdomain.ServiceFinancialInfo)
	ctx := context.Background()

	_, err := f.svc.Edit(ctx, alice, report.ID, reportdomain.Changes{reportdomain.FieldStatus: reportdomain.StatusCompleted})
	require.NoError(t, err)
	updated, err := f.svc.Edit(ctx, alice, report.ID, reportdomain.Changes{reportdomain.FieldStatus: reportdomain.StatusDraft})
	require.NoError(t, err)
	assert.Equal(t, reportdomain.StatusDraft, updated.Status)
	assert.Len(t, f.activities(t, report.ID), 2)
}

func TestEditStrictRejectsIllegalJump(t *testing.T) {
	f := newFixture(t, strict())
	f.seedEntity(t, entityA, 20)
	report := f.initiate(t, alice, ledgerdomain.ServiceFinancialInfo)
	ctx := context.Background()

	_, err := f.svc.Edit(ctx, alice, report.ID, reportdomain.Changes{reportdomain.FieldStatus: reportdomain.StatusCompleted})
	assert.ErrorIs(t, err, reportdomain.ErrInvalidTransition)
	assert.Empty(t, f.activities(t, report.ID))

	_, err = f.svc.Edit(ctx, alice, report.ID, reportdomain.Changes{reportdomain.FieldStatus: reportdomain.StatusUnderAssessment})
	require.NoError(t, err)
	_, err = f.svc.Edit(ctx, alice, report.ID, reportdomain.Changes{reportdomain.FieldStatus: reportdomain.StatusCompleted})
	require.NoError(t, err)
	_, err = f.svc.Edit(ctx, alice, report.ID, reportdomain.Changes{reportdomain.FieldStatus: reportdomain.StatusDraft})
	assert.ErrorIs(t, err, reportdomain.ErrInvalidTransition)

	stored, err := f.svc.Get(ctx, alice, report.ID)
	require.NoError(t, err)
	assert.Equal(t, reportdomain.StatusCompleted, stored.Status)
}

func TestEditKeepsCancellationReasonConsistent(t *testing.T) {
	f := newFixture(t, legacy())
	f.seedEntity(t, entityA, 20)
	report := f.initiate(t, alice, ledgerdomain.ServiceFinancialInfo)
	ctx := context.Background()

	_, err := f.svc.Edit(ctx, alice, report.ID, reportdomain.Changes{reportdomain.FieldStatus: reportdomain.StatusCancelled})
	assert.ErrorIs(t, err, reportdomain.ErrCancellationReasonMismatch)

	reason := "duplicate"
	_, err = f.svc.Edit(ctx, alice, report.ID, reportdomain.Changes{reportdomain.FieldCancellationReason: &reason})
	assert.ErrorIs(t, err, reportdomain.ErrCancellationReasonMismatch)

	_, err = f.svc.Edit(ctx, alice, report.ID, reportdomain.Changes{
		reportdomain.FieldStatus:             reportdomain.StatusCancelled,
		reportdomain.FieldCancellationReason: &reason,
	})
	require.NoError(t, err)
	assert.Len(t, f.activities(t, report.ID), 1)
}

func TestEditNotFound(t *testing.T) {
	f := newFixture(t, legacy())
	f.seedEntity(t, entityA, 20)
	report := f.initiate(t, alice, ledgerdomain.ServiceFinancialInfo)
	ctx := context.Background()
	changes := reportdomain.Changes{reportdomain.FieldTargetEntityName: "Other"}

	_, err := f.svc.Edit(ctx, alice, 424242, changes)
	assert.ErrorIs(t, err, reportdomain.ErrNotFound)

	_, err = f.svc.Edit(ctx, bob, report.ID, changes)
	assert.ErrorIs(t, err, reportdomain.ErrNotFound)

	_, err = f.svc.Edit(ctx, alice, report.ID, reportdomain.Changes{})
	assert.ErrorIs(t, err, reportdomain.ErrNoChanges)

	_, err = f.svc.Edit(ctx, alice, report.ID, reportdomain.Changes{reportdomain.FieldStatus: "COMPLETED"})
	assert.ErrorIs(t, err, reportdomain.ErrInvalidFieldValue)
	assert.Empty(t, f.activities(t, report.ID))
}

func TestCancelRecordsStatusAndReason(t *testing.T) {
	f := newFixture(t, legacy())
	f.seedEntity(t, entityA, 20)
	report := f.initiate(t, alice, ledgerdomain.ServiceFinancialInfo)

	cancelled, err := f.svc.Cancel(context.Background(), alice, report.ID, "incomplete info")
	require.NoError(t, err)
	assert.Equal(t, reportdomain.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "incomplete info", *cancelled.CancellationReason)

	acts := f.activities(t, report.ID)
	require.Len(t, acts, 1)
	assert.Equal(t, map[string]any{"status": "REQUEST_RAISED", "cancellation_reason": nil}, map[string]any(acts[0].OldState))
	assert.Equal(t, map[string]any{"status": "CANCELLED", "cancellation_reason": "incomplete info"}, map[string]any(acts[0].NewState))

	// No refund unless configured.
	assert.Equal(t, int64(15), f.credits(t, entityA))
}

func TestCancelTwiceLegacyJournalsBoth(t *testing.T) {
	f := newFixture(t, legacy())
	f.seedEntity(t, entityA, 20)
	report := f.initiate(t, alice, ledgerdomain.ServiceFinancialInfo)
	ctx := context.Background()

	_, err := f.svc.Cancel(ctx, alice, report.ID, "incomplete info")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.svc.Cancel(ctx, alice, report.ID, "duplicate request")
	require.NoError(t, err)

	acts := f.activities(t, report.ID)
	require.Len(t, acts, 2)
	assert.Equal(t, "CANCELLED", acts[1].OldState["status"])
	assert.Equal(t, "incomplete info", acts[1].OldState["cancellation_reason"])
	assert.Equal(t, "duplicate request", acts[1].NewState["cancellation_reason"])
}

func TestCancelTwiceStrictRejectsSecond(t *testing.T) {
	f := newFixture(t, strict())
	f.seedEntity(t, entityA, 20)
	report := f.initiate(t, alice, ledgerdomain.ServiceFinancialInfo)
	ctx := context.Background()

	_, err := f.svc.Cancel(ctx, alice, report.ID, "incomplete info")
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, alice, report.ID, "again")
	assert.ErrorIs(t, err, reportdomain.ErrInvalidTransition)
	assert.Len(t, f.activities(t, report.ID), 1)
}

func TestCancelValidation(t *testing.T) {
	f := newFixture(t, legacy())
	f.seedEntity(t, entityA, 20)
	report := f.initiate(t, alice, ledgerdomain.ServiceFinancialInfo)
	ctx := context.Background()

	_, err := f.svc.Cancel(ctx, alice, report.ID, "   ")
	assert.ErrorIs(t, err, reportdomain.ErrCancellationReasonRequired)

	_, err = f.svc.Cancel(ctx, alice, report.ID, strings.Repeat("é", 1001))
	assert.ErrorIs(t, err, reportdomain.ErrInvalidCancellationReason)
	stored, err := f.svc.Get(ctx, alice, report.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.CancellationReason)

	_, err = f.svc.Cancel(ctx, alice, 31337, "gone")
	assert.ErrorIs(t, err, reportdomain.ErrNotFound)

	// Entity members can read but not cancel a colleague's report.
	_, err = f.svc.Get(ctx, carol, report.ID)
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, carol, report.ID, "mine now")
	assert.ErrorIs(t, err, reportdomain.ErrNotFound)
}

func TestCancelRefundsOnceWhenEnabled(t *testing.T) {
	policy := config.DefaultLifecyclePolicy()
	policy.RefundOnCancel = true
	f := newFixture(t, policy)
	f.seedEntity(t, entityA, 20)
	report := f.initiate(t, alice, ledgerdomain.ServiceFinancialInfo)
	ctx := context.Background()

	_, err := f.svc.Cancel(ctx, alice, report.ID, "incomplete info")
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, alice, report.ID, "still incomplete")
	require.NoError(t, err)

	assert.Equal(t, int64(20), f.credits(t, entityA))

	var refunds []ledgerdomain.Transaction
	require.NoError(t, f.db.Where("kind = ?", ledgerdomain.TransactionKindRefund).Find(&refunds).Error)
	require.Len(t, refunds, 1)
	assert.Equal(t, int64(-5), refunds[0].Credits)
}

func TestListForEntity(t *testing.T) {
	f := newFixture(t, legacy())
	f.seedEntity(t, entityA, 100)
	f.seedEntity(t, entityB, 100)
	ctx := context.Background()

	first := f.initiate(t, alice, ledgerdomain.ServiceFinancialInfo)
	f.clock.Advance(time.Second)
	second := f.initiate(t, carol, ledgerdomain.ServiceBureauReport)
	f.clock.Advance(time.Second)
	third := f.initiate(t, alice, ledgerdomain.ServiceBankRefCheck)
	f.initiate(t, bob, ledgerdomain.ServiceFinancialInfo)

	req := reportdomain.ListReportsRequest{}
	req.PageSize = 2
	page, err := f.svc.ListForEntity(ctx, carol, req)
	require.NoError(t, err)
	require.Len(t, page.Reports, 2)
	assert.Equal(t, third.ID, page.Reports[0].ID)
	assert.Equal(t, second.ID, page.Reports[1].ID)
	assert.True(t, page.HasMore)

	req.PageToken = page.NextPageToken
	rest, err := f.svc.ListForEntity(ctx, carol, req)
	require.NoError(t, err)
	require.Len(t, rest.Reports, 1)
	assert.Equal(t, first.ID, rest.Reports[0].ID)
	assert.False(t, rest.HasMore)

	_, err = f.svc.ListForEntity(ctx, staff, reportdomain.ListReportsRequest{})
	assert.ErrorIs(t, err, reportdomain.ErrNoEntity)

	_, err = f.svc.ListForEntity(ctx, alice, reportdomain.ListReportsRequest{Status: "UNKNOWN"})
	assert.ErrorIs(t, err, reportdomain.ErrInvalidStatus)
}

func TestHistoryIsChronologicalAndScoped(t *testing.T) {
	f := newFixture(t, legacy())
	f.seedEntity(t, entityA, 20)
	report := f.initiate(t, alice, ledgerdomain.ServiceFinancialInfo)
	ctx := context.Background()

	_, err := f.svc.Edit(ctx, alice, report.ID, reportdomain.Changes{reportdomain.FieldStatus: reportdomain.StatusUnderAssessment})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	_, err = f.svc.Cancel(ctx, alice, report.ID, "no longer needed")
	require.NoError(t, err)

	history, err := f.svc.History(ctx, alice, report.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "UNDER_ASSESMENT", history[0].NewState["status"])
	assert.Equal(t, "CANCELLED", history[1].NewState["status"])

	_, err = f.svc.History(ctx, bob, report.ID)
	assert.ErrorIs(t, err, reportdomain.ErrNotFound)
}
