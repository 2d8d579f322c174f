package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/srithedesigner/credmatrix-backend/internal/clock"
	entitydomain "github.com/srithedesigner/credmatrix-backend/internal/entity/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/identity"
	ledgerdomain "github.com/srithedesigner/credmatrix-backend/internal/ledger/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/ledger/repository"
	"github.com/srithedesigner/credmatrix-backend/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	svc   ledgerdomain.Service
	clock *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&entitydomain.Entity{}, &ledgerdomain.Transaction{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC))

	return &fixture{
		db:    conn,
		clock: clk,
		svc: NewService(Params{
			DB:    conn,
			Log:   zap.NewNop(),
			GenID: node,
			Clock: clk,
			Repo:  repository.Provide(),
		}),
	}
}

func (f *fixture) seedEntity(t *testing.T, id snowflake.ID, credits int64) {
	t.Helper()
	now := f.clock.Now()
	require.NoError(t, f.db.Create(&entitydomain.Entity{
		ID:        id,
		Name:      "Acme",
		Type:      entitydomain.EntityTypeCorporate,
		Credits:   credits,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)
}

func (f *fixture) balance(t *testing.T, id snowflake.ID) int64 {
	t.Helper()
	balance, err := f.svc.Balance(context.Background(), id)
	require.NoError(t, err)
	return balance
}

func TestDebitDecrementsByExactAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedEntity(t, 1, 20)

	for _, amount := range []int64{1, 4, 15} {
		require.NoError(t, f.svc.Debit(ctx, nil, 1, amount))
	}
	assert.Equal(t, int64(0), f.balance(t, 1))
}

func TestDebitRejectsOverdraftWithoutChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedEntity(t, 1, 15)

	err := f.svc.Debit(ctx, nil, 1, 20)
	assert.ErrorIs(t, err, ledgerdomain.ErrInsufficientCredits)
	assert.Equal(t, int64(15), f.balance(t, 1))

	require.NoError(t, f.svc.Debit(ctx, nil, 1, 15))
	assert.Equal(t, int64(0), f.balance(t, 1))
}

// Runs only against postgres, where every goroutine holds its own
// connection and the decrements genuinely race.
func TestConcurrentDebitsNeverOverspendOnPostgres(t *testing.T) {
	conn, ok, err := db.NewPostgresTest()
	if !ok {
		t.Skipf("%s not set", db.PostgresTestDSNEnv)
	}
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&entitydomain.Entity{}, &ledgerdomain.Transaction{}))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC))
	svc := NewService(Params{DB: conn, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: repository.Provide()})

	entityID := node.Generate()
	require.NoError(t, conn.Create(&entitydomain.Entity{
		ID:        entityID,
		Name:      "Acme",
		Type:      entitydomain.EntityTypeCorporate,
		Credits:   45,
		CreatedAt: clk.Now(),
		UpdatedAt: clk.Now(),
	}).Error)
	t.Cleanup(func() { conn.Delete(&entitydomain.Entity{}, entityID) })

	const workers = 16
	var (
		wg        sync.WaitGroup
		successes atomic.Int64
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := conn.Transaction(func(tx *gorm.DB) error {
				return svc.Debit(context.Background(), tx, entityID, 15)
			})
			if err == nil {
				successes.Add(1)
				return
			}
			assert.ErrorIs(t, err, ledgerdomain.ErrInsufficientCredits)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(3), successes.Load())
	balance, err := svc.Balance(context.Background(), entityID)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestDebitValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Debit(ctx, nil, 1, 0), ledgerdomain.ErrInvalidAmount)
	assert.ErrorIs(t, f.svc.Debit(ctx, nil, 1, -5), ledgerdomain.ErrInvalidAmount)
	assert.ErrorIs(t, f.svc.Debit(ctx, nil, 404, 5), ledgerdomain.ErrEntityNotFound)
}

func TestDebitRollsBackWithTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedEntity(t, 1, 10)

	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := f.svc.Debit(ctx, tx, 1, 10); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, int64(10), f.balance(t, 1))
}

func TestCreditAndRefundTracking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedEntity(t, 1, 0)

	require.NoError(t, f.svc.Credit(ctx, nil, 1, 7))
	assert.Equal(t, int64(7), f.balance(t, 1))
	assert.ErrorIs(t, f.svc.Credit(ctx, nil, 2, 7), ledgerdomain.ErrEntityNotFound)

	reportID := snowflake.ID(55)
	refunded, err := f.svc.HasRefund(ctx, nil, reportID)
	require.NoError(t, err)
	assert.False(t, refunded)

	require.NoError(t, f.svc.RecordTransaction(ctx, nil, &ledgerdomain.Transaction{
		EntityID: 1,
		UserID:   9,
		ReportID: &reportID,
		Kind:     ledgerdomain.TransactionKindRefund,
		Credits:  -7,
	}))
	refunded, err = f.svc.HasRefund(ctx, nil, reportID)
	require.NoError(t, err)
	assert.True(t, refunded)
}

func TestGrantAndListTransactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedEntity(t, 1, 0)
	admin := identity.Actor{UserID: 99, Role: identity.RoleAdmin}

	for i := 0; i < 3; i++ {
		_, err := f.svc.Grant(ctx, admin, ledgerdomain.GrantRequest{EntityID: 1, Credits: 10, Note: "goodwill"})
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}
	assert.Equal(t, int64(30), f.balance(t, 1))

	_, err := f.svc.Grant(ctx, admin, ledgerdomain.GrantRequest{EntityID: 1, Credits: 0})
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidAmount)

	req := ledgerdomain.ListTransactionsRequest{EntityID: 1}
	req.PageSize = 2
	page, err := f.svc.ListTransactions(ctx, req)
	require.NoError(t, err)
	require.Len(t, page.Transactions, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, ledgerdomain.TransactionKindTopUp, page.Transactions[0].Kind)
	assert.Equal(t, int64(-10), page.Transactions[0].Credits)
	require.NotNil(t, page.Transactions[0].Reference)
	assert.Equal(t, "goodwill", *page.Transactions[0].Reference)
	assert.True(t, page.Transactions[0].CreatedAt.After(page.Transactions[1].CreatedAt))

	req.PageToken = page.NextPageToken
	rest, err := f.svc.ListTransactions(ctx, req)
	require.NoError(t, err)
	require.Len(t, rest.Transactions, 1)
	assert.False(t, rest.HasMore)
}
