package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/srithedesigner/credmatrix-backend/internal/clock"
	entitydomain "github.com/srithedesigner/credmatrix-backend/internal/entity/domain"
	"github.com/srithedesigner/credmatrix-backend/internal/entity/repository"
	"github.com/srithedesigner/credmatrix-backend/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) entitydomain.Service {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&entitydomain.Entity{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func TestCreateAndGet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, nil, entitydomain.CreateEntityRequest{Name: "  Acme Lending ", Type: entitydomain.EntityTypeNBFC})
	require.NoError(t, err)
	assert.Equal(t, "Acme Lending", created.Name)
	assert.Zero(t, created.Credits)

	loaded, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, entitydomain.EntityTypeNBFC, loaded.Type)
	assert.Nil(t, loaded.AdminUserID)

	require.NoError(t, svc.SetAdmin(ctx, nil, created.ID, snowflake.ID(42)))
	loaded, err = svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.AdminUserID)
	assert.Equal(t, snowflake.ID(42), *loaded.AdminUserID)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, nil, entitydomain.CreateEntityRequest{Name: " ", Type: entitydomain.EntityTypeBank})
	assert.ErrorIs(t, err, entitydomain.ErrInvalidName)

	_, err = svc.Create(ctx, nil, entitydomain.CreateEntityRequest{Name: "Acme"})
	assert.ErrorIs(t, err, entitydomain.ErrInvalidEntityType)
}

func TestGetUnknown(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Get(context.Background(), snowflake.ID(99))
	assert.ErrorIs(t, err, entitydomain.ErrNotFound)

	err = svc.SetAdmin(context.Background(), nil, snowflake.ID(99), snowflake.ID(1))
	assert.ErrorIs(t, err, entitydomain.ErrNotFound)
}
