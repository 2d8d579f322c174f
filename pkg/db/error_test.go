package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.False(t, IsDuplicateKeyErr(errors.New("boom")))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: users.email")))
	assert.True(t, IsDuplicateKeyErr(errors.New("Error 1062: Duplicate entry")))
}

func TestNewTestIsolated(t *testing.T) {
	type row struct {
		ID   int64 `gorm:"primaryKey"`
		Name string
	}

	first, err := NewTest()
	assert.NoError(t, err)
	second, err := NewTest()
	assert.NoError(t, err)

	assert.NoError(t, first.AutoMigrate(&row{}))
	assert.NoError(t, first.Create(&row{ID: 1, Name: "a"}).Error)

	assert.False(t, second.Migrator().HasTable(&row{}))
}
