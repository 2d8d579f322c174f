package db

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq atomic.Int64

// PostgresTestDSNEnv names a postgres database for tests that need real
// concurrent connections.
const PostgresTestDSNEnv = "CREDMATRIX_TEST_POSTGRES_DSN"

// NewTest opens an isolated in-memory sqlite database. The pool is capped to
// a single connection, so goroutines sharing it never race inside the
// database.
func NewTest() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:memdb_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), testDBSeq.Add(1))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return conn, nil
}

// NewPostgresTest connects to the database named by PostgresTestDSNEnv.
// ok is false when the variable is unset.
func NewPostgresTest() (conn *gorm.DB, ok bool, err error) {
	dsn := os.Getenv(PostgresTestDSNEnv)
	if dsn == "" {
		return nil, false, nil
	}
	conn, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, true, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, true, err
	}
	sqlDB.SetMaxOpenConns(16)
	return conn, true, nil
}
