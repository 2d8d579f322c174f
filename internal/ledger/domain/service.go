package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/srithedesigner/credmatrix-backend/internal/identity"
	"github.com/srithedesigner/credmatrix-backend/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	// DecrementIfSufficient returns the number of rows changed; zero means
	// the entity is missing or its balance is below amount.
	DecrementIfSufficient(ctx context.Context, db *gorm.DB, entityID snowflake.ID, amount int64, now time.Time) (int64, error)
	Increment(ctx context.Context, db *gorm.DB, entityID snowflake.ID, amount int64, now time.Time) (int64, error)
	EntityExists(ctx context.Context, db *gorm.DB, entityID snowflake.ID) (bool, error)
	FindBalance(ctx context.Context, db *gorm.DB, entityID snowflake.ID) (*int64, error)
	InsertTransaction(ctx context.Context, db *gorm.DB, txn *Transaction) error
	CountByReportAndKind(ctx context.Context, db *gorm.DB, reportID snowflake.ID, kind TransactionKind) (int64, error)
	ListTransactions(ctx context.Context, db *gorm.DB, filter ListTransactionsFilter) ([]*Transaction, error)
}

type GrantRequest struct {
	EntityID snowflake.ID
	Credits  int64
	Note     string
}

type ListTransactionsRequest struct {
	pagination.Pagination
	EntityID snowflake.ID
}

type ListTransactionsResponse struct {
	pagination.PageInfo
	Transactions []Transaction `json:"transactions"`
}

type Service interface {
	// Debit atomically decrements the balance only when it covers amount.
	Debit(ctx context.Context, tx *gorm.DB, entityID snowflake.ID, amount int64) error
	Credit(ctx context.Context, tx *gorm.DB, entityID snowflake.ID, amount int64) error
	RecordTransaction(ctx context.Context, tx *gorm.DB, txn *Transaction) error
	HasRefund(ctx context.Context, tx *gorm.DB, reportID snowflake.ID) (bool, error)

	Balance(ctx context.Context, entityID snowflake.ID) (int64, error)
	ListTransactions(ctx context.Context, req ListTransactionsRequest) (ListTransactionsResponse, error)
	Grant(ctx context.Context, actor identity.Actor, req GrantRequest) (*Transaction, error)
}

var (
	ErrInsufficientCredits    = errors.New("insufficient_credits")
	ErrEntityNotFound         = errors.New("entity_not_found")
	ErrInvalidAmount          = errors.New("invalid_amount")
	ErrEmptyServices          = errors.New("empty_services")
	ErrInvalidServiceCode     = errors.New("invalid_service_code")
	ErrInvalidTransactionKind = errors.New("invalid_transaction_kind")
	ErrInvalidPageToken       = errors.New("invalid_page_token")
)
