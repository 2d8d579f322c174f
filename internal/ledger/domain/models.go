package domain

import (
	"database/sql/driver"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/srithedesigner/credmatrix-backend/pkg/enum"
)

// TransactionKind is the credit-affecting event a Transaction records.
type TransactionKind uint8

const (
	TransactionKindDebit TransactionKind = iota + 1
	TransactionKindRefund
	TransactionKindTopUp
)

var transactionKindNames = enum.Names{"", "debit", "refund", "top_up"}

func (k TransactionKind) String() string { return transactionKindNames.Name(uint8(k)) }

func (k TransactionKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *TransactionKind) UnmarshalText(text []byte) error {
	v, ok := transactionKindNames.Parse(string(text))
	if !ok {
		return ErrInvalidTransactionKind
	}
	*k = TransactionKind(v)
	return nil
}

func (k TransactionKind) Value() (driver.Value, error) { return transactionKindNames.Value(uint8(k)) }

func (k *TransactionKind) Scan(src any) error {
	v, err := transactionKindNames.Scan(src)
	*k = TransactionKind(v)
	return err
}

// Transaction is an immutable record of one credit-affecting event.
// Debits store positive credits; refunds and top-ups store negative credits.
type Transaction struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	EntityID  snowflake.ID    `gorm:"not null;index:ix_transactions_entity_created,priority:1" json:"entity_id"`
	UserID    snowflake.ID    `gorm:"not null;index" json:"user_id"`
	ReportID  *snowflake.ID   `gorm:"index" json:"report_id,omitempty"`
	Kind      TransactionKind `gorm:"type:text;not null" json:"kind"`
	Credits   int64           `gorm:"not null" json:"credits"`
	Reference *string         `gorm:"type:text" json:"reference,omitempty"`
	CreatedAt time.Time       `gorm:"not null;index:ix_transactions_entity_created,priority:2" json:"created_at"`
}

// TableName sets the database table name.
func (Transaction) TableName() string { return "transactions" }

type TransactionCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListTransactionsFilter struct {
	EntityID snowflake.ID
	Cursor   *TransactionCursor
	Limit    int
}
