package domain

import (
	"database/sql/driver"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/srithedesigner/credmatrix-backend/pkg/enum"
)

type Status uint8

const (
	StatusCreated Status = iota + 1
	StatusCompleted
	StatusFailed
)

var statusNames = enum.Names{"", "created", "completed", "failed"}

func (s Status) String() string { return statusNames.Name(uint8(s)) }

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(text []byte) error {
	v, ok := statusNames.Parse(string(text))
	if !ok {
		return ErrInvalidStatus
	}
	*s = Status(v)
	return nil
}

func (s Status) Value() (driver.Value, error) { return statusNames.Value(uint8(s)) }

func (s *Status) Scan(src any) error {
	v, err := statusNames.Scan(src)
	*s = Status(v)
	return err
}

// Payment is one credit top-up attempt, keyed by the gateway order id.
// Amount is in minor currency units.
type Payment struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	EntityID          snowflake.ID `gorm:"not null;index" json:"entity_id"`
	UserID            snowflake.ID `gorm:"not null;index" json:"user_id"`
	Provider          string       `gorm:"type:text;not null" json:"provider"`
	OrderID           string       `gorm:"type:text;not null;uniqueIndex" json:"order_id"`
	ProviderPaymentID *string      `gorm:"type:text" json:"provider_payment_id,omitempty"`
	Amount            int64        `gorm:"not null" json:"amount"`
	Currency          string       `gorm:"type:text;not null" json:"currency"`
	Credits           int64        `gorm:"not null" json:"credits"`
	Status            Status       `gorm:"type:text;not null" json:"status"`
	FailureReason     *string      `gorm:"type:text" json:"failure_reason,omitempty"`
	CreatedAt         time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time    `gorm:"not null" json:"updated_at"`
	CompletedAt       *time.Time   `json:"completed_at,omitempty"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }
