package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	CodeLength = 6
	Validity   = 5 * time.Minute
)

// OTP is the single outstanding one-time code for an email address.
type OTP struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Email     string       `gorm:"type:text;not null;uniqueIndex"`
	Code      string       `gorm:"type:text;not null"`
	CreatedAt time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (OTP) TableName() string { return "otps" }

// Expired reports whether the code is older than Validity at now.
func (o *OTP) Expired(now time.Time) bool {
	return now.Sub(o.CreatedAt) > Validity
}
