package domain

import (
	"database/sql/driver"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/srithedesigner/credmatrix-backend/pkg/enum"
)

// EntityType classifies the organization a user belongs to.
type EntityType uint8

const (
	EntityTypeIndividual EntityType = iota + 1
	EntityTypeBank
	EntityTypeNBFC
	EntityTypeCorporate
	EntityTypeStartup
	EntityTypeConsultant
	EntityTypeOther
)

var entityTypeNames = enum.Names{
	"",
	"INDIVIDUAL",
	"BANK",
	"NBFC",
	"CORPORATE",
	"STARTUP",
	"CONSULTANT",
	"OTHER",
}

func ParseEntityType(raw string) (EntityType, error) {
	v, ok := entityTypeNames.Parse(raw)
	if !ok {
		return 0, ErrInvalidEntityType
	}
	return EntityType(v), nil
}

func (t EntityType) Valid() bool                  { return t >= EntityTypeIndividual && t <= EntityTypeOther }
func (t EntityType) String() string               { return entityTypeNames.Name(uint8(t)) }
func (t EntityType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *EntityType) UnmarshalText(text []byte) error {
	parsed, err := ParseEntityType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t EntityType) Value() (driver.Value, error) { return entityTypeNames.Value(uint8(t)) }

func (t *EntityType) Scan(src any) error {
	v, err := entityTypeNames.Scan(src)
	*t = EntityType(v)
	return err
}

// Entity is the organization that owns a credit balance.
type Entity struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	Name        string        `gorm:"type:text;not null" json:"name"`
	Type        EntityType    `gorm:"column:entity_type;type:text;not null" json:"entity_type"`
	Credits     int64         `gorm:"not null;default:0;check:credits >= 0" json:"credits"`
	AdminUserID *snowflake.ID `gorm:"index" json:"admin_user_id,omitempty"`
	CreatedAt   time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Entity) TableName() string { return "entities" }
