package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ExternalIDPrefix marks identifiers issued by the billing system.
const ExternalIDPrefix = "cus_"

// Account is a local client record. Accounts are created elsewhere; this
// module only resolves them.
type Account struct {
	ID                 snowflake.ID `gorm:"primaryKey" json:"id"`
	Name               string       `gorm:"not null" json:"name"`
	Email              string       `gorm:"not null" json:"email"`
	ExternalCustomerID *string      `gorm:"column:external_customer_id;uniqueIndex" json:"external_customer_id,omitempty"`
	LegacyCustomerID   *string      `gorm:"column:legacy_customer_id" json:"-"`
	CreatedAt          time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time    `gorm:"not null" json:"updated_at"`
}

func (Account) TableName() string { return "accounts" }
