package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is a buyer referenced by sale invoices.
type Customer struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Code          string          `gorm:"size:20;not null;uniqueIndex" json:"code"`
	Title         string          `gorm:"size:100" json:"title"`
	BusinessName  string          `gorm:"size:150" json:"businessName"`
	ContactPerson string          `gorm:"size:100" json:"contactPerson"`
	City          string          `gorm:"size:100" json:"city"`
	Address       string          `gorm:"type:text" json:"address"`
	PhoneNumber   string          `gorm:"size:20" json:"phoneNumber"`
	Email         string          `gorm:"size:255" json:"email"`
	MobileNumber  string          `gorm:"size:20" json:"mobileNumber"`
	CreditDays    int             `gorm:"not null;default:0" json:"creditDays"`
	CreditLimit   decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"creditLimit"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func (c *Customer) NaturalKey() string { return c.Code }

// Supplier is a vendor referenced by purchase invoices.
type Supplier struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Code          string    `gorm:"size:20;not null;uniqueIndex" json:"code"`
	Title         string    `gorm:"size:100" json:"title"`
	BusinessName  string    `gorm:"size:150" json:"businessName"`
	ContactPerson string    `gorm:"size:100" json:"contactPerson"`
	City          string    `gorm:"size:100" json:"city"`
	Address       string    `gorm:"type:text" json:"address"`
	PhoneNumber   string    `gorm:"size:20" json:"phoneNumber"`
	Email         string    `gorm:"size:255" json:"email"`
	MobileNumber  string    `gorm:"size:20" json:"mobileNumber"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (s *Supplier) NaturalKey() string { return s.Code }
