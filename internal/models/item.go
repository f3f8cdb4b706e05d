package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Item is a stock article. ItemID is both the primary and the natural key;
// invoice lines reference it directly.
type Item struct {
	ItemID          string              `gorm:"primaryKey;size:50" json:"itemId"`
	Description     string              `gorm:"size:500" json:"description"`
	Brand           string              `gorm:"size:100" json:"brand"`
	SheetsPerPacket *int                `json:"sheetsPerPacket"`
	Width           decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"width"`
	Length          decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"length"`
	Grams           *int                `json:"grams"`
	IsConstant      bool                `gorm:"not null;default:false" json:"isConstant"`
	Type            *string             `gorm:"size:50;index" json:"type"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`

	// Renaming an item follows through to its lines; referenced items
	// cannot be deleted.
	SaleLines     []SaleInvoiceLine     `gorm:"foreignKey:ItemID;references:ItemID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	PurchaseLines []PurchaseInvoiceLine `gorm:"foreignKey:ItemID;references:ItemID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

func (i *Item) NaturalKey() string { return i.ItemID }

// Size renders width x length, e.g. "45x187", or "" when either is unknown.
func (i *Item) Size() string {
	if !i.Width.Valid || !i.Length.Valid {
		return ""
	}
	return fmt.Sprintf("%sx%s", i.Width.Decimal.String(), i.Length.Decimal.String())
}

// Store status values.
const (
	StoreActive   = "Active"
	StoreInactive = "Inactive"
)

// Store is a warehouse or branch that invoices are booked against.
type Store struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	StoreName   string    `gorm:"size:100;not null;uniqueIndex" json:"storeName"`
	Description string    `gorm:"size:500" json:"description"`
	Status      string    `gorm:"size:10;not null;default:Active" json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (s *Store) NaturalKey() string { return s.StoreName }

func (s *Store) BeforeCreate(*gorm.DB) error {
	if s.Status == "" {
		s.Status = StoreActive
	}
	return nil
}
