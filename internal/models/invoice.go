package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice status values. Any status may follow any other.
const (
	InvoiceDraft     = "DRAFT"
	InvoicePosted    = "POSTED"
	InvoiceCancelled = "CANCELLED"
)

// Payment types of a sale invoice.
const (
	PaymentCash   = "Cash"
	PaymentCredit = "Credit"
)

// Rate bases of an invoice line.
const (
	RateOnQuantity = "Quantity"
	RateOnWeight   = "Weight"
)

// InvoiceStatuses lists the valid status values in display order.
var InvoiceStatuses = []string{InvoiceDraft, InvoicePosted, InvoiceCancelled}

type SaleInvoice struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	InvoiceNumber   string            `gorm:"size:50;not null;uniqueIndex" json:"invoiceNumber"`
	InvoiceDate     time.Time         `gorm:"not null" json:"invoiceDate"`
	CustomerID      uint              `gorm:"not null;index" json:"customerId"`
	Customer        *Customer         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"customer,omitempty"`
	StoreID         uint              `gorm:"not null;index" json:"storeId"`
	Store           *Store            `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"store,omitempty"`
	PaymentType     string            `gorm:"size:10;not null;default:Cash" json:"paymentType"`
	ReferenceNumber string            `gorm:"size:100" json:"referenceNumber"`
	TotalAmount     decimal.Decimal   `gorm:"type:numeric(14,2);not null;default:0" json:"totalAmount"`
	Status          string            `gorm:"size:20;not null;default:DRAFT;index" json:"status"`
	Remarks         string            `gorm:"type:text" json:"remarks"`
	Lines           []SaleInvoiceLine `gorm:"constraint:OnDelete:CASCADE" json:"lines,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

func (s *SaleInvoice) NaturalKey() string        { return s.InvoiceNumber }
func (s *SaleInvoice) SetInvoiceNumber(n string) { s.InvoiceNumber = n }

func (s *SaleInvoice) BeforeCreate(*gorm.DB) error {
	if s.Status == "" {
		s.Status = InvoiceDraft
	}
	if s.PaymentType == "" {
		s.PaymentType = PaymentCash
	}
	return nil
}

// Item is preloaded only; the item_id foreign key is declared on Item.
type SaleInvoiceLine struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	SaleInvoiceID uint            `gorm:"not null;index" json:"saleInvoiceId"`
	ItemID        string          `gorm:"size:50;not null;index" json:"itemId"`
	Item          *Item           `gorm:"foreignKey:ItemID;references:ItemID;constraint:-" json:"item,omitempty"`
	Quantity      decimal.Decimal `gorm:"type:numeric(14,3);not null;default:0" json:"quantity"`
	Weight        decimal.Decimal `gorm:"type:numeric(14,3);not null;default:0" json:"weight"`
	Rate          decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"rate"`
	RateOn        string          `gorm:"size:10;not null;default:Quantity" json:"rateOn"`
	Value         decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"value"`
	Remarks       string          `gorm:"size:255" json:"remarks"`
}

type PurchaseInvoice struct {
	ID              uint                  `gorm:"primaryKey" json:"id"`
	InvoiceNumber   string                `gorm:"size:50;not null;uniqueIndex" json:"invoiceNumber"`
	InvoiceDate     time.Time             `gorm:"not null" json:"invoiceDate"`
	SupplierID      uint                  `gorm:"not null;index" json:"supplierId"`
	Supplier        *Supplier             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"supplier,omitempty"`
	StoreID         uint                  `gorm:"not null;index" json:"storeId"`
	Store           *Store                `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"store,omitempty"`
	ReferenceNumber string                `gorm:"size:100" json:"referenceNumber"`
	TotalAmount     decimal.Decimal       `gorm:"type:numeric(14,2);not null;default:0" json:"totalAmount"`
	Status          string                `gorm:"size:20;not null;default:DRAFT;index" json:"status"`
	Remarks         string                `gorm:"type:text" json:"remarks"`
	Lines           []PurchaseInvoiceLine `gorm:"constraint:OnDelete:CASCADE" json:"lines,omitempty"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

func (p *PurchaseInvoice) NaturalKey() string        { return p.InvoiceNumber }
func (p *PurchaseInvoice) SetInvoiceNumber(n string) { p.InvoiceNumber = n }

func (p *PurchaseInvoice) BeforeCreate(*gorm.DB) error {
	if p.Status == "" {
		p.Status = InvoiceDraft
	}
	return nil
}

type PurchaseInvoiceLine struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	PurchaseInvoiceID uint            `gorm:"not null;index" json:"purchaseInvoiceId"`
	ItemID            string          `gorm:"size:50;not null;index" json:"itemId"`
	Item              *Item           `gorm:"foreignKey:ItemID;references:ItemID;constraint:-" json:"item,omitempty"`
	Quantity          decimal.Decimal `gorm:"type:numeric(14,3);not null;default:0" json:"quantity"`
	Weight            decimal.Decimal `gorm:"type:numeric(14,3);not null;default:0" json:"weight"`
	Rate              decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"rate"`
	RateOn            string          `gorm:"size:10;not null;default:Quantity" json:"rateOn"`
	Value             decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"value"`
	Remarks           string          `gorm:"size:255" json:"remarks"`
}

// Pricing returns the inputs of the line value.
func (l *SaleInvoiceLine) Pricing() (quantity, weight, rate decimal.Decimal, rateOn string) {
	return l.Quantity, l.Weight, l.Rate, l.RateOn
}

func (l *SaleInvoiceLine) Amount() decimal.Decimal     { return l.Value }
func (l *SaleInvoiceLine) SetAmount(v decimal.Decimal) { l.Value = v }
func (l *SaleInvoiceLine) SetInvoiceID(id uint)        { l.SaleInvoiceID = id }
func (l *SaleInvoiceLine) ItemKey() string             { return l.ItemID }

func (l *PurchaseInvoiceLine) Pricing() (quantity, weight, rate decimal.Decimal, rateOn string) {
	return l.Quantity, l.Weight, l.Rate, l.RateOn
}

func (l *PurchaseInvoiceLine) Amount() decimal.Decimal     { return l.Value }
func (l *PurchaseInvoiceLine) SetAmount(v decimal.Decimal) { l.Value = v }
func (l *PurchaseInvoiceLine) SetInvoiceID(id uint)        { l.PurchaseInvoiceID = id }
func (l *PurchaseInvoiceLine) ItemKey() string             { return l.ItemID }

func (s *SaleInvoice) InvoiceLines() []SaleInvoiceLine  { return s.Lines }
func (s *SaleInvoice) SetTotal(v decimal.Decimal)       { s.TotalAmount = v }
func (s *SaleInvoice) Parties() (partyID, storeID uint) { return s.CustomerID, s.StoreID }

func (p *PurchaseInvoice) InvoiceLines() []PurchaseInvoiceLine { return p.Lines }
func (p *PurchaseInvoice) SetTotal(v decimal.Decimal)          { p.TotalAmount = v }
func (p *PurchaseInvoice) Parties() (partyID, storeID uint)    { return p.SupplierID, p.StoreID }
