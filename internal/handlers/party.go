package handlers

import (
	"context"
	"time"

	"github.com/naumangoraya/sos/internal/export"
	"github.com/naumangoraya/sos/internal/models"
	"github.com/naumangoraya/sos/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var partyColumns = []Column{
	{JSON: "code", DB: "code", Kind: Text},
	{JSON: "title", DB: "title", Kind: Text},
	{JSON: "businessName", DB: "business_name", Kind: Text},
	{JSON: "contactPerson", DB: "contact_person", Kind: Text},
	{JSON: "city", DB: "city", Kind: Text},
	{JSON: "address", DB: "address", Kind: Text},
	{JSON: "phoneNumber", DB: "phone_number", Kind: Text},
	{JSON: "email", DB: "email", Kind: Text},
	{JSON: "mobileNumber", DB: "mobile_number", Kind: Text},
}

var customerColumns = append(append([]Column{}, partyColumns...),
	Column{JSON: "creditDays", DB: "credit_days", Kind: Int},
	Column{JSON: "creditLimit", DB: "credit_limit", Kind: Decimal},
)

func partySchema(dependents ...repository.Dependent) repository.Schema {
	return repository.Schema{
		KeyColumn:  "id",
		NaturalKey: "code",
		Search:     []string{"code", "title", "business_name", "city", "contact_person"},
		Filters: map[string]string{
			"code":        "code",
			"description": "title",
			"business":    "business_name",
			"city":        "city",
		},
		Dependents: dependents,
	}
}

func startOfYear(now time.Time) time.Time {
	return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
}

type CustomerStats struct {
	TotalCustomers   int64           `json:"totalCustomers"`
	ActiveCustomers  int64           `json:"activeCustomers"`
	TotalCreditLimit decimal.Decimal `json:"totalCreditLimit"`
}

type SupplierStats struct {
	TotalSuppliers  int64 `json:"totalSuppliers"`
	ActiveSuppliers int64 `json:"activeSuppliers"`
}

// activeParties counts the distinct parties with an invoice created this year.
func activeParties(ctx context.Context, db *gorm.DB, invoice any, column string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(invoice).
		Where("created_at >= ?", startOfYear(time.Now())).
		Distinct(column).
		Count(&n).Error
	return n, err
}

func NewCustomers(db *gorm.DB) *Resource[models.Customer, *models.Customer] {
	repo := repository.New[models.Customer](db,
		partySchema(repository.Dependent{Table: "sale_invoices", Column: "customer_id"}))
	return &Resource[models.Customer, *models.Customer]{
		Repo:     repo,
		Name:     "Customer",
		KeyLabel: "Customer code",
		InUse:    "Cannot delete customer with associated sale invoices",
		Columns:  customerColumns,
		Stats: func(ctx context.Context) (any, error) {
			var s CustomerStats
			var err error
			if s.TotalCustomers, err = repo.Count(ctx); err != nil {
				return nil, err
			}
			if s.ActiveCustomers, err = activeParties(ctx, db, &models.SaleInvoice{}, "customer_id"); err != nil {
				return nil, err
			}
			err = db.WithContext(ctx).Model(&models.Customer{}).
				Select("COALESCE(SUM(credit_limit), 0)").
				Row().Scan(&s.TotalCreditLimit)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		Sheet: "Customers",
		Export: append(partyExport[models.Customer](func(c *models.Customer) *partyView {
			return &partyView{c.Code, c.Title, c.BusinessName, c.ContactPerson, c.City, c.Address, c.PhoneNumber, c.MobileNumber, c.Email}
		}),
			export.Column[models.Customer]{Header: "Credit Days", Value: func(c *models.Customer) any { return c.CreditDays }},
			export.Column[models.Customer]{Header: "Credit Limit", Value: func(c *models.Customer) any { return c.CreditLimit.InexactFloat64() }},
		),
	}
}

func NewSuppliers(db *gorm.DB) *Resource[models.Supplier, *models.Supplier] {
	repo := repository.New[models.Supplier](db,
		partySchema(repository.Dependent{Table: "purchase_invoices", Column: "supplier_id"}))
	return &Resource[models.Supplier, *models.Supplier]{
		Repo:     repo,
		Name:     "Supplier",
		KeyLabel: "Supplier code",
		InUse:    "Cannot delete supplier with associated purchase invoices",
		Columns:  partyColumns,
		Stats: func(ctx context.Context) (any, error) {
			var s SupplierStats
			var err error
			if s.TotalSuppliers, err = repo.Count(ctx); err != nil {
				return nil, err
			}
			if s.ActiveSuppliers, err = activeParties(ctx, db, &models.PurchaseInvoice{}, "supplier_id"); err != nil {
				return nil, err
			}
			return s, nil
		},
		Sheet: "Suppliers",
		Export: partyExport[models.Supplier](func(s *models.Supplier) *partyView {
			return &partyView{s.Code, s.Title, s.BusinessName, s.ContactPerson, s.City, s.Address, s.PhoneNumber, s.MobileNumber, s.Email}
		}),
	}
}

// partyView is the shared export shape of customers and suppliers.
type partyView struct {
	Code, Title, Business, Contact, City, Address, Phone, Mobile, Email string
}

func partyExport[T any](view func(*T) *partyView) []export.Column[T] {
	col := func(header string, get func(*partyView) string) export.Column[T] {
		return export.Column[T]{Header: header, Value: func(t *T) any { return get(view(t)) }}
	}
	return []export.Column[T]{
		col("Code", func(p *partyView) string { return p.Code }),
		col("Title", func(p *partyView) string { return p.Title }),
		col("Business Name", func(p *partyView) string { return p.Business }),
		col("Contact Person", func(p *partyView) string { return p.Contact }),
		col("City", func(p *partyView) string { return p.City }),
		col("Address", func(p *partyView) string { return p.Address }),
		col("Phone", func(p *partyView) string { return p.Phone }),
		col("Mobile", func(p *partyView) string { return p.Mobile }),
		col("Email", func(p *partyView) string { return p.Email }),
	}
}
