// Package models holds the GORM schema of the back office: master data
// (customers, suppliers, items, stores), invoices with their lines, and users.
package models

import "github.com/shopspring/decimal"

func init() {
	// Amounts are rendered as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// All lists every model in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Customer{},
		&Supplier{},
		&Store{},
		&Item{},
		&SaleInvoice{},
		&SaleInvoiceLine{},
		&PurchaseInvoice{},
		&PurchaseInvoiceLine{},
	}
}
