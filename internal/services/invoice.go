// Package services holds the invoice logic shared by sale and purchase
// invoices: numbering, line values and line replacement.
package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/naumangoraya/sos/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	numberDigits = 6
	numberBatch  = 50
)

// Book describes one invoice register.
type Book struct {
	Prefix    string // e.g. "SI-"
	Table     string
	LineTable string
	LineFK    string // line column referencing the invoice
}

var (
	SaleBook     = Book{Prefix: "SI-", Table: "sale_invoices", LineTable: "sale_invoice_lines", LineFK: "sale_invoice_id"}
	PurchaseBook = Book{Prefix: "PI-", Table: "purchase_invoices", LineTable: "purchase_invoice_lines", LineFK: "purchase_invoice_id"}
)

// Line is implemented by pointers to both line types.
type Line[L any] interface {
	*L
	Pricing() (quantity, weight, rate decimal.Decimal, rateOn string)
	Amount() decimal.Decimal
	SetAmount(decimal.Decimal)
	SetInvoiceID(uint)
	ItemKey() string
}

// FormatNumber renders n with the book prefix, zero padded to six digits.
func FormatNumber(prefix string, n int) string {
	return fmt.Sprintf("%s%0*d", prefix, numberDigits, n)
}

// ParseNumber extracts the sequence from a number generated by FormatNumber.
// Sequences past 999999 simply grow a seventh digit.
func ParseNumber(prefix, s string) (int, bool) {
	rest, ok := strings.CutPrefix(s, prefix)
	if !ok || len(rest) < numberDigits || rest[0] < '0' || rest[0] > '9' {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NextNumber returns the number following the highest generated one in
// the book. Client supplied numbers that do not follow the pattern are
// ignored.
func NextNumber(ctx context.Context, db *gorm.DB, book Book) (string, error) {
	// Longer numbers sort first, so the highest sequence is usually the
	// first row of the first batch.
	for offset := 0; ; offset += numberBatch {
		var numbers []string
		err := db.WithContext(ctx).Table(book.Table).
			Where("invoice_number LIKE ? AND LENGTH(invoice_number) >= ?", book.Prefix+"%", len(book.Prefix)+numberDigits).
			Order("LENGTH(invoice_number) DESC, invoice_number DESC").
			Offset(offset).
			Limit(numberBatch).
			Pluck("invoice_number", &numbers).Error
		if err != nil {
			return "", fmt.Errorf("next invoice number: %w", err)
		}
		for _, s := range numbers {
			if n, ok := ParseNumber(book.Prefix, s); ok {
				return FormatNumber(book.Prefix, n+1), nil
			}
		}
		if len(numbers) < numberBatch {
			return FormatNumber(book.Prefix, 1), nil
		}
	}
}

// LineValue is rate x weight for weight-rated lines and rate x quantity
// otherwise.
func LineValue(quantity, weight, rate decimal.Decimal, rateOn string) decimal.Decimal {
	if rateOn == models.RateOnWeight {
		return rate.Mul(weight).Round(2)
	}
	return rate.Mul(quantity).Round(2)
}

// PriceLines fills in the value of every line that carries none and
// returns the sum of all line values.
func PriceLines[L any, P Line[L]](lines []L) decimal.Decimal {
	total := decimal.Zero
	for i := range lines {
		l := P(&lines[i])
		if l.Amount().IsZero() {
			l.SetAmount(LineValue(l.Pricing()))
		}
		total = total.Add(l.Amount())
	}
	return total
}

// ItemKeys returns the distinct item ids referenced by lines, in order.
func ItemKeys[L any, P Line[L]](lines []L) []string {
	seen := map[string]bool{}
	var keys []string
	for i := range lines {
		k := P(&lines[i]).ItemKey()
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

// ReplaceLines swaps every line of the invoice for lines and stores the
// new total. tx must be a transaction.
func ReplaceLines[L any, P Line[L]](tx *gorm.DB, book Book, invoiceID uint, lines []L) (decimal.Decimal, error) {
	if err := tx.Where(book.LineFK+" = ?", invoiceID).Delete(new(L)).Error; err != nil {
		return decimal.Zero, fmt.Errorf("delete lines: %w", err)
	}
	total := PriceLines[L, P](lines)
	if len(lines) > 0 {
		for i := range lines {
			P(&lines[i]).SetInvoiceID(invoiceID)
		}
		if err := tx.Create(&lines).Error; err != nil {
			return decimal.Zero, err
		}
	}
	err := tx.Table(book.Table).Where("id = ?", invoiceID).
		Updates(map[string]any{"total_amount": total, "updated_at": tx.NowFunc()}).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("update total: %w", err)
	}
	return total, nil
}
