package services

import (
	"context"
	"testing"
	"time"

	"github.com/naumangoraya/sos/internal/db"
	"github.com/naumangoraya/sos/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared&_foreign_keys=on"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestFormatAndParseNumber(t *testing.T) {
	if got := FormatNumber("SI-", 42); got != "SI-000042" {
		t.Fatalf("FormatNumber = %q", got)
	}
	tests := []struct {
		in   string
		n    int
		want bool
	}{
		{"SI-000042", 42, true},
		{"SI-42", 0, false},
		{"PI-000042", 0, false},
		{"SI-00004a", 0, false},
		{"SI-1000000", 1000000, true},
		{"SI-+00042", 0, false},
	}
	for _, tt := range tests {
		n, ok := ParseNumber("SI-", tt.in)
		if ok != tt.want || n != tt.n {
			t.Errorf("ParseNumber(%q) = %d, %v", tt.in, n, ok)
		}
	}
}

func TestLineValue(t *testing.T) {
	tests := []struct {
		name   string
		rateOn string
		want   string
	}{
		{"quantity", models.RateOnQuantity, "25"},
		{"weight", models.RateOnWeight, "31.25"},
		{"default", "", "25"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LineValue(d("10"), d("12.5"), d("2.5"), tt.rateOn)
			if !got.Equal(d(tt.want)) {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPriceLinesKeepsSuppliedValues(t *testing.T) {
	lines := []models.SaleInvoiceLine{
		{ItemID: "A", Quantity: d("2"), Rate: d("100"), RateOn: models.RateOnQuantity},
		{ItemID: "B", Weight: d("3"), Rate: d("10"), RateOn: models.RateOnWeight},
		{ItemID: "A", Quantity: d("1"), Rate: d("1"), Value: d("7")},
	}
	total := PriceLines[models.SaleInvoiceLine](lines)
	if !total.Equal(d("237")) {
		t.Fatalf("total = %s", total)
	}
	if !lines[0].Value.Equal(d("200")) || !lines[1].Value.Equal(d("30")) || !lines[2].Value.Equal(d("7")) {
		t.Fatalf("unexpected values %s %s %s", lines[0].Value, lines[1].Value, lines[2].Value)
	}
	keys := ItemKeys[models.SaleInvoiceLine](lines)
	if len(keys) != 2 || keys[0] != "A" || keys[1] != "B" {
		t.Fatalf("ItemKeys = %v", keys)
	}
}

func seedInvoice(t *testing.T, conn *gorm.DB, number string) *models.SaleInvoice {
	t.Helper()
	var customer models.Customer
	conn.FirstOrCreate(&customer, models.Customer{Code: "C1"})
	var store models.Store
	conn.FirstOrCreate(&store, models.Store{StoreName: "Main"})
	conn.FirstOrCreate(&models.Item{}, models.Item{ItemID: "BC45187"})
	inv := &models.SaleInvoice{InvoiceNumber: number, InvoiceDate: time.Now(), CustomerID: customer.ID, StoreID: store.ID}
	if err := conn.Create(inv).Error; err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	return inv
}

func TestNextNumber(t *testing.T) {
	conn := setupDB(t)
	ctx := context.Background()

	got, err := NextNumber(ctx, conn, SaleBook)
	if err != nil {
		t.Fatal(err)
	}
	if got != "SI-000001" {
		t.Fatalf("empty book: got %q", got)
	}

	seedInvoice(t, conn, "SI-000007")
	seedInvoice(t, conn, "SI-000003")
	seedInvoice(t, conn, "MANUAL-1")
	got, err = NextNumber(ctx, conn, SaleBook)
	if err != nil {
		t.Fatal(err)
	}
	if got != "SI-000008" {
		t.Fatalf("got %q, want SI-000008", got)
	}

	got, err = NextNumber(ctx, conn, PurchaseBook)
	if err != nil {
		t.Fatal(err)
	}
	if got != "PI-000001" {
		t.Fatalf("purchase book: got %q", got)
	}

	// Numbering continues past six digits, and a manual number that only
	// shares the prefix does not block it.
	seedInvoice(t, conn, "SI-999999")
	seedInvoice(t, conn, "SI-ABCDEFG")
	if got, _ = NextNumber(ctx, conn, SaleBook); got != "SI-1000000" {
		t.Fatalf("got %q, want SI-1000000", got)
	}
	seedInvoice(t, conn, "SI-1000000")
	if got, _ = NextNumber(ctx, conn, SaleBook); got != "SI-1000001" {
		t.Fatalf("got %q, want SI-1000001", got)
	}
}

func TestReplaceLines(t *testing.T) {
	conn := setupDB(t)
	inv := seedInvoice(t, conn, "SI-000001")

	first := []models.SaleInvoiceLine{{ItemID: "BC45187", Quantity: d("5"), Rate: d("10")}}
	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := ReplaceLines[models.SaleInvoiceLine](tx, SaleBook, inv.ID, first)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	second := []models.SaleInvoiceLine{
		{ItemID: "BC45187", Quantity: d("1"), Rate: d("4")},
		{ItemID: "BC45187", Weight: d("2.5"), Rate: d("2"), RateOn: models.RateOnWeight},
	}
	var total decimal.Decimal
	err = conn.Transaction(func(tx *gorm.DB) error {
		var err error
		total, err = ReplaceLines[models.SaleInvoiceLine](tx, SaleBook, inv.ID, second)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if !total.Equal(d("9")) {
		t.Fatalf("total = %s", total)
	}

	var reloaded models.SaleInvoice
	if err := conn.Preload("Lines").Take(&reloaded, inv.ID).Error; err != nil {
		t.Fatal(err)
	}
	if len(reloaded.Lines) != 2 {
		t.Fatalf("expected 2 lines after replacement, got %d", len(reloaded.Lines))
	}
	if !reloaded.TotalAmount.Equal(d("9")) {
		t.Fatalf("stored total = %s", reloaded.TotalAmount)
	}
}

func TestReplaceLinesRejectsUnknownItem(t *testing.T) {
	conn := setupDB(t)
	inv := seedInvoice(t, conn, "SI-000001")
	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := ReplaceLines[models.SaleInvoiceLine](tx, SaleBook, inv.ID, []models.SaleInvoiceLine{{ItemID: "NOPE", Quantity: d("1")}})
		return err
	})
	if err == nil {
		t.Fatal("expected foreign key failure")
	}
}
