package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/naumangoraya/sos/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

var storeSchema = Schema{
	KeyColumn:  "id",
	NaturalKey: "store_name",
	Search:     []string{"store_name", "description"},
	Filters:    map[string]string{"description": "description"},
	Dependents: []Dependent{{Table: "sale_invoices", Column: "store_id"}},
}

func TestCreateRejectsDuplicateKey(t *testing.T) {
	db := setupDB(t)
	repo := New[models.Store](db, storeSchema)
	ctx := context.Background()

	if err := repo.Create(ctx, &models.Store{StoreName: "Depot"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, &models.Store{StoreName: "Depot"}); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if _, err := repo.Get(ctx, uint(99)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	db := setupDB(t)
	repo := New[models.Store](db, storeSchema)
	ctx := context.Background()

	a := &models.Store{StoreName: "A", Description: "first"}
	b := &models.Store{StoreName: "B"}
	for _, s := range []*models.Store{a, b} {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := repo.Update(ctx, a.ID, map[string]any{})
	if err != nil || got.StoreName != "A" || got.Description != "first" {
		t.Fatalf("empty patch: %+v, %v", got, err)
	}
	if _, err := repo.Update(ctx, a.ID, map[string]any{"store_name": "B"}); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	// Keeping its own key is not a conflict.
	got, err = repo.Update(ctx, a.ID, map[string]any{"store_name": "A", "description": ""})
	if err != nil || got.Description != "" {
		t.Fatalf("self key: %+v, %v", got, err)
	}
	if _, err := repo.Update(ctx, uint(42), map[string]any{"description": "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateNaturalPrimaryKey(t *testing.T) {
	db := setupDB(t)
	repo := New[models.Item](db, Schema{KeyColumn: "item_id", NaturalKey: "item_id"})
	ctx := context.Background()

	if err := repo.Create(ctx, &models.Item{ItemID: "OLD"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := repo.Update(ctx, "OLD", map[string]any{"item_id": "NEW", "brand": "Acme"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.ItemID != "NEW" || got.Brand != "Acme" {
		t.Fatalf("got %+v", got)
	}
}

func TestDeleteDependentsAndOwnedRows(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	stores := New[models.Store](db, storeSchema)
	invoices := New[models.SaleInvoice](db, Schema{
		KeyColumn:  "id",
		NaturalKey: "invoice_number",
		Owned:      []Dependent{{Table: "sale_invoice_lines", Column: "sale_invoice_id"}},
	})

	store := &models.Store{StoreName: "Depot"}
	customer := &models.Customer{Code: "C1"}
	item := &models.Item{ItemID: "I1"}
	for _, rec := range []any{store, customer, item} {
		if err := db.Create(rec).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	inv := &models.SaleInvoice{
		InvoiceNumber: "SI-000001",
		InvoiceDate:   time.Now(),
		CustomerID:    customer.ID,
		StoreID:       store.ID,
		Lines:         []models.SaleInvoiceLine{{ItemID: "I1"}, {ItemID: "I1"}},
	}
	if err := invoices.Create(ctx, inv); err != nil {
		t.Fatalf("create invoice: %v", err)
	}

	if err := stores.Delete(ctx, store.ID); !errors.Is(err, ErrHasDependents) {
		t.Fatalf("expected ErrHasDependents, got %v", err)
	}
	if err := invoices.Delete(ctx, inv.ID); err != nil {
		t.Fatalf("delete invoice: %v", err)
	}
	var lines int64
	db.Model(&models.SaleInvoiceLine{}).Count(&lines)
	if lines != 0 {
		t.Fatalf("expected owned lines to be deleted, %d left", lines)
	}
	if err := stores.Delete(ctx, store.ID); err != nil {
		t.Fatalf("delete store: %v", err)
	}
	if err := stores.Delete(ctx, store.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListSearchAndPaging(t *testing.T) {
	db := setupDB(t)
	repo := New[models.Store](db, storeSchema)
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		desc := "regular"
		if i%4 == 0 {
			desc = "50% off"
		}
		if err := repo.Create(ctx, &models.Store{StoreName: fmt.Sprintf("Store %02d", i), Description: desc}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	tests := []struct {
		name  string
		q     ListQuery
		items int
		total int64
		first string
	}{
		{"defaults", ListQuery{}, 10, 12, "Store 01"},
		{"second page", ListQuery{Page: 2, Limit: 5}, 5, 12, "Store 06"},
		{"past the end", ListQuery{Page: 9, Limit: 5}, 0, 12, ""},
		{"case insensitive", ListQuery{Search: "STORE 1"}, 3, 3, "Store 10"},
		{"percent is literal", ListQuery{Search: "50%"}, 3, 3, "Store 04"},
		{"filter column", ListQuery{Search: "store", Filter: "description"}, 0, 0, ""},
		{"limit clamped", ListQuery{Limit: 1000}, 12, 12, "Store 01"},
		{"page clamped", ListQuery{Page: math.MaxInt/4 + 1, Limit: 4}, 0, 12, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := repo.List(ctx, tt.q)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(page.Items) != tt.items || page.Pagination.Total != tt.total {
				t.Fatalf("items=%d total=%d", len(page.Items), page.Pagination.Total)
			}
			if tt.first != "" && page.Items[0].StoreName != tt.first {
				t.Fatalf("first = %q", page.Items[0].StoreName)
			}
		})
	}

	all, err := repo.All(ctx, "off", "description", 2)
	if err != nil || len(all) != 2 {
		t.Fatalf("All: %d, %v", len(all), err)
	}
}

func TestNormalizeBoundsOffset(t *testing.T) {
	q := ListQuery{Page: math.MaxInt, Limit: MaxLimit}.Normalize()
	if q.Page != MaxPage || q.Offset() < 0 || q.Offset() > math.MaxInt32 {
		t.Fatalf("page=%d offset=%d", q.Page, q.Offset())
	}
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		total int64
		limit int
		pages int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 10, 3},
	}
	for _, tt := range tests {
		if got := NewPagination(1, tt.limit, tt.total).Pages; got != tt.pages {
			t.Errorf("pages(%d/%d) = %d, want %d", tt.total, tt.limit, got, tt.pages)
		}
	}
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"not found", gorm.ErrRecordNotFound, ErrNotFound},
		{"gorm duplicate", gorm.ErrDuplicatedKey, ErrDuplicateKey},
		{"gorm foreign key", gorm.ErrForeignKeyViolated, ErrInvalidReference},
		{"pg unique", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), ErrDuplicateKey},
		{"pg foreign key", &pgconn.PgError{Code: "23503"}, ErrInvalidReference},
		{"sqlite unique", errors.New("UNIQUE constraint failed: stores.store_name"), ErrDuplicateKey},
		{"sqlite foreign key", errors.New("FOREIGN KEY constraint failed"), ErrInvalidReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := translate(tt.in); !errors.Is(got, tt.want) {
				t.Errorf("translate(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
	other := errors.New("boom")
	if translate(other) != other || translate(nil) != nil {
		t.Errorf("unrelated errors must pass through")
	}
}
