package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/naumangoraya/sos/httpx"
	"github.com/naumangoraya/sos/internal/export"
	"github.com/naumangoraya/sos/internal/models"
	"github.com/naumangoraya/sos/internal/repository"
	"github.com/naumangoraya/sos/internal/services"
	"github.com/naumangoraya/sos/validation"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// numberAttempts bounds auto-numbering retries after a lost race.
const numberAttempts = 3

type invoiceModel[T, L any] interface {
	repository.Model[T]
	SetInvoiceNumber(string)
	InvoiceLines() []L
	SetTotal(decimal.Decimal)
	Parties() (partyID, storeID uint)
}

// counterpart is the party side of an invoice: the customer of a sale or
// the supplier of a purchase.
type counterpart struct {
	Table    string
	Label    string
	Field    string
	Column   string
	Relation string
}

var lineColumns = []Column{
	{JSON: "itemId", DB: "item_id", Kind: Text},
	{JSON: "quantity", DB: "quantity", Kind: Decimal},
	{JSON: "weight", DB: "weight", Kind: Decimal},
	{JSON: "rate", DB: "rate", Kind: Decimal},
	{JSON: "rateOn", DB: "rate_on", Kind: Text, SkipEmpty: true},
	{JSON: "value", DB: "value", Kind: Decimal},
	{JSON: "remarks", DB: "remarks", Kind: Text},
}

func invoiceColumns(party counterpart, extra ...Column) []Column {
	cols := []Column{
		{JSON: "invoiceNumber", DB: "invoice_number", Kind: Text, SkipEmpty: true},
		{JSON: "invoiceDate", DB: "invoice_date", Kind: Date},
		{JSON: party.Field, DB: party.Column, Kind: ID},
		{JSON: "storeId", DB: "store_id", Kind: ID},
		{JSON: "referenceNumber", DB: "reference_number", Kind: Text},
		{JSON: "totalAmount", DB: "total_amount", Kind: Decimal},
		{JSON: "status", DB: "status", Kind: Text, SkipEmpty: true},
		{JSON: "remarks", DB: "remarks", Kind: Text},
	}
	return append(cols, extra...)
}

type InvoiceStats struct {
	TotalInvoices int64            `json:"totalInvoices"`
	ThisYear      int64            `json:"thisYear"`
	ByStatus      map[string]int64 `json:"byStatus"`
	TotalAmount   decimal.Decimal  `json:"totalAmount"`
}

// Invoices serves one invoice register: the generic resource endpoints
// plus numbering and line replacement.
type Invoices[T, L any, P invoiceModel[T, L], PL services.Line[L]] struct {
	*Resource[T, P]
	db    *gorm.DB
	book  services.Book
	party counterpart
}

func NewSaleInvoices(db *gorm.DB) *Invoices[models.SaleInvoice, models.SaleInvoiceLine, *models.SaleInvoice, *models.SaleInvoiceLine] {
	party := counterpart{
		Table:    "customers",
		Label:    "Customer",
		Field:    "customerId",
		Column:   "customer_id",
		Relation: "Customer",
	}
	cols := invoiceColumns(party, Column{JSON: "paymentType", DB: "payment_type", Kind: Text, SkipEmpty: true})
	return newInvoices[models.SaleInvoice, models.SaleInvoiceLine](db, "Sale invoice", "SaleInvoices",
		services.SaleBook, party, cols, []export.Column[models.SaleInvoice]{
			{Header: "Invoice Number", Value: func(i *models.SaleInvoice) any { return i.InvoiceNumber }},
			{Header: "Date", Value: func(i *models.SaleInvoice) any { return i.InvoiceDate.Format(time.DateOnly) }},
			{Header: "Customer", Value: func(i *models.SaleInvoice) any {
				if i.Customer == nil {
					return nil
				}
				return i.Customer.Code + " " + i.Customer.Title
			}},
			{Header: "Store", Value: func(i *models.SaleInvoice) any { return storeName(i.Store) }},
			{Header: "Payment", Value: func(i *models.SaleInvoice) any { return i.PaymentType }},
			{Header: "Reference", Value: func(i *models.SaleInvoice) any { return i.ReferenceNumber }},
			{Header: "Status", Value: func(i *models.SaleInvoice) any { return i.Status }},
			{Header: "Total", Value: func(i *models.SaleInvoice) any { return i.TotalAmount.InexactFloat64() }},
		})
}

func NewPurchaseInvoices(db *gorm.DB) *Invoices[models.PurchaseInvoice, models.PurchaseInvoiceLine, *models.PurchaseInvoice, *models.PurchaseInvoiceLine] {
	party := counterpart{
		Table:    "suppliers",
		Label:    "Supplier",
		Field:    "supplierId",
		Column:   "supplier_id",
		Relation: "Supplier",
	}
	return newInvoices[models.PurchaseInvoice, models.PurchaseInvoiceLine](db, "Purchase invoice", "PurchaseInvoices",
		services.PurchaseBook, party, invoiceColumns(party), []export.Column[models.PurchaseInvoice]{
			{Header: "Invoice Number", Value: func(i *models.PurchaseInvoice) any { return i.InvoiceNumber }},
			{Header: "Date", Value: func(i *models.PurchaseInvoice) any { return i.InvoiceDate.Format(time.DateOnly) }},
			{Header: "Supplier", Value: func(i *models.PurchaseInvoice) any {
				if i.Supplier == nil {
					return nil
				}
				return i.Supplier.Code + " " + i.Supplier.Title
			}},
			{Header: "Store", Value: func(i *models.PurchaseInvoice) any { return storeName(i.Store) }},
			{Header: "Reference", Value: func(i *models.PurchaseInvoice) any { return i.ReferenceNumber }},
			{Header: "Status", Value: func(i *models.PurchaseInvoice) any { return i.Status }},
			{Header: "Total", Value: func(i *models.PurchaseInvoice) any { return i.TotalAmount.InexactFloat64() }},
		})
}

func storeName(s *models.Store) any {
	if s == nil {
		return nil
	}
	return s.StoreName
}

func newInvoices[T, L any, P invoiceModel[T, L], PL services.Line[L]](
	db *gorm.DB, name, sheet string, book services.Book, party counterpart, cols []Column, exp []export.Column[T],
) *Invoices[T, L, P, PL] {
	repo := repository.New[T, P](db, repository.Schema{
		KeyColumn:  "id",
		NaturalKey: "invoice_number",
		Search:     []string{"invoice_number", "reference_number", "remarks"},
		Filters: map[string]string{
			"invoiceNumber": "invoice_number",
			"status":        "status",
			"reference":     "reference_number",
		},
		Owned:   []repository.Dependent{{Table: book.LineTable, Column: book.LineFK}},
		Preload: []string{party.Relation, "Store"},
		Detail:  []string{"Lines", "Lines.Item"},
	})
	h := &Invoices[T, L, P, PL]{db: db, book: book, party: party}
	h.Resource = &Resource[T, P]{
		Repo:     repo,
		Name:     name,
		KeyLabel: "Invoice number",
		Columns:  cols,
		Stats:    h.stats,
		Sheet:    sheet,
		Export:   exp,
		Prepare:  h.prepare,
		Insert:   h.insert,
		Modify:   h.modify,
	}
	return h
}

// checkRefs reports the first referenced party, store or item that does
// not exist. Zero ids are not checked.
func (h *Invoices[T, L, P, PL]) checkRefs(tx *gorm.DB, partyID, storeID uint, items []string) error {
	if partyID != 0 {
		ok, err := repository.Exists(tx.Table(h.party.Table).Where("id = ?", partyID))
		if err != nil {
			return err
		}
		if !ok {
			return &RefError{Message: h.party.Label + " does not exist"}
		}
	}
	if storeID != 0 {
		ok, err := repository.Exists(tx.Table("stores").Where("id = ?", storeID))
		if err != nil {
			return err
		}
		if !ok {
			return &RefError{Message: "Store does not exist"}
		}
	}
	if len(items) > 0 {
		var found []string
		if err := tx.Model(&models.Item{}).Where("item_id IN ?", items).Pluck("item_id", &found).Error; err != nil {
			return err
		}
		known := make(map[string]bool, len(found))
		for _, id := range found {
			known[id] = true
		}
		for _, id := range items {
			if !known[id] {
				return &RefError{Message: "Item " + id + " does not exist"}
			}
		}
	}
	return nil
}

// prepare prices the lines, fills the total when none was sent and checks
// every reference.
func (h *Invoices[T, L, P, PL]) prepare(ctx context.Context, f validation.Fields, rec P) error {
	if err := DecodeLines(f, "lines", lineColumns, rec); err != nil {
		return &RefError{Message: err.Error()}
	}
	lines := rec.InvoiceLines()
	total := services.PriceLines[L, PL](lines)
	if blank(f["totalAmount"]) {
		rec.SetTotal(total)
	}
	partyID, storeID := rec.Parties()
	return h.checkRefs(h.db.WithContext(ctx), partyID, storeID, services.ItemKeys[L, PL](lines))
}

// insert assigns the next number when the client sent none, retrying when
// a concurrent insert took it first.
func (h *Invoices[T, L, P, PL]) insert(ctx context.Context, rec P) error {
	if rec.NaturalKey() != "" {
		return h.Repo.Create(ctx, rec)
	}
	var err error
	for attempt := 1; attempt <= numberAttempts; attempt++ {
		var number string
		if number, err = services.NextNumber(ctx, h.db, h.book); err != nil {
			return err
		}
		rec.SetInvoiceNumber(number)
		err = h.Repo.Create(ctx, rec)
		if !errors.Is(err, repository.ErrDuplicateKey) {
			return err
		}
		log.Ctx(ctx).Warn().Str("number", number).Int("attempt", attempt).Msg("invoice number taken, retrying")
	}
	return err
}

type lineSet[L any] struct {
	Lines []L `json:"lines"`
}

// modify applies a header patch and, when lines were sent, replaces them,
// all in one transaction.
func (h *Invoices[T, L, P, PL]) modify(ctx context.Context, key any, f validation.Fields, patch map[string]any) (P, error) {
	var set lineSet[L]
	replace := f.Has("lines")
	if replace {
		if err := DecodeLines(f, "lines", lineColumns, &set); err != nil {
			return nil, &RefError{Message: err.Error()}
		}
	}
	var out P
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		partyID, _ := patch[h.party.Column].(uint)
		storeID, _ := patch["store_id"].(uint)
		var items []string
		if replace {
			items = services.ItemKeys[L, PL](set.Lines)
		}
		if err := h.checkRefs(tx, partyID, storeID, items); err != nil {
			return err
		}
		repo := h.Repo.WithDB(tx)
		rec, err := repo.Update(ctx, key, patch)
		if err != nil {
			return err
		}
		if replace {
			id, _ := key.(uint)
			if _, err := services.ReplaceLines[L, PL](tx, h.book, id, set.Lines); err != nil {
				return translateLineErr(err)
			}
			if total, ok := patch["total_amount"]; ok {
				if err := tx.Table(h.book.Table).Where("id = ?", id).Update("total_amount", total).Error; err != nil {
					return err
				}
			}
			if rec, err = repo.Get(ctx, key); err != nil {
				return err
			}
		}
		out = rec
		return nil
	})
	return out, err
}

func translateLineErr(err error) error {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return repository.ErrInvalidReference
	}
	return err
}

// ReplaceLines swaps every line of the invoice and recomputes its total.
func (h *Invoices[T, L, P, PL]) ReplaceLines(w http.ResponseWriter, r *http.Request) {
	key, err := h.key(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	var set lineSet[L]
	if err := DecodeLines(validation.FieldsFrom(r.Context()), "lines", lineColumns, &set); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx := r.Context()
	var out P
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := h.Repo.WithDB(tx)
		if _, err := repo.Get(ctx, key); err != nil {
			return err
		}
		if err := h.checkRefs(tx, 0, 0, services.ItemKeys[L, PL](set.Lines)); err != nil {
			return err
		}
		id, _ := key.(uint)
		if _, err := services.ReplaceLines[L, PL](tx, h.book, id, set.Lines); err != nil {
			return translateLineErr(err)
		}
		rec, err := repo.Get(ctx, key)
		out = rec
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, out, "Invoice lines updated successfully")
}

// NextNumber previews the number the next auto-numbered invoice gets.
func (h *Invoices[T, L, P, PL]) NextNumber(w http.ResponseWriter, r *http.Request) {
	number, err := services.NextNumber(r.Context(), h.db, h.book)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, map[string]string{"invoiceNumber": number}, "")
}

func (h *Invoices[T, L, P, PL]) stats(ctx context.Context) (any, error) {
	s := InvoiceStats{ByStatus: map[string]int64{}}
	for _, st := range models.InvoiceStatuses {
		s.ByStatus[st] = 0
	}
	var err error
	if s.TotalInvoices, err = h.Repo.Count(ctx); err != nil {
		return nil, err
	}
	thisYear := func(db *gorm.DB) *gorm.DB {
		return db.Where("invoice_date >= ?", startOfYear(time.Now()))
	}
	if s.ThisYear, err = h.Repo.Count(ctx, thisYear); err != nil {
		return nil, err
	}
	var rows []struct {
		Status string
		Count  int64
	}
	err = h.db.WithContext(ctx).Table(h.book.Table).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		s.ByStatus[row.Status] = row.Count
	}
	err = h.db.WithContext(ctx).Table(h.book.Table).
		Where("status <> ?", models.InvoiceCancelled).
		Select("COALESCE(SUM(total_amount), 0)").
		Row().Scan(&s.TotalAmount)
	if err != nil {
		return nil, err
	}
	return s, nil
}
