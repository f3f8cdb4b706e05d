package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/naumangoraya/sos/httpx"
	"github.com/naumangoraya/sos/internal/export"
	"github.com/naumangoraya/sos/internal/models"
	"github.com/naumangoraya/sos/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var itemColumns = []Column{
	{JSON: "itemId", DB: "item_id", Kind: Text},
	{JSON: "description", DB: "description", Kind: Text},
	{JSON: "brand", DB: "brand", Kind: Text},
	{JSON: "sheetsPerPacket", DB: "sheets_per_packet", Kind: NullInt},
	{JSON: "width", DB: "width", Kind: NullDecimal},
	{JSON: "length", DB: "length", Kind: NullDecimal},
	{JSON: "grams", DB: "grams", Kind: NullInt},
	{JSON: "isConstant", DB: "is_constant", Kind: Boolean},
	{JSON: "type", DB: "type", Kind: NullText},
}

type TypeCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

type ItemStats struct {
	TotalItems     int64       `json:"totalItems"`
	ItemsWithStock int64       `json:"itemsWithStock"`
	TotalTypes     int64       `json:"totalTypes"`
	TypeBreakdown  []TypeCount `json:"typeBreakdown"`
}

// Items adds the type lookups to the item resource.
type Items struct {
	*Resource[models.Item, *models.Item]
	db *gorm.DB
}

func NewItems(db *gorm.DB) *Items {
	repo := repository.New[models.Item](db, repository.Schema{
		KeyColumn:  "item_id",
		NaturalKey: "item_id",
		Search:     []string{"item_id", "description", "brand", "type"},
		Filters: map[string]string{
			"itemId":      "item_id",
			"description": "description",
			"brand":       "brand",
			"type":        "type",
		},
		Dependents: []repository.Dependent{
			{Table: "sale_invoice_lines", Column: "item_id"},
			{Table: "purchase_invoice_lines", Column: "item_id"},
		},
	})
	h := &Items{db: db}
	h.Resource = &Resource[models.Item, *models.Item]{
		Repo:     repo,
		Name:     "Item",
		KeyLabel: "Item ID",
		InUse:    "Cannot delete item used in invoice lines",
		Columns:  itemColumns,
		PathKey:  "itemId",
		ParseKey: func(s string) (any, error) {
			s = strings.TrimSpace(s)
			if s == "" {
				return nil, errors.New("itemId is required")
			}
			return s, nil
		},
		Stats: h.stats,
		Sheet: "Items",
		Export: []export.Column[models.Item]{
			{Header: "Item ID", Value: func(i *models.Item) any { return i.ItemID }},
			{Header: "Description", Value: func(i *models.Item) any { return i.Description }},
			{Header: "Brand", Value: func(i *models.Item) any { return i.Brand }},
			{Header: "Type", Value: func(i *models.Item) any { return deref(i.Type) }},
			{Header: "Size", Value: func(i *models.Item) any { return i.Size() }},
			{Header: "Width", Value: func(i *models.Item) any { return nullFloat(i.Width) }},
			{Header: "Length", Value: func(i *models.Item) any { return nullFloat(i.Length) }},
			{Header: "Sheets/Packet", Value: func(i *models.Item) any { return derefInt(i.SheetsPerPacket) }},
			{Header: "Grams", Value: func(i *models.Item) any { return derefInt(i.Grams) }},
			{Header: "Constant", Value: func(i *models.Item) any { return i.IsConstant }},
		},
	}
	return h
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func derefInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func nullFloat(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.InexactFloat64()
}

func (h *Items) typeCounts(ctx context.Context) ([]TypeCount, error) {
	out := []TypeCount{}
	err := h.db.WithContext(ctx).Model(&models.Item{}).
		Select("type, COUNT(*) AS count").
		Where("type IS NOT NULL AND type <> ''").
		Group("type").
		Order("type ASC").
		Scan(&out).Error
	return out, err
}

func (h *Items) stats(ctx context.Context) (any, error) {
	var s ItemStats
	var err error
	if s.TotalItems, err = h.Repo.Count(ctx); err != nil {
		return nil, err
	}
	referenced := func(db *gorm.DB) *gorm.DB {
		return db.Where("item_id IN (?) OR item_id IN (?)",
			h.db.Table("sale_invoice_lines").Select("item_id"),
			h.db.Table("purchase_invoice_lines").Select("item_id"))
	}
	if s.ItemsWithStock, err = h.Repo.Count(ctx, referenced); err != nil {
		return nil, err
	}
	if s.TypeBreakdown, err = h.typeCounts(ctx); err != nil {
		return nil, err
	}
	s.TotalTypes = int64(len(s.TypeBreakdown))
	return s, nil
}

// Types lists the distinct item types with their item counts.
func (h *Items) Types(w http.ResponseWriter, r *http.Request) {
	types, err := h.typeCounts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, types, "")
}

// ByType lists the items of exactly one type.
func (h *Items) ByType(w http.ResponseWriter, r *http.Request) {
	items := []models.Item{}
	err := h.db.WithContext(r.Context()).
		Where("type = ?", r.PathValue("type")).
		Order("item_id ASC").
		Find(&items).Error
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, items, "")
}
