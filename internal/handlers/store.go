package handlers

import (
	"context"

	"github.com/naumangoraya/sos/internal/export"
	"github.com/naumangoraya/sos/internal/models"
	"github.com/naumangoraya/sos/internal/repository"
	"gorm.io/gorm"
)

var storeColumns = []Column{
	{JSON: "storeName", DB: "store_name", Kind: Text},
	{JSON: "description", DB: "description", Kind: Text},
	{JSON: "status", DB: "status", Kind: Text, SkipEmpty: true},
}

type StoreStats struct {
	TotalStores  int64 `json:"totalStores"`
	ActiveStores int64 `json:"activeStores"`
}

func NewStores(db *gorm.DB) *Resource[models.Store, *models.Store] {
	repo := repository.New[models.Store](db, repository.Schema{
		KeyColumn:  "id",
		NaturalKey: "store_name",
		Search:     []string{"store_name", "description"},
		Filters: map[string]string{
			"storeName":   "store_name",
			"description": "description",
		},
		Dependents: []repository.Dependent{
			{Table: "sale_invoices", Column: "store_id"},
			{Table: "purchase_invoices", Column: "store_id"},
		},
	})
	return &Resource[models.Store, *models.Store]{
		Repo:     repo,
		Name:     "Store",
		KeyLabel: "Store name",
		InUse:    "Cannot delete store with associated invoices",
		Columns:  storeColumns,
		Stats: func(ctx context.Context) (any, error) {
			var s StoreStats
			var err error
			if s.TotalStores, err = repo.Count(ctx); err != nil {
				return nil, err
			}
			active := func(db *gorm.DB) *gorm.DB { return db.Where("status = ?", models.StoreActive) }
			if s.ActiveStores, err = repo.Count(ctx, active); err != nil {
				return nil, err
			}
			return s, nil
		},
		Sheet: "Stores",
		Export: []export.Column[models.Store]{
			{Header: "Store Name", Value: func(s *models.Store) any { return s.StoreName }},
			{Header: "Description", Value: func(s *models.Store) any { return s.Description }},
			{Header: "Status", Value: func(s *models.Store) any { return s.Status }},
		},
	}
}
