// Package repository implements the list/get/create/update/delete pattern
// once, parameterised over the entity type. Every entity differs only in
// its Schema: key columns, searchable columns, filters and dependents.
package repository

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Model is satisfied by pointers to entity structs exposing their natural key.
type Model[T any] interface {
	*T
	NaturalKey() string
}

// Dependent names a child table whose rows block deletion of a parent.
type Dependent struct {
	Table  string
	Column string
}

// Schema describes one entity to the generic repository.
type Schema struct {
	// KeyColumn is the column path parameters are matched against.
	KeyColumn string
	// NaturalKey is the unique business key, also the listing order.
	NaturalKey string
	// Search is the OR set used when no named filter applies.
	Search []string
	// Filters maps a filter selector to a single column.
	Filters    map[string]string
	Dependents []Dependent
	// Owned rows are deleted together with their parent.
	Owned []Dependent
	// Preload is applied to listings; Detail additionally to single reads.
	Preload []string
	Detail  []string
}

type Repository[T any, P Model[T]] struct {
	db     *gorm.DB
	schema Schema
}

func New[T any, P Model[T]](db *gorm.DB, schema Schema) *Repository[T, P] {
	return &Repository[T, P]{db: db, schema: schema}
}

// WithDB returns a copy bound to db, typically a transaction.
func (r *Repository[T, P]) WithDB(db *gorm.DB) *Repository[T, P] {
	return &Repository[T, P]{db: db, schema: r.schema}
}

// Matching returns the search predicate for a term and filter selector.
// An unknown selector falls back to the full OR set.
func (r *Repository[T, P]) Matching(search, filter string) func(*gorm.DB) *gorm.DB {
	columns := r.schema.Search
	if col, ok := r.schema.Filters[filter]; ok {
		columns = []string{col}
	}
	return contains(columns, search)
}

func (r *Repository[T, P]) preload(names []string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, n := range names {
			db = db.Preload(n)
		}
		return db
	}
}

// List returns one page of matching rows ordered by natural key, plus the
// total count of the same predicate. Count and fetch run concurrently.
func (r *Repository[T, P]) List(ctx context.Context, q ListQuery) (*Page[T], error) {
	q = q.Normalize()
	match := r.Matching(q.Search, q.Filter)

	var total int64
	items := make([]T, 0, q.Limit)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.db.WithContext(gctx).Model(new(T)).Scopes(match).Count(&total).Error
	})
	g.Go(func() error {
		return r.db.WithContext(gctx).
			Scopes(match, r.preload(r.schema.Preload)).
			Order(r.schema.NaturalKey + " ASC").
			Offset(q.Offset()).
			Limit(q.Limit).
			Find(&items).Error
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return &Page[T]{Items: items, Pagination: NewPagination(q.Page, q.Limit, total)}, nil
}

// All returns every matching row ordered by natural key, up to max rows.
func (r *Repository[T, P]) All(ctx context.Context, search, filter string, max int) ([]T, error) {
	var rows []T
	err := r.db.WithContext(ctx).
		Scopes(r.Matching(search, filter), r.preload(r.schema.Preload)).
		Order(r.schema.NaturalKey + " ASC").
		Limit(max).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list all: %w", err)
	}
	return rows, nil
}

func (r *Repository[T, P]) Get(ctx context.Context, key any) (P, error) {
	rec := P(new(T))
	err := r.db.WithContext(ctx).
		Scopes(r.preload(r.schema.Preload), r.preload(r.schema.Detail)).
		Where(r.schema.KeyColumn+" = ?", key).
		Take(rec).Error
	if err != nil {
		return nil, translate(err)
	}
	return rec, nil
}

// Create inserts rec unless its natural key is taken. The check and the
// insert share a transaction; the unique index settles races between them.
func (r *Repository[T, P]) Create(ctx context.Context, rec P) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := r.keyTaken(tx, rec.NaturalKey(), nil)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateKey
		}
		return translate(tx.Create(rec).Error)
	})
}

// Update applies a sparse column patch to the row identified by key and
// returns the reloaded row. Only columns present in patch are written; an
// empty patch leaves the row untouched.
func (r *Repository[T, P]) Update(ctx context.Context, key any, patch map[string]any) (P, error) {
	var out P
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur := P(new(T))
		if err := tx.Where(r.schema.KeyColumn+" = ?", key).Take(cur).Error; err != nil {
			return translate(err)
		}
		reloadKey := key
		if v, ok := patch[r.schema.NaturalKey]; ok {
			next := fmt.Sprint(v)
			if next != cur.NaturalKey() {
				taken, err := r.keyTaken(tx, next, key)
				if err != nil {
					return err
				}
				if taken {
					return ErrDuplicateKey
				}
				if r.schema.NaturalKey == r.schema.KeyColumn {
					reloadKey = next
				}
			}
		}
		if len(patch) > 0 {
			if err := tx.Model(cur).Updates(patch).Error; err != nil {
				return translate(err)
			}
		}
		rec := P(new(T))
		err := tx.Scopes(r.preload(r.schema.Preload), r.preload(r.schema.Detail)).
			Where(r.schema.KeyColumn+" = ?", reloadKey).
			Take(rec).Error
		if err != nil {
			return translate(err)
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the row identified by key, and its owned rows, unless a
// dependent table still references it. Each dependent is checked for a
// single row only.
func (r *Repository[T, P]) Delete(ctx context.Context, key any) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur := P(new(T))
		if err := tx.Where(r.schema.KeyColumn+" = ?", key).Take(cur).Error; err != nil {
			return translate(err)
		}
		for _, d := range r.schema.Dependents {
			found, err := Exists(tx.Table(d.Table).Where(d.Column+" = ?", key))
			if err != nil {
				return fmt.Errorf("check %s: %w", d.Table, err)
			}
			if found {
				return ErrHasDependents
			}
		}
		for _, o := range r.schema.Owned {
			if err := tx.Exec("DELETE FROM "+o.Table+" WHERE "+o.Column+" = ?", key).Error; err != nil {
				return fmt.Errorf("delete %s: %w", o.Table, err)
			}
		}
		err := translate(tx.Where(r.schema.KeyColumn+" = ?", key).Delete(new(T)).Error)
		if errors.Is(err, ErrInvalidReference) {
			return ErrHasDependents
		}
		return err
	})
}

// Count counts rows of the entity narrowed by the given scopes.
func (r *Repository[T, P]) Count(ctx context.Context, scopes ...func(*gorm.DB) *gorm.DB) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(new(T)).Scopes(scopes...).Count(&n).Error
	return n, err
}

func (r *Repository[T, P]) keyTaken(tx *gorm.DB, value string, except any) (bool, error) {
	q := tx.Model(new(T)).Where(r.schema.NaturalKey+" = ?", value)
	if except != nil {
		q = q.Where(r.schema.KeyColumn+" <> ?", except)
	}
	found, err := Exists(q)
	if err != nil {
		return false, fmt.Errorf("uniqueness check: %w", err)
	}
	return found, nil
}

// Exists reports whether the query matches at least one row, reading one row at most.
func Exists(q *gorm.DB) (bool, error) {
	var hit int
	res := q.Select("1").Limit(1).Scan(&hit)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
