// Package handlers implements the JSON endpoints. Every master-data entity
// is served by the same generic Resource configured with its columns,
// messages and statistics; invoices and auth add their own endpoints.
package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/naumangoraya/sos/httpx"
	"github.com/naumangoraya/sos/internal/export"
	"github.com/naumangoraya/sos/internal/repository"
	"github.com/naumangoraya/sos/validation"
	"github.com/rs/zerolog/log"
)

// RefError reports a reference to a row that does not exist.
type RefError struct{ Message string }

func (e *RefError) Error() string { return e.Message }

// Resource serves list, get, create, update, delete, stats and export for
// one entity.
type Resource[T any, P repository.Model[T]] struct {
	Repo *repository.Repository[T, P]
	// Name is the singular display name, e.g. "Customer".
	Name string
	// KeyLabel names the natural key in duplicate errors, e.g. "Customer code".
	KeyLabel string
	// InUse is the message when dependents block a delete.
	InUse   string
	Columns []Column
	// PathKey is the path parameter holding the key; ParseKey converts it.
	// Without ParseKey the key is a numeric id.
	PathKey  string
	ParseKey func(string) (any, error)

	Stats  func(ctx context.Context) (any, error)
	Sheet  string
	Export []export.Column[T]

	// Prepare runs after decoding a create body and before the insert.
	Prepare func(ctx context.Context, f validation.Fields, rec P) error
	// Insert replaces the plain repository insert.
	Insert func(ctx context.Context, rec P) error
	// Modify replaces the plain repository update.
	Modify func(ctx context.Context, key any, f validation.Fields, patch map[string]any) (P, error)
}

func (h *Resource[T, P]) key(r *http.Request) (any, error) {
	name := h.PathKey
	if name == "" {
		name = "id"
	}
	raw := r.PathValue(name)
	if h.ParseKey != nil {
		return h.ParseKey(raw)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, fmt.Errorf("invalid %s %q", name, raw)
	}
	return uint(id), nil
}

// listQuery reads the validated paging parameters.
func listQuery(r *http.Request) repository.ListQuery {
	q := validation.QueryFrom(r.Context())
	page, _ := q["page"].(int)
	limit, _ := q["limit"].(int)
	return repository.ListQuery{
		Page:   page,
		Limit:  limit,
		Search: q.String("search"),
		Filter: q.String("filter"),
	}
}

func (h *Resource[T, P]) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.Repo.List(r.Context(), listQuery(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, page, "")
}

func (h *Resource[T, P]) Get(w http.ResponseWriter, r *http.Request) {
	key, err := h.key(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := h.Repo.Get(r.Context(), key)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, rec, "")
}

func (h *Resource[T, P]) Create(w http.ResponseWriter, r *http.Request) {
	f := validation.FieldsFrom(r.Context())
	rec := P(new(T))
	if err := Decode(f, h.Columns, rec); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.Prepare != nil {
		if err := h.Prepare(r.Context(), f, rec); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	insert := h.Repo.Create
	if h.Insert != nil {
		insert = h.Insert
	}
	if err := insert(r.Context(), rec); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Created(w, rec, h.Name+" created successfully")
}

func (h *Resource[T, P]) Update(w http.ResponseWriter, r *http.Request) {
	key, err := h.key(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	f := validation.FieldsFrom(r.Context())
	patch, err := Patch(f, h.Columns)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	var rec P
	if h.Modify != nil {
		rec, err = h.Modify(r.Context(), key, f, patch)
	} else {
		rec, err = h.Repo.Update(r.Context(), key, patch)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, rec, h.Name+" updated successfully")
}

func (h *Resource[T, P]) Delete(w http.ResponseWriter, r *http.Request) {
	key, err := h.key(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Repo.Delete(r.Context(), key); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, nil, h.Name+" deleted successfully")
}

func (h *Resource[T, P]) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, stats, "")
}

// ExportHandler streams every matching row as an XLSX workbook.
func (h *Resource[T, P]) ExportHandler(w http.ResponseWriter, r *http.Request) {
	q := listQuery(r)
	rows, err := h.Repo.All(r.Context(), q.Search, q.Filter, export.MaxRows)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, h.Sheet, h.Export, rows); err != nil {
		h.fail(w, r, err)
		return
	}
	name := fmt.Sprintf("%s-%s.xlsx", h.Sheet, time.Now().Format("20060102"))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// fail maps repository errors onto the envelope; anything unexpected is
// logged and reported as a 500.
func (h *Resource[T, P]) fail(w http.ResponseWriter, r *http.Request, err error) {
	var ref *RefError
	switch {
	case errors.As(err, &ref):
		httpx.Fail(w, http.StatusBadRequest, ref.Message)
	case errors.Is(err, repository.ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, h.Name+" not found")
	case errors.Is(err, repository.ErrDuplicateKey):
		httpx.Fail(w, http.StatusBadRequest, h.KeyLabel+" already exists")
	case errors.Is(err, repository.ErrHasDependents):
		httpx.Fail(w, http.StatusBadRequest, h.InUse)
	case errors.Is(err, repository.ErrInvalidReference):
		httpx.Fail(w, http.StatusBadRequest, "Referenced record does not exist")
	default:
		log.Ctx(r.Context()).Error().Err(err).Str("entity", h.Name).Msg("request failed")
		httpx.InternalError(w)
	}
}
