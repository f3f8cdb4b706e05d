package main

import (
	"net/http"
	"time"

	"github.com/naumangoraya/sos/gate"
	"github.com/naumangoraya/sos/httpx"
	"github.com/naumangoraya/sos/internal/db"
	"github.com/naumangoraya/sos/internal/logger"
	"github.com/naumangoraya/sos/internal/middleware"
	"github.com/naumangoraya/sos/internal/policy"
	"github.com/naumangoraya/sos/validation"
	"gorm.io/gorm"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux       *http.ServeMux
	db        *gorm.DB
	routerCfg *policy.RouterConfig
	metrics   *middleware.Metrics
	handler   http.Handler
}

// crud is the handler set every back-office resource exposes.
type crud interface {
	List(http.ResponseWriter, *http.Request)
	Get(http.ResponseWriter, *http.Request)
	Create(http.ResponseWriter, *http.Request)
	Update(http.ResponseWriter, *http.Request)
	Delete(http.ResponseWriter, *http.Request)
	StatsHandler(http.ResponseWriter, *http.Request)
	ExportHandler(http.ResponseWriter, *http.Request)
}

var resourcePaths = []string{
	"customers", "suppliers", "items", "stores",
	"sale-invoices", "purchase-invoices", "auth",
}

// NewApp creates a new application with all routes configured. Metrics
// are collected and served only when withMetrics is set.
func NewApp(db *gorm.DB, routerCfg *policy.RouterConfig, withMetrics bool) *App {
	app := &App{
		mux:       http.NewServeMux(),
		db:        db,
		routerCfg: routerCfg,
	}
	if withMetrics {
		app.metrics = middleware.NewMetrics(resourcePaths...)
	}
	app.setupRoutes()

	mws := []func(http.Handler) http.Handler{middleware.RequestID}
	if app.metrics != nil {
		mws = append(mws, app.metrics.Middleware)
	}
	mws = append(mws, middleware.Logging, middleware.Recover, routerCfg.Tokens.Middleware)
	app.handler = middleware.Chain(app.mux, mws...)
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Operational routes
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /health", a.health)
	a.mux.HandleFunc("GET /healthz", a.healthz)
	if a.metrics != nil {
		a.mux.Handle("GET /metrics", a.metrics.Handler())
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Auth routes
	// ─────────────────────────────────────────────────────────────────────────
	ah := a.routerCfg.AuthHandler

	a.mux.Handle("POST /api/auth/login",
		validation.Body(validation.Login, validation.Full)(http.HandlerFunc(ah.Login)))
	// Public; an admin token on the request allows the admin role.
	a.mux.Handle("POST /api/auth/register",
		validation.Body(validation.Register, validation.Full)(http.HandlerFunc(ah.Register)))
	a.mux.Handle("GET /api/auth/profile",
		a.requireAuth(http.HandlerFunc(ah.Profile)))
	a.mux.Handle("PUT /api/auth/profile",
		a.requireAuth(validation.Body(validation.ProfileUpdate, validation.Partial)(http.HandlerFunc(ah.UpdateProfile))))

	// ─────────────────────────────────────────────────────────────────────────
	// Admin routes
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.Handle("GET /api/auth/users",
		a.requireAuth(a.requireAdmin(http.HandlerFunc(ah.Users))))
	a.mux.Handle("PUT /api/auth/users/{id}/status",
		a.requireAuth(a.requireAdmin(validation.PathID("id")(
			validation.Body(validation.UserStatus, validation.Full)(http.HandlerFunc(ah.UpdateUserStatus))))))

	// ─────────────────────────────────────────────────────────────────────────
	// Protected resource routes (require auth + specific permissions)
	// ─────────────────────────────────────────────────────────────────────────
	rc := a.routerCfg

	a.mountResource("/api/customers", policy.ResourceCustomer, rc.Customers, "id", validation.Customer)
	a.mountResource("/api/suppliers", policy.ResourceSupplier, rc.Suppliers, "id", validation.Supplier)
	a.mountResource("/api/stores", policy.ResourceStore, rc.Stores, "id", validation.Store)

	// Item types are registered next to /api/items/{itemId}; the literal
	// segments win over the wildcard.
	items := rc.Items
	a.mux.Handle("GET /api/items/types",
		a.requireAuth(a.requirePermission(policy.ResourceItem, gate.ActionList)(http.HandlerFunc(items.Types))))
	a.mux.Handle("GET /api/items/types/{type}",
		a.requireAuth(a.requirePermission(policy.ResourceItem, gate.ActionList)(http.HandlerFunc(items.ByType))))
	a.mountResource("/api/items", policy.ResourceItem, items, "itemId", validation.Item)

	si := rc.SaleInvoices
	a.mux.Handle("GET /api/sale-invoices/next-number",
		a.requireAuth(a.requirePermission(policy.ResourceSaleInvoice, gate.ActionCreate)(http.HandlerFunc(si.NextNumber))))
	a.mux.Handle("PUT /api/sale-invoices/{id}/lines",
		a.requireAuth(a.requirePermission(policy.ResourceSaleInvoice, gate.ActionUpdate)(validation.PathID("id")(
			validation.Body(validation.InvoiceLines, validation.Full)(http.HandlerFunc(si.ReplaceLines))))))
	a.mountResource("/api/sale-invoices", policy.ResourceSaleInvoice, si, "id", validation.SaleInvoice)

	pi := rc.PurchaseInvoices
	a.mux.Handle("GET /api/purchase-invoices/next-number",
		a.requireAuth(a.requirePermission(policy.ResourcePurchaseInvoice, gate.ActionCreate)(http.HandlerFunc(pi.NextNumber))))
	a.mux.Handle("PUT /api/purchase-invoices/{id}/lines",
		a.requireAuth(a.requirePermission(policy.ResourcePurchaseInvoice, gate.ActionUpdate)(validation.PathID("id")(
			validation.Body(validation.InvoiceLines, validation.Full)(http.HandlerFunc(pi.ReplaceLines))))))
	a.mountResource("/api/purchase-invoices", policy.ResourcePurchaseInvoice, pi, "id", validation.PurchaseInvoice)
}

// mountResource registers list, stats, export, get, create, update and
// delete under prefix. Numeric keys named "id" are validated before the
// handler runs.
func (a *App) mountResource(prefix, resource string, h crud, key string, body validation.Schema) {
	guard := func(action gate.Action, next http.Handler) http.Handler {
		return a.requireAuth(a.requirePermission(resource, action)(next))
	}
	withKey := func(next http.Handler) http.Handler {
		if key == "id" {
			return validation.PathID(key)(next)
		}
		return next
	}
	item := prefix + "/{" + key + "}"

	a.mux.Handle("GET "+prefix,
		guard(gate.ActionList, validation.Query(validation.Search)(http.HandlerFunc(h.List))))
	a.mux.Handle("GET "+prefix+"/stats",
		guard(gate.ActionList, http.HandlerFunc(h.StatsHandler)))
	a.mux.Handle("GET "+prefix+"/export",
		guard(gate.ActionExport, validation.Query(validation.Search)(http.HandlerFunc(h.ExportHandler))))
	a.mux.Handle("GET "+item,
		guard(gate.ActionView, withKey(http.HandlerFunc(h.Get))))
	a.mux.Handle("POST "+prefix,
		guard(gate.ActionCreate, validation.Body(body, validation.Full)(http.HandlerFunc(h.Create))))
	a.mux.Handle("PUT "+item,
		guard(gate.ActionUpdate, withKey(validation.Body(body, validation.Partial)(http.HandlerFunc(h.Update)))))
	a.mux.Handle("DELETE "+item,
		guard(gate.ActionDelete, withKey(http.HandlerFunc(h.Delete))))
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

// requireAuth wraps a handler to require a valid bearer token of an active user.
func (a *App) requireAuth(next http.Handler) http.Handler {
	return a.routerCfg.Tokens.RequireAuth(next)
}

// requireAdmin wraps a handler to require the admin profile.
func (a *App) requireAdmin(next http.Handler) http.Handler {
	return a.routerCfg.AuthGate.RequireAdmin()(next)
}

// requirePermission wraps a handler to require specific resource permission.
func (a *App) requirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return a.routerCfg.AuthGate.RequirePermission(resourceType, action)
}

// ─────────────────────────────────────────────────────────────────────────────
// Operational handlers
// ─────────────────────────────────────────────────────────────────────────────

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	httpx.OK(w, map[string]any{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, "SOS back office is running")
}

// healthz also checks the database.
func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	if err := db.Ping(r.Context(), a.db); err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Msg("database ping failed")
		httpx.Fail(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}
	httpx.OK(w, map[string]any{"status": "OK", "database": "up"}, "")
}
