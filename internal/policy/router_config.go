package policy

import (
	"context"

	"github.com/naumangoraya/sos/auth"
	"github.com/naumangoraya/sos/internal/config"
	"github.com/naumangoraya/sos/internal/handlers"
	"github.com/naumangoraya/sos/internal/models"
	"gorm.io/gorm"
)

// RouterConfig holds the configured handlers and guards of the application.
type RouterConfig struct {
	AuthGate *AuthGate
	Tokens   *auth.Authenticator

	AuthHandler *handlers.AuthHandler

	Customers        *handlers.Resource[models.Customer, *models.Customer]
	Suppliers        *handlers.Resource[models.Supplier, *models.Supplier]
	Items            *handlers.Items
	Stores           *handlers.Resource[models.Store, *models.Store]
	SaleInvoices     *handlers.Invoices[models.SaleInvoice, models.SaleInvoiceLine, *models.SaleInvoice, *models.SaleInvoiceLine]
	PurchaseInvoices *handlers.Invoices[models.PurchaseInvoice, models.PurchaseInvoiceLine, *models.PurchaseInvoice, *models.PurchaseInvoiceLine]
}

// NewRouterConfig wires the gate, the token authenticator and every handler
// around one database handle.
func NewRouterConfig(db *gorm.DB, cfg config.AuthConfig) *RouterConfig {
	authGate := NewAuthGate(db, cfg.CacheTTL)

	// The verifier needs the auth handler and the handler needs the
	// authenticator, so the verifier is bound late.
	var authHandler *handlers.AuthHandler
	tokens := auth.New(cfg.JWTSecret, cfg.TokenTTL, func(ctx context.Context, uid uint) bool {
		return authHandler.Verify(ctx, uid)
	})
	authHandler = handlers.NewAuthHandler(db, tokens, authGate)

	return &RouterConfig{
		AuthGate:         authGate,
		Tokens:           tokens,
		AuthHandler:      authHandler,
		Customers:        handlers.NewCustomers(db),
		Suppliers:        handlers.NewSuppliers(db),
		Items:            handlers.NewItems(db),
		Stores:           handlers.NewStores(db),
		SaleInvoices:     handlers.NewSaleInvoices(db),
		PurchaseInvoices: handlers.NewPurchaseInvoices(db),
	}
}
