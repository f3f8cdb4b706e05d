package policy

import (
	"context"
	"errors"

	"github.com/naumangoraya/sos/gate"
	"github.com/naumangoraya/sos/internal/models"
	"gorm.io/gorm"
)

// Resource names used in permissions.
const (
	ResourceCustomer        = "customer"
	ResourceSupplier        = "supplier"
	ResourceItem            = "item"
	ResourceStore           = "store"
	ResourceSaleInvoice     = "sale_invoice"
	ResourcePurchaseInvoice = "purchase_invoice"
	ResourceUser            = "user"
)

// DefaultRoles grants admins everything and regular users full access to
// business data, but not to user administration.
func DefaultRoles() gate.Roles {
	return gate.Roles{
		models.RoleAdmin: gate.NewStaticProfile(models.RoleAdmin, gate.PermissionSuperAdmin),
		models.RoleUser: gate.NewStaticProfile(models.RoleUser,
			gate.NewPermission(ResourceCustomer, gate.Wildcard),
			gate.NewPermission(ResourceSupplier, gate.Wildcard),
			gate.NewPermission(ResourceItem, gate.Wildcard),
			gate.NewPermission(ResourceStore, gate.Wildcard),
			gate.NewPermission(ResourceSaleInvoice, gate.Wildcard),
			gate.NewPermission(ResourcePurchaseInvoice, gate.Wildcard),
		),
	}
}

// RoleResolver reads the user's role from the database. Inactive or
// missing users resolve to no profile.
type RoleResolver struct {
	DB    *gorm.DB
	Roles gate.Roles
}

func NewRoleResolver(db *gorm.DB, roles gate.Roles) *RoleResolver {
	return &RoleResolver{DB: db, Roles: roles}
}

func (r *RoleResolver) Resolve(ctx context.Context, userID uint) (gate.Profile, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Select("id", "role", "is_active").Take(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, nil
	}
	return r.Roles.Profile(user.Role), nil
}
