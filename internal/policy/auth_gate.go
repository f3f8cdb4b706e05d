package policy

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/naumangoraya/sos/auth"
	"github.com/naumangoraya/sos/gate"
	"github.com/naumangoraya/sos/httpx"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AuthGate is the central authorization point: a role-backed gate with a
// cached resolver.
type AuthGate struct {
	Gate          *gate.Gate[uint]
	CacheResolver *gate.CachedResolver[uint]
}

// NewAuthGate caches role lookups for cacheTTL.
func NewAuthGate(db *gorm.DB, cacheTTL time.Duration) *AuthGate {
	cached := gate.NewCachedResolver[uint](NewRoleResolver(db, DefaultRoles()), cacheTTL)
	return &AuthGate{Gate: gate.New[uint](cached), CacheResolver: cached}
}

// Authorize checks the acting user from ctx.
func (ag *AuthGate) Authorize(ctx context.Context, action gate.Action, resource string) error {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return gate.ErrUnauthorized
	}
	return ag.Gate.Authorize(ctx, userID, action, resource)
}

// IsAdmin reports whether the user's profile grants every permission.
func (ag *AuthGate) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	profile, err := ag.Gate.Profile(ctx, userID)
	if err != nil {
		return false, err
	}
	return profile != nil && profile.HasPermission(gate.PermissionSuperAdmin), nil
}

// Invalidate implements the handlers' cache invalidation hook.
func (ag *AuthGate) Invalidate(userID uint) {
	ag.CacheResolver.Invalidate(userID)
}

// RequirePermission answers 403 unless the acting user may perform action on resource.
func (ag *AuthGate) RequirePermission(resource string, action gate.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := ag.Authorize(r.Context(), action, resource)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, gate.ErrUnauthorized), errors.Is(err, gate.ErrNoProfile):
				httpx.Fail(w, http.StatusForbidden, "Insufficient permissions")
			default:
				log.Ctx(r.Context()).Error().Err(err).Str("resource", resource).Msg("permission lookup failed")
				httpx.InternalError(w)
			}
		})
	}
}

// RequireAdmin only lets superadmin profiles through.
func (ag *AuthGate) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				httpx.Fail(w, http.StatusUnauthorized, "Access token required")
				return
			}
			admin, err := ag.IsAdmin(r.Context(), userID)
			if err != nil {
				log.Ctx(r.Context()).Error().Err(err).Msg("profile lookup failed")
				httpx.InternalError(w)
				return
			}
			if !admin {
				httpx.Fail(w, http.StatusForbidden, "Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
