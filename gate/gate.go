// Package gate provides profile-based authorization: a user resolves to a
// profile and the profile grants "resource:action" permissions, with
// wildcards on either side. The package knows nothing about domain models.
//
// Gate is generic over the user type:
//   - Gate[uint] for user id based auth
//   - Gate[*User] for full user structs
package gate

import "context"

type Gate[U comparable] struct {
	resolver ProfileResolver[U]
}

func New[U comparable](resolver ProfileResolver[U]) *Gate[U] {
	return &Gate[U]{resolver: resolver}
}

// Authorize returns nil when the user's profile grants action on resource.
// A zero user is always rejected.
func (g *Gate[U]) Authorize(ctx context.Context, user U, action Action, resource string) error {
	var zero U
	if user == zero {
		return ErrUnauthorized
	}
	profile, err := g.resolver.Resolve(ctx, user)
	if err != nil {
		return err
	}
	if profile == nil {
		return ErrNoProfile
	}
	if !profile.HasPermission(NewPermission(resource, action)) {
		return ErrUnauthorized
	}
	return nil
}

// Profile resolves the user's profile without checking a permission.
func (g *Gate[U]) Profile(ctx context.Context, user U) (Profile, error) {
	return g.resolver.Resolve(ctx, user)
}
