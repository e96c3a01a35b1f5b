// Package auth turns the identity asserted by the upstream gateway into
// per-property allow/deny decisions.
package auth

import (
	"slices"

	"property_listings/internal/domain"
)

const (
	RoleAdmin  = "admin"  // every property, every action
	RoleEditor = "editor" // read and write on assigned properties
	RoleViewer = "viewer" // read on assigned properties
)

// RolePolicy grants by role and by the property ids carried on the identity.
type RolePolicy struct{}

func (RolePolicy) Allowed(who domain.Identity, propertyID string, action domain.Action) bool {
	if who.IsZero() {
		return false
	}
	if slices.Contains(who.Roles, RoleAdmin) {
		return true
	}
	if !slices.Contains(who.PropertyIDs, propertyID) {
		return false
	}
	switch action {
	case domain.ActionRead:
		return slices.Contains(who.Roles, RoleEditor) || slices.Contains(who.Roles, RoleViewer)
	case domain.ActionWrite:
		return slices.Contains(who.Roles, RoleEditor)
	default:
		return false
	}
}
