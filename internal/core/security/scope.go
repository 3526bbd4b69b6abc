// Package security provides authorization and access control.
package security

import (
	"context"
	"fmt"

	"bartally/internal/core/apperror"
	appctx "bartally/internal/core/context"
)

// Permission defines available permissions in the system.
type Permission string

const (
	// CRUD permissions
	PermissionRead   Permission = "read"
	PermissionCreate Permission = "create"
	PermissionUpdate Permission = "update"
	PermissionDelete Permission = "delete"

	// Counting permissions
	PermissionCount    Permission = "count"
	PermissionOverride Permission = "override"
	PermissionApprove  Permission = "approve"

	// Period lifecycle permissions
	PermissionClose  Permission = "close"
	PermissionReopen Permission = "reopen"

	// Admin permissions
	PermissionAdmin Permission = "admin"
	PermissionAudit Permission = "audit"
)

// Role defines a set of permissions.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager" // F&B manager: close/reopen/override
	RoleSupervisor Role = "supervisor"
	RoleCounter    Role = "counter" // bar staff entering counts
	RoleViewer     Role = "viewer"
)

// AccessScope defines the boundaries of data visibility for current request.
// In Database-per-Tenant architecture this scope is used for authorization
// decisions (e.g. venue access) and for consistent logging/audit context.
type AccessScope struct {
	// TenantID is the current tenant (from request/JWT).
	TenantID string

	// UserID is the authenticated actor
	UserID string

	// IsAdmin bypasses venue filtering
	IsAdmin bool

	// AllowedVenueIDs limits access to specific venues
	// Empty = no access (unless IsAdmin)
	AllowedVenueIDs []string

	// Permissions available to user
	Permissions map[string][]Permission
}

// NewAccessScope creates AccessScope from context.
func NewAccessScope(ctx context.Context) *AccessScope {
	user := appctx.GetUser(ctx)
	if user == nil {
		return &AccessScope{}
	}

	return &AccessScope{
		TenantID:        user.TenantID,
		UserID:          user.UserID,
		IsAdmin:         user.IsAdmin,
		AllowedVenueIDs: user.VenueIDs,
	}
}

// CanAccessVenue checks if user can access a venue.
func (s *AccessScope) CanAccessVenue(venueID string) bool {
	if s.IsAdmin {
		return true
	}
	for _, id := range s.AllowedVenueIDs {
		if id == venueID {
			return true
		}
	}
	return false
}

// HasPermission checks if user has permission on entity.
func (s *AccessScope) HasPermission(entity string, perm Permission) bool {
	if s.IsAdmin {
		return true
	}
	if perms, ok := s.Permissions[entity]; ok {
		for _, p := range perms {
			if p == perm {
				return true
			}
		}
	}
	return false
}

// RequirePermission returns error if permission is missing.
func (s *AccessScope) RequirePermission(entity string, perm Permission) error {
	if !s.HasPermission(entity, perm) {
		return apperror.NewForbidden(
			fmt.Sprintf("permission %s on %s required", perm, entity),
		).WithDetail("entity", entity).WithDetail("permission", perm)
	}
	return nil
}

// FilterVenueIDs returns intersection of requested and allowed venue IDs.
// Used to safely filter queries by venue.
func (s *AccessScope) FilterVenueIDs(requestedVenues []string) []string {
	if s.IsAdmin {
		return requestedVenues
	}

	if len(requestedVenues) == 0 {
		return s.AllowedVenueIDs
	}

	allowed := make(map[string]bool, len(s.AllowedVenueIDs))
	for _, id := range s.AllowedVenueIDs {
		allowed[id] = true
	}

	var result []string
	for _, id := range requestedVenues {
		if allowed[id] {
			result = append(result, id)
		}
	}
	return result
}

// --- Context-based scope access ---

type scopeKey struct{}

// WithScope adds AccessScope to context.
func WithScope(ctx context.Context, scope *AccessScope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// GetScope returns AccessScope from context.
func GetScope(ctx context.Context) *AccessScope {
	if v, ok := ctx.Value(scopeKey{}).(*AccessScope); ok {
		return v
	}
	return NewAccessScope(ctx)
}
