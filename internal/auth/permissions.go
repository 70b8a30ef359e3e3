package auth

import "sort"

// Permission is a single capability checked by the API.
type Permission string

const (
	PermApplicationsRead   Permission = "applications:read"
	PermApplicationsReview Permission = "applications:review"
	PermApplicationsDelete Permission = "applications:delete"
	PermLeadsRead          Permission = "leads:read"
	PermLeadsWrite         Permission = "leads:write"
	PermLeadsAssign        Permission = "leads:assign"
	PermLeadsDelete        Permission = "leads:delete"
	PermPropertiesRead     Permission = "properties:read"
	PermPropertiesWrite    Permission = "properties:write"
	PermPropertiesReview   Permission = "properties:review"
	PermPropertiesDelete   Permission = "properties:delete"
	PermAuditRead          Permission = "audit:read"
	PermRolesManage        Permission = "roles:manage"
)

// AllPermissions is the static permission list shown in the role editor.
var AllPermissions = []Permission{
	PermApplicationsRead,
	PermApplicationsReview,
	PermApplicationsDelete,
	PermLeadsRead,
	PermLeadsWrite,
	PermLeadsAssign,
	PermLeadsDelete,
	PermPropertiesRead,
	PermPropertiesWrite,
	PermPropertiesReview,
	PermPropertiesDelete,
	PermAuditRead,
	PermRolesManage,
}

// IsKnownPermission reports whether p is on the static list.
func IsKnownPermission(p string) bool {
	for _, known := range AllPermissions {
		if string(known) == p {
			return true
		}
	}
	return false
}

// Built-in role names.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleReviewer   = "reviewer"
	RoleBroker     = "broker"
	RoleAgent      = "agent"
)

// BuiltInRoles maps each built-in role to its default permissions.
// super_admin always has every permission and cannot be edited.
func BuiltInRoles() map[string][]Permission {
	var admin []Permission
	for _, p := range AllPermissions {
		if p != PermRolesManage {
			admin = append(admin, p)
		}
	}
	return map[string][]Permission{
		RoleSuperAdmin: append([]Permission(nil), AllPermissions...),
		RoleAdmin:      admin,
		RoleReviewer: {
			PermApplicationsRead, PermApplicationsReview,
			PermLeadsRead, PermLeadsWrite,
			PermPropertiesRead, PermPropertiesReview,
			PermAuditRead,
		},
		RoleBroker: {PermLeadsRead, PermLeadsWrite, PermLeadsAssign, PermPropertiesRead, PermPropertiesWrite},
		RoleAgent:  {PermLeadsRead, PermLeadsWrite, PermPropertiesRead, PermPropertiesWrite},
	}
}

// IsBuiltInRole reports whether name is one of the built-in roles.
func IsBuiltInRole(name string) bool {
	_, ok := BuiltInRoles()[name]
	return ok
}

// Strings converts permissions to a sorted string slice.
func Strings(perms []Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	sort.Strings(out)
	return out
}
