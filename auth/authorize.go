package auth

import "github.com/dashport/dashport/userstore"

// IsAdmin reports whether any of userRoles exists in the role table with the
// is_admin flag set, or is the Admins role by name. The name-based override
// means the Admins role cannot have its administrative status removed by
// clearing the flag.
func IsAdmin(userRoles []string, roles []userstore.Role) bool {
	for _, role := range roles {
		if !holdsRole(userRoles, role.Name) {
			continue
		}
		if role.IsAdmin || role.Name == AdminsRoleName {
			return true
		}
	}
	return false
}

// AccessibleCategories returns the union of categories over every role the
// principal holds that exists in the role table. An anonymous (nil) principal
// has no accessible categories. Administrators get no implicit extras here;
// admin status gates mutations, not read-side category visibility.
func AccessibleCategories(p *Principal, roles []userstore.Role) map[string]bool {
	categories := make(map[string]bool)
	if p == nil {
		return categories
	}
	for _, role := range roles {
		if !holdsRole(p.Roles, role.Name) {
			continue
		}
		for _, c := range role.Categories {
			categories[c] = true
		}
	}
	return categories
}

// FilterByCategory retains only the items whose category is a member of the
// accessible set.
func FilterByCategory[T any](items []T, category func(T) string, accessible map[string]bool) []T {
	filtered := make([]T, 0, len(items))
	for _, item := range items {
		if accessible[category(item)] {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

func holdsRole(userRoles []string, name string) bool {
	for _, r := range userRoles {
		if r == name {
			return true
		}
	}
	return false
}
