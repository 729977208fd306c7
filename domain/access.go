package domain

import "strings"

// Role is the permission level of a user.
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleContributor Role = "EMPLOYEE"
)

// ParseRole accepts the wire names with or without the ROLE_ prefix.
func ParseRole(raw string) (Role, bool) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	v = strings.TrimPrefix(v, "ROLE_")
	switch Role(v) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleContributor, "CONTRIBUTOR", "USER":
		return RoleContributor, true
	}
	return "", false
}

// IsAdmin reports whether r has unrestricted visibility.
func (r Role) IsAdmin() bool { return r == RoleAdmin }

// Visible decides whether viewerID, acting with role, may see task. It is the
// single visibility rule for boards, search results and task details.
func Visible(role Role, viewerID int64, task Task) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleContributor:
		return task.AssignedTo(viewerID)
	default:
		return false
	}
}

// FilterVisible keeps the tasks visible to viewerID, preserving order.
func FilterVisible(role Role, viewerID int64, tasks []Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if Visible(role, viewerID, t) {
			out = append(out, t)
		}
	}
	return out
}
