package services

import (
	"slices"

	"github.com/evlasenko/go-todo-app/internal/models"
)

// CanAccessTodo reports whether the principal may read, update or
// delete a todo owned by ownerID: admins always, everyone else only
// their own.
func CanAccessTodo(principal models.Principal, ownerID string) bool {
	return principal.IsAdmin() || principal.ID == ownerID
}

// TodoListScope is the ownership predicate a list query runs under.
// The scope is decided before storage is touched so rows outside it
// never leave the database.
type TodoListScope struct {
	// All is set for admins; OwnerID is ignored.
	All bool
	// OwnerID restricts the query to one owner's todos.
	OwnerID string
}

func ScopeTodoList(principal models.Principal) TodoListScope {
	if principal.IsAdmin() {
		return TodoListScope{All: true}
	}
	return TodoListScope{OwnerID: principal.ID}
}

// RoleAllowed reports whether the principal's role
// is one of allowedRoles.
func RoleAllowed(principal models.Principal, allowedRoles ...string) bool {
	return slices.Contains(allowedRoles, principal.Role)
}

// CheckSelfDemotion guards role mutation against an admin locking
// themselves out: changing one's own role to anything but admin
// fails with ErrSelfDemotion.
func CheckSelfDemotion(principal models.Principal, targetID, newRole string) error {
	if targetID == principal.ID && newRole != models.RoleAdmin {
		return ErrSelfDemotion
	}
	return nil
}
