package models

import "time"

const (
	CategoryUrgent    = "Urgent"
	CategoryNonUrgent = "Non-Urgent"
)

// IsValidCategory reports whether category is one of the two known categories.
func IsValidCategory(category string) bool {
	return category == CategoryUrgent || category == CategoryNonUrgent
}

type Todo struct {
	ID          string
	UserID      string
	Title       string
	Description string
	DueDate     *time.Time
	Category    string
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsOverdue reports whether the todo has a due date in the past
// and is still incomplete. Computed, never stored.
func (t *Todo) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && !t.Completed
}

// TodoOwner is the public slice of the owning user
// attached to todos on admin listings.
type TodoOwner struct {
	ID       string
	Username string
	Email    string
}

type TodoWithOwner struct {
	Todo
	Owner TodoOwner
}
