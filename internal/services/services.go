package services

import (
	"context"
	"errors"
	"time"

	"github.com/evlasenko/go-todo-app/internal/models"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTodoNotFound       = errors.New("todo not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrSelfDemotion       = errors.New("admin cannot demote themselves")
	ErrInvalidRole        = errors.New("invalid role")
)

type AuthService interface {
	// Register creates a user with the given identity and a hashed
	// password, then issues a token bound to the new user id.
	//
	// It returns ErrUserAlreadyExists if the username or email
	// is already taken, or a *ValidationError listing every
	// constraint the input violates.
	Register(ctx context.Context, params RegisterParams) (*AuthResult, error)

	// Login authenticates the user by email (case-insensitive) or
	// username and issues a fresh token.
	//
	// It returns ErrInvalidCredentials both when no user matches the
	// login and when the password comparison fails, so the caller
	// cannot tell which field was wrong.
	Login(ctx context.Context, params LoginParams) (*AuthResult, error)

	// Authenticate validates the given token and resolves the
	// principal it was issued to, with the role read from storage
	// so role changes take effect immediately.
	//
	// It returns ErrInvalidToken if the token is malformed, expired,
	// carries a bad signature, or names a user that no longer exists.
	Authenticate(ctx context.Context, token string) (*models.Principal, error)

	// GetUserByID returns the user with the given id
	// or ErrUserNotFound.
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
}

type TodoService interface {
	// CreateTodo persists a todo owned by the principal.
	CreateTodo(ctx context.Context, principal models.Principal, params TodoParams) (*models.Todo, error)

	// GetTodos lists todos visible to the principal, newest first.
	// Admins see every todo, everyone else only their own; the scope
	// is part of the query, not a post-filter.
	GetTodos(ctx context.Context, principal models.Principal, filter TodoFilter) ([]*models.Todo, error)

	// GetTodoByID returns ErrTodoNotFound if no such todo exists and
	// ErrAccessDenied if it exists but belongs to someone else and
	// the principal is not an admin. Existence is checked first.
	GetTodoByID(ctx context.Context, principal models.Principal, todoID string) (*models.Todo, error)

	// UpdateTodo replaces the mutable fields of the todo. The owner
	// and creation time never change.
	UpdateTodo(ctx context.Context, principal models.Principal, todoID string, params TodoParams) (*models.Todo, error)

	// DeleteTodo permanently removes the todo.
	DeleteTodo(ctx context.Context, principal models.Principal, todoID string) error
}

type AdminService interface {
	// ListUsers returns every user, newest first.
	ListUsers(ctx context.Context) ([]*models.User, error)

	// GetUserByID returns the user with the given id
	// or ErrUserNotFound.
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// SetUserRole changes the target user's role.
	//
	// It returns ErrInvalidRole for unknown roles, ErrUserNotFound
	// if the target doesn't exist, and ErrSelfDemotion if the acting
	// admin tries to remove their own admin role.
	SetUserRole(ctx context.Context, principal models.Principal, targetID, role string) (*models.User, error)

	// GetStats aggregates user and todo counts over current state.
	GetStats(ctx context.Context) (*Stats, error)

	// ListAllTodos returns every todo joined with its owner's
	// public identity, newest first.
	ListAllTodos(ctx context.Context) ([]*models.TodoWithOwner, error)
}

type RegisterParams struct {
	Username string
	Email    string
	Password string
}

type LoginParams struct {
	Login    string
	Password string
}

type AuthResult struct {
	Token          string
	TokenExpiresAt time.Time
	User           *models.User
}

type TodoParams struct {
	Title       string
	Description string
	DueDate     *time.Time
	Category    string
	Completed   bool
}

type TodoFilter struct {
	Category  string
	Completed *bool
	DueBefore *time.Time
	DueAfter  *time.Time
}

type Stats struct {
	TotalUsers      int64
	TotalTodos      int64
	UsersByRole     map[string]int64
	TodosByCategory map[string]int64
}
