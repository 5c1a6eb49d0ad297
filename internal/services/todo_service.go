package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/evlasenko/go-todo-app/internal/models"
)

type todoServiceImpl struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

func NewTodoService(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
) TodoService {
	return &todoServiceImpl{
		logger: logger,
		pgPool: pgPool,
	}
}

func (s *todoServiceImpl) CreateTodo(ctx context.Context, principal models.Principal, params TodoParams) (*models.Todo, error) {
	err := ValidateTodo(params)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("invalid todo input")
		return nil, err
	}

	now := time.Now()
	todo := models.Todo{
		UserID:      principal.ID,
		Title:       strings.TrimSpace(params.Title),
		Description: params.Description,
		DueDate:     params.DueDate,
		Category:    params.Category,
		Completed:   params.Completed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	todoUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate todo uuid")
		return nil, err
	}
	todo.ID = todoUUID.String()

	const insertTodoQuery = `
INSERT INTO todos (id,
                   user_id,
                   title,
                   description,
                   due_date,
                   category,
                   completed,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	_, err = s.pgPool.Exec(
		ctx,
		insertTodoQuery,
		todo.ID,
		todo.UserID,
		todo.Title,
		todo.Description,
		todo.DueDate,
		todo.Category,
		todo.Completed,
		todo.CreatedAt,
		todo.UpdatedAt,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to insert todo")
		return nil, err
	}
	s.logger.Debug().
		Str("todo_id", todo.ID).
		Msg("inserted todo")

	s.logger.Info().
		Str("todo_id", todo.ID).
		Str("user_id", todo.UserID).
		Msg("created todo")
	return &todo, nil
}

func (s *todoServiceImpl) GetTodos(ctx context.Context, principal models.Principal, filter TodoFilter) ([]*models.Todo, error) {
	query, args := buildTodoListQuery(ScopeTodoList(principal), filter)

	rows, err := s.pgPool.Query(ctx, query, args...)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to select todos")
		return nil, err
	}
	defer rows.Close()

	todos := make([]*models.Todo, 0)
	for rows.Next() {
		todo := &models.Todo{}
		err = rows.Scan(
			&todo.ID,
			&todo.UserID,
			&todo.Title,
			&todo.Description,
			&todo.DueDate,
			&todo.Category,
			&todo.Completed,
			&todo.CreatedAt,
			&todo.UpdatedAt,
		)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan todo")
			return nil, err
		}
		todos = append(todos, todo)
	}

	err = rows.Err()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}
	s.logger.Debug().
		Int("count", len(todos)).
		Msg("selected todos")

	return todos, nil
}

// buildTodoListQuery assembles the list query from the ownership scope
// and the optional filters. The scope always lands in the WHERE clause
// so non-visible rows are excluded by the database, not post-filtered.
func buildTodoListQuery(scope TodoListScope, filter TodoFilter) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`
SELECT id,
       user_id,
       title,
       description,
       due_date,
       category,
       completed,
       created_at,
       updated_at
FROM todos
`)

	var conditions []string
	var args []any

	if !scope.All {
		args = append(args, scope.OwnerID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Completed != nil {
		args = append(args, *filter.Completed)
		conditions = append(conditions, fmt.Sprintf("completed = $%d", len(args)))
	}
	if filter.DueBefore != nil {
		args = append(args, *filter.DueBefore)
		conditions = append(conditions, fmt.Sprintf("due_date <= $%d", len(args)))
	}
	if filter.DueAfter != nil {
		args = append(args, *filter.DueAfter)
		conditions = append(conditions, fmt.Sprintf("due_date >= $%d", len(args)))
	}

	if len(conditions) > 0 {
		sb.WriteString("WHERE ")
		sb.WriteString(strings.Join(conditions, " AND\n      "))
		sb.WriteString("\n")
	}
	sb.WriteString("ORDER BY created_at DESC")

	return sb.String(), args
}

func (s *todoServiceImpl) GetTodoByID(ctx context.Context, principal models.Principal, todoID string) (*models.Todo, error) {
	todo, err := s.selectTodoByID(ctx, todoID)
	if err != nil {
		return nil, err
	}

	// Existence is checked before ownership, so a request for
	// someone else's todo gets a 403 rather than a 404.
	if !CanAccessTodo(principal, todo.UserID) {
		s.logger.Warn().
			Str("todo_id", todo.ID).
			Str("user_id", principal.ID).
			Msg("access to todo denied")
		return nil, ErrAccessDenied
	}

	return todo, nil
}

func (s *todoServiceImpl) UpdateTodo(ctx context.Context, principal models.Principal, todoID string, params TodoParams) (*models.Todo, error) {
	err := ValidateTodo(params)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("invalid todo input")
		return nil, err
	}

	todo, err := s.selectTodoByID(ctx, todoID)
	if err != nil {
		return nil, err
	}

	if !CanAccessTodo(principal, todo.UserID) {
		s.logger.Warn().
			Str("todo_id", todo.ID).
			Str("user_id", principal.ID).
			Msg("access to todo denied")
		return nil, ErrAccessDenied
	}

	// Owner and creation time are immutable.
	todo.Title = strings.TrimSpace(params.Title)
	todo.Description = params.Description
	todo.DueDate = params.DueDate
	todo.Category = params.Category
	todo.Completed = params.Completed
	todo.UpdatedAt = time.Now()

	const updateTodoQuery = `
UPDATE todos
SET title = $1,
    description = $2,
    due_date = $3,
    category = $4,
    completed = $5,
    updated_at = $6
WHERE id = $7
`
	tag, err := s.pgPool.Exec(
		ctx,
		updateTodoQuery,
		todo.Title,
		todo.Description,
		todo.DueDate,
		todo.Category,
		todo.Completed,
		todo.UpdatedAt,
		todo.ID,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to update todo")
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		// Deleted between the select and the update.
		s.logger.Warn().
			Str("todo_id", todo.ID).
			Msg("todo no longer exists")
		return nil, ErrTodoNotFound
	}

	s.logger.Info().
		Str("todo_id", todo.ID).
		Msg("updated todo")
	return todo, nil
}

func (s *todoServiceImpl) DeleteTodo(ctx context.Context, principal models.Principal, todoID string) error {
	todo, err := s.selectTodoByID(ctx, todoID)
	if err != nil {
		return err
	}

	if !CanAccessTodo(principal, todo.UserID) {
		s.logger.Warn().
			Str("todo_id", todo.ID).
			Str("user_id", principal.ID).
			Msg("access to todo denied")
		return ErrAccessDenied
	}

	const deleteTodoQuery = `
DELETE FROM todos
       WHERE id = $1
`
	tag, err := s.pgPool.Exec(
		ctx,
		deleteTodoQuery,
		todo.ID,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to delete todo")
		return err
	}
	if tag.RowsAffected() == 0 {
		s.logger.Warn().
			Str("todo_id", todo.ID).
			Msg("todo already deleted")
		return ErrTodoNotFound
	}

	s.logger.Info().
		Str("todo_id", todo.ID).
		Msg("deleted todo")
	return nil
}

func (s *todoServiceImpl) selectTodoByID(ctx context.Context, todoID string) (*models.Todo, error) {
	todo := models.Todo{
		ID: todoID,
	}

	const selectTodoByIDQuery = `
SELECT user_id,
       title,
       description,
       due_date,
       category,
       completed,
       created_at,
       updated_at
FROM todos
WHERE id = $1
`
	err := s.pgPool.QueryRow(
		ctx,
		selectTodoByIDQuery,
		todo.ID,
	).Scan(
		&todo.UserID,
		&todo.Title,
		&todo.Description,
		&todo.DueDate,
		&todo.Category,
		&todo.Completed,
		&todo.CreatedAt,
		&todo.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error().
				Str("todo_id", todo.ID).
				Msg("todo not found")
			return nil, ErrTodoNotFound
		}

		s.logger.Error().
			Err(err).
			Str("todo_id", todo.ID).
			Msg("failed to select todo by id")
		return nil, err
	}

	return &todo, nil
}
