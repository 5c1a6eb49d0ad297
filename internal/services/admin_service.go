package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/evlasenko/go-todo-app/internal/models"
)

type adminServiceImpl struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

func NewAdminService(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
) AdminService {
	return &adminServiceImpl{
		logger: logger,
		pgPool: pgPool,
	}
}

func (s *adminServiceImpl) ListUsers(ctx context.Context) ([]*models.User, error) {
	const selectUsersQuery = `
SELECT id,
       username,
       email,
       role,
       created_at,
       updated_at
FROM users
ORDER BY created_at DESC
`
	rows, err := s.pgPool.Query(ctx, selectUsersQuery)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to select users")
		return nil, err
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user := &models.User{}
		err = rows.Scan(
			&user.ID,
			&user.Username,
			&user.Email,
			&user.Role,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan user")
			return nil, err
		}
		users = append(users, user)
	}

	err = rows.Err()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}
	s.logger.Debug().
		Int("count", len(users)).
		Msg("selected users")

	return users, nil
}

func (s *adminServiceImpl) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	user := models.User{
		ID: userID,
	}

	const selectUserByIDQuery = `
SELECT username,
       email,
       role,
       created_at,
       updated_at
FROM users
WHERE id = $1
`
	err := s.pgPool.QueryRow(
		ctx,
		selectUserByIDQuery,
		user.ID,
	).Scan(
		&user.Username,
		&user.Email,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error().
				Str("user_id", user.ID).
				Msg("user not found")
			return nil, ErrUserNotFound
		}

		s.logger.Error().
			Err(err).
			Str("user_id", user.ID).
			Msg("failed to select user by id")
		return nil, err
	}

	return &user, nil
}

func (s *adminServiceImpl) SetUserRole(ctx context.Context, principal models.Principal, targetID, role string) (*models.User, error) {
	if !models.IsValidRole(role) {
		s.logger.Error().
			Str("role", role).
			Msg("invalid role")
		return nil, ErrInvalidRole
	}

	// Target existence is checked before the self-demotion guard,
	// so an unknown target id stays a 404.
	user, err := s.GetUserByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	err = CheckSelfDemotion(principal, user.ID, role)
	if err != nil {
		s.logger.Warn().
			Str("user_id", principal.ID).
			Msg("admin tried to demote themselves")
		return nil, err
	}

	user.Role = role
	user.UpdatedAt = time.Now()

	const updateUserRoleQuery = `
UPDATE users
SET role = $1,
    updated_at = $2
WHERE id = $3
`
	_, err = s.pgPool.Exec(
		ctx,
		updateUserRoleQuery,
		user.Role,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to update user role")
		return nil, err
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("role", user.Role).
		Msg("updated user role")
	return user, nil
}

func (s *adminServiceImpl) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		UsersByRole:     make(map[string]int64),
		TodosByCategory: make(map[string]int64),
	}

	const countUsersQuery = `SELECT count(*) FROM users`
	err := s.pgPool.QueryRow(ctx, countUsersQuery).Scan(&stats.TotalUsers)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to count users")
		return nil, err
	}

	const countTodosQuery = `SELECT count(*) FROM todos`
	err = s.pgPool.QueryRow(ctx, countTodosQuery).Scan(&stats.TotalTodos)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to count todos")
		return nil, err
	}

	const countUsersByRoleQuery = `
SELECT role,
       count(*)
FROM users
GROUP BY role
`
	err = s.scanCounts(ctx, countUsersByRoleQuery, stats.UsersByRole)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to count users by role")
		return nil, err
	}

	const countTodosByCategoryQuery = `
SELECT category,
       count(*)
FROM todos
GROUP BY category
`
	err = s.scanCounts(ctx, countTodosByCategoryQuery, stats.TodosByCategory)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to count todos by category")
		return nil, err
	}

	s.logger.Debug().
		Int64("total_users", stats.TotalUsers).
		Int64("total_todos", stats.TotalTodos).
		Msg("aggregated stats")
	return stats, nil
}

func (s *adminServiceImpl) scanCounts(ctx context.Context, query string, into map[string]int64) error {
	rows, err := s.pgPool.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int64
		err = rows.Scan(&key, &count)
		if err != nil {
			return err
		}
		into[key] = count
	}
	return rows.Err()
}

func (s *adminServiceImpl) ListAllTodos(ctx context.Context) ([]*models.TodoWithOwner, error) {
	const selectTodosWithOwnersQuery = `
SELECT t.id,
       t.user_id,
       t.title,
       t.description,
       t.due_date,
       t.category,
       t.completed,
       t.created_at,
       t.updated_at,
       u.username,
       u.email
FROM todos t
JOIN users u ON u.id = t.user_id
ORDER BY t.created_at DESC
`
	rows, err := s.pgPool.Query(ctx, selectTodosWithOwnersQuery)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to select todos with owners")
		return nil, err
	}
	defer rows.Close()

	todos := make([]*models.TodoWithOwner, 0)
	for rows.Next() {
		todo := &models.TodoWithOwner{}
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
			&todo.Owner.Username,
			&todo.Owner.Email,
		)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan todo")
			return nil, err
		}
		todo.Owner.ID = todo.UserID
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
		Msg("selected todos with owners")

	return todos, nil
}
