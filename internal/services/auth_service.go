package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/evlasenko/go-todo-app/internal/config"
	"github.com/evlasenko/go-todo-app/internal/models"
)

type authServiceImpl struct {
	logger     zerolog.Logger
	pgPool     *pgxpool.Pool
	tokens     *TokenManager
	hashParams *argon2id.Params
}

func NewAuthService(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
	tokens *TokenManager,
	passwordCfg config.PasswordConfig,
) AuthService {
	return &authServiceImpl{
		logger: logger,
		pgPool: pgPool,
		tokens: tokens,
		hashParams: &argon2id.Params{
			Memory:      passwordCfg.HashMemory,
			Iterations:  passwordCfg.HashIterations,
			Parallelism: passwordCfg.HashParallelism,
			SaltLength:  passwordCfg.HashSaltLength,
			KeyLength:   passwordCfg.HashKeyLength,
		},
	}
}

func (s *authServiceImpl) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	err := ValidateRegistration(params)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("invalid registration input")
		return nil, err
	}

	now := time.Now()
	user := models.User{
		Username:  strings.TrimSpace(params.Username),
		Email:     strings.ToLower(strings.TrimSpace(params.Email)),
		Role:      models.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}

	userUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate user uuid")
		return nil, err
	}
	user.ID = userUUID.String()

	passwordHash, err := argon2id.CreateHash(params.Password, s.hashParams)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to hash password")
		return nil, err
	}
	user.Password = passwordHash

	const insertUserQuery = `
INSERT INTO users (id,
                   username,
                   email,
                   password,
                   role,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	_, err = s.pgPool.Exec(
		ctx,
		insertUserQuery,
		user.ID,
		user.Username,
		user.Email,
		user.Password,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			s.logger.Error().
				Str("username", user.Username).
				Str("email", user.Email).
				Msg("username or email already taken")
			return nil, ErrUserAlreadyExists
		}

		s.logger.Error().
			Err(err).
			Msg("failed to insert user")
		return nil, err
	}
	s.logger.Debug().
		Str("user_id", user.ID).
		Str("email", user.Email).
		Msg("inserted user")

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to issue token")
		return nil, err
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Msg("registered user")
	return &AuthResult{
		Token:          token,
		TokenExpiresAt: expiresAt,
		User:           &user,
	}, nil
}

func (s *authServiceImpl) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	user := models.User{}

	// The login identifier matches the email case-insensitively
	// or the username exactly.
	const selectUserByLoginQuery = `
SELECT id,
       username,
       email,
       password,
       role,
       created_at,
       updated_at
FROM users
WHERE email = lower($1) OR
      username = $1
`
	err := s.pgPool.QueryRow(
		ctx,
		selectUserByLoginQuery,
		params.Login,
	).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Password,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Same error as a password mismatch so the response
			// doesn't reveal which field was wrong.
			s.logger.Error().Msg("no user matches login")
			return nil, ErrInvalidCredentials
		}

		s.logger.Error().
			Err(err).
			Msg("failed to select user by login")
		return nil, err
	}
	s.logger.Debug().
		Str("user_id", user.ID).
		Msg("selected user by login")

	match, err := argon2id.ComparePasswordAndHash(params.Password, user.Password)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to compare password")
		return nil, err
	} else if !match {
		s.logger.Error().Msg("passwords do not match")
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to issue token")
		return nil, err
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Msg("logged in")
	return &AuthResult{
		Token:          token,
		TokenExpiresAt: expiresAt,
		User:           &user,
	}, nil
}

func (s *authServiceImpl) Authenticate(ctx context.Context, token string) (*models.Principal, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to parse token")
		return nil, ErrInvalidToken
	}

	principal := models.Principal{
		ID: claims.Subject,
	}

	// The token carries only the subject; the role is read from
	// storage so a role change applies to requests already holding
	// an older token.
	const selectUserRoleQuery = `
SELECT role
FROM users
WHERE id = $1
`
	err = s.pgPool.QueryRow(
		ctx,
		selectUserRoleQuery,
		principal.ID,
	).Scan(&principal.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error().
				Str("user_id", principal.ID).
				Msg("token subject not found")
			return nil, ErrInvalidToken
		}

		s.logger.Error().
			Err(err).
			Msg("failed to select user role")
		return nil, err
	}

	return &principal, nil
}

func (s *authServiceImpl) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
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
