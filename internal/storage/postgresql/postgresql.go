// Package postgresql реализует хранилище пользователей на PostgreSQL.
// Схема создаётся миграциями из каталога migrations.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/storage"
)

const uniqueViolation = "23505"

const (
	publicColumns = `id, full_name, username, email, avatar, cover_image, created_at, updated_at`
	fullColumns   = publicColumns + `, password_hash, refresh_token`
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New открывает пул соединений и проверяет доступность базы.
func New(ctx context.Context, dsn string) (*Storage, error) {
	const op = "storage.postgresql.New"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Storage{DB: db}, nil
}

func (s *Storage) Close(_ context.Context) error {
	return s.DB.Close()
}

func (s *Storage) Ping(ctx context.Context) error {
	const op = "storage.postgresql.Ping"
	if err := s.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFull(row scanner) (*models.User, error) {
	var (
		u       models.User
		refresh sql.NullString
	)
	if err := row.Scan(&u.ID, &u.FullName, &u.Username, &u.Email, &u.Avatar, &u.CoverImage,
		&u.CreatedAt, &u.UpdatedAt, &u.PasswordHash, &refresh); err != nil {
		return nil, err
	}
	if refresh.Valid {
		u.RefreshToken = &refresh.String
	}
	return &u, nil
}

// FindByUsernameOrEmail ищет пользователя по username или email.
// Пустые значения в условие не попадают.
func (s *Storage) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	const op = "storage.postgresql.FindByUsernameOrEmail"

	if username == "" && email == "" {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	query := `SELECT ` + fullColumns + `
			  FROM users
			  WHERE ($1 <> '' AND username = $1) OR ($2 <> '' AND email = $2)
			  LIMIT 1`
	u, err := scanFull(s.DB.QueryRowContext(ctx, query, username, email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return u, nil
}

// FindByID возвращает полную запись пользователя.
func (s *Storage) FindByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.postgresql.FindByID"

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	query := `SELECT ` + fullColumns + ` FROM users WHERE id = $1`
	u, err := scanFull(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return u, nil
}

// FindPublicByID выбирает только публичные колонки.
func (s *Storage) FindPublicByID(ctx context.Context, id string) (*models.PublicUser, error) {
	const op = "storage.postgresql.FindPublicByID"

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	var u models.PublicUser
	query := `SELECT ` + publicColumns + ` FROM users WHERE id = $1`
	if err := s.DB.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.FullName, &u.Username, &u.Email,
		&u.Avatar, &u.CoverImage, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return &u, nil
}

// Create сохраняет нового пользователя и возвращает его ID.
func (s *Storage) Create(ctx context.Context, u *models.User) (string, error) {
	const op = "storage.postgresql.Create"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	query := `INSERT INTO users (id, full_name, username, email, password_hash, avatar,
			      cover_image, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`
	if _, err := s.DB.ExecContext(ctx, query, id, u.FullName, u.Username, u.Email,
		u.PasswordHash, u.Avatar, u.CoverImage, now); err != nil {
		return "", fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return id, nil
}

func (s *Storage) SetRefreshToken(ctx context.Context, id, token string) error {
	const op = "storage.postgresql.SetRefreshToken"
	return s.exec(ctx, op, `UPDATE users SET refresh_token = $2 WHERE id = $1`, id, token)
}

func (s *Storage) ClearRefreshToken(ctx context.Context, id string) error {
	const op = "storage.postgresql.ClearRefreshToken"
	return s.exec(ctx, op, `UPDATE users SET refresh_token = NULL WHERE id = $1`, id)
}

func (s *Storage) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const op = "storage.postgresql.UpdatePassword"
	return s.exec(ctx, op, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`,
		id, passwordHash)
}

func (s *Storage) UpdateDetails(ctx context.Context, id, fullName, email string) error {
	const op = "storage.postgresql.UpdateDetails"
	return s.exec(ctx, op, `UPDATE users SET full_name = $2, email = $3, updated_at = now() WHERE id = $1`,
		id, fullName, email)
}

func (s *Storage) UpdateAvatar(ctx context.Context, id, url string) error {
	const op = "storage.postgresql.UpdateAvatar"
	return s.exec(ctx, op, `UPDATE users SET avatar = $2, updated_at = now() WHERE id = $1`, id, url)
}

func (s *Storage) UpdateCoverImage(ctx context.Context, id, url string) error {
	const op = "storage.postgresql.UpdateCoverImage"
	return s.exec(ctx, op, `UPDATE users SET cover_image = $2, updated_at = now() WHERE id = $1`, id, url)
}

func (s *Storage) exec(ctx context.Context, op, query string, id string, args ...any) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	res, err := s.DB.ExecContext(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapErr(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

func mapErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrUserNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return storage.ErrUserExists
	}
	return err
}
