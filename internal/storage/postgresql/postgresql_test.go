package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/storage"
)

var fullColumnNames = []string{
	"id", "full_name", "username", "email", "avatar", "cover_image",
	"created_at", "updated_at", "password_hash", "refresh_token",
}

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &Storage{DB: db}, mock
}

func TestStorage_FindByUsernameOrEmail(t *testing.T) {
	id := uuid.NewString()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		username string
		email    string
		mock     func(m sqlmock.Sqlmock)
		wantErr  error
		check    func(t *testing.T, u *models.User)
	}{
		{
			name:     "found with refresh token",
			username: "jane",
			mock: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta("FROM users")).
					WithArgs("jane", "").
					WillReturnRows(sqlmock.NewRows(fullColumnNames).AddRow(
						id, "Jane Doe", "jane", "jane@example.com", "http://cdn/a.png", "",
						created, created, "hash", "refresh-1"))
			},
			check: func(t *testing.T, u *models.User) {
				assert.Equal(t, id, u.ID)
				assert.Equal(t, "hash", u.PasswordHash)
				require.NotNil(t, u.RefreshToken)
				assert.Equal(t, "refresh-1", *u.RefreshToken)
			},
		},
		{
			name:  "found without refresh token",
			email: "jane@example.com",
			mock: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta("FROM users")).
					WithArgs("", "jane@example.com").
					WillReturnRows(sqlmock.NewRows(fullColumnNames).AddRow(
						id, "Jane Doe", "jane", "jane@example.com", "http://cdn/a.png", "",
						created, created, "hash", nil))
			},
			check: func(t *testing.T, u *models.User) {
				assert.Nil(t, u.RefreshToken)
			},
		},
		{
			name:     "not found",
			username: "ghost",
			mock: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta("FROM users")).
					WithArgs("ghost", "").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: storage.ErrUserNotFound,
		},
		{
			name:    "no identifiers",
			mock:    func(_ sqlmock.Sqlmock) {},
			wantErr: storage.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)
			tt.mock(mock)

			u, err := s.FindByUsernameOrEmail(context.Background(), tt.username, tt.email)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				tt.check(t, u)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStorage_FindPublicByID(t *testing.T) {
	id := uuid.NewString()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("selects only public columns", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(`SELECT id, full_name, username, email, avatar, cover_image, created_at, updated_at FROM users`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "full_name", "username", "email", "avatar", "cover_image", "created_at", "updated_at",
			}).AddRow(id, "Jane Doe", "jane", "jane@example.com", "http://cdn/a.png", "", created, created))

		u, err := s.FindPublicByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, &models.PublicUser{
			ID:        id,
			FullName:  "Jane Doe",
			Username:  "jane",
			Email:     "jane@example.com",
			Avatar:    "http://cdn/a.png",
			CreatedAt: created,
			UpdatedAt: created,
		}, u)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("malformed id does not hit the database", func(t *testing.T) {
		s, mock := newMockStorage(t)

		_, err := s.FindPublicByID(context.Background(), "not-a-uuid")
		require.ErrorIs(t, err, storage.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStorage_FindByID(t *testing.T) {
	id := uuid.NewString()

	s, mock := newMockStorage(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(id).
		WillReturnError(errors.New("connection reset"))

	_, err := s.FindByID(context.Background(), id)
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_Create(t *testing.T) {
	user := &models.User{
		FullName:     "Jane Doe",
		Username:     "jane",
		Email:        "jane@example.com",
		PasswordHash: "hash",
		Avatar:       "http://cdn/a.png",
	}

	tests := []struct {
		name    string
		mock    func(m sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "success",
			mock: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
					WithArgs(sqlmock.AnyArg(), "Jane Doe", "jane", "jane@example.com", "hash",
						"http://cdn/a.png", "", sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "unique violation",
			mock: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
					WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_users_email"})
			},
			wantErr: storage.ErrUserExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)
			tt.mock(mock)

			id, err := s.Create(context.Background(), user)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				_, parseErr := uuid.Parse(id)
				assert.NoError(t, parseErr)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStorage_Create_CanceledContext(t *testing.T) {
	s, mock := newMockStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Create(ctx, &models.User{})
	require.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_Updates(t *testing.T) {
	id := uuid.NewString()

	tests := []struct {
		name  string
		query string
		call  func(s *Storage) error
	}{
		{"set refresh token", "SET refresh_token = $2", func(s *Storage) error {
			return s.SetRefreshToken(context.Background(), id, "token")
		}},
		{"clear refresh token", "SET refresh_token = NULL", func(s *Storage) error {
			return s.ClearRefreshToken(context.Background(), id)
		}},
		{"update password", "SET password_hash = $2", func(s *Storage) error {
			return s.UpdatePassword(context.Background(), id, "hash")
		}},
		{"update details", "SET full_name = $2, email = $3", func(s *Storage) error {
			return s.UpdateDetails(context.Background(), id, "Jane", "jane@example.com")
		}},
		{"update avatar", "SET avatar = $2", func(s *Storage) error {
			return s.UpdateAvatar(context.Background(), id, "http://cdn/a.png")
		}},
		{"update cover image", "SET cover_image = $2", func(s *Storage) error {
			return s.UpdateCoverImage(context.Background(), id, "http://cdn/c.png")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name+" updated", func(t *testing.T) {
			s, mock := newMockStorage(t)
			mock.ExpectExec(regexp.QuoteMeta(tt.query)).WillReturnResult(sqlmock.NewResult(0, 1))

			require.NoError(t, tt.call(s))
			assert.NoError(t, mock.ExpectationsWereMet())
		})

		t.Run(tt.name+" missing user", func(t *testing.T) {
			s, mock := newMockStorage(t)
			mock.ExpectExec(regexp.QuoteMeta(tt.query)).WillReturnResult(sqlmock.NewResult(0, 0))

			require.ErrorIs(t, tt.call(s), storage.ErrUserNotFound)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}

	t.Run("email collision", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectExec(regexp.QuoteMeta("SET full_name")).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		err := s.UpdateDetails(context.Background(), id, "Jane", "taken@example.com")
		require.ErrorIs(t, err, storage.ErrUserExists)
	})
}

func TestStorage_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	s := &Storage{DB: db}

	mock.ExpectPing()
	require.NoError(t, s.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	require.Error(t, s.Ping(context.Background()))

	require.NoError(t, mock.ExpectationsWereMet())
}
