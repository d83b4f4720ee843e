package repo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/user/entity"
)

var userCols = []string{"id", "email", "password_hash", "password_salt", "full_name", "role", "created_at"}

func newRepoWithMock(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUserRepo(sqlx.NewDb(db, "postgres")), mock
}

func TestUserRepo_Create(t *testing.T) {
	r, mock := newRepoWithMock(t)
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (email, password_hash, password_salt, full_name, role)`)).
		WithArgs("a@x.com", "hash", "salt", "A", "USER").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), created))

	u := &entity.User{Email: "a@x.com", PasswordHash: "hash", PasswordSalt: "salt", FullName: "A", Role: entity.RoleUser}
	id, err := r.Create(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, created, u.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Create_UniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"lib/pq", &pq.Error{Code: "23505"}},
		{"pgx", &pgconn.PgError{Code: "23505"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, mock := newRepoWithMock(t)
			mock.ExpectQuery(`INSERT INTO users`).WillReturnError(tt.err)

			_, err := r.Create(context.Background(), &entity.User{Email: "a@x.com", Role: entity.RoleUser})
			assert.ErrorIs(t, err, ErrDuplicateEmail)
		})
	}
}

func TestUserRepo_Create_OtherError(t *testing.T) {
	r, mock := newRepoWithMock(t)
	mock.ExpectQuery(`INSERT INTO users`).WillReturnError(errors.New("db down"))

	_, err := r.Create(context.Background(), &entity.User{Email: "a@x.com", Role: entity.RoleUser})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateEmail)
	assert.Contains(t, err.Error(), "db down")
}

func TestUserRepo_FindByEmail(t *testing.T) {
	r, mock := newRepoWithMock(t)
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email=$1`)).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(int64(1), "a@x.com", "h", "s", "A", "ADMIN", created))

	u, err := r.FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, entity.RoleAdmin, u.Role)
	assert.Equal(t, "h", u.PasswordHash)
	assert.Equal(t, created, u.CreatedAt)
}

func TestUserRepo_FindByEmail_NotFound(t *testing.T) {
	r, mock := newRepoWithMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email=$1`)).
		WithArgs("nobody@x.com").
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := r.FindByEmail(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepo_FindByID_NotFound(t *testing.T) {
	r, mock := newRepoWithMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id=$1`)).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := r.FindByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepo_List(t *testing.T) {
	r, mock := newRepoWithMock(t)
	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users ORDER BY created_at DESC, id DESC`)).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(2), "b@x.com", "h", "s", "B", "ADMIN", t2).
			AddRow(int64(1), "a@x.com", "h", "s", "A", "USER", t1))

	users, err := r.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, int64(2), users[0].ID)
	assert.Equal(t, int64(1), users[1].ID)
}

func TestUserRepo_List_Empty(t *testing.T) {
	r, mock := newRepoWithMock(t)
	mock.ExpectQuery(`FROM users`).WillReturnRows(sqlmock.NewRows(userCols))

	users, err := r.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}
