package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/user/entity"
)

const userColumns = `id, email, password_hash, password_salt, full_name, role, created_at`

// UserRepo provides data access for the users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user row and fills in the generated ID and CreatedAt.
// A unique violation on email is reported as ErrDuplicateEmail.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) (int64, error) {
	const q = `INSERT INTO users (email, password_hash, password_salt, full_name, role)
		  VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	row := r.db.QueryRowxContext(ctx, q, u.Email, u.PasswordHash, u.PasswordSalt, u.FullName, string(u.Role))
	if err := row.Scan(&u.ID, &u.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateEmail
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return u.ID, nil
}

// FindByEmail returns the user with the given email or ErrNotFound.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select user by email: %w", err)
	}
	return &row, nil
}

// FindByID returns the user with the given id or ErrNotFound.
func (r *UserRepo) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select user by id: %w", err)
	}
	return &row, nil
}

// List returns every user, most recently created first.
func (r *UserRepo) List(ctx context.Context) ([]entity.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC, id DESC`
	rows := []entity.User{}
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return rows, nil
}

// Now returns the database clock; used by the health endpoint.
func (r *UserRepo) Now(ctx context.Context) (string, error) {
	var now string
	if err := r.db.GetContext(ctx, &now, `SELECT NOW()::text`); err != nil {
		return "", err
	}
	return now, nil
}
