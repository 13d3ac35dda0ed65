package core

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgUniqueViolation is the postgres error code for unique index violations.
const pgUniqueViolation = "23505"

// UserRecord represents a credential record in the persistence layer.
// UsernameLower is the lowercase-normalized lookup/uniqueness key; Username
// keeps the case the user typed.
type UserRecord struct {
	ID            string
	Username      string
	UsernameLower string
	PasswordHash  string
	CreatedAt     time.Time
}

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	FindByUsernameLower(ctx context.Context, usernameLower string) (*UserRecord, error)
	Create(ctx context.Context, user *UserRecord) error
}

// PgUserRepository implements UserRepository using pgxpool.
type PgUserRepository struct {
	db *pgxpool.Pool
}

func NewPgUserRepository(db *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{db: db}
}

func (r *PgUserRepository) FindByUsernameLower(ctx context.Context, usernameLower string) (*UserRecord, error) {
	const q = `SELECT id, username, username_lower, password_hash, created_at FROM users WHERE username_lower=$1`
	var u UserRecord
	if err := r.db.QueryRow(ctx, q, usernameLower).Scan(&u.ID, &u.Username, &u.UsernameLower, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts user and fills in CreatedAt. A unique violation on
// username_lower comes back as ErrDuplicateUsername.
func (r *PgUserRepository) Create(ctx context.Context, user *UserRecord) error {
	const q = `INSERT INTO users (id, username, username_lower, password_hash) VALUES ($1,$2,$3,$4) RETURNING created_at`
	if err := r.db.QueryRow(ctx, q, user.ID, user.Username, user.UsernameLower, user.PasswordHash).Scan(&user.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateUsername
		}
		return err
	}
	return nil
}
