package core

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Category views for list filtering.
const (
	ViewVisible = "visible"
	ViewHidden  = "hidden"
	ViewAll     = "all"
)

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Hidden    bool      `json:"hidden"`
	Owner     *string   `json:"owner"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CategoryUpdateInput holds the partial-update fields; nil means unchanged.
type CategoryUpdateInput struct {
	Name   *string
	Hidden *bool
}

// CategoryRepository defines persistence operations for categories. Every
// operation is scoped by an OwnerFilter so records outside the caller's
// ownership scope are indistinguishable from missing ones.
type CategoryRepository interface {
	List(ctx context.Context, filter OwnerFilter, view string) ([]Category, error)
	Find(ctx context.Context, id string, filter OwnerFilter) (*Category, error)
	Create(ctx context.Context, name string, filter OwnerFilter) (*Category, error)
	Update(ctx context.Context, id string, filter OwnerFilter, input CategoryUpdateInput) (*Category, error)
	Delete(ctx context.Context, id string, filter OwnerFilter) error
}

// ownerCondition renders the owner predicate for filter, appending any bind arg.
func ownerCondition(filter OwnerFilter, args *[]any) string {
	if filter.Owner == nil {
		return "owner IS NULL"
	}
	*args = append(*args, *filter.Owner)
	return "owner=$" + strconv.Itoa(len(*args))
}

// PgCategoryRepository implements CategoryRepository using pgxpool.
type PgCategoryRepository struct {
	db *pgxpool.Pool
}

func NewPgCategoryRepository(db *pgxpool.Pool) *PgCategoryRepository {
	return &PgCategoryRepository{db: db}
}

func (r *PgCategoryRepository) List(ctx context.Context, filter OwnerFilter, view string) ([]Category, error) {
	var args []any
	q := `SELECT id, name, hidden, owner, created_at, updated_at FROM categories WHERE ` + ownerCondition(filter, &args)
	switch view {
	case ViewHidden:
		q += " AND hidden"
	case ViewAll:
	default:
		q += " AND NOT hidden"
	}
	q += " ORDER BY created_at, id"

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Hidden, &c.Owner, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *PgCategoryRepository) Find(ctx context.Context, id string, filter OwnerFilter) (*Category, error) {
	args := []any{id}
	q := `SELECT id, name, hidden, owner, created_at, updated_at FROM categories WHERE id=$1 AND ` + ownerCondition(filter, &args)
	var c Category
	if err := r.db.QueryRow(ctx, q, args...).Scan(&c.ID, &c.Name, &c.Hidden, &c.Owner, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *PgCategoryRepository) Create(ctx context.Context, name string, filter OwnerFilter) (*Category, error) {
	const q = `INSERT INTO categories (id, name, owner) VALUES ($1,$2,$3) RETURNING hidden, created_at, updated_at`
	c := Category{ID: uuid.NewString(), Name: name, Owner: filter.Owner}
	if err := r.db.QueryRow(ctx, q, c.ID, c.Name, c.Owner).Scan(&c.Hidden, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PgCategoryRepository) Update(ctx context.Context, id string, filter OwnerFilter, input CategoryUpdateInput) (*Category, error) {
	var sets []string
	var args []any

	if input.Name != nil {
		args = append(args, strings.TrimSpace(*input.Name))
		sets = append(sets, "name=$"+strconv.Itoa(len(args)))
	}
	if input.Hidden != nil {
		args = append(args, *input.Hidden)
		sets = append(sets, "hidden=$"+strconv.Itoa(len(args)))
	}
	if len(sets) == 0 {
		return r.Find(ctx, id, filter)
	}
	sets = append(sets, "updated_at=now()")

	args = append(args, id)
	q := "UPDATE categories SET " + strings.Join(sets, ", ") +
		" WHERE id=$" + strconv.Itoa(len(args)) + " AND " + ownerCondition(filter, &args) +
		" RETURNING id, name, hidden, owner, created_at, updated_at"

	var c Category
	if err := r.db.QueryRow(ctx, q, args...).Scan(&c.ID, &c.Name, &c.Hidden, &c.Owner, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *PgCategoryRepository) Delete(ctx context.Context, id string, filter OwnerFilter) error {
	args := []any{id}
	q := `DELETE FROM categories WHERE id=$1 AND ` + ownerCondition(filter, &args)
	tag, err := r.db.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
