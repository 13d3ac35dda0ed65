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

type Item struct {
	ID         string    `json:"id"`
	CategoryID string    `json:"categoryId"`
	Name       string    `json:"name"`
	Hidden     bool      `json:"hidden"`
	Need       bool      `json:"need"`
	Notes      string    `json:"notes"`
	Location   string    `json:"location"`
	Owner      *string   `json:"owner"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ItemUpdateInput holds the partial-update fields; nil means unchanged.
type ItemUpdateInput struct {
	Name     *string
	Hidden   *bool
	Need     *bool
	Notes    *string
	Location *string
}

// ItemRepository defines persistence operations for items. Ownership is not
// checked here: callers resolve the owning category first and item access
// follows the category's scope.
type ItemRepository interface {
	ListByCategory(ctx context.Context, categoryID string) ([]Item, error)
	Find(ctx context.Context, id string) (*Item, error)
	Create(ctx context.Context, categoryID, name string, filter OwnerFilter) (*Item, error)
	Update(ctx context.Context, id string, input ItemUpdateInput) (*Item, error)
	Delete(ctx context.Context, id string) error
	DeleteByCategory(ctx context.Context, categoryID string) error
}

const itemColumns = `id, category_id, name, hidden, need, notes, location, owner, created_at, updated_at`

// PgItemRepository implements ItemRepository using pgxpool.
type PgItemRepository struct {
	db *pgxpool.Pool
}

func NewPgItemRepository(db *pgxpool.Pool) *PgItemRepository {
	return &PgItemRepository{db: db}
}

func scanItem(row pgx.Row, i *Item) error {
	return row.Scan(&i.ID, &i.CategoryID, &i.Name, &i.Hidden, &i.Need, &i.Notes, &i.Location, &i.Owner, &i.CreatedAt, &i.UpdatedAt)
}

func (r *PgItemRepository) ListByCategory(ctx context.Context, categoryID string) ([]Item, error) {
	const q = `SELECT ` + itemColumns + ` FROM items WHERE category_id=$1 ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, q, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var i Item
		if err := rows.Scan(&i.ID, &i.CategoryID, &i.Name, &i.Hidden, &i.Need, &i.Notes, &i.Location, &i.Owner, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (r *PgItemRepository) Find(ctx context.Context, id string) (*Item, error) {
	const q = `SELECT ` + itemColumns + ` FROM items WHERE id=$1`
	var i Item
	if err := scanItem(r.db.QueryRow(ctx, q, id), &i); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &i, nil
}

func (r *PgItemRepository) Create(ctx context.Context, categoryID, name string, filter OwnerFilter) (*Item, error) {
	const q = `INSERT INTO items (id, category_id, name, owner) VALUES ($1,$2,$3,$4)
RETURNING hidden, need, notes, location, created_at, updated_at`
	i := Item{ID: uuid.NewString(), CategoryID: categoryID, Name: name, Owner: filter.Owner}
	if err := r.db.QueryRow(ctx, q, i.ID, i.CategoryID, i.Name, i.Owner).Scan(&i.Hidden, &i.Need, &i.Notes, &i.Location, &i.CreatedAt, &i.UpdatedAt); err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *PgItemRepository) Update(ctx context.Context, id string, input ItemUpdateInput) (*Item, error) {
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
	if input.Need != nil {
		args = append(args, *input.Need)
		sets = append(sets, "need=$"+strconv.Itoa(len(args)))
	}
	if input.Notes != nil {
		args = append(args, strings.TrimSpace(*input.Notes))
		sets = append(sets, "notes=$"+strconv.Itoa(len(args)))
	}
	if input.Location != nil {
		args = append(args, strings.TrimSpace(*input.Location))
		sets = append(sets, "location=$"+strconv.Itoa(len(args)))
	}
	if len(sets) == 0 {
		return r.Find(ctx, id)
	}
	sets = append(sets, "updated_at=now()")

	args = append(args, id)
	q := "UPDATE items SET " + strings.Join(sets, ", ") +
		" WHERE id=$" + strconv.Itoa(len(args)) +
		" RETURNING " + itemColumns

	var i Item
	if err := scanItem(r.db.QueryRow(ctx, q, args...), &i); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &i, nil
}

func (r *PgItemRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM items WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgItemRepository) DeleteByCategory(ctx context.Context, categoryID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM items WHERE category_id=$1`, categoryID)
	return err
}
