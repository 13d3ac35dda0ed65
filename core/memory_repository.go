package core

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// In-memory repository implementations with the same semantics as the
// postgres ones. Used by tests and useful for running the API without a
// database.

type MemUserRepository struct {
	mu    sync.Mutex
	users map[string]*UserRecord // keyed by username_lower
}

func NewMemUserRepository() *MemUserRepository {
	return &MemUserRepository{users: make(map[string]*UserRecord)}
}

func (r *MemUserRepository) FindByUsernameLower(_ context.Context, usernameLower string) (*UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[usernameLower]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *MemUserRepository) Create(_ context.Context, user *UserRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(user.UsernameLower)
	if _, ok := r.users[key]; ok {
		return ErrDuplicateUsername
	}
	user.CreatedAt = time.Now()
	copied := *user
	r.users[key] = &copied
	return nil
}

type MemCategoryRepository struct {
	mu         sync.Mutex
	categories map[string]*Category
	seq        map[string]int // insertion order for stable listing
	nextSeq    int
}

func NewMemCategoryRepository() *MemCategoryRepository {
	return &MemCategoryRepository{
		categories: make(map[string]*Category),
		seq:        make(map[string]int),
	}
}

func ownerMatches(owner, filterOwner *string) bool {
	if filterOwner == nil {
		return owner == nil
	}
	return owner != nil && *owner == *filterOwner
}

func (r *MemCategoryRepository) List(_ context.Context, filter OwnerFilter, view string) ([]Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]Category, 0)
	for _, c := range r.categories {
		if !ownerMatches(c.Owner, filter.Owner) {
			continue
		}
		switch view {
		case ViewHidden:
			if !c.Hidden {
				continue
			}
		case ViewAll:
		default:
			if c.Hidden {
				continue
			}
		}
		list = append(list, *c)
	}
	sort.Slice(list, func(i, j int) bool { return r.seq[list[i].ID] < r.seq[list[j].ID] })
	return list, nil
}

func (r *MemCategoryRepository) Find(_ context.Context, id string, filter OwnerFilter) (*Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.categories[id]
	if !ok || !ownerMatches(c.Owner, filter.Owner) {
		return nil, ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *MemCategoryRepository) Create(_ context.Context, name string, filter OwnerFilter) (*Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	c := &Category{
		ID:        uuid.NewString(),
		Name:      name,
		Owner:     filter.Owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.categories[c.ID] = c
	r.seq[c.ID] = r.nextSeq
	r.nextSeq++
	copied := *c
	return &copied, nil
}

func (r *MemCategoryRepository) Update(_ context.Context, id string, filter OwnerFilter, input CategoryUpdateInput) (*Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.categories[id]
	if !ok || !ownerMatches(c.Owner, filter.Owner) {
		return nil, ErrNotFound
	}
	if input.Name != nil {
		c.Name = strings.TrimSpace(*input.Name)
	}
	if input.Hidden != nil {
		c.Hidden = *input.Hidden
	}
	if input.Name != nil || input.Hidden != nil {
		c.UpdatedAt = time.Now()
	}
	copied := *c
	return &copied, nil
}

func (r *MemCategoryRepository) Delete(_ context.Context, id string, filter OwnerFilter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.categories[id]
	if !ok || !ownerMatches(c.Owner, filter.Owner) {
		return ErrNotFound
	}
	delete(r.categories, id)
	delete(r.seq, id)
	return nil
}

type MemItemRepository struct {
	mu      sync.Mutex
	items   map[string]*Item
	seq     map[string]int
	nextSeq int
}

func NewMemItemRepository() *MemItemRepository {
	return &MemItemRepository{
		items: make(map[string]*Item),
		seq:   make(map[string]int),
	}
}

func (r *MemItemRepository) ListByCategory(_ context.Context, categoryID string) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]Item, 0)
	for _, i := range r.items {
		if i.CategoryID == categoryID {
			list = append(list, *i)
		}
	}
	sort.Slice(list, func(a, b int) bool { return r.seq[list[a].ID] < r.seq[list[b].ID] })
	return list, nil
}

func (r *MemItemRepository) Find(_ context.Context, id string) (*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *i
	return &copied, nil
}

func (r *MemItemRepository) Create(_ context.Context, categoryID, name string, filter OwnerFilter) (*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	i := &Item{
		ID:         uuid.NewString(),
		CategoryID: categoryID,
		Name:       name,
		Need:       true,
		Owner:      filter.Owner,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.items[i.ID] = i
	r.seq[i.ID] = r.nextSeq
	r.nextSeq++
	copied := *i
	return &copied, nil
}

func (r *MemItemRepository) Update(_ context.Context, id string, input ItemUpdateInput) (*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	changed := false
	if input.Name != nil {
		i.Name = strings.TrimSpace(*input.Name)
		changed = true
	}
	if input.Hidden != nil {
		i.Hidden = *input.Hidden
		changed = true
	}
	if input.Need != nil {
		i.Need = *input.Need
		changed = true
	}
	if input.Notes != nil {
		i.Notes = strings.TrimSpace(*input.Notes)
		changed = true
	}
	if input.Location != nil {
		i.Location = strings.TrimSpace(*input.Location)
		changed = true
	}
	if changed {
		i.UpdatedAt = time.Now()
	}
	copied := *i
	return &copied, nil
}

func (r *MemItemRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	delete(r.seq, id)
	return nil
}

func (r *MemItemRepository) DeleteByCategory(_ context.Context, categoryID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, i := range r.items {
		if i.CategoryID == categoryID {
			delete(r.items, id)
			delete(r.seq, id)
		}
	}
	return nil
}
