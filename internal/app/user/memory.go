package user

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepository keeps users in process memory. It backs the "memory" store driver and tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]User
	byEmail map[string]string
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]User),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryRepository) Create(_ context.Context, u User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[u.Email]; ok {
		return ErrEmailTaken
	}
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return User{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryRepository) GetMany(_ context.Context, ids []string) (map[string]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]User, len(ids))
	for _, id := range ids {
		if u, ok := r.byID[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (r *MemoryRepository) Exists(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byID[id]
	return ok, nil
}

func (r *MemoryRepository) Update(_ context.Context, u User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.byID[u.ID]
	if !ok {
		return ErrNotFound
	}

	if u.Email != old.Email {
		if _, taken := r.byEmail[u.Email]; taken {
			return ErrEmailTaken
		}
		delete(r.byEmail, old.Email)
		r.byEmail[u.Email] = u.ID
	}

	u.PasswordHash = old.PasswordHash
	u.CreatedAt = old.CreatedAt
	r.byID[u.ID] = u
	return nil
}

func (r *MemoryRepository) Search(_ context.Context, query string, limit int) ([]User, error) {
	if limit <= 0 || limit > DefaultSearchLimit {
		limit = DefaultSearchLimit
	}
	query = strings.ToLower(strings.TrimSpace(query))

	r.mu.RLock()
	users := make([]User, 0)
	for _, u := range r.byID {
		if strings.Contains(strings.ToLower(u.FullName), query) {
			users = append(users, u)
		}
	}
	r.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i].FullName < users[j].FullName })
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}
