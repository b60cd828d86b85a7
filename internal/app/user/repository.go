package user

import "context"

// DefaultSearchLimit caps the number of rows returned by Search.
const DefaultSearchLimit = 50

// Repository persists users. Implementations return ErrNotFound, ErrEmailTaken or an error
// wrapping ErrStorageUnavailable.
type Repository interface {
	Create(ctx context.Context, u User) error
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)

	// GetMany returns the users that exist among ids, keyed by id.
	GetMany(ctx context.Context, ids []string) (map[string]User, error)

	// Exists reports whether id names a stored user.
	Exists(ctx context.Context, id string) (bool, error)

	Update(ctx context.Context, u User) error

	// Search matches fullName case-insensitively; an empty query lists users.
	Search(ctx context.Context, query string, limit int) ([]User, error)
}
