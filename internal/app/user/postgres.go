package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"quicktalk/internal/app/db"
	"quicktalk/internal/pkg/randx"
)

const userColumns = `id::text, email, full_name, password_hash, pic, bio, gender, created_at, updated_at`

// PostgresRepository stores users in the users table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a Repository backed by pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrStorageUnavailable, err)
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	var gender string
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.Pic, &u.Bio, &gender, &u.CreatedAt, &u.UpdatedAt)
	u.Gender = Gender(gender)
	return u, err
}

func (r *PostgresRepository) Create(ctx context.Context, u User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, full_name, password_hash, pic, bio, gender, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Email, u.FullName, u.PasswordHash, u.Pic, u.Bio, string(u.Gender), u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrEmailTaken
		}
		return unavailable("create user", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (User, error) {
	if !randx.IsValidID(id) {
		return User{}, ErrNotFound
	}

	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if db.IsNotFound(err) {
			return User{}, ErrNotFound
		}
		return User{}, unavailable("get user", err)
	}
	return u, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		if db.IsNotFound(err) {
			return User{}, ErrNotFound
		}
		return User{}, unavailable("get user by email", err)
	}
	return u, nil
}

func (r *PostgresRepository) GetMany(ctx context.Context, ids []string) (map[string]User, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if randx.IsValidID(id) {
			valid = append(valid, id)
		}
	}

	out := make(map[string]User, len(valid))
	if len(valid) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1::uuid[])`, valid)
	if err != nil {
		return nil, unavailable("get users", err)
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, unavailable("scan user", err)
		}
		out[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate users", err)
	}
	return out, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, id string) (bool, error) {
	if !randx.IsValidID(id) {
		return false, nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, unavailable("check user", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Update(ctx context.Context, u User) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET email = $2, full_name = $3, pic = $4, bio = $5, gender = $6, updated_at = $7
		 WHERE id = $1`,
		u.ID, u.Email, u.FullName, u.Pic, u.Bio, string(u.Gender), u.UpdatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrEmailTaken
		}
		if db.IsNotFound(err) {
			return ErrNotFound
		}
		return unavailable("update user", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Search(ctx context.Context, query string, limit int) ([]User, error) {
	if limit <= 0 || limit > DefaultSearchLimit {
		limit = DefaultSearchLimit
	}

	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(query))) + "%"

	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(full_name) LIKE $1 ORDER BY full_name LIMIT $2`,
		pattern, limit)
	if err != nil {
		return nil, unavailable("search users", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, unavailable("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate users", err)
	}
	return users, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
