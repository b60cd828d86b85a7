package message

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"quicktalk/internal/app/db"
	"quicktalk/internal/pkg/randx"
)

const messageColumns = `id::text, sender_id::text, receiver_id::text, message_type, content, created_at`

// PostgresBackend stores messages in the messages table.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend returns a Backend backed by pool.
func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrStorageUnavailable, err)
}

// Insert writes m only if its receiver exists, in a single statement.
func (b *PostgresBackend) Insert(ctx context.Context, m Message) error {
	if !randx.IsValidID(m.ReceiverID) {
		return ErrReceiverNotFound
	}
	if !randx.IsValidID(m.SenderID) {
		return ErrInvalidParticipant
	}

	tag, err := b.pool.Exec(ctx,
		`INSERT INTO messages (id, sender_id, receiver_id, message_type, content, created_at)
		 SELECT $1::uuid, $2::uuid, $3::uuid, $4::text, $5::text, $6::timestamptz
		 WHERE EXISTS (SELECT 1 FROM users WHERE id = $3::uuid)`,
		m.ID, m.SenderID, m.ReceiverID, string(m.Type), m.Content, m.Timestamp,
	)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrInvalidParticipant
		}
		return unavailable("insert message", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReceiverNotFound
	}
	return nil
}

func (b *PostgresBackend) Between(ctx context.Context, a, c string, offset, limit int) ([]Message, error) {
	if !randx.IsValidID(a) || !randx.IsValidID(c) {
		return []Message{}, nil
	}

	rows, err := b.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		 ORDER BY created_at DESC, id DESC
		 OFFSET $3 LIMIT $4`,
		a, c, offset, limit)
	if err != nil {
		return nil, unavailable("query conversation", err)
	}
	return collect(rows)
}

func (b *PostgresBackend) ForUser(ctx context.Context, userID string) ([]Message, error) {
	if !randx.IsValidID(userID) {
		return []Message{}, nil
	}

	rows, err := b.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE sender_id = $1 OR receiver_id = $1
		 ORDER BY created_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, unavailable("query user messages", err)
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]Message, error) {
	defer rows.Close()

	msgs := make([]Message, 0)
	for rows.Next() {
		var m Message
		var t string
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &t, &m.Content, &m.Timestamp); err != nil {
			return nil, unavailable("scan message", err)
		}
		m.Type = Type(t)
		m.Timestamp = m.Timestamp.UTC()
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate messages", err)
	}
	return msgs, nil
}
