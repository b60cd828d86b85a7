package message

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quicktalk/internal/pkg/randx"
)

// Backend is the persistence boundary of the Store. Backends only see sanitized text and
// validated payload URLs.
type Backend interface {
	// Insert stores m atomically, returning ErrReceiverNotFound when m.ReceiverID names no user.
	Insert(ctx context.Context, m Message) error

	// Between returns messages exchanged by a and b, newest first, skipping offset rows.
	Between(ctx context.Context, a, b string, offset, limit int) ([]Message, error)

	// ForUser returns every message sent or received by userID, newest first.
	ForUser(ctx context.Context, userID string) ([]Message, error)
}

// Store is the message log used by the rest of the server.
type Store struct {
	backend   Backend
	sanitizer *Sanitizer
	now       func() time.Time
}

// Option customises a Store.
type Option func(*Store)

// WithClock replaces the wall clock used to timestamp messages.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithSanitizer replaces the default allow-list sanitizer.
func WithSanitizer(san *Sanitizer) Option {
	return func(s *Store) { s.sanitizer = san }
}

// NewStore returns a Store writing through backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:   backend,
		sanitizer: NewSanitizer(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append validates, sanitizes, timestamps and persists a message from sender to receiver.
func (s *Store) Append(ctx context.Context, sender, receiver string, t Type, content string) (Message, error) {
	sender, receiver = randx.CanonicalID(sender), randx.CanonicalID(receiver)
	if sender == "" || receiver == "" {
		return Message{}, ErrInvalidParticipant
	}

	if _, err := ParseType(string(t)); err != nil {
		return Message{}, err
	}

	content, err := validateContent(t, content)
	if err != nil {
		return Message{}, err
	}

	if t == TypeText {
		content = s.sanitizer.Sanitize(content)
		if content == "" {
			return Message{}, ErrContentEmpty
		}
	} else if err := validatePayloadURL(content); err != nil {
		return Message{}, err
	}

	m := Message{
		ID:         randx.NewID(),
		SenderID:   sender,
		ReceiverID: receiver,
		Type:       t,
		Content:    content,
		Timestamp:  s.now().UTC().Truncate(time.Microsecond),
	}

	if err := s.backend.Insert(ctx, m); err != nil {
		return Message{}, classify("append message", err)
	}
	return m, nil
}

// ListBetween returns page (1-based) of the conversation between a and b, oldest first.
// HasMore is true when the page is full.
func (s *Store) ListBetween(ctx context.Context, a, b string, page, pageSize int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	msgs, err := s.backend.Between(ctx, randx.CanonicalID(a), randx.CanonicalID(b), (page-1)*pageSize, pageSize)
	if err != nil {
		return Page{}, classify("list conversation", err)
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	if msgs == nil {
		msgs = []Message{}
	}

	return Page{Messages: msgs, HasMore: len(msgs) == pageSize}, nil
}

// ListForUser returns every message userID sent or received, newest first.
func (s *Store) ListForUser(ctx context.Context, userID string) ([]Message, error) {
	msgs, err := s.backend.ForUser(ctx, randx.CanonicalID(userID))
	if err != nil {
		return nil, classify("list user messages", err)
	}
	return msgs, nil
}

// classify keeps the domain sentinels and folds everything else into ErrStorageUnavailable.
func classify(op string, err error) error {
	if errors.Is(err, ErrReceiverNotFound) || errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%s: %w: %v", op, ErrStorageUnavailable, err)
}
