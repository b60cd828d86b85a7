package message

import (
	"context"
	"sort"
	"sync"
)

// UserChecker answers whether a user id is registered.
type UserChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// MemoryBackend keeps messages in process memory. It backs the "memory" store driver and tests.
type MemoryBackend struct {
	mu    sync.RWMutex
	users UserChecker
	msgs  []Message
}

// NewMemoryBackend returns an empty MemoryBackend that resolves receivers through users.
func NewMemoryBackend(users UserChecker) *MemoryBackend {
	return &MemoryBackend{users: users}
}

func (b *MemoryBackend) Insert(ctx context.Context, m Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ok, err := b.users.Exists(ctx, m.ReceiverID)
	if err != nil {
		return unavailable("check receiver", err)
	}
	if !ok {
		return ErrReceiverNotFound
	}

	b.msgs = append(b.msgs, m)
	return nil
}

func (b *MemoryBackend) Between(_ context.Context, a, c string, offset, limit int) ([]Message, error) {
	matched := b.filter(func(m Message) bool {
		return (m.SenderID == a && m.ReceiverID == c) || (m.SenderID == c && m.ReceiverID == a)
	})

	if offset >= len(matched) {
		return []Message{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (b *MemoryBackend) ForUser(_ context.Context, userID string) ([]Message, error) {
	return b.filter(func(m Message) bool {
		return m.SenderID == userID || m.ReceiverID == userID
	}), nil
}

// filter returns a newest-first copy of the messages matching keep.
func (b *MemoryBackend) filter(keep func(Message) bool) []Message {
	b.mu.RLock()
	out := make([]Message, 0)
	for _, m := range b.msgs {
		if keep(m) {
			out = append(out, m)
		}
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return newer(out[i], out[j]) })
	return out
}
