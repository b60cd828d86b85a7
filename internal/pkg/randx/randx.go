/*
Package randx generates identifiers: UUIDs for persisted records and short Base62 handles for
live connections.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	// Base62Chars is the alphabet used for connection handles (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// ConnectionIDLength is the number of Base62 characters in a connection handle.
	ConnectionIDLength = 12

	connectionIDPrefix = "conn_"
)

var base62Len = big.NewInt(int64(len(Base62Chars)))

// NewID returns a random UUID v4 string for users and messages.
func NewID() string {
	return uuid.New().String()
}

// IsValidID reports whether id parses as a UUID.
func IsValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// CanonicalID returns id in the lowercase hyphenated form NewID produces when it parses as a
// UUID, and id unchanged otherwise.
func CanonicalID(id string) string {
	u, err := uuid.Parse(id)
	if err != nil {
		return id
	}
	return u.String()
}

// ConnectionID returns a crypto-random handle such as "conn_4fZq81Kd0aPx".
func ConnectionID() (string, error) {
	buf := make([]byte, ConnectionIDLength)

	for i := range buf {
		n, err := rand.Int(rand.Reader, base62Len)
		if err != nil {
			return "", fmt.Errorf("failed to generate connection id: %w", err)
		}
		buf[i] = Base62Chars[n.Int64()]
	}

	return connectionIDPrefix + string(buf), nil
}
