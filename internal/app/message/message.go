/*
Package message is the durable message log.

Store validates, sanitizes and timestamps every message before handing it to a Backend, so
anything a Backend holds is already safe to render. Two backends exist: PostgresBackend for
production and MemoryBackend for local runs and tests.
*/
package message

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxTextLength is the character limit for text content.
	MaxTextLength = 2000

	// MaxPayloadLength bounds the content of audio/image/file messages, which carry a URL or
	// storage key rather than prose.
	MaxPayloadLength = 4096

	// DefaultPageSize is used when a caller passes a non-positive page size.
	DefaultPageSize = 50

	// MaxPageSize caps a single conversation page.
	MaxPageSize = 200
)

var (
	ErrInvalidType        = errors.New("invalid message type")
	ErrContentEmpty       = errors.New("message content is empty")
	ErrContentTooLong     = errors.New("message content too long")
	ErrInvalidParticipant = errors.New("sender and receiver are required")
	ErrReceiverNotFound   = errors.New("receiver not found")
	ErrInvalidPayloadURL  = errors.New("message payload must be an http, https or data URL")
	ErrStorageUnavailable = errors.New("message storage unavailable")
)

// LengthError is ErrContentTooLong with the character limit that applied.
type LengthError struct {
	Limit int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("message content too long (limit %d characters)", e.Limit)
}

func (e *LengthError) Unwrap() error { return ErrContentTooLong }

// Type is the kind of payload a message carries.
type Type string

const (
	TypeText  Type = "text"
	TypeAudio Type = "audio"
	TypeImage Type = "image"
	TypeFile  Type = "file"
)

// ParseType returns the Type named by s or ErrInvalidType.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeText, TypeAudio, TypeImage, TypeFile:
		return t, nil
	}
	return "", ErrInvalidType
}

// Message is an immutable stored message.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Type       Type      `json:"messageType"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

// PartnerOf returns the other participant of m as seen by userID.
func (m Message) PartnerOf(userID string) string {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Page is one slice of a conversation, oldest message first.
type Page struct {
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"hasMore"`
}

// validateContent checks raw content against the bounds for t and returns it trimmed.
func validateContent(t Type, content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrContentEmpty
	}

	limit := MaxPayloadLength
	if t == TypeText {
		limit = MaxTextLength
	}
	if utf8.RuneCountInString(content) > limit {
		return "", &LengthError{Limit: limit}
	}

	return content, nil
}

// payloadSchemes are the URL schemes audio, image and file messages may point at.
var payloadSchemes = map[string]bool{"http": true, "https": true, "data": true}

// validatePayloadURL accepts an absolute http(s) URL with a host, or a data URL. The URL is
// stored verbatim, so characters that could break out of an HTML attribute are refused.
func validatePayloadURL(raw string) error {
	if strings.ContainsAny(raw, " \t\r\n<>\"'`") {
		return ErrInvalidPayloadURL
	}

	u, err := url.Parse(raw)
	if err != nil || !payloadSchemes[u.Scheme] {
		return ErrInvalidPayloadURL
	}
	if u.Scheme == "data" {
		if u.Opaque == "" {
			return ErrInvalidPayloadURL
		}
		return nil
	}
	if u.Host == "" {
		return ErrInvalidPayloadURL
	}
	return nil
}

// newer orders messages newest first, breaking timestamp ties by id.
func newer(a, b Message) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.ID > b.ID
}
