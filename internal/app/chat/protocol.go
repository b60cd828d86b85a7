package chat

import "time"

// Inbound payloads.

type AuthenticatePayload struct {
	Token string `json:"token"`
}

type RoomPayload struct {
	RoomID string `json:"roomId"`
}

// TypingPayload addresses either a user (their personal room) or a chat room.
type TypingPayload struct {
	ReceiverID string `json:"receiverId,omitempty"`
	ChatID     string `json:"chatId,omitempty"`
	IsTyping   bool   `json:"isTyping"`
}

// Target returns the room the indicator goes to; chatId wins over receiverId.
func (p TypingPayload) Target() string {
	if p.ChatID != "" {
		return p.ChatID
	}
	return p.ReceiverID
}

type SendMessagePayload struct {
	ReceiverID  string `json:"receiverId"`
	MessageType string `json:"messageType"`
	Content     string `json:"content"`
	TempID      string `json:"tempId,omitempty"`
}

// Outbound payloads.

type AuthenticatedPayload struct {
	UserID string `json:"userId"`
}

type AckPayload struct {
	TempID    string    `json:"tempId,omitempty"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	TempID  string `json:"tempId,omitempty"`
}
