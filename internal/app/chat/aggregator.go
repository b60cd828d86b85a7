/*
Package chat composes the message log, the presence router and the bus into the operations the
transport layer calls: building a user's chat list, sending a message, and serving one
websocket client.
*/
package chat

import (
	"context"
	"sort"
	"time"

	"quicktalk/internal/app/message"
	"quicktalk/internal/app/user"
)

// MessageLister lists every message a user took part in, newest first.
type MessageLister interface {
	ListForUser(ctx context.Context, userID string) ([]message.Message, error)
}

// UserLookup resolves many users in one call.
type UserLookup interface {
	GetMany(ctx context.Context, ids []string) (map[string]user.User, error)
}

// ConversationSummary is one row of a chat list.
type ConversationSummary struct {
	UserID               string    `json:"userId"`
	FullName             string    `json:"fullName"`
	Email                string    `json:"email"`
	Pic                  string    `json:"pic,omitempty"`
	LastMessage          string    `json:"lastMessage"`
	LastMessageType      string    `json:"lastMessageType"`
	LastMessageTimestamp time.Time `json:"lastMessageTimestamp"`
}

// Aggregator derives chat lists from the message log.
type Aggregator struct {
	messages MessageLister
	users    UserLookup
}

func NewAggregator(messages MessageLister, users UserLookup) *Aggregator {
	return &Aggregator{messages: messages, users: users}
}

// BuildChatList returns one summary per conversation partner of userID, most recent first.
// A user with no messages gets an empty list.
func (a *Aggregator) BuildChatList(ctx context.Context, userID string) ([]ConversationSummary, error) {
	msgs, err := a.messages.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0)
	if len(msgs) == 0 {
		return summaries, nil
	}

	index := make(map[string]int)
	for _, m := range msgs {
		partner := m.PartnerOf(userID)
		if i, seen := index[partner]; seen {
			// Input is newest first; only a strictly newer message may replace the summary.
			if m.Timestamp.After(summaries[i].LastMessageTimestamp) {
				summaries[i].LastMessage = m.Content
				summaries[i].LastMessageType = string(m.Type)
				summaries[i].LastMessageTimestamp = m.Timestamp
			}
			continue
		}

		index[partner] = len(summaries)
		summaries = append(summaries, ConversationSummary{
			UserID:               partner,
			LastMessage:          m.Content,
			LastMessageType:      string(m.Type),
			LastMessageTimestamp: m.Timestamp,
		})
	}

	ids := make([]string, 0, len(summaries))
	for _, s := range summaries {
		ids = append(ids, s.UserID)
	}

	partners, err := a.users.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range summaries {
		if u, ok := partners[summaries[i].UserID]; ok {
			summaries[i].FullName = u.FullName
			summaries[i].Email = u.Email
			summaries[i].Pic = u.Pic
		}
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastMessageTimestamp.After(summaries[j].LastMessageTimestamp)
	})
	return summaries, nil
}
