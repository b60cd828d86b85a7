package chat

import (
	"context"

	"github.com/rs/zerolog"

	"quicktalk/internal/app/bus"
	"quicktalk/internal/app/eventlog"
	"quicktalk/internal/app/message"
	"quicktalk/internal/app/presence"
	"quicktalk/internal/pkg/logx"
)

// Appender persists a message and returns the stored record.
type Appender interface {
	Append(ctx context.Context, sender, receiver string, t message.Type, content string) (message.Message, error)
}

// Sender is what transports call to send a message.
type Sender interface {
	Send(ctx context.Context, sender, receiver string, t message.Type, content string) (message.Message, error)
}

// Coordinator persists a message, then fans it out to both participants' personal rooms.
type Coordinator struct {
	store    Appender
	bus      bus.Publisher
	recorder eventlog.Recorder
	logger   zerolog.Logger
}

// NewCoordinator returns a Coordinator. A nil recorder means eventlog.Noop.
func NewCoordinator(store Appender, pub bus.Publisher, recorder eventlog.Recorder) *Coordinator {
	if recorder == nil {
		recorder = eventlog.Noop{}
	}
	return &Coordinator{
		store:    store,
		bus:      pub,
		recorder: recorder,
		logger:   logx.Component("delivery"),
	}
}

// Send persists the message and returns it. Delivery is attempted only after the write
// succeeded; fan-out and event-stream failures are logged, never returned.
func (c *Coordinator) Send(ctx context.Context, sender, receiver string, t message.Type, content string) (message.Message, error) {
	m, err := c.store.Append(ctx, sender, receiver, t, content)
	if err != nil {
		return message.Message{}, err
	}

	c.fanOut(ctx, m)

	if err := c.recorder.Record(ctx, m); err != nil {
		c.logger.Warn().Err(err).Str("message_id", m.ID).Msg("Failed to record message on event stream.")
	}

	return m, nil
}

func (c *Coordinator) fanOut(ctx context.Context, m message.Message) {
	ev, err := presence.NewEvent(presence.EventMessageReceived, m)
	if err != nil {
		c.logger.Warn().Err(err).Str("message_id", m.ID).Msg("Failed to build message_received event.")
		return
	}

	rooms := []string{m.ReceiverID}
	if m.SenderID != m.ReceiverID {
		rooms = append(rooms, m.SenderID)
	}

	if err := c.bus.Publish(ctx, bus.RouteRequest{Rooms: rooms, Event: ev}); err != nil {
		c.logger.Warn().Err(err).
			Str("message_id", m.ID).
			Str("receiver_id", m.ReceiverID).
			Msg("Failed to publish message for delivery; it stays in history.")
	}
}
