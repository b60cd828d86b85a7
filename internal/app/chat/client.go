package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"quicktalk/internal/app/message"
	"quicktalk/internal/app/presence"
	"quicktalk/internal/pkg/errs"
	"quicktalk/internal/pkg/limiter"
	"quicktalk/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 16384

	// sendTimeout bounds one send_message round trip to the store.
	sendTimeout = 10 * time.Second
)

// TokenVerifier resolves an access token to the identity it was issued to.
type TokenVerifier func(token string) (string, error)

// SendLimiter decides whether an address may send another message.
type SendLimiter interface {
	AllowOrFailOpen(ctx context.Context, key string) limiter.Decision
}

// ClientDeps are the collaborators shared by every websocket client.
type ClientDeps struct {
	Router  *presence.Router
	Sender  Sender
	Limiter SendLimiter
	Verify  TokenVerifier
}

// Client is one websocket connection: a read pump that turns frames into router and
// coordinator calls, and a write pump that drains the connection's outbound queue.
type Client struct {
	deps ClientDeps

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// router-side handle of this connection.
	pc *presence.Conn

	// client address used as the send rate limit key.
	addr string

	ctx    context.Context
	logger zerolog.Logger
}

// NewClient wraps wsConn. ctx bounds the store calls the client makes and is usually the
// server's base context.
func NewClient(ctx context.Context, deps ClientDeps, wsConn *websocket.Conn, pc *presence.Conn, addr string) *Client {
	return &Client{
		deps: deps,
		conn: wsConn,
		pc:   pc,
		addr: addr,
		ctx:  ctx,
		logger: logx.Logger().With().
			Str("component", "ws_client").
			Str("conn_id", pc.ID()).
			Logger(),
	}
}

// Authenticate binds the connection to the identity behind token and confirms it to the client.
func (c *Client) Authenticate(token string) error {
	identity, err := c.deps.Verify(token)
	if err != nil {
		return errs.NewError(errs.ErrUnauthorized)
	}

	if err := c.deps.Router.Authenticate(c.pc, identity); err != nil {
		return err
	}

	c.logger.Debug().Str("user_id", identity).Msg("Client authenticated.")
	c.push(presence.EventAuthenticated, AuthenticatedPayload{UserID: identity})
	return nil
}

// Reject writes err as a single error event and closes the connection. It is used before Serve.
func (c *Client) Reject(err error) {
	c.sendError(err, "")
	c.deps.Router.Disconnect(c.pc)

	for frame := range c.pc.Send() {
		if !c.writeQueuedMessage(frame, true) {
			break
		}
	}
	c.writeQueuedMessage(nil, false)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// Serve runs the write pump in the background and the read pump until the connection ends.
func (c *Client) Serve() {
	go c.WritePump()
	c.ReadPump()
}

// ReadPump reads frames until the connection fails, then disconnects it from the router.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		c.pc.Touch(time.Now())
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			return
		}

		c.pc.Touch(time.Now())
		c.processInboundMessage(frame)
	}
}

// cleanupOnDisconnect releases every room membership and the directory entry.
func (c *Client) cleanupOnDisconnect() {
	c.deps.Router.Disconnect(c.pc)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

func (c *Client) processInboundMessage(frame []byte) {
	var in presence.Event
	if err := json.Unmarshal(frame, &in); err != nil {
		c.logger.Warn().Err(err).Int("frame_bytes", len(frame)).Msg("Client sent invalid JSON")
		c.sendError(errs.NewError(errs.ErrInvalidJSONFormat), "")
		return
	}

	switch in.Type {
	case presence.EventAuthenticate:
		var p AuthenticatePayload
		if !c.decode(in, &p) {
			return
		}
		if err := c.Authenticate(p.Token); err != nil {
			c.sendError(err, "")
		}

	case presence.EventJoinRoom:
		var p RoomPayload
		if !c.decode(in, &p) {
			return
		}
		if err := c.deps.Router.Join(c.pc, p.RoomID); err != nil {
			c.sendError(err, "")
		}

	case presence.EventLeaveRoom:
		var p RoomPayload
		if !c.decode(in, &p) {
			return
		}
		if err := c.deps.Router.Leave(c.pc, p.RoomID); err != nil {
			c.sendError(err, "")
		}

	case presence.EventTyping:
		var p TypingPayload
		if !c.decode(in, &p) {
			return
		}
		if err := c.deps.Router.NotifyTyping(c.pc, p.Target(), p.IsTyping); err != nil {
			c.sendError(err, "")
		}

	case presence.EventSendMessage:
		var p SendMessagePayload
		if !c.decode(in, &p) {
			return
		}
		c.handleSendMessage(p)

	default:
		c.logger.Warn().Str("msg_type", string(in.Type)).Msg("Client sent unsupported message type")
		c.sendError(errs.NewError(errs.ErrInvalidParams), "")
	}
}

func (c *Client) handleSendMessage(p SendMessagePayload) {
	if c.pc.State() != presence.StateAuthenticated {
		c.sendError(presence.ErrNotAuthenticated, p.TempID)
		return
	}

	if !c.deps.Limiter.AllowOrFailOpen(c.ctx, c.addr).Allowed {
		c.sendError(errs.NewError(errs.ErrRateLimitExceeded), p.TempID)
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, sendTimeout)
	defer cancel()

	m, err := c.deps.Sender.Send(ctx, c.pc.Identity(), p.ReceiverID, message.Type(p.MessageType), p.Content)
	if err != nil {
		c.sendError(err, p.TempID)
		return
	}

	c.push(presence.EventMessageAck, AckPayload{TempID: p.TempID, ID: m.ID, Timestamp: m.Timestamp})
}

func (c *Client) decode(in presence.Event, dst any) bool {
	if len(in.Payload) == 0 {
		c.sendError(errs.NewError(errs.ErrInvalidParams), "")
		return false
	}
	if err := in.Decode(dst); err != nil {
		c.logger.Warn().Err(err).Str("msg_type", string(in.Type)).Msg("Client sent invalid payload")
		c.sendError(errs.NewError(errs.ErrInvalidParams), "")
		return false
	}
	return true
}

// WritePump drains the outbound queue to the socket and keeps the heartbeat going.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.pc.Send():
			if !c.writeQueuedMessage(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage writes one queued frame. It returns false when the pump should stop.
func (c *Client) writeQueuedMessage(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// push queues an event for this connection only.
func (c *Client) push(t presence.EventType, payload any) {
	ev, err := presence.NewEvent(t, payload)
	if err != nil {
		c.logger.Error().Err(err).Str("event", string(t)).Msg("Failed to build event")
		return
	}

	frame, err := json.Marshal(ev)
	if err != nil {
		c.logger.Error().Err(err).Str("event", string(t)).Msg("Failed to encode event")
		return
	}

	if !c.pc.Push(frame) {
		c.logger.Warn().Str("event", string(t)).Msg("Client send channel full or closed, dropping message")
	}
}

// sendError reports err to the client as an error event.
func (c *Client) sendError(err error, tempID string) {
	customErr := errs.FromDomain(err)
	c.push(presence.EventError, ErrorPayload{
		Code:    customErr.Code,
		Message: customErr.Message,
		TempID:  tempID,
	})
}
