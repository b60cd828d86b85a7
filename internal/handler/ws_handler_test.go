package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"quicktalk/internal/app/chat"
	"quicktalk/internal/app/message"
	"quicktalk/internal/app/presence"
	"quicktalk/internal/pkg/errs"
	"quicktalk/internal/pkg/limiter"
)

func (a *testApp) dial(query string) *websocket.Conn {
	a.t.Helper()

	url := "ws" + strings.TrimPrefix(a.server.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		a.t.Fatalf("dial %s: %v", url, err)
	}
	a.t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, typ presence.EventType, payload any) {
	t.Helper()

	ev, err := presence.NewEvent(typ, payload)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	if err := conn.WriteJSON(ev); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) presence.Event {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	var ev presence.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return ev
}

func expectEvent(t *testing.T, conn *websocket.Conn, want presence.EventType, dst any) {
	t.Helper()

	ev := readEvent(t, conn)
	if ev.Type != want {
		t.Fatalf("event = %s %s, want %s", ev.Type, ev.Payload, want)
	}
	if dst != nil {
		if err := ev.Decode(dst); err != nil {
			t.Fatalf("Decode: %v", err)
		}
	}
}

// waitOnline polls until identity has a registered connection.
func (a *testApp) waitOnline(identity string) {
	a.t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !a.deps.Router.Directory().Online(identity) {
		if time.Now().After(deadline) {
			a.t.Fatalf("%s never came online", identity)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketAuthenticateThenReceive(t *testing.T) {
	app := newTestApp(t, 100)
	aliceID, aliceToken := app.signup("alice@example.com", "Alice")
	bobID, bobToken := app.signup("bob@example.com", "Bob")

	bob := app.dial("")
	sendEvent(t, bob, presence.EventJoinRoom, chat.RoomPayload{RoomID: "lobby"})
	var notAuthed chat.ErrorPayload
	expectEvent(t, bob, presence.EventError, &notAuthed)
	if notAuthed.Code != errs.ErrNotAuthenticated {
		t.Fatalf("join before auth = %+v", notAuthed)
	}

	sendEvent(t, bob, presence.EventAuthenticate, chat.AuthenticatePayload{Token: bobToken})
	var authed chat.AuthenticatedPayload
	expectEvent(t, bob, presence.EventAuthenticated, &authed)
	if authed.UserID != bobID {
		t.Fatalf("authenticated as %q", authed.UserID)
	}

	if status, env := app.do(http.MethodPost, "/api/messages", aliceToken,
		CreateMessageInput{ReceiverID: bobID, MessageType: "text", Content: "ping"}); status != http.StatusCreated {
		t.Fatalf("send = %d %+v", status, env)
	}

	var got message.Message
	expectEvent(t, bob, presence.EventMessageReceived, &got)
	if got.SenderID != aliceID || got.Content != "ping" {
		t.Fatalf("received %+v", got)
	}
}

func TestWebSocketSendMessageAcksAndFansOut(t *testing.T) {
	app := newTestApp(t, 100)
	aliceID, aliceToken := app.signup("alice@example.com", "Alice")
	bobID, bobToken := app.signup("bob@example.com", "Bob")

	alice := app.dial("?token=" + aliceToken)
	expectEvent(t, alice, presence.EventAuthenticated, nil)
	bob := app.dial("?token=" + bobToken)
	expectEvent(t, bob, presence.EventAuthenticated, nil)

	sendEvent(t, alice, presence.EventSendMessage, chat.SendMessagePayload{
		ReceiverID:  bobID,
		MessageType: "text",
		Content:     "hi bob",
		TempID:      "tmp-1",
	})

	// alice sees her own message echoed to her personal room, then the ack
	var echoed message.Message
	expectEvent(t, alice, presence.EventMessageReceived, &echoed)
	var ack chat.AckPayload
	expectEvent(t, alice, presence.EventMessageAck, &ack)
	if ack.TempID != "tmp-1" || ack.ID != echoed.ID {
		t.Fatalf("ack = %+v, echoed = %+v", ack, echoed)
	}

	var got message.Message
	expectEvent(t, bob, presence.EventMessageReceived, &got)
	if got.ID != ack.ID || got.SenderID != aliceID {
		t.Fatalf("bob received %+v", got)
	}

	sendEvent(t, alice, presence.EventSendMessage, chat.SendMessagePayload{
		ReceiverID:  bobID,
		MessageType: "text",
		Content:     strings.Repeat("x", message.MaxTextLength+1),
		TempID:      "tmp-2",
	})
	var failed chat.ErrorPayload
	expectEvent(t, alice, presence.EventError, &failed)
	if failed.Code != errs.ErrMessageContentTooLong || failed.TempID != "tmp-2" {
		t.Fatalf("error = %+v", failed)
	}
}

func TestWebSocketTyping(t *testing.T) {
	app := newTestApp(t, 100)
	aliceID, aliceToken := app.signup("alice@example.com", "Alice")
	bobID, bobToken := app.signup("bob@example.com", "Bob")

	alice := app.dial("?token=" + aliceToken)
	expectEvent(t, alice, presence.EventAuthenticated, nil)
	bob := app.dial("?token=" + bobToken)
	expectEvent(t, bob, presence.EventAuthenticated, nil)

	sendEvent(t, alice, presence.EventTyping, chat.TypingPayload{ReceiverID: bobID, IsTyping: true})

	var status presence.TypingStatusPayload
	expectEvent(t, bob, presence.EventTypingStatus, &status)
	if status.UserID != aliceID || !status.IsTyping {
		t.Fatalf("typing = %+v", status)
	}
}

func TestWebSocketRejectsBadHandshakeToken(t *testing.T) {
	app := newTestApp(t, 100)

	conn := app.dial("?token=garbage")
	var failed chat.ErrorPayload
	expectEvent(t, conn, presence.EventError, &failed)
	if failed.Code != errs.ErrUnauthorized {
		t.Fatalf("error = %+v", failed)
	}

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("connection stayed open after rejection")
	}
}

func TestWebSocketMalformedFrame(t *testing.T) {
	app := newTestApp(t, 100)
	_, token := app.signup("alice@example.com", "Alice")

	conn := app.dial("?token=" + token)
	expectEvent(t, conn, presence.EventAuthenticated, nil)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	var failed chat.ErrorPayload
	expectEvent(t, conn, presence.EventError, &failed)
	if failed.Code != errs.ErrInvalidJSONFormat {
		t.Fatalf("error = %+v", failed)
	}

	if err := conn.WriteJSON(map[string]string{"type": "dance"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	expectEvent(t, conn, presence.EventError, &failed)
	if failed.Code != errs.ErrInvalidParams {
		t.Fatalf("unknown type error = %+v", failed)
	}
}

func TestWebSocketDisconnectUnregisters(t *testing.T) {
	app := newTestApp(t, 100)
	aliceID, token := app.signup("alice@example.com", "Alice")

	conn := app.dial("?token=" + token)
	expectEvent(t, conn, presence.EventAuthenticated, nil)
	app.waitOnline(aliceID)

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for app.deps.Router.Directory().Online(aliceID) {
		if time.Now().After(deadline) {
			t.Fatal("connection still registered after close")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketConnectThrottled(t *testing.T) {
	app := newTestApp(t, 100)

	deps := *app.deps
	deps.ConnectLimiter = limiter.NewIPRateLimiter(rate.Every(time.Hour), 1)
	srv := httptest.NewServer(Router(&deps))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	first, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("first dial: %v", err)
	}
	defer first.Close()

	second, res, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		second.Close()
		t.Fatal("second dial within the burst succeeded")
	}
	if res == nil || res.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second dial: err = %v, response = %+v", err, res)
	}
}
