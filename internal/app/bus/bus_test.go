package bus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"quicktalk/internal/app/presence"
)

func TestLocalBusDeliversThroughRouter(t *testing.T) {
	router := presence.NewRouter(presence.NewDirectory(), presence.WithSweepInterval(0))
	defer router.Shutdown()

	alice := presence.NewConn("a1", 4)
	bob := presence.NewConn("b1", 4)
	for c, id := range map[*presence.Conn]string{alice: "alice", bob: "bob"} {
		if err := router.Authenticate(c, id); err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
	}

	ev, err := presence.NewEvent(presence.EventTypingStatus, presence.TypingStatusPayload{UserID: "alice", IsTyping: true})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}

	b := NewLocalBus(RouterHandler(router))
	if err := b.Publish(context.Background(), RouteRequest{Rooms: []string{"alice", "bob"}, Except: "alice", Event: ev}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case <-alice.Send():
		t.Fatal("excluded identity received the event")
	default:
	}
	select {
	case frame := <-bob.Send():
		var got presence.Event
		if err := json.Unmarshal(frame, &got); err != nil || got.Type != presence.EventTypingStatus {
			t.Fatalf("bob got %s (%v)", frame, err)
		}
	default:
		t.Fatal("bob received nothing")
	}
}

func TestLocalBusRunStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- NewLocalBus(func(RouteRequest) {}).Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRouteRequestSurvivesJSON(t *testing.T) {
	ev, _ := presence.NewEvent(presence.EventMessageReceived, map[string]string{"id": "m1"})
	in := RouteRequest{Rooms: []string{"bob", "alice"}, Event: ev}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out RouteRequest
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(out.Rooms) != 2 || out.Event.Type != ev.Type || string(out.Event.Payload) != string(ev.Payload) {
		t.Fatalf("out = %+v", out)
	}
}
