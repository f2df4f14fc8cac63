package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"wagerescrow/internal/notify"
)

func TestEventStream_DeliversFilteredEvents(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/events/stream?event=" + notify.EventLedgerFunded
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	deadline := time.Now().Add(2 * time.Second)
	for s.hub.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("stream never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// A session create is filtered out; the funding event is delivered.
	_, tok := s.player(0)
	if code, _ := s.do("POST", "/api/v1/sessions", tok, nil); code != 200 {
		t.Fatalf("create session got=%d", code)
	}
	target, _ := s.player(token)

	var ev notify.Event
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Name != notify.EventLedgerFunded || ev.Ref != target.String() {
		t.Fatalf("event=%+v", ev)
	}
}
