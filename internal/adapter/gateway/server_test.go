package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"skillsocket/internal/domain"
)

func TestServerLifecycle(t *testing.T) {
	env := startTestServer(t)
	env.run(t)

	if env.srv.BoundAddr() == "" {
		t.Fatal("BoundAddr is empty")
	}
}

func TestServerAuthReject(t *testing.T) {
	env := startTestServer(t)
	env.run(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, _, err := websocket.Dial(ctx, "ws://"+env.srv.BoundAddr()+"/ws?token=bad-token", nil)
	if err == nil {
		t.Fatal("expected auth rejection")
	}
}

func TestServerRPCRoundtrip(t *testing.T) {
	env := startTestServer(t)
	env.srv.RegisterHandler("echo", func(_ context.Context, _ *Session, payload json.RawMessage) (json.RawMessage, error) {
		return payload, nil
	})
	env.run(t)

	ws := dialWS(t, env.srv.BoundAddr(), "test-token")
	ctx := context.Background()

	req := Frame{
		Type:    FrameTypeRequest,
		ID:      1,
		Method:  "echo",
		Payload: json.RawMessage(`{"msg":"hello"}`),
	}
	if err := wsjson.Write(ctx, ws, req); err != nil {
		t.Fatalf("write: %v", err)
	}

	var resp Frame
	if err := wsjson.Read(ctx, ws, &resp); err != nil {
		t.Fatalf("read: %v", err)
	}

	if resp.Type != FrameTypeResponse {
		t.Errorf("type = %q", resp.Type)
	}
	if resp.ID != 1 {
		t.Errorf("ID = %d", resp.ID)
	}
	if resp.Error != "" {
		t.Errorf("error = %q", resp.Error)
	}
	if string(resp.Payload) != `{"msg":"hello"}` {
		t.Errorf("payload = %s", resp.Payload)
	}
}

func TestServerUnknownMethod(t *testing.T) {
	env := startTestServer(t)
	env.run(t)

	ws := dialWS(t, env.srv.BoundAddr(), "test-token")
	ctx := context.Background()

	req := Frame{Type: FrameTypeRequest, ID: 2, Method: "nonexistent"}
	if err := wsjson.Write(ctx, ws, req); err != nil {
		t.Fatalf("write: %v", err)
	}

	var resp Frame
	if err := wsjson.Read(ctx, ws, &resp); err != nil {
		t.Fatalf("read: %v", err)
	}

	if resp.Error == "" {
		t.Error("expected error for unknown method")
	}
}

func TestServerEmitTargetsSingleConnection(t *testing.T) {
	env := startTestServer(t)

	// Capture the conn ID via a join-like handler.
	var connID uint64
	var mu sync.Mutex
	env.srv.RegisterHandler("whoami", func(_ context.Context, sess *Session, _ json.RawMessage) (json.RawMessage, error) {
		mu.Lock()
		connID = sess.ConnID
		mu.Unlock()
		return json.RawMessage(`"ok"`), nil
	})
	env.run(t)

	target := dialWS(t, env.srv.BoundAddr(), "test-token")
	other := dialWS(t, env.srv.BoundAddr(), "test-token")
	ctx := context.Background()

	if err := wsjson.Write(ctx, target, Frame{Type: FrameTypeRequest, ID: 1, Method: "whoami"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var resp Frame
	if err := wsjson.Read(ctx, target, &resp); err != nil {
		t.Fatalf("read: %v", err)
	}

	mu.Lock()
	id := connID
	mu.Unlock()

	ok := env.srv.Emit(id, domain.Event{
		Type:      domain.EventReceiveMessage,
		Timestamp: time.Now(),
		Payload:   json.RawMessage(`{"content":"hi"}`),
	})
	if !ok {
		t.Fatal("Emit returned false for live connection")
	}

	readCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var frame Frame
	if err := wsjson.Read(readCtx, target, &frame); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if frame.Type != FrameTypeEvent {
		t.Errorf("type = %q, want event", frame.Type)
	}
	if frame.Event != string(domain.EventReceiveMessage) {
		t.Errorf("event = %q, want %q", frame.Event, domain.EventReceiveMessage)
	}

	// The other connection must not see the targeted event.
	otherCtx, otherCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer otherCancel()
	var stray Frame
	if err := wsjson.Read(otherCtx, other, &stray); err == nil {
		t.Errorf("unexpected frame on other connection: %+v", stray)
	}
}

func TestServerEmitUnknownConnection(t *testing.T) {
	env := startTestServer(t)
	env.run(t)

	if env.srv.Emit(9999, domain.Event{Type: domain.EventReceiveMessage}) {
		t.Error("Emit to unknown connection should return false")
	}
}

func TestServerDisconnectReleasesPresence(t *testing.T) {
	env := startTestServer(t)

	var gone []string
	var mu sync.Mutex
	env.srv.SetDisconnectHook(func(userID string) {
		mu.Lock()
		gone = append(gone, userID)
		mu.Unlock()
	})
	env.srv.RegisterHandler("join", func(_ context.Context, sess *Session, _ json.RawMessage) (json.RawMessage, error) {
		env.presence.Join("alice", sess.ConnID)
		return json.RawMessage(`"ok"`), nil
	})
	env.run(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ws, _, err := websocket.Dial(ctx, "ws://"+env.srv.BoundAddr()+"/ws?token=test-token", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	if err := wsjson.Write(ctx, ws, Frame{Type: FrameTypeRequest, ID: 1, Method: "join"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var resp Frame
	if err := wsjson.Read(ctx, ws, &resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !env.presence.Online("alice") {
		t.Fatal("alice should be online after join")
	}

	ws.Close(websocket.StatusNormalClosure, "bye")

	deadline := time.Now().Add(2 * time.Second)
	for env.presence.Online("alice") {
		if time.Now().After(deadline) {
			t.Fatal("presence not released after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(gone) != 1 || gone[0] != "alice" {
		t.Errorf("disconnect hook calls = %v, want [alice]", gone)
	}
}

func TestServerConcurrentClients(t *testing.T) {
	env := startTestServer(t)
	env.srv.RegisterHandler("ping", func(_ context.Context, _ *Session, _ json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`"pong"`), nil
	})
	env.run(t)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			ws := dialWS(t, env.srv.BoundAddr(), "test-token")

			ctx := context.Background()
			req := Frame{Type: FrameTypeRequest, ID: uint64(id + 1), Method: "ping"}
			if err := wsjson.Write(ctx, ws, req); err != nil {
				return
			}
			var resp Frame
			wsjson.Read(ctx, ws, &resp)
		}(i)
	}
	wg.Wait()
}

func TestStaticTokenAuth(t *testing.T) {
	auth := NewStaticTokenAuth([]TokenEntry{
		{Token: "secret", Name: "app", Roles: []string{"*"}},
	})

	info, err := auth.Authenticate("secret")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if info.Name != "app" {
		t.Errorf("name = %q", info.Name)
	}

	if _, err := auth.Authenticate("wrong"); err == nil {
		t.Error("expected rejection for wrong token")
	}
	if _, err := auth.Authenticate(""); err == nil {
		t.Error("expected rejection for empty token")
	}
}
