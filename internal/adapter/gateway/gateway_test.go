package gateway

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"skillsocket/internal/domain"
	"skillsocket/internal/usecase/eventbus"
	"skillsocket/internal/usecase/presence"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAuth() Authenticator {
	return NewStaticTokenAuth([]TokenEntry{
		{Token: "test-token", Name: "tester", Roles: []string{"*"}},
	})
}

type testEnv struct {
	srv      *Server
	presence *presence.Registry
	bus      *eventbus.Bus
}

func startTestServer(t *testing.T) *testEnv {
	t.Helper()
	bus := eventbus.New(testLogger())
	t.Cleanup(bus.Close)
	pres := presence.NewRegistry()

	srv := NewServer(newTestAuth(), pres, bus, "127.0.0.1:0", 64, testLogger())
	return &testEnv{srv: srv, presence: pres, bus: bus}
}

// run starts the server and waits for it to bind.
func (e *testEnv) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() {
		if err := e.srv.Start(ctx); err != nil {
			_ = err // context cancelled during cleanup
		}
	}()

	deadline := time.Now().Add(3 * time.Second)
	for e.srv.BoundAddr() == "" {
		if time.Now().After(deadline) {
			t.Fatal("server did not start in time")
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Cleanup(func() {
		e.srv.Stop(context.Background())
	})
}

func dialWS(t *testing.T, addr, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	ws, _, err := websocket.Dial(ctx, "ws://"+addr+"/ws?token="+token, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close(websocket.StatusNormalClosure, "") })
	return ws
}

// --- in-memory stores shared by the gateway tests ---

type memUserStore struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUserStore(users ...*domain.User) *memUserStore {
	s := &memUserStore{users: make(map[string]*domain.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *memUserStore) CreateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return domain.ErrDuplicate
	}
	s.users[u.ID] = u
	return nil
}

func (s *memUserStore) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *memUserStore) SearchUsers(_ context.Context, query, excludeID string, _ int) ([]domain.UserSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.UserSummary
	for _, u := range s.users {
		if u.ID == excludeID {
			continue
		}
		if query == "" || strings.Contains(strings.ToLower(u.Name), strings.ToLower(query)) {
			out = append(out, u.Summary())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memUserStore) MatchComplementary(_ context.Context, required, offered string) ([]domain.MatchedUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.MatchedUser
	for _, u := range s.users {
		if containsAny(u.SkillsOffered, required) && containsAny(u.SkillsRequired, offered) {
			out = append(out, domain.MatchedUser{ID: u.ID, Name: u.Name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func containsAny(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type memMessageStore struct {
	mu       sync.Mutex
	messages []domain.ChatMessage
}

func (s *memMessageStore) SaveMessage(_ context.Context, m *domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, *m)
	return nil
}

func (s *memMessageStore) MessagesBetween(_ context.Context, a, b string) ([]domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ChatMessage
	for _, m := range s.messages {
		if (m.From == a && m.To == b) || (m.From == b && m.To == a) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memMessageStore) Conversations(_ context.Context, userID string) ([]domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byPartner := make(map[string]*domain.Conversation)
	for _, m := range s.messages {
		var partner string
		switch userID {
		case m.From:
			partner = m.To
		case m.To:
			partner = m.From
		default:
			continue
		}
		c, ok := byPartner[partner]
		if !ok {
			c = &domain.Conversation{Partner: domain.UserSummary{ID: partner}}
			byPartner[partner] = c
		}
		c.LastMessage = m
		if m.To == userID && !m.Seen {
			c.Unread++
		}
	}
	out := make([]domain.Conversation, 0, len(byPartner))
	for _, c := range byPartner {
		out = append(out, *c)
	}
	return out, nil
}

func (s *memMessageStore) MarkSeen(_ context.Context, from, to string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.messages {
		m := &s.messages[i]
		if m.From == from && m.To == to && !m.Seen {
			m.Seen = true
			n++
		}
	}
	return n, nil
}

type memNotificationStore struct {
	mu            sync.Mutex
	notifications []domain.Notification
}

func (s *memNotificationStore) SaveNotification(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, *n)
	return nil
}

func (s *memNotificationStore) MarkDelivered(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].Delivered = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *memNotificationStore) ListNotifications(_ context.Context, recipient string, _ int) ([]domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Notification
	for _, n := range s.notifications {
		if n.Recipient == recipient {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *memNotificationStore) MarkNotificationsRead(_ context.Context, recipient string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.notifications {
		if s.notifications[i].Recipient == recipient && !s.notifications[i].Read {
			s.notifications[i].Read = true
			n++
		}
	}
	return n, nil
}

func (s *memNotificationStore) PurgeRead(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.notifications[:0]
	var n int64
	for _, notif := range s.notifications {
		if notif.Read && notif.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, notif)
	}
	s.notifications = kept
	return n, nil
}

type memConnectionStore struct {
	mu       sync.Mutex
	requests map[string]*domain.ConnectionRequest
}

func newMemConnectionStore() *memConnectionStore {
	return &memConnectionStore{requests: make(map[string]*domain.ConnectionRequest)}
}

func (s *memConnectionStore) CreateConnectionRequest(_ context.Context, r *domain.ConnectionRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, have := range s.requests {
		if have.Status == domain.ConnectionPending &&
			((have.From == r.From && have.To == r.To) || (have.From == r.To && have.To == r.From)) {
			return domain.NewSubSystemError("connection", "CreateConnectionRequest", domain.ErrDuplicate, "pending request exists")
		}
	}
	if r.Status == "" {
		r.Status = domain.ConnectionPending
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	r.UpdatedAt = r.CreatedAt
	clone := *r
	s.requests[r.ID] = &clone
	return nil
}

func (s *memConnectionStore) GetConnectionRequest(_ context.Context, id string) (*domain.ConnectionRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, domain.NewSubSystemError("connection", "GetConnectionRequest", domain.ErrNotFound, id)
	}
	clone := *r
	return &clone, nil
}

func (s *memConnectionStore) UpdateConnectionStatus(_ context.Context, id string, status domain.ConnectionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return domain.NewSubSystemError("connection", "UpdateConnectionStatus", domain.ErrNotFound, id)
	}
	r.Status = status
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memConnectionStore) ConnectionsFor(_ context.Context, userID string) ([]domain.ConnectionRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ConnectionRequest
	for _, r := range s.requests {
		if r.From == userID || r.To == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}
