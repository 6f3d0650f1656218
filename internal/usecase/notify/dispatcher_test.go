package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillsocket/internal/domain"
	"skillsocket/internal/usecase/eventbus"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeNotificationStore struct {
	mu        sync.Mutex
	saved     []domain.Notification
	delivered []string
	saveErr   error
}

func (f *fakeNotificationStore) SaveNotification(_ context.Context, n *domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, *n)
	return nil
}

func (f *fakeNotificationStore) MarkDelivered(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered = append(f.delivered, id)
	return nil
}

func (f *fakeNotificationStore) ListNotifications(_ context.Context, recipient string, limit int) ([]domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Notification
	for _, n := range f.saved {
		if n.Recipient == recipient {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotificationStore) MarkNotificationsRead(_ context.Context, recipient string) (int64, error) {
	return 1, nil
}

func (f *fakeNotificationStore) PurgeRead(_ context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []domain.Notification
	err  error
}

func (f *fakeSender) Send(_ context.Context, n domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeSender) Name() string { return "fake" }

func TestDispatchFillsIDAndTimestamp(t *testing.T) {
	store := &fakeNotificationStore{}
	sender := &fakeSender{}
	bus := eventbus.New(testLogger())
	defer bus.Close()
	d := NewDispatcher(store, sender, bus, testLogger())

	n := &domain.Notification{Recipient: "a", Type: domain.NotifMessage, Title: "hi"}
	require.NoError(t, d.Dispatch(context.Background(), n))

	assert.NotEmpty(t, n.ID)
	assert.False(t, n.CreatedAt.IsZero())
	require.Len(t, store.saved, 1)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{n.ID}, store.delivered)
}

func TestDispatchPushFailureIsNotFatal(t *testing.T) {
	store := &fakeNotificationStore{}
	sender := &fakeSender{err: errors.New("provider down")}
	bus := eventbus.New(testLogger())
	d := NewDispatcher(store, sender, bus, testLogger())

	var mu sync.Mutex
	var failed []domain.Event
	bus.Subscribe(domain.EventNotificationFailed, func(_ context.Context, e domain.Event) {
		mu.Lock()
		failed = append(failed, e)
		mu.Unlock()
	})

	n := &domain.Notification{Recipient: "a", Type: domain.NotifMessage}
	require.NoError(t, d.Dispatch(context.Background(), n))
	bus.Close()

	// Stored but never marked delivered.
	require.Len(t, store.saved, 1)
	assert.Empty(t, store.delivered)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, failed, 1)
	assert.Equal(t, "a", failed[0].UserID)
}

func TestDispatchStoreFailurePropagates(t *testing.T) {
	store := &fakeNotificationStore{saveErr: errors.New("disk full")}
	sender := &fakeSender{}
	bus := eventbus.New(testLogger())
	defer bus.Close()
	d := NewDispatcher(store, sender, bus, testLogger())

	err := d.Dispatch(context.Background(), &domain.Notification{Recipient: "a"})
	require.Error(t, err)
	assert.Empty(t, sender.sent)
}

func TestDispatchPublishesPushedEvent(t *testing.T) {
	store := &fakeNotificationStore{}
	sender := &fakeSender{}
	bus := eventbus.New(testLogger())
	d := NewDispatcher(store, sender, bus, testLogger())

	var mu sync.Mutex
	var pushed []domain.Event
	bus.Subscribe(domain.EventNotificationPushed, func(_ context.Context, e domain.Event) {
		mu.Lock()
		pushed = append(pushed, e)
		mu.Unlock()
	})

	require.NoError(t, d.Dispatch(context.Background(), &domain.Notification{Recipient: "a"}))
	bus.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, pushed, 1)
}

func TestPushStoresNothing(t *testing.T) {
	store := &fakeNotificationStore{}
	sender := &fakeSender{}
	bus := eventbus.New(testLogger())
	d := NewDispatcher(store, sender, bus, testLogger())

	var mu sync.Mutex
	var pushed []domain.Event
	bus.Subscribe(domain.EventNotificationPushed, func(_ context.Context, e domain.Event) {
		mu.Lock()
		pushed = append(pushed, e)
		mu.Unlock()
	})

	n := &domain.Notification{Recipient: "a", Type: domain.NotifMessage, Title: "hi"}
	require.NoError(t, d.Push(context.Background(), n))
	bus.Close()

	assert.NotEmpty(t, n.ID)
	require.Len(t, sender.sent, 1)
	// Device delivery only: no in-app record, no delivered marker.
	assert.Empty(t, store.saved)
	assert.Empty(t, store.delivered)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, pushed, 1)
}

func TestPushFailureSurfacesError(t *testing.T) {
	store := &fakeNotificationStore{}
	sender := &fakeSender{err: errors.New("provider down")}
	bus := eventbus.New(testLogger())
	d := NewDispatcher(store, sender, bus, testLogger())

	var mu sync.Mutex
	var failed []domain.Event
	bus.Subscribe(domain.EventNotificationFailed, func(_ context.Context, e domain.Event) {
		mu.Lock()
		failed = append(failed, e)
		mu.Unlock()
	})

	err := d.Push(context.Background(), &domain.Notification{Recipient: "a"})
	require.Error(t, err)
	bus.Close()

	assert.Empty(t, store.saved)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, failed, 1)
}

func TestListAndMarkRead(t *testing.T) {
	store := &fakeNotificationStore{}
	bus := eventbus.New(testLogger())
	defer bus.Close()
	d := NewDispatcher(store, &fakeSender{}, bus, testLogger())

	require.NoError(t, d.Dispatch(context.Background(), &domain.Notification{Recipient: "a", Title: "one"}))
	require.NoError(t, d.Dispatch(context.Background(), &domain.Notification{Recipient: "b", Title: "two"}))

	list, err := d.List(context.Background(), "a", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "one", list[0].Title)

	n, err := d.MarkRead(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
