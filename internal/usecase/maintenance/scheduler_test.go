package maintenance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillsocket/internal/domain"
	"skillsocket/internal/infra/config"
	"skillsocket/internal/usecase/presence"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerRunsTask(t *testing.T) {
	s := NewScheduler(testLogger())

	var runs atomic.Int64
	require.NoError(t, s.Add(Task{
		Name:     "tick",
		Schedule: "20ms",
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	}))

	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerStopHaltsTasks(t *testing.T) {
	s := NewScheduler(testLogger())

	var runs atomic.Int64
	require.NoError(t, s.Add(Task{
		Name:     "tick",
		Schedule: "20ms",
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	}))

	s.Start(context.Background())
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	s.Stop()

	after := runs.Load()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(testLogger())

	err := s.Add(Task{Name: "broken", Schedule: "not a schedule", Run: func(context.Context) error { return nil }})
	require.Error(t, err)

	err = s.Add(Task{Name: "empty", Schedule: "", Run: func(context.Context) error { return nil }})
	require.Error(t, err)

	err = s.Add(Task{Name: "norun", Schedule: "1h"})
	require.Error(t, err)
}

func TestSchedulerAcceptsCronExpression(t *testing.T) {
	s := NewScheduler(testLogger())

	err := s.Add(Task{Name: "nightly", Schedule: "30 3 * * *", Run: func(context.Context) error { return nil }})
	require.NoError(t, err)
}

type purgeStore struct {
	mu      sync.Mutex
	cutoffs []time.Time
	purged  int64
	err     error
}

func (s *purgeStore) SaveNotification(context.Context, *domain.Notification) error { return nil }
func (s *purgeStore) MarkDelivered(context.Context, string) error                  { return nil }
func (s *purgeStore) ListNotifications(context.Context, string, int) ([]domain.Notification, error) {
	return nil, nil
}
func (s *purgeStore) MarkNotificationsRead(context.Context, string) (int64, error) { return 0, nil }

func (s *purgeStore) PurgeRead(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs = append(s.cutoffs, cutoff)
	return s.purged, s.err
}

func TestPurgeNotificationsUsesRetentionCutoff(t *testing.T) {
	store := &purgeStore{purged: 3}
	retention := 30 * 24 * time.Hour

	run := purgeNotifications(store, retention, testLogger())
	require.NoError(t, run(context.Background()))

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.cutoffs, 1)
	want := time.Now().Add(-retention)
	assert.WithinDuration(t, want, store.cutoffs[0], time.Minute)
}

func TestPurgeNotificationsPropagatesError(t *testing.T) {
	store := &purgeStore{err: errors.New("disk full")}

	run := purgeNotifications(store, time.Hour, testLogger())
	require.Error(t, run(context.Background()))
}

func TestRegisterDefaultTasks(t *testing.T) {
	s := NewScheduler(testLogger())
	store := &purgeStore{}
	pres := presence.NewRegistry()

	err := RegisterDefaultTasks(s, store, pres, config.NotificationsConfig{
		Retention:     30 * 24 * time.Hour,
		PurgeSchedule: "30 3 * * *",
	}, testLogger())
	require.NoError(t, err)

	// A bad purge schedule surfaces at registration.
	err = RegisterDefaultTasks(NewScheduler(testLogger()), store, pres, config.NotificationsConfig{
		PurgeSchedule: "bogus",
	}, testLogger())
	require.Error(t, err)
}
