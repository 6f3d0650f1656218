package maintenance

import (
	"context"
	"log/slog"
	"time"

	"skillsocket/internal/domain"
	"skillsocket/internal/infra/config"
	"skillsocket/internal/usecase/presence"
)

const presenceStatsInterval = "1h"

// RegisterDefaultTasks wires the standing maintenance tasks: purging read
// notifications past their retention window and logging presence counts.
func RegisterDefaultTasks(
	s *Scheduler,
	notifications domain.NotificationStore,
	pres *presence.Registry,
	cfg config.NotificationsConfig,
	logger *slog.Logger,
) error {
	if err := s.Add(Task{
		Name:     "notification-purge",
		Schedule: cfg.PurgeSchedule,
		Run:      purgeNotifications(notifications, cfg.Retention, logger),
	}); err != nil {
		return err
	}
	return s.Add(Task{
		Name:     "presence-stats",
		Schedule: presenceStatsInterval,
		Run: func(context.Context) error {
			logger.Info("presence stats", "online", pres.Count())
			return nil
		},
	})
}

// purgeNotifications deletes read notifications older than the retention
// window. Unread notifications are kept regardless of age.
func purgeNotifications(store domain.NotificationStore, retention time.Duration, logger *slog.Logger) func(context.Context) error {
	return func(ctx context.Context) error {
		cutoff := time.Now().Add(-retention)
		purged, err := store.PurgeRead(ctx, cutoff)
		if err != nil {
			return domain.WrapOp("maintenance.purgeNotifications", err)
		}
		if purged > 0 {
			logger.Info("purged read notifications", "count", purged, "cutoff", cutoff)
		}
		return nil
	}
}
