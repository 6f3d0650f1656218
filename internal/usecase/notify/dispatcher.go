// Package notify persists notifications and pushes them to user devices.
// Push delivery is best-effort: a failed push leaves the stored record
// undelivered but never propagates an error to the caller's flow.
package notify

import (
	"context"
	"log/slog"
	"time"

	"skillsocket/internal/adapter/push"
	"skillsocket/internal/domain"
	"skillsocket/internal/usecase/eventbus"
)

// Dispatcher stores notifications and forwards them to the push sender.
type Dispatcher struct {
	store  domain.NotificationStore
	sender push.Sender
	bus    *eventbus.Bus
	logger *slog.Logger
}

// NewDispatcher creates a notification dispatcher.
func NewDispatcher(store domain.NotificationStore, sender push.Sender, bus *eventbus.Bus, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		sender: sender,
		bus:    bus,
		logger: logger,
	}
}

// Dispatch persists n and attempts push delivery. Missing ID and
// CreatedAt are filled in. The returned error covers persistence only;
// push failures are logged and published as notification.failed.
func (d *Dispatcher) Dispatch(ctx context.Context, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = domain.NewID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	if err := d.store.SaveNotification(ctx, n); err != nil {
		return domain.WrapOp("Dispatcher.Dispatch", err)
	}

	if err := d.sender.Send(ctx, *n); err != nil {
		d.logger.Warn("push delivery failed",
			"notification", n.ID, "recipient", n.Recipient, "error", err)
		d.bus.PublishType(ctx, domain.EventNotificationFailed, n.Recipient, map[string]string{
			"notification": n.ID,
			"error":        err.Error(),
		})
		return nil
	}

	if err := d.store.MarkDelivered(ctx, n.ID); err != nil {
		d.logger.Warn("mark delivered failed", "notification", n.ID, "error", err)
	}
	d.bus.PublishType(ctx, domain.EventNotificationPushed, n.Recipient, map[string]string{
		"notification": n.ID,
	})
	d.logger.Debug("notification dispatched",
		"notification", n.ID, "recipient", n.Recipient, "type", n.Type)
	return nil
}

// Push delivers n to the recipient's devices without storing an in-app
// record. Ordinary chat messages take this path: the message itself is
// the in-app artifact, so only the device push is wanted.
func (d *Dispatcher) Push(ctx context.Context, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = domain.NewID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	if err := d.sender.Send(ctx, *n); err != nil {
		d.bus.PublishType(ctx, domain.EventNotificationFailed, n.Recipient, map[string]string{
			"notification": n.ID,
			"error":        err.Error(),
		})
		return domain.WrapOp("Dispatcher.Push", err)
	}

	d.bus.PublishType(ctx, domain.EventNotificationPushed, n.Recipient, map[string]string{
		"notification": n.ID,
	})
	d.logger.Debug("push sent", "notification", n.ID, "recipient", n.Recipient, "type", n.Type)
	return nil
}

// List returns the recipient's most recent notifications.
func (d *Dispatcher) List(ctx context.Context, recipient string, limit int) ([]domain.Notification, error) {
	return d.store.ListNotifications(ctx, recipient, limit)
}

// MarkRead marks all of the recipient's notifications as read.
func (d *Dispatcher) MarkRead(ctx context.Context, recipient string) (int64, error) {
	return d.store.MarkNotificationsRead(ctx, recipient)
}
