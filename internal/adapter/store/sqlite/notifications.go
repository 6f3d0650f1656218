package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"skillsocket/internal/domain"
)

func (s *Store) SaveNotification(ctx context.Context, n *domain.Notification) error {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("marshal notification data: %w", err)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, recipient, sender, type, title, body, data, delivered, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Recipient, n.Sender, string(n.Type), n.Title, n.Body, string(data),
		boolToInt(n.Delivered), boolToInt(n.Read), n.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return domain.NewSubSystemError("notify", "Store.SaveNotification", domain.ErrStoreFailure, err.Error())
	}
	return nil
}

func (s *Store) MarkDelivered(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE notifications SET delivered = 1 WHERE id = ?", id)
	if err != nil {
		return domain.NewSubSystemError("notify", "Store.MarkDelivered", domain.ErrStoreFailure, err.Error())
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.NewSubSystemError("notify", "Store.MarkDelivered", domain.ErrNotFound, id)
	}
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, recipient string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipient, sender, type, title, body, data, delivered, read, created_at
		FROM notifications
		WHERE recipient = ?
		ORDER BY created_at DESC
		LIMIT ?`, recipient, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) MarkNotificationsRead(ctx context.Context, recipient string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE recipient = ? AND read = 0", recipient)
	if err != nil {
		return 0, domain.NewSubSystemError("notify", "Store.MarkNotificationsRead", domain.ErrStoreFailure, err.Error())
	}
	return res.RowsAffected()
}

func (s *Store) PurgeRead(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM notifications WHERE read = 1 AND created_at < ?",
		cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, domain.NewSubSystemError("notify", "Store.PurgeRead", domain.ErrStoreFailure, err.Error())
	}
	return res.RowsAffected()
}

func scanNotification(rows *sql.Rows) (domain.Notification, error) {
	var n domain.Notification
	var ntype, dataJSON, createdStr string
	var delivered, read int
	if err := rows.Scan(&n.ID, &n.Recipient, &n.Sender, &ntype, &n.Title, &n.Body,
		&dataJSON, &delivered, &read, &createdStr); err != nil {
		return n, err
	}
	n.Type = domain.NotificationType(ntype)
	n.Delivered = delivered != 0
	n.Read = read != 0
	if err := json.Unmarshal([]byte(dataJSON), &n.Data); err != nil {
		return n, fmt.Errorf("unmarshal notification data: %w", err)
	}
	n.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return n, nil
}

var _ domain.NotificationStore = (*Store)(nil)
