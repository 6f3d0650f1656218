package sqlite

import (
	"context"
	"fmt"
	"time"

	"skillsocket/internal/domain"
)

func (s *Store) SaveMessage(ctx context.Context, m *domain.ChatMessage) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, from_id, to_id, content, seen, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.From, m.To, m.Content, boolToInt(m.Seen), m.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return domain.NewSubSystemError("chat", "Store.SaveMessage", domain.ErrStoreFailure, err.Error())
	}
	return nil
}

func (s *Store) MessagesBetween(ctx context.Context, a, b string) ([]domain.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_id, to_id, content, seen, created_at
		FROM messages
		WHERE (from_id = ? AND to_id = ?) OR (from_id = ? AND to_id = ?)
		ORDER BY created_at ASC`, a, b, b, a)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []domain.ChatMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Conversations walks the user's messages newest first, keeping the first
// message seen per partner as the conversation head and counting unseen
// inbound messages along the way.
func (s *Store) Conversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_id, to_id, content, seen, created_at
		FROM messages
		WHERE from_id = ? OR to_id = ?
		ORDER BY created_at DESC`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var order []string
	convs := make(map[string]*domain.Conversation)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		partner := m.From
		if partner == userID {
			partner = m.To
		}
		c, ok := convs[partner]
		if !ok {
			c = &domain.Conversation{LastMessage: m}
			convs[partner] = c
			order = append(order, partner)
		}
		if m.To == userID && !m.Seen {
			c.Unread++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.Conversation, 0, len(order))
	for _, partner := range order {
		c := convs[partner]
		summary, err := s.userSummary(ctx, partner)
		if err != nil {
			return nil, err
		}
		c.Partner = summary
		out = append(out, *c)
	}
	return out, nil
}

func (s *Store) MarkSeen(ctx context.Context, from, to string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET seen = 1
		WHERE from_id = ? AND to_id = ? AND seen = 0`, from, to)
	if err != nil {
		return 0, domain.NewSubSystemError("chat", "Store.MarkSeen", domain.ErrStoreFailure, err.Error())
	}
	return res.RowsAffected()
}

func (s *Store) userSummary(ctx context.Context, id string) (domain.UserSummary, error) {
	var u domain.UserSummary
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, profile_image, profession FROM users WHERE id = ?", id,
	).Scan(&u.ID, &u.Name, &u.ProfileImage, &u.Profession)
	if err != nil {
		// Partner record may be gone; keep the conversation with a bare ID.
		return domain.UserSummary{ID: id}, nil
	}
	return u, nil
}

func scanMessage(row rowScanner) (domain.ChatMessage, error) {
	var m domain.ChatMessage
	var seen int
	var createdStr string
	if err := row.Scan(&m.ID, &m.From, &m.To, &m.Content, &seen, &createdStr); err != nil {
		return m, err
	}
	m.Seen = seen != 0
	m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return m, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ domain.MessageStore = (*Store)(nil)
