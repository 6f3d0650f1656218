package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"skillsocket/internal/domain"
)

func (s *Store) CreateConnectionRequest(ctx context.Context, r *domain.ConnectionRequest) error {
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = r.CreatedAt
	if r.Status == "" {
		r.Status = domain.ConnectionPending
	}

	// One open request per user pair, in either direction.
	var existing int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM connections
		WHERE status = 'pending'
		AND ((from_id = ? AND to_id = ?) OR (from_id = ? AND to_id = ?))`,
		r.From, r.To, r.To, r.From,
	).Scan(&existing)
	if err != nil {
		return fmt.Errorf("check pending connection: %w", err)
	}
	if existing > 0 {
		return domain.NewSubSystemError("connection", "Store.CreateConnectionRequest", domain.ErrDuplicate,
			fmt.Sprintf("%s -> %s", r.From, r.To))
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO connections (id, from_id, to_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.From, r.To, string(r.Status),
		r.CreatedAt.Format(time.RFC3339Nano), r.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return domain.NewSubSystemError("connection", "Store.CreateConnectionRequest", domain.ErrStoreFailure, err.Error())
	}
	return nil
}

func (s *Store) GetConnectionRequest(ctx context.Context, id string) (*domain.ConnectionRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, from_id, to_id, status, created_at, updated_at
		FROM connections WHERE id = ?`, id)

	r, err := scanConnection(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewSubSystemError("connection", "Store.GetConnectionRequest", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) UpdateConnectionStatus(ctx context.Context, id string, status domain.ConnectionStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE connections SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return domain.NewSubSystemError("connection", "Store.UpdateConnectionStatus", domain.ErrStoreFailure, err.Error())
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.NewSubSystemError("connection", "Store.UpdateConnectionStatus", domain.ErrNotFound, id)
	}
	return nil
}

func (s *Store) ConnectionsFor(ctx context.Context, userID string) ([]domain.ConnectionRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_id, to_id, status, created_at, updated_at
		FROM connections
		WHERE from_id = ? OR to_id = ?
		ORDER BY created_at DESC`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("query connections: %w", err)
	}
	defer rows.Close()

	var out []domain.ConnectionRequest
	for rows.Next() {
		r, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanConnection(row rowScanner) (*domain.ConnectionRequest, error) {
	var r domain.ConnectionRequest
	var status, createdStr, updatedStr string
	if err := row.Scan(&r.ID, &r.From, &r.To, &status, &createdStr, &updatedStr); err != nil {
		return nil, err
	}
	r.Status = domain.ConnectionStatus(status)
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedStr)
	return &r, nil
}

var _ domain.ConnectionStore = (*Store)(nil)
