package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"skillsocket/internal/domain"
)

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	offered, err := json.Marshal(u.SkillsOffered)
	if err != nil {
		return fmt.Errorf("marshal skills offered: %w", err)
	}
	required, err := json.Marshal(u.SkillsRequired)
	if err != nil {
		return fmt.Errorf("marshal skills required: %w", err)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, profile_image, education, location, profession,
			skills_offered, skills_required, rating, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.ProfileImage, u.Education, u.Location, u.Profession,
		string(offered), string(required), u.Rating, u.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return domain.NewSubSystemError("user", "Store.CreateUser", domain.ErrDuplicate, u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, profile_image, education, location, profession,
			skills_offered, skills_required, rating, created_at
		FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewSubSystemError("user", "Store.GetUser", domain.ErrUserNotFound, id)
	}
	return u, err
}

func (s *Store) SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]domain.UserSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + strings.ToLower(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, profile_image, profession
		FROM users
		WHERE id != ? AND (lower(name) LIKE ? OR lower(email) LIKE ?)
		ORDER BY name
		LIMIT ?`, excludeID, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var out []domain.UserSummary
	for rows.Next() {
		var u domain.UserSummary
		if err := rows.Scan(&u.ID, &u.Name, &u.ProfileImage, &u.Profession); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// MatchComplementary scans users in Go: skill lists are stored as JSON
// arrays, and matching is case-insensitive substring so "node.js" finds
// "Node.js developer tools".
func (s *Store) MatchComplementary(ctx context.Context, required, offered string) ([]domain.MatchedUser, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, profile_image, education, location, profession,
			skills_offered, skills_required, rating
		FROM users ORDER BY rating DESC`)
	if err != nil {
		return nil, fmt.Errorf("match users: %w", err)
	}
	defer rows.Close()

	required = strings.ToLower(strings.TrimSpace(required))
	offered = strings.ToLower(strings.TrimSpace(offered))

	var out []domain.MatchedUser
	for rows.Next() {
		var m domain.MatchedUser
		var offeredJSON, requiredJSON string
		if err := rows.Scan(&m.ID, &m.Name, &m.ProfileImage, &m.Education, &m.Location,
			&m.Profession, &offeredJSON, &requiredJSON, &m.Rating); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(offeredJSON), &m.SkillsOffered); err != nil {
			return nil, fmt.Errorf("unmarshal skills offered: %w", err)
		}
		if err := json.Unmarshal([]byte(requiredJSON), &m.SkillsRequired); err != nil {
			return nil, fmt.Errorf("unmarshal skills required: %w", err)
		}
		if skillListed(m.SkillsOffered, required) && skillListed(m.SkillsRequired, offered) {
			out = append(out, m)
		}
	}
	return out, rows.Err()
}

// skillListed reports whether any skill in the list contains want as a
// case-insensitive substring.
func skillListed(skills []string, want string) bool {
	if want == "" {
		return false
	}
	for _, s := range skills {
		if strings.Contains(strings.ToLower(s), want) {
			return true
		}
	}
	return false
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var offeredJSON, requiredJSON, createdStr string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.ProfileImage, &u.Education, &u.Location,
		&u.Profession, &offeredJSON, &requiredJSON, &u.Rating, &createdStr)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(offeredJSON), &u.SkillsOffered); err != nil {
		return nil, fmt.Errorf("unmarshal skills offered: %w", err)
	}
	if err := json.Unmarshal([]byte(requiredJSON), &u.SkillsRequired); err != nil {
		return nil, fmt.Errorf("unmarshal skills required: %w", err)
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return &u, nil
}

var _ domain.UserStore = (*Store)(nil)
