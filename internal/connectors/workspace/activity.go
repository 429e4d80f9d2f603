package workspace

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Activity is one entry of the user action log.
type Activity struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Panel     string    `json:"panel"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Store) RecordActivity(ctx context.Context, a Activity) (err error) {
	ctx, done := s.begin(ctx, "RecordActivity", &err)
	defer done()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO activity (id, actor, panel, action, detail, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Actor, a.Panel, a.Action, a.Detail, a.CreatedAt.Unix())
	return err
}

// ListActivity returns the newest entries first. An empty actor lists everyone's.
func (s *Store) ListActivity(ctx context.Context, actor string, limit int) (out []Activity, err error) {
	ctx, done := s.begin(ctx, "ListActivity", &err)
	defer done()

	if limit <= 0 {
		limit = 10
	}
	query := `SELECT id, actor, panel, action, detail, created_at FROM activity`
	args := []any{}
	if actor != "" {
		query += ` WHERE actor = ?`
		args = append(args, actor)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out = make([]Activity, 0, limit)
	for rows.Next() {
		var a Activity
		var created int64
		if err := rows.Scan(&a.ID, &a.Actor, &a.Panel, &a.Action, &a.Detail, &created); err != nil {
			return nil, err
		}
		a.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
