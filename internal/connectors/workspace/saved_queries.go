package workspace

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SavedQuery is a named search a user can run again.
type SavedQuery struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Name      string    `json:"name"`
	Query     string    `json:"query"`
	Tipo      string    `json:"tipo"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Store) ListSavedQueries(ctx context.Context, owner string) (out []SavedQuery, err error) {
	ctx, done := s.begin(ctx, "ListSavedQueries", &err)
	defer done()

	rows, err := s.db.QueryContext(ctx, `
SELECT id, owner, name, query, tipo, created_at
FROM saved_queries
WHERE owner = ?
ORDER BY created_at DESC, name`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out = make([]SavedQuery, 0)
	for rows.Next() {
		var q SavedQuery
		var created int64
		if err := rows.Scan(&q.ID, &q.Owner, &q.Name, &q.Query, &q.Tipo, &created); err != nil {
			return nil, err
		}
		q.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GetSavedQuery(ctx context.Context, owner, id string) (q SavedQuery, err error) {
	ctx, done := s.begin(ctx, "GetSavedQuery", &err)
	defer done()

	var created int64
	err = s.db.QueryRowContext(ctx, `
SELECT id, owner, name, query, tipo, created_at
FROM saved_queries
WHERE id = ? AND owner = ?`, id, owner).Scan(&q.ID, &q.Owner, &q.Name, &q.Query, &q.Tipo, &created)
	if err != nil {
		if isNoRows(err) {
			return SavedQuery{}, ErrNotFound
		}
		return SavedQuery{}, err
	}
	q.CreatedAt = time.Unix(created, 0).UTC()
	return q, nil
}

// SaveQuery stores a search. The name defaults to the query text.
func (s *Store) SaveQuery(ctx context.Context, q SavedQuery) (out SavedQuery, err error) {
	ctx, done := s.begin(ctx, "SaveQuery", &err)
	defer done()

	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return SavedQuery{}, errors.New("query text required")
	}
	if strings.TrimSpace(q.Name) == "" {
		q.Name = q.Query
	}
	if q.Tipo == "" {
		q.Tipo = "all"
	}
	q.ID = uuid.NewString()
	q.CreatedAt = time.Now().UTC().Truncate(time.Second)

	_, err = s.db.ExecContext(ctx, `INSERT INTO saved_queries (id, owner, name, query, tipo, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		q.ID, q.Owner, q.Name, q.Query, q.Tipo, q.CreatedAt.Unix())
	if err != nil {
		return SavedQuery{}, err
	}
	return q, nil
}

func (s *Store) DeleteSavedQuery(ctx context.Context, owner, id string) (err error) {
	ctx, done := s.begin(ctx, "DeleteSavedQuery", &err)
	defer done()

	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_queries WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}
