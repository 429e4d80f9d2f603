package workspace

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Dataset statuses.
const (
	DatasetCurated   = "Curado"
	DatasetInReview  = "En revisión"
	DatasetImporting = "Procesando"
)

// Dataset is one curated collection of sequences.
type Dataset struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Version     string    `json:"version" yaml:"version"`
	Records     int64     `json:"records" yaml:"records"`
	SizeBytes   int64     `json:"size_bytes" yaml:"size_bytes"`
	Status      string    `json:"status" yaml:"status"`
	Format      string    `json:"format" yaml:"format"`
	Source      string    `json:"source" yaml:"source"`
	Description string    `json:"description" yaml:"description"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// DatasetStats are the counters shown above the dataset table.
type DatasetStats struct {
	Total   int64 `json:"total"`
	Curated int64 `json:"curated"`
	Records int64 `json:"records"`
}

const datasetColumns = `id, name, version, records, size_bytes, status, format, source, description, created_at, updated_at`

func (s *Store) ListDatasets(ctx context.Context) (out []Dataset, err error) {
	ctx, done := s.begin(ctx, "ListDatasets", &err)
	defer done()

	rows, err := s.db.QueryContext(ctx, `SELECT `+datasetColumns+` FROM datasets ORDER BY updated_at DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out = make([]Dataset, 0)
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GetDataset(ctx context.Context, id string) (d Dataset, err error) {
	ctx, done := s.begin(ctx, "GetDataset", &err)
	defer done()

	row := s.db.QueryRowContext(ctx, `SELECT `+datasetColumns+` FROM datasets WHERE id = ?`, id)
	d, err = scanDataset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Dataset{}, ErrNotFound
	}
	return d, err
}

// CreateDataset inserts d, filling id, version, status and timestamps when unset.
func (s *Store) CreateDataset(ctx context.Context, d Dataset) (out Dataset, err error) {
	ctx, done := s.begin(ctx, "CreateDataset", &err)
	defer done()

	now := time.Now().UTC().Truncate(time.Second)
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Version == "" {
		d.Version = "v1.0"
	}
	if d.Status == "" {
		d.Status = DatasetInReview
	}
	if d.Format == "" {
		d.Format = "FAIR"
	}
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return Dataset{}, errors.New("dataset name required")
	}
	d.CreatedAt, d.UpdatedAt = now, now

	_, err = s.db.ExecContext(ctx, `INSERT INTO datasets (`+datasetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.Version, d.Records, d.SizeBytes, d.Status, d.Format, d.Source, d.Description, now.Unix(), now.Unix())
	if err != nil {
		return Dataset{}, err
	}
	return d, nil
}

// UpdateDataset changes the editable fields: description and status.
func (s *Store) UpdateDataset(ctx context.Context, id, description, status string) (err error) {
	ctx, done := s.begin(ctx, "UpdateDataset", &err)
	defer done()

	res, err := s.db.ExecContext(ctx, `UPDATE datasets SET description = ?, status = ?, updated_at = ? WHERE id = ?`,
		strings.TrimSpace(description), status, time.Now().UTC().Unix(), id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (s *Store) DeleteDataset(ctx context.Context, id string) (err error) {
	ctx, done := s.begin(ctx, "DeleteDataset", &err)
	defer done()

	res, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (s *Store) DatasetStats(ctx context.Context) (out DatasetStats, err error) {
	ctx, done := s.begin(ctx, "DatasetStats", &err)
	defer done()

	err = s.db.QueryRowContext(ctx, `
SELECT COUNT(*),
       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(records), 0)
FROM datasets`, DatasetCurated).Scan(&out.Total, &out.Curated, &out.Records)
	return out, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDataset(r rowScanner) (Dataset, error) {
	var d Dataset
	var created, updated int64
	if err := r.Scan(&d.ID, &d.Name, &d.Version, &d.Records, &d.SizeBytes, &d.Status, &d.Format, &d.Source, &d.Description, &created, &updated); err != nil {
		return Dataset{}, err
	}
	d.CreatedAt = time.Unix(created, 0).UTC()
	d.UpdatedAt = time.Unix(updated, 0).UTC()
	return d, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
