package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/pierrec/lz4/v4"
)

// ErrNotFound is returned for unknown or expired entries.
var ErrNotFound = errors.New("archive: entry not found")

const (
	blobPrefix    = "blob:"
	metaPrefix    = "meta:"
	sessionPrefix = "session:"
)

// Entry describes one archived report download.
type Entry struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	ContentType    string    `json:"content_type"`
	Kind           string    `json:"kind"`
	Owner          string    `json:"owner"`
	Size           int64     `json:"size"`
	CompressedSize int64     `json:"compressed_size"`
	Pages          int       `json:"pages,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Stats summarises the archive contents.
type Stats struct {
	Entries         int   `json:"entries"`
	OriginalBytes   int64 `json:"original_bytes"`
	CompressedBytes int64 `json:"compressed_bytes"`
}

// Observer receives one call per archive operation.
type Observer func(operation string, durationSeconds float64, err error)

// Archive keeps downloaded reports in badger, lz4-compressed.
type Archive struct {
	db      *badger.DB
	ttl     time.Duration
	observe Observer
}

// Open opens (or creates) the archive at path. An empty path keeps
// everything in memory.
func Open(path string, ttl time.Duration) (*Archive, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return &Archive{db: db, ttl: ttl}, nil
}

// SetObserver reports every operation to fn.
func (a *Archive) SetObserver(fn Observer) {
	if a != nil {
		a.observe = fn
	}
}

func (a *Archive) Enabled() bool {
	return a != nil && a.db != nil
}

func (a *Archive) Close() error {
	if !a.Enabled() {
		return nil
	}
	return a.db.Close()
}

// Put compresses and stores body, returning the completed entry.
func (a *Archive) Put(_ context.Context, e Entry, body []byte) (out Entry, err error) {
	start := time.Now()
	defer func() { a.record("Put", start, err) }()

	packed, err := compress(body)
	if err != nil {
		return Entry{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	e.Size = int64(len(body))
	e.CompressedSize = int64(len(packed))
	meta, err := json.Marshal(e)
	if err != nil {
		return Entry{}, err
	}

	err = a.db.Update(func(txn *badger.Txn) error {
		if err := txn.SetEntry(a.entry([]byte(blobPrefix+e.ID), packed)); err != nil {
			return err
		}
		return txn.SetEntry(a.entry([]byte(metaPrefix+e.ID), meta))
	})
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Get returns an entry and its decompressed content.
func (a *Archive) Get(_ context.Context, id string) (e Entry, body []byte, err error) {
	start := time.Now()
	defer func() { a.record("Get", start, err) }()

	var packed []byte
	err = a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaPrefix + id))
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &e) }); err != nil {
			return err
		}
		item, err = txn.Get([]byte(blobPrefix + id))
		if err != nil {
			return err
		}
		packed, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Entry{}, nil, ErrNotFound
	}
	if err != nil {
		return Entry{}, nil, err
	}
	body, err = decompress(packed)
	if err != nil {
		return Entry{}, nil, err
	}
	return e, body, nil
}

// List returns entries newest first. An empty owner lists everyone's.
func (a *Archive) List(_ context.Context, owner string, limit int) (out []Entry, err error) {
	start := time.Now()
	defer func() { a.record("List", start, err) }()

	err = a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(metaPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var e Entry
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &e) }); err != nil {
				return err
			}
			if owner != "" && e.Owner != owner {
				continue
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Stats counts entries and bytes.
func (a *Archive) Stats(ctx context.Context) (Stats, error) {
	entries, err := a.List(ctx, "", 0)
	if err != nil {
		return Stats{}, err
	}
	var s Stats
	for _, e := range entries {
		s.Entries++
		s.OriginalBytes += e.Size
		s.CompressedBytes += e.CompressedSize
	}
	return s, nil
}

func (a *Archive) entry(key, val []byte) *badger.Entry {
	e := badger.NewEntry(key, val)
	if a.ttl > 0 {
		e = e.WithTTL(a.ttl)
	}
	return e
}

func (a *Archive) record(op string, start time.Time, err error) {
	if a.observe != nil {
		a.observe(op, time.Since(start).Seconds(), err)
	}
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compression failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compression failed: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}
	return out, nil
}
