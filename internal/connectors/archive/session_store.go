package archive

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"protein-analysis-ui/internal/session"
)

// SessionStore persists one terminal profile's session pair.
// Entries never expire; they are removed on logout or failed validation.
type SessionStore struct {
	a   *Archive
	key []byte
}

// SessionStore returns the session store of profile.
func (a *Archive) SessionStore(profile string) *SessionStore {
	if profile == "" {
		profile = "default"
	}
	return &SessionStore{a: a, key: []byte(sessionPrefix + profile)}
}

func (s *SessionStore) Load(context.Context) (*session.Persisted, error) {
	var p session.Persisted
	err := s.a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &p) })
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SessionStore) Save(_ context.Context, p session.Persisted) error {
	val, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key, val)
	})
}

func (s *SessionStore) Clear(context.Context) error {
	return s.a.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.key)
	})
}
