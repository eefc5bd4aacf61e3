// Package boltstore implements store.Store on a bbolt file. Each collection
// is a bucket and every value is an envelope holding the document version and
// its JSON body.
package boltstore

import (
	"context"
	"time"

	"emperror.dev/errors"
	"github.com/goccy/go-json"
	"go.etcd.io/bbolt"

	"github.com/priyxstudio/examination/store"
)

type envelope struct {
	Version int64           `json:"v"`
	Data    json.RawMessage `json:"d"`
}

type Store struct {
	db *bbolt.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) the bolt file at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "boltstore: could not open database file")
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, collection, key string) (*store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var doc *store.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		env, err := read(tx, collection, key)
		if err != nil {
			return err
		}
		doc = toDocument(collection, key, env)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store) Set(ctx context.Context, collection, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		var version int64 = 1
		env, err := read(tx, collection, key)
		if err == nil {
			version = env.Version + 1
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return write(tx, collection, key, version, data)
	})
}

func (s *Store) Update(ctx context.Context, collection, key string, fields map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		env, err := read(tx, collection, key)
		if err != nil {
			return err
		}
		data, err := store.Merge(env.Data, fields)
		if err != nil {
			return err
		}
		return write(tx, collection, key, env.Version+1, data)
	})
}

func (s *Store) GetAll(ctx context.Context, collection string) ([]*store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]*store.Document, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		// Keys come back in byte order, which matches the ordering of the
		// other backends for plain string keys.
		return b.ForEach(func(k, v []byte) error {
			var env envelope
			if err := json.Unmarshal(v, &env); err != nil {
				return errors.Wrapf(err, "boltstore: corrupt document %s/%s", collection, k)
			}
			out = append(out, toDocument(collection, string(k), &env))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) CompareAndSwap(ctx context.Context, collection, key string, version int64, data []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var next int64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		var current int64
		env, err := read(tx, collection, key)
		if err == nil {
			current = env.Version
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if current != version {
			return store.ErrVersionConflict
		}
		next = version + 1
		return write(tx, collection, key, next, data)
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func read(tx *bbolt.Tx, collection, key string) (*envelope, error) {
	b := tx.Bucket([]byte(collection))
	if b == nil {
		return nil, store.ErrNotFound
	}
	v := b.Get([]byte(key))
	if v == nil {
		return nil, store.ErrNotFound
	}
	var env envelope
	if err := json.Unmarshal(v, &env); err != nil {
		return nil, errors.Wrapf(err, "boltstore: corrupt document %s/%s", collection, key)
	}
	return &env, nil
}

func write(tx *bbolt.Tx, collection, key string, version int64, data []byte) error {
	if key == "" {
		return errors.New("boltstore: document key must be non-empty")
	}
	b, err := tx.CreateBucketIfNotExists([]byte(collection))
	if err != nil {
		return errors.Wrapf(err, "boltstore: failed to create bucket %s", collection)
	}
	v, err := json.Marshal(envelope{Version: version, Data: data})
	if err != nil {
		return errors.Wrap(err, "boltstore: failed to encode document")
	}
	return b.Put([]byte(key), v)
}

func toDocument(collection, key string, env *envelope) *store.Document {
	return &store.Document{
		Collection: collection,
		Key:        key,
		Data:       append([]byte(nil), env.Data...),
		Version:    env.Version,
	}
}
