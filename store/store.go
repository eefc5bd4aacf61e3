// Package store defines the document store used by the daemon. Documents are
// JSON objects addressed by a collection name and a key, and every document
// carries a version number that is bumped on each write so callers can make
// conflict-free read-modify-write changes through CompareAndSwap.
package store

import (
	"bytes"
	"context"
	stdjson "encoding/json"
	"time"

	"emperror.dev/errors"
	"github.com/Jeffail/gabs/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
)

var (
	// ErrNotFound is returned when the requested document does not exist.
	ErrNotFound = errors.NewPlain("store: document not found")

	// ErrVersionConflict is returned by CompareAndSwap when the stored version
	// no longer matches the expected one.
	ErrVersionConflict = errors.NewPlain("store: document version conflict")

	// ErrSkipWrite can be returned from a Modify callback to leave the
	// document untouched without failing the call.
	ErrSkipWrite = errors.NewPlain("store: skip write")
)

// ConflictRetries is the number of times Modify retries after losing a
// compare-and-swap race before giving up with ErrVersionConflict.
var ConflictRetries uint64 = 10

// Document is a single stored JSON object.
type Document struct {
	Collection string
	Key        string
	Data       []byte
	Version    int64
}

// Decode unmarshals the document body into v.
func (d *Document) Decode(v interface{}) error {
	if err := json.Unmarshal(d.Data, v); err != nil {
		return errors.Wrapf(err, "store: failed to decode %s/%s", d.Collection, d.Key)
	}
	return nil
}

// Store is implemented by every document backend.
type Store interface {
	// Get returns the document or ErrNotFound.
	Get(ctx context.Context, collection, key string) (*Document, error)

	// Set overwrites the document, creating it if needed.
	Set(ctx context.Context, collection, key string, data []byte) error

	// Update merges fields into the top level of an existing document.
	Update(ctx context.Context, collection, key string, fields map[string]interface{}) error

	// GetAll returns every document of a collection ordered by key.
	GetAll(ctx context.Context, collection string) ([]*Document, error)

	// CompareAndSwap writes data only if the stored version equals version
	// and returns the new version. A version of 0 means the document must not
	// exist yet.
	CompareAndSwap(ctx context.Context, collection, key string, version int64, data []byte) (int64, error)

	Close() error
}

// Merge overlays fields onto the JSON object in data and returns the encoded
// result. A nil data slice is treated as an empty object. Keys are dotted
// paths, so "a.b" sets the member b of the nested object a, creating it when
// missing.
func Merge(data []byte, fields map[string]interface{}) ([]byte, error) {
	doc := gabs.New()
	if len(data) > 0 {
		dec := stdjson.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		parsed, err := gabs.ParseJSONDecoder(dec)
		if err != nil {
			return nil, errors.Wrap(err, "store: failed to parse document")
		}
		if _, ok := parsed.Data().(map[string]interface{}); !ok {
			return nil, errors.New("store: document is not a JSON object")
		}
		doc = parsed
	}
	for k, v := range fields {
		if _, err := doc.SetP(v, k); err != nil {
			return nil, errors.Wrapf(err, "store: failed to set field %s", k)
		}
	}
	return doc.Bytes(), nil
}

// Modify performs a read-modify-write of a single document. fn receives the
// current body, or nil when the document does not exist, and returns the new
// body. When another writer changes the document in between, the whole cycle
// is repeated with a short exponential backoff. Errors returned by fn are
// passed through untouched and never retried.
func Modify(ctx context.Context, s Store, collection, key string, fn func(data []byte) ([]byte, error)) error {
	op := func() error {
		var current []byte
		var version int64
		doc, err := s.Get(ctx, collection, key)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return backoff.Permanent(err)
		}
		if doc != nil {
			current = doc.Data
			version = doc.Version
		}

		next, err := fn(current)
		if err != nil {
			if errors.Is(err, ErrSkipWrite) {
				return nil
			}
			return backoff.Permanent(err)
		}

		if _, err := s.CompareAndSwap(ctx, collection, key, version, next); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(newBackOff(), ConflictRetries), ctx))
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = 0
	return b
}
