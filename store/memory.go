package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is a process local Store. It is used by tests and by the daemon when
// the database driver is set to "memory".
type Memory struct {
	mu   sync.RWMutex
	docs map[string]map[string]*Document
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]map[string]*Document)}
}

func (m *Memory) Get(ctx context.Context, collection, key string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[collection][key]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDocument(d), nil
}

func (m *Memory) Set(ctx context.Context, collection, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var version int64 = 1
	if d, ok := m.docs[collection][key]; ok {
		version = d.Version + 1
	}
	m.put(collection, key, version, data)
	return nil
}

func (m *Memory) Update(ctx context.Context, collection, key string, fields map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[collection][key]
	if !ok {
		return ErrNotFound
	}
	data, err := Merge(d.Data, fields)
	if err != nil {
		return err
	}
	m.put(collection, key, d.Version+1, data)
	return nil
}

func (m *Memory) GetAll(ctx context.Context, collection string) ([]*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Document, 0, len(m.docs[collection]))
	for _, d := range m.docs[collection] {
		out = append(out, copyDocument(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *Memory) CompareAndSwap(ctx context.Context, collection, key string, version int64, data []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var current int64
	if d, ok := m.docs[collection][key]; ok {
		current = d.Version
	}
	if current != version {
		return 0, ErrVersionConflict
	}
	m.put(collection, key, version+1, data)
	return version + 1, nil
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) put(collection, key string, version int64, data []byte) {
	c, ok := m.docs[collection]
	if !ok {
		c = make(map[string]*Document)
		m.docs[collection] = c
	}
	c[key] = &Document{
		Collection: collection,
		Key:        key,
		Data:       append([]byte(nil), data...),
		Version:    version,
	}
}

func copyDocument(d *Document) *Document {
	c := *d
	c.Data = append([]byte(nil), d.Data...)
	return &c
}
