// Package storetest contains behaviour checks shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"sync"
	"testing"

	"emperror.dev/errors"
	"github.com/goccy/go-json"

	"github.com/priyxstudio/examination/store"
)

// Run exercises s against the contract of store.Store. The store must be
// empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		if _, err := s.Get(ctx, "Things", "missing"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("SetAndGet", func(t *testing.T) {
		if err := s.Set(ctx, "Things", "a", []byte(`{"name":"a","n":1}`)); err != nil {
			t.Fatalf("set failed: %v", err)
		}
		d, err := s.Get(ctx, "Things", "a")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if d.Version != 1 {
			t.Fatalf("expected version 1, got %d", d.Version)
		}
		var v map[string]interface{}
		if err := d.Decode(&v); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if v["name"] != "a" {
			t.Fatalf("unexpected body %s", d.Data)
		}

		if err := s.Set(ctx, "Things", "a", []byte(`{"name":"a2"}`)); err != nil {
			t.Fatalf("overwrite failed: %v", err)
		}
		d, _ = s.Get(ctx, "Things", "a")
		if d.Version != 2 {
			t.Fatalf("expected version 2 after overwrite, got %d", d.Version)
		}
	})

	t.Run("UpdateMerges", func(t *testing.T) {
		if err := s.Set(ctx, "Things", "b", []byte(`{"keep":true,"list":[1]}`)); err != nil {
			t.Fatalf("set failed: %v", err)
		}
		if err := s.Update(ctx, "Things", "b", map[string]interface{}{"list": []int{1, 2}}); err != nil {
			t.Fatalf("update failed: %v", err)
		}
		d, err := s.Get(ctx, "Things", "b")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		var v struct {
			Keep bool  `json:"keep"`
			List []int `json:"list"`
		}
		if err := json.Unmarshal(d.Data, &v); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if !v.Keep || len(v.List) != 2 {
			t.Fatalf("unexpected merge result %s", d.Data)
		}
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		err := s.Update(ctx, "Things", "nope", map[string]interface{}{"x": 1})
		if !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("GetAllOrdered", func(t *testing.T) {
		for _, k := range []string{"z", "m", "c"} {
			if err := s.Set(ctx, "Ordered", k, []byte(`{}`)); err != nil {
				t.Fatalf("set failed: %v", err)
			}
		}
		docs, err := s.GetAll(ctx, "Ordered")
		if err != nil {
			t.Fatalf("get all failed: %v", err)
		}
		if len(docs) != 3 || docs[0].Key != "c" || docs[1].Key != "m" || docs[2].Key != "z" {
			t.Fatalf("unexpected documents %+v", docs)
		}
		empty, err := s.GetAll(ctx, "Empty")
		if err != nil {
			t.Fatalf("get all on empty collection failed: %v", err)
		}
		if len(empty) != 0 {
			t.Fatalf("expected no documents, got %d", len(empty))
		}
	})

	t.Run("CompareAndSwap", func(t *testing.T) {
		v, err := s.CompareAndSwap(ctx, "Things", "cas", 0, []byte(`{"n":1}`))
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if v != 1 {
			t.Fatalf("expected version 1, got %d", v)
		}
		if _, err := s.CompareAndSwap(ctx, "Things", "cas", 0, []byte(`{"n":2}`)); !errors.Is(err, store.ErrVersionConflict) {
			t.Fatalf("expected conflict on second create, got %v", err)
		}
		if _, err := s.CompareAndSwap(ctx, "Things", "cas", 5, []byte(`{"n":2}`)); !errors.Is(err, store.ErrVersionConflict) {
			t.Fatalf("expected conflict on stale version, got %v", err)
		}
		v, err = s.CompareAndSwap(ctx, "Things", "cas", 1, []byte(`{"n":2}`))
		if err != nil {
			t.Fatalf("swap failed: %v", err)
		}
		if v != 2 {
			t.Fatalf("expected version 2, got %d", v)
		}
	})

	t.Run("ModifyConcurrent", func(t *testing.T) {
		const writers = 8
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- store.Modify(ctx, s, "Counters", "c", func(data []byte) ([]byte, error) {
					var c struct {
						N int `json:"n"`
					}
					if data != nil {
						if err := json.Unmarshal(data, &c); err != nil {
							return nil, err
						}
					}
					c.N++
					return json.Marshal(c)
				})
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("modify failed: %v", err)
			}
		}
		d, err := s.Get(ctx, "Counters", "c")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		var c struct {
			N int `json:"n"`
		}
		_ = d.Decode(&c)
		if c.N != writers {
			t.Fatalf("expected %d increments, got %d", writers, c.N)
		}
	})
}
