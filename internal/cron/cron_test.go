package cron

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/priyxstudio/examination/internal/models"
	"github.com/priyxstudio/examination/messages"
	"github.com/priyxstudio/examination/module"
	"github.com/priyxstudio/examination/store"
)

func writeFile(t *testing.T, p string, age time.Duration) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	ts := time.Now().Add(-age)
	if err := os.Chtimes(p, ts, ts); err != nil {
		t.Fatalf("chtimes failed: %v", err)
	}
}

func TestSweepUploads(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := module.NewService(st, messages.NewStoreSender(st))
	if _, err := svc.CreateModule(ctx, &models.Module{ModuleCode: "CS101"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.RecordUpload(ctx, "CS101", "kept.pdf"); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	data := t.TempDir()
	writeFile(t, filepath.Join(data, "CS101", "kept.pdf"), time.Hour)
	writeFile(t, filepath.Join(data, "CS101", "orphan.pdf"), time.Hour)
	writeFile(t, filepath.Join(data, "CS101", "fresh.pdf"), 0)
	writeFile(t, filepath.Join(data, "GONE", "old.pdf"), time.Hour)

	removed, err := SweepUploads(ctx, svc, data)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 files removed, got %d", removed)
	}
	for name, exists := range map[string]bool{
		"CS101/kept.pdf":   true,
		"CS101/fresh.pdf":  true,
		"CS101/orphan.pdf": false,
		"GONE/old.pdf":     false,
	} {
		_, err := os.Stat(filepath.Join(data, name))
		if exists && err != nil {
			t.Fatalf("expected %s to be kept: %v", name, err)
		}
		if !exists && !os.IsNotExist(err) {
			t.Fatalf("expected %s to be removed", name)
		}
	}
}

func TestSweepUploads_MissingDirectory(t *testing.T) {
	st := store.NewMemory()
	svc := module.NewService(st, messages.NewStoreSender(st))
	removed, err := SweepUploads(context.Background(), svc, filepath.Join(t.TempDir(), "nope"))
	if err != nil || removed != 0 {
		t.Fatalf("expected nothing to happen, got %d %v", removed, err)
	}
}

func TestScheduler(t *testing.T) {
	st := store.NewMemory()
	svc := module.NewService(st, messages.NewStoreSender(st))
	s, err := Scheduler(context.Background(), svc, t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(s.Jobs()) != 1 {
		t.Fatalf("expected a single job, got %d", len(s.Jobs()))
	}
	s.Start()
	if err := s.Shutdown(); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
}
