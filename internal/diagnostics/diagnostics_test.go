package diagnostics

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/priyxstudio/examination/config"
	"github.com/priyxstudio/examination/internal/models"
	"github.com/priyxstudio/examination/messages"
	"github.com/priyxstudio/examination/module"
	"github.com/priyxstudio/examination/store"
)

func TestTailFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "log")
	if err := os.WriteFile(p, []byte("1\n2\n3\n4\n5\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	lines, err := TailFile(p, 2)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(lines) != 2 || lines[0] != "4" || lines[1] != "5" {
		t.Fatalf("unexpected lines %v", lines)
	}

	lines, _ = TailFile(p, 10)
	if len(lines) != 5 {
		t.Fatalf("expected every line, got %v", lines)
	}

	if _, err := TailFile(p+".missing", 1); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestGenerateReport(t *testing.T) {
	color.NoColor = true
	ctx := context.Background()

	c, err := config.NewAtPath("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	c.System.Data = t.TempDir()
	c.System.LogDirectory = t.TempDir()
	c.Database.Path = "/secret/location.db"
	if err := os.WriteFile(filepath.Join(c.System.LogDirectory, LogFile), []byte("first\nlast entry\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	st := store.NewMemory()
	svc := module.NewService(st, messages.NewStoreSender(st))
	for _, code := range []string{"CS101", "MA201"} {
		if _, err := svc.CreateModule(ctx, &models.Module{ModuleCode: code}); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	report, err := GenerateReport(ctx, c, st, Options{LogLines: 1})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(report, "Modules: 2") {
		t.Fatalf("expected module count in report:\n%s", report)
	}
	if !strings.Contains(report, "last entry") || strings.Contains(report, "first") {
		t.Fatalf("expected only the last log line in report:\n%s", report)
	}
	if strings.Contains(report, "/secret/location.db") {
		t.Fatalf("paths should be redacted by default:\n%s", report)
	}
}
