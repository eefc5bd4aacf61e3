package system

import (
	"context"
	"runtime"
	"testing"
)

func TestGetSystemInformation(t *testing.T) {
	info, err := GetSystemInformation(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if info.Version != Version {
		t.Fatalf("expected version %q, got %q", Version, info.Version)
	}
	if info.System.OSType != runtime.GOOS || info.System.Architecture != runtime.GOARCH {
		t.Fatalf("unexpected platform: %+v", info.System)
	}
	if info.System.OS == "" {
		t.Fatalf("expected an operating system name")
	}
}

func TestGetSystemUtilization(t *testing.T) {
	u, err := GetSystemUtilization(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if u.MemoryTotal == 0 || u.DiskTotal == 0 {
		t.Fatalf("expected memory and disk totals, got %+v", u)
	}
}
