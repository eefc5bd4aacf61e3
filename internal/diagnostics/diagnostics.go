// Package diagnostics collects information about a running installation to
// help with debugging.
package diagnostics

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"emperror.dev/errors"
	"github.com/fatih/color"

	"github.com/priyxstudio/examination/config"
	"github.com/priyxstudio/examination/messages"
	"github.com/priyxstudio/examination/module"
	"github.com/priyxstudio/examination/store"
	"github.com/priyxstudio/examination/system"
)

// LogFile is the name of the daemon log file inside the log directory.
const LogFile = "examination.log"

type Options struct {
	// IncludePaths adds the configured directories and database path.
	IncludePaths bool
	// LogLines is the number of trailing log lines to include, 0 for none.
	LogLines int
}

// GenerateReport builds a plain text report describing the host, the active
// configuration and the contents of st.
func GenerateReport(ctx context.Context, c *config.Configuration, st store.Store, opts Options) (string, error) {
	var b strings.Builder
	header := color.New(color.Bold).SprintFunc()

	b.WriteString(header("|\n| Versions\n| ------------------------------\n"))
	if info, err := system.GetSystemInformation(ctx); err != nil {
		fmt.Fprintf(&b, "%12s: %v\n", "Error", err)
	} else {
		fmt.Fprintf(&b, "%12s: %s\n", "Examination", info.Version)
		fmt.Fprintf(&b, "%12s: %s\n", "Go", info.System.GoVersion)
		fmt.Fprintf(&b, "%12s: %s (%s/%s)\n", "OS", info.System.OS, info.System.OSType, info.System.Architecture)
		fmt.Fprintf(&b, "%12s: %s\n", "Kernel", info.System.KernelVersion)
	}

	b.WriteString(header("|\n| Configuration\n| ------------------------------\n"))
	fmt.Fprintf(&b, "%16s: %s:%d\n", "Listen", c.Api.Host, c.Api.Port)
	fmt.Fprintf(&b, "%16s: %s\n", "Database Driver", c.Database.Driver)
	fmt.Fprintf(&b, "%16s: %s\n", "Cache TTL", c.Database.CacheDuration())
	fmt.Fprintf(&b, "%16s: %d\n", "Workers", c.Messaging.Workers)
	fmt.Fprintf(&b, "%16s: %t\n", "Debug", c.Debug)
	if opts.IncludePaths {
		fmt.Fprintf(&b, "%16s: %s\n", "Database Path", c.Database.Path)
		fmt.Fprintf(&b, "%16s: %s\n", "Data Directory", c.System.Data)
		fmt.Fprintf(&b, "%16s: %s\n", "Log Directory", c.System.LogDirectory)
	} else {
		fmt.Fprintf(&b, "%16s: %s\n", "Paths", "{redacted}")
	}

	b.WriteString(header("|\n| Documents\n| ------------------------------\n"))
	for _, col := range []string{module.ModulesCollection, module.FilesCollection, messages.Collection} {
		docs, err := st.GetAll(ctx, col)
		if err != nil {
			fmt.Fprintf(&b, "%16s: %v\n", col, err)
			continue
		}
		fmt.Fprintf(&b, "%16s: %d\n", col, len(docs))
	}

	if u, err := system.GetSystemUtilization(ctx, c.System.Data); err == nil {
		b.WriteString(header("|\n| Utilization\n| ------------------------------\n"))
		fmt.Fprintf(&b, "%16s: %d / %d MiB\n", "Memory", u.MemoryUsed>>20, u.MemoryTotal>>20)
		fmt.Fprintf(&b, "%16s: %d / %d MiB\n", "Upload Disk", u.DiskUsed>>20, u.DiskTotal>>20)
	}

	if opts.LogLines > 0 {
		b.WriteString(header("|\n| Logs\n| ------------------------------\n"))
		lines, err := TailFile(filepath.Join(c.System.LogDirectory, LogFile), opts.LogLines)
		if err != nil {
			fmt.Fprintf(&b, "failed to read log file: %v\n", err)
		}
		for _, l := range lines {
			b.WriteString(l)
			b.WriteByte('\n')
		}
	}

	return b.String(), nil
}

// TailFile returns up to n trailing lines of the file at p.
func TailFile(p string, n int) ([]string, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) == n {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return ring, errors.WithStack(err)
	}
	return ring, nil
}
