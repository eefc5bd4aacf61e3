// Package cron runs the periodic maintenance jobs of the daemon.
package cron

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"emperror.dev/errors"
	"github.com/apex/log"
	"github.com/go-co-op/gocron/v2"

	"github.com/priyxstudio/examination/module"
)

// UploadGracePeriod is how old an unrecorded file must be before the sweeper
// removes it. Uploads are written to disk before they are recorded, so
// younger files may still belong to a request in flight.
var UploadGracePeriod = 10 * time.Minute

// Scheduler creates a scheduler running the upload sweeper every interval. It
// is not started. Jobs use ctx so they stop when the daemon shuts down.
func Scheduler(ctx context.Context, svc *module.Service, dataDir string, interval time.Duration) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, errors.Wrap(err, "cron: failed to create scheduler")
	}

	l := log.WithField("job", "upload-sweeper")
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			removed, err := SweepUploads(ctx, svc, dataDir)
			if err != nil {
				l.WithField("error", err).Error("failed to sweep unrecorded uploads")
				return
			}
			if removed > 0 {
				l.WithField("removed", removed).Info("removed unrecorded uploads")
			}
		}),
		gocron.WithName("upload-sweeper"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, errors.Wrap(err, "cron: failed to register upload sweeper")
	}
	return s, nil
}

// SweepUploads deletes files under dataDir/<module>/ that are not in the file
// record of that module and are older than UploadGracePeriod. It returns the
// number of files removed.
func SweepUploads(ctx context.Context, svc *module.Service, dataDir string) (int, error) {
	dirs, err := os.ReadDir(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.WithStack(err)
	}

	cutoff := time.Now().Add(-UploadGracePeriod)
	var removed int
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		list, err := svc.GetFileList(ctx, d.Name())
		if err != nil {
			return removed, err
		}
		recorded := make(map[string]struct{}, len(list))
		for _, f := range list {
			recorded[f] = struct{}{}
		}

		dir := filepath.Join(dataDir, d.Name())
		entries, err := os.ReadDir(dir)
		if err != nil {
			return removed, errors.WithStack(err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if _, ok := recorded[e.Name()]; ok {
				continue
			}
			info, err := e.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !os.IsNotExist(err) {
				return removed, errors.WithStack(err)
			}
			removed++
		}
	}
	return removed, nil
}
