package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"emperror.dev/errors"
	"github.com/apex/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/priyxstudio/examination/config"
	"github.com/priyxstudio/examination/internal/cron"
	"github.com/priyxstudio/examination/internal/database"
	"github.com/priyxstudio/examination/messages"
	"github.com/priyxstudio/examination/module"
	"github.com/priyxstudio/examination/router"
	"github.com/priyxstudio/examination/store"
	"github.com/priyxstudio/examination/store/boltstore"
	"github.com/priyxstudio/examination/store/sqlstore"
	"github.com/priyxstudio/examination/system"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Runs the HTTP API.",
		PreRun: func(cmd *cobra.Command, args []string) {
			initConfig()
			if err := initLogging(); err != nil {
				fatal(err, "cmd/serve: failed to configure logging")
			}
		},
		Run: serveCmdRun,
	}
}

func serveCmdRun(cmd *cobra.Command, _ []string) {
	log.WithField("version", system.Version).Info("starting examination daemon")

	if err := config.ConfigureDirectories(); err != nil {
		log.WithField("error", err).Fatal("failed to configure system directories")
		return
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, config.Get()); err != nil {
		log.WithField("error", err).Fatal("daemon exited with an error")
	}
	log.Info("daemon stopped")
}

// openStore opens the document store selected in the configuration and wraps
// it with the read cache when one is configured.
func openStore(c *config.Configuration) (store.Store, error) {
	var st store.Store
	switch c.Database.Driver {
	case "sqlite":
		if err := database.Initialize(c.Database.Path); err != nil {
			return nil, err
		}
		st = sqlstore.New(database.Instance())
	case "bolt":
		b, err := boltstore.Open(c.Database.Path)
		if err != nil {
			return nil, err
		}
		st = b
	case "memory":
		log.Warn("using the in-memory store, nothing will be kept after a restart")
		st = store.NewMemory()
	default:
		return nil, errors.Errorf("cmd/serve: unknown database driver %q", c.Database.Driver)
	}

	log.WithFields(log.Fields{
		"driver": c.Database.Driver,
		"path":   c.Database.Path,
	}).Info("opened document store")

	if ttl := c.Database.CacheDuration(); ttl > 0 {
		log.WithField("ttl", ttl).Debug("caching document reads")
		return store.NewCached(st, ttl), nil
	}
	return st, nil
}

func serve(ctx context.Context, c *config.Configuration) error {
	store.ConflictRetries = c.Database.ConflictRetries

	st, err := openStore(c)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.WithField("error", err).Warn("failed to close document store")
		}
	}()

	sender := messages.NewStoreSender(st)
	svc := module.NewService(st, sender, module.WithWorkers(c.Messaging.Workers))

	if c.System.UploadSweepInterval > 0 {
		s, err := cron.Scheduler(ctx, svc, c.System.Data, time.Duration(c.System.UploadSweepInterval)*time.Second)
		if err != nil {
			return err
		}
		s.Start()
		defer func() {
			if err := s.Shutdown(); err != nil {
				log.WithField("error", err).Warn("failed to stop scheduler")
			}
		}()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", c.Api.Host, c.Api.Port),
		Handler:           router.Configure(svc, sender),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("listen", srv.Addr).Info("configuring internal webserver")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "cmd/serve: failed to start webserver")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down webserver")
		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
