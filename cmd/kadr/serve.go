package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/kadr/internal/backup"
	"github.com/alfredjeanlab/kadr/internal/config"
	"github.com/alfredjeanlab/kadr/internal/events"
	"github.com/alfredjeanlab/kadr/internal/server"
	"github.com/alfredjeanlab/kadr/internal/store/postgres"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the catalog HTTP and gRPC servers",
	GroupID: "system",
	// The server reads its own config; it never dials a remote.
	PersistentPreRunE: noClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

// openStore connects to the configured database and applies migrations.
func openStore(ctx context.Context, cfg *config.Config) (*postgres.PostgresStore, error) {
	return postgres.New(ctx, cfg.DatabaseURL, postgres.Options{
		MaxOpenConns:   cfg.DBMaxConns,
		ConnectTimeout: cfg.DBConnectTimeout,
		Logger:         logger,
	})
}

// serve runs both listeners and the backup scheduler until ctx is done,
// then shuts them down in reverse order of startup.
func serve(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLogged("store", store.Close)

	publisher, err := newPublisher(cfg.NATSURL)
	if err != nil {
		return err
	}
	defer closeLogged("publisher", publisher.Close)

	catalogServer := server.NewCatalogServer(store, publisher)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	grpcServer := server.NewGRPCServer(catalogServer, cfg.AuthToken)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           catalogServer.NewHTTPHandler(cfg.AuthToken),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Either listener failing ends the process the same way a signal does.
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			cancel(fmt.Errorf("grpc server: %w", err))
		}
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cancel(fmt.Errorf("http server: %w", err))
		}
	}()

	scheduler := startBackups(ctx, cfg, store, publisher)

	logger.Info("kadr server started",
		"grpc_addr", cfg.GRPCAddr,
		"http_addr", cfg.HTTPAddr,
		"auth", cfg.AuthToken != "",
		"events", cfg.NATSURL != "",
		"backups", scheduler != nil,
	)

	<-ctx.Done()
	cause := context.Cause(ctx)
	if errors.Is(cause, context.Canceled) {
		logger.Info("shutting down")
		cause = nil
	} else {
		logger.Error("shutting down after server failure", "err", cause)
	}

	if scheduler != nil {
		scheduler.Stop()
	}
	grpcServer.GracefulStop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "err", err)
	}
	logger.Info("shutdown complete")
	return cause
}

// startBackups starts the S3 backup scheduler when a bucket and a positive
// interval are configured. A destination that cannot be built is logged and
// the server runs without backups.
func startBackups(ctx context.Context, cfg *config.Config, store *postgres.PostgresStore, publisher events.Publisher) *backup.Scheduler {
	if cfg.BackupS3Bucket == "" || cfg.BackupInterval <= 0 {
		return nil
	}
	dest, err := backup.NewS3Destination(ctx, cfg.BackupS3Bucket, cfg.BackupS3Key, cfg.BackupS3Region, cfg.BackupS3Endpoint)
	if err != nil {
		logger.Error("backups disabled: S3 destination", "err", err)
		return nil
	}
	scheduler := backup.NewScheduler(store, []backup.Destination{dest}, cfg.BackupInterval, publisher, logger)
	scheduler.Start()
	logger.Info("backup scheduler started", "interval", cfg.BackupInterval, "location", dest.Location())
	return scheduler
}

func closeLogged(what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Error("close failed", "what", what, "err", err)
	}
}

// newPublisher connects to NATS, or returns a no-op publisher when url is empty.
func newPublisher(url string) (events.Publisher, error) {
	if url == "" {
		logger.Info("events disabled (KADR_NATS_URL not set)")
		return &events.NoopPublisher{}, nil
	}
	pub, err := events.NewNATSPublisher(url)
	if err != nil {
		return nil, err
	}
	logger.Info("events enabled", "nats_url", url)
	return pub, nil
}
