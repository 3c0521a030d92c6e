package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/mediapull/api"
	"github.com/yourusername/mediapull/api/handlers"
	"github.com/yourusername/mediapull/internal/app"
	"github.com/yourusername/mediapull/internal/domain"
	"github.com/yourusername/mediapull/internal/infrastructure"
	"github.com/yourusername/mediapull/pkg/logger"
)

var (
	serverMode = flag.Bool("server-mode", false, "Internal flag: run in server mode (called by daemon)")
	foreground = flag.Bool("foreground", false, "Run in the foreground instead of detaching")
	configPath = flag.String("config", "", "Path to config file")
)

func main() {
	flag.Parse()

	if !*serverMode && !*foreground {
		startAsDaemon()
		return
	}

	if err := runServer(); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func runServer() error {
	config, err := app.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	// Category logs: download, session, access, error
	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Logging.LogsDir,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize category logs: %w", err)
	}
	defer multiLog.Close()

	logAdapter := logger.NewLoggerAdapter(multiLog, log)

	log.Info("Starting mediapull server",
		zap.String("version", handlers.Version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.Ints("positions", config.Download.Positions),
		zap.String("output_dir", config.Download.OutputDir),
		zap.String("sink_url", config.Download.SinkURL))

	repo, err := infrastructure.NewSQLiteRepository(config.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer repo.Close()

	positions := app.MountPositions(&config.Download)

	catalog := app.NewCatalog(repo, config.Download.MaxFileNameLength, log)
	if err := catalog.Load(positions); err != nil {
		return err
	}

	history := app.NewHistoryService(repo, log)
	notifier := infrastructure.NewNotificationService(&config.Notification, log)
	defer notifier.Wait()
	observers := domain.Observers{
		infrastructure.NewLogObserver(logAdapter.Download()),
		history,
		notifier,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opener, closeOpener, err := buildSinkOpener(ctx, &config.Download)
	if err != nil {
		return err
	}
	defer closeOpener()

	registry := app.NewRegistry(catalog, opener, app.NewMonotonicClock(), observers, logAdapter.Session())
	for _, position := range positions {
		if _, err := registry.Register(position); err != nil {
			return err
		}
	}
	defer registry.Close()

	var watchdog *app.Watchdog
	if config.Download.StallTimeout > 0 {
		watchdog = app.NewWatchdog(registry, config.Download.StallTimeout, config.Download.CheckInterval, multiLog)
		if err := watchdog.Start(ctx); err != nil {
			return fmt.Errorf("failed to start watchdog: %w", err)
		}
	}

	router := api.SetupRouter(api.Services{
		Registry: registry,
		Catalog:  catalog,
		History:  history,
		Watchdog: watchdog,
	}, logAdapter, config)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Received shutdown signal")
	case err := <-serverErr:
		log.Error("HTTP server failed", zap.Error(err))
	}

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if watchdog != nil {
		if err := watchdog.Stop(); err != nil {
			log.Error("Error stopping watchdog", zap.Error(err))
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}

// buildSinkOpener selects the bucket sink when a sink URL is configured and
// local files otherwise, optionally behind a write queue
func buildSinkOpener(ctx context.Context, config *domain.DownloadConfig) (domain.SinkOpener, func(), error) {
	var opener domain.SinkOpener
	closeFn := func() {}

	if config.SinkURL != "" {
		bucketOpener, err := infrastructure.OpenBucketSinkOpener(ctx, config.SinkURL, "", config.MaxFileNameLength)
		if err != nil {
			return nil, nil, err
		}
		opener = bucketOpener
		closeFn = func() { bucketOpener.Close() }
	} else {
		opener = infrastructure.NewFileSinkOpener(config.OutputDir, config.MaxFileNameLength)
	}

	if config.WriteQueueDepth > 0 {
		opener = infrastructure.NewQueuedSinkOpener(opener, config.WriteQueueDepth)
	}
	return opener, closeFn, nil
}
