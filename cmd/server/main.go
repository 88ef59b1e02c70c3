// Package main provides the server entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/hibiki/internal/api/connect"
	"github.com/osa030/hibiki/internal/app/catalog"
	"github.com/osa030/hibiki/internal/app/notification"
	"github.com/osa030/hibiki/internal/app/playback"
	"github.com/osa030/hibiki/internal/infra/config"
	"github.com/osa030/hibiki/internal/infra/logger"
	"github.com/osa030/hibiki/internal/infra/snapshot"
	"github.com/osa030/hibiki/internal/infra/storage"
)

var (
	app        = kingpin.New("hibiki-server", "hibiki playback queue server")
	configPath = app.Flag("config", "Path to config file (defaults are used when empty)").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
	logJSON    = app.Flag("log-json", "Write JSON log lines to stdout").Bool()

	// dump-state command
	dumpStateCmd = app.Command("dump-state", "Print the persisted queue and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
		JSON:   *logJSON,
	}
	// Override with command-line flags if specified
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	closeLog, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closeLog()

	// Load config
	cfg, err := loadConfig(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if command == dumpStateCmd.FullCommand() {
		if err := dumpState(cfg); err != nil {
			zlog.Error().Msgf("Failed to dump state: %v", err)
			os.Exit(1)
		}
		return
	}

	// Run server (defer ensures resources are released)
	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		zlog.Info().Msg("No config file given, using defaults")
		return config.Default()
	}
	zlog.Info().Msgf("Loading config from %s", path)
	return config.Load(path)
}

// openSnapshots opens the configured storage backend.
func openSnapshots(cfg *config.Config) (*snapshot.Store, storage.Backend, error) {
	backend, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to open %s storage", cfg.Storage.Backend)
	}
	zlog.Info().Msgf("Opened storage: backend=%s path=%s", cfg.Storage.Backend, cfg.Storage.Path)
	return snapshot.New(backend, cfg.SaveTimeout()), backend, nil
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	snapshots, backend, err := openSnapshots(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			zlog.Error().Msgf("Failed to close storage: %v", err)
		}
	}()

	// Restore the queue and keep saving it
	initial := snapshots.Load(ctx)
	store := playback.NewStore(initial, playback.WithPersister(snapshots))
	zlog.Info().Msgf("Queue restored: items=%d current_index=%d volume=%.2f",
		len(initial.Items), initial.CurrentIndex, initial.Volume)

	// Fan committed states out to remote subscribers
	notifications := notification.NewManager()
	detach := notifications.Attach(store)
	defer detach()

	// Create track source
	source, err := catalog.NewFromConfig(ctx, cfg.Catalog)
	if err != nil {
		return errors.Wrap(err, "failed to create catalog")
	}

	// Create RPC services
	queueService := apiconnect.NewQueueService(store, notifications, cfg.Queue.VolumeStep)
	catalogService := apiconnect.NewCatalogService(source)
	mux := apiconnect.NewMux(queueService, catalogService, cfg.Server.Token)
	if cfg.Server.Token == "" {
		zlog.Warn().Msg("server.token is empty, RPCs are not authenticated")
	}

	// Create server with h2c (HTTP/2 cleartext) support
	serverAddr := cfg.Server.Addr
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout(),
	}

	// Channel to capture server startup errors
	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	// Start server
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s catalog=%s", serverAddr, source.Provider)
		// Signal that we're about to start listening
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for server to start listening
	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	// Execute startup hook if configured (after server is running)
	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return errors.Wrap(err, "server error")
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// End subscription streams first so Shutdown does not wait on them
	queueService.Close()
	notifications.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	// Save once more in case the last best-effort save failed
	if err := store.Settle(shutdownCtx); err != nil {
		zlog.Warn().Msgf("Queue did not settle before shutdown: %v", err)
	}
	if err := snapshots.Save(shutdownCtx, store.Snapshot()); err != nil {
		zlog.Warn().Msgf("Failed to save queue on shutdown: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	// Execute shutdown hook if configured
	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return nil
}

// dumpState prints the persisted queue as JSON.
func dumpState(cfg *config.Config) error {
	snapshots, backend, err := openSnapshots(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	st := snapshots.Load(context.Background())
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
