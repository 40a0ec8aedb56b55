package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/dashgate/internal/auth"
	"github.com/jmylchreest/dashgate/internal/config"
	"github.com/jmylchreest/dashgate/internal/database"
	"github.com/jmylchreest/dashgate/internal/database/migrations"
	"github.com/jmylchreest/dashgate/internal/ffmpeg"
	"github.com/jmylchreest/dashgate/internal/gateway"
	internalhttp "github.com/jmylchreest/dashgate/internal/http"
	"github.com/jmylchreest/dashgate/internal/http/handlers"
	"github.com/jmylchreest/dashgate/internal/httpclient"
	"github.com/jmylchreest/dashgate/internal/repository"
	"github.com/jmylchreest/dashgate/internal/scheduler"
	"github.com/jmylchreest/dashgate/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashgate server",
	Long: `Start the dashgate HTTP server and gateway.

The server provides:
- A declarative channel catalog loaded from YAML
- On-demand DASH-to-HLS stream activation and idle eviction
- Cookie-based session auth for every endpoint but /login
- A daily housekeeping sweep for orphaned stream directories`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	db, err := database.New(cfg.Database, logger, nil)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if err := runMigrations(db, logger); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	channels, err := config.LoadChannels(cfg.Gateway.ChannelsFile)
	if err != nil {
		return fmt.Errorf("loading channel catalog: %w", err)
	}
	logger.Info("loaded channel catalog", slog.Int("channels", len(channels)))

	users, err := config.LoadUsers(cfg.Gateway.UsersFile)
	if err != nil {
		return fmt.Errorf("loading user table: %w", err)
	}

	detector := ffmpeg.NewBinaryDetector()
	ffmpegInfo, err := detector.Detect(context.Background())
	if err != nil {
		return fmt.Errorf("detecting ffmpeg: %w", err)
	}
	logger.Info("detected ffmpeg", slog.String("version", ffmpegInfo.Version), slog.String("path", ffmpegInfo.FFmpegPath))

	activityRepo := repository.NewActivityRepository(db.DB, logger)

	fetchClientCfg := httpclient.DefaultConfig()
	fetchClientCfg.Timeout = cfg.Gateway.HTTPTimeout
	fetchClientCfg.RetryAttempts = cfg.Gateway.RetryAttempts
	fetchClientCfg.RetryDelay = cfg.Gateway.RetryDelay
	fetchClientCfg.Logger = logger
	fetchClient := httpclient.New(fetchClientCfg)

	managerCfg := gateway.ManagerConfig{
		Gateway:       cfg.Gateway,
		FFmpegPath:    ffmpegInfo.FFmpegPath,
		OutputBaseDir: cfg.Storage.OutputPath(),
		IdleTimeout:   cfg.Gateway.IdleTimeout,
		SweepInterval: cfg.Gateway.EvictionInterval,
	}
	manager := gateway.NewManager(channels, managerCfg, fetchClient, activityRepo, logger)
	defer manager.Close()

	issuer, err := auth.NewTokenIssuer(cfg.Auth.Secret, cfg.Auth.TokenExpiry)
	if err != nil {
		return fmt.Errorf("initializing session token issuer: %w", err)
	}

	cleanupScheduler := scheduler.NewCleanupScheduler(
		scheduler.CleanupConfig{
			OutputBaseDir: cfg.Storage.OutputPath(),
			CronSchedule:  scheduler.DefaultCleanupSchedule,
		},
		manager,
		manager,
		logger,
	)
	cleanupScheduler.RunNow(context.Background())
	if err := cleanupScheduler.Start(); err != nil {
		return fmt.Errorf("starting cleanup scheduler: %w", err)
	}
	defer cleanupScheduler.Stop()

	serverConfig := internalhttp.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     internalhttp.DefaultServerConfig().IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	server := internalhttp.NewServer(serverConfig, logger, version.Version)

	server.UseAuth(auth.CookieGuardExcept(issuer, cfg.Auth.CookieName, "/login"))

	authHandler := handlers.NewAuthHandler(issuer, handlers.NewStaticUserStore(users), cfg.Auth.CookieName)
	authHandler.Register(server.API())

	streamHandler := handlers.NewStreamHandler(manager, activityRepo, logger)
	streamHandler.Register(server.API())
	streamHandler.RegisterFileServer(server.Router())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("starting dashgate server",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.String("version", version.Version),
	)

	return server.ListenAndServe(ctx)
}

func runMigrations(db *database.DB, logger *slog.Logger) error {
	migrator := migrations.NewMigrator(db.DB, logger)
	migrator.RegisterAll(migrations.AllMigrations())
	return migrator.Up(context.Background())
}
