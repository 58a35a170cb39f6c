package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/adapters/httpapi"
	"github.com/Guilhem-Bonnet/daylive/internal/adapters/jsonstore"
	"github.com/Guilhem-Bonnet/daylive/internal/adapters/mediahttp"
	"github.com/Guilhem-Bonnet/daylive/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/daylive/internal/adapters/memstore"
	"github.com/Guilhem-Bonnet/daylive/internal/adapters/realclock"
	"github.com/Guilhem-Bonnet/daylive/internal/adapters/sqlite"
	"github.com/Guilhem-Bonnet/daylive/internal/app"
	"github.com/Guilhem-Bonnet/daylive/internal/buildinfo"
	"github.com/Guilhem-Bonnet/daylive/internal/config"
	"github.com/Guilhem-Bonnet/daylive/internal/ports"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	addr := flag.String("addr", cfg.Addr, "Adresse d'écoute (ex: 127.0.0.1:8080)")
	dbPath := flag.String("db", cfg.DBPath, "Chemin SQLite (ex: daylive.db)")
	seedPath := flag.String("seed", "", "Fichier JSON d'abonnements/contenus à importer au démarrage")
	flag.Parse()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("app", "daylive-server").Logger()
	log.Logger = logger

	logger.Info().Interface("build", buildinfo.Current()).Str("db", *dbPath).Str("store", cfg.Store).Msg("starting")

	ctx := context.Background()
	db, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open db")
	}
	defer func() { _ = db.Close() }()

	bus := memorybus.New()
	defer bus.Close()
	clock := realclock.New()

	subsRepo := sqlite.NewSubscriptionsRepository(db.SQL)
	contentRepo := sqlite.NewContentRepository(db.SQL)
	settingsSvc := app.NewSettingsService(sqlite.NewSettingsRepository(db.SQL, cfg.Settings()), bus)

	if *seedPath != "" {
		if err := importSeed(ctx, logger, *seedPath, settingsSvc, subsRepo, contentRepo); err != nil {
			logger.Fatal().Err(err).Str("seed", *seedPath).Msg("seed import failed")
		}
	}

	progress := progressStore(logger, cfg, db)

	var source ports.DurationSource
	if cfg.MediaBaseURL != "" {
		source = mediahttp.NewDurationSource(cfg.MediaBaseURL, cfg.MediaRatePerSec)
	} else {
		logger.Warn().Msg("DAYLIVE_MEDIA_BASE_URL not set: durations unknown until reported by the player")
	}
	durations := app.NewDurationResolver(logger.With().Str("component", "durations").Logger(), source, contentRepo, cfg.MaxDurationProbes)
	aggregator := app.NewCompletionAggregator(logger.With().Str("component", "aggregator").Logger(), progress, bus, clock)

	settings, err := settingsSvc.Get(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to read settings")
	}
	limiter := app.NewSessionLimiter(settings.MaxSessions)

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessions := app.NewSessionManager(logger.With().Str("component", "sessions").Logger(), app.SessionDeps{
		Logger:        logger.With().Str("component", "session").Logger(),
		Clock:         clock,
		Subscriptions: subsRepo,
		Content:       contentRepo,
		Progress:      progress,
		Durations:     durations,
		Aggregator:    aggregator,
		Bus:           bus,
	}, settingsSvc, limiter)
	if cfg.SessionIdleTimeout > 0 {
		sessions.IdleTimeout = cfg.SessionIdleTimeout
	}
	go sessions.Run(shutdownCtx)

	// Tracker: fait avancer lastCompletedDay à chaque contenu terminé.
	tracker := app.NewProgressTracker(logger.With().Str("component", "progress-tracker").Logger(), bus, subsRepo)
	go tracker.Run(shutdownCtx)

	srv := httpapi.NewServer(httpapi.ServerDeps{
		Logger:            logger,
		Clock:             clock,
		Sessions:          sessions,
		Plans:             app.NewPlanService(subsRepo, contentRepo, progress, durations, settingsSvc),
		Progress:          progress,
		Settings:          settingsSvc,
		Bus:               bus,
		OnSettingsUpdated: sessions.ApplySettings,
	})
	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", *addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server crashed")
			stop()
		}
	}()

	<-shutdownCtx.Done()
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
	sessions.CloseAll()
	logger.Info().Msg("bye")
}

// progressStore: le store durable est toujours doublé d'un store mémoire de secours.
func progressStore(logger zerolog.Logger, cfg config.Config, db *sqlite.DB) ports.ProgressStore {
	memory := memstore.NewProgressStore()
	var durable ports.ProgressStore
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn().Msg("progress kept in memory only")
		return memory
	case config.StoreJSON:
		durable = jsonstore.NewProgressStore(cfg.ProgressFile)
	default:
		durable = sqlite.NewProgressRepository(db.SQL)
	}
	return app.NewFallbackProgressStore(logger.With().Str("component", "progress-store").Logger(), durable, memory)
}

func importSeed(ctx context.Context, logger zerolog.Logger, path string, settings *app.SettingsService, subs ports.SubscriptionRepository, content ports.ContentRepository) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	s, err := settings.Get(ctx)
	if err != nil {
		return err
	}
	res, err := app.ImportSeed(ctx, f, s.Schedule().Location, subs, content)
	if err != nil {
		return err
	}
	logger.Info().Int("subscriptions", res.Subscriptions).Int("content_units", res.ContentUnits).Msg("seed imported")
	return nil
}
