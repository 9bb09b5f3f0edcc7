package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Skufu/healthrisk/internal/auth"
	"github.com/Skufu/healthrisk/internal/classifier"
	"github.com/Skufu/healthrisk/internal/logging"
	"github.com/Skufu/healthrisk/internal/metrics"
	"github.com/Skufu/healthrisk/internal/store"
)

func main() {
	gin.SetMode(getEnv("GIN_MODE", "release"))

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogPretty)
	ctx := context.Background()

	creds := cfg.Credentials
	var db HealthChecker
	if cfg.EnableDB {
		pool, err := store.Connect(ctx, cfg.DatabaseURL, cfg.DBConnectTimeout, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("database connection failed")
		}
		defer pool.Close()
		db = pool

		if cfg.MigrationsDir != "" {
			if err := store.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
				logger.Fatal().Err(err).Msg("migrations failed")
			}
		}

		fromDB, err := store.NewCredentialRepository(pool).Load(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("loading clinician credentials failed")
		}
		for user, hash := range fromDB {
			creds[user] = hash
		}
		if len(creds) == 0 {
			logger.Fatal().Msg("no clinician credentials configured")
		}
	}

	// The form is never served without a working model.
	model, err := loadClassifier(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("model unavailable")
	}

	sessions := auth.NewSessionStore(cfg.SessionTTL)
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepSessions(sweepCtx, sessions, time.Minute, logger)

	a := &app{
		db:           db,
		classifier:   model,
		gate:         auth.NewGate(creds),
		sessions:     sessions,
		metrics:      metrics.New(sessions.Len),
		logger:       logger,
		cookieSecure: cfg.CookieSecure,
		corsOrigins:  cfg.CORSOrigins,
	}

	router := setupRouter(a, detectStaticRoot())
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	logger.Info().
		Str("port", cfg.Port).
		Int("users", a.gate.Users()).
		Str("model_backend", cfg.ModelBackend).
		Msg("server listening")
	waitForShutdown(server, logger)
}

func loadClassifier(ctx context.Context, cfg *Config, logger zerolog.Logger) (classifier.Classifier, error) {
	if cfg.ModelBackend == "remote" {
		remote, err := classifier.NewRemote(ctx, classifier.RemoteConfig{
			BaseURL: cfg.ModelURL,
			Timeout: cfg.ModelTimeout,
			RPS:     cfg.ModelRPS,
		}, logger)
		if err != nil {
			return nil, err
		}
		return remote, nil
	}

	m, err := classifier.LoadLogistic(cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("model", m.Name()).Str("path", cfg.ModelPath).Msg("model loaded")
	return m, nil
}

func sweepSessions(ctx context.Context, sessions *auth.SessionStore, every time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Sweep(); n > 0 {
				logger.Debug().Int("expired", n).Msg("sessions swept")
			}
		}
	}
}

func waitForShutdown(server *http.Server, logger zerolog.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
