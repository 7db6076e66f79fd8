package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/comitanigiacomo/kanso-streak-engine/internal/adapters/cache"
	adapterHTTP "github.com/comitanigiacomo/kanso-streak-engine/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-streak-engine/internal/adapters/metrics"
	"github.com/comitanigiacomo/kanso-streak-engine/internal/adapters/notifier"
	"github.com/comitanigiacomo/kanso-streak-engine/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-streak-engine/internal/config"
	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/services"
	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/workers"
	"github.com/comitanigiacomo/kanso-streak-engine/internal/logger"
)

const cachePrefix = "kanso:"

type repositories struct {
	habits  domain.HabitRepository
	entries domain.HabitEntryRepository
	users   domain.UserRepository
}

// app owns every long-lived resource built from the configuration.
type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	db     *sqlx.DB
	redis  *redis.Client
	router *gin.Engine

	streakWorker   *workers.StreakWorker
	reminderWorker *workers.ReminderWorker
}

func main() {
	cfg, err := config.Load(os.Getenv("KANSO_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, logCloser, err := logger.New(logger.Config{
		Level:   cfg.Logger.Level,
		File:    cfg.Logger.File,
		Console: cfg.Logger.Console,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		logCloser.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, closer, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closer.Close()

	a.streakWorker.Start(ctx)
	if a.reminderWorker != nil {
		a.reminderWorker.Start(ctx)
	}

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      a.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("db", cfg.Database.Driver).Msg("kanso streak engine listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("stop signal received, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	log.Info().Msg("server stopped gracefully")
	return nil
}

// newApp wires storage, services, workers and the router. The returned
// closer releases database and Redis connections.
func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, io.Closer, error) {
	a := &app{cfg: cfg, log: log}
	var closers closerList

	if cfg.Redis.Enabled {
		rdb, err := cache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		a.redis = rdb
		closers = append(closers, rdb)
	}

	repos, err := a.openRepositories(ctx)
	if err != nil {
		closers.Close()
		return nil, nil, err
	}
	if a.db != nil {
		closers = append(closers, a.db)
	}

	var store cache.Store
	if cfg.Cache.Driver == "redis" {
		store = cache.NewRedisStore(a.redis, cachePrefix)
	} else {
		store = cache.NewMemoryStore(cfg.Cache.SizeMB)
	}
	habitRepo := repository.NewCachedHabitRepository(repos.habits, store, cfg.Cache.HabitListTTL, log)

	streakService := services.NewStreakService(habitRepo, repos.entries, repos.users, log,
		services.WithDefaultProfile(cfg.Streak.DefaultTimezone, cfg.Streak.DefaultGraceHour))

	var streakWorker *workers.StreakWorker
	recorder := metrics.New(cfg.Metrics.Enabled, func() int {
		if streakWorker == nil {
			return 0
		}
		return streakWorker.QueueLen()
	})
	streakWorker = workers.NewStreakWorker(streakService, cfg.Worker.QueueSize, log, recorder)
	a.streakWorker = streakWorker

	if cfg.Reminder.Enabled {
		var n workers.Notifier = notifier.NewLogNotifier(log)
		if a.redis != nil {
			n = notifier.NewRedisNotifier(a.redis, cfg.Reminder.Channel)
		}
		a.reminderWorker = workers.NewReminderWorker(repos.users, streakService, n, store, cfg.Reminder.Interval, log, recorder)
	}

	tokenService := services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL, repos.users)

	deps := adapterHTTP.RouterDependencies{
		AuthHandler:    adapterHTTP.NewAuthHandler(services.NewAuthService(repos.users), tokenService),
		HabitHandler:   adapterHTTP.NewHabitHandler(services.NewHabitService(habitRepo)),
		EntryHandler:   adapterHTTP.NewEntryHandler(services.NewEntryService(repos.entries, habitRepo, streakWorker)),
		StatsHandler:   adapterHTTP.NewStatsHandler(services.NewStatsService(habitRepo, repos.entries, repos.users)),
		StreakHandler:  adapterHTTP.NewStreakHandler(streakService),
		ProfileHandler: adapterHTTP.NewProfileHandler(services.NewProfileService(repos.users)),
		TokenService:   tokenService,
		DB:             a.db,
		Redis:          a.redis,
		Logger:         log,
		Metrics:        recorder,
		Swagger:        cfg.Server.Mode != gin.ReleaseMode,
		StartTime:      time.Now(),
	}
	if cfg.RateLimit.Enabled {
		deps.RateLimit = &adapterHTTP.RateLimit{Requests: cfg.RateLimit.Limit, Window: cfg.RateLimit.Window}
	}
	a.router = adapterHTTP.NewRouter(deps)

	return a, closers, nil
}

func (a *app) openRepositories(ctx context.Context) (repositories, error) {
	if a.cfg.Database.Driver == "memory" {
		a.log.Warn().Msg("using in-memory storage, data is lost on restart")
		return repositories{
			habits:  repository.NewInMemoryHabitRepository(),
			entries: repository.NewInMemoryEntryRepository(),
			users:   repository.NewInMemoryUserRepository(),
		}, nil
	}

	a.log.Info().Str("host", a.cfg.Database.Host).Msg("connecting to database")

	db, err := sqlx.ConnectContext(ctx, "pgx", a.cfg.Database.DSN())
	if err != nil {
		return repositories{}, fmt.Errorf("connect database: %w", err)
	}

	db.SetMaxOpenConns(a.cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(a.cfg.Database.MaxOpenConns)
	db.SetConnMaxLifetime(a.cfg.Database.ConnMaxLifetime)

	if a.cfg.Database.Migrate {
		if err := repository.Migrate(ctx, db); err != nil {
			db.Close()
			return repositories{}, err
		}
	}

	a.db = db
	return repositories{
		habits:  repository.NewPostgresHabitRepository(db),
		entries: repository.NewPostgresEntryRepository(db),
		users:   repository.NewPostgresUserRepository(db),
	}, nil
}

type closerList []io.Closer

func (c closerList) Close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
