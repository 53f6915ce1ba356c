package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/lockboxhq/lockbox/modules/vault"
	"github.com/lockboxhq/lockbox/pkg/config"
	"github.com/lockboxhq/lockbox/pkg/httpserver"
	"github.com/lockboxhq/lockbox/pkg/jwt"
	"github.com/lockboxhq/lockbox/pkg/lockout"
	"github.com/lockboxhq/lockbox/pkg/logger"
	"github.com/lockboxhq/lockbox/pkg/pg"
	"github.com/lockboxhq/lockbox/pkg/redis"
)

const serviceName = "lockbox"

type appConfig struct {
	Environment   string        `env:"APP_ENV" envDefault:"production"`
	JWTSigningKey string        `env:"JWT_SIGNING_KEY,required"`
	SweepInterval time.Duration `env:"LOCKOUT_SWEEP_INTERVAL" envDefault:"10m"`
}

func main() {
	var (
		appCfg     appConfig
		pgCfg      pg.Config
		redisCfg   redis.Config
		lockoutCfg lockout.Config
		serverCfg  httpserver.Config
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&pgCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&lockoutCfg)
	config.MustLoad(&serverCfg)

	logOpts := []logger.Option{logger.WithProduction(serviceName)}
	if appCfg.Environment == "development" {
		logOpts = []logger.Option{logger.WithDevelopment(serviceName)}
	}
	logOpts = append(logOpts, logger.WithContextValue("request_id", chimiddleware.RequestIDKey))
	log := logger.New(logOpts...)
	logger.SetAsDefault(log)

	ctx := context.Background()

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		log.ErrorContext(ctx, "failed to connect to postgres", logger.Error(err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		log.ErrorContext(ctx, "failed to apply migrations", logger.Error(err))
		os.Exit(1)
	}

	// Redis shares lockout state across instances. Without it a single-process
	// in-memory store still enforces the policy.
	var store lockout.Store
	healthchecks := []func(context.Context) error{pg.Healthcheck(pool)}
	if redisCfg.ConnectionURL != "" {
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			log.ErrorContext(ctx, "failed to connect to redis", logger.Error(err))
			os.Exit(1)
		}
		defer func() { _ = client.Close() }()
		store = lockout.NewRedisStore(client)
		healthchecks = append(healthchecks, redis.Healthcheck(client))
	} else {
		log.InfoContext(ctx, "redis not configured, using in-memory lockout store")
		memStore := lockout.NewMemoryStore()
		defer memStore.Close()
		store = memStore
	}

	limiter, err := lockout.NewLimiter(store, lockoutCfg)
	if err != nil {
		log.ErrorContext(ctx, "invalid lockout configuration", logger.Error(err))
		os.Exit(1)
	}

	jwtService, err := jwt.NewFromString(appCfg.JWTSigningKey)
	if err != nil {
		log.ErrorContext(ctx, "invalid jwt configuration", logger.Error(err))
		os.Exit(1)
	}

	repo := vault.NewPostgresRepository(pool)
	svc := vault.NewService(repo, limiter, vault.WithLogger(log))

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", healthHandler(healthchecks...))

	r.Route("/v1", func(r chi.Router) {
		r.Use(jwt.Middleware(jwtService, nil))
		r.Mount("/", vault.NewHandler(svc, log).Routes())
	})

	go sweepLoop(ctx, limiter, appCfg.SweepInterval, log)

	srv := httpserver.NewFromConfig(serverCfg, httpserver.WithLogger(log))
	if err := srv.Run(ctx, r); err != nil {
		log.ErrorContext(ctx, "server stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func healthHandler(checks ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// sweepLoop periodically clears expired lockout records. The stores already
// bound record lifetimes on their own; this keeps steady-state memory flat.
func sweepLoop(ctx context.Context, limiter *lockout.Limiter, interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := limiter.SweepExpired(ctx)
			if err != nil {
				log.WarnContext(ctx, "lockout sweep failed", logger.Error(err))
				continue
			}
			if count > 0 {
				log.DebugContext(ctx, "lockout records swept", slog.Int64("count", count))
			}
		}
	}
}
