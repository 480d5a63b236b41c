// Package app wires the USAFFE roster runtime: config, logging, storage,
// HTTP routes, and the admin activity feed.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"usaffe/cmd/internal/activity"
	"usaffe/cmd/internal/adminauth"
	rosterapi "usaffe/cmd/internal/api"
	"usaffe/cmd/internal/roblox"
	"usaffe/cmd/internal/verify"
	"usaffe/cmd/roster"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// sessionPurgeEvery is how often expired admin sessions are swept out
// of the in-memory table. Expiry itself is enforced at lookup; the
// sweep only reclaims memory.
const sessionPurgeEvery = 15 * time.Minute

// App owns the HTTP server wiring and the service dependencies.
type App struct {
	cfg Config
	log Logger

	dbPool *pgxpool.Pool

	hub      *activity.Hub
	feed     *activity.Gateway
	metrics  *Metrics
	api      *rosterapi.Handler
	sessions *adminauth.SessionTable
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("app: USAFFE_DATABASE_URL is required")
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("app: connect database: %w", err)
	}
	log.Info("db.enabled.postgres_store", "schema", cfg.DBSchema)

	store, err := roster.NewPostgresStore(pool, roster.WithSchema(cfg.DBSchema))
	if err != nil {
		pool.Close()
		return nil, err
	}

	platform := roblox.NewHTTPClient()

	verifyCfg, err := verify.LoadConfigFromEnv()
	if err != nil {
		pool.Close()
		return nil, err
	}
	challenges, err := verify.NewPostgresChallengeStore(pool, cfg.DBSchema)
	if err != nil {
		pool.Close()
		return nil, err
	}
	memberSessions, err := verify.NewPostgresSessionStore(pool, cfg.DBSchema)
	if err != nil {
		pool.Close()
		return nil, err
	}
	verifier := verify.NewService(verifyCfg, challenges, memberSessions, store, platformProfiles{client: platform})

	adminCfg, err := adminauth.LoadConfigFromEnv()
	if err != nil {
		pool.Close()
		return nil, err
	}
	keys, err := adminauth.NewPostgresKeyStore(pool, cfg.DBSchema)
	if err != nil {
		pool.Close()
		return nil, err
	}
	sessions := adminauth.NewSessionTable()
	admin := adminauth.NewService(adminCfg, keys, sessions)

	hub := activity.NewHub(log, 0)
	metrics := NewMetrics(hub)

	api, err := rosterapi.NewHandler(log, rosterapi.LoadConfigFromEnv(), store, verifier, admin, platform,
		rosterapi.WithActivityHub(hub),
		rosterapi.WithMetrics(metrics),
	)
	if err != nil {
		pool.Close()
		return nil, err
	}

	feed := activity.NewGateway(log, hub, api.AuthorizeAdminRequest)

	return &App{
		cfg:      cfg,
		log:      log,
		dbPool:   pool,
		hub:      hub,
		feed:     feed,
		metrics:  metrics,
		api:      api,
		sessions: sessions,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or
// fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.api, a.feed, a.metrics)

	handler := WithRequestLogging(mux, a.log)
	handler = a.metrics.WithHTTPMetrics(handler)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(sessionPurgeEvery)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := a.sessions.PurgeExpired(time.Now().UTC()); n > 0 {
					a.log.Info("admin.sessions.purged", "count", n)
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("server.stop", "reason", "context_done")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error("server.shutdown.fail", "err", err)
			return err
		}
		return nil
	})

	err := g.Wait()

	if a.dbPool != nil {
		a.dbPool.Close()
	}

	if err != nil {
		a.log.Error("server.fail", "err", err)
		return err
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// platformProfiles adapts the Roblox client to the verification flow's
// profile source, translating upstream sentinels.
type platformProfiles struct {
	client roblox.Client
}

func (p platformProfiles) Profile(ctx context.Context, userID int64) (verify.AccountProfile, error) {
	prof, err := p.client.Profile(ctx, userID)
	if err != nil {
		if errors.Is(err, roblox.ErrUserNotFound) {
			return verify.AccountProfile{}, verify.ErrUnknownUser
		}
		return verify.AccountProfile{}, fmt.Errorf("%w: %v", verify.ErrUpstream, err)
	}
	return verify.AccountProfile{
		UserID:      prof.UserID,
		Username:    prof.Username,
		DisplayName: prof.DisplayName,
		Description: prof.Description,
	}, nil
}
