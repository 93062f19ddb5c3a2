package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskboard/internal/auth"
	"github.com/BuzzLyutic/taskboard/internal/config"
	"github.com/BuzzLyutic/taskboard/internal/dashboard"
	"github.com/BuzzLyutic/taskboard/internal/handler"
	"github.com/BuzzLyutic/taskboard/internal/logger"
	"github.com/BuzzLyutic/taskboard/internal/notify"
	"github.com/BuzzLyutic/taskboard/internal/realtime"
	"github.com/BuzzLyutic/taskboard/internal/reminder"
	"github.com/BuzzLyutic/taskboard/internal/repo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Development: cfg.Logging.Development,
		File:        cfg.Logging.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("taskboard stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	var (
		taskRepo repo.TaskRepository
		pool     *pgxpool.Pool
	)
	switch cfg.Repository.Type {
	case "postgres":
		p, err := connectPostgres(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer p.Close()
		pool = p
		taskRepo = repo.NewTaskRepo(pool)
	default:
		log.Info("using in-memory repository")
		taskRepo = repo.NewMemoryRepo()
	}

	var nc *nats.Conn
	if cfg.Realtime.Driver == "nats" || cfg.Notify.Driver == "nats" {
		conn, err := nats.Connect(cfg.NATS.URL,
			nats.Name("taskboard"),
			nats.MaxReconnects(-1),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				log.Warn("nats disconnected", zap.Error(err))
			}),
			nats.ReconnectHandler(func(c *nats.Conn) {
				log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
			}),
		)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer conn.Drain()
		nc = conn
		log.Info("connected to nats", zap.String("url", nc.ConnectedUrl()))
	}

	var (
		feed      realtime.Feed
		publisher realtime.Publisher
	)
	switch cfg.Realtime.Driver {
	case "postgres":
		listener := realtime.NewPGListener(pool, log)
		go listener.Run(ctx)
		feed, publisher = listener, realtime.Nop{}
	case "nats":
		n := realtime.NewNATS(nc, log)
		feed, publisher = n, n
	default:
		hub := realtime.NewHub()
		feed, publisher = hub, hub
	}

	var revoker auth.Revoker = auth.NewMemoryRevoker()
	if cfg.Auth.Revocation == "redis" {
		rdb, err := connectRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		revoker = auth.NewRedisRevoker(rdb)
	}

	var sink notify.Sink = notify.NewLogSink(log.Named("notify"))
	if cfg.Notify.Driver == "nats" {
		sink = notify.NewNATSSink(nc)
	}
	permission, err := notify.ParsePermission(cfg.Notify.Permission)
	if err != nil {
		return err
	}

	boards := dashboard.NewManager(ctx, dashboard.Deps{
		Repo:       taskRepo,
		Feed:       feed,
		Publisher:  publisher,
		Identity:   auth.UserFromContext,
		Sink:       sink,
		Permission: permission,
	}, dashboard.Config{
		Reminder: reminder.Config{
			Interval: cfg.Reminder.Interval,
			Horizon:  cfg.Reminder.Horizon,
			Dedupe:   cfg.Reminder.Dedupe,
		},
	}, log)
	defer boards.CloseAll()

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, revoker)
	router := handler.NewRouter(handler.NewTaskHandler(boards, verifier, log), verifier, log)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      otelhttp.NewHandler(router, "taskboard"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func connectPostgres(ctx context.Context, cfg *config.Config, log *zap.Logger) (*pgxpool.Pool, error) {
	if cfg.Database.Migrate {
		if err := repo.Migrate(cfg.Database.URL, log); err != nil {
			return nil, err
		}
	}

	pcfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.Database.MaxConns > 0 {
		pcfg.MaxConns = cfg.Database.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Info("connected to the database")
	return pool, nil
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}
