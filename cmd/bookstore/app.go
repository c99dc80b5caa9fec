package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nkiryanov/bookstore/internal/db"
	"github.com/nkiryanov/bookstore/internal/handlers"
	"github.com/nkiryanov/bookstore/internal/logger"
	"github.com/nkiryanov/bookstore/internal/repository/postgres"
	"github.com/nkiryanov/bookstore/internal/repository/rediscache"
	"github.com/nkiryanov/bookstore/internal/service/auth"
	"github.com/nkiryanov/bookstore/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/bookstore/internal/service/auth/tokenstore"
	"github.com/nkiryanov/bookstore/internal/service/tokenpurge"
	"github.com/nkiryanov/bookstore/internal/service/user"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	// Nil if purging disabled
	Purger *tokenpurge.Purger

	logger logger.Logger
	pool   *pgxpool.Pool
	redis  *redis.Client
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config. Err: %w", err)
	}

	app := &ServerApp{ListenAddr: c.ListenAddr, logger: logger}

	// Connect to the database and run migrations
	app.pool, err = db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Revocation cache is optional
	var cache tokenstore.RevocationCache
	if c.RedisAddr != "" {
		app.redis, err = rediscache.Connect(ctx, c.RedisAddr)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("error while connecting to redis. Err: %w", err)
		}
		cache = rediscache.NewRevocationCache(app.redis)
		logger.Info("Revocation cache enabled", "addr", c.RedisAddr)
	}

	// Initialize repositories
	storage := postgres.NewStorage(app.pool)

	// Initialize services
	tokenManager, err := tokenmanager.New(tokenmanager.Config{
		AccessSecret:  c.AccessSecretKey,
		RefreshSecret: c.RefreshSecretKey,
		AccessTTL:     c.AccessTokenTTL,
		RefreshTTL:    c.RefreshTokenTTL,
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	tokenStore, err := tokenstore.New(tokenstore.Config{
		AccessTTL:  tokenManager.AccessTTL(),
		RefreshTTL: tokenManager.RefreshTTL(),
		Cache:      cache,
	}, storage)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("error while creating token store. Err: %w", err)
	}

	authService, err := auth.NewService(
		auth.Config{StrictRevocation: c.StrictRevocation},
		tokenManager,
		tokenStore,
		storage,
		logger.WithGroup("auth"),
	)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}
	userService := user.NewService(auth.DefaultHasher, storage)

	app.Handler = handlers.NewRouter(authService, userService, logger)

	if c.PurgeInterval > 0 {
		app.Purger = tokenpurge.New(c.PurgeInterval, tokenStore, logger.WithGroup("purger"))
	}

	return app, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	var purgerStopped <-chan struct{}
	if s.Purger != nil {
		purgerStopped = s.Purger.Run(srvCtx)
	} else {
		stopped := make(chan struct{})
		close(stopped)
		purgerStopped = stopped
	}

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed
	<-purgerStopped

	return err
}

// Close releases database and redis connections
func (s *ServerApp) Close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}
