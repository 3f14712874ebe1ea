package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/crazyeights/internal/auth"
	"github.com/jason-s-yu/crazyeights/internal/cache"
	"github.com/jason-s-yu/crazyeights/internal/config"
	"github.com/jason-s-yu/crazyeights/internal/game"
	"github.com/jason-s-yu/crazyeights/internal/server"
	"github.com/sirupsen/logrus"
)

const sweepInterval = time.Minute

func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Fatal("Server stopped.")
	}
}

// run wires the server and blocks until a signal arrives or serving fails.
// Deferred cleanup always runs before it returns.
func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logrus.SetLevel(cfg.LogLevel)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logrus.StandardLogger()

	var store cache.SnapshotStore = cache.NewMemoryStore(cfg.SnapshotTTL)
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		cancel()
		if err != nil {
			return err
		}
		defer rdb.Close()
		store = cache.NewRedisStore(rdb, cfg.SnapshotTTL)
		log.WithField("addr", cfg.RedisAddr).Info("Storing snapshots in Redis.")
	} else if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		pool, err := cache.ConnectPostgres(ctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			return err
		}
		defer pool.Close()
		store = cache.NewPostgresStore(pool)
		log.Info("Storing snapshots in Postgres.")
	} else {
		log.Info("Storing snapshots in memory.")
	}

	secret := cfg.TokenSecret
	if len(secret) == 0 {
		secret = make([]byte, 32)
		rand.Read(secret)
		log.Warn("CRAZY8_TOKEN_SECRET not set; using a random key, tokens will not survive a restart.")
	}
	issuer, err := auth.NewIssuer(secret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to create token issuer: %w", err)
	}

	// Live sessions are released after the same idle period their snapshots
	// are kept for.
	manager := game.NewManager(game.Options{
		OpponentDelay: cfg.OpponentDelay,
		Store:         store,
		Logger:        log,
	}, cfg.SnapshotTTL)
	defer manager.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.NewHandler(manager, issuer, log).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go manager.Run(ctx, sweepInterval)

	return serve(ctx, srv, log)
}

// serve runs srv until ctx is done, then shuts it down gracefully. A listen
// failure is returned instead of ending the process.
func serve(ctx context.Context, srv *http.Server, log logrus.FieldLogger) error {
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("Crazy Eights server listening.")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down.")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
