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

	"github.com/agb/securityjwt/internal/config"
	"github.com/agb/securityjwt/internal/db"
	"github.com/agb/securityjwt/internal/handler"
	"github.com/agb/securityjwt/internal/logging"
	"github.com/agb/securityjwt/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// @title securityjwt API
// @version 1.0
// @description Username/password registration and authentication issuing HS256 bearer tokens.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	gin.SetMode(cfg.Server.GinMode)

	keys, err := service.KeySetFromConfig(cfg.Auth)
	if err != nil {
		return err
	}
	codec, err := service.NewTokenCodec(keys, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	log.Info().
		Str("active_key", keys.ActiveID()).
		Strs("verification_keys", keys.IDs()).
		Dur("token_ttl", codec.TTL()).
		Msg("token codec ready")

	store, closeStore, err := openUserStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	auth, err := service.NewAuthService(
		store,
		service.NewBcryptHasher(cfg.Auth.BcryptCost),
		codec,
		logging.Component(log, "auth"),
	)
	if err != nil {
		return err
	}

	router := handler.NewRouter(handler.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Policy:         handler.NewSessionPolicy(cfg.Auth.PublicPrefixes),
		Codec:          codec,
		Auth:           auth,
		Log:            log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

func openUserStore(ctx context.Context, cfg config.Config, log zerolog.Logger) (service.UserStore, func(), error) {
	switch cfg.Store.Driver {
	case "memory":
		log.Warn().Msg("using in-memory user store; registrations are lost on restart")
		return db.NewMemory(), func() {}, nil
	case "postgres", "":
		dsn, err := db.BuildPostgresURL(cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx, dsn); err != nil {
			return nil, nil, err
		}
		pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Msg("postgres user store ready")
		return &db.Postgres{Pool: pool}, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown USER_STORE %q", service.ErrMisconfigured, cfg.Store.Driver)
	}
}
