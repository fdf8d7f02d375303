package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/api"
	"github.com/99minutos/auth-service/internal/api/handler"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/core/service"
	"github.com/99minutos/auth-service/internal/infrastructure/crypto"
	"github.com/99minutos/auth-service/internal/infrastructure/db/mongo"
	"github.com/99minutos/auth-service/internal/infrastructure/db/redis"
	"github.com/99minutos/auth-service/internal/infrastructure/token"
	"github.com/99minutos/auth-service/internal/pkg/config"
	"github.com/99minutos/auth-service/pkg/logger"
)

// @title        Auth API
// @version      1.0
// @description  Signup, signin and role-based access control.
// @BasePath     /
// @securityDefinitions.apikey  AccessToken
// @in                          header
// @name                        x-access-token
func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "auth-service",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("auth service stopped with error")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}()
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")

	users := mongo.NewUserRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		return err
	}

	roleRepo := mongo.NewRoleRepository(db)
	if err := roleRepo.EnsureIndexes(ctx); err != nil {
		return err
	}
	added, err := roleRepo.Seed(ctx, domain.Roles)
	if err != nil {
		return err
	}
	if added > 0 {
		log.Info().Int("count", added).Strs("roles", domain.Roles).Msg("seeded roles collection")
	}
	stored, err := roleRepo.List(ctx)
	if err != nil {
		return err
	}
	roles := domain.NewRoleSet(stored)

	checks := map[string]handler.CheckFunc{"mongodb": mongo.Ping(db)}

	var limiter ports.SigninLimiter
	if cfg.Redis.Addr != "" {
		rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer func(c *goredis.Client) { _ = c.Close() }(rdb)

		limiter = redis.NewSigninLimiter(rdb, cfg.Signin.MaxAttempts, cfg.Signin.Window)
		checks["redis"] = redis.Ping(rdb)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("signin limiter enabled")
	}

	issuer := token.NewJWTIssuer(cfg.JWTSecret, cfg.TokenTTL)
	authService := service.NewAuthService(
		users,
		roles,
		crypto.NewBcryptHasher(cfg.BcryptCost),
		issuer,
		limiter,
		log.With().Str("component", "auth_service").Logger(),
	)

	e := api.NewRouter(api.Deps{
		AuthService: authService,
		Tokens:      issuer,
		Checks:      checks,
		CORSOrigin:  cfg.CORSOrigin,
		Log:         log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("http server stopped")
	return nil
}
