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

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/token"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-auth-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-auth-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-auth-go/pkg/utilities"
)

// store is what both user stores offer: the service's persistence plus the
// health check clock.
type store interface {
	user.Store
	router.Clock
}

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-auth-go")

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		sugar.Fatalf("invalid config: %v", err)
	}

	issuer, err := token.NewIssuer([]byte(cfg.JWTSecret))
	if err != nil {
		sugar.Fatalf("token issuer: %v", err)
	}
	verifier, err := token.NewVerifier([]byte(cfg.JWTSecret))
	if err != nil {
		sugar.Fatalf("token verifier: %v", err)
	}

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, sugar)
	if err != nil {
		sugar.Fatalf("open store: %v", err)
	}
	defer closeStore()

	svc := user.NewUserService(st, user.BcryptHasher{Cost: cfg.BcryptCost}, issuer)

	// mount http server
	handler := router.RegisterRoutes(router.Deps{
		Logger:         sugar,
		Users:          user.NewHandler(svc, sugar),
		Guard:          token.NewGuard(verifier, sugar),
		Store:          st,
		IDs:            utilities.NewIDGenerator(),
		AllowedOrigins: cfg.AllowedOrigins,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// run server in background
	go func() {
		sugar.Infow("listening", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}

// openStore connects the configured user store. The returned func releases it.
func openStore(ctx context.Context, cfg config.Config, sugar *zap.SugaredLogger) (store, func(), error) {
	if cfg.StoreDriver == config.StoreMemory {
		sugar.Warn("using in-memory user store; accounts are lost on restart")
		return userrepo.NewMemoryRepo(), func() {}, nil
	}

	dbCfg := database.ConfigFromEnv()
	sqlDB, err := database.Connect(dbCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return nil, nil, err
		}
		sugar.Info("database migrations applied")
	}

	// wrap with sqlx for convenience in repos
	sqlxDB := sqlx.NewDb(sqlDB, dbCfg.Driver)
	return userrepo.NewUserRepo(sqlxDB), func() {
		if err := sqlxDB.Close(); err != nil {
			sugar.Warnf("db close failed: %v", err)
		}
	}, nil
}
