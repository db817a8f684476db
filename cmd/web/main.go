package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizbank/internal/app"
	"quizbank/internal/db"
	"quizbank/internal/logger"
	"quizbank/internal/question"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Printf("config error: %v", err)
		os.Exit(1)
	}

	zl, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Printf("logger error: %v", err)
		os.Exit(1)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo := question.NewRepository()
	if cfg.SeedPath != "" {
		question.LoadFile(repo, cfg.SeedPath, zl)
	}

	seedDB := openSeedDB(ctx, cfg, repo, zl)
	if seedDB != nil {
		defer seedDB.Close()
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.NewRouter(cfg, repo, seedDB, zl),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("quizbank web listening", zap.String("addr", cfg.HTTPAddr), zap.Int("questions", repo.Len()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zl.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("forced shutdown", zap.Error(err))
	}
}

// openSeedDB loads questions from the configured table. Failures are logged and
// the service keeps whatever the seed file provided.
func openSeedDB(ctx context.Context, cfg app.Config, repo *question.Repository, zl *zap.Logger) *sql.DB {
	if cfg.SeedDBDSN == "" {
		return nil
	}

	conn, err := db.OpenSeedPool(ctx, cfg.SeedDBDSN, db.SeedPoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifeMins) * time.Minute,
	})
	if err != nil {
		zl.Warn("seed database unavailable", zap.Error(err))
		return nil
	}

	if _, err := question.LoadFromDB(ctx, conn, cfg.SeedDBTable, repo, zl); err != nil {
		zl.Warn("seed table not loaded", zap.String("table", cfg.SeedDBTable), zap.Error(err))
	}
	return conn
}
