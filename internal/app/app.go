// Package app initializes and runs the auth service: configuration, logging,
// database with migrations, and the HTTP server with graceful shutdown.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gieogita/portal-auth/internal/config"
	"github.com/gieogita/portal-auth/internal/googleid"
	"github.com/gieogita/portal-auth/internal/httpapi"
	"github.com/gieogita/portal-auth/internal/logging"
	"github.com/gieogita/portal-auth/internal/mail"
	"github.com/gieogita/portal-auth/internal/repositories/repomanager"
	"github.com/gieogita/portal-auth/internal/services"
	"github.com/gieogita/portal-auth/internal/token"
)

const (
	envLocal = "local"
	envProd  = "prod"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *http.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := setupLogger(cfg.Env)

	db, err := sql.Open("pgx", cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	issuer := token.NewIssuer(cfg, repos)
	mailer := mail.NewSMTPMailer(cfg.SMTP)
	verifier := googleid.NewGoogleVerifier(cfg.Google.ClientID)

	authService := services.NewAuthService(db, repos, issuer, mailer, verifier, logger, cfg)
	handler := httpapi.NewHandler(authService, logger, cfg)
	router := httpapi.NewRouter(handler, issuer, authService)

	server := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	return &App{config: cfg, logger: logger, db: db, server: server}, nil
}

// Run starts the HTTP server and blocks until the context is cancelled or an
// OS signal arrives, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sigs
		cancel()
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info(ctx, "starting auth service", "addr", a.server.Addr, "env", a.config.Env)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info(ctx, "shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return a.db.Close()
}

func setupLogger(env string) logging.Logger {
	var l *slog.Logger
	switch env {
	case envLocal:
		l = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		l = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		l = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return logging.NewSlogLogger(l)
}
