package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/authgate/authgate-go/internal/config"
	"github.com/authgate/authgate-go/internal/handler"
	"github.com/authgate/authgate-go/internal/middleware"
	"github.com/authgate/authgate-go/internal/model"
	"github.com/authgate/authgate-go/internal/repository"
	"github.com/authgate/authgate-go/internal/service"
)

const (
	sweepInterval = 5 * time.Minute
	sweepLimit    = 500
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := repository.NewDB(cfg.DatabaseDSN)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	sessionService := service.NewSessionService(sessionRepo, cfg.TokenExpiry)
	authService := service.NewAuthService(userRepo, sessionService, cfg.JWTSecret, cfg.TokenExpiry, cfg.BcryptCost)
	authService.OnUserCreated(func(ctx context.Context, user *model.User) {
		slog.Info("user registered", "user_id", user.ID, "email", user.Email)
	})

	authHandler := handler.NewAuthHandler(authService)
	sessionHandler := handler.NewSessionHandler(sessionService)

	r := chi.NewRouter()
	r.Use(middleware.Authenticate(authService,
		"/health",
		"/api/v1/auth/register",
		"/api/v1/auth/login",
		"/api/v1/auth/refresh",
	))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(5, 10))
		r.Post("/api/v1/auth/register", authHandler.HandleRegister)
		r.Post("/api/v1/auth/login", authHandler.HandleLogin)
	})

	r.Post("/api/v1/auth/refresh", authHandler.HandleRefresh)
	r.Post("/api/v1/auth/logout", authHandler.HandleLogout)
	r.Get("/api/v1/auth/me", authHandler.HandleMe)
	r.Put("/api/v1/auth/password", authHandler.HandleChangePassword)

	r.Get("/api/v1/sessions", sessionHandler.HandleListSessions)
	r.Get("/api/v1/sessions/{session_id}", sessionHandler.HandleGetSession)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go sweepSessions(sweepCtx, sessionService)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

// sweepSessions periodically closes open sessions whose expiry has passed.
func sweepSessions(ctx context.Context, sessions *service.SessionService) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			closed, err := sessions.CloseStale(ctx, sweepLimit)
			if err != nil {
				slog.Warn("session sweep failed", "error", err)
				continue
			}
			if closed > 0 {
				slog.Info("closed stale sessions", "count", closed)
			}
		}
	}
}
