package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/tunewish/tunewish-api/internal/config"
	"github.com/tunewish/tunewish-api/internal/domain/credit"
	"github.com/tunewish/tunewish-api/internal/domain/notification"
	"github.com/tunewish/tunewish-api/internal/domain/transfer"
	"github.com/tunewish/tunewish-api/internal/domain/user"
	"github.com/tunewish/tunewish-api/internal/middleware"
	"github.com/tunewish/tunewish-api/internal/pkg/database"
	"github.com/tunewish/tunewish-api/internal/pkg/jwt"
	"github.com/tunewish/tunewish-api/internal/pkg/logger"
	pkgresponse "github.com/tunewish/tunewish-api/internal/pkg/response"

	"github.com/google/uuid"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Tunewish API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	creditRepo := credit.NewRepository(db)
	transferRepo := transfer.NewRepository(db, creditRepo)
	notificationRepo := notification.NewRepository(db)

	// ---------- Services ----------
	creditService := credit.NewService(creditRepo)
	notificationService := notification.NewService(notificationRepo)
	notifier := &transferNotifierAdapter{svc: notificationService}
	transferService := transfer.NewService(transferRepo, userRepo, notifier, cfg.TransferTTL)

	// ---------- Handlers ----------
	creditHandler := credit.NewHandler(creditService)
	transferHandler := transfer.NewHandler(transferService)
	notificationHandler := notification.NewHandler(notificationService)

	authMiddleware := middleware.Auth(jwtService)
	redeemLimiter := middleware.RateLimit(redis, "redeem", cfg.RedeemRateLimit, cfg.RedeemRateWindow)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	// Legacy endpoint path kept for the web client.
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.With(redeemLimiter).Post("/accept-credit-transfer", transferHandler.Resolve)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			pkgresponse.OK(w, map[string]string{"message": "pong"})
		})

		r.Mount("/credits", creditHandler.Routes(authMiddleware))
		r.Mount("/transfers", transferHandler.Routes(authMiddleware, redeemLimiter))
		r.Mount("/notifications", notificationHandler.Routes(authMiddleware))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

// transferNotifierAdapter bridges the transfer domain's Notifier to the
// notification service.
type transferNotifierAdapter struct {
	svc *notification.Service
}

func (a *transferNotifierAdapter) TransferReceived(ctx context.Context, recipientID uuid.UUID, t *transfer.Transfer) {
	id := t.ID
	a.svc.Notify(ctx, recipientID,
		notification.TypeTransferReceived,
		"You received music credits",
		fmt.Sprintf("%d %s credit(s) are waiting for you", t.CreditsAmount, t.CreditType),
		&notification.NotificationData{
			TransferID:    &id,
			CreditType:    string(t.CreditType),
			CreditsAmount: t.CreditsAmount,
		},
	)
}

func (a *transferNotifierAdapter) TransferResolved(ctx context.Context, senderID uuid.UUID, t *transfer.Transfer, action transfer.Action) {
	id := t.ID
	notifType := notification.TypeTransferAccepted
	title := "Your credit transfer was accepted"
	body := fmt.Sprintf("%d %s credit(s) were claimed", t.CreditsAmount, t.CreditType)
	if action == transfer.ActionReject {
		notifType = notification.TypeTransferRejected
		title = "Your credit transfer was declined"
		body = fmt.Sprintf("%d %s credit(s) were returned to your balance", t.CreditsAmount, t.CreditType)
	}

	a.svc.Notify(ctx, senderID, notifType, title, body, &notification.NotificationData{
		TransferID:    &id,
		CreditType:    string(t.CreditType),
		CreditsAmount: t.CreditsAmount,
	})
}
