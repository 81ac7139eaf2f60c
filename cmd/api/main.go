package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/memebooth/booth-api/internal/config"
	"github.com/memebooth/booth-api/internal/domain/credit"
	"github.com/memebooth/booth-api/internal/domain/purchase"
	"github.com/memebooth/booth-api/internal/middleware"
	"github.com/memebooth/booth-api/internal/pkg/database"
	"github.com/memebooth/booth-api/internal/pkg/jwt"
	"github.com/memebooth/booth-api/internal/pkg/logger"
	"github.com/memebooth/booth-api/internal/pkg/ratelimit"
	"github.com/memebooth/booth-api/internal/pkg/response"
	"github.com/memebooth/booth-api/internal/pkg/stripe"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting booth API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	rdb, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(rdb)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)
	authMiddleware := middleware.Auth(jwtService)
	optionalAuthMiddleware := middleware.OptionalAuth(jwtService)

	stripeClient := stripe.NewClient(stripe.Config{
		SecretKey: cfg.StripeSecretKey,
		BaseURL:   cfg.StripeBaseURL,
	})
	limiter := ratelimit.New(rdb)

	// ---------- Services ----------
	creditSvc := credit.NewService(db)
	creditHandler := credit.NewHandler(creditSvc)

	purchaseRepo := purchase.NewRepository(db)
	purchaseSvc := purchase.NewService(purchaseRepo, creditSvc, stripeClient, limiter,
		cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL)
	purchaseHandler := purchase.NewHandler(purchaseSvc, cfg.StripeWebhookSecret)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"status": "ok", "postgres": "ok", "redis": "ok"}
		if err := db.PingContext(ctx); err != nil {
			status["status"] = "degraded"
			status["postgres"] = "unreachable"
		}
		if rdb == nil {
			status["redis"] = "disabled"
		} else if err := rdb.Ping(ctx).Err(); err != nil {
			status["status"] = "degraded"
			status["redis"] = "unreachable"
		}
		response.OK(w, status)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/booth", purchaseHandler.Routes(authMiddleware, optionalAuthMiddleware))
		r.Mount("/purchases", purchaseHandler.HistoryRoutes(authMiddleware))
		r.Mount("/credits", creditHandler.Routes(authMiddleware))
	})

	r.Post("/webhooks/stripe", purchaseHandler.Webhook)

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
