// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/astraietm/registration/internal/auth"
	"github.com/astraietm/registration/internal/config"
	"github.com/astraietm/registration/internal/database"
	"github.com/astraietm/registration/internal/handler"
	"github.com/astraietm/registration/internal/mailer"
	"github.com/astraietm/registration/internal/payment"
	"github.com/astraietm/registration/internal/repository"
	"github.com/astraietm/registration/internal/service"
	"github.com/astraietm/registration/internal/worker"
)

func main() {
	ctx := context.Background()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config", "error", err)
		os.Exit(1)
	}

	// ── 1. Connect to PostgreSQL and apply the schema ─────────────────────
	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Error("database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		log.Error("migrate", "error", err)
		os.Exit(1)
	}
	log.Info("connected to postgres")

	// ── 2. Wire up layers ─────────────────────────────────────────────────
	eventRepo := repository.NewEventRepository(pool)
	regRepo := repository.NewRegistrationRepository(pool)
	payRepo := repository.NewPaymentRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)

	gateway := payment.NewRazorpayGateway(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret)

	smtpMailer, err := mailer.NewSMTPMailer(cfg.SMTP, cfg.PublicBaseURL)
	if err != nil {
		log.Error("mailer", "error", err)
		os.Exit(1)
	}
	mailQueue := worker.NewMailQueue(smtpMailer, log, cfg.MailQueueSize, cfg.MailWorkers)
	mailQueue.Start(ctx)

	regSvc := service.NewRegistrationService(eventRepo, regRepo, mailQueue)
	paySvc := service.NewPaymentService(eventRepo, regRepo, payRepo, gateway,
		mailQueue, cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret)
	checkinSvc := service.NewCheckInService(regRepo)
	eventSvc := service.NewEventService(eventRepo)
	adminSvc := service.NewAdminService(regRepo, settingsRepo)

	h := handler.New(regSvc, paySvc, checkinSvc, eventSvc, adminSvc, log)

	// ── 3. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(handler.Logger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/health", handler.HealthCheck)
	r.Get("/events", h.ListEvents)
	r.Get("/events/{id}", h.GetEvent)
	r.Get("/verify/{token}", h.VerifyToken)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.JWTSecret))
		r.Use(h.Maintenance)
		r.Get("/my-registrations", h.MyRegistrations)
		r.Post("/register", h.Register)
		r.Post("/payment/create-order", h.CreateOrder)
		r.Post("/payment/verify", h.VerifyPayment)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.Middleware(cfg.JWTSecret))
		r.Use(auth.RequireAdmin)
		r.Post("/events", h.CreateEvent)
		r.Get("/registrations", h.ListRegistrations)
		r.Delete("/registrations", h.ClearRegistrations)
		r.Put("/settings/{key}", h.PutSetting)
	})

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	// Drain queued ticket emails before exit.
	mailQueue.Close()
	log.Info("server stopped")
}
