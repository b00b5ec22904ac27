package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/garpdev/form-server/internal/audit"
	"github.com/garpdev/form-server/internal/config"
	"github.com/garpdev/form-server/internal/content"
	"github.com/garpdev/form-server/internal/delivery"
	"github.com/garpdev/form-server/internal/health"
	"github.com/garpdev/form-server/internal/honeypot"
	"github.com/garpdev/form-server/internal/logger"
	"github.com/garpdev/form-server/internal/metrics"
	"github.com/garpdev/form-server/internal/middleware"
	"github.com/garpdev/form-server/internal/pipeline"
	"github.com/garpdev/form-server/internal/ratelimit"
	"github.com/garpdev/form-server/internal/stats"
	"github.com/garpdev/form-server/internal/submission"
	"github.com/garpdev/form-server/internal/validation"
)

const version = "1.0.0"

func main() {
	// Optional .env for local development.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	appLog := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})

	// Core collaborators.
	limiter := ratelimit.New(ratelimit.Config{
		MinuteLimit:   cfg.RateLimit.MinuteLimit,
		HourLimit:     cfg.RateLimit.HourLimit,
		DayLimit:      cfg.RateLimit.DayLimit,
		SweepInterval: cfg.RateLimit.SweepInterval,
	})
	detector := honeypot.NewDetector(cfg.Honeypot.Fields)
	validator := validation.New(validation.Config{
		RequiredFields:   cfg.Form.RequiredFields,
		MaxNameLength:    cfg.Form.MaxNameLength,
		MaxEmailLength:   cfg.Form.MaxEmailLength,
		MaxMessageLength: cfg.Form.MaxMessageLength,
		MaxSubjectLength: cfg.Form.MaxSubjectLength,
		SpamPhrases:      cfg.Form.SpamPhrases,
	})
	builder := content.NewBuilder(cfg.Delivery.SubjectPrefix)
	counters := stats.New()
	sink := audit.NewSink(appLog)

	var sender pipeline.Sender
	if cfg.Delivery.Enabled {
		sender = delivery.NewClient(delivery.Config{
			Endpoint: cfg.Delivery.Endpoint,
			APIKey:   cfg.Delivery.APIKey,
			Timeout:  cfg.Delivery.Timeout,
		})
	}

	p := pipeline.New(pipeline.Config{
		DeliveryEnabled: cfg.Delivery.Enabled,
		From:            cfg.Delivery.From,
		To:              cfg.Delivery.To,
		ReplyTo:         cfg.Delivery.ReplyTo,
	}, limiter, detector, validator, builder, sender, sink, counters)

	submitHandler := submission.NewHandler(p, cfg.Delivery.Enabled, appLog)
	healthHandler := health.NewHandler(health.Config{
		Version:         version,
		DeliveryEnabled: cfg.Delivery.Enabled,
		Limiter:         limiter,
		Counters:        counters,
	})

	// Router.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(metrics.Middleware)
	r.Use(middleware.StructuredLogger(appLog))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With"},
		MaxAge:         300,
	}))

	r.MethodNotAllowed(submission.MethodNotAllowed)
	r.NotFound(submission.NotFound)

	r.Get("/", healthHandler.Info)
	r.Get("/health", healthHandler.Health)
	r.Get("/stats", healthHandler.Stats)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	submission.RegisterRoutes(r, submitHandler)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Form server listening on %s (delivery enabled: %t)", addr, cfg.Delivery.Enabled)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	healthHandler.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
