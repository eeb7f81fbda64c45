package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"

	"github.com/idproof/idproof-backend/internal/verification/analysis"
	"github.com/idproof/idproof-backend/internal/verification/events"
	"github.com/idproof/idproof-backend/internal/verification/handler"
	"github.com/idproof/idproof-backend/internal/verification/ocr"
	"github.com/idproof/idproof-backend/internal/verification/report"
	"github.com/idproof/idproof-backend/internal/verification/repository"
	"github.com/idproof/idproof-backend/internal/verification/service"
	"github.com/idproof/idproof-backend/internal/verification/storage"
	"github.com/idproof/idproof-backend/pkg/config"
	"github.com/idproof/idproof-backend/pkg/database"
	"github.com/idproof/idproof-backend/pkg/httputil"
	"github.com/idproof/idproof-backend/pkg/logger"
	"github.com/idproof/idproof-backend/pkg/messaging"
)

func main() {
	// Load configuration
	cfg, err := config.LoadWithValidation("verification-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("verification-service", cfg.Server.Environment)
	log.Info().Msg("starting Verification Service")

	// Select the record store backend
	var (
		store repository.RecordStore
		db    *database.DB
	)
	switch cfg.Storage.Driver {
	case "postgres":
		db, err = database.New(&cfg.Storage.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		pg := repository.NewPostgresStore(db)
		if err := pg.Migrate(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		store = pg
	default:
		log.Info().Msg("using in-memory record store")
		store = repository.NewMemoryStore()
	}

	// Blob storage for uploaded images
	blobs, err := storage.NewBlobStore(cfg.Uploads.Dir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Uploads.Dir).Msg("failed to initialize upload storage")
	}

	// Seeded jitter sources. Face match and age estimation run
	// concurrently, so each gets its own source.
	seed := cfg.Analysis.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	faceRNG := rand.New(rand.NewSource(seed))
	ageRNG := rand.New(rand.NewSource(seed + 1))

	// Analysis components
	quality := analysis.NewQualityAssessor(log)
	matcher := analysis.NewFaceMatcher(quality, faceRNG, log)

	var ages analysis.AgeEstimator = analysis.NewHeuristicAgeEstimator(quality, ageRNG, log)
	if cfg.Analysis.RemoteAgeURL != "" {
		log.Info().Str("url", cfg.Analysis.RemoteAgeURL).Msg("remote age detection enabled")
		ages = analysis.NewRemoteAgeEstimator(cfg.Analysis.RemoteAgeURL, cfg.Analysis.RemoteAgeTimeout, ages, log)
	}

	// OCR pipeline
	extractor := ocr.NewExtractor(ocr.NewTesseractRecognizer(), cfg.OCR.Languages, cfg.OCR.TempDir, log)

	// Optional collaborators
	opts := []service.Option{service.WithTimeout(cfg.Processing.Timeout)}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		opts = append(opts, service.WithCache(service.NewRedisCache(redisClient), cfg.Redis.TTL))
	}

	var rmq *messaging.RabbitMQ
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		publisher, err := events.NewVerificationEventPublisher(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
		opts = append(opts, service.WithEvents(publisher))
	}

	// Initialize service and handler
	svc := service.NewService(store, extractor, matcher, ages, log, opts...)
	verificationHandler := handler.NewHandler(svc, blobs, report.NewGenerator(), cfg.Uploads.MaxSizeMB, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(httputil.SecurityHeaders)
	r.Use(middleware.Throttle(cfg.Server.RateLimit))
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS for the browser frontend
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]interface{}{
			"status":  "healthy",
			"service": "verification-service",
		}
		if db != nil {
			health["database"] = db.Health(r.Context())
		}
		if rmq != nil {
			health["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, health)
	})

	// API endpoints
	r.Route("/api/v1", func(r chi.Router) {
		verificationHandler.Routes(r)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
