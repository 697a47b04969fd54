package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mappasalud/citas-api/internal/config"
	appointmentHandler "github.com/mappasalud/citas-api/internal/handler/appointment"
	authHandler "github.com/mappasalud/citas-api/internal/handler/auth"
	doctorHandler "github.com/mappasalud/citas-api/internal/handler/doctor"
	"github.com/mappasalud/citas-api/internal/repository/postgres"
	redisrepo "github.com/mappasalud/citas-api/internal/repository/redis"
	"github.com/mappasalud/citas-api/internal/router"
	"github.com/mappasalud/citas-api/internal/schema"
	appointmentService "github.com/mappasalud/citas-api/internal/service/appointment"
	authService "github.com/mappasalud/citas-api/internal/service/auth"
	doctorService "github.com/mappasalud/citas-api/internal/service/doctor"
	"github.com/mappasalud/citas-api/internal/validator"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(os.Stderr)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Register custom binding validators
	if err := validator.Register(); err != nil {
		log.Fatal().Err(err).Msg("failed to register binding validators")
	}

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Resolve schema capabilities once at startup. A failed probe is not
	// fatal: everything degrades to the baseline column set.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	caps, err := schema.Detect(ctx, db)
	cancel()
	if err != nil {
		log.Warn().Err(err).Msg("schema capability probe failed, using baseline columns")
	}

	// Initialize Redis session store
	redisClient, err := redisrepo.NewClient(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer redisClient.Close()
	sessions := redisrepo.NewSessionStore(redisClient, cfg.Session.TTL())

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db, caps)
	citaRepo := postgres.NewAppointmentRepository(db, caps)

	// Initialize services
	authSvc := authService.NewService(userRepo, sessions, caps)
	citaSvc := appointmentService.NewService(citaRepo, caps)
	doctorSvc := doctorService.NewService(userRepo, citaRepo, caps)

	// Setup router
	engine := router.Setup(cfg, db, sessions, router.Handlers{
		Auth:        authHandler.NewHandler(authSvc, cfg.Session),
		Appointment: appointmentHandler.NewHandler(citaSvc),
		Doctor:      doctorHandler.NewHandler(doctorSvc),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
