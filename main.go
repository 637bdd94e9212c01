package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/3bube/Dormhub-sub000/config"
	"github.com/3bube/Dormhub-sub000/controllers"
	"github.com/3bube/Dormhub-sub000/routes"
	"github.com/3bube/Dormhub-sub000/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.InitLogger("dormhub", "info", "console")
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := config.InitLogger("dormhub", cfg.LogLevel, cfg.LogFormat)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("database connect failed")
	}
	log.Info().Str("driver", cfg.DBDriver).Msg("database connected and migrated")

	// Initialize services
	locks := services.NewRoomLocks()
	roomService := services.NewRoomService(db, locks)
	studentService := services.NewStudentService(db)
	allocationService := services.NewAllocationService(db, roomService, studentService)

	if cfg.SeedFile != "" {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		_, err := config.SeedFromFile(ctx, cfg.SeedFile, roomService, studentService)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.SeedFile).Msg("seeding failed")
		}
	}

	// Initialize controllers
	roomController := controllers.NewRoomController(roomService)
	allocationController := controllers.NewAllocationController(allocationService)
	studentController := controllers.NewStudentController(studentService)

	router := routes.SetupRouter(roomController, allocationController, studentController, routes.Options{
		JWTSecret:   cfg.JWTSecret,
		CorsOrigins: cfg.CorsOrigins,
		Logger:      logger,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Warn().Msg("shutdown signal received, shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server stopped gracefully")
}
