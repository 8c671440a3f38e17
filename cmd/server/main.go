package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/librahub/backend/docs"
	"github.com/librahub/backend/internal/config"
	"github.com/librahub/backend/internal/database"
	"github.com/librahub/backend/internal/handlers"
	mW "github.com/librahub/backend/internal/middleware"
	"github.com/librahub/backend/internal/services"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Library Circulation API
// @version 1.0
// @description Circulation and penalty engine for a lending library
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// Initialize config
	config.Init(".env")
	circulation := config.LoadCirculationConfig()
	port := viper.GetString("server.port")

	// Initialize Swagger docs
	docs.SwaggerInfo.Host = "localhost:" + port

	// Initialize services
	db := database.InitDatabase()
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), time.Minute)
	if err := database.Migrate(migrateCtx, db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	cancelMigrate()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	lib := services.NewLibrary(db, redisClient, circulation, nil)

	// Initialize auth middleware with Redis
	mW.InitAuthMiddleware(redisClient)

	// Background sweeps
	sweepCtx, stopSweeps := context.WithCancel(context.Background())
	sweepsDone := make(chan struct{})
	go func() {
		lib.Scheduler.Run(sweepCtx)
		close(sweepsDone)
	}()

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		if err := db.PingContext(r.Context()); err != nil {
			status = "degraded"
		}
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API routes
	handlers.Mount(r, lib)

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	stopSweeps()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	select {
	case <-sweepsDone:
	case <-ctx.Done():
		log.Println("Sweeps did not stop before the shutdown deadline")
	}

	log.Println("Server stopped")
}
