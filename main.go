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
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"inkwell/auth"
	"inkwell/config"
	"inkwell/constants"
	"inkwell/database"
	"inkwell/offload"
	"inkwell/site"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close(db)

	if err := database.EnsureAdmin(context.Background(), db, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		log.Fatalf("Failed to seed admin account: %v", err)
	}

	storage, err := newStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to set up image storage: %v", err)
	}

	server := site.NewServer(
		database.NewStore(db),
		auth.NewService(cfg.JWTSecret, constants.AUTH_TOKEN_TTL),
		offload.New(storage),
		cfg,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      initRouter(cfg, server),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Running on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server stopped: %v", err)
		}
	}()

	// Block until a signal is received
	<-signals
	log.Println("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

func newStorage(cfg config.Config) (offload.Storage, error) {
	if cfg.UsesObjectStorage() {
		log.Printf("Storing images in bucket %s", cfg.Storage.BucketName)
		return offload.NewR2Storage(
			cfg.Storage.AccountID,
			cfg.Storage.AccessKey,
			cfg.Storage.SecretKey,
			cfg.Storage.BucketName,
			cfg.Storage.Domain,
		), nil
	}
	log.Printf("Storing images on disk in %s", cfg.UploadDir)
	return offload.NewDiskStorage(cfg.UploadDir, cfg.PublicURL+"/uploads")
}

func initRouter(cfg config.Config, server *site.Server) *chi.Mux {
	r := chi.NewRouter()

	CORSMiddleware := cors.New(cors.Options{
		AllowedOrigins:   cfg.CorsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: !allowsAnyOrigin(cfg.CorsAllowedOrigins),
		MaxAge:           300,
	})

	r.Use(CORSMiddleware.Handler)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(httprate.LimitByIP(100, time.Minute)) // general rate limiter shared across all routes
	r.Use(middleware.Recoverer)

	r.Mount("/", server.Handler())

	return r
}

// Browsers reject credentialed requests against a wildcard origin.
func allowsAnyOrigin(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
