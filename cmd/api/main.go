package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"studentdesk/internal/auth"
	"studentdesk/internal/blob"
	"studentdesk/internal/cloudinary"
	"studentdesk/internal/config"
	"studentdesk/internal/handler"
	"studentdesk/internal/httpmiddleware"
	"studentdesk/internal/notify"
	"studentdesk/internal/query"
	"studentdesk/internal/records"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	store, cleanup, err := openBlob(cfg)
	if err != nil {
		return fmt.Errorf("open blob backend: %w", err)
	}
	defer cleanup()

	var broker notify.Broker
	if cfg.EventBackend == "redis" {
		broker = notify.NewRedis(blob.NewRedisClient(cfg.RedisAddr), "")
	} else {
		broker = notify.NewInMemory()
	}

	rec := records.New(store, broker)
	if cfg.SeedSampleData {
		if err := rec.SeedIfEmpty(context.Background()); err != nil {
			log.Printf("warning: sample seed failed: %v", err)
		}
	}
	engine := query.NewEngine(rec)

	// Cloudinary client (nil when not configured)
	var cdnClient *cloudinary.Client
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		cdnClient = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Println("Cloudinary configured:", cfg.CloudinaryCloudName)
	} else {
		log.Println("Cloudinary not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set)")
	}

	h := handler.New(rec, engine, cdnClient, handler.AuthConfig{
		StaffKey:   cfg.StaffKey,
		Issuer:     cfg.JWTIssuer,
		SigningKey: cfg.JWTSigningKey,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", h.Healthz)
	r.POST("/v1/auth/login", h.Login)

	authGroup := r.Group("/v1", auth.StaffAuth(cfg.JWTSigningKey, cfg.JWTIssuer))
	authGroup.GET("/students", h.ListStudents)
	authGroup.POST("/students", h.CreateStudent)
	authGroup.GET("/students/:id", h.GetStudent)
	authGroup.PATCH("/students/:id", h.UpdateStudent)
	authGroup.DELETE("/students/:id", h.DeleteStudent)
	authGroup.POST("/students/bulk-delete", h.BulkDelete)
	authGroup.GET("/stats", h.Stats)
	authGroup.GET("/activity", h.Activity)
	authGroup.GET("/draft", h.GetDraft)
	authGroup.PUT("/draft", h.PutDraft)
	authGroup.DELETE("/draft", h.DeleteDraft)
	authGroup.POST("/photos", h.UploadPhoto)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// openBlob selects the slot-store backend from config.
func openBlob(cfg config.App) (blob.Store, func(), error) {
	switch cfg.BlobBackend {
	case "memory":
		s := blob.NewMemory()
		return s, func() {}, nil
	case "postgres":
		s, err := blob.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "redis":
		s := blob.NewRedis(blob.NewRedisClient(cfg.RedisAddr), "")
		return s, func() { _ = s.Close() }, nil
	default: // sqlite
		s, err := blob.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
