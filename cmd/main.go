package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lockchun-chatbot/internal/ai"
	"lockchun-chatbot/internal/chat"
	"lockchun-chatbot/internal/config"
	"lockchun-chatbot/internal/logger"
	"lockchun-chatbot/internal/telemetry"
	"lockchun-chatbot/internal/vectorstore"
	"lockchun-chatbot/middleware"
	"lockchun-chatbot/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration; missing secrets abort startup
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	// Optional tracing
	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("lockchun-chatbot", cfg.OTLPEndpoint)
		if err != nil {
			log.Fatal("Failed to initialize tracer:", err)
		}
		defer shutdown()
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	// Shared Gemini client: chat completions + embeddings
	gemini, err := ai.NewGeminiClient(context.Background(), cfg)
	if err != nil {
		log.Fatal("Failed to create Gemini client:", err)
	}
	defer gemini.Close()

	// Vector index service: one connection per process, initialized once.
	// Kick off initialization in the background so the first chat request
	// does not pay the full connect+probe latency.
	vectors := vectorstore.NewService(vectorstore.Dial(cfg, gemini))
	go func() {
		if err := vectors.Initialize(context.Background()); err != nil {
			logger.Error("Background vector index initialization failed", "error", err)
		}
	}()

	gate := chat.NewGate(gemini, cfg.RelevanceAnchorPhrase, cfg.RelevanceThreshold)

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	if cfg.TracingEnabled {
		router.Use(middleware.TracingMiddleware())
		router.Use(middleware.EnrichTrace())
	}
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.RateLimitMiddleware(cfg))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Requested-With"}
	router.Use(cors.New(corsConfig))

	// Health check endpoints
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})
	router.GET("/ready", func(c *gin.Context) {
		if !vectors.Ready(c.Request.Context()) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	routes.SetupChatRoutes(router, cfg, routes.ChatDeps{
		Vectors: vectors,
		Gate:    gate,
		Metrics: metrics,
		BuildChain: func() (routes.ChainInvoker, error) {
			chain, err := chat.BuildChain(vectors, gemini, cfg.RetrieverK)
			if err != nil {
				return nil, err
			}
			return chain, nil
		},
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
