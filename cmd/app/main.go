package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"trustme_backend/internal/api"
	"trustme_backend/internal/middleware"
	"trustme_backend/internal/repository"
	"trustme_backend/internal/service"
	"trustme_backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	repo, err := repository.New(cfg.Store)
	if err != nil {
		zapLogger.Fatal("Failed to initialize store", zap.Error(err))
	}
	defer repo.Close()

	svc := service.NewService(
		service.NewWalletService(repo),
		service.NewReferralService(repo),
		service.NewProjectionService(),
	)

	router := gin.New()
	router.Use(gin.Recovery())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	config.AllowHeaders = []string{"*"}
	config.AllowCredentials = true
	config.MaxAge = 12 * time.Hour

	router.Use(cors.New(config))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC().Format(time.RFC3339)})
	})

	visitor := middleware.NewVisitor(svc, svc)

	a := router.Group("/api/v1")
	a.Use(visitor.Identify())
	api.NewWalletRoutes(a, svc)
	api.NewReferralRoutes(a, svc)
	api.NewProjectionRoutes(a, svc.ProjectionService)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	zapLogger.Info("Starting server", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		zapLogger.Fatal("Failed to start server", zap.Error(err))
	}
}
