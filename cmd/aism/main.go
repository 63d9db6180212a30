package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"aism/internal/handlers"
	"aism/internal/middleware"
	"aism/internal/models"
	"aism/internal/orchestrator"
	"aism/internal/utils"
	"aism/internal/version"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type App struct {
	cfg         *orchestrator.Config
	orch        *orchestrator.Orchestrator
	logger      *utils.Logger
	wsHub       *middleware.Hub
	rateLimiter *middleware.RateLimiter
}

var app *App

func main() {
	// Set Gin mode
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg, err := orchestrator.LoadConfig(orchestrator.DefaultConfigFile())
	if err != nil {
		log.Fatalf("Loading configuration: %v", err)
	}

	paths := utils.NewPaths(cfg.RootPath)
	paths.EnsureLogsDir()
	logger := utils.NewLogger(paths.LogFile())
	if !paths.CheckRoot() {
		logger.Writef("Install root %q not found; bundled services cannot be launched", cfg.RootPath)
	}

	app = &App{
		cfg:         cfg,
		orch:        orchestrator.New(cfg, logger),
		logger:      logger,
		wsHub:       middleware.NewHub(logger),
		rateLimiter: middleware.NewRateLimiter(rate.Every(time.Minute/300), 30),
	}

	// Start WebSocket hub and bridge orchestrator events onto it.
	go app.wsHub.Run()
	app.orch.OnStatusChange(func(change models.StatusChange) {
		app.wsHub.BroadcastJSON("service_status_changed", change)
	})
	app.orch.OnMetrics(func(m models.SystemMetrics) {
		app.wsHub.BroadcastJSON("metrics_updated", m)
	})

	// Auto-provisioning and the first probe sweep. A slow dependency must not
	// hold the API offline forever.
	startCtx, cancelStart := context.WithTimeout(context.Background(), 60*time.Second)
	if err := app.orch.Start(startCtx); err != nil {
		logWrite(fmt.Sprintf("Initial provisioning incomplete: %v", err))
	}
	cancelStart()

	r := setupRouter()

	srv := &http.Server{
		Addr:           "127.0.0.1:" + strconv.Itoa(cfg.Port),
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("aism %s listening on %s", version.String(), srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	// Orchestrator first so owned services are stopped before the API dies.
	app.orch.Close()
	app.wsHub.Stop()
	app.rateLimiter.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if app.logger != nil {
		app.logger.Close()
	}
	log.Println("Server exited")
}

func logWrite(msg string) {
	if app != nil && app.logger != nil {
		app.logger.Write(msg)
		return
	}
	log.Println(msg)
}

func setupRouter() *gin.Engine {
	r := gin.New()

	// Add recovery middleware
	r.Use(gin.Recovery())

	// Add custom logging middleware
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))

	// Security middleware
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	r.Use(app.rateLimiter.Middleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ws", app.wsHub.HandleWebSocket())

	h := handlers.NewServiceHandlers(app.orch, app.logger)
	api := r.Group("/api")
	{
		api.GET("/version", h.APIVersion)
		api.GET("/logs", h.APILogs)
		api.GET("/metrics", h.APIMetrics)
		api.GET("/services", h.APIServices)
		api.GET("/services/:name", h.APIServiceStatus)
		api.POST("/services/:name/start", h.APIServiceStart)
		api.POST("/services/:name/stop", h.APIServiceStop)
		api.POST("/services/:name/restart", h.APIServiceRestart)
		api.POST("/services/:name/notify", h.APIServiceNotify)
		api.PUT("/services/:name/endpoint", h.APIServiceSetEndpoint)
	}

	return r
}
