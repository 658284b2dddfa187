package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"

	configs "github.com/jthom/scorekeeper/configs"
	"github.com/jthom/scorekeeper/internal/scoresvc/clock"
	svcconfig "github.com/jthom/scorekeeper/internal/scoresvc/config"
	handlers "github.com/jthom/scorekeeper/internal/scoresvc/handlers"
	"github.com/jthom/scorekeeper/internal/scoresvc/models"
	"github.com/jthom/scorekeeper/internal/scoresvc/service"
	"github.com/jthom/scorekeeper/internal/scoresvc/storage"
	"github.com/jthom/scorekeeper/internal/scoresvc/ws"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "score"

var instanceId string

func init() {
	instanceId = configs.CreateUniqueInstance(SERVICE_NAME)
	configs.Logging(SERVICE_NAME + "_service_" + instanceId)
	configs.LoadEnv(SERVICE_NAME)
}

func main() {
	cfg := svcconfig.Load()

	adapter, err := storage.NewLocalAdapter[models.StoredGame](cfg.DataDir, cfg.StoragePrefix)
	if err != nil {
		log.Fatalf("Failed to open storage directory %s: %v", cfg.DataDir, err)
	}
	log.Printf("storage directory %s ready (prefix %s)", cfg.DataDir, cfg.StoragePrefix)

	gameService := service.NewGameStorageService(adapter)

	hub := ws.NewHub()
	clocks := clock.NewManager(gameService, hub.BroadcastExpiry)
	hub.OnVisibility = clocks.SetHidden

	// Setup router
	r := chi.NewRouter()
	c := configs.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(configs.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(gameService, clocks, hub)
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	// stop countdown loops before the server so no tick writes after teardown
	clocks.StopAll()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
