package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"lms-companion-api/internal/admin"
	"lms-companion-api/internal/config"
	"lms-companion-api/internal/connectivity"
	"lms-companion-api/internal/database"
	"lms-companion-api/internal/handlers"
	"lms-companion-api/internal/persist"
	"lms-companion-api/internal/querycache"
	"lms-companion-api/internal/realtime"
	"lms-companion-api/internal/routes"
	"lms-companion-api/internal/scorm"
	"lms-companion-api/internal/upstream"
)

func main() {
	cfg := config.Load()

	// Init database
	database.InitDB(cfg.DBPath)

	// Query cache, restored from the last snapshot when one is usable
	cache := querycache.New(querycache.Options{
		FreshFor:   cfg.FreshFor,
		EvictAfter: cfg.EvictAfter,
	})
	snapshots := persist.NewStore(database.GetDB(), persist.FormatBuster, cfg.SnapshotMaxAge)
	snapshots.RestoreCache(cache)
	snapshots.StartAutoSave(cache, cfg.SnapshotEvery)
	cache.StartJanitor(time.Minute)

	// Services
	adminTokens := admin.NewTokenService()
	client := upstream.NewClient(cfg.UpstreamBaseURL, cache, adminTokens)
	hub := realtime.NewHub()
	monitor := connectivity.NewMonitor(client, cache, hub, cfg.HealthPingEvery, cfg.OfflineMode)
	monitor.Start()

	h := &handlers.Handlers{
		Client:         client,
		Cache:          cache,
		Admin:          adminTokens,
		Hub:            hub,
		Registry:       scorm.NewRegistry(),
		Snapshots:      snapshots,
		DB:             database.GetDB(),
		Offline:        cfg.OfflineMode,
		PassphraseHash: cfg.AdminPassphraseHash,
	}

	// Setup the routes
	ginRoutes := routes.SetupRoutes(h)

	log.Printf("Companion starting on %s (upstream %s)", cfg.Port, cfg.UpstreamBaseURL)
	log.Println("API endpoints:")
	log.Println("  GET    /api/courses")
	log.Println("  GET    /api/courses/:id")
	log.Println("  GET    /api/courses/:id/units")
	log.Println("  POST   /api/courses/:id/enroll")
	log.Println("  POST   /api/adaptive/next")
	log.Println("  GET    /api/learners/:id/credentials")
	log.Println("  POST   /api/admin/elevate")
	log.Println("  POST   /api/scorm/bridge/:lessonId")
	log.Println("  GET    /api/ws")
	log.Println("  GET    /health")

	server := &http.Server{Addr: cfg.Port, Handler: ginRoutes}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("Server shutdown error:", err)
	}

	monitor.Stop()
	cache.StopJanitor()
	// Final snapshot so a restart within the snapshot age starts warm
	snapshots.StopAutoSave(cache)
}
