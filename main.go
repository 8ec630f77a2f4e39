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

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/dbext/podstream/internal/cluster"
	"github.com/dbext/podstream/internal/config"
	"github.com/dbext/podstream/internal/database"
	"github.com/dbext/podstream/internal/handlers"
	"github.com/dbext/podstream/internal/logging"
	"github.com/dbext/podstream/internal/middleware"
	"github.com/dbext/podstream/internal/scheduler"
)

func main() {
	// Handle CLI commands before starting the server
	if len(os.Args) > 1 && os.Args[1] == "--hash-token" {
		runHashToken()
		return
	}

	config.Load()

	logging.Init()
	defer logging.Close()

	if err := database.Init(); err != nil {
		log.Fatalf("Database init: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	if err := cluster.InitBackend(ctx); err != nil {
		log.Printf("WARNING: %v", err)
	}

	var sched *scheduler.Scheduler
	if config.Cfg.TaskManifest != "" {
		manifest, err := config.LoadManifest(config.Cfg.TaskManifest)
		if err != nil {
			log.Fatalf("Task manifest: %v", err)
		}
		handlers.Tasks = manifest

		if backend := cluster.Get(); backend != nil {
			sched = scheduler.New(backend)
			if err := sched.Register(manifest.Scheduled()); err != nil {
				log.Fatalf("Scheduler: %v", err)
			}
			sched.Start()
		} else if len(manifest.Scheduled()) > 0 {
			log.Println("WARNING: scheduled tasks configured but no cluster backend available")
		}
	}

	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	// Health (no auth)
	r.Get("/health", handlers.HealthCheck)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireToken)

		r.Post("/health/stream", handlers.StreamHealth)
		r.Post("/execute", handlers.ExecuteScript)
		r.Get("/execute/ws", handlers.ExecuteScriptWS)
		r.Get("/executions", handlers.ListExecutions)
		r.Get("/pods/{pod}/logs", handlers.StreamPodLogs)
	})

	srv := &http.Server{
		Addr:    config.Cfg.ListenAddr,
		Handler: r,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server starting on %s", config.Cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-sigCtx.Done()
	log.Println("Shutting down...")

	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

// runHashToken prints the bcrypt hash of a token for PODSTREAM_API_TOKEN_HASH.
func runHashToken() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: podstream --hash-token <token>")
		os.Exit(1)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(os.Args[2]), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash token: %v", err)
	}
	fmt.Println(string(hash))
}
