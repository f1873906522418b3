package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/halcyonlabs/halcyon/internal/adapters/events"
	httpadapter "github.com/halcyonlabs/halcyon/internal/adapters/http"
	"github.com/halcyonlabs/halcyon/internal/adapters/llm"
	firestorestore "github.com/halcyonlabs/halcyon/internal/adapters/storage/firestore"
	memstore "github.com/halcyonlabs/halcyon/internal/adapters/storage/memory"
	sqlitestore "github.com/halcyonlabs/halcyon/internal/adapters/storage/sqlite"
	"github.com/halcyonlabs/halcyon/internal/app/activity"
	"github.com/halcyonlabs/halcyon/internal/app/insights"
	"github.com/halcyonlabs/halcyon/internal/app/session"
	"github.com/halcyonlabs/halcyon/internal/app/workflow"
	"github.com/halcyonlabs/halcyon/internal/config"
	"github.com/halcyonlabs/halcyon/internal/domain"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	// LLM: mock or Vertex Gemini
	var (
		llmClient domain.LLMClient
		err       error
	)
	if cfg.UseMockLLM {
		log.Println("[LLM] Using MOCK LLM client")
		llmClient = llm.NewMockLLM()
	} else {
		log.Println("[LLM] Using Vertex Gemini client")
		llmClient, err = llm.NewGeminiClient(ctx, cfg.GCPProjectID, cfg.GCPLocation, cfg.ModelName)
		if err != nil {
			log.Fatalf("error initializing Gemini client: %v", err)
		}
	}

	// Firestore serves both stores when selected; opened at most once.
	var fsStore *firestorestore.Store
	openFirestore := func() *firestorestore.Store {
		if fsStore == nil {
			log.Printf("[STORE] Using Firestore storage (project=%s)", cfg.GCPProjectID)
			fsStore, err = firestorestore.NewStore(ctx, cfg.GCPProjectID)
			if err != nil {
				log.Fatalf("error initializing Firestore store: %v", err)
			}
		}
		return fsStore
	}

	var sessionStore domain.SessionStore
	switch cfg.SessionBackend {
	case "firestore":
		sessionStore = openFirestore()
	default:
		log.Println("[STORE] Using in-memory session storage")
		sessionStore = memstore.NewSessionStore()
	}

	var activityStore domain.ActivityStore
	switch cfg.ActivityBackend {
	case "firestore":
		activityStore = openFirestore()
	case "sqlite":
		log.Printf("[STORE] Using SQLite activity storage (path=%s)", cfg.SQLitePath)
		sqlStore, err := sqlitestore.NewActivityStore(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("error initializing SQLite store: %v", err)
		}
		defer sqlStore.Close()
		activityStore = sqlStore
	default:
		log.Println("[STORE] Using in-memory activity storage")
		activityStore = memstore.NewActivityStore()
	}

	// Event transport + workflow checkpoints: in-process or Redis Streams.
	var (
		publisher   domain.EventPublisher
		checkpoints domain.CheckpointStore
		runWorker   func(w *workflow.Worker)
	)
	switch cfg.EventsBackend {
	case "redis":
		log.Printf("[EVENTS] Using Redis streams (addr=%s)", cfg.RedisAddr)
		bus, err := events.NewRedisBus(events.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			log.Fatalf("error initializing Redis bus: %v", err)
		}
		defer bus.Close()

		publisher = bus
		checkpoints = events.NewRedisCheckpointStore(bus)
		runWorker = func(w *workflow.Worker) {
			if err := bus.Consume(ctx, "halcyon-workers", "worker-1", w.Handle); err != nil {
				log.Printf("redis consumer stopped: %v", err)
			}
		}
	default:
		log.Println("[EVENTS] Using in-process event queue")
		queue := events.NewMemoryQueue(0)
		defer queue.Close()

		publisher = queue
		checkpoints = events.NewMemoryCheckpointStore()
		runWorker = func(w *workflow.Worker) {
			w.Run(ctx, queue.Events())
		}
	}

	// Services
	sessionSvc := session.NewService(llmClient, sessionStore, publisher, session.Config{
		ModelTimeout:  cfg.ModelTimeout,
		RiskThreshold: cfg.RiskThreshold,
	})
	activitySvc := activity.NewService(activityStore)
	insightEngine := insights.NewEngine()

	// Durable replay worker
	worker := workflow.NewWorker(llmClient, checkpoints, workflow.Config{
		ModelTimeout:  cfg.ModelTimeout,
		RiskThreshold: cfg.RiskThreshold,
	})
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		runWorker(worker)
	}()

	// HTTP server
	handler := httpadapter.NewServer(sessionSvc, activitySvc, insightEngine)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	go func() {
		log.Println("Halcyon API listening on port:", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}

	select {
	case <-workerDone:
	case <-time.After(10 * time.Second):
		log.Println("worker did not stop in time")
	}
}
