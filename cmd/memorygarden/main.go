package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AketfONG/Memory-Garden-sub001/internal/brain"
	"github.com/AketfONG/Memory-Garden-sub001/internal/chat"
	"github.com/AketfONG/Memory-Garden-sub001/internal/config"
	"github.com/AketfONG/Memory-Garden-sub001/internal/garden"
	"github.com/AketfONG/Memory-Garden-sub001/internal/httpapi"
	"github.com/AketfONG/Memory-Garden-sub001/internal/imagegen"
	"github.com/AketfONG/Memory-Garden-sub001/internal/observability"
	"github.com/AketfONG/Memory-Garden-sub001/internal/personality"
	"github.com/AketfONG/Memory-Garden-sub001/internal/storage"
	"github.com/AketfONG/Memory-Garden-sub001/internal/transcribe"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	keyspace, err := storage.Open(ctx, cfg.DatabaseURL, cfg.DataDir)
	if err != nil {
		log.Fatalf("storage init failed: %v", err)
	}
	defer keyspace.Close()

	repo := garden.NewRepository(keyspace, garden.Options{
		DedupWindow: cfg.MemoryDedupWindow,
		MaxMemories: cfg.MaxMemories,
	})
	stacks := garden.NewStacks(keyspace, cfg.MaxStacks)
	stacks.InitializePresets(ctx)
	log.Printf("memory store ready (%d memories)", repo.MemoryCount(ctx))

	persona := personality.NewManager(cfg.AIConfigPath)

	adapter, err := brain.NewAdapter(brain.Config{
		Mode:       cfg.BrainAdapterMode,
		Python:     cfg.BrainPython,
		ScriptPath: cfg.BrainScriptPath,
		HTTPURL:    cfg.BrainHTTPURL,
	})
	if err != nil {
		log.Fatalf("brain adapter init failed: %v", err)
	}
	log.Printf("brain adapter: %T", adapter)

	transcriber, err := transcribe.NewProvider(transcribe.Config{
		Mode:           cfg.TranscribeProvider,
		DeepgramAPIKey: cfg.DeepgramAPIKey,
		DeepgramAPIURL: cfg.DeepgramAPIURL,
		WhisperCLI:     cfg.WhisperCLI,
		ModelPath:      cfg.WhisperModelPath,
		Language:       cfg.WhisperLanguage,
	})
	if err != nil {
		log.Fatalf("transcribe provider init failed: %v", err)
	}
	log.Printf("transcribe provider: %T", transcriber)

	imager, err := imagegen.NewGenerator(imagegen.Config{
		Mode:         cfg.ImageProvider,
		APIKey:       cfg.ReplicateAPIKey,
		APIURL:       cfg.ReplicateAPIURL,
		Model:        cfg.ReplicateModel,
		PollInterval: cfg.ImagePollInterval,
	})
	if err != nil {
		log.Fatalf("image generator init failed: %v", err)
	}
	log.Printf("image generator: %T", imager)

	sessions := chat.NewSessionManager(cfg.ChatSessionInactivityTimeout)
	sessions.SetExpireHook(func(_ *chat.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveChatSessions.Set(float64(sessions.ActiveCount()))
	})

	chatSvc := chat.NewService(repo, adapter, persona)

	api := httpapi.New(cfg, repo, stacks, sessions, chatSvc, persona, transcriber, imager, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, 5*time.Second)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
