package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tourgen/internal/api"
	"tourgen/pkg/cache"
	"tourgen/pkg/config"
	"tourgen/pkg/db"
	"tourgen/pkg/ingress"
	"tourgen/pkg/llm"
	"tourgen/pkg/llm/gemini"
	"tourgen/pkg/llm/openai"
	"tourgen/pkg/logging"
	"tourgen/pkg/pipeline"
	"tourgen/pkg/places"
	"tourgen/pkg/preview"
	"tourgen/pkg/probe"
	"tourgen/pkg/queue"
	"tourgen/pkg/request"
	"tourgen/pkg/storage"
	"tourgen/pkg/store"
	"tourgen/pkg/tracker"
	"tourgen/pkg/tts/speech"
	"tourgen/pkg/version"
)

var (
	configPath = flag.String("config", "configs/tourgen.yaml", "Path to the config file")
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
)

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.Save(*configPath, config.DefaultConfig()); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Secrets may live in a local .env file; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("tourgen started", "version", version.Version)

	dbConn, err := db.Init(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbConn.Close()

	if err := dbConn.PruneCache(7 * 24 * time.Hour); err != nil {
		slog.Warn("Cache prune failed", "error", err)
	}

	blobs, err := storage.NewDiskStore(cfg.Storage.Root)
	if err != nil {
		return fmt.Errorf("failed to initialize object store: %w", err)
	}
	urls := storage.URLs{Bucket: cfg.Storage.Bucket, CDNDomain: cfg.Storage.CDNDomain}

	tr := tracker.New()
	reqClient := request.New(cfg.Request, cache.NewSQLiteCache(dbConn), tr)

	placesClient := places.New(reqClient, cfg.Places)

	llmProv, err := newLLMProvider(cfg, reqClient, tr)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM provider: %w", err)
	}
	ttsProv := speech.NewProvider(cfg.TTS, tr)

	probes := []probe.Probe{
		{Name: "LLM Provider", Check: llmProv.HealthCheck, Critical: true},
	}
	if err := probe.AnalyzeResults(probe.Run(ctx, probes)); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	tourStore := store.New(dbConn)
	q := queue.New(dbConn, cfg.Queue)
	runner := pipeline.NewRunner(tourStore, q)

	stages := []pipeline.Stage{
		pipeline.NewPhotoRetriever(placesClient, blobs, urls, cfg.Pipeline.MaxPhotos, cfg.Pipeline.PhotoConcurrency),
		pipeline.NewScriptGenerator(llmProv, blobs, urls),
		pipeline.NewAudioGenerator(ttsProv, blobs, urls),
	}
	queues := []string{queue.QueuePhotoRetrieval, queue.QueueScriptGeneration, queue.QueueAudioGeneration}
	for i, stage := range stages {
		go pipeline.NewConsumer(queues[i], q, runner, stage, cfg.Queue).Run(ctx)
	}

	gate := preview.New(blobs, cfg.Preview)
	svc := ingress.New(tourStore, q, placesClient, gate)
	onDemand := pipeline.NewOnDemand(placesClient, llmProv, ttsProv, blobs, urls,
		cfg.Storage.TempPrefix, cfg.Pipeline.MaxPhotos)

	srv := api.NewServer(cfg.API.Addr,
		api.NewTourHandler(svc, onDemand),
		api.NewPlacesHandler(placesClient),
		api.NewStatsHandler(tr),
	)
	srv.Handler = loggingMiddleware(srv.Handler)

	return runServerLifecycle(ctx, srv)
}

func newLLMProvider(cfg *config.Config, rc *request.Client, tr *tracker.Tracker) (llm.Provider, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return openai.NewClient(cfg.LLM.OpenAI, cfg.LLM.MaxTokens, cfg.LLM.Temperature, rc)
	case "gemini":
		return gemini.NewClient(cfg.LLM.Gemini, cfg.LLM.MaxTokens, cfg.LLM.Temperature, tr)
	default:
		return nil, fmt.Errorf("unknown llm.provider %q", cfg.LLM.Provider)
	}
}

func runServerLifecycle(ctx context.Context, srv *http.Server) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-ctx.Done():
		slog.Info("Shutting down server...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
