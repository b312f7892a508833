// Command discoveryd runs the multi-agent discovery orchestrator: the HTTP
// request front-end and the background scheduler, wired against whichever
// external adapters the environment provides (falling back to mocked
// adapters wherever a credential or connection string is absent).
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AiSchool-Admin/quran-miracles/internal/adapters/corpus"
	"github.com/AiSchool-Admin/quran-miracles/internal/adapters/embeddings"
	"github.com/AiSchool-Admin/quran-miracles/internal/adapters/llm"
	"github.com/AiSchool-Admin/quran-miracles/internal/adapters/store"
	"github.com/AiSchool-Admin/quran-miracles/internal/checkpoint"
	"github.com/AiSchool-Admin/quran-miracles/internal/config"
	"github.com/AiSchool-Admin/quran-miracles/internal/httpapi"
	"github.com/AiSchool-Admin/quran-miracles/internal/logging"
	"github.com/AiSchool-Admin/quran-miracles/internal/orchestrator"
	"github.com/AiSchool-Admin/quran-miracles/internal/scheduler"
	"github.com/AiSchool-Admin/quran-miracles/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "discoveryd: fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	adapters := buildAdapters(cfg, logger)

	tracer, err := telemetry.New("discovery-orchestrator", os.Getenv("DISCOVERY_TRACE_STDOUT") == "true")
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracer.Shutdown(shutdownCtx)
	}()

	checkpointOpts := []checkpoint.Option{checkpoint.WithCapacity(cfg.Session.CheckpointCap)}
	if cfg.RedisURL != "" {
		checkpointOpts = append(checkpointOpts, checkpoint.WithRedisMirror(cfg.RedisURL, logger))
	}
	checkpoints := checkpoint.New(logger, checkpointOpts...)

	o := orchestrator.New(adapters, checkpoints, logger, tracer)

	server := httpapi.NewServer(o, adapters.Store, logger, cfg.HTTP.SSEKeepAlive)
	handler := http.Handler(server)
	if timeout := cfg.Session.Timeout; timeout > 0 {
		handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			server.ServeHTTP(w, r.WithContext(ctx))
		})
	}
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		seeds := scheduler.LoadSeeds(cfg.Scheduler.SeedsPath, logger)
		sched = scheduler.New(o, logger, seeds)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("discoveryd: http server listening", map[string]interface{}{"port": cfg.Port})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	if sched != nil {
		sched.Start()
		logger.Info("discoveryd: scheduler started", map[string]interface{}{})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		logger.Info("discoveryd: shutting down", map[string]interface{}{"signal": sig.String()})
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		logger.Info("discoveryd: http server stopped", map[string]interface{}{})
	}

	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}

	return nil
}

// buildAdapters selects a real adapter for every external collaborator
// whose credential or connection string is present in cfg, falling back
// to the mocked implementation otherwise.
func buildAdapters(cfg *config.Config, logger logging.Logger) orchestrator.Adapters {
	adapters := orchestrator.Mocks()

	if cfg.DatabaseURL != "" {
		if pg, err := corpus.NewPostgres(cfg.DatabaseURL, logger); err != nil {
			logger.Warn("discoveryd: postgres corpus unavailable, using mock", map[string]interface{}{"error": err.Error()})
		} else {
			adapters.Corpus = pg
		}
	}

	switch {
	case cfg.OpenAIAPIKey != "":
		adapters.Embeddings = embeddings.NewOpenAI(cfg.OpenAIAPIKey, logger)
	}

	switch {
	case cfg.AnthropicAPIKey != "":
		adapters.LLM = llm.NewAnthropic(cfg.AnthropicAPIKey, "", logger)
	case cfg.OpenAIAPIKey != "":
		adapters.LLM = llm.NewOpenAI(cfg.OpenAIAPIKey, logger)
	}

	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if redisStore, err := store.NewRedis(ctx, cfg.RedisURL, logger); err != nil {
			logger.Warn("discoveryd: redis store unavailable, using in-memory store", map[string]interface{}{"error": err.Error()})
		} else {
			adapters.Store = redisStore
		}
	}

	return adapters
}
