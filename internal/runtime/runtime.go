// Package runtime assembles the daemon: telemetry, storage, the
// production pipeline, the optional bus, and the HTTP server.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/castforge-labs/castforge-core/internal/audio"
	"github.com/castforge-labs/castforge-core/internal/bus"
	"github.com/castforge-labs/castforge-core/internal/config"
	"github.com/castforge-labs/castforge-core/internal/episodes"
	"github.com/castforge-labs/castforge-core/internal/httpapi"
	"github.com/castforge-labs/castforge-core/internal/jobs"
	"github.com/castforge-labs/castforge-core/internal/llm"
	"github.com/castforge-labs/castforge-core/internal/natsserver"
	"github.com/castforge-labs/castforge-core/internal/production"
	"github.com/castforge-labs/castforge-core/internal/render"
	"github.com/castforge-labs/castforge-core/internal/script"
	"github.com/castforge-labs/castforge-core/internal/storage"
	"github.com/castforge-labs/castforge-core/internal/tts"
)

type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	tracerClose func(context.Context) error
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

// Start brings up every service and blocks until ctx is cancelled, then
// tears them down in reverse order.
func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	objects, err := storage.NewLocal(r.cfg.Storage, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open object storage: %w", err)
	}

	jobStore, err := r.openJobStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open job store: %w", err)
	}
	defer func() {
		if err := jobStore.Close(); err != nil {
			r.logger.Error("job store close error", slog.String("error", err.Error()))
		}
	}()

	var embedded *natsserver.EmbeddedServer
	var busClient *bus.Client
	if r.cfg.Bus.Enabled {
		embedded, err = natsserver.Start(r.cfg.Bus, r.logger)
		if err != nil {
			return fmt.Errorf("failed to start embedded NATS server: %w", err)
		}
		defer embedded.Shutdown()

		busCfg := r.cfg.Bus
		if embedded != nil {
			busCfg.Servers = []string{fmt.Sprintf("nats://localhost:%d", busCfg.Port)}
		}
		busClient, err = bus.Connect(ctx, busCfg, r.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer busClient.Close()
	}

	synth, err := r.buildSynthesizer()
	if err != nil {
		return fmt.Errorf("failed to build TTS backend: %w", err)
	}

	blogs := episodes.NewBlogStore()
	eps := episodes.NewEpisodeStore()
	generator := script.NewGenerator(r.buildGenerator(), r.logger)

	orch := production.NewOrchestrator(
		r.cfg.Production,
		r.cfg.Audio,
		jobStore,
		eps,
		render.New(synth, objects, r.cfg.TTS.Voices, r.cfg.Production.RenderConcurrency, r.logger),
		audio.NewAssembler(r.cfg.Audio, objects, r.logger),
		busClient,
		r.logger,
	)
	defer orch.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	if r.cfg.Telemetry.Metrics && metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}
	httpapi.NewServer(blogs, eps, generator, orch, objects, r.logger).Register(mux)

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started", slog.String("addr", addr))

	<-ctx.Done()
	r.ready.Store(false)
	r.logger.Info("runtime stopping")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func (r *Runtime) openJobStore(ctx context.Context) (jobs.Store, error) {
	switch r.cfg.Jobs.Store {
	case "sqlite":
		return jobs.OpenSQLite(ctx, r.cfg.Jobs.Path, r.logger)
	default:
		return jobs.NewMemoryStore(), nil
	}
}

func (r *Runtime) buildGenerator() llm.Generator {
	switch r.cfg.LLM.Mode {
	case "ollama":
		return llm.NewOllamaGenerator(r.cfg.LLM.Endpoint, r.cfg.LLM.Model)
	default:
		return llm.NewMockGenerator()
	}
}

func (r *Runtime) buildSynthesizer() (tts.Synthesizer, error) {
	switch r.cfg.TTS.Mode {
	case "exec":
		return tts.NewExecSynth(r.cfg.TTS.Command, r.cfg.TTS.SampleRate, r.cfg.TTS.Channels)
	case "http":
		return tts.NewHTTPSynth(r.cfg.TTS.Endpoint, r.cfg.TTS.APIKey), nil
	default:
		return tts.NewMockSynth(r.cfg.TTS.SampleRate, r.cfg.TTS.Channels), nil
	}
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}
