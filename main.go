package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"media-cloud/internal/ai"
	"media-cloud/internal/capturetime"
	"media-cloud/internal/collage"
	"media-cloud/internal/filesystem"
	"media-cloud/internal/handlers"
	"media-cloud/internal/library"
	"media-cloud/internal/logging"
	"media-cloud/internal/media"
	"media-cloud/internal/memories"
	"media-cloud/internal/metastore"
	"media-cloud/internal/metrics"
	"media-cloud/internal/middleware"
	"media-cloud/internal/music"
	"media-cloud/internal/scheduler"
	"media-cloud/internal/settings"
	"media-cloud/internal/startup"
	"media-cloud/internal/tasks"
	"media-cloud/internal/watcher"
)

func main() {
	startTime := time.Now()

	memConfig := startup.ConfigureMemoryLimit()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}
	startup.LogMemoryConfig(memConfig)

	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"originals":  config.OriginalsDir,
		"thumbnails": config.ThumbnailsDir,
		"memories":   config.MemoriesDir,
		"assets":     config.AssetsDir,
	}))

	// Stores
	storeStart := time.Now()
	store, err := metastore.Open(context.Background(), config.MetadataBackend, config.StorageDir)
	if err != nil {
		startup.LogFatal("Failed to open metadata store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Warn("Failed to close metadata store: %v", err)
		}
	}()
	startup.LogStoresInit(store.Backend(), time.Since(storeStart))
	settingsStore := settings.NewStore(config.SettingsPath)

	// Media pipeline
	if err := media.InitVips(); err != nil {
		logging.Warn("libvips unavailable, HEIC/AVIF thumbnails will fall back to ffmpeg: %v", err)
	}
	defer media.ShutdownVips()
	startup.LogMediaInit(media.IsVipsAvailable(), config.FFmpegAvailable)

	lib := library.New(library.Config{
		OriginalsDir:  config.OriginalsDir,
		ThumbnailsDir: config.ThumbnailsDir,
		Workers:       config.ThumbnailWorkers,
	}, store, settingsStore, media.NewDeriver(media.ExecRunner{}), capturetime.NewResolver())
	if err := lib.EnsureDirs(); err != nil {
		startup.LogFatal("Failed to prepare storage: %v", err)
	}

	// Memory engine
	results := memories.NewResultStore(config.MemoriesDir)
	if err := results.EnsureDir(); err != nil {
		startup.LogFatal("Failed to prepare memories directory: %v", err)
	}
	generator, picker := newGenerator(config, results)
	supervisor := tasks.NewSupervisor(tasks.NewMemoryStore(), config.TaskTimeout)

	// Metrics collector
	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	collector := metrics.NewCollector(&statsAdapter{lib: lib, results: results}, time.Minute)
	collector.Start()

	// Background rescans
	startup.LogBackgroundInit(config.RescanSchedule, config.WatchOriginals, config.WatchDebounce)
	var sched *scheduler.Scheduler
	if config.RescanSchedule != "" {
		sched, err = scheduler.New(config.RescanSchedule, lib)
		if err != nil {
			startup.LogFatal("Invalid RESCAN_SCHEDULE: %v", err)
		}
		sched.Start()
	}
	var watch *watcher.Watcher
	if config.WatchOriginals {
		watch, err = watcher.New(config.OriginalsDir, config.WatchDebounce, lib)
		if err != nil {
			logging.Warn("Originals watcher disabled: %v", err)
		} else {
			watch.Start()
		}
	}

	h := handlers.New(handlers.Deps{
		Library:   lib,
		Settings:  settingsStore,
		Tasks:     supervisor,
		Generator: generator,
		Results:   results,
		Music:     picker,
	})

	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogMediaRequests, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogMediaRequests = config.LogMediaRequests
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggedHandler := middleware.Logger(loggingConfig)(router)
	handler := middleware.Compression(middleware.DefaultCompressionConfig())(loggedHandler)

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(config.MetricsPort, h)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	done := make(chan struct{})
	go handleShutdown(done, shutdownDeps{
		srv:        srv,
		metricsSrv: metricsSrv,
		collector:  collector,
		scheduler:  sched,
		watcher:    watch,
		supervisor: supervisor,
	})

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

// newGenerator wires the memory generator to the remote AI services and
// the local assets.
func newGenerator(config *startup.Config, results *memories.ResultStore) (*memories.Generator, *music.Picker) {
	limiter := ai.NewLimiter(config.AIRequestsPerMinute)

	frames, err := collage.LoadFrames(config.AssetsDir)
	if err != nil {
		logging.Warn("Collage frames disabled: %v", err)
	}

	picker := music.NewPicker(config.MusicDir)
	return &memories.Generator{
		OriginalsDir: config.OriginalsDir,
		Results:      results,
		Captioner:    ai.NewCaptioner(ai.NewGradioClient(config.CaptionURL, config.HFToken, limiter)),
		Narrator:     ai.NewNarrator(config.OllamaURL, config.OllamaModel, limiter),
		Composer:     collage.NewComposer(ai.NewBackgrounds(ai.NewGradioClient(config.CollageURL, config.HFToken, limiter)), frames),
		Music:        picker,
		Resolver:     capturetime.NewResolver(),
	}, picker
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// Gallery
	r.HandleFunc("/upload/", h.Upload).Methods("POST")
	r.HandleFunc("/gallery/", h.Gallery).Methods("GET")
	r.HandleFunc("/gallery/rescan", h.Rescan).Methods("POST")
	r.HandleFunc("/thumbnail/{filename}", h.Thumbnail).Methods("GET")
	r.HandleFunc("/original/{filename}", h.Original).Methods("GET")
	r.HandleFunc("/original_resized/{filename}", h.OriginalResized).Methods("GET")

	// Settings and maintenance
	r.HandleFunc("/settings/", h.GetSettings).Methods("GET")
	r.HandleFunc("/settings/", h.UpdateSettings).Methods("POST")
	r.HandleFunc("/thumbnails/clear_cache/", h.ClearCache).Methods("POST")
	r.HandleFunc("/thumbnails/generate_all/", h.GenerateAll).Methods("POST")

	// File browser
	r.HandleFunc("/files/list/", h.ListFiles).Methods("GET")
	r.HandleFunc("/files/create_folder/", h.CreateFolder).Methods("POST")
	r.HandleFunc("/files/upload_to_path/", h.UploadToPath).Methods("POST")
	r.HandleFunc("/original_with_path/", h.OriginalWithPath).Methods("GET")

	// Memories; status must be registered before the asset route
	r.HandleFunc("/memories/generate", h.GenerateMemory).Methods("POST")
	r.HandleFunc("/memories/status/{task_id}", h.MemoryStatus).Methods("GET")
	r.HandleFunc("/memories/", h.ListMemories).Methods("GET")
	r.HandleFunc("/memories/{filename}", h.MemoryAsset).Methods("GET")
	r.HandleFunc("/music/{filename}", h.MusicAsset).Methods("GET")

	return r
}

func newMetricsServer(port string, h *handlers.Handlers) *http.Server {
	mr := http.NewServeMux()
	mr.Handle("/metrics", h.MetricsHandler())
	mr.HandleFunc("/health", h.LivenessCheck)
	return &http.Server{
		Addr:              ":" + port,
		Handler:           mr,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

type libraryStats interface {
	GetStats() metrics.Stats
}

type memoryCounter interface {
	Count() int
}

// statsAdapter combines library and memory counts for the collector.
type statsAdapter struct {
	lib     libraryStats
	results memoryCounter
}

// GetStats implements metrics.StatsProvider
func (a *statsAdapter) GetStats() metrics.Stats {
	stats := a.lib.GetStats()
	stats.Memories = a.results.Count()
	return stats
}

type shutdownDeps struct {
	srv        *http.Server
	metricsSrv *http.Server
	collector  *metrics.Collector
	scheduler  *scheduler.Scheduler
	watcher    *watcher.Watcher
	supervisor *tasks.Supervisor
}

// handleShutdown waits for SIGINT or SIGTERM, stops every component and
// closes done.
func handleShutdown(done chan<- struct{}, d shutdownDeps) {
	defer close(done)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if d.watcher != nil {
		startup.LogShutdownStep("Stopping originals watcher")
		if err := d.watcher.Stop(); err != nil {
			logging.Warn("Watcher shutdown error: %v", err)
		}
		startup.LogShutdownStepComplete("Originals watcher stopped")
	}

	if d.scheduler != nil {
		startup.LogShutdownStep("Stopping rescan scheduler")
		if err := d.scheduler.Stop(ctx); err != nil {
			logging.Warn("Scheduler shutdown error: %v", err)
		}
		startup.LogShutdownStepComplete("Rescan scheduler stopped")
	}

	startup.LogShutdownStep("Stopping metrics collector")
	d.collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := d.srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Cancelling memory tasks")
	if err := d.supervisor.Shutdown(ctx); err != nil {
		logging.Warn("Memory tasks did not stop in time: %v", err)
	} else {
		startup.LogShutdownStepComplete("Memory tasks stopped")
	}

	if d.metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := d.metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownComplete()
}
