package startup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"media-cloud/internal/logging"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	StorageDir       string
	AssetsDir        string
	Port             string
	MetricsPort      string
	MetricsEnabled   bool
	MetadataBackend  string
	RescanSchedule   string
	WatchOriginals   bool
	WatchDebounce    time.Duration
	TaskTimeout      time.Duration
	ThumbnailWorkers int
	LogMediaRequests bool
	LogHealthChecks  bool

	// AI services
	CaptionURL          string
	CollageURL          string
	HFToken             string
	OllamaURL           string
	OllamaModel         string
	AIRequestsPerMinute int

	// Derived paths
	OriginalsDir  string
	ThumbnailsDir string
	MemoriesDir   string
	SettingsPath  string
	MusicDir      string

	// Feature flags based on tool and asset availability
	FFmpegAvailable bool
	MusicAvailable  bool
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	config := &Config{
		StorageDir:          getEnv("STORAGE_DIR", "./storage"),
		AssetsDir:           getEnv("ASSETS_DIR", "./assets"),
		Port:                getEnv("PORT", "8000"),
		MetricsPort:         getEnv("METRICS_PORT", "9090"),
		MetricsEnabled:      getEnvBool("METRICS_ENABLED", true),
		MetadataBackend:     getEnv("METADATA_BACKEND", "json"),
		RescanSchedule:      os.Getenv("RESCAN_SCHEDULE"),
		WatchOriginals:      getEnvBool("WATCH_ORIGINALS", false),
		WatchDebounce:       getEnvDuration("WATCH_DEBOUNCE", 5*time.Second),
		TaskTimeout:         getEnvDuration("MEMORY_TASK_TIMEOUT", 10*time.Minute),
		ThumbnailWorkers:    getEnvInt("THUMBNAIL_WORKERS", 0),
		LogMediaRequests:    getEnvBool("LOG_MEDIA_REQUESTS", false),
		LogHealthChecks:     getEnvBool("LOG_HEALTH_CHECKS", true),
		CaptionURL:          getEnv("CAPTION_URL", "https://vidraft-florence-2-large.hf.space"),
		CollageURL:          getEnv("COLLAGE_URL", "https://black-forest-labs-flux-1-schnell.hf.space"),
		HFToken:             os.Getenv("HF_TOKEN"),
		OllamaURL:           getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:         getEnv("OLLAMA_MODEL", "gemma3:1b"),
		AIRequestsPerMinute: getEnvInt("AI_REQUESTS_PER_MINUTE", 30),
	}

	switch config.MetadataBackend {
	case "json", "sqlite":
	default:
		return nil, fmt.Errorf("invalid METADATA_BACKEND %q (want json or sqlite)", config.MetadataBackend)
	}

	logging.Info("  STORAGE_DIR:             %s", config.StorageDir)
	logging.Info("  ASSETS_DIR:              %s", config.AssetsDir)
	logging.Info("  PORT:                    %s", config.Port)
	logging.Info("  METRICS_PORT:            %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:         %v", config.MetricsEnabled)
	logging.Info("  METADATA_BACKEND:        %s", config.MetadataBackend)
	logging.Info("  RESCAN_SCHEDULE:         %s", orNone(config.RescanSchedule))
	logging.Info("  WATCH_ORIGINALS:         %v", config.WatchOriginals)
	logging.Info("  WATCH_DEBOUNCE:          %v", config.WatchDebounce)
	logging.Info("  MEMORY_TASK_TIMEOUT:     %v", config.TaskTimeout)
	logging.Info("  THUMBNAIL_WORKERS:       %s", workersString(config.ThumbnailWorkers))
	logging.Info("  CAPTION_URL:             %s", config.CaptionURL)
	logging.Info("  COLLAGE_URL:             %s", config.CollageURL)
	logging.Info("  HF_TOKEN:                %s", secretString(config.HFToken))
	logging.Info("  OLLAMA_URL:              %s", config.OllamaURL)
	logging.Info("  OLLAMA_MODEL:            %s", config.OllamaModel)
	logging.Info("  AI_REQUESTS_PER_MINUTE:  %d", config.AIRequestsPerMinute)
	logging.Info("  LOG_MEDIA_REQUESTS:      %v", config.LogMediaRequests)
	logging.Info("  LOG_HEALTH_CHECKS:       %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:               %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	var err error
	config.StorageDir, err = filepath.Abs(config.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory path: %w", err)
	}
	logging.Info("  Storage directory (absolute): %s", config.StorageDir)

	config.AssetsDir, err = filepath.Abs(config.AssetsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve assets directory path: %w", err)
	}
	logging.Info("  Assets directory (absolute):  %s", config.AssetsDir)

	config.OriginalsDir = filepath.Join(config.StorageDir, "originals")
	config.ThumbnailsDir = filepath.Join(config.StorageDir, "thumbnails")
	config.MemoriesDir = filepath.Join(config.StorageDir, "memories")
	config.SettingsPath = filepath.Join(config.StorageDir, "settings.json")
	config.MusicDir = filepath.Join(config.AssetsDir, "music")

	// Every storage area is required
	for _, dir := range []struct{ path, name string }{
		{config.StorageDir, "storage"},
		{config.OriginalsDir, "originals"},
		{config.ThumbnailsDir, "thumbnails"},
		{config.MemoriesDir, "memories"},
	} {
		if err := ensureDirectory(dir.path, dir.name); err != nil {
			return nil, fmt.Errorf("%s directory error: %w", dir.name, err)
		}
	}

	logging.Debug("  Testing storage directory write access...")
	if err := testWriteAccess(config.StorageDir); err != nil {
		return nil, fmt.Errorf("storage directory is not writable: %w", err)
	}
	logging.Info("  [OK] Storage directory is writable")

	config.MusicAvailable = dirExists(config.MusicDir)
	config.FFmpegAvailable = checkFFmpeg() == nil

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Video thumbnails:  %s", enabledString(config.FFmpegAvailable))
	logging.Info("    Memory music:      %s", enabledString(config.MusicAvailable))
	logging.Info("    Scheduled rescan:  %s", enabledString(config.RescanSchedule != ""))
	logging.Info("    Originals watcher: %s", enabledString(config.WatchOriginals))
	logging.Info("    Metrics:           %s", enabledString(config.MetricsEnabled))

	return config, nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func workersString(n int) string {
	if n <= 0 {
		return "auto"
	}
	return strconv.Itoa(n)
}

func secretString(s string) string {
	if s == "" {
		return "(not set)"
	}
	return "(set)"
}

// LogStoresInit logs metadata and settings store initialization
func LogStoresInit(backend string, duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("STORE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Metadata store (%s) opened in %v", backend, duration)
}

// LogMediaInit logs decoder availability
func LogMediaInit(vipsAvailable, ffmpegAvailable bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("MEDIA PIPELINE")
	logging.Info("------------------------------------------------------------")
	logging.Info("  libvips decoder: %s", enabledString(vipsAvailable))
	if ffmpegAvailable {
		logging.Info("  [OK] FFmpeg is available")
	} else {
		logging.Warn("  FFmpeg not found in PATH")
		logging.Warn("  Video thumbnails and video capture times will not work")
	}
}

// LogBackgroundInit logs the scheduled rescan and watcher setup
func LogBackgroundInit(schedule string, watch bool, debounce time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("BACKGROUND RESCANS")
	logging.Info("------------------------------------------------------------")
	if schedule != "" {
		logging.Info("  Schedule: %s", schedule)
	} else {
		logging.Info("  Schedule: disabled (set RESCAN_SCHEDULE to enable)")
	}
	if watch {
		logging.Info("  Watcher:  enabled (debounce %v)", debounce)
	} else {
		logging.Info("  Watcher:  disabled (set WATCH_ORIGINALS=true to enable)")
	}
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified (e.g., static file server)
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logMediaRequests, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		// Group routes by prefix for cleaner output
		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		// Sort group keys
		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		// Print routes by group
		for _, group := range groupKeys {
			groupRoutes := groups[group]
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groupRoutes {
				methodPadded := fmt.Sprintf("%-6s", route.Method)
				logging.Debug("    %s %s", methodPadded, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logMediaRequests {
		logging.Info("    Media download logging: ON")
	} else {
		logging.Info("    Media download logging: OFF (set LOG_MEDIA_REQUESTS=true to enable)")
	}
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	// Remove leading slash
	path = strings.TrimPrefix(path, "/")

	// Get first segment
	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 0 {
		return ""
	}

	first := parts[0]

	switch first {
	case "original", "original_resized", "original_with_path", "thumbnail":
		return "media"
	case "health", "livez", "readyz", "version":
		return "ops"
	}
	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Local access:")
	logging.Info("    Application:   http://localhost:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://localhost:%s/metrics", config.MetricsPort)
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
                    ___                   __                __
   ____ ___  ___  ____/ (_)___ _      _____/ /___  __  ______/ /
  / __ '__ \/ _ \/ __  / / __ '/_____/ ___/ / __ \/ / / / __  /
 / / / / / /  __/ /_/ / / /_/ /_____/ /__/ / /_/ / /_/ / /_/ /
/_/ /_/ /_/\___/\__,_/_/\__,_/      \___/_/\____/\__,_/\__,_/

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}

		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")

	if name == "originals" && logging.IsDebugEnabled() {
		entries, err := os.ReadDir(path)
		if err == nil {
			fileCount := 0
			dirCount := 0
			for _, e := range entries {
				if e.IsDir() {
					dirCount++
				} else {
					fileCount++
				}
			}
			logging.Debug("    Contents: %d files, %d directories (top level)", fileCount, dirCount)
		}
	}

	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
		// Don't return error since write access was confirmed
	}
	return nil
}

func checkFFmpeg() error {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("ffmpeg not found in PATH")
	}
	logging.Debug("  FFmpeg path: %s", path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffmpeg", "-version")
	output, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("failed to get ffmpeg version: %w", err)
	}

	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 {
		logging.Debug("  FFmpeg version: %s", strings.TrimSpace(lines[0]))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid duration value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
