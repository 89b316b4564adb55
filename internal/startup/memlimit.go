package startup

import (
	"fmt"
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"media-cloud/internal/logging"
)

// DefaultMemoryRatio is the share of the container limit given to the Go
// heap. The rest is left for libvips, ffmpeg and goroutine stacks.
const DefaultMemoryRatio = 0.85

// MemoryConfig describes how GOMEMLIMIT was configured
type MemoryConfig struct {
	Configured     bool
	Source         string // "GOMEMLIMIT", "MEMORY_LIMIT" or "none"
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// ConfigureMemoryLimit sets the Go memory limit from MEMORY_LIMIT and
// MEMORY_RATIO unless GOMEMLIMIT is already set. Call it early in main.
func ConfigureMemoryLimit() MemoryConfig {
	return configureMemoryLimit(os.Getenv, debug.SetMemoryLimit)
}

func configureMemoryLimit(getenv func(string) string, setLimit func(int64) int64) MemoryConfig {
	if getenv("GOMEMLIMIT") != "" {
		mc := MemoryConfig{Source: "GOMEMLIMIT"}
		if limit := setLimit(-1); limit > 0 && limit < math.MaxInt64 {
			mc.Configured = true
			mc.GoMemLimit = limit
		}
		return mc
	}

	raw := getenv("MEMORY_LIMIT")
	if raw == "" {
		return MemoryConfig{Source: "none"}
	}
	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || limit <= 0 {
		logging.Warn("Failed to parse MEMORY_LIMIT %q, GOMEMLIMIT not configured", raw)
		return MemoryConfig{Source: "none"}
	}

	ratio := DefaultMemoryRatio
	if s := getenv("MEMORY_RATIO"); s != "" {
		parsed, err := strconv.ParseFloat(s, 64)
		switch {
		case err != nil:
			logging.Warn("Failed to parse MEMORY_RATIO %q, using default %.2f", s, DefaultMemoryRatio)
		case parsed <= 0 || parsed > 1:
			logging.Warn("MEMORY_RATIO %q out of range (0.0-1.0], using default %.2f", s, DefaultMemoryRatio)
		default:
			ratio = parsed
		}
	}

	goLimit := int64(float64(limit) * ratio)
	setLimit(goLimit)

	return MemoryConfig{
		Configured:     true,
		Source:         "MEMORY_LIMIT",
		ContainerLimit: limit,
		GoMemLimit:     goLimit,
		Ratio:          ratio,
	}
}

// LogMemoryConfig logs the memory limit section of the startup output
func LogMemoryConfig(mc MemoryConfig) {
	logging.Info("------------------------------------------------------------")
	logging.Info("MEMORY CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	if !mc.Configured {
		logging.Info("  GOMEMLIMIT: not configured (set MEMORY_LIMIT to enable)")
		logging.Info("")
		return
	}
	switch mc.Source {
	case "GOMEMLIMIT":
		logging.Info("  GOMEMLIMIT: %s (from environment)", formatBytesStartup(mc.GoMemLimit))
	default:
		logging.Info("  Container limit: %s", formatBytesStartup(mc.ContainerLimit))
		logging.Info("  GOMEMLIMIT:      %s (%.0f%%)", formatBytesStartup(mc.GoMemLimit), mc.Ratio*100)
	}
	logging.Info("")
}

func formatBytesStartup(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
