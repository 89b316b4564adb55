package capturetime

import (
	"context"
	"encoding/json"
	"os/exec"
	"time"

	"media-cloud/internal/logging"
)

// CommandFunc runs an external binary and returns its stdout.
type CommandFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// FFprobeExtractor reads creation_time from a video container.
type FFprobeExtractor struct {
	Binary  string
	Timeout time.Duration
	Run     CommandFunc
}

// NewFFprobeExtractor returns an extractor that shells out to ffprobe.
func NewFFprobeExtractor() *FFprobeExtractor {
	return &FFprobeExtractor{
		Binary:  "ffprobe",
		Timeout: 15 * time.Second,
		Run:     runCommand,
	}
}

type probeOutput struct {
	Format struct {
		Tags map[string]string `json:"tags"`
	} `json:"format"`
	Streams []struct {
		Tags map[string]string `json:"tags"`
	} `json:"streams"`
}

// Extract implements Extractor.
func (e *FFprobeExtractor) Extract(ctx context.Context, path string) (time.Time, bool) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	run := e.Run
	if run == nil {
		run = runCommand
	}

	out, err := run(ctx, e.Binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		logging.Debug("ffprobe failed for %s: %v", path, err)
		return time.Time{}, false
	}

	return parseProbe(out)
}

// parseProbe prefers the container tag and falls back to the first stream
// that carries one.
func parseProbe(out []byte) (time.Time, bool) {
	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return time.Time{}, false
	}

	candidates := []string{probe.Format.Tags["creation_time"]}
	for _, s := range probe.Streams {
		candidates = append(candidates, s.Tags["creation_time"])
	}

	for _, v := range candidates {
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			continue
		}
		if plausible(t) {
			return t, true
		}
	}
	return time.Time{}, false
}
