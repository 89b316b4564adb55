package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"

	"media-cloud/internal/filesystem"
	"media-cloud/internal/logging"
	"media-cloud/internal/metrics"
)

// Recognized keys.
const (
	KeyPreviewSize    = "preview_size"
	KeyPreviewQuality = "preview_quality"
	KeyPhotoSize      = "photo_size"
	KeyPhotoQuality   = "photo_quality"
)

// Settings are the tunable derivation parameters.
type Settings struct {
	// PreviewSize bounds thumbnails to a square box. <= 0 disables resizing.
	PreviewSize    int `json:"preview_size"`
	PreviewQuality int `json:"preview_quality"`
	// PhotoSize bounds resized originals. 0 serves the original resolution.
	PhotoSize    int `json:"photo_size"`
	PhotoQuality int `json:"photo_quality"`
}

// Defaults returns the settings used when nothing is persisted.
func Defaults() Settings {
	return Settings{
		PreviewSize:    400,
		PreviewQuality: 80,
		PhotoSize:      0,
		PhotoQuality:   100,
	}
}

// LoadStatus tells apart the outcomes of reading the settings file.
type LoadStatus string

const (
	LoadOK       LoadStatus = "ok"
	LoadNotFound LoadStatus = "not_found"
	LoadCorrupt  LoadStatus = "corrupt"
)

// Store persists Settings as a JSON document.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a Store backed by the file at path. The file need not exist.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the effective settings. Persisted keys are merged over the
// defaults; a missing or unreadable file yields the defaults.
func (s *Store) Load() (Settings, LoadStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (Settings, LoadStatus) {
	current := Defaults()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			metrics.SettingsLoads.WithLabelValues(string(LoadNotFound)).Inc()
			return current, LoadNotFound
		}
		logging.Warn("Failed to read settings %s: %v", s.path, err)
		metrics.SettingsLoads.WithLabelValues(string(LoadCorrupt)).Inc()
		return current, LoadCorrupt
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		logging.Warn("Settings file %s is corrupt, using defaults: %v", s.path, err)
		metrics.SettingsLoads.WithLabelValues(string(LoadCorrupt)).Inc()
		return current, LoadCorrupt
	}

	current.apply(raw)
	metrics.SettingsLoads.WithLabelValues(string(LoadOK)).Inc()
	return current, LoadOK
}

// Update applies the recognized numeric keys of partial, persists the
// merged result and returns it. Unknown keys and non-numeric values are
// ignored.
func (s *Store) Update(partial map[string]interface{}) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, _ := s.load()
	current.apply(partial)

	data, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return current, fmt.Errorf("encode settings: %w", err)
	}
	if err := filesystem.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return current, fmt.Errorf("save settings: %w", err)
	}

	logging.Info("Settings updated: preview %dpx q%d, photo %dpx q%d",
		current.PreviewSize, current.PreviewQuality, current.PhotoSize, current.PhotoQuality)
	return current, nil
}

func (st *Settings) apply(values map[string]interface{}) {
	for key, v := range values {
		n, ok := toInt(v)
		if !ok {
			continue
		}
		switch key {
		case KeyPreviewSize:
			st.PreviewSize = n
		case KeyPreviewQuality:
			st.PreviewQuality = n
		case KeyPhotoSize:
			st.PhotoSize = n
		case KeyPhotoQuality:
			st.PhotoQuality = n
		}
	}
}

// toInt accepts the numeric shapes JSON decoding produces.
func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		if f, err := n.Float64(); err == nil {
			return int(f), true
		}
		return 0, false
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}
