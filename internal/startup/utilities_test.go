package startup

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		want         bool
	}{
		{"unset uses default", "", true, true},
		{"true", "true", false, true},
		{"false", "false", true, false},
		{"one", "1", false, true},
		{"zero", "0", true, false},
		{"invalid uses default", "maybe", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_MEDIA_CLOUD_BOOL", tt.envValue)
			if got := getEnvBool("TEST_MEDIA_CLOUD_BOOL", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     time.Duration
	}{
		{"unset uses default", "", 5 * time.Second},
		{"parsed", "750ms", 750 * time.Millisecond},
		{"minutes", "10m", 10 * time.Minute},
		{"invalid uses default", "soon", 5 * time.Second},
		{"negative uses default", "-1s", 5 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_MEDIA_CLOUD_DURATION", tt.envValue)
			if got := getEnvDuration("TEST_MEDIA_CLOUD_DURATION", 5*time.Second); got != tt.want {
				t.Errorf("getEnvDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("TEST_MEDIA_CLOUD_INT", "12")
	if got := getEnvInt("TEST_MEDIA_CLOUD_INT", 30); got != 12 {
		t.Errorf("getEnvInt() = %d, want 12", got)
	}
	t.Setenv("TEST_MEDIA_CLOUD_INT", "lots")
	if got := getEnvInt("TEST_MEDIA_CLOUD_INT", 30); got != 30 {
		t.Errorf("getEnvInt() invalid = %d, want default 30", got)
	}
}

func TestFormatBytesStartup(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1048576, "1.0 MiB"},
		{912680550, "870.4 MiB"},
		{5368709120, "5.0 GiB"},
		{1099511627776, "1.0 TiB"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatBytesStartup(tt.bytes); got != tt.want {
				t.Errorf("formatBytesStartup(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestConfigureMemoryLimit(t *testing.T) {
	const gib = 1 << 30
	defaultRatio := DefaultMemoryRatio

	tests := []struct {
		name       string
		env        map[string]string
		wantSource string
		wantLimit  int64
		wantSet    bool
	}{
		{"nothing set", nil, "none", 0, false},
		{"container limit", map[string]string{"MEMORY_LIMIT": "1073741824"}, "MEMORY_LIMIT", int64(float64(gib) * defaultRatio), true},
		{"custom ratio", map[string]string{"MEMORY_LIMIT": "1073741824", "MEMORY_RATIO": "0.5"}, "MEMORY_LIMIT", gib / 2, true},
		{"ratio out of range", map[string]string{"MEMORY_LIMIT": "1073741824", "MEMORY_RATIO": "2"}, "MEMORY_LIMIT", int64(float64(gib) * defaultRatio), true},
		{"unparsable limit", map[string]string{"MEMORY_LIMIT": "1Gi"}, "none", 0, false},
		{"explicit GOMEMLIMIT wins", map[string]string{"GOMEMLIMIT": "512MiB", "MEMORY_LIMIT": "1073741824"}, "GOMEMLIMIT", 512 << 20, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getenv := func(k string) string { return tt.env[k] }
			var set int64
			setLimit := func(v int64) int64 {
				if v < 0 {
					return 512 << 20
				}
				set = v
				return math.MaxInt64
			}

			mc := configureMemoryLimit(getenv, setLimit)

			if mc.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", mc.Source, tt.wantSource)
			}
			if mc.GoMemLimit != tt.wantLimit {
				t.Errorf("GoMemLimit = %d, want %d", mc.GoMemLimit, tt.wantLimit)
			}
			if (set != 0) != tt.wantSet {
				t.Errorf("limit applied = %v, want %v", set != 0, tt.wantSet)
			}
			if tt.wantSet && set != tt.wantLimit {
				t.Errorf("applied limit = %d, want %d", set, tt.wantLimit)
			}
		})
	}
}

func TestLogMemoryConfig(_ *testing.T) {
	LogMemoryConfig(MemoryConfig{})
	LogMemoryConfig(MemoryConfig{Configured: true, Source: "GOMEMLIMIT", GoMemLimit: 524288000})
	LogMemoryConfig(MemoryConfig{Configured: true, Source: "MEMORY_LIMIT", ContainerLimit: 1 << 30, GoMemLimit: 912680550, Ratio: 0.85})
}

func TestEnsureDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "storage", "originals")
	if err := ensureDirectory(dir, "originals"); err != nil {
		t.Fatalf("ensureDirectory() error = %v", err)
	}
	if !dirExists(dir) {
		t.Fatal("directory was not created")
	}

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ensureDirectory(file, "storage"); err == nil {
		t.Error("ensureDirectory() should reject a regular file")
	}
}

func TestTestWriteAccess(t *testing.T) {
	dir := t.TempDir()
	if err := testWriteAccess(dir); err != nil {
		t.Fatalf("testWriteAccess() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".write-test")); !os.IsNotExist(err) {
		t.Error("write test file should be removed")
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/gallery/", "gallery"},
		{"/thumbnail/{filename}", "media"},
		{"/original_with_path/", "media"},
		{"/memories/status/{task_id}", "memories"},
		{"/livez", "ops"},
		{"/", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := getRouteGroup(tt.path); got != tt.want {
				t.Errorf("getRouteGroup(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
