package memories

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"media-cloud/internal/filesystem"
	"media-cloud/internal/logging"
	"media-cloud/internal/mediatypes"
	"media-cloud/internal/music"
)

// Item kinds.
const (
	ItemPhoto   = "photo"
	ItemCollage = "collage"
)

// Item is one entry of a memory: a narrated photo or the collage.
type Item struct {
	Type     string `json:"type"`
	Filename string `json:"filename"`
	Caption  string `json:"caption,omitempty"`
	Date     string `json:"date,omitempty"`
}

// Result is the document written when a memory task completes.
type Result struct {
	TaskID    string       `json:"task_id"`
	CreatedAt time.Time    `json:"created_at"`
	Items     []Item       `json:"items"`
	Music     *music.Track `json:"music"`
}

// ResultStore keeps memory documents and collages in one directory.
type ResultStore struct {
	dir string
}

// NewResultStore returns a store over dir.
func NewResultStore(dir string) *ResultStore {
	return &ResultStore{dir: dir}
}

// EnsureDir creates the memories area.
func (s *ResultStore) EnsureDir() error {
	return os.MkdirAll(s.dir, 0o755)
}

// Dir returns the memories directory.
func (s *ResultStore) Dir() string {
	return s.dir
}

// CollageName returns the file name of the collage of task id.
func CollageName(id string) string {
	return id + "_collage.png"
}

func (s *ResultStore) documentPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// CollagePath returns where the collage of task id is written.
func (s *ResultStore) CollagePath(id string) string {
	return filepath.Join(s.dir, CollageName(id))
}

// Save writes r atomically. Results are never rewritten.
func (s *ResultStore) Save(r Result) error {
	if _, err := os.Stat(s.documentPath(r.TaskID)); err == nil {
		return fmt.Errorf("memory %s already exists", r.TaskID)
	}
	data, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		return err
	}
	return filesystem.WriteFileAtomic(s.documentPath(r.TaskID), data, 0o644)
}

// Remove deletes the document and collage of task id, if present.
func (s *ResultStore) Remove(id string) {
	for _, p := range []string{s.documentPath(id), s.CollagePath(id)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.Warn("Failed to remove %s: %v", p, err)
		}
	}
}

func (s *ResultStore) documents() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logging.Warn("Failed to read memories directory %s: %v", s.dir, err)
		}
		return nil
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.Type().IsRegular() && strings.HasSuffix(name, ".json") && !filesystem.IsTempFile(name) {
			names = append(names, name)
		}
	}
	return names
}

// List returns every readable memory, newest first.
func (s *ResultStore) List() []Result {
	out := []Result{}
	for _, name := range s.documents() {
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			logging.Warn("Failed to read memory %s: %v", name, err)
			continue
		}
		var r Result
		if err := json.Unmarshal(data, &r); err != nil {
			logging.Warn("Skipping corrupt memory %s: %v", name, err)
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].TaskID > out[j].TaskID
	})
	return out
}

// Count returns the number of memory documents.
func (s *ResultStore) Count() int {
	return len(s.documents())
}

// AssetPath returns the path of a file in the memories area.
func (s *ResultStore) AssetPath(name string) (string, error) {
	if !mediatypes.IsSafeName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	p := filepath.Join(s.dir, name)
	info, err := os.Stat(p)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", os.ErrNotExist
	}
	return p, nil
}
