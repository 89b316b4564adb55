// Package music picks a soundtrack for a memory from the music assets.
package music

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"

	"media-cloud/internal/logging"
	"media-cloud/internal/mediatypes"
)

// Track describes an .mp3 in the music area.
type Track struct {
	Filename string `json:"filename"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
}

// Picker chooses tracks from a directory.
type Picker struct {
	Dir string
}

// NewPicker returns a Picker over dir.
func NewPicker(dir string) *Picker {
	return &Picker{Dir: dir}
}

// Tracks lists the .mp3 files in the music area.
func (p *Picker) Tracks() []string {
	entries, err := os.ReadDir(p.Dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn("Failed to read music directory %s: %v", p.Dir, err)
		}
		return nil
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && !mediatypes.IsHidden(e.Name()) && mediatypes.Ext(e.Name()) == ".mp3" {
			names = append(names, e.Name())
		}
	}
	return names
}

// Pick returns a random track, or nil when there is none.
func (p *Picker) Pick(rng *rand.Rand) *Track {
	names := p.Tracks()
	if len(names) == 0 {
		return nil
	}
	name := names[rng.IntN(len(names))]
	t := p.Describe(name)
	return &t
}

// Describe reads the tags of the track called name. Missing tags leave the
// title as the file name without extension.
func (p *Picker) Describe(name string) Track {
	t := Track{Filename: name, Title: strings.TrimSuffix(name, filepath.Ext(name))}

	f, err := os.Open(filepath.Join(p.Dir, name))
	if err != nil {
		logging.Warn("Failed to open track %s: %v", name, err)
		return t
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		logging.Debug("No tags in %s: %v", name, err)
		return t
	}
	if title := strings.TrimSpace(m.Title()); title != "" {
		t.Title = title
	}
	t.Artist = strings.TrimSpace(m.Artist())
	t.Album = strings.TrimSpace(m.Album())
	return t
}

// Path returns the location of the track called name. Names that could
// leave the music area report os.ErrNotExist.
func (p *Picker) Path(name string) (string, error) {
	if !mediatypes.IsSafeName(name) {
		return "", os.ErrNotExist
	}
	full := filepath.Join(p.Dir, name)
	info, err := os.Stat(full)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", os.ErrNotExist
	}
	return full, nil
}
