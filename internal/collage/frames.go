package collage

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"

	"media-cloud/internal/logging"
)

// FrameConfig positions a photo inside a decorative frame. Scale sizes the
// frame relative to the photo unless both ScaleX and ScaleY are set.
type FrameConfig struct {
	Scale   *float64 `json:"scale,omitempty"`
	ScaleX  *float64 `json:"scale_x,omitempty"`
	ScaleY  *float64 `json:"scale_y,omitempty"`
	OffsetX int      `json:"offset_x"`
	OffsetY int      `json:"offset_y"`
}

func (fc FrameConfig) scales() (float64, float64) {
	if fc.ScaleX != nil && fc.ScaleY != nil {
		return *fc.ScaleX, *fc.ScaleY
	}
	if fc.Scale != nil {
		return *fc.Scale, *fc.Scale
	}
	return 1, 1
}

// Frames is the set of PNG frames available to collages.
type Frames struct {
	dir    string
	config map[string]FrameConfig
	names  []string
}

// LoadFrames reads frames_config.json from assetsDir and keeps the PNG files
// of assetsDir/frames that it configures. A missing config or directory
// yields an empty set.
func LoadFrames(assetsDir string) (*Frames, error) {
	f := &Frames{dir: filepath.Join(assetsDir, "frames"), config: map[string]FrameConfig{}}

	data, err := os.ReadFile(filepath.Join(assetsDir, "frames_config.json"))
	if errors.Is(err, os.ErrNotExist) {
		logging.Debug("No frames_config.json in %s, collages will have no frames", assetsDir)
		return f, nil
	}
	if err != nil {
		return f, err
	}
	if err := json.Unmarshal(data, &f.config); err != nil {
		return f, fmt.Errorf("invalid frames_config.json: %w", err)
	}

	entries, err := os.ReadDir(f.dir)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return f, err
	}
	for _, e := range entries {
		name := e.Name()
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(name), ".png") {
			if _, ok := f.config[name]; ok {
				f.names = append(f.names, name)
			}
		}
	}
	sort.Strings(f.names)
	return f, nil
}

// Len returns the number of usable frames.
func (f *Frames) Len() int {
	if f == nil {
		return 0
	}
	return len(f.names)
}

// Frame is a loaded frame image with its placement.
type Frame struct {
	Name   string
	Image  image.Image
	Config FrameConfig
}

// Pick loads one frame at random. ok is false when there are none or the
// chosen one cannot be read.
func (f *Frames) Pick(rng *rand.Rand) (Frame, bool) {
	if f.Len() == 0 {
		return Frame{}, false
	}
	name := f.names[rng.IntN(len(f.names))]
	img, err := imaging.Open(filepath.Join(f.dir, name))
	if err != nil {
		logging.Warn("Failed to load frame %s: %v", name, err)
		return Frame{}, false
	}
	return Frame{Name: name, Image: img, Config: f.config[name]}, true
}

// Apply draws photo centred (plus the configured offset) under the frame
// resized relative to the photo. Frames smaller than the photo are drawn
// over it and the photo keeps its size.
func (fr Frame) Apply(photo image.Image) image.Image {
	pb := photo.Bounds()
	sx, sy := fr.Config.scales()
	fw, fh := int(float64(pb.Dx())*sx), int(float64(pb.Dy())*sy)
	if fw <= 0 || fh <= 0 {
		return photo
	}

	frame := imaging.Resize(fr.Image, fw, fh, imaging.Lanczos)
	canvas := imaging.New(max(fw, pb.Dx()), max(fh, pb.Dy()), color.Transparent)

	px := (canvas.Bounds().Dx()-pb.Dx())/2 + fr.Config.OffsetX
	py := (canvas.Bounds().Dy()-pb.Dy())/2 + fr.Config.OffsetY
	canvas = imaging.Overlay(canvas, photo, image.Pt(px, py), 1)

	fx := (canvas.Bounds().Dx() - fw) / 2
	fy := (canvas.Bounds().Dy() - fh) / 2
	return imaging.Overlay(canvas, frame, image.Pt(fx, fy), 1)
}
