package collage

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"math/rand/v2"
	"time"

	"github.com/disintegration/imaging"

	"media-cloud/internal/filesystem"
	"media-cloud/internal/logging"
	"media-cloud/internal/media"
)

// Canvas size of a collage.
const (
	Width  = 1080
	Height = 1920
)

// PlaceholderColor fills the canvas when no background could be generated.
var PlaceholderColor = color.NRGBA{R: 128, G: 0, B: 128, A: 255}

const maxRotation = 20

// BackgroundGenerator renders a background image for a text prompt.
type BackgroundGenerator interface {
	Generate(ctx context.Context, prompt string) (image.Image, error)
}

// Composer lays photos out on a generated background.
type Composer struct {
	Backgrounds BackgroundGenerator
	Frames      *Frames
	// NewRand returns the randomness for one collage.
	NewRand func() *rand.Rand
	Now     func() time.Time
	// Decode reads one photo. Defaults to media.DecodeImage, which falls
	// back to libvips and ffmpeg for HEIC and other containers.
	Decode func(ctx context.Context, path string) (image.Image, error)
}

// NewComposer returns a Composer. bg and frames may be nil.
func NewComposer(bg BackgroundGenerator, frames *Frames) *Composer {
	return &Composer{Backgrounds: bg, Frames: frames}
}

func (c *Composer) rand() *rand.Rand {
	if c.NewRand != nil {
		return c.NewRand()
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

func (c *Composer) decode(ctx context.Context, path string) (image.Image, error) {
	if c.Decode != nil {
		return c.Decode(ctx, path)
	}
	return media.DecodeImage(ctx, media.ExecRunner{}, path, Height)
}

func (c *Composer) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Compose builds a collage of the photos at paths and writes it to dst as
// PNG. Unreadable photos and background failures degrade the collage, and a
// panic while drawing yields a plain placeholder, so an error is returned
// only when dst cannot be written.
func (c *Composer) Compose(ctx context.Context, paths []string, dst string) error {
	img := c.draw(ctx, paths)
	return filesystem.WriteAtomic(dst, 0o644, func(w io.Writer) error {
		return png.Encode(w, img)
	})
}

func (c *Composer) draw(ctx context.Context, paths []string) (out image.Image) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Collage drawing panicked, writing placeholder: %v", r)
			out = Placeholder()
		}
	}()

	rng := c.rand()

	photos := make([]image.Image, 0, len(paths))
	colors := make([]string, 0, len(paths))
	for _, p := range paths {
		img, err := c.decode(ctx, p)
		if err != nil {
			logging.Warn("Collage skips unreadable photo %s: %v", p, err)
			continue
		}
		photos = append(photos, img)
		colors = append(colors, DominantColor(img))
	}

	canvas := c.background(ctx, BackgroundPrompt(rng, colors))

	frame, framed := c.Frames.Pick(rng)
	if framed {
		logging.Debug("Collage uses frame %s", frame.Name)
	}

	size := PhotoSize(len(photos))
	var placed []image.Rectangle
	for i, photo := range photos {
		tile := imaging.Fit(photo, size, size, imaging.Lanczos)
		if framed {
			tile = imaging.Clone(frame.Apply(tile))
		}
		angle := float64(rng.IntN(2*maxRotation+1) - maxRotation)
		tile = imaging.Rotate(tile, angle, color.Transparent)
		tile = fitCanvas(tile)

		box, ok := Place(rng, canvas.Bounds(), tile.Bounds().Size(), placed, PlacementAttempts, PlacementMargin)
		if !ok {
			logging.Warn("No room for photo %d of %d after %d attempts", i+1, len(photos), PlacementAttempts)
			continue
		}
		placed = append(placed, box)
		canvas = imaging.Overlay(canvas, tile, box.Min, 1)
	}

	return StampDate(canvas, c.now())
}

// fitCanvas shrinks tiles that could never be placed with the margins.
func fitCanvas(tile *image.NRGBA) *image.NRGBA {
	maxW, maxH := Width-2*PlacementMargin-1, Height-2*PlacementMargin-1
	if tile.Bounds().Dx() <= maxW && tile.Bounds().Dy() <= maxH {
		return tile
	}
	return imaging.Fit(tile, maxW, maxH, imaging.Lanczos)
}

func (c *Composer) background(ctx context.Context, prompt string) *image.NRGBA {
	if c.Backgrounds != nil {
		bg, err := c.Backgrounds.Generate(ctx, prompt)
		if err == nil {
			return imaging.Resize(bg, Width, Height, imaging.Lanczos)
		}
		logging.Warn("Background generation failed, using a plain background: %v", err)
	}
	return Placeholder()
}

// Placeholder returns a plain collage-sized canvas.
func Placeholder() *image.NRGBA {
	return imaging.New(Width, Height, PlaceholderColor)
}

