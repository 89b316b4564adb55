package memories

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"

	"media-cloud/internal/filesystem"
	"media-cloud/internal/logging"
	"media-cloud/internal/mediatypes"
	"media-cloud/internal/metrics"
	"media-cloud/internal/music"
	"media-cloud/internal/tasks"
)

var (
	// ErrNotEnoughPhotos is returned when fewer than MinPhotos images exist.
	ErrNotEnoughPhotos = errors.New("not enough photos")
	// ErrNoMemories is returned when every candidate was rejected.
	ErrNoMemories = errors.New("no suitable photos found")
	// ErrInvalidName is returned for asset names with path components.
	ErrInvalidName = errors.New("invalid file name")
)

// Selection bounds.
const (
	MinPhotos = 2
	MaxPhotos = 5
)

// Denylist holds words that mark a caption as not being a memory.
var Denylist = []string{"screenshot", "text", "document", "chart", "diagram", "interface", "code"}

// Captioner describes a photo.
type Captioner interface {
	Caption(ctx context.Context, path string) (string, error)
}

// Narrator turns a description into a short warm caption.
type Narrator interface {
	Narrate(ctx context.Context, description, dateInfo string) (string, error)
}

// Composer draws the collage of the photos at paths into dst.
type Composer interface {
	Compose(ctx context.Context, paths []string, dst string) error
}

// MusicPicker chooses a soundtrack, or nil.
type MusicPicker interface {
	Pick(rng *rand.Rand) *music.Track
}

// TimeResolver returns the capture time of a file in epoch seconds.
type TimeResolver interface {
	Resolve(ctx context.Context, path string) float64
}

// Generator builds memories from the image originals.
type Generator struct {
	OriginalsDir string
	Results      *ResultStore
	Captioner    Captioner
	Narrator     Narrator
	Composer     Composer
	Music        MusicPicker
	Resolver     TimeResolver
	NewRand      func() *rand.Rand
	Now          func() time.Time
}

// Denylisted reports whether caption contains a denylisted word.
func Denylisted(caption string) bool {
	lower := strings.ToLower(caption)
	for _, word := range Denylist {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

func (g *Generator) rand() *rand.Rand {
	if g.NewRand != nil {
		return g.NewRand()
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

func (g *Generator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// candidates lists the image originals at the top of the originals area.
func (g *Generator) candidates() ([]string, error) {
	entries, err := filesystem.ReadDirWithRetry(g.OriginalsDir, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to read originals: %w", err)
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || mediatypes.IsHidden(name) || filesystem.IsTempFile(name) {
			continue
		}
		if t, ok := mediatypes.Classify(name); ok && t == mediatypes.FileTypeImage {
			names = append(names, name)
		}
	}
	return names, nil
}

// Run is a tasks.Job. It selects and narrates photos, draws the collage,
// picks music and completes h with the Result. A failed run leaves nothing
// in the memories area.
func (g *Generator) Run(ctx context.Context, h *tasks.Handle) (err error) {
	id := h.ID()
	rng := g.rand()

	collageWritten := false
	defer func() {
		if err != nil && collageWritten {
			g.Results.Remove(id)
		}
	}()

	if err := h.Processing("Selecting photos"); err != nil {
		return err
	}

	selected, err := g.selectPhotos(ctx, h, rng)
	if err != nil {
		return err
	}

	_ = h.Message("Composing collage")
	paths := make([]string, len(selected))
	for i, item := range selected {
		paths[i] = filepath.Join(g.OriginalsDir, item.Filename)
	}
	collageWritten = true
	if err := g.Composer.Compose(ctx, paths, g.Results.CollagePath(id)); err != nil {
		return fmt.Errorf("failed to write collage: %w", err)
	}

	_ = h.Message("Choosing music")
	var track *music.Track
	if g.Music != nil {
		track = g.Music.Pick(rng)
	}

	result := Result{
		TaskID:    id,
		CreatedAt: g.now().UTC(),
		Items:     append(selected, Item{Type: ItemCollage, Filename: CollageName(id)}),
		Music:     track,
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := g.Results.Save(result); err != nil {
		return fmt.Errorf("failed to save memory: %w", err)
	}
	if err := h.Complete(result); err != nil {
		return err
	}

	logging.Info("Memory %s created with %d photos", id, len(selected))
	return nil
}

// selectPhotos picks between MinPhotos and MaxPhotos narrated photos.
func (g *Generator) selectPhotos(ctx context.Context, h *tasks.Handle, rng *rand.Rand) ([]Item, error) {
	pool, err := g.candidates()
	if err != nil {
		return nil, err
	}
	if len(pool) < MinPhotos {
		return nil, fmt.Errorf("%w: need at least %d photos, found %d", ErrNotEnoughPhotos, MinPhotos, len(pool))
	}

	target := MinPhotos + rng.IntN(min(MaxPhotos, len(pool))-MinPhotos+1)
	logging.Debug("Memory %s: looking for %d of %d photos", h.ID(), target, len(pool))

	var selected []Item
	tried := 0
	for len(selected) < target && len(pool) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		i := rng.IntN(len(pool))
		name := pool[i]
		pool[i] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]
		tried++

		_ = h.Message(fmt.Sprintf("Analyzing photo %d (%d of %d selected)", tried, len(selected), target))

		if item, ok := g.narrate(ctx, name); ok {
			selected = append(selected, item)
		}
	}

	if len(selected) == 0 {
		return nil, fmt.Errorf("%w after trying %d photos", ErrNoMemories, tried)
	}
	return selected, nil
}

// narrate captions and narrates one photo. ok is false when the photo is
// rejected or a remote call fails.
func (g *Generator) narrate(ctx context.Context, name string) (Item, bool) {
	path := filepath.Join(g.OriginalsDir, name)

	description, err := g.Captioner.Caption(ctx, path)
	if err != nil {
		logging.Warn("Captioning %s failed: %v", name, err)
		metrics.MemoryPhotosRejected.WithLabelValues("caption_error").Inc()
		return Item{}, false
	}
	if description == "" || Denylisted(description) {
		logging.Debug("Photo %s does not look like a memory: %q", name, description)
		metrics.MemoryPhotosRejected.WithLabelValues("denylisted").Inc()
		return Item{}, false
	}

	taken := time.Unix(0, int64(g.Resolver.Resolve(ctx, path)*float64(time.Second)))
	caption, err := g.Narrator.Narrate(ctx, description, "taken on "+taken.Format("02 January 2006"))
	if err != nil {
		logging.Warn("Narrating %s failed: %v", name, err)
		metrics.MemoryPhotosRejected.WithLabelValues("narrate_error").Inc()
		return Item{}, false
	}

	return Item{
		Type:     ItemPhoto,
		Filename: name,
		Caption:  caption,
		Date:     taken.Format("2006-01-02"),
	}, true
}

